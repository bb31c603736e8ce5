package aegis_test

// Blank-importing steps triggers its handlers' init() functions, which
// call aegis.RegisterStepKind for each built-in step kind. Any test or
// application that constructs an Engine needs this import in its own
// main or test package; it is not implied by importing the root package
// alone, since the root package cannot import steps without a cycle.
import _ "github.com/jblacketter/aegis/steps"
