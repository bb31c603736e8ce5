package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for workflow and step execution spans.
var (
	AttrWorkflowName = attribute.Key("workflow.name")
	AttrStepType     = attribute.Key("step.type")
	AttrService      = attribute.Key("service.name")
	AttrSuccess      = attribute.Key("step.success")
	AttrAttempt      = attribute.Key("step.attempt")
)

const scopeName = "github.com/jblacketter/aegis"
