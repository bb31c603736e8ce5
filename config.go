package aegis

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFilename is the name of the config document LoadConfig searches
// for when walking upward from a start directory.
const ConfigFilename = ".aegis.yaml"

// Identity is cosmetic metadata carried at the root of the config document.
type Identity struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// HistorySettings configures the durable HistoryStore, when enabled.
type HistorySettings struct {
	Path       string `yaml:"path"`
	MaxRecords int    `yaml:"max_records"`
}

// rawServiceEntry and rawWorkflowDef mirror the YAML document shape; they
// are decoded first and then converted to the engine's own types so that
// ServiceEntry/WorkflowDef stay free of yaml struct tags.
type rawServiceEntry struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	URL            string   `yaml:"url"`
	HealthEndpoint string   `yaml:"health_endpoint"`
	APIKeyEnv      string   `yaml:"api_key_env"`
	Features       []string `yaml:"features"`
}

type rawStepDef struct {
	Type              string  `yaml:"type"`
	Service           string  `yaml:"service"`
	Condition         string  `yaml:"condition"`
	Parallel          bool    `yaml:"parallel"`
	Retries           int     `yaml:"retries"`
	RetryDelaySeconds float64 `yaml:"retry_delay_seconds"`
	TimeoutSeconds    float64 `yaml:"timeout_seconds"`
}

type rawWorkflowDef struct {
	Name  string       `yaml:"name"`
	Steps []rawStepDef `yaml:"steps"`
}

type rawWebhookConfig struct {
	URL    string   `yaml:"url"`
	Events []string `yaml:"events"`
	Secret string   `yaml:"secret"`
}

type rawDocument struct {
	Aegis     Identity                   `yaml:"aegis"`
	Services  map[string]rawServiceEntry `yaml:"services"`
	Workflows map[string]rawWorkflowDef  `yaml:"workflows"`
	Webhooks  []rawWebhookConfig         `yaml:"webhooks"`
	History   HistorySettings            `yaml:"history"`
}

// Config is the fully resolved, engine-ready configuration produced by
// LoadConfig: downstream services, workflows, webhook targets, and
// history settings.
type Config struct {
	Identity  Identity
	Services  map[string]ServiceEntry
	Workflows map[string]WorkflowDef
	Webhooks  []WebhookConfig
	History   HistorySettings
	Logger    *slog.Logger
}

// FindConfigFile walks upward from start (or the current working
// directory, if start is "") looking for ConfigFilename, returning the
// path of the file in the nearest directory that has one.
func FindConfigFile(start string) (string, error) {
	dir := start
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ConfigFilename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &ErrConfigNotFound{Filename: ConfigFilename}
		}
		dir = parent
	}
}

// LoadConfig reads and parses the config document at path, or locates one
// by walking upward from the current directory when path is "". Every
// string leaf of the document is interpolated against the environment
// before decoding into Config.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		found, err := FindConfigFile("")
		if err != nil {
			return nil, err
		}
		path = found
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	tree = interpolateRecursive(tree)

	interpolated, err := yaml.Marshal(tree)
	if err != nil {
		return nil, err
	}

	var doc rawDocument
	if err := yaml.Unmarshal(interpolated, &doc); err != nil {
		return nil, err
	}

	return docToConfig(doc), nil
}

func docToConfig(doc rawDocument) *Config {
	cfg := &Config{
		Identity:  doc.Aegis,
		Services:  make(map[string]ServiceEntry, len(doc.Services)),
		Workflows: make(map[string]WorkflowDef, len(doc.Workflows)),
		History:   doc.History,
		Logger:    discardLogger(),
	}
	if cfg.Identity.Name == "" {
		cfg.Identity.Name = "Aegis"
	}
	if cfg.Identity.Version == "" {
		cfg.Identity.Version = "0.1.0"
	}

	for key, s := range doc.Services {
		healthEndpoint := s.HealthEndpoint
		if healthEndpoint == "" {
			healthEndpoint = "/health"
		}
		cfg.Services[key] = ServiceEntry{
			Key:            key,
			Name:           s.Name,
			Description:    s.Description,
			URL:            s.URL,
			HealthEndpoint: healthEndpoint,
			APIKeyEnv:      s.APIKeyEnv,
			Features:       s.Features,
		}
	}

	for key, w := range doc.Workflows {
		steps := make([]StepDef, 0, len(w.Steps))
		for _, s := range w.Steps {
			steps = append(steps, StepDef{
				Type:              s.Type,
				Service:           s.Service,
				Condition:         s.Condition,
				Parallel:          s.Parallel,
				Retries:           s.Retries,
				RetryDelaySeconds: s.RetryDelaySeconds,
				TimeoutSeconds:    s.TimeoutSeconds,
			}.WithDefaults())
		}
		name := w.Name
		if name == "" {
			name = key
		}
		cfg.Workflows[key] = WorkflowDef{Name: name, Steps: steps}
	}

	for _, wh := range doc.Webhooks {
		cfg.Webhooks = append(cfg.Webhooks, WebhookConfig{
			URL:    wh.URL,
			Events: wh.Events,
			Secret: wh.Secret,
		})
	}

	return cfg
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} occurrences in value
// with the named environment variable, or the default when unset and a
// default was given, or the literal match when unset and no default was
// given.
func interpolateEnv(value string) string {
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		expr := match[2 : len(match)-1]
		if name, def, ok := strings.Cut(expr, ":-"); ok {
			if v, set := os.LookupEnv(strings.TrimSpace(name)); set {
				return v
			}
			return def
		}
		if v, set := os.LookupEnv(strings.TrimSpace(expr)); set {
			return v
		}
		return match
	})
}

// interpolateRecursive walks a decoded YAML tree (maps, slices, scalars)
// applying interpolateEnv to every string leaf.
func interpolateRecursive(node any) any {
	switch v := node.(type) {
	case string:
		return interpolateEnv(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = interpolateRecursive(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = interpolateRecursive(val)
		}
		return out
	default:
		return node
	}
}
