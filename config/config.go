package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/pkg/idgen"
	"github.com/c360/coredata/pkg/tree"
	"github.com/c360/coredata/processor/enrich"
	"github.com/c360/coredata/processor/parser"
	"github.com/c360/coredata/storage/content"
	"github.com/c360/coredata/workflow"
)

// Config represents the complete application configuration
type Config struct {
	Version    string                    `json:"version" yaml:"version"` // Semantic version of the configuration document
	Platform   PlatformConfig            `json:"platform" yaml:"platform"`
	IDGen      idgen.SonyflakeConfig     `json:"idgen" yaml:"idgen"`
	Parser     parser.Config             `json:"parser" yaml:"parser"`
	Sources    content.Config            `json:"sources" yaml:"sources"`
	Enrichment EnrichmentConfig          `json:"enrichment" yaml:"enrichment"`
	Logging    LoggingConfig             `json:"logging" yaml:"logging"`
	Metrics    MetricsConfig             `json:"metrics" yaml:"metrics"`
	Tracing    TracingConfig             `json:"tracing" yaml:"tracing"`
	Pipelines  map[string]PipelineConfig `json:"pipelines" yaml:"pipelines"`
	Workflows  []workflow.Workflow       `json:"workflows" yaml:"workflows"`
}

// PlatformConfig identifies the process in audit provenance.
type PlatformConfig struct {
	Service     string `json:"service" yaml:"service"`
	Instance    string `json:"instance" yaml:"instance"`
	Version     string `json:"version" yaml:"version"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"` // "prod", "dev", "test"
}

// EnrichmentConfig configures the enrichment engine.
type EnrichmentConfig struct {
	// Policy is "coerce" (default) or "strict".
	Policy string `json:"policy" yaml:"policy"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
	Path    string `json:"path" yaml:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// SampleRatio is the fraction of root spans sampled, 0 to 1.
	SampleRatio float64 `json:"sample_ratio" yaml:"sample_ratio"`
}

// PipelineConfig is a named processing recipe: parse, then apply rules.
type PipelineConfig struct {
	// Description is written to the enrichment audit entry.
	Description string `json:"description" yaml:"description"`
	// Workflow names a workflow whose Enrich tasks contribute rules, in task
	// order, ahead of Rules.
	Workflow string        `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	Rules    []enrich.Rule `json:"rules" yaml:"rules"`
	// Concurrency bounds ProcessBatch. Zero means one goroutine per CPU.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Platform: PlatformConfig{
			Service: "coredata",
			Version: "0.1.0",
		},
		Parser:     parser.DefaultConfig(),
		Sources:    content.DefaultConfig(),
		Enrichment: EnrichmentConfig{Policy: tree.CoerceObjects.String()},
		Logging:    LoggingConfig{Level: "info", Format: "json"},
		Metrics:    MetricsConfig{Addr: ":9090", Path: "/metrics"},
		Tracing:    TracingConfig{SampleRatio: 1},
		Pipelines:  map[string]PipelineConfig{},
		Workflows:  []workflow.Workflow{},
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Platform.Service == "" {
		return errors.WrapInvalid(fmt.Errorf("platform.service is required"), "Config", "Validate", "platform check")
	}
	if c.Version != "" {
		if _, _, _, err := parseSemVer(c.Version); err != nil {
			return errors.WrapInvalid(err, "Config", "Validate", "version check")
		}
	}
	if err := c.Parser.Validate(); err != nil {
		return err
	}
	if err := c.Sources.Validate(); err != nil {
		return err
	}
	if _, err := c.PathPolicy(); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "enrichment policy check")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(fmt.Errorf("unknown log level %q", c.Logging.Level), "Config", "Validate", "logging check")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return errors.WrapInvalid(fmt.Errorf("sample ratio %v outside [0,1]", c.Tracing.SampleRatio),
			"Config", "Validate", "tracing check")
	}

	workflows := make(map[string]bool, len(c.Workflows))
	for i := range c.Workflows {
		wf := &c.Workflows[i]
		if err := wf.Validate(); err != nil {
			return err
		}
		if workflows[wf.Name] {
			return errors.WrapInvalid(fmt.Errorf("duplicate workflow %q", wf.Name), "Config", "Validate", "workflow check")
		}
		workflows[wf.Name] = true
	}

	for name, p := range c.Pipelines {
		if p.Concurrency < 0 {
			return errors.WrapInvalid(fmt.Errorf("pipeline %q: negative concurrency", name),
				"Config", "Validate", "pipeline check")
		}
		if p.Workflow != "" && !workflows[p.Workflow] {
			return errors.WrapInvalid(fmt.Errorf("pipeline %q references unknown workflow %q", name, p.Workflow),
				"Config", "Validate", "pipeline check")
		}
		if err := enrich.ValidateRules(p.Rules); err != nil {
			return err
		}
	}
	return nil
}

// PathPolicy returns the configured enrichment path policy.
func (c *Config) PathPolicy() (tree.Policy, error) {
	return tree.ParsePolicy(c.Enrichment.Policy)
}

// Workflow returns the workflow with the given name.
func (c *Config) Workflow(name string) (*workflow.Workflow, bool) {
	for i := range c.Workflows {
		if c.Workflows[i].Name == name {
			return &c.Workflows[i], true
		}
	}
	return nil, false
}

// PipelineRules returns the rules of a pipeline: the Enrich tasks of its
// workflow in order, followed by its own rules.
func (c *Config) PipelineRules(name string) ([]enrich.Rule, error) {
	p, ok := c.Pipelines[name]
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("unknown pipeline %q", name), "Config", "PipelineRules", "pipeline lookup")
	}

	var rules []enrich.Rule
	if p.Workflow != "" {
		wf, ok := c.Workflow(p.Workflow)
		if !ok {
			return nil, errors.WrapInvalid(fmt.Errorf("unknown workflow %q", p.Workflow), "Config", "PipelineRules", "workflow lookup")
		}
		for _, task := range wf.Tasks {
			if task.Function != workflow.FunctionEnrich {
				continue
			}
			taskRules, err := task.EnrichmentRules()
			if err != nil {
				return nil, err
			}
			rules = append(rules, taskRules...)
		}
	}
	return append(rules, p.Rules...), nil
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// CompareVersions compares two semver version strings
// Returns:
//
//	-1 if v1 < v2
//	 0 if v1 == v2
//	 1 if v1 > v2
//	error if either version is invalid
func CompareVersions(v1, v2 string) (int, error) {
	a, err := semVer(v1)
	if err != nil {
		return 0, err
	}
	b, err := semVer(v2)
	if err != nil {
		return 0, err
	}
	for i := range a {
		switch {
		case a[i] > b[i]:
			return 1, nil
		case a[i] < b[i]:
			return -1, nil
		}
	}
	return 0, nil
}

func semVer(v string) ([3]int, error) {
	major, minor, patch, err := parseSemVer(v)
	if err != nil {
		return [3]int{}, fmt.Errorf("invalid version '%s': %w", v, err)
	}
	return [3]int{major, minor, patch}, nil
}

// parseSemVer parses a semantic version string (e.g., "1.2.3")
func parseSemVer(version string) (int, int, int, error) {
	if version == "" {
		return 0, 0, 0, fmt.Errorf("version cannot be empty")
	}

	version = strings.TrimPrefix(version, "v")
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("version must be in format 'major.minor.patch', got '%s'", version)
	}

	var nums [3]int
	for i, name := range []string{"major", "minor", "patch"} {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("invalid %s version '%s'", name, parts[i])
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}
