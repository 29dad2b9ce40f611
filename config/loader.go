package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/c360/coredata/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COREDATA"

// durationKeys are converted from duration strings to nanoseconds on load.
var durationKeys = map[string]bool{
	"timeout":        true,
	"initial_delay":  true,
	"max_delay":      true,
	"reconnect_wait": true,
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	newID      func() string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix: EnvPrefix,
		lookupEnv: os.LookupEnv,
		newID:     uuid.NewString,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file over the defaults
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("load %s", path))
		}
		merged = deepMergeMaps(merged, raw)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "decode merged config")
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if cfg.Platform.Instance == "" {
		cfg.Platform.Instance = l.newID()
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadRaw reads one layer as a generic map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}
	format, err := configFormat(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	if err := validateDepth(raw, 0); err != nil {
		return nil, err
	}
	if err := parseDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func parseDurations(node any) error {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			if s, ok := v.(string); ok && durationKeys[k] {
				d, err := parseDurationWithDays(s)
				if err != nil {
					return fmt.Errorf("%s: %w", k, err)
				}
				n[k] = d.Nanoseconds()
				continue
			}
			if err := parseDurations(v); err != nil {
				return err
			}
		}
	case []any:
		for _, v := range n {
			if err := parseDurations(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseDurationWithDays parses durations that may include days (e.g., "14d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// deepMergeMaps recursively merges two maps, with override taking precedence.
// Null values in override are ignored.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		key   string
		apply func(string) error
	}{
		{"SERVICE", func(v string) error { cfg.Platform.Service = v; return nil }},
		{"INSTANCE", func(v string) error { cfg.Platform.Instance = v; return nil }},
		{"VERSION", func(v string) error { cfg.Platform.Version = v; return nil }},
		{"NATS_URL", func(v string) error { cfg.Sources.NATS.URL = v; return nil }},
		{"NATS_TOKEN", func(v string) error { cfg.Sources.NATS.Token = v; return nil }},
		{"REDIS_URL", func(v string) error { cfg.Sources.Redis.URL = v; return nil }},
		{"HTTP_TIMEOUT", func(v string) error {
			d, err := parseDurationWithDays(v)
			cfg.Sources.HTTP.Timeout = d
			return err
		}},
		{"MAX_CONTENT_BYTES", func(v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			cfg.Parser.MaxContentBytes = n
			return err
		}},
		{"MACHINE_ID", func(v string) error {
			n, err := strconv.ParseUint(v, 10, 16)
			cfg.IDGen.MachineID = uint16(n)
			return err
		}},
		{"ENRICH_POLICY", func(v string) error { cfg.Enrichment.Policy = v; return nil }},
		{"LOG_LEVEL", func(v string) error { cfg.Logging.Level = v; return nil }},
	}

	for _, o := range overrides {
		name := l.envPrefix + "_" + o.key
		val, ok := l.lookupEnv(name)
		if !ok || val == "" {
			continue
		}
		if err := validateEnvVar(name, val); err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", name)
		}
		if err := o.apply(val); err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", name)
		}
	}
	return nil
}

// SaveToFile writes the configuration as JSON or YAML, chosen by extension
func (c *Config) SaveToFile(path string) error {
	format, err := configFormat(path)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "SaveToFile", "format check")
	}

	var data []byte
	if format == "yaml" {
		// Encode through the JSON form so durations and tags match what Load reads.
		m, err := toMap(c)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "SaveToFile", "encode")
		}
		data, err = yaml.Marshal(m)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "SaveToFile", "encode yaml")
		}
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return errors.WrapInvalid(err, "Config", "SaveToFile", "encode json")
		}
	}
	if err := safeWriteFile(path, data); err != nil {
		return errors.WrapInvalid(err, "Config", "SaveToFile", "write")
	}
	return nil
}
