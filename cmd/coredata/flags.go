package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/c360/coredata/message"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Pipeline        string
	InputPath       string
	Format          string
	Schema          string
	Encoding        string
	Tenant          string
	Origin          string
	ByReference     bool
	Serve           bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
	Payloads        []string
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}

	fs.StringVar(&cfg.ConfigPath, "config", getEnv("COREDATA_CONFIG", ""),
		"Path to a .json or .yaml configuration file (env: COREDATA_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c", getEnv("COREDATA_CONFIG", ""),
		"Path to configuration file (env: COREDATA_CONFIG)")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("COREDATA_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error; overrides logging.level")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("COREDATA_LOG_FORMAT", ""),
		"Log format: json, text; overrides logging.format")
	fs.StringVar(&cfg.Pipeline, "pipeline", getEnv("COREDATA_PIPELINE", "default"),
		"Pipeline to run each payload through (env: COREDATA_PIPELINE)")
	fs.StringVar(&cfg.InputPath, "input", "",
		"JSON file holding the enrichment input")
	fs.StringVar(&cfg.Format, "format", "xml", "Payload format: xml, json")
	fs.StringVar(&cfg.Schema, "schema", "iso20022", "Payload schema: iso20022, generic")
	fs.StringVar(&cfg.Encoding, "encoding", "UTF-8", "Payload encoding: UTF-8, UTF-16, UTF-32, ASCII, ISO-8859-1")
	fs.StringVar(&cfg.Tenant, "tenant", getEnv("COREDATA_TENANT", "default"), "Tenant recorded on each message")
	fs.StringVar(&cfg.Origin, "origin", "cli", "Origin recorded on each message")
	fs.BoolVar(&cfg.ByReference, "by-reference", false,
		"Build file payloads that reference each path instead of inlining the bytes")
	fs.BoolVar(&cfg.Serve, "serve", getEnvBool("COREDATA_SERVE", false),
		"Keep serving metrics and health after processing until interrupted")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("COREDATA_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: COREDATA_SHUTDOWN_TIMEOUT)")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs.Output(), fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Payloads = fs.Args()
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}
	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "" && !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if _, err := message.ParseFormat(cfg.Format); err != nil {
		return err
	}
	if _, err := message.ParseSchema(cfg.Schema); err != nil {
		return err
	}
	if _, err := message.ParseEncoding(cfg.Encoding); err != nil {
		return err
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v", cfg.ShutdownTimeout)
	}
	if len(cfg.Payloads) == 0 && !cfg.Validate && !cfg.Serve {
		return fmt.Errorf("no payload files given")
	}
	return nil
}

func printDetailedHelp(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(w, `%s - audit-trailed message parsing and enrichment

Usage: %s [options] payload...

Each payload file becomes a message that is parsed and enriched by the
selected pipeline. The resulting messages are written to stdout as JSON,
one per line. Logs go to stderr.

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Parse an ISO 20022 document with the built-in defaults
  %[1]s pacs008.xml

  # Run the "inbound" pipeline with enrichment input
  %[1]s --config=coredata.yaml --pipeline=inbound --input=rates.json pacs008.xml

  # Parse a JSON document without schema checks
  %[1]s --format=json --schema=generic order.json

  # Validate configuration only
  %[1]s --config=coredata.yaml --validate

Version: %[2]s
Build: %[3]s
`, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
