// Package main implements the coredata command. It builds a message for each
// payload file, runs it through a configured pipeline and prints the resulting
// messages, audit trail included, as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/c360/coredata/config"
	"github.com/c360/coredata/message"
	"github.com/c360/coredata/pkg/idgen"
	"github.com/c360/coredata/service"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "coredata"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cliCfg, err := parseFlags(fs, args)
	if err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp(stderr, fs)
		return nil
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("Configuration is valid", "pipelines", len(cfg.Pipelines), "workflows", len(cfg.Workflows))
		return nil
	}

	tp, shutdownTracing, err := setupTracing(cfg, stderr)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	// Messages and audit entries draw from one generator so ids never collide.
	ids, err := idgen.NewSonyflake(cfg.IDGen)
	if err != nil {
		return fmt.Errorf("create id generator: %w", err)
	}

	svc, err := service.New(cfg, service.Dependencies{Logger: logger, TracerProvider: tp, IDs: ids})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	logger.Info("Starting coredata",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"pipeline", cliCfg.Pipeline)

	procErr := processPayloads(ctx, svc, ids, cliCfg, stdout)

	if cliCfg.Serve && ctx.Err() == nil {
		logger.Info("Serving metrics and health until interrupted", "metrics", svc.MetricsAddress())
		<-ctx.Done()
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
	defer cancel()
	if err := svc.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping service", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", "error", err)
	}
	return procErr
}

// loadConfig layers the optional config file over the defaults. The flag
// overrides for logging are applied last.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	loader.EnableValidation(true)
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}
	if cfg.Pipelines == nil {
		cfg.Pipelines = map[string]config.PipelineConfig{}
	}
	if _, ok := cfg.Pipelines[cliCfg.Pipeline]; !ok {
		if cliCfg.Pipeline != "default" {
			return nil, fmt.Errorf("pipeline %q is not configured", cliCfg.Pipeline)
		}
		// The default pipeline only parses.
		cfg.Pipelines["default"] = config.PipelineConfig{}
	}
	return cfg, nil
}

// processPayloads runs every payload through the pipeline as one batch and
// writes each message as a JSON line. It fails if any message failed.
func processPayloads(ctx context.Context, svc *service.Service, ids idgen.Generator, cliCfg *CLIConfig, stdout io.Writer) error {
	if len(cliCfg.Payloads) == 0 {
		return nil
	}

	input, err := readInput(cliCfg.InputPath)
	if err != nil {
		return err
	}

	msgs := make([]*message.Message, 0, len(cliCfg.Payloads))
	for _, path := range cliCfg.Payloads {
		payload, err := buildPayload(cliCfg, path)
		if err != nil {
			return err
		}
		msg, err := message.New(ids, payload, cliCfg.Tenant, cliCfg.Origin,
			message.WithMetadata(map[string]any{"source_file": filepath.Base(path)}))
		if err != nil {
			return fmt.Errorf("create message for %s: %w", path, err)
		}
		msgs = append(msgs, msg)
	}

	results, err := svc.ProcessBatch(ctx, cliCfg.Pipeline, msgs, input)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(stdout)
	enc := json.NewEncoder(out)
	failed := 0
	for i, msg := range msgs {
		if results[i] != nil {
			failed++
			slog.Error("Payload failed", "file", cliCfg.Payloads[i], "message_id", msg.ID(), "error", results[i])
		}
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("encode message %d: %w", msg.ID(), err)
		}
	}
	if err := out.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d payloads failed", failed, len(msgs))
	}
	return nil
}

// buildPayload reads path inline, or references it by file URL.
func buildPayload(cliCfg *CLIConfig, path string) (message.Payload, error) {
	format, err := message.ParseFormat(cliCfg.Format)
	if err != nil {
		return message.Payload{}, err
	}
	schema, err := message.ParseSchema(cliCfg.Schema)
	if err != nil {
		return message.Payload{}, err
	}
	encoding, err := message.ParseEncoding(cliCfg.Encoding)
	if err != nil {
		return message.Payload{}, err
	}

	if cliCfg.ByReference {
		abs, err := filepath.Abs(path)
		if err != nil {
			return message.Payload{}, fmt.Errorf("resolve %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return message.Payload{}, fmt.Errorf("stat %s: %w", path, err)
		}
		return message.NewFile("file://"+filepath.ToSlash(abs), format, schema, encoding, info.Size()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return message.Payload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return message.NewInline(data, format, schema, encoding), nil
}

// readInput decodes the enrichment input file. No file means nil input.
func readInput(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return input, nil
}
