// Package main provides the toxicprep CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/born-ml/toxicprep/internal/config"
	"github.com/born-ml/toxicprep/internal/ledger"
	"github.com/born-ml/toxicprep/internal/pipeline"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "toxicprep: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stdout)
		return nil
	}
	if args[0] == "version" {
		fmt.Fprintf(stdout, "toxicprep %s\n", version)
		return nil
	}

	command := args[0]
	if !slices.Contains(pipeline.Stages, command) {
		usage(stderr)
		return fmt.Errorf("%w: %q", pipeline.ErrUnknownStage, command)
	}
	if len(args) > 2 {
		return fmt.Errorf("too many arguments: %s", strings.Join(args[2:], " "))
	}

	var configPath string
	if len(args) == 2 {
		configPath = args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := pipeline.New(cfg, logger)
	r.Out = stdout

	if cfg.Ledger.DatabaseURL != "" {
		db, err := ledger.Open(ctx, cfg.Ledger.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		r.Ledger = db
	}

	runErr := r.Run(ctx, command)

	// Push even after a failure so the failed stage is visible.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := r.Push(pushCtx); err != nil {
		logger.Warn("metrics push failed", "error", err)
	}

	if errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("interrupted: %w", runErr)
	}
	return runErr
}

func newLogger(c config.Log, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, &config.ConfigError{Field: "log.level", Details: fmt.Sprintf("unknown level %q", c.Level)}
	}
	opts := &slog.HandlerOptions{Level: level}

	switch c.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, &config.ConfigError{Field: "log.format", Details: fmt.Sprintf("unknown format %q", c.Format)}
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "toxicprep - toxic comment dataset preparation")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Usage: toxicprep <command> [config.yaml]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  download     Fetch train.csv, test.csv and test_labels.csv into the raw directory")
	fmt.Fprintln(w, "  preprocess   Join, clean and split the raw tables")
	fmt.Fprintln(w, "  convert      Build batched datasets from the processed tables")
	fmt.Fprintln(w, "  explore      Print missing values and label statistics, write the workbook")
	fmt.Fprintln(w, "  all          Run every stage in order")
	fmt.Fprintln(w, "  version      Show version")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Credentials for the kaggle source are read from %s and %s.\n", config.EnvUsername, config.EnvKey)
}
