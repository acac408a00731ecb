// Package pipeline is the public entry point for running toxicprep stages
// from Go code.
//
// Example usage:
//
//	import "github.com/born-ml/toxicprep/pipeline"
//
//	cfg, err := pipeline.LoadConfig("toxicprep.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r := pipeline.New(cfg, slog.Default())
//	if err := r.All(ctx); err != nil {
//	    log.Fatal(err)
//	}
package pipeline

import (
	"log/slog"

	"github.com/born-ml/toxicprep/internal/config"
	"github.com/born-ml/toxicprep/internal/pipeline"
)

// Runner executes pipeline stages.
type Runner = pipeline.Runner

// Config is the full pipeline configuration.
type Config = config.Config

// Stage names.
const (
	StageDownload   = pipeline.StageDownload
	StagePreprocess = pipeline.StagePreprocess
	StageConvert    = pipeline.StageConvert
	StageExplore    = pipeline.StageExplore
)

// Common errors.
var (
	ErrUnknownStage       = pipeline.ErrUnknownStage
	ErrInvalidConfig      = config.ErrInvalidConfig
	ErrMissingCredentials = config.ErrMissingCredentials
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads defaults, the optional YAML file at path and the environment.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// New returns a runner for cfg.
func New(cfg *Config, logger *slog.Logger) *Runner {
	return pipeline.New(cfg, logger)
}
