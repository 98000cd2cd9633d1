// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the configuration of the playbook operator manager.
package config

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	coreconfig "github.com/playbookrun/playbook-operator/internal/config"
	"github.com/playbookrun/playbook-operator/internal/controller/playbookrun"
)

// EnvPrefix is the prefix of environment variables read by the operator.
// Example: PBR_CONTROLLER__RECONCILE__TIMEOUT=2m
const EnvPrefix = "PBR_CONTROLLER"

// FlagMappings maps operator command line flags to configuration keys.
var FlagMappings = map[string]string{
	"max-concurrent-reconciles": "reconcile.max_concurrent",
	"reconcile-timeout":         "reconcile.timeout",
}

// Config is the top-level configuration of the operator.
type Config struct {
	// Reconcile tunes the PlaybookRun reconcile loop.
	Reconcile ReconcileConfig `koanf:"reconcile"`
	// Job defines the cluster wide settings of every rendered Job.
	Job JobConfig `koanf:"job"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Reconcile: ReconcileDefaults(),
		Job:       JobDefaults(),
	}
}

// Loaded is the result of Load: the validated configuration and the loader that produced it.
type Loaded struct {
	Config Config
	loader *coreconfig.Loader
}

// DumpYAML writes the merged configuration as YAML.
func (l *Loaded) DumpYAML(w io.Writer) error {
	return l.loader.DumpYAML(w)
}

// Load reads defaults, the optional config file, environment variables and explicitly set flags,
// in increasing order of precedence, and validates the result.
func Load(configPath string, flags *pflag.FlagSet, logger *slog.Logger) (*Loaded, error) {
	loader := coreconfig.NewLoader(EnvPrefix, coreconfig.WithLogger(logger))

	if err := loader.LoadWithDefaults(Defaults(), configPath); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags != nil {
		if err := loader.LoadFlags(flags, FlagMappings); err != nil {
			return nil, fmt.Errorf("failed to apply flags: %w", err)
		}
	}

	var cfg Config
	if err := loader.UnmarshalAndValidate("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Loaded{Config: cfg, loader: loader}, nil
}

// Validate validates the configuration and reports every invalid field.
func (c *Config) Validate() error {
	var errs coreconfig.ValidationErrors

	errs = append(errs, c.Reconcile.Validate(coreconfig.NewPath("reconcile"))...)
	errs = append(errs, c.Job.Validate(coreconfig.NewPath("job"), c.Reconcile.StatusPollInterval)...)

	return errs.OrNil()
}

// ToReconcilerOptions converts the configuration into PlaybookRun reconciler options.
func (c *Config) ToReconcilerOptions() (playbookrun.Options, error) {
	renderOpts, err := c.Job.ToRenderOptions()
	if err != nil {
		return playbookrun.Options{}, err
	}

	return playbookrun.Options{
		Render:                  renderOpts,
		ReconcileTimeout:        c.Reconcile.Timeout,
		StatusPollInterval:      c.Reconcile.StatusPollInterval,
		MaxConcurrentReconciles: c.Reconcile.MaxConcurrent,
		BackoffBaseDelay:        c.Reconcile.Backoff.BaseDelay,
		BackoffMaxDelay:         c.Reconcile.Backoff.MaxDelay,
	}, nil
}
