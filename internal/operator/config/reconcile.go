// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	"github.com/playbookrun/playbook-operator/internal/config"
	"github.com/playbookrun/playbook-operator/internal/controller/playbookrun"
)

const maxConcurrentReconciles = 1024

// ReconcileConfig tunes the PlaybookRun reconcile loop.
type ReconcileConfig struct {
	// Timeout bounds a single reconcile. Zero disables the bound.
	Timeout time.Duration `koanf:"timeout"`
	// MaxConcurrent is the number of distinct PlaybookRuns reconciled in parallel.
	MaxConcurrent int `koanf:"max_concurrent"`
	// StatusPollInterval is how often a running PlaybookRun is re-checked.
	StatusPollInterval time.Duration `koanf:"status_poll_interval"`
	// Backoff bounds the retry delay after a failed reconcile.
	Backoff BackoffConfig `koanf:"backoff"`
}

// BackoffConfig defines the per-item exponential retry backoff.
type BackoffConfig struct {
	BaseDelay time.Duration `koanf:"base_delay"`
	MaxDelay  time.Duration `koanf:"max_delay"`
}

// ReconcileDefaults returns the default reconcile configuration.
func ReconcileDefaults() ReconcileConfig {
	return ReconcileConfig{
		Timeout:            2 * time.Minute,
		MaxConcurrent:      4,
		StatusPollInterval: playbookrun.DefaultStatusPollInterval,
		Backoff: BackoffConfig{
			BaseDelay: playbookrun.DefaultBackoffBaseDelay,
			MaxDelay:  playbookrun.DefaultBackoffMaxDelay,
		},
	}
}

// Validate validates the reconcile configuration.
func (c *ReconcileConfig) Validate(path *config.Path) config.ValidationErrors {
	var errs config.ValidationErrors

	if err := config.MustBeNonNegative(path.Child("timeout"), c.Timeout); err != nil {
		errs = append(errs, err)
	}

	if err := config.MustBeInRange(path.Child("max_concurrent"), c.MaxConcurrent, 1, maxConcurrentReconciles); err != nil {
		errs = append(errs, err)
	}

	if err := config.MustBeGreaterThan(path.Child("status_poll_interval"), c.StatusPollInterval, 0); err != nil {
		errs = append(errs, err)
	}

	backoff := path.Child("backoff")
	if err := config.MustBeGreaterThan(backoff.Child("base_delay"), c.Backoff.BaseDelay, 0); err != nil {
		errs = append(errs, err)
	} else if err := config.MustBeLessThanOrEqual(backoff.Child("base_delay"), c.Backoff.BaseDelay, c.Backoff.MaxDelay); err != nil {
		errs = append(errs, err)
	}

	return errs
}
