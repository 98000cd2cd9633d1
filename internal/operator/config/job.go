// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/playbookrun/playbook-operator/internal/cmdutil"
	"github.com/playbookrun/playbook-operator/internal/config"
	"github.com/playbookrun/playbook-operator/internal/controller/playbookrun/render"
)

var pullPolicies = []string{
	string(corev1.PullAlways),
	string(corev1.PullIfNotPresent),
	string(corev1.PullNever),
}

// JobConfig defines the cluster wide settings applied to every rendered Job.
type JobConfig struct {
	// SourceFetchImage is the git-sync image of the init container.
	SourceFetchImage string `koanf:"source_fetch_image"`
	// RunnerImage is the image that provides ansible-playbook.
	RunnerImage string `koanf:"runner_image"`
	// ImagePullPolicy applies to both containers.
	ImagePullPolicy string `koanf:"image_pull_policy"`
	// TTLAfterFinished removes finished Jobs after this long, e.g. "1d" or "6h".
	// Empty keeps finished Jobs until their PlaybookRun is deleted. When set it must be at
	// least reconcile.status_poll_interval, otherwise a finished Job can be removed before
	// its outcome is recorded.
	TTLAfterFinished string `koanf:"ttl_after_finished"`
	// ServiceAccountName runs the Job pods under this service account.
	ServiceAccountName string `koanf:"service_account_name"`
}

// JobDefaults returns the default Job configuration.
func JobDefaults() JobConfig {
	defaults := render.DefaultOptions()
	return JobConfig{
		SourceFetchImage: defaults.SourceFetchImage,
		RunnerImage:      defaults.RunnerImage,
		ImagePullPolicy:  string(defaults.ImagePullPolicy),
	}
}

// Validate validates the Job configuration. minTTL is the shortest TTL that still lets the
// reconciler observe a finished Job.
func (c *JobConfig) Validate(path *config.Path, minTTL time.Duration) config.ValidationErrors {
	var errs config.ValidationErrors

	if c.SourceFetchImage == "" {
		errs = append(errs, config.Required(path.Child("source_fetch_image")))
	}

	if c.RunnerImage == "" {
		errs = append(errs, config.Required(path.Child("runner_image")))
	}

	if err := config.MustBeOneOf(path.Child("image_pull_policy"), c.ImagePullPolicy, pullPolicies); err != nil {
		errs = append(errs, err)
	}

	if err := validateTTL(path.Child("ttl_after_finished"), c.TTLAfterFinished, minTTL); err != nil {
		errs = append(errs, err)
	}

	return errs
}

// ToRenderOptions converts the Job configuration into render options.
func (c *JobConfig) ToRenderOptions() (render.Options, error) {
	ttl, err := cmdutil.ParseTTLSeconds(c.TTLAfterFinished)
	if err != nil {
		return render.Options{}, fmt.Errorf("job.ttl_after_finished: %w", err)
	}

	return render.Options{
		SourceFetchImage:        c.SourceFetchImage,
		RunnerImage:             c.RunnerImage,
		ImagePullPolicy:         corev1.PullPolicy(c.ImagePullPolicy),
		TTLSecondsAfterFinished: ttl,
		ServiceAccountName:      c.ServiceAccountName,
	}, nil
}

func validateTTL(path *config.Path, value string, minTTL time.Duration) *config.FieldError {
	ttl, err := cmdutil.ParseTTLSeconds(value)
	if err != nil {
		return config.Invalid(path, err.Error())
	}
	if ttl == nil {
		return nil
	}

	minTTL = max(minTTL, time.Second)
	if time.Duration(*ttl)*time.Second < minTTL {
		return config.Invalid(path, fmt.Sprintf(
			"must be at least %s so finished Jobs are observed before they are deleted", minTTL))
	}
	return nil
}
