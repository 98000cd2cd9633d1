// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package playbookrun

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	playbookrunv1alpha1 "github.com/playbookrun/playbook-operator/api/v1alpha1"
)

var (
	jobsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playbookrun_jobs_created_total",
		Help: "Number of Jobs created for PlaybookRuns.",
	})

	completionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "playbookrun_completions_total",
		Help: "Number of PlaybookRuns that reached a terminal phase, by phase.",
	}, []string{"phase"})

	validationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playbookrun_validation_failures_total",
		Help: "Number of PlaybookRuns rejected because their spec was invalid.",
	})
)

func init() {
	metrics.Registry.MustRegister(jobsCreatedTotal, completionsTotal, validationFailuresTotal)
}

// recordPhaseTransition counts a run once, when its persisted phase first becomes terminal.
func recordPhaseTransition(from, to playbookrunv1alpha1.PlaybookRunPhase) {
	if from.IsTerminal() || !to.IsTerminal() {
		return
	}
	completionsTotal.WithLabelValues(string(to)).Inc()
}
