// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package playbookrun

import (
	"context"
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	playbookrunv1alpha1 "github.com/playbookrun/playbook-operator/api/v1alpha1"
	"github.com/playbookrun/playbook-operator/internal/controller/playbookrun/render"
)

// JobPhase is the lifecycle phase derived from a Job's status.
type JobPhase string

const (
	JobPending   JobPhase = "Pending"
	JobRunning   JobPhase = "Running"
	JobSucceeded JobPhase = "Succeeded"
	JobFailed    JobPhase = "Failed"
)

// IsTerminal reports whether the Job has finished.
func (p JobPhase) IsTerminal() bool {
	return p == JobSucceeded || p == JobFailed
}

// observedJob is the Job that currently backs a PlaybookRun, if any.
type observedJob struct {
	Present bool
	Job     *batchv1.Job
	Phase   JobPhase
	// Message is the terminal detail of a finished Job.
	Message string
	// FinishedAt is when the Job reached its terminal phase.
	FinishedAt *metav1.Time
}

// fetchJob reads the Job for the run through the uncached reader.
// A missing Job is reported as an observedJob that is not Present.
func (r *Reconciler) fetchJob(ctx context.Context, run *playbookrunv1alpha1.PlaybookRun) (*observedJob, error) {
	job := &batchv1.Job{}
	key := client.ObjectKey{Namespace: run.Namespace, Name: render.MakeJobName(run)}
	if err := r.reader().Get(ctx, key, job); err != nil {
		if apierrors.IsNotFound(err) {
			return &observedJob{Present: false}, nil
		}
		return nil, fmt.Errorf("failed to get job %s: %w", key, err)
	}
	return observeJob(job), nil
}

func observeJob(job *batchv1.Job) *observedJob {
	observed := &observedJob{Present: true, Job: job}

	for i := range job.Status.Conditions {
		cond := &job.Status.Conditions[i]
		if cond.Status != corev1.ConditionTrue {
			continue
		}
		switch cond.Type {
		case batchv1.JobComplete:
			observed.Phase = JobSucceeded
			observed.Message = conditionMessage(cond, "Playbook completed successfully")
			observed.FinishedAt = finishedAt(job, cond)
			return observed
		case batchv1.JobFailed:
			observed.Phase = JobFailed
			observed.Message = conditionMessage(cond, "Playbook run failed")
			observed.FinishedAt = finishedAt(job, cond)
			return observed
		}
	}

	if job.Status.Active > 0 {
		observed.Phase = JobRunning
	} else {
		observed.Phase = JobPending
	}
	return observed
}

// conditionMessage formats the terminal detail as "Reason: message", falling back when the
// Job controller left both empty.
func conditionMessage(cond *batchv1.JobCondition, fallback string) string {
	switch {
	case cond.Reason != "" && cond.Message != "":
		return fmt.Sprintf("%s: %s", cond.Reason, cond.Message)
	case cond.Message != "":
		return cond.Message
	case cond.Reason != "":
		return cond.Reason
	default:
		return fallback
	}
}

func finishedAt(job *batchv1.Job, cond *batchv1.JobCondition) *metav1.Time {
	if job.Status.CompletionTime != nil {
		return job.Status.CompletionTime.DeepCopy()
	}
	if !cond.LastTransitionTime.IsZero() {
		t := cond.LastTransitionTime
		return &t
	}
	now := metav1.Now()
	return &now
}
