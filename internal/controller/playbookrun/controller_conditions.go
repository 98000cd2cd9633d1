// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package playbookrun

import (
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	playbookrunv1alpha1 "github.com/playbookrun/playbook-operator/api/v1alpha1"
	"github.com/playbookrun/playbook-operator/internal/controller"
)

const (
	ConditionJobCreated controller.ConditionType = "JobCreated"
	ConditionJobRunning controller.ConditionType = "JobRunning"
	ConditionCompleted  controller.ConditionType = "Completed"
	ConditionSucceeded  controller.ConditionType = "Succeeded"
	ConditionSpecDrift  controller.ConditionType = "SpecDrift"
)

const (
	ReasonJobCreated       controller.ConditionReason = "JobCreated"
	ReasonJobPending       controller.ConditionReason = "JobPending"
	ReasonJobRunning       controller.ConditionReason = "JobRunning"
	ReasonJobSucceeded     controller.ConditionReason = "JobSucceeded"
	ReasonJobFailed        controller.ConditionReason = "JobFailed"
	ReasonJobNotFound      controller.ConditionReason = "JobNotFound"
	ReasonInvalidSpec      controller.ConditionReason = "InvalidSpec"
	ReasonJobRejected      controller.ConditionReason = "JobRejected"
	ReasonSpecHashMismatch controller.ConditionReason = "SpecHashMismatch"
)

const (
	EventReasonJobCreated   = "JobCreated"
	EventReasonInvalidSpec  = "InvalidSpec"
	EventReasonRunSucceeded = "RunSucceeded"
	EventReasonRunFailed    = "RunFailed"
	EventReasonJobNotFound  = "JobNotFound"
	EventReasonJobRejected  = "JobRejected"
)

// runEvent is an event held back until the status change it reports has been persisted.
type runEvent struct {
	eventType string
	reason    string
	message   string
}

func newRunEvent(eventType, reason, format string, args ...any) *runEvent {
	return &runEvent{eventType: eventType, reason: reason, message: fmt.Sprintf(format, args...)}
}

func setJobCreatedCondition(run *playbookrunv1alpha1.PlaybookRun, jobName string) {
	controller.SetCondition(run, ConditionJobCreated, metav1.ConditionTrue, ReasonJobCreated,
		fmt.Sprintf("Job %s was created", jobName))
}

func setJobPendingCondition(run *playbookrunv1alpha1.PlaybookRun) {
	controller.SetCondition(run, ConditionJobRunning, metav1.ConditionFalse, ReasonJobPending,
		"Waiting for the Job pod to start")
	controller.SetCondition(run, ConditionCompleted, metav1.ConditionFalse, ReasonJobPending,
		"Playbook has not completed yet")
}

func setJobRunningCondition(run *playbookrunv1alpha1.PlaybookRun) {
	controller.SetCondition(run, ConditionJobRunning, metav1.ConditionTrue, ReasonJobRunning,
		"Playbook is running")
	controller.SetCondition(run, ConditionCompleted, metav1.ConditionFalse, ReasonJobRunning,
		"Playbook has not completed yet")
}

func setRunSucceededCondition(run *playbookrunv1alpha1.PlaybookRun, message string) {
	controller.SetCondition(run, ConditionJobRunning, metav1.ConditionFalse, ReasonJobSucceeded,
		"Job has finished")
	controller.SetCondition(run, ConditionSucceeded, metav1.ConditionTrue, ReasonJobSucceeded, message)
	controller.SetCondition(run, ConditionCompleted, metav1.ConditionTrue, ReasonJobSucceeded, message)
}

func setRunFailedCondition(run *playbookrunv1alpha1.PlaybookRun, message string) {
	setFailed(run, ReasonJobFailed, message)
	controller.SetCondition(run, ConditionJobRunning, metav1.ConditionFalse, ReasonJobFailed,
		"Job has finished")
}

func markJobNotFound(run *playbookrunv1alpha1.PlaybookRun, jobName string) {
	message := fmt.Sprintf("Job %s was deleted before it reported completion", jobName)
	setFailed(run, ReasonJobNotFound, message)
	controller.SetCondition(run, ConditionJobRunning, metav1.ConditionFalse, ReasonJobNotFound, message)
	run.Status.Phase = playbookrunv1alpha1.PlaybookRunFailed
	run.Status.Message = message
	now := metav1.Now()
	run.Status.CompletionTime = &now
}

// markJobRejected records a Job the API server refused as invalid. Resubmitting the same
// object cannot succeed, so the run fails without a Job.
func markJobRejected(run *playbookrunv1alpha1.PlaybookRun, jobName string, err error) {
	message := fmt.Sprintf("Job %s was rejected: %v", jobName, err)
	setFailed(run, ReasonJobRejected, message)
	run.Status.Phase = playbookrunv1alpha1.PlaybookRunFailed
	run.Status.Message = message
	now := metav1.Now()
	run.Status.CompletionTime = &now
}

func markInvalidSpec(run *playbookrunv1alpha1.PlaybookRun, err error) {
	setFailed(run, ReasonInvalidSpec, err.Error())
	run.Status.Phase = playbookrunv1alpha1.PlaybookRunFailed
	run.Status.Message = err.Error()
	now := metav1.Now()
	run.Status.CompletionTime = &now
}

func setFailed(run *playbookrunv1alpha1.PlaybookRun, reason controller.ConditionReason, message string) {
	controller.SetCondition(run, ConditionSucceeded, metav1.ConditionFalse, reason, message)
	controller.SetCondition(run, ConditionCompleted, metav1.ConditionTrue, reason, message)
}

// checkSpecDrift flags a live Job that no longer matches what the run would render today.
// The Job is left untouched; the condition only reports the difference.
func checkSpecDrift(run *playbookrunv1alpha1.PlaybookRun, live, desired *batchv1.Job) {
	liveHash := controller.GetSpecHash(live)
	desiredHash := controller.GetSpecHash(desired)
	if liveHash != "" && liveHash != desiredHash {
		controller.SetCondition(run, ConditionSpecDrift, metav1.ConditionTrue, ReasonSpecHashMismatch,
			fmt.Sprintf("Job %s was rendered from a different specification (hash %s, want %s)",
				live.Name, liveHash, desiredHash))
		return
	}
	controller.RemoveCondition(run, ConditionSpecDrift)
}
