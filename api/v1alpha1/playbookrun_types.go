// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DefaultLimit is the host pattern used when spec.limit is not set.
const DefaultLimit = "all"

// PlaybookRunSpec defines the desired state of PlaybookRun.
// A PlaybookRun is a one-shot request to clone a repository and run one playbook from it.
// +kubebuilder:validation:XValidation:rule="self == oldSelf",message="spec is immutable"
type PlaybookRunSpec struct {
	// Repo is the URL of the git repository that contains the playbook.
	// +required
	// +kubebuilder:validation:MinLength=1
	Repo string `json:"repo" validate:"notblank"`

	// Playbook is the path of the playbook, relative to the repository root.
	// +required
	// +kubebuilder:validation:MinLength=1
	Playbook string `json:"playbook" validate:"notblank"`

	// Inventory is the inventory path passed to the playbook runner.
	// +required
	// +kubebuilder:validation:MinLength=1
	Inventory string `json:"inventory" validate:"notblank"`

	// Limit restricts the run to hosts matching the pattern.
	// Defaults to all hosts in the inventory.
	// +optional
	// +kubebuilder:default=all
	Limit string `json:"limit,omitempty"`

	// Forks is the number of parallel processes used by the runner.
	// When unset the runner default applies.
	// +optional
	// +kubebuilder:validation:Minimum=1
	Forks *int32 `json:"forks,omitempty" validate:"omitempty,min=1"`

	// DryRun runs the playbook in check mode.
	// +optional
	DryRun bool `json:"dryRun,omitempty"`
}

// PlaybookRunPhase is a coarse summary of where a PlaybookRun is in its lifecycle.
// +kubebuilder:validation:Enum=Pending;Running;Succeeded;Failed
type PlaybookRunPhase string

const (
	// PlaybookRunPending means the Job was created but none of its pods have started yet.
	PlaybookRunPending PlaybookRunPhase = "Pending"
	// PlaybookRunRunning means the Job has an active pod.
	PlaybookRunRunning PlaybookRunPhase = "Running"
	// PlaybookRunSucceeded means the playbook completed with a zero exit code.
	PlaybookRunSucceeded PlaybookRunPhase = "Succeeded"
	// PlaybookRunFailed means the source fetch or the playbook failed, or the request was rejected.
	PlaybookRunFailed PlaybookRunPhase = "Failed"
)

// IsTerminal reports whether no further transition happens from this phase.
func (p PlaybookRunPhase) IsTerminal() bool {
	return p == PlaybookRunSucceeded || p == PlaybookRunFailed
}

// PlaybookRunStatus defines the observed state of PlaybookRun.
type PlaybookRunStatus struct {
	// Phase is the current execution state of the run.
	// +optional
	Phase PlaybookRunPhase `json:"phase,omitempty"`

	// RunCount is the number of Jobs launched for this PlaybookRun.
	// +optional
	RunCount int32 `json:"runCount,omitempty"`

	// JobName is the name of the Job that executes this run.
	// +optional
	JobName string `json:"jobName,omitempty"`

	// Message carries the exit detail of a finished run or the reason it was rejected.
	// +optional
	Message string `json:"message,omitempty"`

	// StartTime is when the Job started running.
	// +optional
	StartTime *metav1.Time `json:"startTime,omitempty"`

	// CompletionTime is when the Job reached a terminal phase.
	// +optional
	CompletionTime *metav1.Time `json:"completionTime,omitempty"`

	// ObservedGeneration is the generation last processed by the controller.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// Conditions represent the latest available observations of the run.
	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=pbr
// +kubebuilder:printcolumn:name="Playbook",type=string,JSONPath=`.spec.playbook`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Runs",type=integer,JSONPath=`.status.runCount`
// +kubebuilder:printcolumn:name="Job",type=string,JSONPath=`.status.jobName`,priority=1
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// PlaybookRun is the Schema for the playbookruns API
type PlaybookRun struct {
	metav1.TypeMeta `json:",inline"`

	// metadata is a standard object metadata
	// +optional
	metav1.ObjectMeta `json:"metadata,omitempty,omitzero"`

	// spec defines the desired state of PlaybookRun
	// +required
	Spec PlaybookRunSpec `json:"spec"`

	// status defines the observed state of PlaybookRun
	// +optional
	Status PlaybookRunStatus `json:"status,omitempty,omitzero"`
}

// +kubebuilder:object:root=true

// PlaybookRunList contains a list of PlaybookRun
type PlaybookRunList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []PlaybookRun `json:"items"`
}

// GetConditions returns the conditions from the playbookrun status
func (p *PlaybookRun) GetConditions() []metav1.Condition {
	return p.Status.Conditions
}

// SetConditions sets the conditions in the playbookrun status
func (p *PlaybookRun) SetConditions(conditions []metav1.Condition) {
	p.Status.Conditions = conditions
}

func init() {
	SchemeBuilder.Register(&PlaybookRun{}, &PlaybookRunList{})
}
