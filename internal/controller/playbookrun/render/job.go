// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

// Package render builds the desired Job for a PlaybookRun.
// Everything here is a pure function of its input so the controller and the CLI
// produce byte-identical Jobs for the same request.
package render

import (
	"fmt"
	"strconv"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	playbookrunv1alpha1 "github.com/playbookrun/playbook-operator/api/v1alpha1"
	"github.com/playbookrun/playbook-operator/internal/controller"
	"github.com/playbookrun/playbook-operator/internal/labels"
	"github.com/playbookrun/playbook-operator/pkg/hash"
)

const (
	WorkspaceVolumeName = "workspace"
	WorkspaceMountPath  = "/workspace"
	SourceLinkName      = "source"
	SourceDir           = WorkspaceMountPath + "/" + SourceLinkName

	SourceFetchContainerName = "source-fetch"
	RunnerContainerName      = "playbook-runner"
	RunnerCommand            = "ansible-playbook"

	DefaultSourceFetchImage = "registry.k8s.io/git-sync/git-sync:v4.4.0"
	DefaultRunnerImage      = "quay.io/ansible/ansible-runner:latest"
)

// Options are the cluster-wide settings applied to every rendered Job.
type Options struct {
	SourceFetchImage        string
	RunnerImage             string
	ImagePullPolicy         corev1.PullPolicy
	TTLSecondsAfterFinished *int32
	ServiceAccountName      string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		SourceFetchImage: DefaultSourceFetchImage,
		RunnerImage:      DefaultRunnerImage,
		ImagePullPolicy:  corev1.PullIfNotPresent,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.SourceFetchImage == "" {
		o.SourceFetchImage = defaults.SourceFetchImage
	}
	if o.RunnerImage == "" {
		o.RunnerImage = defaults.RunnerImage
	}
	if o.ImagePullPolicy == "" {
		o.ImagePullPolicy = defaults.ImagePullPolicy
	}
	return o
}

// Input is everything the Job is derived from.
type Input struct {
	PlaybookRun *playbookrunv1alpha1.PlaybookRun
	Options     Options
}

// Job renders the Job that executes the given PlaybookRun.
// It returns a *ValidationError when the spec is missing a field the Job needs.
// The returned Job is controlled by the PlaybookRun and carries the hash of its spec
// under controller.AnnotationKeySpecHash.
func Job(in Input) (*batchv1.Job, error) {
	run := in.PlaybookRun
	if run == nil {
		return nil, fmt.Errorf("playbook run is required to render a job")
	}
	if err := ValidateSpec(&run.Spec); err != nil {
		return nil, err
	}
	opts := in.Options.withDefaults()

	jobLabels := MakeJobLabels(run)
	job := &batchv1.Job{
		TypeMeta: metav1.TypeMeta{
			APIVersion: batchv1.SchemeGroupVersion.String(),
			Kind:       "Job",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      MakeJobName(run),
			Namespace: run.Namespace,
			Labels:    jobLabels,
			Annotations: map[string]string{
				controller.AnnotationKeyPlaybook: run.Spec.Playbook,
			},
			OwnerReferences: []metav1.OwnerReference{MakeOwnerReference(run)},
		},
		Spec: batchv1.JobSpec{
			Parallelism:             ptr.To[int32](1),
			Completions:             ptr.To[int32](1),
			BackoffLimit:            ptr.To[int32](0),
			TTLSecondsAfterFinished: opts.TTLSecondsAfterFinished,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: copyLabels(jobLabels),
				},
				Spec: corev1.PodSpec{
					RestartPolicy:      corev1.RestartPolicyNever,
					ServiceAccountName: opts.ServiceAccountName,
					InitContainers:     []corev1.Container{makeSourceFetchContainer(run, opts)},
					Containers:         []corev1.Container{makeRunnerContainer(run, opts)},
					Volumes: []corev1.Volume{
						{
							Name: WorkspaceVolumeName,
							VolumeSource: corev1.VolumeSource{
								EmptyDir: &corev1.EmptyDirVolumeSource{},
							},
						},
					},
				},
			},
		},
	}

	job.Annotations[controller.AnnotationKeySpecHash] = SpecHash(&job.Spec)
	return job, nil
}

// SpecHash returns the hash stamped on a Job for the given Job spec.
// A live Job whose annotation differs from the hash of the current render has drifted.
func SpecHash(spec *batchv1.JobSpec) string {
	return hash.ComputeHash(spec, nil)
}

// MakeOwnerReference returns the controller reference that ties a Job to its PlaybookRun.
// Deleting the PlaybookRun garbage collects the Job and, through it, its pods.
func MakeOwnerReference(run *playbookrunv1alpha1.PlaybookRun) metav1.OwnerReference {
	gvk := playbookrunv1alpha1.GroupVersion.WithKind("PlaybookRun")
	return metav1.OwnerReference{
		APIVersion:         gvk.GroupVersion().String(),
		Kind:               gvk.Kind,
		Name:               run.Name,
		UID:                run.UID,
		Controller:         ptr.To(true),
		BlockOwnerDeletion: ptr.To(true),
	}
}

// MakeJobLabels returns the labels set on the Job and its pod template.
func MakeJobLabels(run *playbookrunv1alpha1.PlaybookRun) map[string]string {
	return map[string]string{
		labels.LabelKeyPlaybookRunName: run.Name,
		labels.LabelKeyPlaybookRunUID:  string(run.UID),
		labels.LabelKeyManagedBy:       labels.LabelValueManagedBy,
		labels.LabelKeyAppName:         labels.LabelValueAppName,
		labels.LabelKeyAppComponent:    labels.LabelValueAppComponent,
		labels.LabelKeyAppManagedBy:    labels.LabelValueAppManagedBy,
	}
}

// RunnerArgs returns the ansible-playbook arguments for the spec. The playbook path is last.
func RunnerArgs(spec *playbookrunv1alpha1.PlaybookRunSpec) []string {
	limit := spec.Limit
	if limit == "" {
		limit = playbookrunv1alpha1.DefaultLimit
	}

	args := []string{"--inventory", spec.Inventory, "--limit", limit}
	if spec.Forks != nil {
		args = append(args, "--forks", strconv.FormatInt(int64(*spec.Forks), 10))
	}
	if spec.DryRun {
		args = append(args, "--check")
	}
	return append(args, spec.Playbook)
}

func makeSourceFetchContainer(run *playbookrunv1alpha1.PlaybookRun, opts Options) corev1.Container {
	return corev1.Container{
		Name:            SourceFetchContainerName,
		Image:           opts.SourceFetchImage,
		ImagePullPolicy: opts.ImagePullPolicy,
		Env: []corev1.EnvVar{
			{Name: "GITSYNC_REPO", Value: run.Spec.Repo},
			{Name: "GITSYNC_ROOT", Value: WorkspaceMountPath},
			{Name: "GITSYNC_LINK", Value: SourceLinkName},
			{Name: "GITSYNC_ONE_TIME", Value: "true"},
			{Name: "GITSYNC_DEPTH", Value: "1"},
		},
		VolumeMounts: []corev1.VolumeMount{workspaceMount()},
	}
}

func makeRunnerContainer(run *playbookrunv1alpha1.PlaybookRun, opts Options) corev1.Container {
	return corev1.Container{
		Name:            RunnerContainerName,
		Image:           opts.RunnerImage,
		ImagePullPolicy: opts.ImagePullPolicy,
		Command:         []string{RunnerCommand},
		Args:            RunnerArgs(&run.Spec),
		WorkingDir:      SourceDir,
		Env: []corev1.EnvVar{
			{Name: "ANSIBLE_FORCE_COLOR", Value: "true"},
			{Name: "PY_COLORS", Value: "1"},
		},
		VolumeMounts: []corev1.VolumeMount{workspaceMount()},
	}
}

func workspaceMount() corev1.VolumeMount {
	return corev1.VolumeMount{
		Name:      WorkspaceVolumeName,
		MountPath: WorkspaceMountPath,
	}
}

func copyLabels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
