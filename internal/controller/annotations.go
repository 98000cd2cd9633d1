// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package controller

// This file contains all the annotations that are used to store operator specific metadata in the Kubernetes objects.

const (
	// AnnotationKeySpecHash records the hash of the rendered pod template a Job was created from.
	// It lets the controller notice that a PlaybookRun and its Job no longer agree without ever
	// mutating the Job.
	AnnotationKeySpecHash = "playbookrun.dev/spec-hash"

	// AnnotationKeyPlaybook records the playbook path on the Job for kubectl describe readability.
	AnnotationKeyPlaybook = "playbookrun.dev/playbook"
)
