// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package labels

// This file contains all the labels that the operator stamps on the Kubernetes objects it creates.

const (
	// LabelKeyPlaybookRunName identifies the PlaybookRun a Job was created for.
	LabelKeyPlaybookRunName = "playbookrun.dev/name"

	// LabelKeyPlaybookRunUID tracks the UID of the owning PlaybookRun so that a Job left behind by a
	// deleted-and-recreated PlaybookRun of the same name can be told apart.
	LabelKeyPlaybookRunUID = "playbookrun.dev/uid"

	// LabelKeyManagedBy identifies which controller manages the lifecycle of a resource.
	LabelKeyManagedBy = "playbookrun.dev/managed-by"

	LabelKeyAppName      = "app.kubernetes.io/name"
	LabelKeyAppComponent = "app.kubernetes.io/component"
	LabelKeyAppManagedBy = "app.kubernetes.io/managed-by"

	LabelValueManagedBy    = "playbookrun-controller"
	LabelValueAppName      = "ansible-playbook"
	LabelValueAppComponent = "playbook-run"
	LabelValueAppManagedBy = "playbook-operator"
)
