// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"strings"

	playbookrunv1alpha1 "github.com/playbookrun/playbook-operator/api/v1alpha1"
	"github.com/playbookrun/playbook-operator/pkg/hash"
)

const (
	// MaxJobNameLength keeps the Job name usable as the value of the job-name label
	// that the Job controller stamps on its pods.
	MaxJobNameLength = 63
	JobNameSuffix    = "-job"
)

// MakeJobName returns the deterministic name of the Job that executes the given run.
// Names that would exceed MaxJobNameLength are truncated and disambiguated with a hash
// of the full run name.
func MakeJobName(run *playbookrunv1alpha1.PlaybookRun) string {
	return makeJobName(run.Name)
}

func makeJobName(runName string) string {
	name := runName + JobNameSuffix
	if len(name) <= MaxJobNameLength {
		return name
	}

	suffix := fmt.Sprintf("-%s%s", hash.ComputeHash(runName, nil), JobNameSuffix)
	prefix := runName[:MaxJobNameLength-len(suffix)]
	// A name must end with an alphanumeric character before the suffix is joined.
	prefix = strings.TrimRight(prefix, "-.")
	return prefix + suffix
}
