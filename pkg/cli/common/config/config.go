// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"github.com/playbookrun/playbook-operator/pkg/cli/common/constants"
)

// CLIConfig describes the root command of the CLI.
type CLIConfig struct {
	Name             string
	ShortDescription string
	LongDescription  string
}

func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		Name:             constants.CLIName,
		ShortDescription: "Work with PlaybookRun manifests offline",
		LongDescription: `playbookctl renders and validates PlaybookRun manifests with the same code
the playbook operator runs in the cluster.`,
	}
}
