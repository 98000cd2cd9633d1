// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"

	"github.com/playbookrun/playbook-operator/pkg/cli/common/config"
	"github.com/playbookrun/playbook-operator/pkg/cli/core/root"
)

func main() {
	rootCmd := root.BuildRootCmd(config.DefaultConfig())
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
