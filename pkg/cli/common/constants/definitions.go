// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package constants

import (
	"fmt"
)

// CLIName is the binary name used in examples and help output.
const CLIName = "playbookctl"

type Command struct {
	Use     string
	Aliases []string
	Short   string
	Long    string
	Example string
}

var (
	Version = Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version information.",
	}

	Render = Command{
		Use:     "render",
		Aliases: []string{"template"},
		Short:   "Render the Job created for a PlaybookRun",
		Long: `Render the Kubernetes Job the operator creates for each PlaybookRun in a manifest.
No cluster access is needed; the output can be piped to kubectl.`,
		Example: fmt.Sprintf(`  # Render the Job for a PlaybookRun manifest
  %[1]s render -f run.yaml

  # Render with a custom runner image
  %[1]s render -f run.yaml --runner-image registry.example.com/ansible-runner:2.4

  # Read the manifest from stdin
  cat run.yaml | %[1]s render -f -`, CLIName),
	}

	Validate = Command{
		Use:   "validate",
		Short: "Validate PlaybookRun manifests",
		Long:  "Validate every PlaybookRun in a manifest and print each problem found.",
		Example: fmt.Sprintf(`  # Validate a manifest
  %[1]s validate -f run.yaml`, CLIName),
	}
)
