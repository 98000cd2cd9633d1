// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package flags

import (
	"github.com/spf13/cobra"
)

type Flag struct {
	Name      string
	Shorthand string
	Usage     string
	Alias     string
	Type      string
}

var (
	File = Flag{
		Name:      "file",
		Shorthand: "f",
		Usage:     "Path to a PlaybookRun manifest, or - to read from stdin",
	}

	SourceFetchImage = Flag{
		Name:  "source-fetch-image",
		Usage: "Image of the init container that fetches the playbook repository",
	}

	RunnerImage = Flag{
		Name:  "runner-image",
		Usage: "Image of the container that runs ansible-playbook",
	}

	LogLevel = Flag{
		Name:  "log-level",
		Usage: "Log level (debug, info, warn, error)",
	}

	LogFormat = Flag{
		Name:  "log-format",
		Usage: "Log format (text, json)",
	}
)

// AddFlags adds the specified flags to the given command.
func AddFlags(cmd *cobra.Command, flags ...Flag) {
	for _, flag := range flags {
		if flag.Type == "bool" {
			cmd.Flags().BoolP(flag.Name, flag.Shorthand, false, flag.Usage)
		} else {
			// Default to string type
			cmd.Flags().StringP(flag.Name, flag.Shorthand, "", flag.Usage)
		}
	}
}

// AddPersistentFlags adds the specified flags to the command and all of its subcommands.
func AddPersistentFlags(cmd *cobra.Command, flags ...Flag) {
	for _, flag := range flags {
		if flag.Type == "bool" {
			cmd.PersistentFlags().BoolP(flag.Name, flag.Shorthand, false, flag.Usage)
		} else {
			cmd.PersistentFlags().StringP(flag.Name, flag.Shorthand, "", flag.Usage)
		}
	}
}
