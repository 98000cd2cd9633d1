// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package builder

import (
	"github.com/spf13/cobra"

	"github.com/playbookrun/playbook-operator/pkg/cli/common/constants"
	"github.com/playbookrun/playbook-operator/pkg/cli/flags"
)

// CommandBuilder assembles a cobra command from its definition, its flags and a run function.
type CommandBuilder struct {
	Command constants.Command
	Flags   []flags.Flag
	PreRunE func(cmd *cobra.Command, args []string) error
	RunE    func(fg *FlagGetter) error
}

// Build returns the cobra command.
func (b *CommandBuilder) Build() *cobra.Command {
	cmd := &cobra.Command{
		Use:     b.Command.Use,
		Aliases: b.Command.Aliases,
		Short:   b.Command.Short,
		Long:    b.Command.Long,
		Example: b.Command.Example,
		PreRunE: b.PreRunE,
	}

	flags.AddFlags(cmd, b.Flags...)

	if b.RunE != nil {
		cmd.RunE = func(cmd *cobra.Command, _ []string) error {
			return b.RunE(&FlagGetter{cmd: cmd})
		}
	}
	return cmd
}

// FlagGetter gives a run function typed access to the flags and arguments of its command.
type FlagGetter struct {
	cmd *cobra.Command
}

// GetString returns the value of a string flag, or the empty string when the flag is not registered.
func (fg *FlagGetter) GetString(flag flags.Flag) string {
	v, _ := fg.cmd.Flags().GetString(flag.Name)
	return v
}

// Command returns the cobra command being executed.
func (fg *FlagGetter) Command() *cobra.Command {
	return fg.cmd
}
