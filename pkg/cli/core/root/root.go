// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package root

import (
	"github.com/spf13/cobra"

	"github.com/playbookrun/playbook-operator/internal/logging"
	"github.com/playbookrun/playbook-operator/pkg/cli/cmd/render"
	"github.com/playbookrun/playbook-operator/pkg/cli/cmd/validate"
	"github.com/playbookrun/playbook-operator/pkg/cli/cmd/version"
	"github.com/playbookrun/playbook-operator/pkg/cli/common/config"
	"github.com/playbookrun/playbook-operator/pkg/cli/flags"
)

// BuildRootCmd assembles the root command with all subcommands
func BuildRootCmd(config *config.CLIConfig) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   config.Name,
		Short: config.ShortDescription,
		Long:  config.LongDescription,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString(flags.LogLevel.Name)
			format, _ := cmd.Flags().GetString(flags.LogFormat.Name)
			logger := logging.New(logging.Config{
				Level:  level,
				Format: format,
				Output: cmd.ErrOrStderr(),
			})
			cmd.SetContext(logging.NewContext(cmd.Context(), logger))
			return nil
		},
	}

	flags.AddPersistentFlags(rootCmd, flags.LogLevel, flags.LogFormat)

	rootCmd.AddCommand(
		render.NewRenderCmd(),
		validate.NewValidateCmd(),
		version.NewVersionCmd(),
	)

	return rootCmd
}
