// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"github.com/spf13/cobra"

	"github.com/playbookrun/playbook-operator/internal/playbookctl"
	"github.com/playbookrun/playbook-operator/pkg/cli/common/builder"
	"github.com/playbookrun/playbook-operator/pkg/cli/common/constants"
	"github.com/playbookrun/playbook-operator/pkg/cli/flags"
)

func NewValidateCmd() *cobra.Command {
	cmd := (&builder.CommandBuilder{
		Command: constants.Validate,
		Flags:   []flags.Flag{flags.File},
		RunE: func(fg *builder.FlagGetter) error {
			cmd := fg.Command()
			return playbookctl.Validate(cmd.Context(), playbookctl.ValidateParams{
				FilePath: fg.GetString(flags.File),
				Stdin:    cmd.InOrStdin(),
				Out:      cmd.OutOrStdout(),
			})
		},
	}).Build()
	_ = cmd.MarkFlagRequired(flags.File.Name)
	return cmd
}
