// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"github.com/spf13/cobra"

	"github.com/playbookrun/playbook-operator/internal/playbookctl"
	"github.com/playbookrun/playbook-operator/pkg/cli/common/builder"
	"github.com/playbookrun/playbook-operator/pkg/cli/common/constants"
	"github.com/playbookrun/playbook-operator/pkg/cli/flags"
)

func NewRenderCmd() *cobra.Command {
	cmd := (&builder.CommandBuilder{
		Command: constants.Render,
		Flags:   []flags.Flag{flags.File, flags.SourceFetchImage, flags.RunnerImage},
		RunE: func(fg *builder.FlagGetter) error {
			cmd := fg.Command()
			return playbookctl.Render(cmd.Context(), playbookctl.RenderParams{
				FilePath:         fg.GetString(flags.File),
				SourceFetchImage: fg.GetString(flags.SourceFetchImage),
				RunnerImage:      fg.GetString(flags.RunnerImage),
				Stdin:            cmd.InOrStdin(),
				Out:              cmd.OutOrStdout(),
			})
		},
	}).Build()
	_ = cmd.MarkFlagRequired(flags.File.Name)
	return cmd
}
