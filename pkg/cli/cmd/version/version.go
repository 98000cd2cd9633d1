// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/playbookrun/playbook-operator/internal/version"
	"github.com/playbookrun/playbook-operator/pkg/cli/common/builder"
	"github.com/playbookrun/playbook-operator/pkg/cli/common/constants"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return (&builder.CommandBuilder{
		Command: constants.Version,
		RunE: func(fg *builder.FlagGetter) error {
			out := fg.Command().OutOrStdout()
			v := version.Get()
			fmt.Fprintln(out, "Client:")
			fmt.Fprintf(out, "  Version:      %s\n", v.Version)
			fmt.Fprintf(out, "  Git Revision: %s\n", v.GitRevision)
			fmt.Fprintf(out, "  Build Time:   %s\n", v.BuildTime)
			fmt.Fprintf(out, "  Go Version:   %s %s/%s\n", v.GoVersion, v.GoOS, v.GoArch)
			return nil
		},
	}).Build()
}
