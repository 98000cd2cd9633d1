// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package playbookctl

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/playbookrun/playbook-operator/internal/controller/playbookrun/render"
	"github.com/playbookrun/playbook-operator/internal/logging"
)

// ValidateParams defines the parameters of the validate command.
type ValidateParams struct {
	FilePath string
	Stdin    io.Reader
	Out      io.Writer
}

// Validate runs the PlaybookRun validation gate against every document in the file
// and prints each problem found. It fails when at least one document is invalid.
func Validate(ctx context.Context, params ValidateParams) error {
	logger := logging.FromContext(ctx)

	runs, err := readManifests(params.FilePath, params.Stdin)
	if err != nil {
		return err
	}

	invalid := 0
	for _, run := range runs {
		key := run.Namespace + "/" + run.Name
		err := render.ValidateSpec(&run.Spec)
		if err == nil {
			fmt.Fprintf(params.Out, "%s: valid\n", key)
			continue
		}

		var verr *render.ValidationError
		if !errors.As(err, &verr) {
			return fmt.Errorf("%s: %w", key, err)
		}
		invalid++
		logger.Debug("PlaybookRun failed validation", "playbookRun", key, "problems", len(verr.Problems))
		fmt.Fprintf(params.Out, "%s: invalid\n", key)
		for _, p := range verr.Problems {
			fmt.Fprintf(params.Out, "  - %s\n", p)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d PlaybookRuns are invalid", invalid, len(runs))
	}
	return nil
}
