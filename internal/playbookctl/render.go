// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package playbookctl

import (
	"context"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/playbookrun/playbook-operator/internal/controller/playbookrun/render"
	"github.com/playbookrun/playbook-operator/internal/logging"
)

// RenderParams defines the parameters of the render command.
type RenderParams struct {
	FilePath         string
	SourceFetchImage string
	RunnerImage      string
	Stdin            io.Reader
	Out              io.Writer
}

// Render prints the Job the operator would create for every PlaybookRun in the file.
func Render(ctx context.Context, params RenderParams) error {
	logger := logging.FromContext(ctx)

	runs, err := readManifests(params.FilePath, params.Stdin)
	if err != nil {
		return err
	}

	opts := render.DefaultOptions()
	if params.SourceFetchImage != "" {
		opts.SourceFetchImage = params.SourceFetchImage
	}
	if params.RunnerImage != "" {
		opts.RunnerImage = params.RunnerImage
	}

	for i, run := range runs {
		job, err := render.Job(render.Input{PlaybookRun: run, Options: opts})
		if err != nil {
			return fmt.Errorf("%s/%s: %w", run.Namespace, run.Name, err)
		}
		logger.Debug("Rendered job", "playbookRun", run.Name, "namespace", run.Namespace, "job", job.Name)

		out, err := yaml.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job %s: %w", job.Name, err)
		}
		if i > 0 {
			if _, err := fmt.Fprintln(params.Out, "---"); err != nil {
				return err
			}
		}
		if _, err := params.Out.Write(out); err != nil {
			return err
		}
	}
	return nil
}
