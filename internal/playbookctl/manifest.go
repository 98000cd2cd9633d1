// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

// Package playbookctl implements the offline commands of the playbookctl CLI.
package playbookctl

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	playbookrunv1alpha1 "github.com/playbookrun/playbook-operator/api/v1alpha1"
)

const (
	playbookRunKind  = "PlaybookRun"
	defaultNamespace = "default"
	stdinPath        = "-"
)

// readManifests reads every PlaybookRun document from path, or from stdin when path is "-".
func readManifests(path string, stdin io.Reader) ([]*playbookrunv1alpha1.PlaybookRun, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	var content []byte
	var err error
	if path == stdinPath {
		content, err = io.ReadAll(stdin)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return parseManifests(content)
}

func parseManifests(content []byte) ([]*playbookrunv1alpha1.PlaybookRun, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(content)))

	var runs []*playbookrunv1alpha1.PlaybookRun
	for doc := 1; ; doc++ {
		raw, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		run := &playbookrunv1alpha1.PlaybookRun{}
		if err := yaml.UnmarshalStrict(raw, run); err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if run.Kind != playbookRunKind {
			return nil, fmt.Errorf("document %d: unsupported kind %q, expected %s", doc, run.Kind, playbookRunKind)
		}
		if run.APIVersion != playbookrunv1alpha1.GroupVersion.String() {
			return nil, fmt.Errorf("document %d: unsupported apiVersion %q, expected %s",
				doc, run.APIVersion, playbookrunv1alpha1.GroupVersion.String())
		}
		if run.Namespace == "" {
			run.Namespace = defaultNamespace
		}
		runs = append(runs, run)
	}

	if len(runs) == 0 {
		return nil, fmt.Errorf("no PlaybookRun documents found")
	}
	return runs, nil
}
