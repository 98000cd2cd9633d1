// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

// Package version exposes build information stamped in at link time.
package version

import (
	"runtime"
)

// Set via -ldflags "-X github.com/playbookrun/playbook-operator/internal/version.version=..."
var (
	version     = "v0.0.0-dev"
	gitRevision = "unknown"
	buildTime   = "unknown"
)

const componentName = "playbook-operator"

type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	GitRevision string `json:"gitRevision"`
	BuildTime   string `json:"buildTime"`
	GoOS        string `json:"goOS"`
	GoArch      string `json:"goArch"`
	GoVersion   string `json:"goVersion"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Name:        componentName,
		Version:     version,
		GitRevision: gitRevision,
		BuildTime:   buildTime,
		GoOS:        runtime.GOOS,
		GoArch:      runtime.GOARCH,
		GoVersion:   runtime.Version(),
	}
}

// GetLogKeyValues returns the build information as alternating key/value pairs
// suitable for structured loggers.
func GetLogKeyValues() []any {
	v := Get()
	return []any{
		"version", v.Version,
		"gitRevision", v.GitRevision,
		"buildTime", v.BuildTime,
		"goOS", v.GoOS,
		"goArch", v.GoArch,
		"goVersion", v.GoVersion,
	}
}
