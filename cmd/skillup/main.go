// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

// Package main is the entry point for the Skill-Up backend server.
package main

import (
	"fmt"
	"os"
	"runtime/debug"
)

// Set via -ldflags at release build time. Development builds fall back to
// the VCS revision the Go toolchain stamps into the binary.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	root := NewRootCmd()
	root.Version = buildVersion()

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildVersion() string {
	rev := commit
	if rev == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" && len(setting.Value) >= 12 {
					rev = setting.Value[:12]
				}
			}
		}
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, rev, date)
}
