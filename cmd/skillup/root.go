// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Skill-Up CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skillup",
		Short: "Skill-Up - authentication and progress backend",
		Long: `Skill-Up is the backend for the Skill-Up learning app: account
registration, bearer-token sessions, task progress and a leaderboard.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
