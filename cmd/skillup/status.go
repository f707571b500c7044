// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillup/skillup/internal/config"
	"github.com/skillup/skillup/internal/store"
)

const statusTimeout = 5 * time.Second

// newStatusCmd creates the status subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check database connectivity and schema version",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	cmd.Println("Database: reachable")

	m, err := store.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, m)

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		cmd.Println("Schema: no migrations applied")
	case dirty:
		cmd.Printf("Schema: version %d (dirty)\n", version)
	default:
		cmd.Printf("Schema: version %d\n", version)
	}
	return nil
}
