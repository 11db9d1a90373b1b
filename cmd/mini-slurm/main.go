// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jontk/mini-slurm/internal/store"
	"github.com/jontk/mini-slurm/internal/topology"
	"github.com/jontk/mini-slurm/pkg/config"
	"github.com/jontk/mini-slurm/pkg/retry"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "mini-slurm",
	Short:   "A single-host batch scheduler",
	Long:    `mini-slurm admits, places, and supervises batch jobs on one host.`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig builds the base configuration from defaults and environment
// overrides (spec §6.5); callers of the scheduler/stats commands layer
// flag overrides on top.
func loadConfig() *config.Config {
	cfg := config.NewDefault()
	cfg.Load()
	return cfg
}

// openStore opens the record store at the configured path, retrying with
// backoff if another mini-slurm process currently holds the file lock
// (e.g. a scheduler already running against the same DB path).
func openStore(cfg *config.Config) (store.JobStore, error) {
	backoff := &retry.ExponentialBackoff{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
		MaxAttempts:  4,
	}

	return retry.RetryWithResult(context.Background(), backoff, func() (store.JobStore, error) {
		return store.Open(cfg.DBPath)
	})
}

// loadTopology loads the topology config file if present, otherwise
// falls back to the default virtual topology (spec §3.2, §6.5).
func loadTopology(cfg *config.Config) (*topology.Topology, error) {
	topo, found, err := topology.Load(cfg.TopologyConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load topology config: %w", err)
	}
	if !found {
		return topology.Default(cfg.TotalCPUs, cfg.TotalMemMB), nil
	}
	return topo, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
