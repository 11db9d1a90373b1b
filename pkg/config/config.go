// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package config holds scheduler and CLI configuration, following the
// teacher's NewDefault/Load/Validate shape.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// Config holds configuration for the mini-slurm scheduler and CLI.
type Config struct {
	// TotalCPUs is the cluster's total CPU count.
	TotalCPUs int

	// TotalMemMB is the cluster's total memory in MiB.
	TotalMemMB int

	// PollInterval is the inter-tick sleep duration of the scheduler loop.
	PollInterval time.Duration

	// ElasticThreshold is the utilization percent below which elastic jobs
	// are scaled up (§4.6); scale-down does not use it.
	ElasticThreshold float64

	// DisableElastic turns off the elastic controller entirely.
	DisableElastic bool

	// DBPath is the record store file path (§6.2).
	DBPath string

	// LogDir is the directory for per-job stdout/stderr/control files (§6.2).
	LogDir string

	// TopologyConfigPath is the topology config file path (§6.2, §6.3).
	TopologyConfigPath string
}

// NewDefault returns a Config populated with the spec's §6.5 cluster
// defaults and §6.2 persistent-state paths.
func NewDefault() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	cpus := runtime.NumCPU()
	if cpus <= 0 {
		cpus = 4
	}

	return &Config{
		TotalCPUs:          cpus,
		TotalMemMB:         16 * 1024,
		PollInterval:       1 * time.Second,
		ElasticThreshold:   50,
		DisableElastic:     false,
		DBPath:             filepath.Join(home, ".mini_slurm.db"),
		LogDir:             filepath.Join(home, ".mini_slurm_logs"),
		TopologyConfigPath: filepath.Join(home, ".mini_slurm_topology.conf"),
	}
}

// Load overlays environment variable overrides onto the configuration.
func (c *Config) Load() {
	if v := os.Getenv("MINI_SLURM_TOTAL_CPUS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.TotalCPUs = i
		}
	}
	if v := os.Getenv("MINI_SLURM_TOTAL_MEM_MB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.TotalMemMB = i
		}
	}
	if v := os.Getenv("MINI_SLURM_POLL_INTERVAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.PollInterval = time.Duration(f * float64(time.Second))
		}
	}
	if v := os.Getenv("MINI_SLURM_ELASTIC_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ElasticThreshold = f
		}
	}
	if v := os.Getenv("MINI_SLURM_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("MINI_SLURM_LOG_DIR"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("MINI_SLURM_TOPOLOGY_CONFIG"); v != "" {
		c.TopologyConfigPath = v
	}
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.TotalCPUs <= 0 {
		return ErrInvalidTotalCPUs
	}
	if c.TotalMemMB <= 0 {
		return ErrInvalidTotalMem
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.ElasticThreshold < 0 || c.ElasticThreshold > 100 {
		return ErrInvalidThreshold
	}
	return nil
}
