// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jontk/mini-slurm/internal/scheduler"
	"github.com/jontk/mini-slurm/internal/supervisor"
	"github.com/jontk/mini-slurm/pkg/logging"
	"github.com/jontk/mini-slurm/pkg/memsize"
)

var (
	schedTotalCPUs        int
	schedTotalMem         string
	schedPollInterval     float64
	schedElasticThreshold float64
	schedDisableElastic   bool
	schedTopologyConfig   string
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the scheduling loop in the foreground",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if schedTotalCPUs > 0 {
			cfg.TotalCPUs = schedTotalCPUs
		}
		if schedTotalMem != "" {
			memMB, err := memsize.ParseMB(schedTotalMem)
			if err != nil {
				fatalf("invalid --total-mem value %q: %v", schedTotalMem, err)
			}
			cfg.TotalMemMB = memMB
		}
		if schedPollInterval > 0 {
			cfg.PollInterval = time.Duration(schedPollInterval * float64(time.Second))
		}
		if cmd.Flags().Changed("elastic-threshold") {
			cfg.ElasticThreshold = schedElasticThreshold
		}
		if schedDisableElastic {
			cfg.DisableElastic = true
		}
		if schedTopologyConfig != "" {
			cfg.TopologyConfigPath = schedTopologyConfig
		}

		if err := cfg.Validate(); err != nil {
			fatalf("invalid configuration: %v", err)
		}

		logger := logging.NewLogger(logging.DefaultConfig())

		st, err := openStore(cfg)
		if err != nil {
			fatalf("open record store: %v", err)
		}
		defer st.Close()

		topo, err := loadTopology(cfg)
		if err != nil {
			fatalf("load topology: %v", err)
		}

		sup, err := supervisor.New(cfg.LogDir, cfg.TotalCPUs, logger)
		if err != nil {
			fatalf("create supervisor: %v", err)
		}

		engine := scheduler.New(cfg, st, topo, sup, logger)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Printf("mini-slurm scheduler starting (total_cpus=%d, total_mem_mb=%d, poll_interval=%s)\n",
			cfg.TotalCPUs, cfg.TotalMemMB, cfg.PollInterval)

		// In-flight children are never killed on shutdown (spec §5): the
		// loop just stops ticking once ctx is cancelled.
		if err := engine.Run(ctx); err != nil {
			fatalf("scheduler loop: %v", err)
		}
	},
}

func init() {
	schedulerCmd.Flags().IntVar(&schedTotalCPUs, "total-cpus", 0, "Override detected total CPU count")
	schedulerCmd.Flags().StringVar(&schedTotalMem, "total-mem", "", "Override total memory (e.g. 16GB)")
	schedulerCmd.Flags().Float64Var(&schedPollInterval, "poll-interval", 0, "Seconds between scheduling ticks")
	schedulerCmd.Flags().Float64Var(&schedElasticThreshold, "elastic-threshold", 50, "Utilization percent below which elastic jobs scale up")
	schedulerCmd.Flags().BoolVar(&schedDisableElastic, "disable-elastic", false, "Disable the elastic controller")
	schedulerCmd.Flags().StringVar(&schedTopologyConfig, "topology-config", "", "Path to a topology config file")
}
