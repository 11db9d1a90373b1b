// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jontk/mini-slurm/internal/job"
	"github.com/jontk/mini-slurm/pkg/memsize"
)

var (
	statsTotalCPUs int
	statsTotalMem  string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cluster and queue statistics",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if statsTotalCPUs > 0 {
			cfg.TotalCPUs = statsTotalCPUs
		}
		if statsTotalMem != "" {
			memMB, err := memsize.ParseMB(statsTotalMem)
			if err != nil {
				fatalf("invalid --total-mem value %q: %v", statsTotalMem, err)
			}
			cfg.TotalMemMB = memMB
		}

		st, err := openStore(cfg)
		if err != nil {
			fatalf("open record store: %v", err)
		}
		defer st.Close()

		running, err := st.SelectByStatus(job.StatusRunning)
		if err != nil {
			fatalf("read running jobs: %v", err)
		}
		usedCPUs, usedMem := 0, 0
		for _, j := range running {
			usedCPUs += j.CurrentCPU
			usedMem += j.MemMB
		}

		stats, err := st.Stats()
		if err != nil {
			fatalf("read stats: %v", err)
		}

		fmt.Printf("Total CPUs:     %d\n", cfg.TotalCPUs)
		fmt.Printf("Used CPUs:      %d\n", usedCPUs)
		fmt.Printf("Available CPUs: %d\n", cfg.TotalCPUs-usedCPUs)
		fmt.Printf("Total Mem (MB): %d\n", cfg.TotalMemMB)
		fmt.Printf("Used Mem (MB):  %d\n", usedMem)
		fmt.Printf("Avail Mem (MB): %d\n", cfg.TotalMemMB-usedMem)
		fmt.Printf("Total jobs:     %d\n", stats.TotalJobs)
		for _, status := range []job.Status{job.StatusPending, job.StatusRunning, job.StatusCompleted, job.StatusFailed, job.StatusCancelled} {
			fmt.Printf("  %-10s %d\n", status, stats.CountByStatus[status])
		}
		fmt.Printf("Avg wait (s):    %.2f\n", stats.AvgWaitSeconds)
		fmt.Printf("Avg runtime (s): %.2f\n", stats.AvgRuntimeSecond)
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsTotalCPUs, "total-cpus", 0, "Override total CPU count for this report")
	statsCmd.Flags().StringVar(&statsTotalMem, "total-mem", "", "Override total memory for this report (e.g. 16GB)")
}
