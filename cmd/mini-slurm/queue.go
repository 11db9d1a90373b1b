// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jontk/mini-slurm/internal/job"
)

var queueStatus string

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List jobs",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			fatalf("open record store: %v", err)
		}
		defer st.Close()

		jobs, err := st.SelectByStatus(job.Status(queueStatus))
		if err != nil {
			fatalf("list jobs: %v", err)
		}

		fmt.Printf("%-8s %-10s %-6s %-8s %-9s %-30s\n", "ID", "STATUS", "CPUS", "MEM_MB", "PRIORITY", "COMMAND")
		for _, j := range jobs {
			fmt.Printf("%-8d %-10s %-6d %-8d %-9d %-30s\n", j.ID, j.Status, j.CPUs, j.MemMB, j.Priority, j.Command)
		}
	},
}

func init() {
	queueCmd.Flags().StringVar(&queueStatus, "status", "", "Filter by status (PENDING|RUNNING|COMPLETED|FAILED|CANCELLED)")
}
