// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os/user"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jontk/mini-slurm/internal/store"
	"github.com/jontk/mini-slurm/pkg/memsize"
)

var (
	submitCPUs     int
	submitMem      string
	submitPriority int
	submitElastic  bool
	submitMinCPUs  int
	submitMaxCPUs  int
)

var submitCmd = &cobra.Command{
	Use:   "submit --cpus N --mem SIZE [flags] -- COMMAND...",
	Short: "Submit a batch job",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		memMB, err := memsize.ParseMB(submitMem)
		if err != nil {
			fatalf("invalid --mem value %q: %v", submitMem, err)
		}

		if submitElastic {
			if submitMinCPUs > submitMaxCPUs {
				fatalf("--min-cpus (%d) must not exceed --max-cpus (%d)", submitMinCPUs, submitMaxCPUs)
			}
			if submitCPUs < submitMinCPUs || submitCPUs > submitMaxCPUs {
				fatalf("--cpus (%d) must be within [--min-cpus, --max-cpus] = [%d, %d]", submitCPUs, submitMinCPUs, submitMaxCPUs)
			}
		}

		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			fatalf("open record store: %v", err)
		}
		defer st.Close()

		u := ""
		if cur, err := user.Current(); err == nil {
			u = cur.Username
		}

		id, err := st.InsertPending(store.PendingFields{
			Command:   strings.Join(args, " "),
			CPUs:      submitCPUs,
			MemMB:     memMB,
			Priority:  submitPriority,
			User:      u,
			IsElastic: submitElastic,
			MinCPUs:   submitMinCPUs,
			MaxCPUs:   submitMaxCPUs,
		}, time.Now())
		if err != nil {
			fatalf("submit job: %v", err)
		}

		fmt.Printf("Submitted job %d\n", id)
	},
}

func init() {
	submitCmd.Flags().IntVar(&submitCPUs, "cpus", 1, "Number of CPUs")
	submitCmd.Flags().StringVar(&submitMem, "mem", "1024", "Memory (e.g. 512, 512MB, 2GB)")
	submitCmd.Flags().IntVar(&submitPriority, "priority", 0, "Scheduling priority (higher runs first)")
	submitCmd.Flags().BoolVar(&submitElastic, "elastic", false, "Mark the job as elastic (rescalable)")
	submitCmd.Flags().IntVar(&submitMinCPUs, "min-cpus", 1, "Elastic minimum CPUs")
	submitCmd.Flags().IntVar(&submitMaxCPUs, "max-cpus", 1, "Elastic maximum CPUs")
}
