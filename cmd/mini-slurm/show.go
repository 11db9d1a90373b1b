// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show JOB_ID",
	Short: "Show a single job record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fatalf("invalid job id %q", args[0])
		}

		cfg := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			fatalf("open record store: %v", err)
		}
		defer st.Close()

		j, found, err := st.SelectByID(id)
		if err != nil {
			fatalf("show job: %v", err)
		}
		if !found {
			fatalf("job %d not found", id)
		}

		fmt.Printf("ID:            %d\n", j.ID)
		fmt.Printf("Command:       %s\n", j.Command)
		fmt.Printf("Status:        %s\n", j.Status)
		fmt.Printf("CPUs:          %d (current: %d)\n", j.CPUs, j.CurrentCPU)
		fmt.Printf("Memory (MB):   %d\n", j.MemMB)
		fmt.Printf("Priority:      %d\n", j.Priority)
		fmt.Printf("User:          %s\n", j.User)
		fmt.Printf("Submit time:   %d\n", j.SubmitTime)
		if j.StartTime != 0 {
			fmt.Printf("Start time:    %d\n", j.StartTime)
			fmt.Printf("Wait time (s): %d\n", j.WaitTime)
		}
		if j.EndTime != 0 {
			fmt.Printf("End time:      %d\n", j.EndTime)
			fmt.Printf("Runtime (s):   %d\n", j.Runtime)
		}
		if j.HasReturnCode {
			fmt.Printf("Return code:   %d\n", *j.ReturnCode)
		}
		if len(j.Nodes) > 0 {
			fmt.Printf("Nodes:         %s\n", strings.Join(j.Nodes, ","))
		}
		if j.IsElastic {
			fmt.Printf("Elastic:       min=%d max=%d\n", j.MinCPUs, j.MaxCPUs)
		}
		if j.StdoutPath != "" {
			fmt.Printf("Stdout:        %s\n", j.StdoutPath)
			fmt.Printf("Stderr:        %s\n", j.StderrPath)
		}
		if j.ControlFile != "" {
			fmt.Printf("Control file:  %s\n", j.ControlFile)
		}
	},
}
