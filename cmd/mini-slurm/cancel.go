// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel JOB_ID",
	Short: "Cancel a pending job",
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

		cancelled, err := st.CancelIfPending(id)
		if err != nil {
			fatalf("cancel job: %v", err)
		}
		if !cancelled {
			fatalf("job %d was not PENDING", id)
		}

		fmt.Printf("Job %d cancelled\n", id)
	},
}
