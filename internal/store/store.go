// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package store is the Job Record Store (C1, spec §4.1): a durable,
// concurrently accessible record of every job. The public contract is
// defined entirely in terms of the abstract operations from spec §4.1;
// callers never see the underlying key-ordered transactional table.
package store

import (
	"time"

	"github.com/jontk/mini-slurm/internal/job"
)

// StartFields carries the values update_on_start writes atomically.
type StartFields struct {
	StartTime   int64
	WaitTime    int64
	StdoutPath  string
	StderrPath  string
	ControlFile string
	CurrentCPUs int
	Nodes       []string
}

// FinishFields carries the values update_on_finish writes atomically.
type FinishFields struct {
	Status        job.Status // COMPLETED or FAILED
	EndTime       int64
	Runtime       int64
	ReturnCode    int
	CPUUserTime   float64
	CPUSystemTime float64
}

// Stats is the aggregate the `stats` subcommand renders (spec §4.1, §6.1).
type Stats struct {
	TotalJobs        int
	CountByStatus    map[job.Status]int
	AvgWaitSeconds   float64
	AvgRuntimeSecond float64
}

// JobStore is the Job Record Store's public contract (spec §4.1).
type JobStore interface {
	// InsertPending atomically assigns a new id and inserts a PENDING row
	// with submit_time=now.
	InsertPending(fields PendingFields, now time.Time) (int64, error)

	// SelectPending returns all PENDING jobs ordered by
	// (priority desc, submit_time asc).
	SelectPending() ([]*job.Job, error)

	// SelectByID returns the job with the given id, or (nil, false).
	SelectByID(id int64) (*job.Job, bool, error)

	// SelectByStatus returns jobs with the given status (or all jobs if
	// status is ""), ordered by submit_time asc.
	SelectByStatus(status job.Status) ([]*job.Job, error)

	// UpdateOnStart atomically transitions a PENDING job to RUNNING.
	UpdateOnStart(id int64, fields StartFields) error

	// UpdateOnFinish atomically transitions a RUNNING job to
	// COMPLETED/FAILED.
	UpdateOnFinish(id int64, fields FinishFields) error

	// UpdateElasticCPUs sets both cpus and current_cpus for a running
	// elastic job.
	UpdateElasticCPUs(id int64, newCPUs int) error

	// CancelIfPending transitions id to CANCELLED iff it is PENDING,
	// returning whether the cancellation took effect.
	CancelIfPending(id int64) (bool, error)

	// Stats returns aggregate counts and wait/runtime averages.
	Stats() (Stats, error)

	// Close releases underlying resources.
	Close() error
}

// PendingFields are the caller-supplied fields for a new submission.
type PendingFields struct {
	Command   string
	CPUs      int
	MemMB     int
	Priority  int
	User      string
	IsElastic bool
	MinCPUs   int
	MaxCPUs   int
}
