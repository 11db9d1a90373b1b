// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package scheduler is the tick-loop glue: after the supervisor has reaped
// finished jobs, the Elastic Controller (C6) rescales running elastic jobs
// and then Admission & Placement (C4) starts pending ones (spec §4.4, §4.6,
// §5).
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jontk/mini-slurm/internal/job"
	"github.com/jontk/mini-slurm/internal/ledger"
	"github.com/jontk/mini-slurm/internal/store"
	"github.com/jontk/mini-slurm/internal/supervisor"
	"github.com/jontk/mini-slurm/internal/topology"
	"github.com/jontk/mini-slurm/pkg/config"
	"github.com/jontk/mini-slurm/pkg/logging"
)

const defaultCPUsPerNode = 1

// Engine owns one scheduling tick loop: reap, scale, admit, sleep.
type Engine struct {
	cfg        *config.Config
	store      store.JobStore
	topo       *topology.Topology
	ledger     *ledger.Ledger
	supervisor *supervisor.Supervisor
	logger     logging.Logger

	cpusPerNode int
}

// New wires the components into one Engine. topo is used as given (New
// never builds a default topology); cpus-per-node is taken from topo's
// first node when topology is enabled, and is 1 otherwise.
func New(cfg *config.Config, st store.JobStore, topo *topology.Topology, sup *supervisor.Supervisor, logger logging.Logger) *Engine {
	cpusPerNode := defaultCPUsPerNode
	if topo.Enabled {
		if names := topo.NodeNames(); len(names) > 0 {
			if n, ok := topo.Node(names[0]); ok && n.CPUs > 0 {
				cpusPerNode = n.CPUs
			}
		}
	}

	return &Engine{
		cfg:         cfg,
		store:       st,
		topo:        topo,
		ledger:      ledger.New(),
		supervisor:  sup,
		logger:      logger,
		cpusPerNode: cpusPerNode,
	}
}

// Run executes the cooperative tick loop until ctx is cancelled. In-flight
// children are never killed on shutdown (spec §5): Run simply stops
// ticking and returns.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	if err := e.tick(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.tick(); err != nil {
				return err
			}
		}
	}
}

// tick runs one reap -> scale -> admit cycle. Only an unrecoverable
// record-store error is returned to the caller; everything else (a
// transient supervision failure, a skipped placement) is logged and
// swallowed (spec §7).
func (e *Engine) tick() error {
	// Every tick gets its own correlation id so a scheduler log, once
	// emitted as structured JSON, can be grepped for one cycle's worth of
	// reap/scale/admit decisions.
	tickLogger := e.logger.With("tick_id", uuid.NewString())

	reaped, err := e.reap()
	if err != nil {
		return err
	}
	if reaped > 0 {
		tickLogger.Debug("reaped finished jobs", "count", reaped)
	}

	if !e.cfg.DisableElastic {
		e.scaleUp()
		e.scaleDown()
	}
	return e.admit()
}

// reap drains finished children from the supervisor and writes their final
// status to the record store, returning how many it processed.
func (e *Engine) reap() (int, error) {
	exits := e.supervisor.Poll()
	for _, exit := range exits {
		e.ledger.Remove(exit.JobID)

		status := job.StatusCompleted
		if exit.ReturnCode != 0 {
			status = job.StatusFailed
		}

		j, found, err := e.store.SelectByID(exit.JobID)
		if err != nil {
			return 0, err
		}
		if !found {
			continue
		}

		runtime := exit.EndTime - j.StartTime
		if err := e.store.UpdateOnFinish(exit.JobID, store.FinishFields{
			Status:        status,
			EndTime:       exit.EndTime,
			Runtime:       runtime,
			ReturnCode:    exit.ReturnCode,
			CPUUserTime:   exit.CPUUserTime,
			CPUSystemTime: exit.CPUSystemTime,
		}); err != nil {
			return 0, err
		}
	}
	return len(exits), nil
}

func (e *Engine) availCPUs() int {
	avail := e.cfg.TotalCPUs - e.ledger.UsedCPUs()
	if avail < 0 {
		return 0
	}
	return avail
}

// scaleUp grants idle capacity to the lowest-priority running elastic jobs
// first (spec §4.6).
func (e *Engine) scaleUp() {
	util := e.ledger.Utilization(e.cfg.TotalCPUs, e.cfg.TotalMemMB)
	if util >= e.cfg.ElasticThreshold {
		return
	}

	avail := e.availCPUs()
	for _, a := range e.ledger.RunningElasticByPriorityAsc() {
		if avail <= 0 {
			break
		}
		if a.CurrentCPUs >= a.MaxCPUs {
			continue
		}
		grant := a.MaxCPUs - a.CurrentCPUs
		if avail < grant {
			grant = avail
		}
		avail -= grant
		e.applyScale(a.JobID, a.CurrentCPUs+grant, a.MinCPUs, a.MaxCPUs)
	}
}

// scaleDown reclaims capacity from the lowest-priority running elastic
// jobs to satisfy the highest-priority pending demand (spec §4.6).
func (e *Engine) scaleDown() {
	pending, err := e.store.SelectPending()
	if err != nil {
		e.logger.Warn("select pending for scale-down failed", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	topPriority := pending[0].Priority
	demand := 0
	for _, p := range pending {
		if p.Priority == topPriority {
			demand += p.CPUs
		}
	}

	avail := e.availCPUs()
	need := demand - avail
	if need <= 0 {
		return
	}

	for _, a := range e.ledger.RunningElasticByPriorityAsc() {
		if need <= 0 {
			break
		}
		if a.CurrentCPUs <= a.MinCPUs {
			continue
		}
		release := a.CurrentCPUs - a.MinCPUs
		if need < release {
			release = need
		}
		need -= release
		e.applyScale(a.JobID, a.CurrentCPUs-release, a.MinCPUs, a.MaxCPUs)
	}
}

// applyScale pushes a new current_cpus figure to the ledger, the record
// store, the child's control file, and best-effort signals the child.
// Every failure beyond the ledger update (which cannot fail) is logged
// and swallowed (spec §7).
func (e *Engine) applyScale(jobID int64, newCPUs, minCPUs, maxCPUs int) {
	e.ledger.SetCurrentCPUs(jobID, newCPUs)

	if err := e.store.UpdateElasticCPUs(jobID, newCPUs); err != nil {
		e.logger.Warn("update elastic cpus failed", "job_id", jobID, "error", err)
	}
	if err := e.supervisor.RewriteControl(jobID, newCPUs, minCPUs, maxCPUs, time.Now()); err != nil {
		e.logger.Warn("rewrite control file failed", "job_id", jobID, "error", err)
	}
	if err := e.supervisor.Signal(jobID); err != nil {
		e.logger.Warn("signal child failed", "job_id", jobID, "error", err)
	}
}

// admit walks the PENDING queue in priority/submit-time order, skipping
// (never blocking on) any candidate that doesn't currently fit (spec §4.4).
func (e *Engine) admit() error {
	pending, err := e.store.SelectPending()
	if err != nil {
		return err
	}

	for _, j := range pending {
		if j.CPUs > e.availCPUs() || j.MemMB > e.cfg.TotalMemMB-e.ledger.UsedMemMB() {
			continue
		}

		var nodes []string
		if e.topo.Enabled {
			nodesNeeded := (j.CPUs + e.cpusPerNode - 1) / e.cpusPerNode
			memPerNode := j.MemMB / nodesNeeded
			nodes = e.topo.FindBestNodes(nodesNeeded, e.cpusPerNode, memPerNode, e.ledger.UsedNodes())
			if nodes == nil {
				continue
			}
		}

		if err := e.startJob(j, nodes); err != nil {
			e.logger.Warn("start job failed", "job_id", j.ID, "error", err)
			continue
		}
	}
	return nil
}

func (e *Engine) startJob(j *job.Job, nodes []string) error {
	now := time.Now()

	result, err := e.supervisor.Start(supervisor.StartParams{
		JobID:       j.ID,
		Command:     j.Command,
		CPUs:        j.CPUs,
		MemMB:       j.MemMB,
		Nodes:       nodes,
		CPUsPerNode: e.cpusPerNode,
		IsElastic:   j.IsElastic,
		MinCPUs:     j.MinCPUs,
		MaxCPUs:     j.MaxCPUs,
	})
	if err != nil {
		return err
	}

	if err := e.store.UpdateOnStart(j.ID, store.StartFields{
		StartTime:   now.Unix(),
		WaitTime:    now.Unix() - j.SubmitTime,
		StdoutPath:  result.StdoutPath,
		StderrPath:  result.StderrPath,
		ControlFile: result.ControlFile,
		CurrentCPUs: j.CPUs,
		Nodes:       nodes,
	}); err != nil {
		return err
	}

	e.ledger.Add(&ledger.Allocation{
		JobID:       j.ID,
		CPUs:        j.CPUs,
		MemMB:       j.MemMB,
		Nodes:       nodes,
		Priority:    j.Priority,
		IsElastic:   j.IsElastic,
		MinCPUs:     j.MinCPUs,
		MaxCPUs:     j.MaxCPUs,
		CurrentCPUs: j.CPUs,
	})
	return nil
}
