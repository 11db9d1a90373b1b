// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jontk/mini-slurm/internal/job"
	schedErrors "github.com/jontk/mini-slurm/pkg/errors"
)

var jobsBucket = []byte("jobs")

// BoltStore implements JobStore on top of go.etcd.io/bbolt, an embedded
// ordered key/value engine whose single-writer transactions give us the
// "single-statement transaction" atomicity spec §4.1 requires, and whose
// JSON-encoded rows tolerate additive schema migration for free: a row
// written by an older build simply unmarshals with the newer fields left
// at their zero value (spec §4.1, §7).
type BoltStore struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the record store at path.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, schedErrors.NewStoreError("open", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(jobsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, schedErrors.NewStoreError("init-bucket", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func idKey(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func (s *BoltStore) getJob(tx *bbolt.Tx, id int64) (*job.Job, bool, error) {
	raw := tx.Bucket(jobsBucket).Get(idKey(id))
	if raw == nil {
		return nil, false, nil
	}
	var j job.Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, false, fmt.Errorf("decode job %d: %w", id, err)
	}
	return &j, true, nil
}

func (s *BoltStore) putJob(tx *bbolt.Tx, j *job.Job) error {
	raw, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job %d: %w", j.ID, err)
	}
	return tx.Bucket(jobsBucket).Put(idKey(j.ID), raw)
}

func (s *BoltStore) InsertPending(fields PendingFields, now time.Time) (int64, error) {
	var id int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(jobsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = int64(seq)

		j := &job.Job{
			ID:         id,
			Command:    fields.Command,
			CPUs:       fields.CPUs,
			MemMB:      fields.MemMB,
			Priority:   fields.Priority,
			Status:     job.StatusPending,
			SubmitTime: now.Unix(),
			User:       fields.User,
			IsElastic:  fields.IsElastic,
			MinCPUs:    fields.MinCPUs,
			MaxCPUs:    fields.MaxCPUs,
			CurrentCPU: fields.CPUs,
		}
		return s.putJob(tx, j)
	})
	if err != nil {
		return 0, schedErrors.NewStoreError("insert-pending", err)
	}
	return id, nil
}

func (s *BoltStore) allJobs(tx *bbolt.Tx) ([]*job.Job, error) {
	var jobs []*job.Job
	err := tx.Bucket(jobsBucket).ForEach(func(_, v []byte) error {
		var j job.Job
		if err := json.Unmarshal(v, &j); err != nil {
			return err
		}
		jobs = append(jobs, &j)
		return nil
	})
	return jobs, err
}

func (s *BoltStore) SelectPending() ([]*job.Job, error) {
	var pending []*job.Job
	err := s.db.View(func(tx *bbolt.Tx) error {
		jobs, err := s.allJobs(tx)
		if err != nil {
			return err
		}
		for _, j := range jobs {
			if j.Status == job.StatusPending {
				pending = append(pending, j)
			}
		}
		return nil
	})
	if err != nil {
		return nil, schedErrors.NewStoreError("select-pending", err)
	}

	sort.SliceStable(pending, func(i, k int) bool {
		if pending[i].Priority != pending[k].Priority {
			return pending[i].Priority > pending[k].Priority
		}
		return pending[i].SubmitTime < pending[k].SubmitTime
	})
	return pending, nil
}

func (s *BoltStore) SelectByID(id int64) (*job.Job, bool, error) {
	var j *job.Job
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		j, found, err = s.getJob(tx, id)
		return err
	})
	if err != nil {
		return nil, false, schedErrors.NewStoreError("select-by-id", err)
	}
	return j, found, nil
}

func (s *BoltStore) SelectByStatus(status job.Status) ([]*job.Job, error) {
	var result []*job.Job
	err := s.db.View(func(tx *bbolt.Tx) error {
		jobs, err := s.allJobs(tx)
		if err != nil {
			return err
		}
		for _, j := range jobs {
			if status == "" || j.Status == status {
				result = append(result, j)
			}
		}
		return nil
	})
	if err != nil {
		return nil, schedErrors.NewStoreError("select-by-status", err)
	}

	sort.SliceStable(result, func(i, k int) bool {
		return result[i].SubmitTime < result[k].SubmitTime
	})
	return result, nil
}

func (s *BoltStore) UpdateOnStart(id int64, fields StartFields) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		j, found, err := s.getJob(tx, id)
		if err != nil {
			return err
		}
		if !found {
			return schedErrors.NewNotFoundError(id)
		}
		if !job.CanTransition(j.Status, job.StatusRunning) {
			return schedErrors.NewIllegalTransitionError(id, string(j.Status))
		}

		j.Status = job.StatusRunning
		j.StartTime = fields.StartTime
		j.WaitTime = fields.WaitTime
		j.StdoutPath = fields.StdoutPath
		j.StderrPath = fields.StderrPath
		j.ControlFile = fields.ControlFile
		j.Nodes = fields.Nodes
		if j.IsElastic {
			j.CurrentCPU = fields.CurrentCPUs
		}
		return s.putJob(tx, j)
	})
	if err != nil {
		return err
	}
	return nil
}

func (s *BoltStore) UpdateOnFinish(id int64, fields FinishFields) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		j, found, err := s.getJob(tx, id)
		if err != nil {
			return err
		}
		if !found {
			return schedErrors.NewNotFoundError(id)
		}
		if !job.CanTransition(j.Status, fields.Status) {
			return schedErrors.NewIllegalTransitionError(id, string(j.Status))
		}

		j.Status = fields.Status
		j.EndTime = fields.EndTime
		j.Runtime = fields.Runtime
		rc := fields.ReturnCode
		j.ReturnCode = &rc
		j.HasReturnCode = true
		j.CPUUserTime = fields.CPUUserTime
		j.CPUSystemTime = fields.CPUSystemTime
		return s.putJob(tx, j)
	})
}

func (s *BoltStore) UpdateElasticCPUs(id int64, newCPUs int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		j, found, err := s.getJob(tx, id)
		if err != nil {
			return err
		}
		if !found {
			return schedErrors.NewNotFoundError(id)
		}
		j.CPUs = newCPUs
		j.CurrentCPU = newCPUs
		return s.putJob(tx, j)
	})
}

func (s *BoltStore) CancelIfPending(id int64) (bool, error) {
	var cancelled bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		j, found, err := s.getJob(tx, id)
		if err != nil {
			return err
		}
		if !found {
			return schedErrors.NewNotFoundError(id)
		}
		if j.Status != job.StatusPending {
			return nil
		}
		j.Status = job.StatusCancelled
		cancelled = true
		return s.putJob(tx, j)
	})
	if err != nil {
		return false, err
	}
	return cancelled, nil
}

func (s *BoltStore) Stats() (Stats, error) {
	stats := Stats{CountByStatus: make(map[job.Status]int)}

	var waitSum, runtimeSum float64
	var waitCount, runtimeCount int

	err := s.db.View(func(tx *bbolt.Tx) error {
		jobs, err := s.allJobs(tx)
		if err != nil {
			return err
		}
		stats.TotalJobs = len(jobs)
		for _, j := range jobs {
			stats.CountByStatus[j.Status]++
			if j.Status == job.StatusCompleted || j.Status == job.StatusFailed {
				waitSum += float64(j.WaitTime)
				waitCount++
				runtimeSum += float64(j.Runtime)
				runtimeCount++
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, schedErrors.NewStoreError("stats", err)
	}

	if waitCount > 0 {
		stats.AvgWaitSeconds = waitSum / float64(waitCount)
	}
	if runtimeCount > 0 {
		stats.AvgRuntimeSecond = runtimeSum / float64(runtimeCount)
	}
	return stats, nil
}
