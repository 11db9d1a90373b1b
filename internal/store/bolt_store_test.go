// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/mini-slurm/internal/job"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertPendingAssignsSequentialIDs(t *testing.T) {
	s := newTestStore(t)
	now := time.Unix(1000, 0)

	id1, err := s.InsertPending(PendingFields{Command: "a", CPUs: 1, MemMB: 100}, now)
	require.NoError(t, err)
	id2, err := s.InsertPending(PendingFields{Command: "b", CPUs: 1, MemMB: 100}, now)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Greater(t, id2, id1)

	j, found, err := s.SelectByID(id1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, job.StatusPending, j.Status)
	assert.Equal(t, "a", j.Command)
}

func TestSelectPendingOrdering(t *testing.T) {
	s := newTestStore(t)

	// equal priority: submit-time ascending
	idA, _ := s.InsertPending(PendingFields{Command: "A", CPUs: 1, MemMB: 1}, time.Unix(100, 0))
	idB, _ := s.InsertPending(PendingFields{Command: "B", CPUs: 1, MemMB: 1}, time.Unix(200, 0))
	// higher priority jumps ahead regardless of submit time
	idC, _ := s.InsertPending(PendingFields{Command: "C", CPUs: 1, MemMB: 1, Priority: 10}, time.Unix(300, 0))

	pending, err := s.SelectPending()
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, idC, pending[0].ID)
	assert.Equal(t, idA, pending[1].ID)
	assert.Equal(t, idB, pending[2].ID)
}

func TestUpdateOnStartTransitionsToRunning(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.InsertPending(PendingFields{Command: "a", CPUs: 2, MemMB: 100}, time.Unix(0, 0))

	err := s.UpdateOnStart(id, StartFields{
		StartTime:  10,
		WaitTime:   10,
		StdoutPath: "/x.out",
		StderrPath: "/x.err",
		Nodes:      []string{"node1", "node2"},
	})
	require.NoError(t, err)

	j, _, err := s.SelectByID(id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusRunning, j.Status)
	assert.Equal(t, []string{"node1", "node2"}, j.Nodes)
}

func TestUpdateOnStartRejectsNonPending(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.InsertPending(PendingFields{Command: "a", CPUs: 1, MemMB: 1}, time.Unix(0, 0))
	require.NoError(t, s.UpdateOnStart(id, StartFields{}))

	err := s.UpdateOnStart(id, StartFields{})
	assert.Error(t, err)
}

func TestUpdateOnFinish(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.InsertPending(PendingFields{Command: "a", CPUs: 1, MemMB: 1}, time.Unix(0, 0))
	require.NoError(t, s.UpdateOnStart(id, StartFields{StartTime: 5}))

	err := s.UpdateOnFinish(id, FinishFields{
		Status:     job.StatusCompleted,
		EndTime:    15,
		Runtime:    10,
		ReturnCode: 0,
	})
	require.NoError(t, err)

	j, _, _ := s.SelectByID(id)
	assert.Equal(t, job.StatusCompleted, j.Status)
	assert.Equal(t, int64(10), j.Runtime)
	require.NotNil(t, j.ReturnCode)
	assert.Equal(t, 0, *j.ReturnCode)
}

func TestCancelIfPending(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.InsertPending(PendingFields{Command: "a", CPUs: 1, MemMB: 1}, time.Unix(0, 0))

	ok, err := s.CancelIfPending(id)
	require.NoError(t, err)
	assert.True(t, ok)

	j, _, _ := s.SelectByID(id)
	assert.Equal(t, job.StatusCancelled, j.Status)

	// Second cancel of an already-cancelled job is a no-op, not an error.
	ok, err = s.CancelIfPending(id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCancelIfPendingRejectsRunning(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.InsertPending(PendingFields{Command: "a", CPUs: 1, MemMB: 1}, time.Unix(0, 0))
	require.NoError(t, s.UpdateOnStart(id, StartFields{}))

	ok, err := s.CancelIfPending(id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatsAverages(t *testing.T) {
	s := newTestStore(t)

	id1, _ := s.InsertPending(PendingFields{Command: "a", CPUs: 1, MemMB: 1}, time.Unix(0, 0))
	require.NoError(t, s.UpdateOnStart(id1, StartFields{StartTime: 5, WaitTime: 5}))
	require.NoError(t, s.UpdateOnFinish(id1, FinishFields{Status: job.StatusCompleted, EndTime: 15, Runtime: 10}))

	id2, _ := s.InsertPending(PendingFields{Command: "b", CPUs: 1, MemMB: 1}, time.Unix(0, 0))
	require.NoError(t, s.UpdateOnStart(id2, StartFields{StartTime: 3, WaitTime: 3}))
	require.NoError(t, s.UpdateOnFinish(id2, FinishFields{Status: job.StatusFailed, EndTime: 23, Runtime: 20}))

	_, _ = s.InsertPending(PendingFields{Command: "c", CPUs: 1, MemMB: 1}, time.Unix(0, 0)) // stays PENDING

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, 1, stats.CountByStatus[job.StatusPending])
	assert.Equal(t, 1, stats.CountByStatus[job.StatusCompleted])
	assert.Equal(t, 1, stats.CountByStatus[job.StatusFailed])
	assert.InDelta(t, 4.0, stats.AvgWaitSeconds, 0.001)
	assert.InDelta(t, 15.0, stats.AvgRuntimeSecond, 0.001)
}

func TestStatsEmptyStoreNoDivideByZero(t *testing.T) {
	s := newTestStore(t)
	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalJobs)
	assert.Equal(t, 0.0, stats.AvgWaitSeconds)
	assert.Equal(t, 0.0, stats.AvgRuntimeSecond)
}
