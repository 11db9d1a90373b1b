// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/mini-slurm/pkg/logging"
)

func newTestSupervisor(t *testing.T, totalCPUs int) *Supervisor {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir, totalCPUs, logging.NoOpLogger{})
	require.NoError(t, err)
	return s
}

func waitForExit(t *testing.T, s *Supervisor, jobID int64, timeout time.Duration) ExitResult {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, r := range s.Poll() {
			if r.JobID == jobID {
				return r
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %d did not exit within %s", jobID, timeout)
	return ExitResult{}
}

func TestStartCompletedJob(t *testing.T) {
	s := newTestSupervisor(t, 1)
	res, err := s.Start(StartParams{JobID: 1, Command: "true", CPUs: 1, MemMB: 64})
	require.NoError(t, err)
	assert.FileExists(t, res.StdoutPath)
	assert.FileExists(t, res.StderrPath)
	assert.Empty(t, res.ControlFile)

	exit := waitForExit(t, s, 1, 2*time.Second)
	assert.Equal(t, 0, exit.ReturnCode)
}

func TestStartFailedJob(t *testing.T) {
	s := newTestSupervisor(t, 1)
	_, err := s.Start(StartParams{JobID: 2, Command: "exit 7", CPUs: 1, MemMB: 64})
	require.NoError(t, err)

	exit := waitForExit(t, s, 2, 2*time.Second)
	assert.Equal(t, 7, exit.ReturnCode)
}

func TestElasticControlFileLifecycle(t *testing.T) {
	s := newTestSupervisor(t, 2)
	res, err := s.Start(StartParams{
		JobID: 3, Command: "sleep 0.2", CPUs: 1, MemMB: 64,
		IsElastic: true, MinCPUs: 1, MaxCPUs: 4,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ControlFile)

	content, err := os.ReadFile(res.ControlFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "CPUS=1")
	assert.Contains(t, string(content), "STATUS=RUNNING")

	waitForExit(t, s, 3, 2*time.Second)
	_, err = os.Stat(res.ControlFile)
	assert.True(t, os.IsNotExist(err))
}

func TestRewriteControl(t *testing.T) {
	s := newTestSupervisor(t, 2)
	res, err := s.Start(StartParams{
		JobID: 4, Command: "sleep 1", CPUs: 1, MemMB: 64,
		IsElastic: true, MinCPUs: 1, MaxCPUs: 4,
	})
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	require.NoError(t, s.RewriteControl(4, 3, 1, 4, now))

	content, err := os.ReadFile(res.ControlFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "CPUS=3")
	assert.Contains(t, string(content), "SCALE_EVENT=1700000000")

	require.NoError(t, s.Signal(4))
	waitForExit(t, s, 4, 2*time.Second)
}

func TestCpuIndicesNoTopology(t *testing.T) {
	s := newTestSupervisor(t, 8)
	indices := s.cpuIndices(StartParams{CPUs: 3})
	assert.Equal(t, []int{0, 1, 2}, indices)
}

func TestCpuIndicesWithTopology(t *testing.T) {
	s := newTestSupervisor(t, 8)
	indices := s.cpuIndices(StartParams{Nodes: []string{"node2"}, CPUsPerNode: 2})
	assert.Equal(t, []int{2, 3}, indices)
}

func TestShQuoteEscapesSingleQuotes(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, shQuote("it's"))
}

func TestCountTracksOutstandingChildren(t *testing.T) {
	s := newTestSupervisor(t, 1)
	_, err := s.Start(StartParams{JobID: 5, Command: "sleep 0.2", CPUs: 1, MemMB: 64})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())

	waitForExit(t, s, 5, 2*time.Second)
	assert.Equal(t, 0, s.Count())
}

func TestNewCreatesLogDirectory(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "nested", "logs")
	s, err := New(dir, 1, logging.NoOpLogger{})
	require.NoError(t, err)
	assert.DirExists(t, dir)

	_, err = s.Start(StartParams{JobID: 6, Command: "true", CPUs: 1, MemMB: 64})
	require.NoError(t, err)
	waitForExit(t, s, 6, 2*time.Second)
}
