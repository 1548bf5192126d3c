package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, s *Scheduler, name string, want JobStatus) *TaskResult {
	t.Helper()
	var last *TaskResult
	require.Eventually(t, func() bool {
		result, err := s.GetTask(name)
		if err != nil {
			return false
		}
		last = result
		return result.Status == want
	}, time.Second, 5*time.Millisecond)
	return last
}

func TestSchedulerRunAndPoll(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 1)
	s.Register(Job{Name: "pass", Description: "test pass", Interval: time.Hour, Fn: func(context.Context) error {
		ran <- struct{}{}
		return nil
	}})

	items := s.List()
	require.Len(t, items, 1)
	assert.Equal(t, "pass", items[0].Name)
	assert.Equal(t, StatusIdle, items[0].Status)
	assert.Nil(t, items[0].LastRunAt)

	require.NoError(t, s.Run(context.Background(), "pass"))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}
	waitForStatus(t, s, "pass", StatusFulfill)

	items = s.List()
	require.Len(t, items, 1)
	assert.NotNil(t, items[0].LastRunAt)

	assert.Error(t, s.Run(context.Background(), "missing"))
	_, err := s.GetTask("missing")
	assert.Error(t, err)
}

func TestSchedulerReportsFailure(t *testing.T) {
	s := New()
	s.Register(Job{Name: "broken", Interval: time.Hour, Fn: func(context.Context) error {
		return errors.New("pass blew up")
	}})

	require.NoError(t, s.Run(context.Background(), "broken"))
	result := waitForStatus(t, s, "broken", StatusReject)
	assert.Equal(t, "pass blew up", result.Message)
}

func TestSchedulerNeverOverlapsARunningJob(t *testing.T) {
	s := New()
	var runs atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	s.Register(Job{Name: "slow", Interval: time.Hour, Fn: func(context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		<-release
		return nil
	}})

	ctx := context.Background()
	require.NoError(t, s.Run(ctx, "slow"))
	<-started

	// A second trigger while the first is still running is dropped.
	require.NoError(t, s.Run(ctx, "slow"))
	time.Sleep(50 * time.Millisecond)
	close(release)

	waitForStatus(t, s, "slow", StatusFulfill)
	assert.EqualValues(t, 1, runs.Load())
}
