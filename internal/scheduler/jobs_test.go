package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	refreshed int
	err       error
}

func (f *fakeRefresher) RefreshAll(_ context.Context) (int, error) {
	return f.refreshed, f.err
}

type fakeDeleter struct {
	deleted int64
	err     error
	calls   int
}

func (f *fakeDeleter) DeleteExpired(_ context.Context) (int64, error) {
	f.calls++
	return f.deleted, f.err
}

type fakeTaskDeleter struct {
	cutoff time.Time
}

func (f *fakeTaskDeleter) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 2, nil
}

func TestMarketRefreshJob(t *testing.T) {
	job := NewMarketRefreshJob(&fakeRefresher{refreshed: 3}, zerolog.Nop())
	assert.Equal(t, "market_refresh", job.Name())
	require.NoError(t, job.Run())

	failing := NewMarketRefreshJob(&fakeRefresher{err: errors.New("provider down")}, zerolog.Nop())
	assert.Error(t, failing.Run())
}

func TestExpiryCleanupJob(t *testing.T) {
	deleter := &fakeDeleter{deleted: 5}
	job := NewExpiryCleanupJob("analysis_cleanup", deleter, zerolog.Nop())

	assert.Equal(t, "analysis_cleanup", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, deleter.calls)
}

func TestTaskCleanupJobUsesRetention(t *testing.T) {
	deleter := &fakeTaskDeleter{}
	job := NewTaskCleanupJob(deleter, 48*time.Hour, zerolog.Nop())

	require.NoError(t, job.Run())
	age := time.Since(deleter.cutoff)
	assert.InDelta(t, 48*time.Hour, age, float64(time.Minute))
}

func TestSchedulerRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	deleter := &fakeDeleter{}

	require.NoError(t, s.RunNow(NewExpiryCleanupJob("recommendation_cleanup", deleter, zerolog.Nop())))
	assert.Equal(t, 1, deleter.calls)
}

func TestSchedulerAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", NewExpiryCleanupJob("x", &fakeDeleter{}, zerolog.Nop()))
	assert.Error(t, err)
}
