package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/stockpulse/internal/database"
	"github.com/stockpulse/stockpulse/internal/domain"
)

func newCacheDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return db.Conn()
}

func newTask(taskType domain.TaskType, symbols ...string) *domain.AnalysisTask {
	return &domain.AnalysisTask{
		TaskID:    uuid.NewString(),
		Type:      taskType,
		Symbols:   symbols,
		Status:    domain.TaskPending,
		CreatedAt: time.Now().UTC(),
	}
}

func TestTaskLifecycle(t *testing.T) {
	repo := NewRepository(newCacheDB(t), zerolog.Nop())
	ctx := context.Background()

	task := newTask(domain.TaskBatchStocks, "AAPL", "MSFT")
	require.NoError(t, repo.Create(ctx, task))

	got, err := repo.Get(ctx, task.TaskID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.TaskPending, got.Status)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got.Symbols)
	assert.Nil(t, got.StartedAt)

	ok, err := repo.MarkRunning(ctx, task.TaskID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Already running, second transition is a no-op
	ok, err = repo.MarkRunning(ctx, task.TaskID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SetProgress(ctx, task.TaskID, 0.5))

	result := map[string]domain.SymbolResult{
		"AAPL": {Status: "success", Label: "buy", Score: 0.7},
		"MSFT": {Status: "error", Error: "provider down"},
	}
	require.NoError(t, repo.Complete(ctx, task.TaskID, domain.TaskCompleted, result, ""))

	got, err = repo.Get(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, got.Status)
	assert.InDelta(t, 1.0, got.Progress, 1e-9, "completion snaps progress to 1")
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	require.Len(t, got.Result, 2)
	assert.Equal(t, "success", got.Result["AAPL"].Status)
	assert.Equal(t, "provider down", got.Result["MSFT"].Error)
}

func TestGetUnknownTask(t *testing.T) {
	repo := NewRepository(newCacheDB(t), zerolog.Nop())

	task, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestMarkCancelled(t *testing.T) {
	repo := NewRepository(newCacheDB(t), zerolog.Nop())
	ctx := context.Background()

	task := newTask(domain.TaskSingleStock, "AAPL")
	require.NoError(t, repo.Create(ctx, task))

	ok, err := repo.MarkCancelled(ctx, task.TaskID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Terminal now, cannot cancel again
	ok, err = repo.MarkCancelled(ctx, task.TaskID)
	require.NoError(t, err)
	assert.False(t, ok)

	// A cancelled task cannot be started either
	ok, err = repo.MarkRunning(ctx, task.TaskID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompleteDoesNotOverrideCancelled(t *testing.T) {
	repo := NewRepository(newCacheDB(t), zerolog.Nop())
	ctx := context.Background()

	task := newTask(domain.TaskSingleStock, "AAPL")
	require.NoError(t, repo.Create(ctx, task))
	_, err := repo.MarkCancelled(ctx, task.TaskID)
	require.NoError(t, err)

	require.NoError(t, repo.Complete(ctx, task.TaskID, domain.TaskCompleted, nil, ""))

	status, err := repo.Status(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCancelled, status)
}

func TestDeleteOlderThanKeepsActiveTasks(t *testing.T) {
	repo := NewRepository(newCacheDB(t), zerolog.Nop())
	ctx := context.Background()

	old := newTask(domain.TaskSingleStock, "AAPL")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Complete(ctx, old.TaskID, domain.TaskCompleted, nil, ""))

	// Old but still pending: must survive
	stale := newTask(domain.TaskSingleStock, "MSFT")
	stale.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, repo.Create(ctx, stale))

	fresh := newTask(domain.TaskSingleStock, "GOOG")
	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, repo.Complete(ctx, fresh.TaskID, domain.TaskCompleted, nil, ""))

	n, err := repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}
