// Package tasks runs batch analysis jobs on a worker pool and tracks their
// lifecycle in cache.db.
package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// Repository handles the analysis_tasks table in cache.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a task repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "tasks").Logger(),
	}
}

// Create stores a new pending task.
func (r *Repository) Create(ctx context.Context, task *domain.AnalysisTask) error {
	symbols, err := json.Marshal(task.Symbols)
	if err != nil {
		return fmt.Errorf("failed to encode symbols: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_tasks (task_id, task_type, symbols, status, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		task.TaskID, string(task.Type), string(symbols), string(task.Status),
		task.Progress, task.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create task %s: %w", task.TaskID, err)
	}
	return nil
}

// Get returns a task by ID, (nil, nil) when unknown.
func (r *Repository) Get(ctx context.Context, taskID string) (*domain.AnalysisTask, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT task_id, task_type, symbols, status, progress, result, error_message,
		       created_at, started_at, completed_at
		FROM analysis_tasks WHERE task_id = ?`, taskID)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	return task, nil
}

// List returns recent tasks, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]domain.AnalysisTask, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, task_type, symbols, status, progress, result, error_message,
		       created_at, started_at, completed_at
		FROM analysis_tasks ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalysisTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

// MarkRunning transitions a pending task to running and stamps started_at.
// Returns false when the task is not pending anymore (cancelled meanwhile).
func (r *Repository) MarkRunning(ctx context.Context, taskID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE analysis_tasks SET status = ?, started_at = ?
		WHERE task_id = ? AND status = ?`,
		string(domain.TaskRunning), time.Now().UTC().Format(timeLayout),
		taskID, string(domain.TaskPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark task %s running: %w", taskID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetProgress updates the progress fraction in [0, 1].
func (r *Repository) SetProgress(ctx context.Context, taskID string, progress float64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE analysis_tasks SET progress = ? WHERE task_id = ?", progress, taskID)
	if err != nil {
		return fmt.Errorf("failed to set progress for task %s: %w", taskID, err)
	}
	return nil
}

// Complete stores the final status, result map, and error message.
func (r *Repository) Complete(ctx context.Context, taskID string, status domain.TaskStatus, result map[string]domain.SymbolResult, errMsg string) error {
	var resultBlob []byte
	if result != nil {
		var err error
		resultBlob, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode task result: %w", err)
		}
	}

	progressSQL := "progress"
	if status == domain.TaskCompleted {
		progressSQL = "1.0"
	}

	// A cancelled task keeps its status; only the partial result lands
	guard := "AND status != 'cancelled'"
	if status == domain.TaskCancelled {
		guard = ""
	}

	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE analysis_tasks
		SET status = ?, result = ?, error_message = ?, completed_at = ?, progress = %s
		WHERE task_id = ? %s`, progressSQL, guard),
		string(status), resultBlob, errMsg,
		time.Now().UTC().Format(timeLayout), taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete task %s: %w", taskID, err)
	}
	return nil
}

// MarkCancelled transitions a pending or running task to cancelled.
// Returns false when the task already reached a terminal state.
func (r *Repository) MarkCancelled(ctx context.Context, taskID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE analysis_tasks SET status = ?, completed_at = ?
		WHERE task_id = ? AND status IN (?, ?)`,
		string(domain.TaskCancelled), time.Now().UTC().Format(timeLayout),
		taskID, string(domain.TaskPending), string(domain.TaskRunning),
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel task %s: %w", taskID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Status returns just the current status, "" when the task is unknown.
func (r *Repository) Status(ctx context.Context, taskID string) (domain.TaskStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		"SELECT status FROM analysis_tasks WHERE task_id = ?", taskID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get status for task %s: %w", taskID, err)
	}
	return domain.TaskStatus(status), nil
}

// DeleteOlderThan removes terminal tasks created before the cutoff and
// returns the count.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM analysis_tasks
		WHERE created_at < ? AND status IN (?, ?, ?)`,
		cutoff.UTC().Format(timeLayout),
		string(domain.TaskCompleted), string(domain.TaskFailed), string(domain.TaskCancelled),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old tasks: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanTask(row interface{ Scan(...any) error }) (*domain.AnalysisTask, error) {
	var task domain.AnalysisTask
	var taskType, status, symbols, createdAt string
	var result []byte
	var startedAt, completedAt sql.NullString

	err := row.Scan(&task.TaskID, &taskType, &symbols, &status, &task.Progress,
		&result, &task.ErrorMessage, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	task.Type = domain.TaskType(taskType)
	task.Status = domain.TaskStatus(status)
	task.CreatedAt, _ = time.Parse(timeLayout, createdAt)

	if symbols != "" {
		_ = json.Unmarshal([]byte(symbols), &task.Symbols)
	}
	if len(result) > 0 {
		_ = json.Unmarshal(result, &task.Result)
	}
	if startedAt.Valid {
		t, _ := time.Parse(timeLayout, startedAt.String)
		task.StartedAt = &t
	}
	if completedAt.Valid {
		t, _ := time.Parse(timeLayout, completedAt.String)
		task.CompletedAt = &t
	}

	return &task, nil
}
