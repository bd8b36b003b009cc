package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
)

// Analyzer generates AI analyses for one symbol.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) ([]domain.AnalysisRecord, error)
}

// Recommender scores one symbol and stores the recommendation.
type Recommender interface {
	Get(ctx context.Context, symbol string, force bool) (*domain.Recommendation, error)
}

// SymbolLister supplies the universe for market scans.
type SymbolLister interface {
	ListSymbols(ctx context.Context) ([]string, error)
}

// Runner executes analysis tasks on a fixed worker pool. Tasks are
// cancellable between symbols; a running symbol finishes before the
// cancellation takes effect.
type Runner struct {
	repo        *Repository
	analyzer    Analyzer
	recommender Recommender
	lister      SymbolLister
	hub         *ProgressHub
	log         zerolog.Logger

	workers int
	queue   chan string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	wg      sync.WaitGroup
	stopped chan struct{}
}

// NewRunner creates a task runner with the given pool size.
func NewRunner(repo *Repository, analyzer Analyzer, recommender Recommender, lister SymbolLister, workers int, log zerolog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		repo:        repo,
		analyzer:    analyzer,
		recommender: recommender,
		lister:      lister,
		hub:         NewProgressHub(),
		log:         log.With().Str("component", "task_runner").Logger(),
		workers:     workers,
		queue:       make(chan string, 64),
		cancels:     map[string]context.CancelFunc{},
		stopped:     make(chan struct{}),
	}
}

// Hub exposes the progress hub for the WebSocket handler.
func (r *Runner) Hub() *ProgressHub { return r.hub }

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func(worker int) {
			defer r.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case taskID := <-r.queue:
					r.execute(ctx, taskID)
				}
			}
		}(i)
	}

	go func() {
		r.wg.Wait()
		close(r.stopped)
	}()

	r.log.Info().Int("workers", r.workers).Msg("Task runner started")
}

// Wait blocks until every worker has exited after Start's context was
// cancelled.
func (r *Runner) Wait() {
	<-r.stopped
}

// Submit creates a task and enqueues it. Returns the pending task record.
func (r *Runner) Submit(ctx context.Context, taskType domain.TaskType, symbols []string) (*domain.AnalysisTask, error) {
	switch taskType {
	case domain.TaskSingleStock:
		if len(symbols) != 1 {
			return nil, fmt.Errorf("single_stock task needs exactly one symbol")
		}
	case domain.TaskBatchStocks:
		if len(symbols) == 0 {
			return nil, fmt.Errorf("batch_stocks task needs at least one symbol")
		}
	case domain.TaskMarketScan:
		// Universe is resolved at run time
		symbols = nil
	default:
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	task := &domain.AnalysisTask{
		TaskID:    uuid.NewString(),
		Type:      taskType,
		Symbols:   symbols,
		Status:    domain.TaskPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	select {
	case r.queue <- task.TaskID:
	default:
		_, _ = r.repo.MarkCancelled(ctx, task.TaskID)
		return nil, fmt.Errorf("task queue is full")
	}

	r.log.Info().
		Str("task_id", task.TaskID).
		Str("task_type", string(taskType)).
		Int("symbols", len(symbols)).
		Msg("Task submitted")

	return task, nil
}

// Cancel requests cancellation of a task. Pending tasks are cancelled
// immediately; running tasks stop after the current symbol.
func (r *Runner) Cancel(ctx context.Context, taskID string) error {
	status, err := r.repo.Status(ctx, taskID)
	if err != nil {
		return err
	}
	if status == "" {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if status.Terminal() {
		return fmt.Errorf("task %s is %s: %w", taskID, status, domain.ErrTaskNotCancellable)
	}

	ok, err := r.repo.MarkCancelled(ctx, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotCancellable)
	}

	r.mu.Lock()
	if cancel, found := r.cancels[taskID]; found {
		cancel()
	}
	r.mu.Unlock()

	r.hub.Publish(ProgressUpdate{TaskID: taskID, Status: string(domain.TaskCancelled)})
	return nil
}

func (r *Runner) execute(ctx context.Context, taskID string) {
	task, err := r.repo.Get(ctx, taskID)
	if err != nil || task == nil {
		r.log.Error().Err(err).Str("task_id", taskID).Msg("Failed to load task")
		return
	}

	ok, err := r.repo.MarkRunning(ctx, taskID)
	if err != nil {
		r.log.Error().Err(err).Str("task_id", taskID).Msg("Failed to mark task running")
		return
	}
	if !ok {
		// Cancelled while queued
		return
	}

	taskCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancels[taskID] = cancel
	r.mu.Unlock()
	defer func() {
		cancel()
		r.mu.Lock()
		delete(r.cancels, taskID)
		r.mu.Unlock()
	}()

	symbols := task.Symbols
	if task.Type == domain.TaskMarketScan {
		symbols, err = r.lister.ListSymbols(taskCtx)
		if err != nil {
			r.finish(ctx, taskID, domain.TaskFailed, nil, fmt.Sprintf("failed to list symbols: %v", err))
			return
		}
	}

	if len(symbols) == 0 {
		r.finish(ctx, taskID, domain.TaskCompleted, map[string]domain.SymbolResult{}, "")
		return
	}

	result := map[string]domain.SymbolResult{}
	for i, symbol := range symbols {
		if taskCtx.Err() != nil {
			// Cancel already set the terminal status; keep partial results
			_ = r.repo.Complete(ctx, taskID, domain.TaskCancelled, result, "")
			return
		}

		result[symbol] = r.processSymbol(taskCtx, symbol)

		progress := float64(i+1) / float64(len(symbols))
		if err := r.repo.SetProgress(ctx, taskID, progress); err != nil {
			r.log.Warn().Err(err).Str("task_id", taskID).Msg("Failed to update progress")
		}
		r.hub.Publish(ProgressUpdate{
			TaskID:   taskID,
			Status:   string(domain.TaskRunning),
			Progress: progress,
			Symbol:   symbol,
		})
	}

	r.finish(ctx, taskID, domain.TaskCompleted, result, "")
}

// processSymbol runs the per-instrument pipeline: AI analysis first, then
// scoring. Analysis failure degrades to partial; scoring failure is an
// error entry. Neither aborts the batch.
func (r *Runner) processSymbol(ctx context.Context, symbol string) domain.SymbolResult {
	analysisOK := true
	if _, err := r.analyzer.Analyze(ctx, symbol); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("Analysis failed, scoring with stored data")
		analysisOK = false
	}

	rec, err := r.recommender.Get(ctx, symbol, true)
	if err != nil {
		return domain.SymbolResult{Status: "error", Error: err.Error()}
	}

	res := domain.SymbolResult{
		Status: "success",
		Label:  string(rec.Label),
		Score:  rec.TotalScore,
	}
	if !analysisOK {
		res.Status = "partial"
	}
	return res
}

func (r *Runner) finish(ctx context.Context, taskID string, status domain.TaskStatus, result map[string]domain.SymbolResult, errMsg string) {
	if err := r.repo.Complete(ctx, taskID, status, result, errMsg); err != nil {
		r.log.Error().Err(err).Str("task_id", taskID).Msg("Failed to finalize task")
		return
	}

	progress := 0.0
	if status == domain.TaskCompleted {
		progress = 1.0
	}
	r.hub.Publish(ProgressUpdate{TaskID: taskID, Status: string(status), Progress: progress})
}
