package tasks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/stockpulse/stockpulse/internal/domain"
)

// Handler handles task HTTP requests, including the WebSocket progress
// stream.
type Handler struct {
	repo   *Repository
	runner *Runner
	log    zerolog.Logger
}

// NewHandler creates a tasks handler.
func NewHandler(repo *Repository, runner *Runner, log zerolog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		runner: runner,
		log:    log.With().Str("handler", "tasks").Logger(),
	}
}

// RegisterRoutes mounts the task endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/tasks", func(r chi.Router) {
		r.Post("/", h.HandleSubmit)
		r.Get("/", h.HandleList)
		r.Get("/{taskID}", h.HandleGet)
		r.Delete("/{taskID}", h.HandleCancel)
		r.Get("/{taskID}/ws", h.HandleProgressStream)
	})
}

type submitRequest struct {
	Type    string   `json:"task_type"`
	Symbols []string `json:"symbols"`
}

// HandleSubmit handles POST /api/tasks
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.runner.Submit(r.Context(), domain.TaskType(req.Type), req.Symbols)
	if err != nil {
		h.log.Warn().Err(err).Str("task_type", req.Type).Msg("Task submission rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusAccepted, envelope(task))
}

// HandleList handles GET /api/tasks?limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	list, err := h.repo.List(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list tasks")
		http.Error(w, "Failed to list tasks", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []domain.AnalysisTask{}
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"tasks": list,
		"count": len(list),
	}))
}

// HandleGet handles GET /api/tasks/{taskID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := h.repo.Get(r.Context(), taskID)
	if err != nil {
		h.log.Error().Err(err).Str("task_id", taskID).Msg("Failed to get task")
		http.Error(w, "Failed to get task", http.StatusInternalServerError)
		return
	}
	if task == nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(task))
}

// HandleCancel handles DELETE /api/tasks/{taskID}
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	err := h.runner.Cancel(r.Context(), taskID)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
			"task_id": taskID,
			"status":  string(domain.TaskCancelled),
		}))
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Task not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrTaskNotCancellable):
		http.Error(w, "Task already finished", http.StatusConflict)
	default:
		h.log.Error().Err(err).Str("task_id", taskID).Msg("Failed to cancel task")
		http.Error(w, "Failed to cancel task", http.StatusInternalServerError)
	}
}

// HandleProgressStream handles GET /api/tasks/{taskID}/ws
// Streams progress updates over a WebSocket until the task reaches a
// terminal state or the client disconnects.
func (h *Handler) HandleProgressStream(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := h.repo.Get(r.Context(), taskID)
	if err != nil || task == nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream finished")

	ctx := r.Context()

	// Current state first so late subscribers see where the task stands
	initial := ProgressUpdate{
		TaskID:   task.TaskID,
		Status:   string(task.Status),
		Progress: task.Progress,
	}
	if err := wsjson.Write(ctx, conn, initial); err != nil {
		return
	}
	if task.Status.Terminal() {
		return
	}

	updates, unsubscribe := h.runner.Hub().Subscribe(taskID)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			if err := wsjson.Write(ctx, conn, update); err != nil {
				return
			}
			if domain.TaskStatus(update.Status).Terminal() {
				return
			}
		}
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}
