package tasks

import "sync"

// ProgressUpdate is one task state change pushed to subscribers.
type ProgressUpdate struct {
	TaskID   string  `json:"task_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Symbol   string  `json:"symbol,omitempty"`
}

// ProgressHub fans task updates out to WebSocket subscribers. Slow
// subscribers drop updates instead of blocking the runner.
type ProgressHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan ProgressUpdate]struct{}
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		subs: map[string]map[chan ProgressUpdate]struct{}{},
	}
}

// Subscribe registers a listener for one task. The returned cancel func
// must be called when the listener goes away.
func (h *ProgressHub) Subscribe(taskID string) (<-chan ProgressUpdate, func()) {
	ch := make(chan ProgressUpdate, 16)

	h.mu.Lock()
	if h.subs[taskID] == nil {
		h.subs[taskID] = map[chan ProgressUpdate]struct{}{}
	}
	h.subs[taskID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[taskID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, taskID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish pushes an update to every subscriber of the task.
func (h *ProgressHub) Publish(update ProgressUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[update.TaskID] {
		select {
		case ch <- update:
		default:
			// Subscriber is not keeping up, drop the update
		}
	}
}
