package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Emitter is an in-memory Bridge dispatching to subscribed handlers in
// subscription order.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	order    []int
	next     int
	logger   *slog.Logger
}

func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		handlers: make(map[int]Handler),
		logger:   logger.With("component", "notify_emitter"),
	}
}

// Subscribe registers h and returns a func that removes it again.
func (e *Emitter) Subscribe(h Handler) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	e.handlers[id] = h
	e.order = append(e.order, id)
	e.logger.Debug("registered handler", "handler_count", len(e.handlers))

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.handlers, id)
			for i, v := range e.order {
				if v == id {
					e.order = append(e.order[:i:i], e.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Notify delivers ev to every handler. A failing handler is logged and does
// not stop delivery to the rest.
func (e *Emitter) Notify(ctx context.Context, ev Event) {
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.order))
	for _, id := range e.order {
		handlers = append(handlers, e.handlers[id])
	}
	e.mu.RUnlock()

	e.logger.Debug("emitting event",
		"event_id", ev.ID,
		"event_kind", ev.Kind,
		"handler_count", len(handlers))

	for i, h := range handlers {
		if err := h.HandleEvent(ctx, ev); err != nil {
			e.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", ev.ID,
				"event_kind", ev.Kind)
		}
	}
}
