// Package notify carries mutation and session outcomes to whatever presents them.
//
// Controllers publish Events through a Bridge. The Emitter fans them out to
// subscribed Handlers; a view that goes away unsubscribes and so never sees
// updates for requests that finish after it is gone.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/cadence/pkg/api"
	"github.com/harrisonrobin/cadence/pkg/model"
)

// Kind names what happened.
type Kind string

const (
	TaskDeleted    Kind = "task.deleted"
	TaskUpdated    Kind = "task.updated"
	TaskCreated    Kind = "task.created"
	TasksRefreshed Kind = "tasks.refreshed"
	TaskError      Kind = "task.error"
	LoginSucceeded Kind = "session.login"
	Registered     Kind = "session.registered"
	LoggedOut      Kind = "session.logout"
	SessionError   Kind = "session.error"
)

// Level is how an event should be presented.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Event is one outcome. Failure is set for error and warning events.
// Task is the affected record as it stood when the event was raised.
// Route is a navigation hint ("/" after login, "/login" after registration).
type Event struct {
	ID      uuid.UUID
	Kind    Kind
	Level   Level
	TaskID  int64
	Message string
	Failure api.Kind
	Route   string
	Task    *model.Task
	At      time.Time
}

// Bridge receives outcome events.
type Bridge interface {
	Notify(ctx context.Context, ev Event)
}

// Handler consumes events delivered by an Emitter.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Success builds a success event.
func Success(kind Kind, message string) Event {
	return newEvent(kind, LevelSuccess, message)
}

// Failure builds an error event, or a warning for validation failures.
func Failure(kind Kind, err error, message string) Event {
	level := LevelError
	failure := api.KindOf(err)
	if failure == api.KindValidation {
		level = LevelWarning
	}
	ev := newEvent(kind, level, message)
	ev.Failure = failure
	return ev
}

// ForTask attaches t to the event.
func (ev Event) ForTask(t model.Task) Event {
	ev.TaskID = t.ID
	ev.Task = &t
	return ev
}

func newEvent(kind Kind, level Level, message string) Event {
	return Event{
		ID:      uuid.New(),
		Kind:    kind,
		Level:   level,
		Message: message,
		At:      time.Now(),
	}
}
