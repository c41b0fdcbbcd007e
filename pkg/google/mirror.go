package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/cadence/pkg/model"
	"github.com/harrisonrobin/cadence/pkg/notify"
)

// TaskMirror is what Mirror needs from the calendar.
type TaskMirror interface {
	MirrorTask(ctx context.Context, task model.Task) (*calendar.Event, error)
	RemoveTask(ctx context.Context, taskID int64) error
	MirroredTaskIDs() []int64
	Flush() error
}

// Mirror keeps the calendar in step with confirmed task mutations. It only
// reacts to success events, so the calendar never runs ahead of the server.
type Mirror struct {
	cal    TaskMirror
	logger *slog.Logger
}

func NewMirror(cal TaskMirror, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{cal: cal, logger: logger.With("component", "calendar_mirror")}
}

// HandleEvent implements notify.Handler.
func (m *Mirror) HandleEvent(ctx context.Context, ev notify.Event) error {
	var err error
	switch ev.Kind {
	case notify.TaskDeleted:
		err = m.cal.RemoveTask(ctx, ev.TaskID)
	case notify.TaskUpdated, notify.TaskCreated:
		if ev.Task == nil {
			return nil
		}
		_, err = m.cal.MirrorTask(ctx, *ev.Task)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("mirror %s for task %d: %w", ev.Kind, ev.TaskID, err)
	}
	return m.cal.Flush()
}

// Result summarizes a full mirror run.
type Result struct {
	Mirrored int
	Skipped  int
	Removed  int
}

// MirrorAll mirrors every task and removes events whose task is no longer on
// the server. Tasks without a usable due date are skipped.
func (m *Mirror) MirrorAll(ctx context.Context, tasks []model.Task) (Result, error) {
	var res Result
	var errs []error
	current := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		current[t.ID] = true
		if _, err := m.cal.MirrorTask(ctx, t); err != nil {
			if errors.Is(err, ErrNoDueDate) {
				m.logger.Warn("skipping task without due date", "task_id", t.ID)
				res.Skipped++
				continue
			}
			errs = append(errs, err)
			continue
		}
		res.Mirrored++
	}

	for _, id := range m.cal.MirroredTaskIDs() {
		if current[id] {
			continue
		}
		if err := m.cal.RemoveTask(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("remove stale event for task %d: %w", id, err))
			continue
		}
		m.logger.Info("removed event for deleted task", "task_id", id)
		res.Removed++
	}

	if err := m.cal.Flush(); err != nil {
		errs = append(errs, err)
	}
	return res, errors.Join(errs...)
}
