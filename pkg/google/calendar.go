package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/cadence/pkg/colors"
	"github.com/harrisonrobin/cadence/pkg/index"
	"github.com/harrisonrobin/cadence/pkg/model"
)

// CalendarClient mirrors tasks into a single Google calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	loc        *time.Location
	index      *index.EventIndex
	colors     *colors.Cache
	logger     *slog.Logger
}

// NewCalendarClient wraps srv. idx and cache may be nil.
func NewCalendarClient(srv *calendar.Service, calendarID string, loc *time.Location, idx *index.EventIndex, cache *colors.Cache, logger *slog.Logger) *CalendarClient {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarClient{
		srv:        srv,
		calendarID: calendarID,
		loc:        loc,
		index:      idx,
		colors:     cache,
		logger:     logger.With("component", "calendar", "calendar_id", calendarID),
	}
}

// MirrorTask creates the event for task, or patches the existing one when
// it has drifted.
func (c *CalendarClient) MirrorTask(ctx context.Context, task model.Task) (*calendar.Event, error) {
	colorID := ""
	if c.colors != nil {
		colorID = c.colors.ColorID(task.Category())
	}
	event, err := ConvertTask(task, c.loc, colorID)
	if err != nil {
		return nil, err
	}

	existing, err := c.findEvent(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		patch := eventPatch(existing, event)
		if patch == nil {
			c.remember(task.ID, existing.Id)
			return existing, nil
		}
		updated, err := c.PatchEvent(ctx, existing.Id, patch)
		if err != nil {
			return nil, fmt.Errorf("patch event for task %d: %w", task.ID, err)
		}
		c.remember(task.ID, updated.Id)
		c.logger.Debug("event patched", "task_id", task.ID, "event_id", updated.Id)
		return updated, nil
	}

	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert event for task %d: %w", task.ID, err)
	}
	c.remember(task.ID, created.Id)
	c.logger.Debug("event created", "task_id", task.ID, "event_id", created.Id)
	return created, nil
}

// RemoveTask deletes the event mirroring taskID. A task never mirrored is
// not an error.
func (c *CalendarClient) RemoveTask(ctx context.Context, taskID int64) error {
	existing, err := c.findEvent(ctx, taskID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if err := c.DeleteEvent(ctx, existing.Id); err != nil && !isGone(err) {
		return fmt.Errorf("delete event for task %d: %w", taskID, err)
	}
	if c.index != nil {
		c.index.Remove(taskID)
	}
	c.logger.Debug("event deleted", "task_id", taskID, "event_id", existing.Id)
	return nil
}

// MirroredTaskIDs lists the tasks the local index holds events for.
func (c *CalendarClient) MirroredTaskIDs() []int64 {
	if c.index == nil {
		return nil
	}
	return c.index.TaskIDs()
}

func (c *CalendarClient) remember(taskID int64, eventID string) {
	if c.index != nil {
		c.index.Set(taskID, eventID)
	}
}

// findEvent checks the local index first and falls back to searching the
// extended property.
func (c *CalendarClient) findEvent(ctx context.Context, taskID int64) (*calendar.Event, error) {
	if c.index != nil {
		if eventID := c.index.Get(taskID); eventID != "" {
			ev, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			if err == nil && ev.Status != "cancelled" {
				return ev, nil
			}
			c.index.Remove(taskID)
		}
	}

	ev, err := c.GetEventByTaskID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("error searching for event: %w", err)
	}
	return ev, nil
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

// GetEventByTaskID searches for the event whose private extended property
// matches taskID.
func (c *CalendarClient) GetEventByTaskID(ctx context.Context, taskID int64) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(TaskIDProperty + "=" + strconv.FormatInt(taskID, 10)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}
