package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/cadence/pkg/model"
)

// TaskIDProperty is the private extended property carrying the task id.
const TaskIDProperty = "cadence_task_id"

const defaultDuration = 30 * time.Minute

var (
	dateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339}
	// The server may emit a time of day or a duration-style value
	// such as "9:30:00"; both parse with a non-padded hour.
	clockLayouts = []string{"15:04:05", "15:04"}
)

// ErrNoDueDate is returned for tasks whose due date cannot be placed on a calendar.
var ErrNoDueDate = errors.New("task has no usable due date")

// ParseDue combines the opaque due strings into a start time in loc. An
// unparseable time of day falls back to midnight.
func ParseDue(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, ErrNoDueDate
	}

	var day time.Time
	var err error
	for _, layout := range dateLayouts {
		if day, err = time.ParseInLocation(layout, date, loc); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNoDueDate, date)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	clock = strings.TrimSpace(clock)
	for _, layout := range clockLayouts {
		if tod, err := time.Parse(layout, clock); err == nil {
			return start.Add(time.Duration(tod.Hour())*time.Hour +
				time.Duration(tod.Minute())*time.Minute +
				time.Duration(tod.Second())*time.Second), nil
		}
	}
	return start, nil
}

// RecurrenceRule maps a frequency to an RRULE; unknown categories get none.
func RecurrenceRule(f model.Frequency) []string {
	switch f.Normalize() {
	case model.DAILY:
		return []string{"RRULE:FREQ=DAILY"}
	case model.WEEKLY:
		return []string{"RRULE:FREQ=WEEKLY"}
	case model.MONTHLY:
		return []string{"RRULE:FREQ=MONTHLY"}
	}
	return nil
}

// ConvertTask builds the calendar event mirroring t.
func ConvertTask(t model.Task, loc *time.Location, colorID string) (*calendar.Event, error) {
	start, err := ParseDue(t.DueDate, t.DueTime, loc)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", t.ID, err)
	}
	end := start.Add(defaultDuration)

	var desc strings.Builder
	if t.Description != "" {
		desc.WriteString(t.Description)
		desc.WriteString("\n\n")
	}
	fmt.Fprintf(&desc, "Frequency: %s\n", t.Category())
	fmt.Fprintf(&desc, "Task ID: %d\n", t.ID)

	return &calendar.Event{
		Summary:     t.Title,
		Description: desc.String(),
		ColorId:     colorID,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		Recurrence: RecurrenceRule(t.Category()),
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				TaskIDProperty: strconv.FormatInt(t.ID, 10),
			},
		},
	}, nil
}

// eventPatch returns the fields of target that differ from existing, or nil
// when the event is already up to date.
func eventPatch(existing, target *calendar.Event) *calendar.Event {
	patch := &calendar.Event{}
	changed := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		changed = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		changed = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		changed = true
	}
	if !sameInstant(existing.Start, target.Start) || !sameInstant(existing.End, target.End) {
		patch.Start = target.Start
		patch.End = target.End
		changed = true
	}
	if strings.Join(existing.Recurrence, "\n") != strings.Join(target.Recurrence, "\n") {
		patch.Recurrence = target.Recurrence
		if len(target.Recurrence) == 0 {
			patch.NullFields = append(patch.NullFields, "Recurrence")
		}
		changed = true
	}

	if !changed {
		return nil
	}
	return patch
}

func sameInstant(a, b *calendar.EventDateTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, errA := time.Parse(time.RFC3339, a.DateTime)
	tb, errB := time.Parse(time.RFC3339, b.DateTime)
	if errA != nil || errB != nil {
		return false
	}
	return ta.Equal(tb)
}
