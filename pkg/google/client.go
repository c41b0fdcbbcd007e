package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/cadence/pkg/auth"
	"github.com/harrisonrobin/cadence/pkg/colors"
	"github.com/harrisonrobin/cadence/pkg/index"
)

// Options configures NewClient.
type Options struct {
	// Dir holds credentials.json, the token and the local caches.
	Dir          string
	CalendarName string
	Location     *time.Location
	Logger       *slog.Logger
}

// NewClient authorizes against Google, resolves the named calendar and
// opens the local event index and color cache.
func NewClient(ctx context.Context, opts Options) (*CalendarClient, error) {
	httpClient, err := auth.GetClient(ctx, opts.Dir, auth.Scopes)
	if err != nil {
		return nil, err
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}

	calendarID, err := FindCalendar(ctx, srv, opts.CalendarName)
	if err != nil {
		return nil, err
	}

	idx, err := index.NewEventIndex(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("open event index: %w", err)
	}
	cache, err := colors.NewCache(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("open color cache: %w", err)
	}
	return NewCalendarClient(srv, calendarID, opts.Location, idx, cache, opts.Logger), nil
}

// FindCalendar returns the id of the calendar whose summary is name.
func FindCalendar(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	list, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	for _, item := range list.Items {
		if item.Summary == name {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar %q not found", name)
}

// Flush persists the event index and color cache.
func (c *CalendarClient) Flush() error {
	if c.index != nil {
		if err := c.index.Save(); err != nil {
			return fmt.Errorf("save event index: %w", err)
		}
	}
	if c.colors != nil {
		if err := c.colors.Save(); err != nil {
			return fmt.Errorf("save color cache: %w", err)
		}
	}
	return nil
}
