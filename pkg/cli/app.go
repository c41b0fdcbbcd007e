package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cadence/pkg/api"
	"github.com/harrisonrobin/cadence/pkg/config"
	"github.com/harrisonrobin/cadence/pkg/google"
	"github.com/harrisonrobin/cadence/pkg/logger"
	"github.com/harrisonrobin/cadence/pkg/mutation"
	"github.com/harrisonrobin/cadence/pkg/notify"
	"github.com/harrisonrobin/cadence/pkg/session"
	"github.com/harrisonrobin/cadence/pkg/store"
)

// app is the wired client for one command invocation.
type app struct {
	dir     string
	cfg     *config.Config
	logger  *slog.Logger
	events  *notify.Emitter
	session *session.Controller
	store   *store.TaskStore
	tasks   *mutation.Controller

	unsubscribe []func()
}

func configDir(opts *RootOptions) (string, error) {
	if opts.ConfigDir != "" {
		return opts.ConfigDir, nil
	}
	return config.GetConfigDir()
}

func newApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	dir, err := configDir(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logger.Setup(cmd.ErrOrStderr(), level)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (set one with `cadence config set-api-url`)", err)
	}

	client := api.NewClient(cfg.APIURL, nil, cfg.HTTPTimeout, log)
	events := notify.NewEmitter(log)
	sess := session.NewController(client, session.NewFileStorage(dir), events, log)
	if err := sess.Init(); err != nil {
		return nil, err
	}
	st := store.New(log)

	a := &app{
		dir:     dir,
		cfg:     cfg,
		logger:  log,
		events:  events,
		session: sess,
		store:   st,
		tasks:   mutation.NewController(client, st, sess, events, log),
	}
	a.subscribe(notify.Console{Out: cmd.OutOrStdout()})
	return a, nil
}

func (a *app) subscribe(h notify.Handler) {
	a.unsubscribe = append(a.unsubscribe, a.events.Subscribe(h))
}

// close detaches every handler so nothing writes after the command returns.
func (a *app) close() {
	for _, off := range a.unsubscribe {
		off()
	}
}

func (a *app) calendar(ctx context.Context) (*google.CalendarClient, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	return google.NewClient(ctx, google.Options{
		Dir:          a.dir,
		CalendarName: a.cfg.Calendar.Name,
		Location:     loc,
		Logger:       a.logger,
	})
}

// attachMirror subscribes the calendar mirror when it is enabled. A mirror
// that cannot start does not block the task change itself.
func (a *app) attachMirror(ctx context.Context) {
	if !a.cfg.Calendar.Enabled {
		return
	}
	cal, err := a.calendar(ctx)
	if err != nil {
		a.logger.Warn("calendar mirror unavailable", "error", err)
		return
	}
	a.subscribe(google.NewMirror(cal, a.logger))
}
