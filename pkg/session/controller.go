package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/harrisonrobin/cadence/pkg/api"
	"github.com/harrisonrobin/cadence/pkg/notify"
)

// State of the session flow.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	// RegistrationPending follows a successful registration. It does not
	// authenticate; the user still has to log in.
	RegistrationPending
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case RegistrationPending:
		return "registration_pending"
	default:
		return "anonymous"
	}
}

// Routes handed to the presenter alongside success events.
const (
	RouteHome  = "/"
	RouteLogin = "/login"
)

// Messages shown through the bridge.
const (
	MsgLoginSucceeded      = "Login successful!"
	MsgLoginFailed         = "Login failed"
	MsgLoginUnavailable    = "Service unavailable or invalid credentials"
	MsgCredentialsRequired = "Email and password are required"
	MsgRegistered          = "Registration successful"
	MsgRegisterFailed      = "Registration failed"
	MsgFieldsRequired      = "All fields are required"
	MsgLoggedOut           = "Logged out"
)

var (
	// ErrBusy is returned when a login or registration is already being processed.
	ErrBusy = errors.New("authentication already in progress")
	// ErrSignedIn is returned by Login and Register while a session is active.
	ErrSignedIn = errors.New("already signed in, log out first")
)

// AuthAPI is the server-facing boundary for the session flow.
type AuthAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (api.User, error)
	Register(ctx context.Context, req api.RegisterRequest) (string, error)
}

// Controller drives login and registration and owns the persisted session.
type Controller struct {
	api      AuthAPI
	storage  Storage
	bridge   notify.Bridge
	validate *validator.Validate
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	current *Session
}

func NewController(authAPI AuthAPI, storage Storage, bridge notify.Bridge, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		api:      authAPI,
		storage:  storage,
		bridge:   bridge,
		validate: validator.New(),
		logger:   logger.With("component", "session_controller"),
	}
}

// Init restores a persisted session, if there is one. An unreadable session
// is cleared so the user can log in again.
func (c *Controller) Init() error {
	s, err := c.storage.Load()
	if err != nil {
		c.logger.Warn("discarding unreadable session", "error", err)
		if cerr := c.storage.Clear(); cerr != nil {
			return fmt.Errorf("restore session: %w", errors.Join(err, cerr))
		}
		s = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s == nil {
		c.state, c.current = Anonymous, nil
		return nil
	}
	c.state, c.current = Authenticated, s
	c.logger.Debug("session restored", "user_id", s.UserID)
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the active session.
func (c *Controller) Current() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Authenticated || c.current == nil {
		return Session{}, false
	}
	return *c.current, true
}

// UserID returns the signed-in user's id.
func (c *Controller) UserID() (int64, bool) {
	s, ok := c.Current()
	return s.UserID, ok
}

// begin moves to Authenticating from Anonymous or RegistrationPending.
func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Authenticating:
		return ErrBusy
	case Authenticated:
		return ErrSignedIn
	}
	c.state = Authenticating
	return nil
}

func (c *Controller) settle(state State, s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state, c.current = state, s
}

// Login submits credentials. On success the session is persisted and a
// navigation-ready event is emitted; otherwise the controller returns to
// Anonymous.
func (c *Controller) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		err := api.Validation("login", MsgCredentialsRequired)
		c.bridge.Notify(ctx, notify.Failure(notify.SessionError, err, err.Message))
		return Session{}, err
	}
	if err := c.begin(); err != nil {
		return Session{}, err
	}

	user, err := c.api.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		c.settle(Anonymous, nil)
		msg := api.Describe(err, MsgLoginFailed)
		if api.KindOf(err) == api.KindNetwork {
			msg = MsgLoginUnavailable
		}
		c.logger.Warn("login failed", "failure", api.KindOf(err), "error", err)
		c.bridge.Notify(ctx, notify.Failure(notify.SessionError, err, msg))
		return Session{}, fmt.Errorf("login: %w", err)
	}

	s := Session{UserID: user.ID, Username: user.Username}
	if err := c.storage.Save(s); err != nil {
		// The round trip succeeded; the session still holds for this run.
		c.logger.Error("failed to persist session", "error", err)
	}
	c.settle(Authenticated, &s)
	c.logger.Info("logged in", "user_id", s.UserID)

	ev := notify.Success(notify.LoginSucceeded, MsgLoginSucceeded)
	ev.Route = RouteHome
	c.bridge.Notify(ctx, ev)
	return s, nil
}

// Register submits the registration form. Success never creates a session;
// it hands the user on to the login flow.
func (c *Controller) Register(ctx context.Context, form api.RegisterRequest) error {
	if err := c.validate.Struct(form); err != nil {
		verr := api.Validation("register", MsgFieldsRequired)
		c.logger.Debug("registration rejected locally", "error", err)
		c.bridge.Notify(ctx, notify.Failure(notify.SessionError, verr, verr.Message))
		return verr
	}
	if err := c.begin(); err != nil {
		return err
	}

	if _, err := c.api.Register(ctx, form); err != nil {
		c.settle(Anonymous, nil)
		c.logger.Warn("registration failed", "failure", api.KindOf(err), "error", err)
		c.bridge.Notify(ctx, notify.Failure(notify.SessionError, err, api.Describe(err, MsgRegisterFailed)))
		return fmt.Errorf("register: %w", err)
	}

	c.settle(RegistrationPending, nil)
	c.logger.Info("registered", "username", form.Username)

	ev := notify.Success(notify.Registered, MsgRegistered)
	ev.Route = RouteLogin
	c.bridge.Notify(ctx, ev)
	return nil
}

// Logout clears the persisted session.
func (c *Controller) Logout(ctx context.Context) error {
	if err := c.storage.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	c.settle(Anonymous, nil)
	c.bridge.Notify(ctx, notify.Success(notify.LoggedOut, MsgLoggedOut))
	return nil
}
