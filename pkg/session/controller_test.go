package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/cadence/pkg/api"
	"github.com/harrisonrobin/cadence/pkg/notify"
)

type fixture struct {
	ctrl    *Controller
	storage *FileStorage
	rec     *notify.Recorder
	calls   *atomic.Int32
}

func newFixture(t *testing.T, h http.HandlerFunc) fixture {
	t.Helper()
	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	storage := NewFileStorage(t.TempDir())
	rec := &notify.Recorder{}
	ctrl := NewController(api.NewClient(srv.URL, nil, 5*time.Second, nil), storage, rec, nil)
	require.NoError(t, ctrl.Init())
	return fixture{ctrl: ctrl, storage: storage, rec: rec, calls: calls}
}

func respond(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func raw(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func loginOK(w http.ResponseWriter, r *http.Request) {
	respond(http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    map[string]any{"id": 1, "username": "alice"},
	})(w, r)
}

func TestLoginSuccessPersistsSession(t *testing.T) {
	f := newFixture(t, loginOK)

	s, err := f.ctrl.Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, Session{UserID: 1, Username: "alice"}, s)
	assert.Equal(t, Authenticated, f.ctrl.State())
	uid, ok := f.ctrl.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(1), uid)

	stored, err := f.storage.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(1), stored.UserID)
	assert.Equal(t, "alice", stored.Username)

	ev, _ := f.rec.Last()
	assert.Equal(t, notify.LoginSucceeded, ev.Kind)
	assert.Equal(t, RouteHome, ev.Route)
}

func TestLoginRejected(t *testing.T) {
	f := newFixture(t, respond(http.StatusUnauthorized, map[string]string{"message": "Invalid password"}))

	_, err := f.ctrl.Login(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, api.ErrServerRejected)

	assert.Equal(t, Anonymous, f.ctrl.State())
	_, ok := f.ctrl.Current()
	assert.False(t, ok)
	stored, _ := f.storage.Load()
	assert.Nil(t, stored)

	ev, _ := f.rec.Last()
	assert.Equal(t, notify.SessionError, ev.Kind)
	assert.Equal(t, "Invalid password", ev.Message)
}

func TestLoginSuccessShapedButWrongMessage(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, map[string]string{"message": "Account disabled"}))

	_, err := f.ctrl.Login(context.Background(), "a@example.com", "pw")
	require.Error(t, err)

	assert.Equal(t, Anonymous, f.ctrl.State())
	ev, _ := f.rec.Last()
	assert.Equal(t, "Account disabled", ev.Message)
}

func TestLoginRejectedWithoutMessage(t *testing.T) {
	f := newFixture(t, raw(http.StatusInternalServerError, ""))

	_, err := f.ctrl.Login(context.Background(), "a@example.com", "pw")
	require.Error(t, err)

	ev, _ := f.rec.Last()
	assert.Equal(t, MsgLoginFailed, ev.Message)
}

func TestLoginTransportFailure(t *testing.T) {
	storage := NewFileStorage(t.TempDir())
	rec := &notify.Recorder{}
	ctrl := NewController(api.NewClient("http://127.0.0.1:1", nil, time.Second, nil), storage, rec, nil)

	_, err := ctrl.Login(context.Background(), "a@example.com", "pw")
	assert.ErrorIs(t, err, api.ErrNetworkFailure)
	assert.Equal(t, Anonymous, ctrl.State())

	ev, _ := rec.Last()
	assert.Equal(t, MsgLoginUnavailable, ev.Message)
	assert.Equal(t, api.KindNetwork, ev.Failure)
}

func TestLoginRequiresFields(t *testing.T) {
	f := newFixture(t, loginOK)

	_, err := f.ctrl.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, api.ErrValidation)
	assert.Equal(t, int32(0), f.calls.Load())
	assert.Equal(t, Anonymous, f.ctrl.State())
}

func TestLoginRejectsSecondSubmissionWhileAuthenticating(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		loginOK(w, r)
	})

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Login(context.Background(), "a@example.com", "pw")
		done <- err
	}()

	<-arrived
	assert.Equal(t, Authenticating, f.ctrl.State())
	_, err := f.ctrl.Login(context.Background(), "a@example.com", "pw")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, f.ctrl.Register(context.Background(), api.RegisterRequest{Username: "u", Email: "e", Password: "p"}), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, Authenticated, f.ctrl.State())
}

func TestInitRestoresSession(t *testing.T) {
	f := newFixture(t, loginOK)
	require.NoError(t, f.storage.Save(Session{UserID: 9, Username: "bob"}))

	require.NoError(t, f.ctrl.Init())

	assert.Equal(t, Authenticated, f.ctrl.State())
	s, ok := f.ctrl.Current()
	require.True(t, ok)
	assert.Equal(t, "bob", s.Username)

	_, err := f.ctrl.Login(context.Background(), "a@example.com", "pw")
	assert.ErrorIs(t, err, ErrSignedIn)
}

func TestLogoutClears(t *testing.T) {
	f := newFixture(t, loginOK)
	_, err := f.ctrl.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Logout(context.Background()))

	assert.Equal(t, Anonymous, f.ctrl.State())
	stored, _ := f.storage.Load()
	assert.Nil(t, stored)
	_, ok := f.ctrl.UserID()
	assert.False(t, ok)
}

func TestRegisterEmptyPasswordNeverCallsServer(t *testing.T) {
	f := newFixture(t, respond(http.StatusCreated, map[string]string{"message": "User registered successfully"}))

	err := f.ctrl.Register(context.Background(), api.RegisterRequest{Username: "alice", Email: "a@example.com"})

	assert.ErrorIs(t, err, api.ErrValidation)
	assert.Equal(t, int32(0), f.calls.Load())
	assert.Equal(t, Anonymous, f.ctrl.State())

	ev, _ := f.rec.Last()
	assert.Equal(t, notify.LevelWarning, ev.Level)
	assert.Equal(t, MsgFieldsRequired, ev.Message)
}

func TestRegisterSuccessDoesNotAuthenticate(t *testing.T) {
	var got api.RegisterRequest
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/register", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respond(http.StatusCreated, map[string]string{"message": "User registered successfully"})(w, r)
	})

	form := api.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "pw"}
	require.NoError(t, f.ctrl.Register(context.Background(), form))

	assert.Equal(t, form, got)
	assert.Equal(t, RegistrationPending, f.ctrl.State())
	_, ok := f.ctrl.Current()
	assert.False(t, ok)
	stored, _ := f.storage.Load()
	assert.Nil(t, stored)

	ev, _ := f.rec.Last()
	assert.Equal(t, notify.Registered, ev.Kind)
	assert.Equal(t, RouteLogin, ev.Route)
	assert.Equal(t, MsgRegistered, ev.Message)
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/register" {
			respond(http.StatusCreated, map[string]string{"message": "User registered successfully"})(w, r)
			return
		}
		loginOK(w, r)
	})

	require.NoError(t, f.ctrl.Register(context.Background(), api.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "pw"}))
	_, err := f.ctrl.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, f.ctrl.State())
}

func TestRegisterMalformedDistinctFromRejected(t *testing.T) {
	form := api.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "pw"}

	malformed := newFixture(t, raw(http.StatusCreated, "<html>created</html>"))
	errMalformed := malformed.ctrl.Register(context.Background(), form)
	assert.ErrorIs(t, errMalformed, api.ErrMalformedResponse)
	assert.NotErrorIs(t, errMalformed, api.ErrServerRejected)
	assert.Equal(t, Anonymous, malformed.ctrl.State())
	evMalformed, _ := malformed.rec.Last()

	rejected := newFixture(t, respond(http.StatusBadRequest, map[string]string{"message": "Email already exists"}))
	errRejected := rejected.ctrl.Register(context.Background(), form)
	assert.ErrorIs(t, errRejected, api.ErrServerRejected)
	assert.NotErrorIs(t, errRejected, api.ErrMalformedResponse)
	assert.Equal(t, Anonymous, rejected.ctrl.State())
	evRejected, _ := rejected.rec.Last()

	assert.Equal(t, api.KindMalformed, evMalformed.Failure)
	assert.Equal(t, api.MsgMalformed, evMalformed.Message)
	assert.Equal(t, api.KindRejected, evRejected.Failure)
	assert.Equal(t, "Email already exists", evRejected.Message)
}

func TestInitDiscardsCorruptSession(t *testing.T) {
	f := newFixture(t, loginOK)
	require.NoError(t, os.WriteFile(f.storage.Path, []byte("{not json"), 0600))

	require.NoError(t, f.ctrl.Init())

	assert.Equal(t, Anonymous, f.ctrl.State())
	assert.NoFileExists(t, f.storage.Path)

	_, err := f.ctrl.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, f.ctrl.State())
}
