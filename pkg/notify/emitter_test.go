package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/cadence/pkg/api"
)

func TestEmitterDeliversInOrder(t *testing.T) {
	e := NewEmitter(nil)
	var got []string
	e.Subscribe(HandlerFunc(func(_ context.Context, ev Event) error {
		got = append(got, "first:"+ev.Message)
		return nil
	}))
	e.Subscribe(HandlerFunc(func(_ context.Context, ev Event) error {
		got = append(got, "second:"+ev.Message)
		return nil
	}))

	e.Notify(context.Background(), Success(TaskDeleted, "Task deleted"))

	assert.Equal(t, []string{"first:Task deleted", "second:Task deleted"}, got)
}

func TestEmitterContinuesAfterHandlerError(t *testing.T) {
	e := NewEmitter(nil)
	rec := &Recorder{}
	e.Subscribe(HandlerFunc(func(context.Context, Event) error { return errors.New("boom") }))
	e.Subscribe(rec)

	e.Notify(context.Background(), Success(TaskUpdated, "ok"))

	assert.Len(t, rec.Events(), 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	e := NewEmitter(nil)
	rec := &Recorder{}
	unsubscribe := e.Subscribe(rec)

	e.Notify(context.Background(), Success(TaskDeleted, "one"))
	unsubscribe()
	unsubscribe()
	e.Notify(context.Background(), Success(TaskDeleted, "two"))

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "one", events[0].Message)
}

func TestFailureLevel(t *testing.T) {
	ev := Failure(SessionError, api.Validation("register", "All fields are required"), "All fields are required")
	assert.Equal(t, LevelWarning, ev.Level)
	assert.Equal(t, api.KindValidation, ev.Failure)

	ev = Failure(TaskError, &api.Error{Kind: api.KindRejected, Status: 404}, "Task not found")
	assert.Equal(t, LevelError, ev.Level)
	assert.Equal(t, api.KindRejected, ev.Failure)
	assert.NotEqual(t, Success(TaskDeleted, "").ID, ev.ID)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := Console{Out: &buf}
	require.NoError(t, c.HandleEvent(context.Background(), Success(LoginSucceeded, "Login successful!")))
	require.NoError(t, c.HandleEvent(context.Background(), Failure(TaskError, &api.Error{Kind: api.KindNetwork}, "Could not reach the server")))
	assert.Equal(t, "✓ Login successful!\n✗ Could not reach the server\n", buf.String())
}
