package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/harrisonrobin/cadence/pkg/api"
	"github.com/harrisonrobin/cadence/pkg/model"
	"github.com/harrisonrobin/cadence/pkg/notify"
	"github.com/harrisonrobin/cadence/pkg/store"
)

// Messages shown through the bridge.
const (
	MsgDeleted       = "Task deleted"
	MsgDeleteFailed  = "Failed to delete task"
	MsgUpdated       = "Task updated"
	MsgUpdateFailed  = "Failed to update task"
	MsgCreated       = "Task created"
	MsgCreateFailed  = "Failed to create task"
	MsgRefreshFailed = "Error fetching tasks"
	MsgMissingFields = "All fields are required"
)

var (
	// ErrInFlight is returned when a mutation for the same task is still running.
	ErrInFlight = errors.New("a mutation for this task is already in flight")
	// ErrUnknownTask is returned by Update for an id the store does not hold.
	ErrUnknownTask = errors.New("task not in store")
	// ErrNoEditor is returned by Edit when no editor is attached.
	ErrNoEditor = errors.New("no editor attached")
)

// Op is the kind of mutation holding a task's in-flight slot.
type Op string

const (
	OpDelete Op = "delete"
	OpUpdate Op = "update"
)

// TaskAPI is the server-facing boundary.
type TaskAPI interface {
	DeleteTask(ctx context.Context, id int64) error
	UpdateTask(ctx context.Context, id int64, req api.UpdateRequest) error
	CreateTask(ctx context.Context, req api.CreateRequest) error
	ListTasks(ctx context.Context, userID int64) ([]model.Task, error)
}

// Authorizer reports the signed-in user, if any.
type Authorizer interface {
	UserID() (int64, bool)
}

// Editor receives a task to edit. It owns producing the new record and
// calling Update with it.
type Editor interface {
	Edit(ctx context.Context, t model.Task) error
}

// Controller runs task mutations against the API and keeps the store in step.
// At most one mutation per task id is in flight; a second one is rejected
// with ErrInFlight before any request is made.
type Controller struct {
	api      TaskAPI
	store    *store.TaskStore
	auth     Authorizer
	bridge   notify.Bridge
	editor   Editor
	validate *validator.Validate
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[int64]Op
}

func NewController(taskAPI TaskAPI, s *store.TaskStore, auth Authorizer, bridge notify.Bridge, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		api:      taskAPI,
		store:    s,
		auth:     auth,
		bridge:   bridge,
		validate: validator.New(),
		logger:   logger.With("component", "mutation_controller"),
		pending:  make(map[int64]Op),
	}
}

// SetEditor attaches the collaborator Edit hands tasks to.
func (c *Controller) SetEditor(e Editor) {
	c.editor = e
}

// PendingOp returns the mutation in flight for id, or "".
func (c *Controller) PendingOp(id int64) Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[id]
}

// IsDeleting reports whether a delete for id is in flight.
func (c *Controller) IsDeleting(id int64) bool {
	return c.PendingOp(id) == OpDelete
}

func (c *Controller) acquire(id int64, op Op) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.pending[id]; busy {
		return false
	}
	c.pending[id] = op
	return true
}

func (c *Controller) release(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// Delete removes task id on the server and, once confirmed, from the store.
// An id the store does not hold is a silent no-op. On failure the store is
// left as it was and an error event is emitted. The in-flight mark is
// always cleared last.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	task, ok := c.store.Get(id)
	if !ok {
		c.logger.Debug("delete ignored, task not in store", "task_id", id)
		return nil
	}
	if _, ok := c.auth.UserID(); !ok {
		c.bridge.Notify(ctx, notify.Failure(notify.TaskError, api.ErrUnauthorized, api.ErrUnauthorized.Message).ForTask(task))
		return api.ErrUnauthorized
	}
	if !c.acquire(id, OpDelete) {
		c.logger.Warn("delete rejected, mutation in flight", "task_id", id, "op", c.PendingOp(id))
		return ErrInFlight
	}
	defer c.release(id)

	if err := c.api.DeleteTask(ctx, id); err != nil {
		c.logger.Error("delete failed", "task_id", id, "failure", api.KindOf(err), "error", err)
		c.bridge.Notify(ctx, notify.Failure(notify.TaskError, err, api.Describe(err, MsgDeleteFailed)).ForTask(task))
		return fmt.Errorf("delete task %d: %w", id, err)
	}

	c.store.Remove(id)
	c.logger.Info("task deleted", "task_id", id)
	c.bridge.Notify(ctx, notify.Success(notify.TaskDeleted, MsgDeleted).ForTask(task))
	return nil
}

// Edit hands the current record for id, unmodified, to the editor. The
// store is not touched. An id the store does not hold is a no-op.
func (c *Controller) Edit(ctx context.Context, id int64) error {
	task, ok := c.store.Get(id)
	if !ok {
		c.logger.Debug("edit ignored, task not in store", "task_id", id)
		return nil
	}
	if c.editor == nil {
		return ErrNoEditor
	}
	return c.editor.Edit(ctx, task)
}

// Update sends the full record to the server and merges it into the store
// once the server accepts it.
func (c *Controller) Update(ctx context.Context, t model.Task) error {
	if _, ok := c.store.Get(t.ID); !ok {
		return fmt.Errorf("update task %d: %w", t.ID, ErrUnknownTask)
	}
	if _, ok := c.auth.UserID(); !ok {
		c.bridge.Notify(ctx, notify.Failure(notify.TaskError, api.ErrUnauthorized, api.ErrUnauthorized.Message).ForTask(t))
		return api.ErrUnauthorized
	}

	req := api.UpdateRequestFrom(t)
	if err := c.validate.Struct(req); err != nil {
		verr := api.Validation("update task", MsgMissingFields)
		c.logger.Warn("update rejected locally", "task_id", t.ID, "error", err)
		c.bridge.Notify(ctx, notify.Failure(notify.TaskError, verr, verr.Message).ForTask(t))
		return verr
	}

	if !c.acquire(t.ID, OpUpdate) {
		c.logger.Warn("update rejected, mutation in flight", "task_id", t.ID, "op", c.PendingOp(t.ID))
		return ErrInFlight
	}
	defer c.release(t.ID)

	if err := c.api.UpdateTask(ctx, t.ID, req); err != nil {
		c.logger.Error("update failed", "task_id", t.ID, "failure", api.KindOf(err), "error", err)
		c.bridge.Notify(ctx, notify.Failure(notify.TaskError, err, api.Describe(err, MsgUpdateFailed)).ForTask(t))
		return fmt.Errorf("update task %d: %w", t.ID, err)
	}

	c.store.Update(t.ID, model.PatchFrom(t))
	updated, _ := c.store.Get(t.ID)
	c.logger.Info("task updated", "task_id", t.ID)
	c.bridge.Notify(ctx, notify.Success(notify.TaskUpdated, MsgUpdated).ForTask(updated))
	return nil
}

// Create posts a new task for the signed-in user and reloads the store,
// since the server does not echo the new id.
func (c *Controller) Create(ctx context.Context, draft model.Task) error {
	uid, ok := c.auth.UserID()
	if !ok {
		c.bridge.Notify(ctx, notify.Failure(notify.TaskError, api.ErrUnauthorized, api.ErrUnauthorized.Message))
		return api.ErrUnauthorized
	}

	req := api.CreateRequest{
		UserID:      uid,
		Title:       draft.Title,
		Description: draft.Description,
		Frequency:   draft.Frequency,
		DueDate:     draft.DueDate,
		DueTime:     draft.DueTime,
	}
	if err := c.validate.Struct(req); err != nil {
		verr := api.Validation("create task", MsgMissingFields)
		c.logger.Warn("create rejected locally", "error", err)
		c.bridge.Notify(ctx, notify.Failure(notify.TaskError, verr, verr.Message))
		return verr
	}

	if err := c.api.CreateTask(ctx, req); err != nil {
		c.logger.Error("create failed", "failure", api.KindOf(err), "error", err)
		c.bridge.Notify(ctx, notify.Failure(notify.TaskError, err, api.Describe(err, MsgCreateFailed)))
		return fmt.Errorf("create task: %w", err)
	}

	before := taskIDs(c.store.List(""))
	if err := c.reload(ctx, uid); err != nil {
		// The task exists on the server; only the local copy is stale.
		c.logger.Warn("reload after create failed", "error", err)
		c.bridge.Notify(ctx, notify.Success(notify.TaskCreated, MsgCreated))
		return nil
	}

	ev := notify.Success(notify.TaskCreated, MsgCreated)
	for _, t := range c.store.List("") {
		if !before[t.ID] {
			ev = ev.ForTask(t)
			break
		}
	}
	c.bridge.Notify(ctx, ev)
	return nil
}

// Refresh replaces the store with the server's current list.
func (c *Controller) Refresh(ctx context.Context) error {
	uid, ok := c.auth.UserID()
	if !ok {
		c.bridge.Notify(ctx, notify.Failure(notify.TaskError, api.ErrUnauthorized, api.ErrUnauthorized.Message))
		return api.ErrUnauthorized
	}
	if err := c.reload(ctx, uid); err != nil {
		c.bridge.Notify(ctx, notify.Failure(notify.TaskError, err, api.Describe(err, MsgRefreshFailed)))
		return err
	}
	c.bridge.Notify(ctx, notify.Success(notify.TasksRefreshed, fmt.Sprintf("Loaded %d tasks", c.store.Len())))
	return nil
}

func (c *Controller) reload(ctx context.Context, uid int64) error {
	tasks, err := c.api.ListTasks(ctx, uid)
	if err != nil {
		c.logger.Error("list tasks failed", "user_id", uid, "failure", api.KindOf(err), "error", err)
		return fmt.Errorf("refresh tasks: %w", err)
	}
	c.store.Replace(tasks)
	c.logger.Debug("store replaced", "task_count", c.store.Len())
	return nil
}

func taskIDs(tasks []model.Task) map[int64]bool {
	out := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		out[t.ID] = true
	}
	return out
}
