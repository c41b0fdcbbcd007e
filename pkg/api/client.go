package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/harrisonrobin/cadence/pkg/model"
)

// LoginSuccess is the message the server sends on a successful login.
const LoginSuccess = "Login successful"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// User is the principal returned by a successful login.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateRequest is the body of POST /tasks.
type CreateRequest struct {
	UserID      int64  `json:"user_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Frequency   string `json:"frequency" validate:"required"`
	DueDate     string `json:"due_date" validate:"required"`
	DueTime     string `json:"due_time" validate:"required"`
}

// UpdateRequest is the body of PUT /update_task/{id}; the server wants every field.
type UpdateRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Frequency   string `json:"frequency" validate:"required"`
	DueDate     string `json:"due_date" validate:"required"`
	DueTime     string `json:"due_time" validate:"required"`
}

// UpdateRequestFrom copies the mutable fields of t.
func UpdateRequestFrom(t model.Task) UpdateRequest {
	return UpdateRequest{
		Title:       t.Title,
		Description: t.Description,
		Frequency:   t.Frequency,
		DueDate:     t.DueDate,
		DueTime:     t.DueTime,
	}
}

type messageBody struct {
	Message string `json:"message"`
}

type loginBody struct {
	Message string `json:"message"`
	User    *User  `json:"user"`
}

type tasksBody struct {
	Tasks []model.Task `json:"tasks"`
}

// Client talks to the task API rooted at baseURL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client. A nil httpClient gets a default one with timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger.With("component", "api_client"),
	}
}

// DeleteTask issues DELETE /delete_task/{id}. Any 2xx is success; the body is ignored.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, "delete task", http.MethodDelete, fmt.Sprintf("/delete_task/%d", id), nil, nil)
}

// UpdateTask issues PUT /update_task/{id}.
func (c *Client) UpdateTask(ctx context.Context, id int64, req UpdateRequest) error {
	return c.do(ctx, "update task", http.MethodPut, fmt.Sprintf("/update_task/%d", id), req, nil)
}

// CreateTask issues POST /tasks.
func (c *Client) CreateTask(ctx context.Context, req CreateRequest) error {
	return c.do(ctx, "create task", http.MethodPost, "/tasks", req, nil)
}

// ListTasks fetches every task owned by userID.
func (c *Client) ListTasks(ctx context.Context, userID int64) ([]model.Task, error) {
	var out tasksBody
	if err := c.do(ctx, "list tasks", http.MethodGet, fmt.Sprintf("/tasks/%d", userID), nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// Login posts credentials. A 2xx answer counts only if its message is
// LoginSuccess and it carries a user; any other message is a rejection.
func (c *Client) Login(ctx context.Context, req LoginRequest) (User, error) {
	const op = "login"
	var out loginBody
	if err := c.do(ctx, op, http.MethodPost, "/login", req, &out); err != nil {
		return User{}, err
	}
	if out.Message != LoginSuccess {
		return User{}, &Error{Kind: KindRejected, Op: op, Status: http.StatusOK, Message: out.Message}
	}
	if out.User == nil {
		return User{}, &Error{Kind: KindMalformed, Op: op, Status: http.StatusOK, Err: fmt.Errorf("missing user")}
	}
	return *out.User, nil
}

// Register posts the registration form. Any 2xx with a JSON body is success;
// the returned string is the server's message, possibly empty.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var out messageBody
	if err := c.do(ctx, "register", http.MethodPost, "/register", req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// do sends one request and classifies the outcome. out, when non-nil,
// receives the decoded 2xx body; a decode failure is KindMalformed.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("sending request", "op", op, "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	c.logger.Debug("received response", "op", op, "status", resp.StatusCode, "bytes", len(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageBody
		// A rejection without a readable message still counts as a rejection.
		_ = json.Unmarshal(raw, &msg)
		return &Error{Kind: KindRejected, Op: op, Status: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		return nil
	}
	if len(raw) > maxResponseBytes {
		return &Error{Kind: KindMalformed, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("response body exceeds %d bytes", maxResponseBytes)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindMalformed, Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}
