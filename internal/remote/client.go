package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/five82/synq/internal/synq"
)

// TodoService is the todo API surface. *Client implements it.
type TodoService interface {
	ListTodos(ctx context.Context) ([]Todo, error)
	CreateTodo(ctx context.Context, todo Todo, idempotencyKey string) (Todo, error)
	CreateTodos(ctx context.Context, todos []Todo) ([]Todo, error)
	UpdateTodo(ctx context.Context, todo Todo) (Todo, error)
	DeleteTodo(ctx context.Context, id string) error
}

var _ TodoService = (*Client)(nil)

// StatusError reports a response with a 4xx or 5xx status.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Code)
}

// Temporary reports whether retrying the request could succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Client talks to the todo HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	retries   uint64
	retryWait time.Duration
	log       *zap.Logger
}

const (
	defaultAPIBind   = "127.0.0.1:7489"
	defaultUserAgent = "synq/0.1"
	defaultTimeout   = 5 * time.Second
	defaultRetries   = 2
	defaultRetryWait = 200 * time.Millisecond

	todosPath = "/api/todos"
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetries sets how many times a failed list request is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = uint64(n)
		}
	}
}

// WithRetryWait sets the initial wait between list retries.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryWait = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// NewClient builds a Client using the provided apiBind host:port value.
func NewClient(apiBind string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		retries:   defaultRetries,
		retryWait: defaultRetryWait,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// ListTodos retrieves every todo. Transport errors and 5xx responses are
// retried with exponential backoff.
func (c *Client) ListTodos(ctx context.Context) ([]Todo, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload TodoList
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.retries), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		payload = TodoList{}
		err := c.do(ctx, http.MethodGet, todosPath, nil, nil, &payload)
		if err == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		c.log.Debug("list todos failed, will retry", zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, policy)
	if err != nil {
		return nil, err
	}
	if payload.Items == nil {
		payload.Items = []Todo{}
	}
	return payload.Items, nil
}

// CreateTodo creates a todo. A non-empty idempotencyKey lets the server
// collapse retried submissions into one record.
func (c *Client) CreateTodo(ctx context.Context, todo Todo, idempotencyKey string) (Todo, error) {
	if c == nil {
		return Todo{}, fmt.Errorf("client is nil")
	}
	todo.ID = ""
	header := http.Header{}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		header.Set("Idempotency-Key", key)
	}
	var saved Todo
	if err := c.do(ctx, http.MethodPost, todosPath, header, todo, &saved); err != nil {
		return Todo{}, err
	}
	return saved, nil
}

// CreateTodos creates several todos in one request.
func (c *Client) CreateTodos(ctx context.Context, todos []Todo) ([]Todo, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	body := TodoList{Items: make([]Todo, len(todos))}
	for i, t := range todos {
		t.ID = ""
		body.Items[i] = t
	}
	var payload TodoList
	if err := c.do(ctx, http.MethodPost, todosPath+"/batch", nil, body, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// UpdateTodo replaces the stored todo with the same id.
func (c *Client) UpdateTodo(ctx context.Context, todo Todo) (Todo, error) {
	if c == nil {
		return Todo{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(todo.ID) == "" {
		return Todo{}, fmt.Errorf("todo id required")
	}
	var saved Todo
	if err := c.doURL(ctx, http.MethodPut, todoURL(todo.ID), nil, todo, &saved); err != nil {
		return Todo{}, err
	}
	return saved, nil
}

// DeleteTodo deletes the todo with id.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("todo id required")
	}
	return c.doURL(ctx, http.MethodDelete, todoURL(id), nil, nil, nil)
}

// Operations adapts svc into the remote operation set of a synced store. A
// string extra payload on Add is sent as the idempotency key.
func Operations(svc TodoService) synq.Remote[Todo] {
	return synq.Remote[Todo]{
		Fetch: svc.ListTodos,
		Add: func(ctx context.Context, partial Todo, extra any) (Todo, error) {
			key, _ := extra.(string)
			return svc.CreateTodo(ctx, partial, key)
		},
		Update:  svc.UpdateTodo,
		Remove:  svc.DeleteTodo,
		AddMany: svc.CreateTodos,
	}
}

func todoURL(id string) *url.URL {
	return &url.URL{
		Path:    todosPath + "/" + id,
		RawPath: todosPath + "/" + url.PathEscape(id),
	}
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, body, dest any) error {
	return c.doURL(ctx, method, &url.URL{Path: path}, header, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, header http.Header, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		statusErr := &StatusError{Method: method, Path: rel.Path, Code: resp.StatusCode}
		var payload ErrorResponse
		if json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload) == nil {
			statusErr.Message = payload.Error
		}
		return statusErr
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
