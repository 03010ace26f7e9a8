// Package client is the HTTP client for the jobwatch API used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/TimurManjosov/jobwatch/internal/api"
	"github.com/TimurManjosov/jobwatch/internal/audit"
	"github.com/TimurManjosov/jobwatch/internal/evaluation"
	"github.com/TimurManjosov/jobwatch/internal/rules"
	"github.com/TimurManjosov/jobwatch/internal/snapshot"
	"github.com/TimurManjosov/jobwatch/internal/store"
)

// Client is an HTTP client for the jobwatch API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// MaxRetries applies to reads only; writes are attempted once.
	MaxRetries uint
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxRetries: 2,
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Response   api.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Response.Message)
	if len(e.Response.Fields) > 0 {
		parts := make([]string, 0, len(e.Response.Fields))
		for field, m := range e.Response.Fields {
			parts = append(parts, field+": "+m)
		}
		sort.Strings(parts)
		msg += " [" + strings.Join(parts, "; ") + "]"
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// TaskInput is the body of create and update calls.
type TaskInput struct {
	TaskName      string      `json:"taskName"`
	Delay         int         `json:"delay"`
	JobConditions *rules.Tree `json:"jobConditions,omitempty"`
}

// SubConditionInput is the optional body of AddSubCondition. Nil fields
// keep the server defaults.
type SubConditionInput struct {
	Target          *string `json:"target,omitempty"`
	Operator        *string `json:"operator,omitempty"`
	Frequency       *int    `json:"frequency,omitempty"`
	Text            *string `json:"text,omitempty"`
	Not             *bool   `json:"not,omitempty"`
	CaseInsensitive *bool   `json:"caseInsensitive,omitempty"`
}

// ListTasks returns the current task snapshot.
func (c *Client) ListTasks(ctx context.Context) (*snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	if err := c.do(ctx, http.MethodGet, "/v1/tasks", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetTask retrieves a single task by id
func (c *Client) GetTask(ctx context.Context, id string) (*store.Task, error) {
	var task store.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task in the ready state.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (*store.Task, error) {
	return c.taskCall(ctx, http.MethodPost, "/v1/tasks", in)
}

// UpdateTask replaces name, delay and, when set, the conditions of a task.
func (c *Client) UpdateTask(ctx context.Context, id string, in TaskInput) (*store.Task, error) {
	return c.taskCall(ctx, http.MethodPut, taskPath(id), in)
}

// DeleteTask deletes a task; unknown ids are not an error.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

// DuplicateTask copies a task under a new id.
func (c *Client) DuplicateTask(ctx context.Context, id string) (*store.Task, error) {
	return c.taskCall(ctx, http.MethodPost, taskPath(id)+"/duplicate", nil)
}

// StartTask moves a ready task to processing.
func (c *Client) StartTask(ctx context.Context, id string) (*store.Task, error) {
	return c.taskCall(ctx, http.MethodPost, taskPath(id)+"/start", nil)
}

// StopTask moves a processing task to stopped.
func (c *Client) StopTask(ctx context.Context, id string) (*store.Task, error) {
	return c.taskCall(ctx, http.MethodPost, taskPath(id)+"/stop", nil)
}

// CompleteTask moves a processing task to done.
func (c *Client) CompleteTask(ctx context.Context, id string) (*store.Task, error) {
	return c.taskCall(ctx, http.MethodPost, taskPath(id)+"/complete", nil)
}

// AddGroup appends an empty condition group.
func (c *Client) AddGroup(ctx context.Context, id string) (*store.Task, error) {
	return c.taskCall(ctx, http.MethodPost, taskPath(id)+"/groups", nil)
}

// RemoveGroup removes a condition group; the last group cannot be removed.
func (c *Client) RemoveGroup(ctx context.Context, id, groupID string) (*store.Task, error) {
	return c.taskCall(ctx, http.MethodDelete, groupPath(id, groupID), nil)
}

// AddSubCondition appends a sub-condition to a group. A nil input adds the
// default sub-condition.
func (c *Client) AddSubCondition(ctx context.Context, id, groupID string, in *SubConditionInput) (*store.Task, error) {
	var body any
	if in != nil {
		body = in
	}
	return c.taskCall(ctx, http.MethodPost, groupPath(id, groupID)+"/conditions", body)
}

// RemoveSubCondition removes a sub-condition from a group.
func (c *Client) RemoveSubCondition(ctx context.Context, id, groupID, subID string) (*store.Task, error) {
	return c.taskCall(ctx, http.MethodDelete, groupPath(id, groupID)+"/conditions/"+url.PathEscape(subID), nil)
}

// CheckTask evaluates a stored task's conditions against one posting.
func (c *Client) CheckTask(ctx context.Context, id string, fields map[string]string) (*api.CheckResponse, error) {
	var resp api.CheckResponse
	req := api.CheckRequest{Fields: fields}
	if err := c.do(ctx, http.MethodPost, taskPath(id)+"/check", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Check evaluates an inline tree against one posting.
func (c *Client) Check(ctx context.Context, tree rules.Tree, fields map[string]string) (*api.CheckResponse, error) {
	var resp api.CheckResponse
	req := api.CheckRequest{JobConditions: &tree, Fields: fields}
	if err := c.do(ctx, http.MethodPost, "/v1/check", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckBatch evaluates an inline tree against many postings.
func (c *Client) CheckBatch(ctx context.Context, tree rules.Tree, postings []evaluation.Posting) (*api.BatchCheckResponse, error) {
	var resp api.BatchCheckResponse
	req := api.BatchCheckRequest{JobConditions: &tree, Postings: postings}
	if err := c.do(ctx, http.MethodPost, "/v1/check/batch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAudit returns recorded task changes, newest first. An empty taskID
// lists changes of all tasks; limit 0 uses the server default.
func (c *Client) ListAudit(ctx context.Context, taskID string, limit int) ([]audit.Event, error) {
	q := url.Values{}
	if taskID != "" {
		q.Set("task", taskID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/audit"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp api.AuditResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (c *Client) taskCall(ctx context.Context, method, path string, body any) (*store.Task, error) {
	var task store.Task
	if err := c.do(ctx, method, path, body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// do sends one API call and decodes a 2xx body into out (if non-nil).
// GETs are retried on transport errors and 5xx answers.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = b
	}

	tries := uint(1)
	if method == http.MethodGet {
		tries = c.MaxRetries + 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.attempt(ctx, method, path, payload, out)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(tries))
	return err
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		bodyBytes, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(bodyBytes, &apiErr.Response) != nil || apiErr.Response.Message == "" {
			apiErr.Response.Message = strings.TrimSpace(string(bodyBytes))
		}
		if resp.StatusCode >= 500 {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func taskPath(id string) string {
	return "/v1/tasks/" + url.PathEscape(id)
}

func groupPath(id, groupID string) string {
	return taskPath(id) + "/groups/" + url.PathEscape(groupID)
}
