// Package google implements backend.Remote against the Google Tasks API v1.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"taskdeck/backend"
)

const (
	// DefaultBaseURL is the Google Tasks API v1 base URL
	DefaultBaseURL = "https://www.googleapis.com"
	// DefaultTokenURL is the Google OAuth2 token endpoint
	DefaultTokenURL = "https://oauth2.googleapis.com/token"
)

// Config holds Google Tasks connection settings
type Config struct {
	AccessToken  string
	RefreshToken string
	ClientID     string
	ClientSecret string
	BaseURL      string // Override for testing
	TokenURL     string // Override for testing
}

// ConfigFromEnv creates a Config from environment variables
func ConfigFromEnv() Config {
	return Config{
		AccessToken:  os.Getenv("TASKDECK_GOOGLE_ACCESS_TOKEN"),
		RefreshToken: os.Getenv("TASKDECK_GOOGLE_REFRESH_TOKEN"),
		ClientID:     os.Getenv("TASKDECK_GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("TASKDECK_GOOGLE_CLIENT_SECRET"),
	}
}

// Client implements backend.Remote using the Google Tasks API v1
type Client struct {
	config       Config
	client       *http.Client
	baseURL      string
	tokenURL     string
	accessToken  string
	refreshToken string
}

// New creates a new Google Tasks client
func New(cfg Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("google access token is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	return &Client{
		config:       cfg,
		client:       &http.Client{Timeout: 30 * time.Second},
		baseURL:      baseURL,
		tokenURL:     tokenURL,
		accessToken:  cfg.AccessToken,
		refreshToken: cfg.RefreshToken,
	}, nil
}

// refreshAccessToken refreshes the OAuth2 access token using the refresh token
func (c *Client) refreshAccessToken(ctx context.Context) error {
	if c.refreshToken == "" {
		return fmt.Errorf("no refresh token available")
	}

	data := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": c.refreshToken,
	}
	if c.config.ClientID != "" {
		data["client_id"] = c.config.ClientID
	}
	if c.config.ClientSecret != "" {
		data["client_secret"] = c.config.ClientSecret
	}

	jsonBody, err := json.Marshal(data)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh failed: status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return err
	}

	c.accessToken = tokenResp.AccessToken
	if tokenResp.RefreshToken != "" {
		c.refreshToken = tokenResp.RefreshToken
	}

	return nil
}

// doRequest performs an authenticated Google Tasks API request
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	// Handle token expiration - attempt refresh and retry once
	if resp.StatusCode == http.StatusUnauthorized && c.refreshToken != "" {
		_ = resp.Body.Close()

		if err := c.refreshAccessToken(ctx); err != nil {
			return nil, fmt.Errorf("token refresh failed: %w", err)
		}

		if body != nil {
			jsonBody, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(jsonBody)
		}

		req, err = http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.client.Do(req)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// wireList is the Google Tasks tasklist resource
type wireList struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// wireTask is the Google Tasks task resource
type wireTask struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Notes   string `json:"notes,omitempty"`
	Status  string `json:"status,omitempty"`
	Due     string `json:"due,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

func (w wireList) toList() backend.TaskList {
	return backend.TaskList{
		ID:    backend.ID(w.ID),
		Title: w.Title,
	}
}

func (w wireTask) toTask() backend.Task {
	task := backend.Task{
		ID:      backend.ID(w.ID),
		Title:   w.Title,
		Notes:   w.Notes,
		Status:  backend.Status(w.Status),
		Deleted: w.Deleted,
	}
	if task.Status != backend.StatusCompleted {
		task.Status = backend.StatusNeedsAction
	}
	if w.Due != "" {
		if due, err := time.Parse(time.RFC3339, w.Due); err == nil {
			due = due.UTC()
			task.Due = &due
		}
	}
	return task
}

func fromTask(task *backend.Task) wireTask {
	w := wireTask{
		Title:  task.Title,
		Notes:  task.Notes,
		Status: string(task.Status),
	}
	if task.Due != nil {
		w.Due = task.Due.UTC().Format(time.RFC3339)
	}
	return w
}

// ListLists returns all Google task lists
func (c *Client) ListLists(ctx context.Context) ([]backend.TaskList, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/tasks/v1/users/@me/lists", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("authentication failed: invalid access token")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get task lists: status %d", resp.StatusCode)
	}

	var result struct {
		Items []wireList `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	lists := make([]backend.TaskList, len(result.Items))
	for i, item := range result.Items {
		lists[i] = item.toList()
	}
	return lists, nil
}

// ListTasks returns all tasks in a task list
func (c *Client) ListTasks(ctx context.Context, listID backend.ID) ([]backend.Task, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/tasks/v1/lists/"+string(listID)+"/tasks", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("task list not found: %s", listID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get tasks: status %d", resp.StatusCode)
	}

	var result struct {
		Items []wireTask `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	tasks := make([]backend.Task, len(result.Items))
	for i, item := range result.Items {
		tasks[i] = item.toTask()
	}
	return tasks, nil
}

// CreateList creates a new Google task list
func (c *Client) CreateList(ctx context.Context, title string) (*backend.TaskList, error) {
	body := map[string]string{"title": title}

	resp, err := c.doRequest(ctx, http.MethodPost, "/tasks/v1/users/@me/lists", body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to create task list: status %d", resp.StatusCode)
	}

	var item wireList
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, err
	}

	list := item.toList()
	return &list, nil
}

// DeleteList deletes a Google task list (permanent deletion)
func (c *Client) DeleteList(ctx context.Context, listID backend.ID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/tasks/v1/users/@me/lists/"+string(listID), nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to delete task list: status %d", resp.StatusCode)
	}
	return nil
}

// GetTask returns a specific task by ID
func (c *Client) GetTask(ctx context.Context, listID, taskID backend.ID) (*backend.Task, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/tasks/v1/lists/"+string(listID)+"/tasks/"+string(taskID), nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get task: status %d", resp.StatusCode)
	}

	var item wireTask
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, err
	}

	task := item.toTask()
	return &task, nil
}

// CreateTask creates a new task in a task list
func (c *Client) CreateTask(ctx context.Context, listID backend.ID, task *backend.Task) (*backend.Task, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/tasks/v1/lists/"+string(listID)+"/tasks", fromTask(task))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to create task: status %d", resp.StatusCode)
	}

	var item wireTask
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, err
	}

	created := item.toTask()
	return &created, nil
}

// UpdateTask updates an existing task
func (c *Client) UpdateTask(ctx context.Context, listID backend.ID, task *backend.Task) (*backend.Task, error) {
	resp, err := c.doRequest(ctx, http.MethodPatch, "/tasks/v1/lists/"+string(listID)+"/tasks/"+string(task.ID), fromTask(task))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to update task: status %d", resp.StatusCode)
	}

	var item wireTask
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, err
	}

	updated := item.toTask()
	return &updated, nil
}

// DeleteTask removes a task
func (c *Client) DeleteTask(ctx context.Context, listID, taskID backend.ID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/tasks/v1/lists/"+string(listID)+"/tasks/"+string(taskID), nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to delete task: status %d", resp.StatusCode)
	}
	return nil
}

// Verify interface compliance at compile time
var _ backend.Remote = (*Client)(nil)
