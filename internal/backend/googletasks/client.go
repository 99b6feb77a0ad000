// Package googletasks implements the service.Store interface using Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"optask/internal/config"
	"optask/internal/service"
)

const (
	// PageSize is the number of tasks requested per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// TasksScope is the OAuth scope for Google Tasks.
	TasksScope = "https://www.googleapis.com/auth/tasks"

	statusOpen      = "needsAction"
	statusCompleted = "completed"
)

// ErrAuth is returned when Google rejects the stored credentials.
var ErrAuth = errors.New("token expired or revoked (run: optask login)")

// Client implements service.Store on one Google Tasks list.
//
// Google task IDs are opaque strings; the client maps each one it sees to a
// local int64 ID, issued in increasing order for the client's lifetime.
type Client struct {
	svc    *tasks.Service
	listID string

	mu       sync.Mutex
	localID  map[string]int64
	remoteID map[int64]string
	lastID   int64
}

// OAuthConfig reads the OAuth client credentials from the config directory.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, TasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oauthConfig, nil
}

// LoadToken reads the stored OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}
	return &token, nil
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := LoadToken(cfg.TokenPath())
	if err != nil {
		return nil, err
	}

	// Token source refreshes automatically
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token))
	return NewWithHTTPClient(ctx, cfg.ListID, option.WithHTTPClient(httpClient))
}

// NewWithHTTPClient creates a client from explicit API options (for testing).
func NewWithHTTPClient(ctx context.Context, listID string, opts ...option.ClientOption) (*Client, error) {
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if listID == "" {
		listID = config.DefaultListID
	}
	return &Client{
		svc:      svc,
		listID:   listID,
		localID:  make(map[string]int64),
		remoteID: make(map[int64]string),
	}, nil
}

// List implements service.Store. Completed and hidden tasks are included so
// that toggled items stay visible.
func (c *Client) List(ctx context.Context) ([]service.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result []service.Item
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, task := range resp.Items {
				result = append(result, c.toItem(task))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError("list", err)
	}
	return result, nil
}

// Create implements service.Store.
func (c *Client) Create(ctx context.Context, title string) (service.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	task, err := c.svc.Tasks.Insert(c.listID, &tasks.Task{Title: title}).Context(ctx).Do()
	if err != nil {
		return service.Item{}, wrapError("create", err)
	}
	return c.toItem(task), nil
}

// Toggle implements service.Store.
func (c *Client) Toggle(ctx context.Context, id int64) (service.Item, error) {
	remote, ok := c.remote(id)
	if !ok {
		return service.Item{}, fmt.Errorf("toggle %d: %w", id, service.ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	current, err := c.svc.Tasks.Get(c.listID, remote).Context(ctx).Do()
	if err != nil {
		return service.Item{}, wrapError("toggle", err)
	}

	patch := &tasks.Task{Status: statusCompleted}
	if current.Status == statusCompleted {
		patch = &tasks.Task{Status: statusOpen, NullFields: []string{"Completed"}}
	}
	task, err := c.svc.Tasks.Patch(c.listID, remote, patch).Context(ctx).Do()
	if err != nil {
		return service.Item{}, wrapError("toggle", err)
	}
	return c.toItem(task), nil
}

// Delete implements service.Store.
func (c *Client) Delete(ctx context.Context, id int64) error {
	remote, ok := c.remote(id)
	if !ok {
		return fmt.Errorf("delete %d: %w", id, service.ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(c.listID, remote).Context(ctx).Do(); err != nil {
		return wrapError("delete", err)
	}
	return nil
}

func (c *Client) toItem(task *tasks.Task) service.Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.localID[task.Id]
	if !ok {
		c.lastID++
		id = c.lastID
		c.localID[task.Id] = id
		c.remoteID[id] = task.Id
	}
	return service.Item{
		ID:    id,
		Title: task.Title,
		Done:  task.Status == statusCompleted,
	}
}

func (c *Client) remote(id int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.remoteID[id]
	return r, ok
}

// wrapError maps API errors onto the service error taxonomy.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, service.ErrCanceled)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: request timed out: %w", op, service.ErrNetworkFailure)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", op, ErrAuth)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, service.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %v: %w", op, err, service.ErrNetworkFailure)
}
