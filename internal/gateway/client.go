package gateway

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

	"github.com/MarcoPoloResearchLab/snippyvault/internal/snippets"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

var (
	// ErrMissingUsername indicates a call made before a username was bound.
	ErrMissingUsername = errors.New("gateway: username is required")
	errMissingBaseURL  = errors.New("gateway: base url is required")
)

// RemoteError is a response the vault API reported as unsuccessful.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway: remote failure (status %d)", e.Status)
	}
	return fmt.Sprintf("gateway: remote failure (status %d): %s", e.Status, e.Message)
}

// Config describes how to reach the vault API.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the vault API. It implements snippets.Gateway once bound
// to a username.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	username   string
	logger     *zap.Logger
}

// NewClient constructs an unbound client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errMissingBaseURL
	}
	baseURL, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// WithUsername returns a copy of the client bound to username.
func (c *Client) WithUsername(username string) *Client {
	bound := *c
	bound.username = strings.TrimSpace(username)
	return &bound
}

// Username returns the bound username.
func (c *Client) Username() string {
	return c.username
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type loginRequest struct {
	Username string `json:"username"`
}

type draftRequest struct {
	Username string   `json:"username"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
}

type reorderRequest struct {
	Username   string   `json:"username"`
	OrderedIDs []string `json:"ordered_ids"`
}

type createdPayload struct {
	ID    string `json:"id"`
	Order *int   `json:"order,omitempty"`
}

// Login asks the vault to accept username and returns its greeting.
func (c *Client) Login(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrMissingUsername
	}
	response, err := c.do(ctx, http.MethodPost, "/login", nil, loginRequest{Username: username})
	if err != nil {
		return "", err
	}
	return response.Message, nil
}

// List returns every snippet of the bound user.
func (c *Client) List(ctx context.Context) ([]snippets.Record, error) {
	if c.username == "" {
		return nil, ErrMissingUsername
	}
	query := url.Values{"username": {c.username}}
	response, err := c.do(ctx, http.MethodGet, "/snippets", query, nil)
	if err != nil {
		return nil, err
	}
	var records []snippets.Record
	if len(response.Data) > 0 && string(response.Data) != "null" {
		if err := json.Unmarshal(response.Data, &records); err != nil {
			return nil, fmt.Errorf("gateway: decode snippets: %w", err)
		}
	}
	return records, nil
}

// Create stores a new snippet and returns its assigned id.
func (c *Client) Create(ctx context.Context, draft snippets.Draft) (snippets.Created, error) {
	if c.username == "" {
		return snippets.Created{}, ErrMissingUsername
	}
	response, err := c.do(ctx, http.MethodPost, "/snippets", nil, c.draftRequest(draft))
	if err != nil {
		return snippets.Created{}, err
	}
	var payload createdPayload
	if err := json.Unmarshal(response.Data, &payload); err != nil {
		return snippets.Created{}, fmt.Errorf("gateway: decode created snippet: %w", err)
	}
	if strings.TrimSpace(payload.ID) == "" {
		return snippets.Created{}, fmt.Errorf("gateway: created snippet has no id")
	}
	return snippets.Created{ID: payload.ID, Order: payload.Order}, nil
}

// Update replaces the editable fields of a snippet.
func (c *Client) Update(ctx context.Context, id string, draft snippets.Draft) error {
	if c.username == "" {
		return ErrMissingUsername
	}
	_, err := c.do(ctx, http.MethodPut, "/snippets/"+url.PathEscape(id), nil, c.draftRequest(draft))
	return err
}

// Delete removes a snippet.
func (c *Client) Delete(ctx context.Context, id string) error {
	if c.username == "" {
		return ErrMissingUsername
	}
	query := url.Values{"username": {c.username}}
	_, err := c.do(ctx, http.MethodDelete, "/snippets/"+url.PathEscape(id), query, nil)
	return err
}

// Reorder submits the full ordered id sequence.
func (c *Client) Reorder(ctx context.Context, orderedIDs []string) error {
	if c.username == "" {
		return ErrMissingUsername
	}
	_, err := c.do(ctx, http.MethodPost, "/snippets/reorder", nil, reorderRequest{
		Username:   c.username,
		OrderedIDs: orderedIDs,
	})
	return err
}

func (c *Client) draftRequest(draft snippets.Draft) draftRequest {
	tags := draft.Tags
	if tags == nil {
		tags = []string{}
	}
	return draftRequest{
		Username: c.username,
		Title:    draft.Title,
		Content:  draft.Content,
		Tags:     tags,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (envelope, error) {
	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return envelope{}, fmt.Errorf("gateway: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return envelope{}, fmt.Errorf("gateway: build request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")

	started := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Warn("vault request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return envelope{}, fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	c.logger.Debug("vault request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", response.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	var decoded envelope
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return envelope{}, &RemoteError{Status: response.StatusCode, Message: "undecodable response"}
	}
	if !decoded.Success || response.StatusCode >= http.StatusBadRequest {
		return envelope{}, &RemoteError{Status: response.StatusCode, Message: decoded.Message}
	}
	return decoded, nil
}
