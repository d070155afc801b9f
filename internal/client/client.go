// Package client is a Go client for the upload metadata API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrNoSession is returned before any request when a call needs a token.
	ErrNoSession = errors.New("not signed in")
	// ErrUnauthorized matches 401 answers.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden matches 403 answers.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound matches 404 answers.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest matches 400 answers.
	ErrBadRequest = errors.New("bad request")
	// ErrServer matches any 5xx answer.
	ErrServer = errors.New("server error")
)

// APIError is a non-2xx answer. It matches the sentinel errors above through
// errors.Is, keyed by status code.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return e.Message
}

func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusUnauthorized:
		return target == ErrUnauthorized
	case http.StatusForbidden:
		return target == ErrForbidden
	case http.StatusNotFound:
		return target == ErrNotFound
	case http.StatusBadRequest:
		return target == ErrBadRequest
	}
	return e.Status >= 500 && target == ErrServer
}

// Upload is one entry of the caller's upload list.
type Upload struct {
	Name        string    `json:"name"`
	Link        string    `json:"link"`
	CreatedAt   time.Time `json:"createdAt"`
	DeletionURL string    `json:"deletionUrl"`
}

// Details describes a single upload.
type Details struct {
	Title     string    `json:"title"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"createdAt"`
	Owned     bool      `json:"owned"`
}

// NewUpload is the metadata saved after a blob upload.
type NewUpload struct {
	AudioLink   string    `json:"audioLink"`
	Title       string    `json:"title"`
	Private     bool      `json:"private"`
	DeletionURL string    `json:"deletionUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Record is an upload as stored after a change. Title is the server's
// normalized value.
type Record struct {
	Title       string    `json:"title"`
	AudioLink   string    `json:"audioLink"`
	Private     bool      `json:"private"`
	DeletionURL string    `json:"deletionUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Client calls the API on behalf of one session.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client. token may be empty for anonymous reads.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// HasSession reports whether a bearer token is configured.
func (c *Client) HasSession() bool {
	return c.token != ""
}

// Credential fetches the sealed blob API key.
func (c *Client) Credential(ctx context.Context) (string, error) {
	var out struct {
		APIKey string `json:"apiKey"`
	}
	if err := c.do(ctx, http.MethodGet, "/credential", nil, &out); err != nil {
		return "", fmt.Errorf("get credential: %w", err)
	}
	return out.APIKey, nil
}

// List returns the caller's uploads in stored order.
func (c *Client) List(ctx context.Context) ([]Upload, error) {
	var out []Upload
	if err := c.do(ctx, http.MethodGet, "/uploads", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create stores metadata for a freshly uploaded blob.
func (c *Client) Create(ctx context.Context, u NewUpload) error {
	return c.do(ctx, http.MethodPost, "/uploads", u, nil)
}

// Get reads one upload by its public link.
func (c *Client) Get(ctx context.Context, link string) (*Details, error) {
	var out Details
	if err := c.do(ctx, http.MethodGet, "/uploads?audioLink="+url.QueryEscape(link), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Patch changes title and/or visibility and returns the stored record. nil
// fields are left unchanged.
func (c *Client) Patch(ctx context.Context, link string, title *string, public *bool) (*Record, error) {
	body := struct {
		AudioLink string  `json:"audioLink"`
		Title     *string `json:"title,omitempty"`
		Public    *bool   `json:"public,omitempty"`
	}{link, title, public}
	var out Record
	if err := c.do(ctx, http.MethodPatch, "/uploads", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete revokes the blob and removes its metadata.
func (c *Client) Delete(ctx context.Context, link string) error {
	return c.do(ctx, http.MethodDelete, "/uploads", map[string]string{"audioLink": link}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
