// Package blob talks to the CDN upload API that stores the audio binaries.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// ErrUpstream is returned when the blob service rejects a request.
var ErrUpstream = errors.New("blob service error")

// DefaultEndpoint is the public Tixte upload endpoint.
const DefaultEndpoint = "https://api.tixte.com/v1/upload"

// Uploaded is what the blob service hands back for a stored file.
type Uploaded struct {
	DirectURL   string `json:"direct_url"`
	DeletionURL string `json:"deletion_url"`
}

type uploadResponse struct {
	Success bool     `json:"success"`
	Data    Uploaded `json:"data"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client uploads and revokes blobs.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a Client posting uploads to endpoint. An empty endpoint
// falls back to DefaultEndpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

// Upload sends the file as multipart form data: a payload_json part naming
// the domain and file name, followed by the file itself.
func (c *Client) Upload(ctx context.Context, apiKey, domain, name, contentType string, file io.Reader) (*Uploaded, error) {
	body, formType, err := encodeForm(domain, name, contentType, file)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", formType)
	req.Header.Set("Authorization", apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: upload returned status %d", ErrUpstream, resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode upload response: %w", ErrUpstream, err)
	}
	if !out.Success || out.Data.DirectURL == "" {
		msg := "upload not accepted"
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}

	log.Debug().Str("url", out.Data.DirectURL).Msg("blob uploaded")
	return &out.Data, nil
}

// Revoke erases a blob by fetching its deletion URL.
func (c *Client) Revoke(ctx context.Context, deletionURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, deletionURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: revoke returned status %d: %s", ErrUpstream, resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}

func encodeForm(domain, name, contentType string, file io.Reader) (*bytes.Buffer, string, error) {
	payload, err := json.Marshal(map[string]string{"domain": domain, "name": name})
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("payload_json", string(payload)); err != nil {
		return nil, "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
