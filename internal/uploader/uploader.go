// Package uploader runs the three-step upload: fetch a credential, push the
// file to the blob service, then save its metadata.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fe2audio/service/internal/blob"
	"github.com/fe2audio/service/internal/client"
)

var (
	// ErrUnsupportedType is returned for files that are neither mp3 nor ogg.
	ErrUnsupportedType = errors.New("only mp3 and ogg audio files are supported")
	// ErrNoSession is returned when no session token is configured.
	ErrNoSession = errors.New("sign in before uploading")
	// ErrBusy is returned while another upload on the same Orchestrator runs.
	ErrBusy = errors.New("an upload is already in progress")
	// ErrCredential wraps failures to fetch or open the upload credential.
	ErrCredential = errors.New("error fetching upload configuration")
	// ErrMetadataNotSaved means the blob exists but the API did not record it.
	ErrMetadataNotSaved = errors.New("file uploaded but metadata save failed")
)

var allowedTypes = map[string]bool{
	"audio/mp3":  true,
	"audio/mpeg": true,
	"audio/ogg":  true,
}

var typeByExt = map[string]string{
	".mp3": "audio/mpeg",
	".ogg": "audio/ogg",
}

// API is the part of the metadata API the orchestrator needs.
type API interface {
	HasSession() bool
	Credential(ctx context.Context) (string, error)
	Create(ctx context.Context, u client.NewUpload) error
}

// Opener unseals the credential into the blob API key.
type Opener interface {
	Open(token string) (string, error)
}

// BlobService stores the binary.
type BlobService interface {
	Upload(ctx context.Context, apiKey, domain, name, contentType string, file io.Reader) (*blob.Uploaded, error)
}

// Clipboard receives the public link after a successful upload.
type Clipboard interface {
	WriteAll(text string) error
}

// File is the audio to upload.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Result describes a stored upload.
type Result struct {
	Link        string
	DeletionURL string
	Title       string
	Private     bool
	CreatedAt   time.Time
}

// MetadataError reports a blob that was stored while its metadata was not.
// Link lets the user recover the file by hand.
type MetadataError struct {
	Link string
	Err  error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("%s (link: %s): %v", ErrMetadataNotSaved, e.Link, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

func (e *MetadataError) Is(target error) bool { return target == ErrMetadataNotSaved }

// Orchestrator uploads one file at a time.
type Orchestrator struct {
	api       API
	opener    Opener
	blob      BlobService
	clipboard Clipboard
	domain    string
	busy      atomic.Bool
	now       func() time.Time
}

// New creates an Orchestrator uploading to domain. clipboard may be nil.
func New(api API, opener Opener, blobs BlobService, clipboard Clipboard, domain string) *Orchestrator {
	return &Orchestrator{
		api:       api,
		opener:    opener,
		blob:      blobs,
		clipboard: clipboard,
		domain:    domain,
		now:       time.Now,
	}
}

// DetectType returns the content type to upload f with, falling back to the
// file extension when none was given.
func DetectType(f File) (string, error) {
	ct := f.ContentType
	if ct == "" {
		ct = typeByExt[strings.ToLower(filepath.Ext(f.Name))]
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	if !allowedTypes[ct] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, f.Name)
	}
	return ct, nil
}

// Upload stores f and records it under title. Failures at any step abort the
// remaining steps; nothing is retried.
func (o *Orchestrator) Upload(ctx context.Context, f File, title string, private bool) (*Result, error) {
	contentType, err := DetectType(f)
	if err != nil {
		return nil, err
	}
	if !o.api.HasSession() {
		return nil, ErrNoSession
	}
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.busy.Store(false)

	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(filepath.Base(f.Name), filepath.Ext(f.Name))
	}

	sealed, err := o.api.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredential, err)
	}
	apiKey, err := o.opener.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredential, err)
	}

	up, err := o.blob.Upload(ctx, apiKey, o.domain, filepath.Base(f.Name), contentType, f.Body)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	log.Info().Str("link", up.DirectURL).Msg("file uploaded")

	res := &Result{
		Link:        up.DirectURL,
		DeletionURL: up.DeletionURL,
		Title:       title,
		Private:     private,
		CreatedAt:   o.now().UTC(),
	}
	err = o.api.Create(ctx, client.NewUpload{
		AudioLink:   res.Link,
		Title:       res.Title,
		Private:     res.Private,
		DeletionURL: res.DeletionURL,
		CreatedAt:   res.CreatedAt,
	})
	if err != nil {
		return res, &MetadataError{Link: res.Link, Err: err}
	}

	if o.clipboard != nil {
		if err := o.clipboard.WriteAll(res.Link); err != nil {
			log.Warn().Err(err).Msg("link not copied to clipboard")
		}
	}
	return res, nil
}

// Busy reports whether an upload is running.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}
