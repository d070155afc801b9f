// Package studio edits the details of one uploaded audio file.
package studio

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/fe2audio/service/internal/client"
)

// State is where the editor is in its lifecycle.
type State int

const (
	// Loading is the state while details are being fetched.
	Loading State = iota
	// Invalid means the link is not on the upload domain.
	Invalid
	// Unauthorized means the upload is missing or belongs to someone else.
	Unauthorized
	// Ready means the caller owns the upload and may save changes.
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Invalid:
		return "invalid"
	case Unauthorized:
		return "unauthorized"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// User-facing texts set on Editor.Err and Editor.Message.
const (
	// MsgInvalidLink is shown for links outside the upload domain.
	MsgInvalidLink = "Invalid audio URL. Please check the link and try again."
	// MsgNotOwned is shown when the caller cannot edit the upload.
	MsgNotOwned = "You can only edit audio you uploaded."
	// MsgUpdated confirms a successful save.
	MsgUpdated      = "Audio details updated successfully"
	msgNothingToSet = "Nothing to update."
)

// ErrNotEditable is returned by Save outside the Ready state.
var ErrNotEditable = errors.New("audio is not editable")

// API is the part of the metadata API the editor uses.
type API interface {
	Get(ctx context.Context, link string) (*client.Details, error)
	Patch(ctx context.Context, link string, title *string, public *bool) (*client.Record, error)
}

// Editor holds the studio view of one upload. Title and Public always show
// the last values confirmed by the server.
type Editor struct {
	api    API
	domain string

	State   State
	Link    string
	Title   string
	Public  bool
	Message string
	Err     string
}

// New creates an Editor accepting links on the given upload domain.
func New(api API, uploadDomain string) *Editor {
	return &Editor{api: api, domain: uploadDomain}
}

// ValidLink reports whether link is an https URL on domain.
func ValidLink(link, domain string) bool {
	u, err := url.Parse(link)
	return err == nil && u.Scheme == "https" && u.Hostname() == domain
}

// Open loads link into the editor. Links outside the upload domain are never
// fetched.
func (e *Editor) Open(ctx context.Context, link string) State {
	*e = Editor{api: e.api, domain: e.domain, State: Loading, Link: link}

	if !ValidLink(link, e.domain) {
		e.State = Invalid
		e.Err = MsgInvalidLink
		return e.State
	}

	d, err := e.api.Get(ctx, link)
	switch {
	case errors.Is(err, client.ErrNotFound):
		e.State = Unauthorized
		e.Err = MsgNotOwned
	case err != nil:
		log.Warn().Err(err).Str("link", link).Msg("load audio details")
		e.State = Unauthorized
		e.Err = err.Error()
	case !d.Owned:
		e.State = Unauthorized
		e.Title = d.Title
		e.Public = d.Public
		e.Err = MsgNotOwned
	default:
		e.State = Ready
		e.Title = d.Title
		e.Public = d.Public
	}
	return e.State
}

// Save applies the given changes. nil arguments are left unchanged. On
// failure the editor keeps its previous values and exposes the error text.
func (e *Editor) Save(ctx context.Context, title *string, public *bool) error {
	if e.State != Ready {
		return ErrNotEditable
	}
	e.Message, e.Err = "", ""
	if title == nil && public == nil {
		e.Err = msgNothingToSet
		return nil
	}

	rec, err := e.api.Patch(ctx, e.Link, title, public)
	if err != nil {
		e.Err = err.Error()
		return err
	}

	e.Title = rec.Title
	e.Public = !rec.Private
	e.Message = MsgUpdated
	return nil
}
