package audio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const maxTitleLength = 200

// Revoker erases a blob at the storage service given its deletion URL.
type Revoker interface {
	Revoke(ctx context.Context, deletionURL string) error
}

// Service contains the business logic for upload records.
type Service struct {
	store         Store
	blob          Revoker
	deletionHosts map[string]struct{}
	now           func() time.Time
}

// NewService creates a new audio Service. deletionHosts lists the hosts
// ("host" or "host:port") a deletion URL may point at; the server fetches
// those URLs, so anything else is refused.
func NewService(store Store, blob Revoker, deletionHosts []string) *Service {
	hosts := make(map[string]struct{}, len(deletionHosts))
	for _, h := range deletionHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts[h] = struct{}{}
		}
	}
	return &Service{store: store, blob: blob, deletionHosts: hosts, now: time.Now}
}

// Append records a freshly uploaded file for identity. A zero CreatedAt is
// stamped with the current time. Repeated calls append duplicates.
func (s *Service) Append(ctx context.Context, identity string, rec Record) (*Profile, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidInput)
	}
	rec.Title = strings.TrimSpace(rec.Title)
	if err := validateTitle(rec.Title); err != nil {
		return nil, err
	}
	if err := validateLink("audioLink", rec.AudioLink); err != nil {
		return nil, err
	}
	if rec.DeletionURL != "" {
		if err := validateLink("deletionUrl", rec.DeletionURL); err != nil {
			return nil, err
		}
		if !s.deletionHostAllowed(rec.DeletionURL) {
			return nil, fmt.Errorf("%w: deletionUrl host is not allowed", ErrInvalidInput)
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	p, err := s.store.Append(ctx, identity, rec)
	if err != nil {
		return nil, fmt.Errorf("append upload: %w", err)
	}
	return p, nil
}

// List returns identity's uploads in stored order. An existing profile with
// no uploads yields an empty, non-nil slice.
func (s *Service) List(ctx context.Context, identity string) ([]Summary, error) {
	p, err := s.store.Profile(ctx, identity)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(p.Uploads))
	for _, u := range p.Uploads {
		out = append(out, Summary{
			Name:        u.Title,
			Link:        u.AudioLink,
			CreatedAt:   u.CreatedAt,
			DeletionURL: u.DeletionURL,
		})
	}
	return out, nil
}

// Get looks a record up by link. caller may be empty for anonymous reads.
func (s *Service) Get(ctx context.Context, link, caller string) (*Details, error) {
	if link == "" {
		return nil, fmt.Errorf("%w: audioLink is required", ErrInvalidInput)
	}
	owner, rec, err := s.store.FindByLink(ctx, link)
	if err != nil {
		return nil, err
	}
	return &Details{
		Title:     rec.Title,
		Public:    !rec.Private,
		CreatedAt: rec.CreatedAt,
		Owned:     caller != "" && caller == owner,
	}, nil
}

// Patch changes title and/or visibility of a record owned by identity.
// Records of other identities are reported as not found and left untouched.
func (s *Service) Patch(ctx context.Context, identity, link string, p Patch) (*Record, error) {
	if link == "" {
		return nil, fmt.Errorf("%w: audioLink is required", ErrInvalidInput)
	}
	if p.Title == nil && p.Public == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		p.Title = &title
	}

	return s.store.Update(ctx, identity, link, p)
}

// Delete revokes the blob behind a record owned by identity and then removes
// the metadata. A failed revocation keeps the record so the user can retry.
func (s *Service) Delete(ctx context.Context, identity, link string) error {
	if link == "" {
		return fmt.Errorf("%w: audioLink is required", ErrInvalidInput)
	}

	prof, err := s.store.Profile(ctx, identity)
	if errors.Is(err, ErrProfileNotFound) {
		return ErrRecordNotFound
	}
	if err != nil {
		return err
	}
	i := indexOf(prof.Uploads, link)
	if i < 0 {
		return ErrRecordNotFound
	}

	if del := prof.Uploads[i].DeletionURL; del != "" {
		if !s.deletionHostAllowed(del) {
			return fmt.Errorf("%w: deletion host is not allowed", ErrRevokeFailed)
		}
		if err := s.blob.Revoke(ctx, del); err != nil {
			return fmt.Errorf("%w: %w", ErrRevokeFailed, err)
		}
	}

	if _, err := s.store.Remove(ctx, identity, link); err != nil {
		return err
	}
	return nil
}

// IsNotFound returns true when the error indicates a missing profile or record.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound) || errors.Is(err, ErrRecordNotFound)
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("%w: title longer than %d bytes", ErrInvalidInput, maxTitleLength)
	}
	return nil
}

func validateLink(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an absolute http(s) URL", ErrInvalidInput, field)
	}
	return nil
}

func (s *Service) deletionHostAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	if _, ok := s.deletionHosts[host]; ok {
		return true
	}
	_, ok := s.deletionHosts[strings.ToLower(u.Hostname())]
	return ok
}
