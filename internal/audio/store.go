package audio

import "context"

// Store is the document store holding one Profile per identity.
type Store interface {
	// Append creates the profile if needed and appends rec in one write.
	Append(ctx context.Context, identity string, rec Record) (*Profile, error)
	// Profile returns ErrProfileNotFound when identity has no document.
	Profile(ctx context.Context, identity string) (*Profile, error)
	// FindByLink returns the owning identity and the first record with link.
	FindByLink(ctx context.Context, link string) (string, *Record, error)
	// Update applies p to the first record with link in identity's profile.
	Update(ctx context.Context, identity, link string, p Patch) (*Record, error)
	// Remove deletes every record with link from identity's profile.
	Remove(ctx context.Context, identity, link string) (int, error)
}
