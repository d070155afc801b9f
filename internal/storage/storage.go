// Package storage puts audio objects into S3-compatible object storage.
package storage

import (
	"context"
	"io"
)

// Storage uploads, removes and addresses audio objects.
type Storage interface {
	// Upload streams data under key. size may be -1 when unknown.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes the object at key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
	// PublicURL is the anonymous download URL of key.
	PublicURL(key string) string
}
