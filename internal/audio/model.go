// Package audio manages users' uploaded audio records: one profile document
// per identity holding an ordered list of uploads.
package audio

import (
	"errors"
	"time"
)

var (
	// ErrProfileNotFound is returned when an identity has never uploaded anything.
	ErrProfileNotFound = errors.New("user profile not found")
	// ErrRecordNotFound is returned when no record with the link exists for the caller.
	ErrRecordNotFound = errors.New("audio not found")
	// ErrInvalidInput wraps every validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRevokeFailed is returned when the blob service refused to erase a file.
	ErrRevokeFailed = errors.New("failed to delete file from blob storage")
)

// Record is one stored audio file. Private is the canonical visibility flag;
// "public" only exists at the HTTP boundary.
type Record struct {
	Title       string    `json:"title"`
	AudioLink   string    `json:"audioLink"`
	Private     bool      `json:"private"`
	DeletionURL string    `json:"deletionUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Profile aggregates all uploads of one identity in insertion order.
type Profile struct {
	Identity  string    `json:"identity"`
	Uploads   []Record  `json:"uploads"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the list projection of a Record.
type Summary struct {
	Name        string    `json:"name"`
	Link        string    `json:"link"`
	CreatedAt   time.Time `json:"createdAt"`
	DeletionURL string    `json:"deletionUrl"`
}

// Details is the single-record projection used by the studio.
type Details struct {
	Title     string    `json:"title"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"createdAt"`
	Owned     bool      `json:"owned"`
}

// Patch lists the fields to change. A nil field is left untouched.
type Patch struct {
	Title  *string
	Public *bool
}

func (p Patch) apply(rec *Record) {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Public != nil {
		rec.Private = !*p.Public
	}
}

func indexOf(uploads []Record, link string) int {
	for i := range uploads {
		if uploads[i].AudioLink == link {
			return i
		}
	}
	return -1
}

// withoutLink drops every record carrying link and reports how many went.
func withoutLink(uploads []Record, link string) ([]Record, int) {
	kept := make([]Record, 0, len(uploads))
	for _, u := range uploads {
		if u.AudioLink != link {
			kept = append(kept, u)
		}
	}
	return kept, len(uploads) - len(kept)
}
