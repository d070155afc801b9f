package audio

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and local development.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*Profile)}
}

func (m *MemoryStore) Append(_ context.Context, identity string, rec Record) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	p, ok := m.profiles[identity]
	if !ok {
		p = &Profile{Identity: identity, Uploads: []Record{}, CreatedAt: now}
		m.profiles[identity] = p
	}
	p.Uploads = append(p.Uploads, rec)
	p.UpdatedAt = now
	return copyProfile(p), nil
}

func (m *MemoryStore) Profile(_ context.Context, identity string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[identity]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return copyProfile(p), nil
}

func (m *MemoryStore) FindByLink(_ context.Context, link string) (string, *Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// deterministic order so duplicate links across profiles resolve the same way
	ids := make([]string, 0, len(m.profiles))
	for id := range m.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		uploads := m.profiles[id].Uploads
		if i := indexOf(uploads, link); i >= 0 {
			rec := uploads[i]
			return id, &rec, nil
		}
	}
	return "", nil, ErrRecordNotFound
}

func (m *MemoryStore) Update(_ context.Context, identity, link string, p Patch) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prof, ok := m.profiles[identity]
	if !ok {
		return nil, ErrRecordNotFound
	}
	i := indexOf(prof.Uploads, link)
	if i < 0 {
		return nil, ErrRecordNotFound
	}
	p.apply(&prof.Uploads[i])
	prof.UpdatedAt = time.Now().UTC()
	rec := prof.Uploads[i]
	return &rec, nil
}

func (m *MemoryStore) Remove(_ context.Context, identity, link string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prof, ok := m.profiles[identity]
	if !ok {
		return 0, ErrRecordNotFound
	}
	kept, removed := withoutLink(prof.Uploads, link)
	if removed == 0 {
		return 0, ErrRecordNotFound
	}
	prof.Uploads = kept
	prof.UpdatedAt = time.Now().UTC()
	return removed, nil
}

func copyProfile(p *Profile) *Profile {
	out := *p
	out.Uploads = append([]Record{}, p.Uploads...)
	return &out
}
