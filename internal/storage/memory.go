package storage

import (
	"context"
	"sync"
	"time"
)

type memoryKey struct {
	repo    string
	version string
}

// Memory is an in-process Repository used when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	releases map[memoryKey]Release
	clock    func() time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source used for CreatedAt.
func WithClock(clock func() time.Time) MemoryOption {
	return func(m *Memory) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMemory returns an empty store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{releases: make(map[memoryKey]Release), clock: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Save inserts or replaces a release, keeping the original CreatedAt.
func (m *Memory) Save(ctx context.Context, rel Release) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := Normalize(rel)
	if err != nil {
		return err
	}
	key := memoryKey{repo: rel.Repository, version: rel.Version}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.releases[key]; ok {
		rel.CreatedAt = existing.CreatedAt
	} else {
		rel.CreatedAt = m.clock().UTC()
	}
	m.releases[key] = rel
	return nil
}

// List returns repo's releases newest version first.
func (m *Memory) List(ctx context.Context, repo string) ([]Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var out []Release
	for key, rel := range m.releases {
		if key.repo == repo {
			out = append(out, rel)
		}
	}
	m.mu.RUnlock()
	SortByVersion(out)
	return out, nil
}

// Get returns a single release or ErrNotFound.
func (m *Memory) Get(ctx context.Context, repo, ver string) (Release, error) {
	if err := ctx.Err(); err != nil {
		return Release{}, err
	}
	lookup, err := Normalize(Release{Repository: repo, Version: ver})
	if err != nil {
		return Release{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rel, ok := m.releases[memoryKey{repo: lookup.Repository, version: lookup.Version}]
	if !ok {
		return Release{}, ErrNotFound
	}
	return rel, nil
}

// Import validates every release before saving any of them.
func (m *Memory) Import(ctx context.Context, releases []Release) error {
	for _, rel := range releases {
		if _, err := Normalize(rel); err != nil {
			return err
		}
	}
	for _, rel := range releases {
		if err := m.Save(ctx, rel); err != nil {
			return err
		}
	}
	return nil
}
