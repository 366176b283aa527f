package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/SergeiKhy/shortener/internal/models"
)

// memoryEntry guards a single link. seq fixes the creation order.
type memoryEntry struct {
	mu   sync.Mutex
	seq  uint64
	link *models.Link
}

// MemoryStore keeps links in process memory. The index lock is held only for
// map access; click appends lock the entry they touch.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	nextSeq uint64
}

// NewMemoryStore returns an empty store. Its contents live as long as the process.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Put(ctx context.Context, link *models.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[link.ShortCode]; exists {
		return ErrCodeExists
	}

	s.nextSeq++
	stored := link.Clone()
	if stored.Clicks == nil {
		stored.Clicks = []models.Click{}
	}
	s.entries[link.ShortCode] = &memoryEntry{seq: s.nextSeq, link: stored}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, code string) (*models.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, ok := s.lookup(code)
	if !ok {
		return nil, ErrLinkNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.link.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries := make([]*memoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	links := make([]*models.Link, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		links = append(links, e.link.Clone())
		e.mu.Unlock()
	}
	return links, nil
}

func (s *MemoryStore) AppendClick(ctx context.Context, code string, click models.Click) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, ok := s.lookup(code)
	if !ok {
		return ErrLinkNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.link.Clicks = append(e.link.Clicks, click)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := s.lookup(code)
	return ok, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) lookup(code string) (*memoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[code]
	return e, ok
}
