package mocks

import (
	"context"
	"sync"

	"github.com/SergeiKhy/shortener/internal/models"
	"github.com/SergeiKhy/shortener/internal/repository"
)

// MockLinkStore implements repository.LinkStore on top of the in-memory store,
// counting calls and letting tests inject failures.
type MockLinkStore struct {
	mu    sync.Mutex
	inner *repository.MemoryStore

	PutCalls         int
	GetCalls         int
	AppendClickCalls int
	ExistsCalls      int

	// PutCollisions makes the next N Put calls fail with ErrCodeExists.
	PutCollisions int
	// AlwaysTaken makes Exists report every code as taken.
	AlwaysTaken bool
	// Err, when set, is returned by every operation.
	Err error
}

// NewMockLinkStore returns a mock over an empty in-memory store.
func NewMockLinkStore() *MockLinkStore {
	return &MockLinkStore{inner: repository.NewMemoryStore()}
}

func (m *MockLinkStore) Put(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	m.PutCalls++
	if m.Err != nil {
		m.mu.Unlock()
		return m.Err
	}
	if m.PutCollisions > 0 {
		m.PutCollisions--
		m.mu.Unlock()
		return repository.ErrCodeExists
	}
	m.mu.Unlock()
	return m.inner.Put(ctx, link)
}

func (m *MockLinkStore) Get(ctx context.Context, code string) (*models.Link, error) {
	m.mu.Lock()
	m.GetCalls++
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.inner.Get(ctx, code)
}

func (m *MockLinkStore) List(ctx context.Context) ([]*models.Link, error) {
	m.mu.Lock()
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.inner.List(ctx)
}

func (m *MockLinkStore) AppendClick(ctx context.Context, code string, click models.Click) error {
	m.mu.Lock()
	m.AppendClickCalls++
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.AppendClick(ctx, code, click)
}

func (m *MockLinkStore) Exists(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	m.ExistsCalls++
	err, taken := m.Err, m.AlwaysTaken
	m.mu.Unlock()
	if err != nil {
		return false, err
	}
	if taken {
		return true, nil
	}
	return m.inner.Exists(ctx, code)
}

func (m *MockLinkStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.Ping(ctx)
}

// Calls returns a snapshot of the call counters: put, get, appendClick, exists.
func (m *MockLinkStore) Calls() (put, get, appendClick, exists int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PutCalls, m.GetCalls, m.AppendClickCalls, m.ExistsCalls
}
