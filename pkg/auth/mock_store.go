package auth

import (
	"sync"
)

// MockStore implements SessionStore for tests.
type MockStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

func NewMockStore() *MockStore {
	return &MockStore{sessions: make(map[string]*Session)}
}

func (m *MockStore) Store(session *Session) error {
	if m.StoreError != nil {
		return m.StoreError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session == nil || session.Label == "" {
		return ErrInvalidSession
	}

	sessionCopy := *session
	m.sessions[session.Label] = &sessionCopy
	return nil
}

func (m *MockStore) Retrieve(label string) (*Session, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if label == "" {
		return nil, ErrInvalidSession
	}

	session, exists := m.sessions[label]
	if !exists {
		return nil, ErrSessionNotFound
	}

	sessionCopy := *session
	return &sessionCopy, nil
}

func (m *MockStore) List() ([]*Session, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var sessions []*Session
	for _, session := range m.sessions {
		sessionCopy := *session
		sessions = append(sessions, &sessionCopy)
	}
	return sessions, nil
}

func (m *MockStore) Delete(label string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if label == "" {
		return ErrInvalidSession
	}

	if _, exists := m.sessions[label]; !exists {
		return ErrSessionNotFound
	}

	delete(m.sessions, label)
	return nil
}

func (m *MockStore) Exists(label string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.sessions[label]
	return exists
}

func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// NewMockManager creates a Manager backed only by a mock store.
func NewMockManager() (*Manager, *MockStore) {
	mockStore := NewMockStore()
	return &Manager{stores: []SessionStore{mockStore}}, mockStore
}

// NewMockManagerWithStores creates a Manager over arbitrary stores.
func NewMockManagerWithStores(stores ...SessionStore) *Manager {
	return &Manager{stores: stores}
}
