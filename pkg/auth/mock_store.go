package auth

import "sync"

// MockStore is an in-memory TokenStore for tests.
type MockStore struct {
	mu     sync.RWMutex
	tokens map[string]*Token

	// FailStore makes Store return ErrStoreUnavailable, to exercise the
	// Manager's fallback chain.
	FailStore bool
}

// NewMockStore creates an empty in-memory token store.
func NewMockStore() *MockStore {
	return &MockStore{tokens: make(map[string]*Token)}
}

// Store saves a token in memory.
func (m *MockStore) Store(token *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailStore {
		return ErrStoreUnavailable
	}
	if token == nil || token.Label == "" {
		return ErrInvalidToken
	}

	copied := *token
	m.tokens[token.Label] = &copied
	return nil
}

// Retrieve gets a token from memory.
func (m *MockStore) Retrieve(label string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[label]
	if !ok {
		return nil, ErrTokenNotFound
	}
	copied := *token
	return &copied, nil
}

// List returns all tokens in memory.
func (m *MockStore) List() ([]*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Token, 0, len(m.tokens))
	for _, token := range m.tokens {
		copied := *token
		list = append(list, &copied)
	}
	return list, nil
}

// Delete removes a token from memory.
func (m *MockStore) Delete(label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[label]; !ok {
		return ErrTokenNotFound
	}
	delete(m.tokens, label)
	return nil
}

// Exists checks if a token exists for a label.
func (m *MockStore) Exists(label string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.tokens[label]
	return ok
}
