// Package auth stores the X API bearer token outside of shell history and
// config files: in the system keychain when available, in an encrypted file
// otherwise, with the X_BEARER_TOKEN environment variable as the final
// fallback.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Common store errors
var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrInvalidToken     = errors.New("invalid token")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Token is a stored bearer token. Label distinguishes multiple tokens (for
// example different projects or apps); "default" is used when only one is
// kept.
type Token struct {
	Label        string    `json:"label"`
	BearerToken  string    `json:"bearer_token"`
	LastModified time.Time `json:"last_modified"`
}

// TokenStore is the interface for storing and retrieving bearer tokens.
type TokenStore interface {
	// Store saves a token under its label
	Store(token *Token) error

	// Retrieve gets the token for a label
	Retrieve(label string) (*Token, error)

	// List returns all stored tokens
	List() ([]*Token, error)

	// Delete removes the token for a label
	Delete(label string) error

	// Exists checks if a token exists for a label
	Exists(label string) bool
}

// Manager handles token storage with fallback mechanisms.
type Manager struct {
	stores []TokenStore
}

// NewManager creates a token manager with the available storage backends:
// system keychain first, encrypted file second, environment last.
func NewManager() (*Manager, error) {
	var stores []TokenStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "tokens.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over an explicit store chain.
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the token using the first store that accepts it.
func (m *Manager) Store(token *Token) error {
	if token == nil || token.BearerToken == "" {
		return ErrInvalidToken
	}
	if token.Label == "" {
		token.Label = "default"
	}
	token.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(token); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store token: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the token for a label from the first store that has it.
func (m *Manager) Retrieve(label string) (*Token, error) {
	for _, store := range m.stores {
		if token, err := store.Retrieve(label); err == nil && token != nil {
			return token, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, label)
}

// RetrieveDefault gets the token the archiver should use when no label is
// given: the environment first (so X_BEARER_TOKEN always wins), then the
// "default" label, then any single stored token.
func (m *Manager) RetrieveDefault() (*Token, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if token, err := envStore.Retrieve(""); err == nil && token != nil {
			return token, nil
		}
	}

	if token, err := m.Retrieve("default"); err == nil {
		return token, nil
	}

	tokens, err := m.List()
	if err != nil || len(tokens) == 0 {
		return nil, ErrTokenNotFound
	}
	return tokens[0], nil
}

// List returns all tokens across stores, first occurrence of a label wins.
func (m *Manager) List() ([]*Token, error) {
	seen := make(map[string]bool)
	var all []*Token

	for _, store := range m.stores {
		tokens, err := store.List()
		if err != nil {
			continue
		}
		for _, token := range tokens {
			if !seen[token.Label] {
				seen[token.Label] = true
				all = append(all, token)
			}
		}
	}

	return all, nil
}

// Delete removes the token for a label from every store that has it.
func (m *Manager) Delete(label string) error {
	deleted := false
	for _, store := range m.stores {
		if store.Exists(label) {
			if err := store.Delete(label); err == nil {
				deleted = true
			}
		}
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, label)
	}
	return nil
}

// getConfigDir returns the directory for the archiver's private files.
func getConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "xmonth"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "xmonth"), nil
}
