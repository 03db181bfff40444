package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements TokenStore using the X_BEARER_TOKEN
// environment variable. Read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based token store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(token *Token) error {
	return ErrStoreUnavailable
}

// Retrieve gets the token from X_BEARER_TOKEN. The label is ignored apart
// from naming the result; the environment holds a single token.
func (e *EnvironmentStore) Retrieve(label string) (*Token, error) {
	bearer := os.Getenv("X_BEARER_TOKEN")
	if bearer == "" {
		return nil, ErrTokenNotFound
	}

	if label == "" {
		label = "default"
	}

	return &Token{
		Label:        label,
		BearerToken:  bearer,
		LastModified: time.Now(),
	}, nil
}

// List returns the single environment token when set.
func (e *EnvironmentStore) List() ([]*Token, error) {
	token, err := e.Retrieve("")
	if err != nil {
		return []*Token{}, nil
	}
	return []*Token{token}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(label string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment token is set.
func (e *EnvironmentStore) Exists(label string) bool {
	return os.Getenv("X_BEARER_TOKEN") != ""
}
