package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "xmonth"
	keyringPrefix  = "token_"
	keyringIndex   = "token_index"
)

// KeyringStore implements TokenStore using the system keychain.
type KeyringStore struct{}

// NewKeyringStore creates a keyring-based token store, failing when no
// keychain backend is available on this system.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves a token to the system keychain.
func (k *KeyringStore) Store(token *Token) error {
	if token == nil || token.Label == "" {
		return ErrInvalidToken
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := keyring.Set(keyringService, keyringPrefix+token.Label, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	return k.addToIndex(token.Label)
}

// Retrieve gets a token from the system keychain.
func (k *KeyringStore) Retrieve(label string) (*Token, error) {
	if label == "" {
		return nil, ErrInvalidToken
	}

	data, err := keyring.Get(keyringService, keyringPrefix+label)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read from keyring: %w", err)
	}

	var token Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &token, nil
}

// List returns all tokens recorded in the keyring index. The keyring API has
// no enumeration, so labels are tracked in a dedicated index entry.
func (k *KeyringStore) List() ([]*Token, error) {
	labels, err := k.readIndex()
	if err != nil {
		return nil, err
	}

	var tokens []*Token
	for _, label := range labels {
		if token, err := k.Retrieve(label); err == nil {
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

// Delete removes a token from the system keychain.
func (k *KeyringStore) Delete(label string) error {
	if label == "" {
		return ErrInvalidToken
	}

	if err := keyring.Delete(keyringService, keyringPrefix+label); err != nil {
		if err == keyring.ErrNotFound {
			return ErrTokenNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	return k.removeFromIndex(label)
}

// Exists checks if a token exists for a label.
func (k *KeyringStore) Exists(label string) bool {
	_, err := keyring.Get(keyringService, keyringPrefix+label)
	return err == nil
}

func (k *KeyringStore) readIndex() ([]string, error) {
	data, err := keyring.Get(keyringService, keyringIndex)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}
	if data == "" {
		return nil, nil
	}
	return strings.Split(data, ","), nil
}

func (k *KeyringStore) addToIndex(label string) error {
	labels, err := k.readIndex()
	if err != nil {
		return err
	}
	for _, l := range labels {
		if l == label {
			return nil
		}
	}
	labels = append(labels, label)
	return keyring.Set(keyringService, keyringIndex, strings.Join(labels, ","))
}

func (k *KeyringStore) removeFromIndex(label string) error {
	labels, err := k.readIndex()
	if err != nil {
		return err
	}
	kept := labels[:0]
	for _, l := range labels {
		if l != label {
			kept = append(kept, l)
		}
	}
	return keyring.Set(keyringService, keyringIndex, strings.Join(kept, ","))
}
