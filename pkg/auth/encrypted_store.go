package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// EncryptedFileStore implements TokenStore using an AES-GCM encrypted file.
// The key is derived with PBKDF2 from a passphrase taken from
// XMONTH_VAULT_KEY, or from a generated key file next to the store.
type EncryptedFileStore struct {
	filePath   string
	passphrase string
	mu         sync.RWMutex
}

// encryptedFile is the on-disk structure of the store.
type encryptedFile struct {
	Salt      string `json:"salt"`
	Encrypted string `json:"encrypted"`
}

// NewEncryptedFileStore creates an encrypted file-based token store.
func NewEncryptedFileStore(filePath string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(filePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	store := &EncryptedFileStore{filePath: filePath}

	passphrase, err := store.getPassphrase()
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	store.passphrase = passphrase

	return store, nil
}

// Store saves a token to the encrypted file.
func (e *EncryptedFileStore) Store(token *Token) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if token == nil || token.Label == "" {
		return ErrInvalidToken
	}

	tokens, err := e.loadTokens()
	if err != nil {
		return err
	}

	tokens[token.Label] = *token
	return e.saveTokens(tokens)
}

// Retrieve gets a token from the encrypted file.
func (e *EncryptedFileStore) Retrieve(label string) (*Token, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if label == "" {
		return nil, ErrInvalidToken
	}

	tokens, err := e.loadTokens()
	if err != nil {
		return nil, err
	}

	token, ok := tokens[label]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &token, nil
}

// List returns all tokens in the encrypted file.
func (e *EncryptedFileStore) List() ([]*Token, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens, err := e.loadTokens()
	if err != nil {
		return nil, err
	}

	list := make([]*Token, 0, len(tokens))
	for label := range tokens {
		token := tokens[label]
		list = append(list, &token)
	}
	return list, nil
}

// Delete removes a token from the encrypted file.
func (e *EncryptedFileStore) Delete(label string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokens, err := e.loadTokens()
	if err != nil {
		return err
	}

	if _, ok := tokens[label]; !ok {
		return ErrTokenNotFound
	}
	delete(tokens, label)
	return e.saveTokens(tokens)
}

// Exists checks if a token exists for a label.
func (e *EncryptedFileStore) Exists(label string) bool {
	_, err := e.Retrieve(label)
	return err == nil
}

// loadTokens decrypts the store file. A missing file is an empty store.
func (e *EncryptedFileStore) loadTokens() (map[string]Token, error) {
	data, err := os.ReadFile(e.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Token), nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var file encryptedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
	plaintext, err := decrypt(ciphertext, key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt store: %w", err)
	}

	var tokens map[string]Token
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse decrypted store: %w", err)
	}
	return tokens, nil
}

// saveTokens encrypts and writes the store file with a fresh salt.
func (e *EncryptedFileStore) saveTokens(tokens map[string]Token) error {
	plaintext, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
	ciphertext, err := encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt store: %w", err)
	}

	file := encryptedFile{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
	}
	data, err := json.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal store file: %w", err)
	}

	if err := os.WriteFile(e.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return nil
}

// getPassphrase returns the vault passphrase: the XMONTH_VAULT_KEY variable
// when set, otherwise a random key generated once and kept next to the
// store file.
func (e *EncryptedFileStore) getPassphrase() (string, error) {
	if pass := os.Getenv("XMONTH_VAULT_KEY"); pass != "" {
		return pass, nil
	}

	keyPath := e.filePath + ".key"
	if data, err := os.ReadFile(keyPath); err == nil {
		return string(data), nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	raw := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	pass := hex.EncodeToString(raw)

	if err := os.WriteFile(keyPath, []byte(pass), 0600); err != nil {
		return "", err
	}
	return pass, nil
}

// encrypt seals plaintext with AES-GCM; the nonce is prefixed.
func encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt opens an AES-GCM sealed blob produced by encrypt.
func decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}
