package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerStoreAndRetrieve(t *testing.T) {
	store := NewMockStore()
	manager := NewManagerWithStores(store)

	err := manager.Store(&Token{Label: "work", BearerToken: "tok-1"})
	require.NoError(t, err)

	token, err := manager.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "work", token.Label)
	assert.Equal(t, "tok-1", token.BearerToken)
	assert.False(t, token.LastModified.IsZero())
}

func TestManagerStoreDefaultsLabel(t *testing.T) {
	store := NewMockStore()
	manager := NewManagerWithStores(store)

	require.NoError(t, manager.Store(&Token{BearerToken: "tok-1"}))

	token, err := manager.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token.BearerToken)
}

func TestManagerStoreValidation(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())

	assert.ErrorIs(t, manager.Store(nil), ErrInvalidToken)
	assert.ErrorIs(t, manager.Store(&Token{Label: "x"}), ErrInvalidToken)
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.FailStore = true
	working := NewMockStore()
	manager := NewManagerWithStores(broken, working)

	require.NoError(t, manager.Store(&Token{Label: "work", BearerToken: "tok-1"}))

	assert.False(t, broken.Exists("work"))
	assert.True(t, working.Exists("work"))

	token, err := manager.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token.BearerToken)
}

func TestManagerRetrieveNotFound(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())

	_, err := manager.Retrieve("missing")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestManagerRetrieveDefault(t *testing.T) {
	t.Run("environment variable wins", func(t *testing.T) {
		t.Setenv("X_BEARER_TOKEN", "env-token")

		store := NewMockStore()
		require.NoError(t, store.Store(&Token{Label: "default", BearerToken: "stored-token"}))
		manager := NewManagerWithStores(store, NewEnvironmentStore())

		token, err := manager.RetrieveDefault()
		require.NoError(t, err)
		assert.Equal(t, "env-token", token.BearerToken)
	})

	t.Run("default label when no env token", func(t *testing.T) {
		t.Setenv("X_BEARER_TOKEN", "")

		store := NewMockStore()
		require.NoError(t, store.Store(&Token{Label: "default", BearerToken: "stored-token"}))
		manager := NewManagerWithStores(store, NewEnvironmentStore())

		token, err := manager.RetrieveDefault()
		require.NoError(t, err)
		assert.Equal(t, "stored-token", token.BearerToken)
	})

	t.Run("any single token when no default label", func(t *testing.T) {
		t.Setenv("X_BEARER_TOKEN", "")

		store := NewMockStore()
		require.NoError(t, store.Store(&Token{Label: "work", BearerToken: "work-token"}))
		manager := NewManagerWithStores(store, NewEnvironmentStore())

		token, err := manager.RetrieveDefault()
		require.NoError(t, err)
		assert.Equal(t, "work-token", token.BearerToken)
	})

	t.Run("nothing anywhere", func(t *testing.T) {
		t.Setenv("X_BEARER_TOKEN", "")

		manager := NewManagerWithStores(NewMockStore(), NewEnvironmentStore())
		_, err := manager.RetrieveDefault()
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})
}

func TestManagerList(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	require.NoError(t, first.Store(&Token{Label: "a", BearerToken: "1"}))
	require.NoError(t, second.Store(&Token{Label: "a", BearerToken: "shadowed"}))
	require.NoError(t, second.Store(&Token{Label: "b", BearerToken: "2"}))

	manager := NewManagerWithStores(first, second)
	tokens, err := manager.List()
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	byLabel := make(map[string]string)
	for _, tok := range tokens {
		byLabel[tok.Label] = tok.BearerToken
	}
	// First occurrence of a label wins
	assert.Equal(t, "1", byLabel["a"])
	assert.Equal(t, "2", byLabel["b"])
}

func TestManagerDelete(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	require.NoError(t, first.Store(&Token{Label: "a", BearerToken: "1"}))
	require.NoError(t, second.Store(&Token{Label: "a", BearerToken: "1"}))

	manager := NewManagerWithStores(first, second)
	require.NoError(t, manager.Delete("a"))

	assert.False(t, first.Exists("a"))
	assert.False(t, second.Exists("a"))

	assert.ErrorIs(t, manager.Delete("a"), ErrTokenNotFound)
}

func TestEnvironmentStore(t *testing.T) {
	t.Run("retrieve", func(t *testing.T) {
		t.Setenv("X_BEARER_TOKEN", "env-token")

		store := NewEnvironmentStore()
		assert.True(t, store.Exists("anything"))

		token, err := store.Retrieve("")
		require.NoError(t, err)
		assert.Equal(t, "default", token.Label)
		assert.Equal(t, "env-token", token.BearerToken)

		tokens, err := store.List()
		require.NoError(t, err)
		assert.Len(t, tokens, 1)
	})

	t.Run("unset", func(t *testing.T) {
		t.Setenv("X_BEARER_TOKEN", "")

		store := NewEnvironmentStore()
		assert.False(t, store.Exists("default"))

		_, err := store.Retrieve("default")
		assert.ErrorIs(t, err, ErrTokenNotFound)

		tokens, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})

	t.Run("read only", func(t *testing.T) {
		store := NewEnvironmentStore()
		assert.ErrorIs(t, store.Store(&Token{Label: "x", BearerToken: "y"}), ErrStoreUnavailable)
		assert.ErrorIs(t, store.Delete("x"), ErrStoreUnavailable)
	})
}
