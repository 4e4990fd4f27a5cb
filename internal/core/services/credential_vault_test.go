package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"paydesk/internal/adapters/persistence/repositories"
	"paydesk/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialVaultRememberScenario(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	mem := repositories.NewMemoryStore().WithClock(func() time.Time { return now })
	c := testCipher()
	vault := NewCredentialVault(mem, c)

	require.NoError(t, vault.Save(ctx, "9876543210", "Passw0rd!", 7))

	for _, key := range []string{rememberFlagKey, rememberNumberKey, rememberPasswordKey} {
		exp, ok := mem.ExpiresAt(key)
		require.True(t, ok, key)
		assert.Equal(t, now.Add(7*24*time.Hour), exp, key)
	}

	flag, _, _ := mem.Get(ctx, rememberFlagKey)
	assert.Equal(t, "true", flag)
	number, _, _ := mem.Get(ctx, rememberNumberKey)
	assert.NotEqual(t, "9876543210", number)
	assert.Equal(t, "9876543210", c.Decrypt(number))

	cred := vault.Load(ctx)
	require.NotNil(t, cred)
	assert.Equal(t, "9876543210", cred.Identifier)
	assert.Equal(t, "Passw0rd!", cred.Secret)
}

func TestCredentialVaultRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	mem := repositories.NewMemoryStore()
	vault := NewCredentialVault(mem, testCipher())

	err := vault.Save(ctx, "12345", "Passw0rd!", 7)
	assert.True(t, errors.Is(err, domain.ErrInvalidIdentifier))

	err = vault.Save(ctx, "9876543210", "password", 7)
	assert.True(t, errors.Is(err, domain.ErrWeakSecret))

	err = vault.Save(ctx, "9876543210", "Passw0rd!", 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	assert.Equal(t, 0, mem.Len())
}

func TestCredentialVaultLoadFailsClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing stored", func(t *testing.T) {
		vault := NewCredentialVault(repositories.NewMemoryStore(), testCipher())
		assert.Nil(t, vault.Load(ctx))
	})

	t.Run("undecryptable secret", func(t *testing.T) {
		mem := repositories.NewMemoryStore()
		vault := NewCredentialVault(mem, testCipher())
		require.NoError(t, vault.Save(ctx, "9876543210", "Passw0rd!", 7))
		require.NoError(t, mem.Set(ctx, rememberPasswordKey, "tampered", time.Hour))
		assert.Nil(t, vault.Load(ctx))
	})

	t.Run("missing flag", func(t *testing.T) {
		mem := repositories.NewMemoryStore()
		vault := NewCredentialVault(mem, testCipher())
		require.NoError(t, vault.Save(ctx, "9876543210", "Passw0rd!", 7))
		require.NoError(t, mem.Delete(ctx, rememberFlagKey))
		assert.Nil(t, vault.Load(ctx))
	})
}

func TestCredentialVaultClear(t *testing.T) {
	ctx := context.Background()
	mem := repositories.NewMemoryStore()
	vault := NewCredentialVault(mem, testCipher())

	require.NoError(t, vault.Save(ctx, "9876543210", "Passw0rd!", 7))
	require.NoError(t, vault.Clear(ctx))

	assert.Nil(t, vault.Load(ctx))
	assert.Equal(t, 0, mem.Len())
}
