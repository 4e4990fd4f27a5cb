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

func TestFlattenLaterKeysWin(t *testing.T) {
	got := Flatten(
		domain.PermissionSet{"a": true},
		domain.PermissionSet{"b": false, "a": false},
	)
	assert.Equal(t, domain.PermissionSet{"a": false, "b": false}, got)
}

func TestFlattenEmpty(t *testing.T) {
	assert.Equal(t, domain.PermissionSet{}, Flatten())
}

func TestPermissionStoreReplaceAndHydrate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	mem := repositories.NewMemoryStore().WithClock(func() time.Time { return now })

	p := NewPermissionStore(mem, testCipher())
	require.NoError(t, p.Replace(ctx, domain.PermissionSet{"loan_view": true, "loan_delete": false}))
	assert.True(t, p.Has("loan_view"))
	assert.False(t, p.Has("loan_delete"))

	exp, ok := mem.ExpiresAt(permissionsKey)
	require.True(t, ok)
	assert.Equal(t, now.Add(7*24*time.Hour), exp)

	stored, _, _ := mem.Get(ctx, permissionsKey)
	assert.NotContains(t, stored, "loan_view")

	restored := NewPermissionStore(mem, testCipher())
	assert.Equal(t, domain.PermissionSet{"loan_view": true, "loan_delete": false}, restored.Hydrate(ctx))
	assert.True(t, restored.Has("loan_view"))
}

func TestPermissionStoreHydrateFailuresYieldEmpty(t *testing.T) {
	ctx := context.Background()
	c := testCipher()

	cases := map[string]string{
		"garbage ciphertext": "not-a-ciphertext",
		"invalid json":       c.Encrypt("{not json"),
		"wrong shape":        c.Encrypt(`{"loan_view": "yes"}`),
		"array":              c.Encrypt(`[true]`),
	}
	for name, stored := range cases {
		t.Run(name, func(t *testing.T) {
			mem := repositories.NewMemoryStore()
			require.NoError(t, mem.Set(ctx, permissionsKey, stored, time.Hour))

			p := NewPermissionStore(mem, c)
			assert.Empty(t, p.Hydrate(ctx))
		})
	}

	t.Run("missing", func(t *testing.T) {
		p := NewPermissionStore(repositories.NewMemoryStore(), c)
		assert.Empty(t, p.Hydrate(ctx))
	})
}

func TestPermissionStoreClear(t *testing.T) {
	ctx := context.Background()
	mem := repositories.NewMemoryStore()
	p := NewPermissionStore(mem, testCipher())

	require.NoError(t, p.Replace(ctx, domain.PermissionSet{"loan_view": true}))
	require.NoError(t, p.Clear(ctx))

	assert.Empty(t, p.Snapshot())
	_, ok, err := mem.Get(ctx, permissionsKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingStore struct {
	repositories.ClientStore
}

func (failingStore) Set(context.Context, string, string, time.Duration) error {
	return errors.New("disk full")
}

func TestPermissionStoreReplaceKeepsStateOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	mem := repositories.NewMemoryStore()
	p := NewPermissionStore(mem, testCipher())
	require.NoError(t, p.Replace(ctx, domain.PermissionSet{"loan_view": true}))

	p.store = failingStore{ClientStore: mem}
	assert.Error(t, p.Replace(ctx, domain.PermissionSet{"loan_view": false}))
	assert.True(t, p.Has("loan_view"))
}

func TestPermissionStoreSnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	p := NewPermissionStore(repositories.NewMemoryStore(), testCipher())
	require.NoError(t, p.Replace(ctx, domain.PermissionSet{"loan_view": true}))

	snap := p.Snapshot()
	snap["loan_view"] = false
	assert.True(t, p.Has("loan_view"))
}
