package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"paydesk/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireGuardsOneOperationPerEntity(t *testing.T) {
	env := newTestEnv()
	sess := env.openSession("dev-1")

	release, err := sess.Acquire(actionPayInstallment, "11")
	require.NoError(t, err)

	_, err = sess.Acquire(actionPayInstallment, "11")
	assert.True(t, errors.Is(err, domain.ErrOperationInFlight))

	other, err := sess.Acquire(actionPayInstallment, "12")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := sess.Acquire(actionPayInstallment, "11")
	require.NoError(t, err)
	again()
}

func TestResolveRestoresSessionAfterRestart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	sess := env.openSession("dev-1")
	require.NoError(t, sess.Permissions().Replace(ctx, domain.PermissionSet{"loan_view": true}))

	restarted := NewSessionRegistry(env.store, testCipher(), env.cfg.Session.TTL)
	restored, err := restarted.Resolve(ctx, SessionIdentity{
		SessionID: sess.ID,
		DeviceID:  "dev-1",
		User:      env.api.user,
	})
	require.NoError(t, err)

	assert.Equal(t, sess.ID, restored.ID)
	assert.True(t, restored.Permissions().Has("loan_view"))
	assert.Equal(t, domain.ID("42"), restored.UserID())
	assert.Equal(t, 1, restarted.Len())

	again, err := restarted.Resolve(ctx, SessionIdentity{SessionID: sess.ID, DeviceID: "dev-1", User: env.api.user})
	require.NoError(t, err)
	assert.Same(t, restored, again)
}

func TestResolveRejectsTornDownSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	sess := env.openSession("dev-1")

	require.NoError(t, sess.Teardown(ctx))
	env.registry.Remove(sess.ID)

	_, err := env.registry.Resolve(ctx, SessionIdentity{SessionID: sess.ID, DeviceID: "dev-1", User: env.api.user})
	assert.True(t, errors.Is(err, domain.ErrSessionExpired))
}

func TestResolveRejectsExpiredSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	sess := env.openSession("dev-1")

	assert.True(t, sess.MarkExpired())
	assert.False(t, sess.MarkExpired())

	_, err := env.registry.Resolve(ctx, SessionIdentity{SessionID: sess.ID, DeviceID: "dev-1", User: env.api.user})
	assert.True(t, errors.Is(err, domain.ErrSessionExpired))
}

func TestEvictIdle(t *testing.T) {
	env := newTestEnv()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	env.registry.now = func() time.Time { return now }

	idle := env.openSession("dev-1")
	now = now.Add(20 * time.Minute)
	active := env.openSession("dev-2")
	now = now.Add(15 * time.Minute)

	assert.Equal(t, 1, env.registry.EvictIdle(30*time.Minute))
	_, ok := env.registry.sessions[idle.ID]
	assert.False(t, ok)
	_, ok = env.registry.sessions[active.ID]
	assert.True(t, ok)
}

func TestSweepDeleteIntents(t *testing.T) {
	env := newTestEnv()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	env.registry.now = func() time.Time { return now }

	sess := env.openSession("dev-1")
	sess.putDeleteIntent(&domain.DeleteIntent{LoanID: "1", Token: "a", ExpiresAt: now.Add(time.Minute)})
	sess.putDeleteIntent(&domain.DeleteIntent{LoanID: "2", Token: "b", ExpiresAt: now.Add(5 * time.Minute)})

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, env.registry.SweepDeleteIntents())

	_, ok := sess.deleteIntent("1")
	assert.False(t, ok)
	_, ok = sess.deleteIntent("2")
	assert.True(t, ok)
}

func TestTeardownClearsState(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	sess := env.openSession("dev-1")
	require.NoError(t, sess.Permissions().Replace(ctx, domain.PermissionSet{"loan_view": true}))
	sess.putDeleteIntent(&domain.DeleteIntent{LoanID: "1", Token: "a", ExpiresAt: time.Now().Add(time.Minute)})

	require.NoError(t, sess.Teardown(ctx))

	_, bound := sess.User()
	assert.False(t, bound)
	assert.Empty(t, sess.Permissions().Snapshot())
	_, ok := sess.deleteIntent("1")
	assert.False(t, ok)
	assert.Equal(t, 0, env.store.Len())
}
