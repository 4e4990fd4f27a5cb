package services

import (
	"context"
	"log"
	"sync"
	"time"

	"paydesk/internal/adapters/persistence/repositories"
	"paydesk/internal/core/domain"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// PermissionsTTL is the fixed lifetime of the persisted permission set
const PermissionsTTL = 7 * 24 * time.Hour

const permissionsKey = "permissions"

var permissionSchema = mustSchema(`{
	"type": "object",
	"additionalProperties": {"type": "boolean"}
}`)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return s
}

// Flatten merges partial permission objects left to right; later keys win
func Flatten(partials ...domain.PermissionSet) domain.PermissionSet {
	out := domain.PermissionSet{}
	for _, p := range partials {
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}

// PermissionStore holds the session's permission set. It is advisory for UI
// display only; the payroll API enforces authorization on every call.
type PermissionStore struct {
	mu     sync.RWMutex
	perms  domain.PermissionSet
	store  repositories.ClientStore
	cipher Cipher
}

// NewPermissionStore creates an empty store persisting through store
func NewPermissionStore(store repositories.ClientStore, cipher Cipher) *PermissionStore {
	return &PermissionStore{
		perms:  domain.PermissionSet{},
		store:  store,
		cipher: cipher,
	}
}

// Hydrate loads the persisted set. A missing entry, bad ciphertext or
// invalid JSON all yield an empty set.
func (p *PermissionStore) Hydrate(ctx context.Context) domain.PermissionSet {
	perms := p.load(ctx)

	p.mu.Lock()
	p.perms = perms
	p.mu.Unlock()

	return perms.Clone()
}

func (p *PermissionStore) load(ctx context.Context) domain.PermissionSet {
	stored, ok, err := p.store.Get(ctx, permissionsKey)
	if err != nil {
		log.Printf("⚠️ Failed to read permissions: %v", err)
		return domain.PermissionSet{}
	}
	if !ok {
		return domain.PermissionSet{}
	}

	plain := p.cipher.Decrypt(stored)
	if plain == "" {
		return domain.PermissionSet{}
	}

	result, err := permissionSchema.Validate(gojsonschema.NewStringLoader(plain))
	if err != nil || !result.Valid() {
		return domain.PermissionSet{}
	}

	perms := domain.PermissionSet{}
	if err := json.Unmarshal([]byte(plain), &perms); err != nil {
		return domain.PermissionSet{}
	}
	return perms
}

// Replace overwrites the set and persists it with the fixed 7-day TTL.
// The in-memory set is replaced only once the write succeeded.
func (p *PermissionStore) Replace(ctx context.Context, perms domain.PermissionSet) error {
	next := perms.Clone()

	payload, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := p.store.Set(ctx, permissionsKey, p.cipher.Encrypt(string(payload)), PermissionsTTL); err != nil {
		return err
	}

	p.mu.Lock()
	p.perms = next
	p.mu.Unlock()
	return nil
}

// Clear empties the set and deletes the persisted entry
func (p *PermissionStore) Clear(ctx context.Context) error {
	p.mu.Lock()
	p.perms = domain.PermissionSet{}
	p.mu.Unlock()

	return p.store.Delete(ctx, permissionsKey)
}

// Has reports whether a permission is granted
func (p *PermissionStore) Has(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.perms[name]
}

// Snapshot returns a copy of the current set
func (p *PermissionStore) Snapshot() domain.PermissionSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.perms.Clone()
}
