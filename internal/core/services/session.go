package services

import (
	"context"
	"log"
	"sync"
	"time"

	"paydesk/internal/adapters/payrollapi"
	"paydesk/internal/adapters/persistence/repositories"
	"paydesk/internal/core/domain"
	"paydesk/internal/pkg/password"

	"github.com/google/uuid"
)

const sessionMarkerKey = "active"

// SessionIdentity is what a session cookie proves about its holder
type SessionIdentity struct {
	SessionID string
	DeviceID  string
	User      domain.User
}

// SessionContext is the state of one logged-in browser session. It is built
// by the registry and handed to handlers; nothing reads it through globals.
type SessionContext struct {
	ID       string
	DeviceID string

	mu          sync.RWMutex
	user        *domain.User
	expired     bool
	lastSeen    time.Time
	inflight    map[string]struct{}
	deletes     map[domain.ID]*domain.DeleteIntent
	permissions *PermissionStore
	store       repositories.ClientStore
}

// NewSessionContext creates an uninitialised session over its scoped store
func NewSessionContext(id, deviceID string, store repositories.ClientStore, cipher Cipher) *SessionContext {
	return &SessionContext{
		ID:          id,
		DeviceID:    deviceID,
		lastSeen:    time.Now(),
		inflight:    make(map[string]struct{}),
		deletes:     make(map[domain.ID]*domain.DeleteIntent),
		permissions: NewPermissionStore(store, cipher),
		store:       store,
	}
}

// Init binds the authenticated user
func (s *SessionContext) Init(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
	s.expired = false
}

// Hydrate restores the permission set from the client store
func (s *SessionContext) Hydrate(ctx context.Context) domain.PermissionSet {
	return s.permissions.Hydrate(ctx)
}

// Teardown clears permissions and forgets the user
func (s *SessionContext) Teardown(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.deletes = make(map[domain.ID]*domain.DeleteIntent)
	s.mu.Unlock()

	if err := s.store.Delete(ctx, sessionMarkerKey); err != nil {
		return err
	}
	return s.permissions.Clear(ctx)
}

// User returns a copy of the bound user
func (s *SessionContext) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// UserID returns the bound user id, empty when not initialised
func (s *SessionContext) UserID() domain.ID {
	u, _ := s.User()
	return u.UserID
}

// Permissions returns the session's permission store
func (s *SessionContext) Permissions() *PermissionStore {
	return s.permissions
}

// APIContext attaches the session's API token to ctx
func (s *SessionContext) APIContext(ctx context.Context) context.Context {
	u, _ := s.User()
	return payrollapi.WithToken(ctx, u.Token)
}

// MarkExpired flags the session after the payroll API refused its token.
// It reports false when the session was already flagged.
func (s *SessionContext) MarkExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired {
		return false
	}
	s.expired = true
	return true
}

// Expired reports whether the session is waiting for its forced logout
func (s *SessionContext) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expired
}

// Touch records activity
func (s *SessionContext) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *SessionContext) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSeen)
}

// Acquire claims the single in-flight slot of action on entity. A second
// claim before release fails with ErrOperationInFlight.
func (s *SessionContext) Acquire(action string, entity domain.ID) (func(), error) {
	key := action + ":" + entity.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, domain.ErrOperationInFlight
	}
	s.inflight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
		})
	}, nil
}

func (s *SessionContext) putDeleteIntent(intent *domain.DeleteIntent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes[intent.LoanID] = intent
}

func (s *SessionContext) deleteIntent(loanID domain.ID) (*domain.DeleteIntent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.deletes[loanID]
	return intent, ok
}

func (s *SessionContext) dropDeleteIntent(loanID domain.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.deletes[loanID]
	delete(s.deletes, loanID)
	return ok
}

func (s *SessionContext) sweepDeleteIntents(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, intent := range s.deletes {
		if intent.IsExpired(now) {
			delete(s.deletes, id)
			n++
		}
	}
	return n
}

// SessionRegistry owns the live sessions of this process
type SessionRegistry struct {
	mu         sync.Mutex
	sessions   map[string]*SessionContext
	store      repositories.ClientStore
	cipher     Cipher
	sessionTTL time.Duration
	now        func() time.Time
}

// NewSessionRegistry creates a registry over the shared client store
func NewSessionRegistry(store repositories.ClientStore, cipher Cipher, sessionTTL time.Duration) *SessionRegistry {
	return &SessionRegistry{
		sessions:   make(map[string]*SessionContext),
		store:      store,
		cipher:     cipher,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func sessionScope(id string) string { return "session:" + id }

// device ids live in a long-lived cookie, so only their hash reaches the store
func deviceScope(id string) string { return "device:" + password.HashToken(id) }

// VaultFor returns the remember-me vault of a device
func (r *SessionRegistry) VaultFor(deviceID string) *CredentialVault {
	return NewCredentialVault(repositories.Scoped(r.store, deviceScope(deviceID)), r.cipher)
}

// Open starts a new session for user and registers it
func (r *SessionRegistry) Open(ctx context.Context, deviceID string, user domain.User) (*SessionContext, error) {
	id := uuid.New().String()
	scoped := repositories.Scoped(r.store, sessionScope(id))

	if err := scoped.Set(ctx, sessionMarkerKey, "1", r.sessionTTL); err != nil {
		return nil, err
	}

	sess := NewSessionContext(id, deviceID, scoped, r.cipher)
	sess.Init(user)
	sess.Touch(r.now())

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	return sess, nil
}

// Resolve returns the live session for identity, restoring and hydrating it
// when this process has not seen it yet. Sessions that were torn down stay dead.
func (r *SessionRegistry) Resolve(ctx context.Context, identity SessionIdentity) (*SessionContext, error) {
	r.mu.Lock()
	sess, ok := r.sessions[identity.SessionID]
	r.mu.Unlock()

	if ok {
		if sess.Expired() {
			return nil, domain.ErrSessionExpired
		}
		if _, bound := sess.User(); !bound {
			return nil, domain.ErrSessionExpired
		}
		sess.Touch(r.now())
		return sess, nil
	}

	scoped := repositories.Scoped(r.store, sessionScope(identity.SessionID))
	_, alive, err := scoped.Get(ctx, sessionMarkerKey)
	if err != nil {
		return nil, err
	}
	if !alive {
		return nil, domain.ErrSessionExpired
	}

	sess = NewSessionContext(identity.SessionID, identity.DeviceID, scoped, r.cipher)
	sess.Init(identity.User)
	sess.Hydrate(ctx)
	sess.Touch(r.now())

	r.mu.Lock()
	if existing, raced := r.sessions[identity.SessionID]; raced {
		sess = existing
	} else {
		r.sessions[identity.SessionID] = sess
	}
	r.mu.Unlock()

	log.Printf("♻️ Session restored: %s", identity.SessionID)
	return sess, nil
}

// Remove forgets a live session
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// EvictIdle drops sessions idle longer than maxIdle from memory. Their
// persisted state stays, so the next request hydrates them again.
func (r *SessionRegistry) EvictIdle(maxIdle time.Duration) int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, sess := range r.sessions {
		if sess.idleSince(now) > maxIdle {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// SweepDeleteIntents drops expired delete confirmations in every session
func (r *SessionRegistry) SweepDeleteIntents() int {
	now := r.now()
	r.mu.Lock()
	live := make([]*SessionContext, 0, len(r.sessions))
	for _, sess := range r.sessions {
		live = append(live, sess)
	}
	r.mu.Unlock()

	n := 0
	for _, sess := range live {
		n += sess.sweepDeleteIntents(now)
	}
	return n
}

// Len returns the number of live sessions
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
