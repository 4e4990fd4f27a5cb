package services

import (
	"context"
	"log"
	"time"

	"paydesk/internal/adapters/payrollapi"
	"paydesk/internal/config"
	"paydesk/internal/core/domain"
	"paydesk/internal/pkg/password"
)

// AuthService handles login, logout and the remember-me vault
type AuthService struct {
	api      PayrollAPI
	registry *SessionRegistry
	cfg      *config.Config
	schedule func(d time.Duration, f func())
}

// NewAuthService creates a new auth service
func NewAuthService(api PayrollAPI, registry *SessionRegistry, cfg *config.Config) *AuthService {
	return &AuthService{
		api:      api,
		registry: registry,
		cfg:      cfg,
		schedule: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// LoginInput represents login input
type LoginInput struct {
	Number        string `json:"number" validate:"required_without=UseRemembered,omitempty,identifier"`
	Password      string `json:"password" validate:"required_without=UseRemembered"`
	RememberMe    bool   `json:"remember_me"`
	UseRemembered bool   `json:"use_remembered"`
}

// LoginResult is a freshly opened session with its user and permissions
type LoginResult struct {
	Session     *SessionContext
	User        domain.User
	Permissions domain.PermissionSet
}

// Login authenticates against the payroll API and opens a session.
// With UseRemembered the pair comes from the device vault and is kept there.
func (s *AuthService) Login(ctx context.Context, deviceID string, input *LoginInput) (*LoginResult, error) {
	vault := s.registry.VaultFor(deviceID)

	number, secret := input.Number, input.Password
	remember := input.RememberMe
	if input.UseRemembered {
		cred := vault.Load(ctx)
		if cred == nil {
			return nil, domain.NewValidationError(domain.ErrNoRememberedCredential, "No saved login on this device")
		}
		number, secret = cred.Identifier, cred.Secret
		remember = true
	}

	// 1. Validate before touching the network
	if !password.ValidateIdentifier(number) {
		return nil, domain.NewValidationError(domain.ErrInvalidIdentifier, "Number must be exactly 10 digits")
	}
	if secret == "" {
		return nil, domain.NewValidationError(domain.ErrInvalidInput, "Password is required")
	}
	if remember && !password.ValidatePassword(secret) {
		return nil, domain.NewValidationError(domain.ErrWeakSecret,
			"Password must be at least %d characters and include upper and lower case letters, a digit and a special character",
			password.MinLength)
	}

	// 2. Authenticate and fetch permissions
	user, err := s.api.Login(ctx, number, secret)
	if err != nil {
		return nil, err
	}
	partials, err := s.api.UserPermissions(payrollapi.WithToken(ctx, user.Token), user.UserID, user.RolesID)
	if err != nil {
		return nil, err
	}
	perms := Flatten(partials...)

	// 3. Open the session
	sess, err := s.registry.Open(ctx, deviceID, *user)
	if err != nil {
		return nil, err
	}
	if err := sess.Permissions().Replace(ctx, perms); err != nil {
		s.discard(sess)
		return nil, err
	}

	// 4. Remember or forget the pair
	if remember {
		if err := vault.Save(ctx, number, secret, s.cfg.Session.RememberMeDays); err != nil {
			log.Printf("⚠️ Failed to remember login for device %s: %v", deviceID, err)
		}
	} else if err := vault.Clear(ctx); err != nil {
		log.Printf("⚠️ Failed to clear remembered login for device %s: %v", deviceID, err)
	}

	log.Printf("✅ User %s logged in (session %s)", user.UserID, sess.ID)
	return &LoginResult{Session: sess, User: *user, Permissions: perms.Clone()}, nil
}

// Logout ends a session explicitly. The device's remembered login goes with it.
func (s *AuthService) Logout(ctx context.Context, sess *SessionContext) error {
	userID := sess.UserID()

	if err := s.registry.VaultFor(sess.DeviceID).Clear(ctx); err != nil {
		return err
	}
	if err := sess.Teardown(ctx); err != nil {
		return err
	}
	s.registry.Remove(sess.ID)

	log.Printf("👋 User %s logged out (session %s)", userID, sess.ID)
	return nil
}

// Remembered returns the identifier saved on a device, or "" when none.
// The secret never leaves the vault.
func (s *AuthService) Remembered(ctx context.Context, deviceID string) string {
	cred := s.registry.VaultFor(deviceID).Load(ctx)
	if cred == nil {
		return ""
	}
	return cred.Identifier
}

// Forget clears the device's remembered login
func (s *AuthService) Forget(ctx context.Context, deviceID string) error {
	return s.registry.VaultFor(deviceID).Clear(ctx)
}

// ExpireSession handles a token refused by the payroll API: the session is
// unusable immediately and torn down after the configured delay.
func (s *AuthService) ExpireSession(sess *SessionContext) {
	if !sess.MarkExpired() {
		return
	}
	log.Printf("⚠️ Session %s expired at the payroll API, logging out in %s", sess.ID, s.cfg.Session.ExpiredLogoutDelay)

	s.schedule(s.cfg.Session.ExpiredLogoutDelay, func() {
		s.discard(sess)
	})
}

func (s *AuthService) discard(sess *SessionContext) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sess.Teardown(ctx); err != nil {
		log.Printf("❌ Failed to tear down session %s: %v", sess.ID, err)
	}
	s.registry.Remove(sess.ID)
}
