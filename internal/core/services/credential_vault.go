package services

import (
	"context"
	"time"

	"paydesk/internal/adapters/persistence/repositories"
	"paydesk/internal/core/domain"
	"paydesk/internal/pkg/password"
)

// Remember-me entry keys
const (
	rememberFlagKey     = "remember_me"
	rememberNumberKey   = "remember_number"
	rememberPasswordKey = "remember_password"
)

// CredentialVault keeps the remember-me login pair of one device
type CredentialVault struct {
	store  repositories.ClientStore
	cipher Cipher
}

// NewCredentialVault creates a vault over a device-scoped store
func NewCredentialVault(store repositories.ClientStore, cipher Cipher) *CredentialVault {
	return &CredentialVault{store: store, cipher: cipher}
}

// Save validates and stores the pair as three entries sharing one expiry
func (v *CredentialVault) Save(ctx context.Context, identifier, secret string, ttlDays int) error {
	if !password.ValidateIdentifier(identifier) {
		return domain.NewValidationError(domain.ErrInvalidIdentifier, "Number must be exactly 10 digits")
	}
	if !password.ValidatePassword(secret) {
		return domain.NewValidationError(domain.ErrWeakSecret,
			"Password must be at least %d characters and include upper and lower case letters, a digit and a special character",
			password.MinLength)
	}
	if ttlDays <= 0 {
		return domain.NewValidationError(domain.ErrInvalidInput, "Remember-me duration must be at least one day")
	}

	ttl := time.Duration(ttlDays) * 24 * time.Hour

	if err := v.store.Set(ctx, rememberFlagKey, "true", ttl); err != nil {
		return err
	}
	if err := v.store.Set(ctx, rememberNumberKey, v.cipher.Encrypt(identifier), ttl); err != nil {
		return err
	}
	return v.store.Set(ctx, rememberPasswordKey, v.cipher.Encrypt(secret), ttl)
}

// Load returns the remembered pair, or nil when there is none or it cannot be decrypted
func (v *CredentialVault) Load(ctx context.Context) *domain.Credential {
	flag, ok, err := v.store.Get(ctx, rememberFlagKey)
	if err != nil || !ok || flag != "true" {
		return nil
	}

	number, ok, err := v.store.Get(ctx, rememberNumberKey)
	if err != nil || !ok {
		return nil
	}
	secret, ok, err := v.store.Get(ctx, rememberPasswordKey)
	if err != nil || !ok {
		return nil
	}

	identifier := v.cipher.Decrypt(number)
	plain := v.cipher.Decrypt(secret)
	if identifier == "" || plain == "" {
		return nil
	}

	return &domain.Credential{Identifier: identifier, Secret: plain}
}

// Clear removes all three entries immediately
func (v *CredentialVault) Clear(ctx context.Context) error {
	for _, key := range []string{rememberFlagKey, rememberNumberKey, rememberPasswordKey} {
		if err := v.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
