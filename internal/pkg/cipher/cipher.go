// Package cipher obfuscates values kept in client-side storage.
//
// The key is derived from a single static secret shipped with the binary
// (DefaultSecret unless overridden). This keeps stored credentials and
// permissions unreadable to casual inspection only: anyone holding the
// binary or its environment can decrypt every value. It is not a security
// boundary and there is no key rotation.
package cipher

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

// DefaultSecret is the shared secret compiled into paydesk
const DefaultSecret = "paydesk-client-storage-v1"

const (
	kdfSalt       = "paydesk/storage"
	kdfIterations = 4096
)

var encoding = base64.RawURLEncoding

// Cipher encrypts and decrypts opaque strings with a static key
type Cipher struct {
	aead cipher.AEAD
}

// New derives the key from secret. An empty secret selects DefaultSecret.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		secret = DefaultSecret
	}
	key := pbkdf2.Key([]byte(secret), []byte(kdfSalt), kdfIterations, chacha20poly1305.KeySize, sha256.New)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// MustNew is New for static secrets
func MustNew(secret string) *Cipher {
	c, err := New(secret)
	if err != nil {
		panic(err)
	}
	return c
}

// Encrypt seals plaintext into a URL-safe string. It returns "" only if the
// system random source fails.
func (c *Cipher) Encrypt(plaintext string) string {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return ""
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encoding.EncodeToString(sealed)
}

// Decrypt opens a value produced by Encrypt. Malformed, truncated, tampered
// or foreign input yields "".
func (c *Cipher) Decrypt(ciphertext string) string {
	raw, err := encoding.DecodeString(ciphertext)
	if err != nil {
		return ""
	}
	if len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return ""
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return ""
	}
	return string(plain)
}
