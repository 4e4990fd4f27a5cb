package middleware

import (
	"time"

	"paydesk/internal/config"
	"paydesk/internal/core/domain"
	"paydesk/internal/core/services"
	"paydesk/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// Cookie names
const (
	SessionCookieName = "session_token"
	DeviceCookieName  = "device_id"
)

// SessionCookie issues and reads the signed session cookie. The payroll API
// token inside it is sealed with the storage cipher.
type SessionCookie struct {
	cfg    *config.Config
	cipher services.Cipher
}

// NewSessionCookie creates a new session cookie helper
func NewSessionCookie(cfg *config.Config, cipher services.Cipher) *SessionCookie {
	return &SessionCookie{cfg: cfg, cipher: cipher}
}

// Issue signs a token for sess and sets it as an HTTP-only cookie
func (s *SessionCookie) Issue(c *fiber.Ctx, sess *services.SessionContext) (string, error) {
	user, _ := sess.User()

	// a payroll API without bearer tokens leaves the claim empty
	var sealed string
	if user.Token != "" {
		sealed = s.cipher.Encrypt(user.Token)
	}

	token, err := jwt.GenerateSessionToken(jwt.SessionClaims{
		SessionID: sess.ID,
		DeviceID:  sess.DeviceID,
		UserID:    user.UserID.String(),
		RolesID:   user.RolesID.String(),
		Name:      user.Name,
		Number:    user.Number,
		APIToken:  sealed,
	}, s.cfg.Session.Secret, s.cfg.Session.TTL)
	if err != nil {
		return "", err
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.Session.TTL.Seconds()),
		Secure:   s.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: s.cfg.Cookie.SameSite,
		Domain:   s.cfg.Cookie.Domain,
	})
	return token, nil
}

// Clear removes the session cookie
func (s *SessionCookie) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-1 * time.Hour),
		Secure:   s.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: s.cfg.Cookie.SameSite,
		Domain:   s.cfg.Cookie.Domain,
	})
}

// Identity validates a session token and recovers what it proves
func (s *SessionCookie) Identity(token string) (*services.SessionIdentity, error) {
	claims, err := jwt.ValidateSessionToken(token, s.cfg.Session.Secret)
	if err != nil {
		return nil, err
	}

	var apiToken string
	if claims.APIToken != "" {
		if apiToken = s.cipher.Decrypt(claims.APIToken); apiToken == "" {
			return nil, jwt.ErrTokenInvalid
		}
	}

	return &services.SessionIdentity{
		SessionID: claims.SessionID,
		DeviceID:  claims.DeviceID,
		User: domain.User{
			UserID:  domain.ID(claims.UserID),
			RolesID: domain.ID(claims.RolesID),
			Name:    claims.Name,
			Number:  claims.Number,
			Token:   apiToken,
		},
	}, nil
}

func (s *SessionCookie) setDevice(c *fiber.Ctx, deviceID string) {
	c.Cookie(&fiber.Cookie{
		Name:     DeviceCookieName,
		Value:    deviceID,
		Path:     "/",
		MaxAge:   s.cfg.Session.DeviceCookieDays * 24 * 60 * 60,
		Secure:   s.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: s.cfg.Cookie.SameSite,
		Domain:   s.cfg.Cookie.Domain,
	})
}
