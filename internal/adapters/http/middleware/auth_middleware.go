package middleware

import (
	"errors"
	"log"
	"strings"

	"paydesk/internal/core/domain"
	"paydesk/internal/core/services"
	"paydesk/internal/pkg/jwt"
	"paydesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys
const (
	localsSession  = "session"
	localsDeviceID = "deviceID"
)

// DeviceMiddleware makes sure every browser carries a long-lived device id.
// The remember-me vault is scoped to it.
func DeviceMiddleware(cookies *SessionCookie) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := c.Cookies(DeviceCookieName)
		if _, err := uuid.Parse(deviceID); err != nil {
			deviceID = uuid.New().String()
			cookies.setDevice(c, deviceID)
		}

		c.Locals(localsDeviceID, deviceID)
		return c.Next()
	}
}

// SessionMiddleware resolves the session cookie into a live SessionContext
func SessionMiddleware(cookies *SessionCookie, registry *services.SessionRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Cookie first, then Authorization header
		token := c.Cookies(SessionCookieName)
		if token == "" {
			authHeader := c.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}
		if token == "" {
			return response.Unauthorized(c, "Login required")
		}

		// 2. Validate
		identity, err := cookies.Identity(token)
		if err != nil {
			cookies.Clear(c)
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Session expired, please login again")
			}
			return response.Unauthorized(c, "Invalid session")
		}

		// 3. Resolve
		sess, err := registry.Resolve(c.UserContext(), *identity)
		if err != nil {
			if errors.Is(err, domain.ErrSessionExpired) {
				cookies.Clear(c)
				return response.Unauthorized(c, "Session expired, please login again")
			}
			log.Printf("❌ Failed to resolve session %s: %v", identity.SessionID, err)
			return response.ServiceUnavailable(c)
		}

		c.Locals(localsSession, sess)
		return c.Next()
	}
}

// SessionFrom returns the session set by SessionMiddleware, or nil
func SessionFrom(c *fiber.Ctx) *services.SessionContext {
	sess, _ := c.Locals(localsSession).(*services.SessionContext)
	return sess
}

// DeviceFrom returns the device id set by DeviceMiddleware
func DeviceFrom(c *fiber.Ctx) string {
	deviceID, _ := c.Locals(localsDeviceID).(string)
	return deviceID
}
