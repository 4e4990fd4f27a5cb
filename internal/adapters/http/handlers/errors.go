package handlers

import (
	"errors"
	"log"

	"paydesk/internal/adapters/http/middleware"
	"paydesk/internal/core/domain"
	"paydesk/internal/core/services"
	"paydesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponder translates service errors into API responses
type ErrorResponder struct {
	authService *services.AuthService
	cookies     *middleware.SessionCookie
}

// NewErrorResponder creates a new error responder
func NewErrorResponder(authService *services.AuthService, cookies *middleware.SessionCookie) *ErrorResponder {
	return &ErrorResponder{authService: authService, cookies: cookies}
}

// Respond writes the response for err. A token refused by the payroll API
// schedules the forced logout of the current session.
func (r *ErrorResponder) Respond(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	var remote *domain.RemoteError

	switch {
	case errors.As(err, &verr):
		return response.BadRequest(c, verr.Message)
	case errors.Is(err, domain.ErrOperationInFlight):
		return response.Conflict(c, "This operation is already in progress")
	case errors.Is(err, domain.ErrSessionExpired):
		if sess := middleware.SessionFrom(c); sess != nil {
			r.authService.ExpireSession(sess)
		}
		r.cookies.Clear(c)
		return response.Unauthorized(c, "Session expired, please login again")
	case errors.Is(err, domain.ErrServiceUnavailable):
		return response.ServiceUnavailable(c)
	case errors.As(err, &remote):
		return response.UnprocessableEntity(c, remote.Message)
	default:
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		return response.InternalServerError(c, response.Fallback)
	}
}
