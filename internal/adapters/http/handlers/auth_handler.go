package handlers

import (
	"strings"

	"paydesk/internal/adapters/http/middleware"
	"paydesk/internal/core/domain"
	"paydesk/internal/core/services"
	"paydesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
	cookies     *middleware.SessionCookie
	errors      *ErrorResponder
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, cookies *middleware.SessionCookie, errors *ErrorResponder) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		errors:      errors,
	}
}

// UserResponse is the user as shown to the dashboard
type UserResponse struct {
	UserID      domain.ID            `json:"user_id"`
	RolesID     domain.ID            `json:"user_roles_id"`
	Name        string               `json:"name"`
	Number      string               `json:"number"`
	Permissions domain.PermissionSet `json:"permissions"`
}

func newUserResponse(user domain.User, perms domain.PermissionSet) UserResponse {
	return UserResponse{
		UserID:      user.UserID,
		RolesID:     user.RolesID,
		Name:        user.Name,
		Number:      user.Number,
		Permissions: perms,
	}
}

// Login handles user login
// @Summary Login
// @Description Authenticate against the payroll API and open a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Number = strings.TrimSpace(req.Number)

	if err := validate.Struct(&req); err != nil {
		return response.BadRequest(c, validationMessage(err))
	}
	if req.RememberMe && !req.UseRemembered {
		if err := validate.Var(req.Password, "strongpassword"); err != nil {
			return response.BadRequest(c, validationMessage(err))
		}
	}

	result, err := h.authService.Login(c.UserContext(), middleware.DeviceFrom(c), &req)
	if err != nil {
		return h.errors.Respond(c, err)
	}

	if _, err := h.cookies.Issue(c, result.Session); err != nil {
		return h.errors.Respond(c, err)
	}

	return response.Success(c, "Login successful", fiber.Map{
		"user": newUserResponse(result.User, result.Permissions),
	})
}

// Remembered returns the number saved on this device
// @Summary Remembered login
// @Description Returns the remembered number of this device; the password never leaves the server
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/remembered [get]
func (h *AuthHandler) Remembered(c *fiber.Ctx) error {
	number := h.authService.Remembered(c.UserContext(), middleware.DeviceFrom(c))
	return response.Success(c, "", fiber.Map{
		"remembered": number != "",
		"number":     number,
	})
}

// Forget clears the login saved on this device
// @Summary Forget remembered login
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/remembered [delete]
func (h *AuthHandler) Forget(c *fiber.Ctx) error {
	if err := h.authService.Forget(c.UserContext(), middleware.DeviceFrom(c)); err != nil {
		return h.errors.Respond(c, err)
	}
	return response.Success(c, "Remembered login cleared", nil)
}

// Logout handles user logout
// @Summary Logout
// @Description End the session and clear the remembered login of this device
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.authService.Logout(c.UserContext(), sess); err != nil {
		return h.errors.Respond(c, err)
	}
	h.cookies.Clear(c)

	return response.Success(c, "Logged out successfully", nil)
}

// Me returns the current user info
// @Summary Get current user
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	user, ok := sess.User()
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	return response.Success(c, "", fiber.Map{
		"user": newUserResponse(user, sess.Permissions().Snapshot()),
	})
}
