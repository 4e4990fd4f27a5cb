package handlers

import (
	"paydesk/internal/adapters/http/middleware"
	"paydesk/internal/core/domain"
	"paydesk/internal/core/services"
	"paydesk/internal/pkg/pagination"
	"paydesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// LoanHandler handles loan and advance ledger endpoints
type LoanHandler struct {
	loanService *services.LoanService
	errors      *ErrorResponder
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService, errors *ErrorResponder) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		errors:      errors,
	}
}

// ConfirmDeleteRequest represents the second step of a loan delete
type ConfirmDeleteRequest struct {
	ConfirmToken string `json:"confirm_token" query:"confirm_token" validate:"required"`
}

// AdvancePaymentRequest represents a payment against an advance
type AdvancePaymentRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

// ListLoans returns the user's loans
// @Summary List loans
// @Tags Loans
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) ListLoans(c *fiber.Ctx) error {
	sess := middleware.SessionFrom(c)

	loans, err := h.loanService.ListLoans(c.UserContext(), sess)
	if err != nil {
		return h.errors.Respond(c, err)
	}

	page, meta := pagination.Slice(loans, pagination.GetParams(c))
	return response.Paginated(c, "", page, meta)
}

// Options returns the loan dropdown lists
// @Summary Loan options
// @Tags Loans
// @Produce json
// @Success 200 {object} response.Response
// @Router /loans/options [get]
func (h *LoanHandler) Options(c *fiber.Ctx) error {
	lists, err := h.loanService.DropDownLists(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		return h.errors.Respond(c, err)
	}
	return response.Success(c, "", lists)
}

// Installments returns the installment ledger of a loan
// @Summary Loan ledger
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Response
// @Router /loans/{id}/installments [get]
func (h *LoanHandler) Installments(c *fiber.Ctx) error {
	view, err := h.loanService.LoanLedger(c.UserContext(), middleware.SessionFrom(c), domain.ID(c.Params("id")))
	if err != nil {
		return h.errors.Respond(c, err)
	}
	return response.Success(c, "", view)
}

// PayInstallment marks an installment as paid
// @Summary Pay installment
// @Description Only the earliest-due pending installment can be paid
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Param itemId path string true "Installment ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/installments/{itemId}/pay [post]
func (h *LoanHandler) PayInstallment(c *fiber.Ctx) error {
	view, err := h.loanService.MarkInstallmentPaid(
		c.UserContext(),
		middleware.SessionFrom(c),
		domain.ID(c.Params("id")),
		domain.ID(c.Params("itemId")),
	)
	if err != nil {
		return h.errors.Respond(c, err)
	}
	return response.Success(c, "Installment paid", view)
}

// RequestDelete starts a two-step loan delete
// @Summary Request loan delete
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 201 {object} response.Response
// @Router /loans/{id}/delete-intent [post]
func (h *LoanHandler) RequestDelete(c *fiber.Ctx) error {
	intent, err := h.loanService.RequestLoanDelete(c.UserContext(), middleware.SessionFrom(c), domain.ID(c.Params("id")))
	if err != nil {
		return h.errors.Respond(c, err)
	}
	return response.Created(c, "Confirm the delete to continue", intent)
}

// CancelDelete drops a pending loan delete
// @Summary Cancel loan delete
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Response
// @Router /loans/{id}/delete-intent [delete]
func (h *LoanHandler) CancelDelete(c *fiber.Ctx) error {
	if err := h.loanService.CancelLoanDelete(middleware.SessionFrom(c), domain.ID(c.Params("id"))); err != nil {
		return h.errors.Respond(c, err)
	}
	return response.Success(c, "Delete cancelled", nil)
}

// ConfirmDelete deletes a loan with the token from RequestDelete
// @Summary Delete loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param body body ConfirmDeleteRequest true "Confirmation"
// @Success 200 {object} response.Response
// @Router /loans/{id} [delete]
func (h *LoanHandler) ConfirmDelete(c *fiber.Ctx) error {
	var req ConfirmDeleteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	if req.ConfirmToken == "" {
		req.ConfirmToken = c.Query("confirm_token")
	}
	if err := validate.Struct(&req); err != nil {
		return response.BadRequest(c, validationMessage(err))
	}

	loans, err := h.loanService.ConfirmLoanDelete(c.UserContext(), middleware.SessionFrom(c), domain.ID(c.Params("id")), req.ConfirmToken)
	if err != nil {
		return h.errors.Respond(c, err)
	}
	return response.Success(c, "Loan deleted", loans)
}

// AdvancePayments returns the payment ledger of an advance
// @Summary Advance ledger
// @Tags Advances
// @Produce json
// @Param id path string true "Advance ID"
// @Success 200 {object} response.Response
// @Router /advances/{id}/payments [get]
func (h *LoanHandler) AdvancePayments(c *fiber.Ctx) error {
	view, err := h.loanService.AdvanceLedger(c.UserContext(), middleware.SessionFrom(c), domain.ID(c.Params("id")))
	if err != nil {
		return h.errors.Respond(c, err)
	}
	return response.Success(c, "", view)
}

// AddAdvancePayment records a payment against an advance
// @Summary Add advance payment
// @Description The amount must be positive and no more than the remaining balance
// @Tags Advances
// @Accept json
// @Produce json
// @Param id path string true "Advance ID"
// @Param body body AdvancePaymentRequest true "Payment"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /advances/{id}/payments [post]
func (h *LoanHandler) AddAdvancePayment(c *fiber.Ctx) error {
	var req AdvancePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return response.BadRequest(c, validationMessage(err))
	}

	view, err := h.loanService.AddAdvancePayment(c.UserContext(), middleware.SessionFrom(c), domain.ID(c.Params("id")), *req.Amount)
	if err != nil {
		return h.errors.Respond(c, err)
	}
	return response.Success(c, "Payment recorded", view)
}
