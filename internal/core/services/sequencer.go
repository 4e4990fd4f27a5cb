package services

import (
	"sort"

	"paydesk/internal/core/domain"

	"github.com/shopspring/decimal"
)

// pendingByDueDate returns the pending installments, earliest due first.
// Installments due the same day keep their server order.
func pendingByDueDate(installments []domain.Installment) []domain.Installment {
	pending := make([]domain.Installment, 0, len(installments))
	for _, inst := range installments {
		if !inst.IsPaid() {
			pending = append(pending, inst)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].DueDate.Before(pending[j].DueDate.Time)
	})
	return pending
}

// NextPayable returns the earliest-due pending installment of a loan
func NextPayable(installments []domain.Installment) (*domain.Installment, bool) {
	pending := pendingByDueDate(installments)
	if len(pending) == 0 {
		return nil, false
	}
	next := pending[0]
	return &next, true
}

// CanPay reports whether installmentID is the one installment that may be paid now
func CanPay(installments []domain.Installment, installmentID domain.ID) bool {
	next, ok := NextPayable(installments)
	return ok && next.ID == installmentID
}

// ValidateInstallmentPayment checks a mark-paid request against the
// chronological order. Installments are settled strictly oldest first.
func ValidateInstallmentPayment(installments []domain.Installment, installmentID domain.ID) error {
	var target *domain.Installment
	for i := range installments {
		if installments[i].ID == installmentID {
			target = &installments[i]
			break
		}
	}
	if target == nil {
		return domain.NewValidationError(domain.ErrInstallmentNotFound, "Installment %s does not belong to this loan", installmentID)
	}
	if target.IsPaid() {
		return domain.NewValidationError(domain.ErrInstallmentAlreadyPaid, "Installment due %s is already paid", target.DueDate)
	}

	next, ok := NextPayable(installments)
	if !ok {
		return domain.NewValidationError(domain.ErrNothingPayable, "All installments are already paid")
	}
	if next.ID != installmentID {
		return domain.NewValidationError(domain.ErrOutOfOrderPayment,
			"Installments must be paid in order; pay the installment due %s first", next.DueDate)
	}
	return nil
}

// ValidatePayment reports whether 0 < amount <= remaining
func ValidatePayment(amount, remaining decimal.Decimal) bool {
	return amount.IsPositive() && amount.LessThanOrEqual(remaining)
}

// ValidateAdvancePayment explains why an advance payment amount is refused.
// Amounts carry at most 2 decimal places so the submitted value is the validated one.
func ValidateAdvancePayment(amount, remaining decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(2)) {
		return domain.NewValidationError(domain.ErrInvalidPaymentAmount, "Payment amount cannot have more than 2 decimal places")
	}
	if ValidatePayment(amount, remaining) {
		return nil
	}
	if !amount.IsPositive() {
		return domain.NewValidationError(domain.ErrInvalidPaymentAmount, "Payment amount must be greater than 0")
	}
	return domain.NewValidationError(domain.ErrPaymentExceedsBalance,
		"Payment amount exceeds the remaining balance; maximum allowed is %s", remaining.StringFixed(2))
}
