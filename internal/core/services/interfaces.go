package services

import (
	"context"

	"paydesk/internal/core/domain"

	"github.com/shopspring/decimal"
)

// PayrollAPI is the remote payroll service. The bearer token of the calling
// session travels in ctx (payrollapi.WithToken).
type PayrollAPI interface {
	Login(ctx context.Context, number, password string) (*domain.User, error)
	UserPermissions(ctx context.Context, userID, rolesID domain.ID) ([]domain.PermissionSet, error)
	LoanList(ctx context.Context, userID domain.ID) ([]domain.Loan, error)
	LoanDropDownList(ctx context.Context) (*domain.DropDownLists, error)
	SingleLoanList(ctx context.Context, userID, loanID domain.ID) (*domain.LoanLedger, error)
	SingleAdvanceList(ctx context.Context, userID, advanceID domain.ID) (*domain.AdvanceLedger, error)
	AddLoanPayment(ctx context.Context, userID, installmentID domain.ID) error
	AddAdvancePayment(ctx context.Context, userID, advanceID domain.ID, amount decimal.Decimal) error
	LoanDelete(ctx context.Context, userID, loanID domain.ID) error
}

// Cipher obfuscates values written to the client store.
// Decrypt returns "" for anything it cannot open.
type Cipher interface {
	Encrypt(plaintext string) string
	Decrypt(ciphertext string) string
}
