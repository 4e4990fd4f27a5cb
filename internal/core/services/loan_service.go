package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"paydesk/internal/config"
	"paydesk/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-flight guard actions
const (
	actionPayInstallment = "pay_installment"
	actionPayAdvance     = "pay_advance"
	actionDeleteLoan     = "delete_loan"
)

// LoanLedgerView is a loan snapshot with its derived summary
type LoanLedgerView struct {
	Ledger        *domain.LoanLedger   `json:"ledger"`
	Summary       domain.LedgerSummary `json:"summary"`
	NextPayableID domain.ID            `json:"next_payable_id,omitempty"`
}

// AdvanceLedgerView is an advance snapshot with its derived summary
type AdvanceLedgerView struct {
	Ledger     *domain.AdvanceLedger `json:"ledger"`
	Summary    domain.LedgerSummary  `json:"summary"`
	MaxPayment decimal.Decimal       `json:"max_payment"`
}

// LoanService reads and mutates loan ledgers on behalf of a session.
// Every mutation validates against a fresh snapshot and re-fetches afterwards;
// no local delta is ever applied.
type LoanService struct {
	api PayrollAPI
	cfg *config.Config
	now func() time.Time
}

// NewLoanService creates a new loan service
func NewLoanService(api PayrollAPI, cfg *config.Config) *LoanService {
	return &LoanService{
		api: api,
		cfg: cfg,
		now: time.Now,
	}
}

// ListLoans returns the loans and advances of the session user
func (s *LoanService) ListLoans(ctx context.Context, sess *SessionContext) ([]domain.Loan, error) {
	return s.api.LoanList(sess.APIContext(ctx), sess.UserID())
}

// DropDownLists returns the selectable loan attributes
func (s *LoanService) DropDownLists(ctx context.Context, sess *SessionContext) (*domain.DropDownLists, error) {
	return s.api.LoanDropDownList(sess.APIContext(ctx))
}

// LoanLedger returns the installment ledger of a loan
func (s *LoanService) LoanLedger(ctx context.Context, sess *SessionContext, loanID domain.ID) (*LoanLedgerView, error) {
	ledger, err := s.api.SingleLoanList(sess.APIContext(ctx), sess.UserID(), loanID)
	if err != nil {
		return nil, err
	}
	return newLoanLedgerView(ledger)
}

// AdvanceLedger returns the payment ledger of an advance
func (s *LoanService) AdvanceLedger(ctx context.Context, sess *SessionContext, advanceID domain.ID) (*AdvanceLedgerView, error) {
	ledger, err := s.api.SingleAdvanceList(sess.APIContext(ctx), sess.UserID(), advanceID)
	if err != nil {
		return nil, err
	}
	return newAdvanceLedgerView(ledger)
}

// MarkInstallmentPaid settles the next payable installment of a loan
func (s *LoanService) MarkInstallmentPaid(ctx context.Context, sess *SessionContext, loanID, installmentID domain.ID) (*LoanLedgerView, error) {
	release, err := sess.Acquire(actionPayInstallment, installmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	apiCtx := sess.APIContext(ctx)
	userID := sess.UserID()

	// 1. Validate against the current snapshot
	before, err := s.api.SingleLoanList(apiCtx, userID, loanID)
	if err != nil {
		return nil, err
	}
	if err := ValidateInstallmentPayment(before.Installments, installmentID); err != nil {
		return nil, err
	}

	// 2. Pay
	if err := s.api.AddLoanPayment(apiCtx, userID, installmentID); err != nil {
		return nil, err
	}
	log.Printf("💰 Installment %s of loan %s paid by user %s", installmentID, loanID, userID)

	// 3. Re-fetch
	after, err := s.api.SingleLoanList(apiCtx, userID, loanID)
	if err != nil {
		return nil, fmt.Errorf("refresh loan %s after payment: %w", loanID, err)
	}
	return newLoanLedgerView(after)
}

// AddAdvancePayment records a free-form payment against an advance
func (s *LoanService) AddAdvancePayment(ctx context.Context, sess *SessionContext, advanceID domain.ID, amount decimal.Decimal) (*AdvanceLedgerView, error) {
	release, err := sess.Acquire(actionPayAdvance, advanceID)
	if err != nil {
		return nil, err
	}
	defer release()

	apiCtx := sess.APIContext(ctx)
	userID := sess.UserID()

	before, err := s.api.SingleAdvanceList(apiCtx, userID, advanceID)
	if err != nil {
		return nil, err
	}
	view, err := newAdvanceLedgerView(before)
	if err != nil {
		return nil, err
	}
	if err := ValidateAdvancePayment(amount, view.MaxPayment); err != nil {
		return nil, err
	}

	if err := s.api.AddAdvancePayment(apiCtx, userID, advanceID, amount); err != nil {
		return nil, err
	}
	log.Printf("💰 Advance %s payment of %s recorded by user %s", advanceID, amount.StringFixed(2), userID)

	after, err := s.api.SingleAdvanceList(apiCtx, userID, advanceID)
	if err != nil {
		return nil, fmt.Errorf("refresh advance %s after payment: %w", advanceID, err)
	}
	return newAdvanceLedgerView(after)
}

// RequestLoanDelete starts a two-step delete and returns the confirmation
// token. Requesting again replaces the previous token.
func (s *LoanService) RequestLoanDelete(ctx context.Context, sess *SessionContext, loanID domain.ID) (*domain.DeleteIntent, error) {
	loans, err := s.ListLoans(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !containsLoan(loans, loanID) {
		return nil, domain.NewValidationError(domain.ErrLoanNotFound, "Loan %s was not found", loanID)
	}

	intent := &domain.DeleteIntent{
		LoanID:    loanID,
		Token:     uuid.New().String(),
		ExpiresAt: s.now().Add(s.cfg.Ledger.DeleteConfirmWindow),
	}
	sess.putDeleteIntent(intent)

	copied := *intent
	return &copied, nil
}

// ConfirmLoanDelete deletes the loan when token matches an unexpired intent
// and returns the refreshed loan list
func (s *LoanService) ConfirmLoanDelete(ctx context.Context, sess *SessionContext, loanID domain.ID, token string) ([]domain.Loan, error) {
	release, err := sess.Acquire(actionDeleteLoan, loanID)
	if err != nil {
		return nil, err
	}
	defer release()

	intent, ok := sess.deleteIntent(loanID)
	if !ok {
		return nil, domain.NewValidationError(domain.ErrDeleteNotRequested, "Request the delete before confirming it")
	}
	if intent.IsExpired(s.now()) {
		sess.dropDeleteIntent(loanID)
		return nil, domain.NewValidationError(domain.ErrDeleteIntentExpired, "The delete confirmation has expired, please request it again")
	}
	if intent.Token != token {
		return nil, domain.NewValidationError(domain.ErrDeleteTokenMismatch, "The delete confirmation does not match")
	}

	apiCtx := sess.APIContext(ctx)
	userID := sess.UserID()

	if err := s.api.LoanDelete(apiCtx, userID, loanID); err != nil {
		return nil, err
	}
	sess.dropDeleteIntent(loanID)
	log.Printf("🗑️ Loan %s deleted by user %s", loanID, userID)

	loans, err := s.api.LoanList(apiCtx, userID)
	if err != nil {
		return nil, fmt.Errorf("refresh loans after delete: %w", err)
	}
	return loans, nil
}

// CancelLoanDelete drops a pending delete intent
func (s *LoanService) CancelLoanDelete(sess *SessionContext, loanID domain.ID) error {
	if !sess.dropDeleteIntent(loanID) {
		return domain.NewValidationError(domain.ErrDeleteNotRequested, "No delete is pending for loan %s", loanID)
	}
	return nil
}

func containsLoan(loans []domain.Loan, loanID domain.ID) bool {
	for _, l := range loans {
		if l.ID == loanID {
			return true
		}
	}
	return false
}

func newLoanLedgerView(ledger *domain.LoanLedger) (*LoanLedgerView, error) {
	summary, err := SummarizeLoan(ledger)
	if err != nil {
		return nil, err
	}
	view := &LoanLedgerView{Ledger: ledger, Summary: summary}
	if next, ok := NextPayable(ledger.Installments); ok {
		view.NextPayableID = next.ID
	}
	return view, nil
}

func newAdvanceLedgerView(ledger *domain.AdvanceLedger) (*AdvanceLedgerView, error) {
	summary, err := SummarizeAdvance(ledger)
	if err != nil {
		return nil, err
	}
	return &AdvanceLedgerView{
		Ledger:     ledger,
		Summary:    summary,
		MaxPayment: summary.RemainingAmount,
	}, nil
}
