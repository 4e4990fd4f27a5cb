package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"paydesk/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLoan(api *fakePayrollAPI) {
	api.loans = []domain.Loan{
		{ID: "7", EmployeeID: "42", Type: domain.LoanTypeLoan, Principal: dec("2000"), Status: domain.LoanStatusApproved},
		{ID: "8", EmployeeID: "42", Type: domain.LoanTypeAdvance, Principal: dec("10000"), Status: domain.LoanStatusApproved},
	}
	api.loanLedgers["7"] = &domain.LoanLedger{
		TotalAmount: dec("2000"),
		PaidAmount:  dec("0"),
		Installments: []domain.Installment{
			{ID: "101", LoanID: "7", DueDate: domain.NewDate(2025, time.January, 1), Amount: dec("1000"), PaymentStatus: domain.PaymentStatusPending},
			{ID: "102", LoanID: "7", DueDate: domain.NewDate(2025, time.February, 1), Amount: dec("1000"), PaymentStatus: domain.PaymentStatusPending},
		},
	}
	api.advances["8"] = &domain.AdvanceLedger{
		TotalAmount: dec("10000"),
		PaidAmount:  dec("7000"),
		Payments: []domain.AdvancePayment{
			{ID: "1", AdvanceID: "8", Amount: dec("7000"), PaymentType: domain.PaymentTypeManual},
		},
	}
}

func newTestLoans() (*LoanService, *testEnv, *SessionContext) {
	env := newTestEnv()
	seedLoan(env.api)
	return NewLoanService(env.api, env.cfg), env, env.openSession("dev-1")
}

func TestLoanLedgerView(t *testing.T) {
	loans, env, sess := newTestLoans()

	view, err := loans.LoanLedger(context.Background(), sess, "7")
	require.NoError(t, err)

	assert.Equal(t, domain.ID("101"), view.NextPayableID)
	assert.True(t, view.Summary.RemainingAmount.Equal(dec("2000")))
	assert.Equal(t, 2, view.Summary.PendingInstallments)
	assert.Equal(t, []string{"api-token-42"}, env.api.tokens)
}

func TestMarkInstallmentPaidOutOfOrderMakesNoCall(t *testing.T) {
	loans, env, sess := newTestLoans()

	_, err := loans.MarkInstallmentPaid(context.Background(), sess, "7", "102")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOutOfOrderPayment))
	assert.Contains(t, err.Error(), "2025-01-01")
	assert.Equal(t, 0, env.api.count("add_loan_payment"))
}

func TestMarkInstallmentPaidRefetches(t *testing.T) {
	loans, env, sess := newTestLoans()
	ctx := context.Background()

	view, err := loans.MarkInstallmentPaid(ctx, sess, "7", "101")
	require.NoError(t, err)

	assert.Equal(t, 1, env.api.count("add_loan_payment"))
	assert.Equal(t, 2, env.api.count("single_loan_list"))
	assert.Equal(t, domain.ID("102"), view.NextPayableID)
	assert.True(t, view.Summary.PaidAmount.Equal(dec("1000")))
	assert.Equal(t, 50.0, view.Summary.ProgressPercentage)

	// the newly payable installment is now accepted
	view, err = loans.MarkInstallmentPaid(ctx, sess, "7", "102")
	require.NoError(t, err)
	assert.Equal(t, domain.ID(""), view.NextPayableID)
	assert.Equal(t, 100.0, view.Summary.ProgressPercentage)

	_, err = loans.MarkInstallmentPaid(ctx, sess, "7", "102")
	assert.True(t, errors.Is(err, domain.ErrInstallmentAlreadyPaid))
}

func TestMarkInstallmentPaidFailureLeavesState(t *testing.T) {
	loans, env, sess := newTestLoans()
	env.api.mutationErr = domain.ErrServiceUnavailable

	_, err := loans.MarkInstallmentPaid(context.Background(), sess, "7", "101")
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
	assert.Equal(t, 1, env.api.count("single_loan_list"))

	env.api.mutationErr = nil
	view, err := loans.LoanLedger(context.Background(), sess, "7")
	require.NoError(t, err)
	assert.Equal(t, domain.ID("101"), view.NextPayableID)
}

func TestAddAdvancePaymentOverBalanceRejected(t *testing.T) {
	loans, env, sess := newTestLoans()

	_, err := loans.AddAdvancePayment(context.Background(), sess, "8", dec("3500"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPaymentExceedsBalance))
	assert.Contains(t, err.Error(), "3000.00")
	assert.Equal(t, 0, env.api.count("add_advance_payment"))
}

func TestAddAdvancePaymentSucceeds(t *testing.T) {
	loans, env, sess := newTestLoans()

	view, err := loans.AddAdvancePayment(context.Background(), sess, "8", dec("3000"))
	require.NoError(t, err)

	assert.Equal(t, 1, env.api.count("add_advance_payment"))
	assert.True(t, view.Summary.RemainingAmount.IsZero())
	assert.True(t, view.MaxPayment.IsZero())
	assert.Equal(t, 2, view.Summary.PaidInstallments)
	assert.Equal(t, 100.0, view.Summary.ProgressPercentage)
}

func TestConcurrentPaymentIsRejectedInFlight(t *testing.T) {
	loans, env, sess := newTestLoans()
	env.api.block = make(chan struct{})

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = loans.AddAdvancePayment(context.Background(), sess, "8", dec("1000"))
	}()

	require.Eventually(t, func() bool {
		return env.api.count("add_advance_payment") == 1
	}, time.Second, 5*time.Millisecond)

	_, err := loans.AddAdvancePayment(context.Background(), sess, "8", dec("1000"))
	assert.True(t, errors.Is(err, domain.ErrOperationInFlight))

	close(env.api.block)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, 1, env.api.count("add_advance_payment"))
}

func TestLoanDeleteIsTwoStep(t *testing.T) {
	loans, env, sess := newTestLoans()
	ctx := context.Background()

	_, err := loans.ConfirmLoanDelete(ctx, sess, "7", "anything")
	assert.True(t, errors.Is(err, domain.ErrDeleteNotRequested))

	intent, err := loans.RequestLoanDelete(ctx, sess, "7")
	require.NoError(t, err)
	assert.NotEmpty(t, intent.Token)

	_, err = loans.ConfirmLoanDelete(ctx, sess, "7", "wrong")
	assert.True(t, errors.Is(err, domain.ErrDeleteTokenMismatch))
	assert.Equal(t, 0, env.api.count("loan_delete"))

	remaining, err := loans.ConfirmLoanDelete(ctx, sess, "7", intent.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, env.api.count("loan_delete"))
	require.Len(t, remaining, 1)
	assert.Equal(t, domain.ID("8"), remaining[0].ID)

	_, err = loans.ConfirmLoanDelete(ctx, sess, "7", intent.Token)
	assert.True(t, errors.Is(err, domain.ErrDeleteNotRequested))
}

func TestLoanDeleteIntentExpires(t *testing.T) {
	loans, env, sess := newTestLoans()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	loans.now = func() time.Time { return now }

	intent, err := loans.RequestLoanDelete(ctx, sess, "7")
	require.NoError(t, err)
	assert.Equal(t, now.Add(120*time.Second), intent.ExpiresAt)

	now = now.Add(121 * time.Second)
	_, err = loans.ConfirmLoanDelete(ctx, sess, "7", intent.Token)
	assert.True(t, errors.Is(err, domain.ErrDeleteIntentExpired))
	assert.Equal(t, 0, env.api.count("loan_delete"))
}

func TestLoanDeleteCancelAndUnknownLoan(t *testing.T) {
	loans, _, sess := newTestLoans()
	ctx := context.Background()

	_, err := loans.RequestLoanDelete(ctx, sess, "99")
	assert.True(t, errors.Is(err, domain.ErrLoanNotFound))

	intent, err := loans.RequestLoanDelete(ctx, sess, "7")
	require.NoError(t, err)

	require.NoError(t, loans.CancelLoanDelete(sess, "7"))
	assert.True(t, errors.Is(loans.CancelLoanDelete(sess, "7"), domain.ErrDeleteNotRequested))

	_, err = loans.ConfirmLoanDelete(ctx, sess, "7", intent.Token)
	assert.True(t, errors.Is(err, domain.ErrDeleteNotRequested))
}
