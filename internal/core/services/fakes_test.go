package services

import (
	"context"
	"sync"
	"time"

	"paydesk/internal/adapters/payrollapi"
	"paydesk/internal/adapters/persistence/repositories"
	"paydesk/internal/config"
	"paydesk/internal/core/domain"
	"paydesk/internal/pkg/cipher"

	"github.com/shopspring/decimal"
)

// fakePayrollAPI is an in-memory payroll API. Mutations update the stored
// ledgers the way the real server would.
type fakePayrollAPI struct {
	mu sync.Mutex

	user        domain.User
	loginErr    error
	permissions []domain.PermissionSet
	loans       []domain.Loan
	dropDowns   domain.DropDownLists
	loanLedgers map[domain.ID]*domain.LoanLedger
	advances    map[domain.ID]*domain.AdvanceLedger

	// mutationErr is returned by every mutation when set
	mutationErr error
	// block, when set, is received from before a mutation completes
	block chan struct{}

	calls  map[string]int
	tokens []string
}

func newFakePayrollAPI() *fakePayrollAPI {
	return &fakePayrollAPI{
		user: domain.User{
			UserID:  "42",
			RolesID: "3",
			Name:    "Jane Payroll",
			Number:  "9876543210",
			Token:   "api-token-42",
		},
		permissions: []domain.PermissionSet{
			{"loan_view": true},
			{"loan_add": false, "loan_delete": true},
		},
		loanLedgers: make(map[domain.ID]*domain.LoanLedger),
		advances:    make(map[domain.ID]*domain.AdvanceLedger),
		calls:       make(map[string]int),
	}
}

func (f *fakePayrollAPI) record(ctx context.Context, op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	f.tokens = append(f.tokens, payrollapi.TokenFrom(ctx))
}

func (f *fakePayrollAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakePayrollAPI) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakePayrollAPI) Login(ctx context.Context, number, password string) (*domain.User, error) {
	f.record(ctx, "login")
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	u := f.user
	u.Number = number
	return &u, nil
}

func (f *fakePayrollAPI) UserPermissions(ctx context.Context, userID, rolesID domain.ID) ([]domain.PermissionSet, error) {
	f.record(ctx, "user_permissions")
	return f.permissions, nil
}

func (f *fakePayrollAPI) LoanList(ctx context.Context, userID domain.ID) ([]domain.Loan, error) {
	f.record(ctx, "loan_list")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Loan(nil), f.loans...), nil
}

func (f *fakePayrollAPI) LoanDropDownList(ctx context.Context) (*domain.DropDownLists, error) {
	f.record(ctx, "loan_drop_down_list")
	d := f.dropDowns
	return &d, nil
}

func (f *fakePayrollAPI) SingleLoanList(ctx context.Context, userID, loanID domain.ID) (*domain.LoanLedger, error) {
	f.record(ctx, "single_loan_list")
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.loanLedgers[loanID]
	if !ok {
		return nil, &domain.RemoteError{Operation: "single_loan_list", Message: "Loan not found"}
	}
	copied := *l
	copied.Installments = append([]domain.Installment(nil), l.Installments...)
	return &copied, nil
}

func (f *fakePayrollAPI) SingleAdvanceList(ctx context.Context, userID, advanceID domain.ID) (*domain.AdvanceLedger, error) {
	f.record(ctx, "single_advance_list")
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.advances[advanceID]
	if !ok {
		return nil, &domain.RemoteError{Operation: "single_advance_list", Message: "Advance not found"}
	}
	copied := *a
	copied.Payments = append([]domain.AdvancePayment(nil), a.Payments...)
	return &copied, nil
}

func (f *fakePayrollAPI) wait() {
	if f.block != nil {
		<-f.block
	}
}

func (f *fakePayrollAPI) AddLoanPayment(ctx context.Context, userID, installmentID domain.ID) error {
	f.record(ctx, "add_loan_payment")
	f.wait()
	if f.mutationErr != nil {
		return f.mutationErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.loanLedgers {
		for i := range l.Installments {
			if l.Installments[i].ID == installmentID {
				l.Installments[i].PaymentStatus = domain.PaymentStatusPaid
				l.PaidAmount = l.PaidAmount.Add(l.Installments[i].Amount)
				l.RemainingAmount = l.TotalAmount.Sub(l.PaidAmount)
			}
		}
	}
	return nil
}

func (f *fakePayrollAPI) AddAdvancePayment(ctx context.Context, userID, advanceID domain.ID, amount decimal.Decimal) error {
	f.record(ctx, "add_advance_payment")
	f.wait()
	if f.mutationErr != nil {
		return f.mutationErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.advances[advanceID]
	a.PaidAmount = a.PaidAmount.Add(amount)
	a.RemainingAmount = a.TotalAmount.Sub(a.PaidAmount)
	a.Payments = append(a.Payments, domain.AdvancePayment{
		ID:          domain.ID("p" + amount.String()),
		AdvanceID:   advanceID,
		Date:        domain.NewDate(2025, time.March, 1),
		Amount:      amount,
		PaymentType: domain.PaymentTypeManual,
	})
	return nil
}

func (f *fakePayrollAPI) LoanDelete(ctx context.Context, userID, loanID domain.ID) error {
	f.record(ctx, "loan_delete")
	if f.mutationErr != nil {
		return f.mutationErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.loans[:0]
	for _, l := range f.loans {
		if l.ID != loanID {
			kept = append(kept, l)
		}
	}
	f.loans = kept
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		Session: config.SessionConfig{
			Secret:             "test-secret",
			TTL:                24 * time.Hour,
			IdleTimeout:        30 * time.Minute,
			ExpiredLogoutDelay: 1500 * time.Millisecond,
			RememberMeDays:     7,
			DeviceCookieDays:   365,
		},
		Ledger: config.LedgerConfig{DeleteConfirmWindow: 120 * time.Second},
	}
}

func testCipher() Cipher {
	return cipher.MustNew(cipher.DefaultSecret)
}

type testEnv struct {
	store    *repositories.MemoryStore
	api      *fakePayrollAPI
	registry *SessionRegistry
	cfg      *config.Config
}

func newTestEnv() *testEnv {
	cfg := testConfig()
	store := repositories.NewMemoryStore()
	return &testEnv{
		store:    store,
		api:      newFakePayrollAPI(),
		registry: NewSessionRegistry(store, testCipher(), cfg.Session.TTL),
		cfg:      cfg,
	}
}

func (e *testEnv) openSession(deviceID string) *SessionContext {
	sess, err := e.registry.Open(context.Background(), deviceID, e.api.user)
	if err != nil {
		panic(err)
	}
	return sess
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
