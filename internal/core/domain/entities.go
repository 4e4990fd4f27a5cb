package domain

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LoanType distinguishes installment loans from advances
type LoanType string

const (
	LoanTypeLoan    LoanType = "Loan"
	LoanTypeAdvance LoanType = "Advance"
)

// LoanStatus represents the approval lifecycle of a loan
type LoanStatus string

const (
	LoanStatusPending     LoanStatus = "Pending"
	LoanStatusApproved    LoanStatus = "Approved"
	LoanStatusRejected    LoanStatus = "Rejected"
	LoanStatusUnderReview LoanStatus = "UnderReview"
	LoanStatusClosed      LoanStatus = "Closed"
)

// PaymentStatus of an installment. Paid is terminal.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// PaymentType of an advance payment
type PaymentType string

const (
	PaymentTypeManual    PaymentType = "Manual"
	PaymentTypeAutomatic PaymentType = "Automatic"
)

// ID is an identifier issued by the payroll API. The API sends ids as
// either JSON numbers or strings; both decode to the same value.
type ID string

// UnmarshalJSON accepts quoted and bare ids
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(string(b))
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Date is a calendar date as sent by the payroll API ("2006-01-02" or RFC 3339)
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date at midnight UTC
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the layouts the payroll API uses
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{t}, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

// UnmarshalJSON decodes a date string; empty and null leave the zero value
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON encodes the date part only
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Credential is the remembered login pair
type Credential struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"-"`
}

// PermissionSet maps permission names to granted flags
type PermissionSet map[string]bool

// Clone returns an independent copy
func (p PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// User is the authenticated payroll API user
type User struct {
	UserID  ID     `json:"user_id"`
	RolesID ID     `json:"user_roles_id"`
	Name    string `json:"name"`
	Number  string `json:"number"`
	Token   string `json:"token,omitempty"`
}

// Loan represents a loan or an advance
type Loan struct {
	ID                ID              `json:"id"`
	EmployeeID        ID              `json:"employee_id"`
	EmployeeName      string          `json:"employee_name,omitempty"`
	Type              LoanType        `json:"loan_type"`
	Priority          string          `json:"loan_priority,omitempty"`
	Principal         decimal.Decimal `json:"amount"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	TenureMonths      int             `json:"tenure_months"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	Status            LoanStatus      `json:"loan_status"`
	CreatedAt         Date            `json:"created_at"`
}

// Installment is one scheduled repayment unit of a loan
type Installment struct {
	ID            ID              `json:"id"`
	LoanID        ID              `json:"loan_id"`
	DueDate       Date            `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// IsPaid reports whether the installment reached its terminal state
func (i *Installment) IsPaid() bool {
	return i.PaymentStatus == PaymentStatusPaid
}

// AdvancePayment is one recorded payment against an advance
type AdvancePayment struct {
	ID          ID              `json:"id"`
	AdvanceID   ID              `json:"advance_id"`
	Date        Date            `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentType PaymentType     `json:"payment_type"`
}

// LoanLedger is the authoritative snapshot returned by single_loan_list
type LoanLedger struct {
	TotalAmount            decimal.Decimal `json:"total_amount"`
	PaidAmount             decimal.Decimal `json:"paid_amount"`
	RemainingAmount        decimal.Decimal `json:"remaining_amount"`
	TotalInstallment       int             `json:"total_installment"`
	TotalPaidInstallment   int             `json:"total_paid_installment"`
	TotalUnpaidInstallment int             `json:"total_unpaid_installment"`
	Installments           []Installment   `json:"loan_list"`
}

// AdvanceLedger is the authoritative snapshot returned by single_advance_list
type AdvanceLedger struct {
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	PaidAmount      decimal.Decimal  `json:"paid_amount"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	Payments        []AdvancePayment `json:"advance_list"`
}

// LedgerSummary is derived from a snapshot, never stored
type LedgerSummary struct {
	TotalAmount         decimal.Decimal `json:"total_amount"`
	PaidAmount          decimal.Decimal `json:"paid_amount"`
	RemainingAmount     decimal.Decimal `json:"remaining_amount"`
	TotalInstallments   int             `json:"total_installments"`
	PaidInstallments    int             `json:"paid_installments"`
	PendingInstallments int             `json:"pending_installments"`
	ProgressPercentage  float64         `json:"progress_percentage"`
}

// Option is a dropdown entry
type Option struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// DropDownLists holds the selectable loan attributes
type DropDownLists struct {
	LoanTypes      []Option `json:"loan_type_list"`
	LoanPriorities []Option `json:"loan_priority_list"`
	LoanStatuses   []Option `json:"loan_status_list"`
}

// DeleteIntent is the first half of a two-step loan delete
type DeleteIntent struct {
	LoanID    ID        `json:"loan_id"`
	Token     string    `json:"confirm_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the confirmation window has passed
func (d *DeleteIntent) IsExpired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}
