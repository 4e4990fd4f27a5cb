package payrollapi

import (
	"context"

	"paydesk/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Operation names as exposed by the payroll API
const (
	opLogin             = "login"
	opUserPermissions   = "user_permissions"
	opLoanList          = "loan_list"
	opLoanDropDownList  = "loan_drop_down_list"
	opSingleLoanList    = "single_loan_list"
	opSingleAdvanceList = "single_advance_list"
	opAddLoanPayment    = "add_loan_payment"
	opAddAdvancePayment = "add_advance_payment"
	opLoanDelete        = "loan_delete"
)

type loginForm struct {
	Number   string `schema:"number"`
	Password string `schema:"password"`
}

type permissionsForm struct {
	UserID  domain.ID `schema:"user_id"`
	RolesID domain.ID `schema:"user_roles_id"`
}

type userForm struct {
	UserID domain.ID `schema:"user_id"`
}

type loanForm struct {
	UserID domain.ID `schema:"user_id"`
	LoanID domain.ID `schema:"loan_id"`
}

type loanPaymentForm struct {
	UserID      domain.ID `schema:"user_id"`
	LoanItemsID domain.ID `schema:"loan_items_id"`
}

type advancePaymentForm struct {
	UserID    domain.ID       `schema:"user_id"`
	AdvanceID domain.ID       `schema:"advance_id"`
	Amount    decimal.Decimal `schema:"amount"`
}

// Login authenticates a number/password pair. The user record is read from
// "user_data", either at the top level or inside "data".
func (c *Client) Login(ctx context.Context, number, password string) (*domain.User, error) {
	env, err := c.call(ctx, opLogin, &loginForm{Number: number, Password: password}, false)
	if err != nil {
		return nil, err
	}

	payload := env.UserData
	if len(payload) == 0 {
		var wrapped struct {
			UserData domain.User `json:"user_data"`
		}
		if err := decodeData(opLogin, env.Data, &wrapped); err != nil {
			return nil, err
		}
		return &wrapped.UserData, nil
	}

	var user domain.User
	if err := decodeData(opLogin, payload, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPermissions returns the segmented permission payload, in server order
func (c *Client) UserPermissions(ctx context.Context, userID, rolesID domain.ID) ([]domain.PermissionSet, error) {
	env, err := c.call(ctx, opUserPermissions, &permissionsForm{UserID: userID, RolesID: rolesID}, true)
	if err != nil {
		return nil, err
	}
	var partials []domain.PermissionSet
	if err := decodeData(opUserPermissions, env.Data, &partials); err != nil {
		return nil, err
	}
	return partials, nil
}

// LoanList returns the loans and advances visible to the user
func (c *Client) LoanList(ctx context.Context, userID domain.ID) ([]domain.Loan, error) {
	env, err := c.call(ctx, opLoanList, &userForm{UserID: userID}, true)
	if err != nil {
		return nil, err
	}
	loans := []domain.Loan{}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return loans, nil
	}
	if err := decodeData(opLoanList, env.Data, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// LoanDropDownList returns the selectable loan types, priorities and statuses
func (c *Client) LoanDropDownList(ctx context.Context) (*domain.DropDownLists, error) {
	env, err := c.call(ctx, opLoanDropDownList, nil, true)
	if err != nil {
		return nil, err
	}
	var lists domain.DropDownLists
	if err := decodeData(opLoanDropDownList, env.Data, &lists); err != nil {
		return nil, err
	}
	return &lists, nil
}

// SingleLoanList returns the installment ledger of a loan
func (c *Client) SingleLoanList(ctx context.Context, userID, loanID domain.ID) (*domain.LoanLedger, error) {
	env, err := c.call(ctx, opSingleLoanList, &loanForm{UserID: userID, LoanID: loanID}, true)
	if err != nil {
		return nil, err
	}
	var ledger domain.LoanLedger
	if err := decodeData(opSingleLoanList, env.Data, &ledger); err != nil {
		return nil, err
	}
	return &ledger, nil
}

// SingleAdvanceList returns the payment ledger of an advance
func (c *Client) SingleAdvanceList(ctx context.Context, userID, advanceID domain.ID) (*domain.AdvanceLedger, error) {
	env, err := c.call(ctx, opSingleAdvanceList, &loanForm{UserID: userID, LoanID: advanceID}, true)
	if err != nil {
		return nil, err
	}
	var ledger domain.AdvanceLedger
	if err := decodeData(opSingleAdvanceList, env.Data, &ledger); err != nil {
		return nil, err
	}
	return &ledger, nil
}

// AddLoanPayment marks one installment paid
func (c *Client) AddLoanPayment(ctx context.Context, userID, installmentID domain.ID) error {
	_, err := c.call(ctx, opAddLoanPayment, &loanPaymentForm{UserID: userID, LoanItemsID: installmentID}, false)
	return err
}

// AddAdvancePayment records a payment against an advance
func (c *Client) AddAdvancePayment(ctx context.Context, userID, advanceID domain.ID, amount decimal.Decimal) error {
	form := &advancePaymentForm{UserID: userID, AdvanceID: advanceID, Amount: amount}
	_, err := c.call(ctx, opAddAdvancePayment, form, false)
	return err
}

// LoanDelete deletes a loan with all its installments and payments
func (c *Client) LoanDelete(ctx context.Context, userID, loanID domain.ID) error {
	_, err := c.call(ctx, opLoanDelete, &loanForm{UserID: userID, LoanID: loanID}, false)
	return err
}
