package services

import (
	"fmt"

	"paydesk/internal/core/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Progress returns paid/total as a percentage rounded to 2 places, 0 when total is not positive
func Progress(paid, total decimal.Decimal) float64 {
	if !total.IsPositive() {
		return 0
	}
	pct, _ := paid.Div(total).Mul(hundred).Round(2).Float64()
	return pct
}

// summarize derives totals; remaining is always total - paid
func summarize(total, paid decimal.Decimal) (domain.LedgerSummary, error) {
	if paid.IsNegative() || total.IsNegative() || paid.GreaterThan(total) {
		return domain.LedgerSummary{}, fmt.Errorf("%w: paid %s of total %s", domain.ErrInconsistentLedger, paid, total)
	}
	return domain.LedgerSummary{
		TotalAmount:        total,
		PaidAmount:         paid,
		RemainingAmount:    total.Sub(paid),
		ProgressPercentage: Progress(paid, total),
	}, nil
}

// SummarizeLoan derives the summary of a loan snapshot. Installment counts
// come from the installment list.
func SummarizeLoan(ledger *domain.LoanLedger) (domain.LedgerSummary, error) {
	summary, err := summarize(ledger.TotalAmount, ledger.PaidAmount)
	if err != nil {
		return summary, err
	}
	summary.TotalInstallments = len(ledger.Installments)
	for _, inst := range ledger.Installments {
		if inst.IsPaid() {
			summary.PaidInstallments++
		}
	}
	summary.PendingInstallments = summary.TotalInstallments - summary.PaidInstallments
	return summary, nil
}

// SummarizeAdvance derives the summary of an advance snapshot. Every
// recorded payment counts as a paid installment.
func SummarizeAdvance(ledger *domain.AdvanceLedger) (domain.LedgerSummary, error) {
	summary, err := summarize(ledger.TotalAmount, ledger.PaidAmount)
	if err != nil {
		return summary, err
	}
	summary.TotalInstallments = len(ledger.Payments)
	summary.PaidInstallments = len(ledger.Payments)
	return summary, nil
}
