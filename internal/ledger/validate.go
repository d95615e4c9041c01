package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ValidationError reports a draft that violates a ledger invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ExpenseDraft is the client-supplied part of a SharedExpense.
type ExpenseDraft struct {
	Category    string  `json:"type"`
	Description string  `json:"name"`
	Amount      float64 `json:"amount"`
	InvoiceDate string  `json:"invoiceDate"`
	Payer       string  `json:"paidBy"`
}

// DebtDraft is the client-supplied part of a PersonalDebt.
type DebtDraft struct {
	Debtor      string  `json:"from"`
	Creditor    string  `json:"to"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Notes       string  `json:"notes,omitempty"`
}

func (d ExpenseDraft) Validate(roster *Roster) error {
	if strings.TrimSpace(d.Description) == "" {
		return &ValidationError{Field: "name", Reason: "description is required"}
	}
	if err := validAmount(d.Amount); err != nil {
		return err
	}
	if err := validDate("invoiceDate", d.InvoiceDate); err != nil {
		return err
	}
	if !roster.Has(d.Payer) {
		return &ValidationError{Field: "paidBy", Reason: fmt.Sprintf("unknown participant %q", d.Payer)}
	}
	return nil
}

func (d DebtDraft) Validate(roster *Roster) error {
	if d.Debtor == d.Creditor {
		return &ValidationError{Field: "to", Reason: "debtor and creditor cannot be the same person"}
	}
	if !roster.Has(d.Debtor) {
		return &ValidationError{Field: "from", Reason: fmt.Sprintf("unknown participant %q", d.Debtor)}
	}
	if !roster.Has(d.Creditor) {
		return &ValidationError{Field: "to", Reason: fmt.Sprintf("unknown participant %q", d.Creditor)}
	}
	if strings.TrimSpace(d.Description) == "" {
		return &ValidationError{Field: "description", Reason: "description is required"}
	}
	if err := validAmount(d.Amount); err != nil {
		return err
	}
	return validDate("date", d.Date)
}

// Expense finalizes a validated draft. The caller owns id assignment.
func (d ExpenseDraft) Expense(id int64, addedBy string, at time.Time) SharedExpense {
	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = DefaultCategory
	}
	return SharedExpense{
		ID:          id,
		Category:    category,
		Description: strings.TrimSpace(d.Description),
		Amount:      d.Amount,
		InvoiceDate: d.InvoiceDate,
		Payer:       d.Payer,
		AddedBy:     addedBy,
		CreatedAt:   at,
	}
}

// Debt finalizes a validated draft as a pending debt.
func (d DebtDraft) Debt(id int64, addedBy string, at time.Time) PersonalDebt {
	return PersonalDebt{
		ID:          id,
		Debtor:      d.Debtor,
		Creditor:    d.Creditor,
		Amount:      d.Amount,
		Description: strings.TrimSpace(d.Description),
		Date:        d.Date,
		Notes:       strings.TrimSpace(d.Notes),
		Status:      StatusPending,
		AddedBy:     addedBy,
		CreatedAt:   at,
	}
}

// ValidateExpense checks a finalized expense, e.g. one read from a backup.
func ValidateExpense(e SharedExpense, roster *Roster) error {
	return ExpenseDraft{
		Category:    e.Category,
		Description: e.Description,
		Amount:      e.Amount,
		InvoiceDate: e.InvoiceDate,
		Payer:       e.Payer,
	}.Validate(roster)
}

// ValidateDebt checks a finalized debt, including its status.
func ValidateDebt(d PersonalDebt, roster *Roster) error {
	err := DebtDraft{
		Debtor:      d.Debtor,
		Creditor:    d.Creditor,
		Amount:      d.Amount,
		Description: d.Description,
		Date:        d.Date,
	}.Validate(roster)
	if err != nil {
		return err
	}
	switch d.Status {
	case StatusPending, StatusSettled:
		return nil
	default:
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", d.Status)}
	}
}

func validAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be a positive number"}
	}
	return nil
}

func validDate(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "date is required"}
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		return &ValidationError{Field: field, Reason: "date must be YYYY-MM-DD"}
	}
	return nil
}
