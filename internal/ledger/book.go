package ledger

import (
	"cmp"
	"slices"
)

// ItemKind names the two entry collections of a Book.
type ItemKind string

const (
	ItemExpense ItemKind = "expense"
	ItemDebt    ItemKind = "debt"
)

func (k ItemKind) Valid() bool {
	return k == ItemExpense || k == ItemDebt
}

// Book holds the ordered ledger entries: expenses by invoice date and debts
// by incurred date, newest first. Entries with equal dates keep insertion
// order. A Book is not safe for concurrent use; its owner serializes access.
type Book struct {
	expenses []SharedExpense
	debts    []PersonalDebt
}

func NewBook() *Book {
	return &Book{}
}

func (b *Book) AddExpense(e SharedExpense) {
	b.expenses = append(b.expenses, e)
	sortExpenses(b.expenses)
}

func (b *Book) AddDebt(d PersonalDebt) {
	b.debts = append(b.debts, d)
	sortDebts(b.debts)
}

func (b *Book) HasExpense(id int64) bool {
	return slices.ContainsFunc(b.expenses, func(e SharedExpense) bool { return e.ID == id })
}

func (b *Book) HasDebt(id int64) bool {
	return slices.ContainsFunc(b.debts, func(d PersonalDebt) bool { return d.ID == id })
}

func (b *Book) DeleteExpense(id int64) (SharedExpense, bool) {
	i := slices.IndexFunc(b.expenses, func(e SharedExpense) bool { return e.ID == id })
	if i < 0 {
		return SharedExpense{}, false
	}
	removed := b.expenses[i]
	b.expenses = slices.Delete(b.expenses, i, i+1)
	return removed, true
}

func (b *Book) DeleteDebt(id int64) (PersonalDebt, bool) {
	i := slices.IndexFunc(b.debts, func(d PersonalDebt) bool { return d.ID == id })
	if i < 0 {
		return PersonalDebt{}, false
	}
	removed := b.debts[i]
	b.debts = slices.Delete(b.debts, i, i+1)
	return removed, true
}

// SettleDebt marks a pending debt settled. changed is false when the debt
// was already settled; found is false when no debt has that id.
func (b *Book) SettleDebt(id int64) (debt PersonalDebt, changed, found bool) {
	i := slices.IndexFunc(b.debts, func(d PersonalDebt) bool { return d.ID == id })
	if i < 0 {
		return PersonalDebt{}, false, false
	}
	if b.debts[i].Status == StatusSettled {
		return b.debts[i], false, true
	}
	b.debts[i].Status = StatusSettled
	return b.debts[i], true, true
}

func (b *Book) Reset() {
	b.expenses = nil
	b.debts = nil
}

// Replace swaps in whole collections, e.g. from an imported backup.
func (b *Book) Replace(expenses []SharedExpense, debts []PersonalDebt) {
	b.expenses = slices.Clone(expenses)
	b.debts = slices.Clone(debts)
	sortExpenses(b.expenses)
	sortDebts(b.debts)
}

func (b *Book) Expenses() []SharedExpense {
	out := make([]SharedExpense, len(b.expenses))
	copy(out, b.expenses)
	return out
}

func (b *Book) Debts() []PersonalDebt {
	out := make([]PersonalDebt, len(b.debts))
	copy(out, b.debts)
	return out
}

// MaxID is the largest entry id in the book, 0 when empty.
func (b *Book) MaxID() int64 {
	var max int64
	for _, e := range b.expenses {
		max = maxInt64(max, e.ID)
	}
	for _, d := range b.debts {
		max = maxInt64(max, d.ID)
	}
	return max
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Dates are YYYY-MM-DD so string order is chronological order.
func sortExpenses(expenses []SharedExpense) {
	slices.SortStableFunc(expenses, func(a, b SharedExpense) int {
		return cmp.Compare(b.InvoiceDate, a.InvoiceDate)
	})
}

func sortDebts(debts []PersonalDebt) {
	slices.SortStableFunc(debts, func(a, b PersonalDebt) int {
		return cmp.Compare(b.Date, a.Date)
	})
}
