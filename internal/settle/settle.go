package settle

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/susu3304/warikan/internal/ledger"
)

// Settlement is one payment of the plan: From pays To.
type Settlement struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

func (s Settlement) Describe(roster *ledger.Roster) string {
	return fmt.Sprintf("%s should pay %s %s", roster.Name(s.From), roster.Name(s.To), ledger.FormatCurrency(s.Amount))
}

type party struct {
	id     string
	amount float64
}

// Compute nets the balances into payments using the greedy largest-pair
// heuristic: every round re-sorts both sides and matches the largest
// creditor with the largest debtor. Sorting is stable so ties resolve by
// input order, which makes the output reproducible.
//
// The result zeroes every balance within ledger.Epsilon but is not
// guaranteed to use the fewest possible payments in every multi-party case.
// The input is never modified.
func Compute(balances []ledger.Balance) []Settlement {
	var creditors, debtors []party
	for _, b := range balances {
		switch {
		case b.Amount > ledger.Epsilon:
			creditors = append(creditors, party{id: b.ParticipantID, amount: b.Amount})
		case b.Amount < -ledger.Epsilon:
			debtors = append(debtors, party{id: b.ParticipantID, amount: -b.Amount})
		}
	}

	byAmountDesc := func(a, b party) int { return cmp.Compare(b.amount, a.amount) }

	var out []Settlement
	for len(creditors) > 0 && len(debtors) > 0 {
		slices.SortStableFunc(creditors, byAmountDesc)
		slices.SortStableFunc(debtors, byAmountDesc)

		c, d := &creditors[0], &debtors[0]
		amount := min(c.amount, d.amount)
		if amount > ledger.Epsilon {
			out = append(out, Settlement{From: d.id, To: c.id, Amount: ledger.Round2(amount)})
			c.amount -= amount
			d.amount -= amount
		}

		// At least one head is at or below epsilon here, so the loop shrinks.
		if c.amount <= ledger.Epsilon {
			creditors = creditors[1:]
		}
		if d.amount <= ledger.Epsilon {
			debtors = debtors[1:]
		}
	}
	return out
}

// Total is the sum of all payment amounts.
func Total(settlements []Settlement) float64 {
	var total float64
	for _, s := range settlements {
		total += s.Amount
	}
	return total
}
