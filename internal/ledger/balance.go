package ledger

// Balance is a participant's signed net position. Positive means the
// participant is owed money.
type Balance struct {
	ParticipantID string  `json:"participantId"`
	Amount        float64 `json:"amount"`
}

// Summary is the derived view of one participant, recomputed wholesale.
type Summary struct {
	Participant
	Balance               float64 `json:"balance"`
	PersonalDebtsOwed     float64 `json:"personalDebtsOwed"`
	PersonalDebtsReceived float64 `json:"personalDebtsReceived"`
}

func (s Summary) NetPersonal() float64 {
	return s.PersonalDebtsReceived - s.PersonalDebtsOwed
}

func TotalShared(expenses []SharedExpense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}

func SharePerHead(expenses []SharedExpense, headcount int) float64 {
	if len(expenses) == 0 || headcount <= 0 {
		return 0
	}
	return TotalShared(expenses) / float64(headcount)
}

// BalanceFromShared is what participantID paid minus its equal share.
func BalanceFromShared(participantID string, expenses []SharedExpense, headcount int) float64 {
	if len(expenses) == 0 {
		return 0
	}
	var paid float64
	for _, e := range expenses {
		if e.Payer == participantID {
			paid += e.Amount
		}
	}
	return paid - SharePerHead(expenses, headcount)
}

// TotalPendingDebts sums the amounts of debts that are still pending.
func TotalPendingDebts(debts []PersonalDebt) float64 {
	var total float64
	for _, d := range debts {
		if d.Pending() {
			total += d.Amount
		}
	}
	return total
}

// ApplyPersonalDebts returns a copy of balances adjusted by every pending
// debt. Settled debts and participants missing from balances are ignored.
// The adjustment is additive so the iteration order of debts does not matter.
func ApplyPersonalDebts(balances []Balance, debts []PersonalDebt) []Balance {
	out := make([]Balance, len(balances))
	copy(out, balances)
	pos := make(map[string]int, len(out))
	for i, b := range out {
		pos[b.ParticipantID] = i
	}
	for _, d := range debts {
		if !d.Pending() {
			continue
		}
		if i, ok := pos[d.Debtor]; ok {
			out[i].Amount -= d.Amount
		}
		if i, ok := pos[d.Creditor]; ok {
			out[i].Amount += d.Amount
		}
	}
	return out
}

// SharedBalances returns the shared-expense balance of every participant in
// roster order.
func SharedBalances(roster *Roster, expenses []SharedExpense) []Balance {
	out := make([]Balance, 0, roster.Len())
	for _, p := range roster.participants {
		out = append(out, Balance{
			ParticipantID: p.ID,
			Amount:        BalanceFromShared(p.ID, expenses, roster.Len()),
		})
	}
	return out
}

// NetBalances combines shared expenses and pending personal debts.
func NetBalances(roster *Roster, expenses []SharedExpense, debts []PersonalDebt) []Balance {
	return ApplyPersonalDebts(SharedBalances(roster, expenses), debts)
}

func Summarize(roster *Roster, expenses []SharedExpense, debts []PersonalDebt) []Summary {
	net := NetBalances(roster, expenses, debts)
	out := make([]Summary, len(net))
	for i, b := range net {
		out[i] = Summary{Participant: roster.participants[i], Balance: b.Amount}
	}
	for _, d := range debts {
		if !d.Pending() {
			continue
		}
		if i, ok := roster.Index(d.Debtor); ok {
			out[i].PersonalDebtsOwed += d.Amount
		}
		if i, ok := roster.Index(d.Creditor); ok {
			out[i].PersonalDebtsReceived += d.Amount
		}
	}
	return out
}
