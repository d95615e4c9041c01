package settle

import "github.com/susu3304/warikan/internal/ledger"

// Plan bundles everything a settlement view renders for one ledger.
type Plan struct {
	TotalShared       float64           `json:"totalShared"`
	TotalPendingDebts float64           `json:"totalPendingDebts"`
	SharePerHead      float64           `json:"sharePerHead"`
	Summaries         []ledger.Summary  `json:"participants"`
	Settlements       []Settlement      `json:"settlements"`
	Matrix            ledger.MatrixView `json:"debtMatrix"`
	matrix            *ledger.DebtMatrix
}

func NewPlan(roster *ledger.Roster, expenses []ledger.SharedExpense, debts []ledger.PersonalDebt) Plan {
	summaries := ledger.Summarize(roster, expenses, debts)
	balances := make([]ledger.Balance, len(summaries))
	for i, s := range summaries {
		balances[i] = ledger.Balance{ParticipantID: s.ID, Amount: s.Balance}
	}
	matrix := ledger.BuildDebtMatrix(roster, expenses, debts)

	settlements := Compute(balances)
	if settlements == nil {
		settlements = []Settlement{}
	}
	return Plan{
		TotalShared:       ledger.TotalShared(expenses),
		TotalPendingDebts: ledger.TotalPendingDebts(debts),
		SharePerHead:      ledger.SharePerHead(expenses, roster.Len()),
		Summaries:         summaries,
		Settlements:       settlements,
		Matrix:            matrix.View(),
		matrix:            matrix,
	}
}

// DebtMatrix returns the unrounded matrix the plan was built from.
func (p Plan) DebtMatrix() *ledger.DebtMatrix {
	return p.matrix
}
