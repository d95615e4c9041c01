package ledger

// DebtMatrix holds gross pairwise amounts before netting. Cell (from, to) is
// what from owes to.
type DebtMatrix struct {
	roster *Roster
	cells  [][]float64
}

// BuildDebtMatrix attributes each non-payer's per-head share of every expense
// to that expense's payer, then adds every pending personal debt.
func BuildDebtMatrix(roster *Roster, expenses []SharedExpense, debts []PersonalDebt) *DebtMatrix {
	n := roster.Len()
	m := &DebtMatrix{roster: roster, cells: make([][]float64, n)}
	for i := range m.cells {
		m.cells[i] = make([]float64, n)
	}

	for _, e := range expenses {
		payer, ok := roster.Index(e.Payer)
		if !ok {
			continue
		}
		share := e.Amount / float64(n)
		for i := 0; i < n; i++ {
			if i != payer {
				m.cells[i][payer] += share
			}
		}
	}

	for _, d := range debts {
		if !d.Pending() {
			continue
		}
		from, ok1 := roster.Index(d.Debtor)
		to, ok2 := roster.Index(d.Creditor)
		if !ok1 || !ok2 || from == to {
			continue
		}
		m.cells[from][to] += d.Amount
	}
	return m
}

// Get returns the gross amount from owes to. Unknown ids and the diagonal
// yield 0.
func (m *DebtMatrix) Get(from, to string) float64 {
	i, ok1 := m.roster.Index(from)
	j, ok2 := m.roster.Index(to)
	if !ok1 || !ok2 || i == j {
		return 0
	}
	return m.cells[i][j]
}

func (m *DebtMatrix) Roster() *Roster {
	return m.roster
}

// Rows returns the matrix in roster order, rounded to cents.
func (m *DebtMatrix) Rows() [][]float64 {
	out := make([][]float64, len(m.cells))
	for i, row := range m.cells {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = Round2(v)
		}
	}
	return out
}

// MatrixView is the JSON shape of a DebtMatrix.
type MatrixView struct {
	Participants []Participant `json:"participants"`
	Rows         [][]float64   `json:"rows"`
}

func (m *DebtMatrix) View() MatrixView {
	return MatrixView{Participants: m.roster.Participants(), Rows: m.Rows()}
}
