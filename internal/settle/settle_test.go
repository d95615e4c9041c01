package settle

import (
	"math"
	"math/rand"
	"testing"

	"github.com/susu3304/warikan/internal/ledger"
)

func balances(pairs ...any) []ledger.Balance {
	var out []ledger.Balance
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, ledger.Balance{ParticipantID: pairs[i].(string), Amount: pairs[i+1].(float64)})
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		balances []ledger.Balance
		want     []Settlement
	}{
		{
			name:     "nothing owed",
			balances: balances("person1", 0.0, "person2", 0.004, "person3", -0.004),
			want:     nil,
		},
		{
			name:     "one pair",
			balances: balances("person1", 25.0, "person2", -25.0),
			want:     []Settlement{{From: "person2", To: "person1", Amount: 25}},
		},
		{
			name: "one payer for everybody",
			balances: balances(
				"person1", 120.0, "person2", -20.0, "person3", -20.0, "person4", -20.0,
				"person5", -20.0, "person6", -20.0, "person7", -20.0,
			),
			want: []Settlement{
				{From: "person2", To: "person1", Amount: 20},
				{From: "person3", To: "person1", Amount: 20},
				{From: "person4", To: "person1", Amount: 20},
				{From: "person5", To: "person1", Amount: 20},
				{From: "person6", To: "person1", Amount: 20},
				{From: "person7", To: "person1", Amount: 20},
			},
		},
		{
			name: "largest debtor pays first",
			balances: balances(
				"person1", -70.0, "person2", 170.0, "person3", -20.0, "person4", -20.0,
				"person5", -20.0, "person6", -20.0, "person7", -20.0,
			),
			want: []Settlement{
				{From: "person1", To: "person2", Amount: 70},
				{From: "person3", To: "person2", Amount: 20},
				{From: "person4", To: "person2", Amount: 20},
				{From: "person5", To: "person2", Amount: 20},
				{From: "person6", To: "person2", Amount: 20},
				{From: "person7", To: "person2", Amount: 20},
			},
		},
		{
			name:     "split across creditors",
			balances: balances("a", 30.0, "b", 10.0, "c", -40.0),
			want: []Settlement{
				{From: "c", To: "a", Amount: 30},
				{From: "c", To: "b", Amount: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.balances)
			if len(got) != len(tt.want) {
				t.Fatalf("Compute() = %+v, want %+v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("payment %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestComputeZeroesRandomBalances(t *testing.T) {
	rng := rand.New(rand.NewSource(305))

	for round := 0; round < 500; round++ {
		n := rng.Intn(9) + 1
		in := make([]ledger.Balance, n)
		var sum int
		for i := 0; i < n-1; i++ {
			nickels := rng.Intn(4001) - 2000
			sum += nickels
			in[i] = ledger.Balance{ParticipantID: string(rune('a' + i)), Amount: float64(nickels*5) / 100}
		}
		in[n-1] = ledger.Balance{ParticipantID: string(rune('a' + n - 1)), Amount: float64(-sum*5) / 100}

		before := make([]ledger.Balance, n)
		copy(before, in)

		payments := Compute(in)
		for i := range in {
			if in[i] != before[i] {
				t.Fatalf("round %d: input mutated", round)
			}
		}
		if len(payments) > n-1 && n > 0 {
			t.Errorf("round %d: %d payments for %d participants", round, len(payments), n)
		}

		remaining := make(map[string]float64, n)
		for _, b := range in {
			remaining[b.ParticipantID] = b.Amount
		}
		for _, p := range payments {
			if p.From == p.To {
				t.Fatalf("round %d: self payment %+v", round, p)
			}
			if p.Amount <= 0 {
				t.Fatalf("round %d: non-positive payment %+v", round, p)
			}
			remaining[p.From] += p.Amount
			remaining[p.To] -= p.Amount
		}
		for id, v := range remaining {
			if math.Abs(v) > ledger.Epsilon+1e-6 {
				t.Fatalf("round %d: %s left at %v after %+v", round, id, v, payments)
			}
		}
	}
}

func TestComputeEmptyOnlyWhenSettled(t *testing.T) {
	if got := Compute(nil); len(got) != 0 {
		t.Errorf("Compute(nil) = %+v", got)
	}
	if got := Compute(balances("a", 0.01, "b", -0.01)); len(got) != 0 {
		t.Errorf("balances within epsilon produced %+v", got)
	}
	if got := Compute(balances("a", 0.02, "b", -0.02)); len(got) != 1 {
		t.Errorf("balances past epsilon produced %+v", got)
	}
}

func TestTotalAndDescribe(t *testing.T) {
	roster := ledger.DefaultRoster()
	payments := Compute(balances(
		"person1", -70.0, "person2", 170.0, "person3", -20.0, "person4", -20.0,
		"person5", -20.0, "person6", -20.0, "person7", -20.0,
	))
	if got := Total(payments); math.Abs(got-170) > 1e-9 {
		t.Errorf("Total() = %v, want 170", got)
	}
	if got := payments[0].Describe(roster); got != "Brian should pay Tessa $70.00" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestNewPlan(t *testing.T) {
	roster := ledger.DefaultRoster()
	expenses := []ledger.SharedExpense{{ID: 1, Category: "rent", Description: "Rent", Amount: 140, InvoiceDate: "2024-03-01", Payer: "person2"}}
	debts := []ledger.PersonalDebt{{ID: 2, Debtor: "person1", Creditor: "person2", Amount: 50, Description: "Taxi", Date: "2024-03-02", Status: ledger.StatusPending}}

	plan := NewPlan(roster, expenses, debts)
	if plan.TotalShared != 140 || plan.TotalPendingDebts != 50 || plan.SharePerHead != 20 {
		t.Errorf("totals = %v / %v / %v", plan.TotalShared, plan.TotalPendingDebts, plan.SharePerHead)
	}
	if len(plan.Settlements) != 6 {
		t.Fatalf("got %d settlements, want 6", len(plan.Settlements))
	}
	if plan.Settlements[0] != (Settlement{From: "person1", To: "person2", Amount: 70}) {
		t.Errorf("first settlement = %+v", plan.Settlements[0])
	}
	if len(plan.Summaries) != 7 || plan.Summaries[1].Balance != 170 {
		t.Errorf("summaries = %+v", plan.Summaries)
	}
	if plan.DebtMatrix().Get("person1", "person2") != 70 {
		t.Errorf("matrix person1 -> person2 = %v", plan.DebtMatrix().Get("person1", "person2"))
	}

	empty := NewPlan(roster, nil, nil)
	if empty.Settlements == nil || len(empty.Settlements) != 0 {
		t.Errorf("empty plan settlements = %#v", empty.Settlements)
	}
}
