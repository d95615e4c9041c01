package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/susu3304/warikan/internal/ledger"
	"github.com/susu3304/warikan/internal/settle"
)

type Section string

const (
	SectionSummary     Section = "summary"
	SectionExpenses    Section = "expenses"
	SectionDebts       Section = "debts"
	SectionSettlements Section = "settlements"
	SectionMatrix      Section = "matrix"
)

var AllSections = []Section{SectionSummary, SectionExpenses, SectionDebts, SectionSettlements, SectionMatrix}

// ParseSections reads a comma separated section list. An empty list selects
// every section.
func ParseSections(s string) ([]Section, error) {
	if strings.TrimSpace(s) == "" {
		return AllSections, nil
	}
	var out []Section
	for _, part := range strings.Split(s, ",") {
		sec := Section(strings.ToLower(strings.TrimSpace(part)))
		switch sec {
		case SectionSummary, SectionExpenses, SectionDebts, SectionSettlements, SectionMatrix:
			out = append(out, sec)
		case "":
		default:
			return nil, fmt.Errorf("unknown report section %q", part)
		}
	}
	return out, nil
}

func ReportFilename(at time.Time) string {
	return fmt.Sprintf("Warsan305_Export_%s.csv", at.Format(ledger.DateLayout))
}

// Report is the spreadsheet-friendly CSV rendering of a ledger.
type Report struct {
	Roster      *ledger.Roster
	Expenses    []ledger.SharedExpense
	Debts       []ledger.PersonalDebt
	GeneratedAt time.Time
	Sections    []Section
}

func (r Report) has(s Section) bool {
	for _, sec := range r.Sections {
		if sec == s {
			return true
		}
	}
	return false
}

// WriteTo writes the report with a UTF-8 byte order mark so spreadsheet
// applications pick the right encoding.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if _, err := io.WriteString(cw, "\ufeff"); err != nil {
		return cw.n, err
	}

	out := csv.NewWriter(cw)
	plan := settle.NewPlan(r.Roster, r.Expenses, r.Debts)
	rows := [][]string{
		{AppName + " - Expense and Debt Tracker"},
		{"Exported on: " + r.GeneratedAt.Format("2006-01-02 15:04")},
		nil,
	}

	if r.has(SectionSummary) {
		rows = append(rows,
			[]string{"=== SUMMARY ==="},
			[]string{"Total Shared Expenses: " + ledger.FormatCurrency(plan.TotalShared)},
			[]string{"Total Personal Debts: " + ledger.FormatCurrency(plan.TotalPendingDebts)},
			[]string{"Share per Person: " + ledger.FormatCurrency(plan.SharePerHead)},
			nil,
			[]string{"Person Balances:"},
			[]string{"Name", "Balance", "Owes (personal)", "Owed (personal)"},
		)
		for _, s := range plan.Summaries {
			rows = append(rows, []string{
				s.Name,
				ledger.FormatCurrency(s.Balance),
				amount(s.PersonalDebtsOwed),
				amount(s.PersonalDebtsReceived),
			})
		}
		rows = append(rows, nil)
	}

	if r.has(SectionExpenses) && len(r.Expenses) > 0 {
		rows = append(rows,
			[]string{"=== SHARED EXPENSES ==="},
			[]string{"Type", "Name", "Amount", "Invoice Date", "Paid By", "Entry Date"},
		)
		for _, e := range r.Expenses {
			rows = append(rows, []string{
				e.Category,
				e.Description,
				amount(e.Amount),
				e.InvoiceDate,
				r.Roster.Name(e.Payer),
				entryDate(e.CreatedAt),
			})
		}
		rows = append(rows, nil)
	}

	if r.has(SectionDebts) && len(r.Debts) > 0 {
		rows = append(rows,
			[]string{"=== PERSONAL DEBTS ==="},
			[]string{"From", "To", "Amount", "Description", "Date", "Notes", "Status", "Entry Date"},
		)
		for _, d := range r.Debts {
			rows = append(rows, []string{
				r.Roster.Name(d.Debtor),
				r.Roster.Name(d.Creditor),
				amount(d.Amount),
				d.Description,
				d.Date,
				d.Notes,
				string(d.Status),
				entryDate(d.CreatedAt),
			})
		}
		rows = append(rows, nil)
	}

	if r.has(SectionSettlements) && len(plan.Settlements) > 0 {
		rows = append(rows,
			[]string{"=== SETTLEMENT PLAN ==="},
			[]string{"From", "To", "Amount"},
		)
		for _, s := range plan.Settlements {
			rows = append(rows, []string{r.Roster.Name(s.From), r.Roster.Name(s.To), amount(s.Amount)})
		}
		rows = append(rows,
			nil,
			[]string{"Settlement Summary:"},
			[]string{fmt.Sprintf("Total transactions needed: %d", len(plan.Settlements))},
			[]string{"Total amount transferred: " + ledger.FormatCurrency(settle.Total(plan.Settlements))},
			nil,
		)
	}

	if r.has(SectionMatrix) {
		matrix := plan.DebtMatrix()
		participants := r.Roster.Participants()
		rows = append(rows,
			[]string{"=== DEBT MATRIX ==="},
			[]string{"Note: Shows how much each person owes others (combines shared expenses and personal debts)"},
			nil,
		)
		header := []string{"Owes → / Paid to ↓"}
		for _, p := range participants {
			header = append(header, p.Name)
		}
		rows = append(rows, header)
		for _, from := range participants {
			row := []string{from.Name}
			for _, to := range participants {
				if from.ID == to.ID {
					row = append(row, "-")
					continue
				}
				row = append(row, amount(matrix.Get(from.ID, to.ID)))
			}
			rows = append(rows, row)
		}
		rows = append(rows, nil)
	}

	rows = append(rows,
		[]string{"=== END OF REPORT ==="},
		[]string{"Generated by " + AppName},
	)

	if err := out.WriteAll(rows); err != nil {
		return cw.n, fmt.Errorf("write report: %w", err)
	}
	return cw.n, nil
}

func amount(v float64) string {
	return strconv.FormatFloat(ledger.Round2(v), 'f', 2, 64)
}

func entryDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(ledger.DateLayout)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
