package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/susu3304/warikan/internal/ledger"
)

func fixture() ([]ledger.SharedExpense, []ledger.PersonalDebt) {
	entered := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	expenses := []ledger.SharedExpense{
		{ID: 2, Category: "groceries", Description: "Rice, eggs", Amount: 35, InvoiceDate: "2024-03-05", Payer: "person1"},
		{ID: 1, Category: "rent", Description: "Rent", Amount: 140, InvoiceDate: "2024-03-01", Payer: "person2", CreatedAt: entered},
	}
	debts := []ledger.PersonalDebt{
		{ID: 3, Debtor: "person1", Creditor: "person2", Amount: 50, Description: "Taxi", Date: "2024-03-02", Notes: "airport", Status: ledger.StatusPending, CreatedAt: entered},
		{ID: 4, Debtor: "person3", Creditor: "person4", Amount: 10, Description: "Coffee", Date: "2024-03-01", Status: ledger.StatusSettled},
	}
	return expenses, debts
}

func TestReportGolden(t *testing.T) {
	expenses, debts := fixture()
	r := Report{
		Roster:      ledger.DefaultRoster(),
		Expenses:    expenses,
		Debts:       debts,
		GeneratedAt: time.Date(2024, 3, 10, 9, 15, 0, 0, time.UTC),
		Sections:    AllSections,
	}

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo() error: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo() = %d, wrote %d bytes", n, buf.Len())
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "full_report", buf.Bytes())
}

func TestReportSections(t *testing.T) {
	expenses, debts := fixture()
	sections, err := ParseSections("summary")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	r := Report{Roster: ledger.DefaultRoster(), Expenses: expenses, Debts: debts, Sections: sections}
	if _, err := r.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\ufeff") {
		t.Error("report does not start with a byte order mark")
	}
	for _, want := range []string{"=== SUMMARY ===", "=== END OF REPORT ==="} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
	for _, absent := range []string{"SHARED EXPENSES", "PERSONAL DEBTS", "SETTLEMENT PLAN", "DEBT MATRIX"} {
		if strings.Contains(out, absent) {
			t.Errorf("report contains %q but only the summary was requested", absent)
		}
	}
}

func TestReportOmitsEmptySections(t *testing.T) {
	var buf bytes.Buffer
	r := Report{Roster: ledger.DefaultRoster(), Sections: AllSections}
	if _, err := r.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, absent := range []string{"SHARED EXPENSES", "PERSONAL DEBTS", "SETTLEMENT PLAN"} {
		if strings.Contains(out, absent) {
			t.Errorf("empty ledger report contains %q", absent)
		}
	}
	if !strings.Contains(out, "Total Shared Expenses: $0.00") {
		t.Error("empty ledger report missing zero total")
	}
}

func TestParseSections(t *testing.T) {
	tests := []struct {
		in      string
		want    []Section
		wantErr bool
	}{
		{in: "", want: AllSections},
		{in: "  ", want: AllSections},
		{in: "Matrix, summary", want: []Section{SectionMatrix, SectionSummary}},
		{in: "debts,,settlements", want: []Section{SectionDebts, SectionSettlements}},
		{in: "summary,charts", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSections(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSections(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if strings.Join(sectionNames(got), ",") != strings.Join(sectionNames(tt.want), ",") {
			t.Errorf("ParseSections(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func sectionNames(s []Section) []string {
	out := make([]string, len(s))
	for i, sec := range s {
		out[i] = string(sec)
	}
	return out
}

func TestFilenames(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	if got := BackupFilename(at); got != "warsan305-backup-2024-12-31.json" {
		t.Errorf("BackupFilename() = %q", got)
	}
	if got := ReportFilename(at); got != "Warsan305_Export_2024-12-31.csv" {
		t.Errorf("ReportFilename() = %q", got)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	expenses, debts := fixture()
	at := time.Date(2024, 3, 10, 9, 15, 0, 0, time.UTC)

	var buf bytes.Buffer
	if err := NewBackup(expenses, debts, at).Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"appName": "Warsan 305 Bill Splitter"`) {
		t.Errorf("backup missing app name:\n%s", buf.String())
	}

	got, err := DecodeBackup(&buf, ledger.DefaultRoster())
	if err != nil {
		t.Fatalf("DecodeBackup() error: %v", err)
	}
	if len(got.Expenses) != 2 || len(got.PersonalDebts) != 2 {
		t.Fatalf("DecodeBackup() = %d expenses, %d debts", len(got.Expenses), len(got.PersonalDebts))
	}
	if got.PersonalDebts[1].Status != ledger.StatusSettled {
		t.Errorf("status = %q, want settled", got.PersonalDebts[1].Status)
	}
	if !got.ExportDate.Equal(at) || got.Version != BackupVersion {
		t.Errorf("metadata = %v %q", got.ExportDate, got.Version)
	}
}

func TestEmptyBackupEncodesCollections(t *testing.T) {
	var buf bytes.Buffer
	if err := NewBackup(nil, nil, time.Now()).Encode(&buf); err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"expenses", "personalDebts"} {
		if string(raw[key]) != "[]" {
			t.Errorf("%s = %s, want []", key, raw[key])
		}
	}
}

func TestDecodeBackupRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"expenses": [`},
		{"missing debts", `{"expenses": []}`},
		{"missing expenses", `{"personalDebts": []}`},
		{"unknown payer", `{"expenses": [{"id": 1, "type": "rent", "name": "Rent", "amount": 10, "invoiceDate": "2024-01-01", "paidBy": "ghost"}], "personalDebts": []}`},
		{"negative amount", `{"expenses": [{"id": 1, "type": "rent", "name": "Rent", "amount": -10, "invoiceDate": "2024-01-01", "paidBy": "person1"}], "personalDebts": []}`},
		{"self debt", `{"expenses": [], "personalDebts": [{"id": 1, "from": "person1", "to": "person1", "amount": 5, "description": "x", "date": "2024-01-01", "status": "pending"}]}`},
		{"bad status", `{"expenses": [], "personalDebts": [{"id": 1, "from": "person1", "to": "person2", "amount": 5, "description": "x", "date": "2024-01-01", "status": "forgiven"}]}`},
		{"duplicate id", `{"expenses": [{"id": 1, "type": "rent", "name": "Rent", "amount": 10, "invoiceDate": "2024-01-01", "paidBy": "person1"}], "personalDebts": [{"id": 1, "from": "person1", "to": "person2", "amount": 5, "description": "x", "date": "2024-01-01", "status": "pending"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBackup(strings.NewReader(tt.doc), ledger.DefaultRoster())
			if !errors.Is(err, ErrInvalidBackup) {
				t.Errorf("DecodeBackup() error = %v, want ErrInvalidBackup", err)
			}
		})
	}
}
