package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/susu3304/warikan/internal/export"
	"github.com/susu3304/warikan/internal/ledger"
)

func writeBackup(t *testing.T, expenses []ledger.SharedExpense, debts []ledger.PersonalDebt) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, export.NewBackup(expenses, debts, time.Now()).Encode(f))
	return path
}

func sampleBackup(t *testing.T) string {
	return writeBackup(t,
		[]ledger.SharedExpense{{ID: 1, Category: "rent", Description: "Rent", Amount: 140, InvoiceDate: "2024-03-01", Payer: "person2"}},
		[]ledger.PersonalDebt{{ID: 2, Debtor: "person1", Creditor: "person2", Amount: 50, Description: "Taxi", Date: "2024-03-02", Status: ledger.StatusPending}},
	)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "warikan", cmd.Use)
	for _, name := range []string{"serve", "settle", "report"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "settle", "--format", "yaml", sampleBackup(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSettleText(t *testing.T) {
	out, err := execute(t, "settle", sampleBackup(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Total shared expenses: $140.00")
	assert.Contains(t, out, "Brian should pay Tessa $70.00")
	assert.Contains(t, out, "Robert should pay Tessa $20.00")
	assert.Contains(t, out, "6 transactions, $170.00 in total")
}

func TestSettleNothingOwed(t *testing.T) {
	out, err := execute(t, "settle", writeBackup(t, nil, nil))
	require.NoError(t, err)
	assert.Contains(t, out, "Everyone is settled up.")
}

func TestSettleJSON(t *testing.T) {
	out, err := execute(t, "settle", "--format", "json", sampleBackup(t))
	require.NoError(t, err)

	var plan struct {
		TotalShared float64 `json:"totalShared"`
		Settlements []struct {
			From   string  `json:"from"`
			Amount float64 `json:"amount"`
		} `json:"settlements"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, 140.0, plan.TotalShared)
	require.Len(t, plan.Settlements, 6)
	assert.Equal(t, "person1", plan.Settlements[0].From)
}

func TestSettleRejectsInvalidBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"expenses": []}`), 0o600))
	_, err := execute(t, "settle", path)
	assert.ErrorIs(t, err, export.ErrInvalidBackup)

	_, err = execute(t, "settle", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSettleWithCustomRoster(t *testing.T) {
	dir := t.TempDir()
	roster := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(roster, []byte("participants:\n  - id: a\n    name: Ann\n  - id: b\n    name: Ben\n"), 0o600))
	backup := writeBackup(t,
		[]ledger.SharedExpense{{ID: 1, Category: "food", Description: "Dinner", Amount: 30, InvoiceDate: "2024-03-01", Payer: "a"}},
		nil,
	)

	out, err := execute(t, "settle", "--roster", roster, backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Ben should pay Ann $15.00")
}

func TestReport(t *testing.T) {
	out, err := execute(t, "report", "--sections", "summary,settlements", sampleBackup(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\ufeff"))
	assert.Contains(t, out, "=== SETTLEMENT PLAN ===")
	assert.NotContains(t, out, "=== DEBT MATRIX ===")

	_, err = execute(t, "report", "--sections", "charts", sampleBackup(t))
	assert.Error(t, err)
}

func TestReportToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.csv")
	out, err := execute(t, "report", "-o", target, sampleBackup(t))
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "=== END OF REPORT ===")
}
