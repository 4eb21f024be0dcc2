package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborerp/ledger-core/internal/shared"
)

func sampleActivity() []AccountActivity {
	return []AccountActivity{
		{AccountID: 1, Code: "1.1", Name: "Cash", Type: "ASSET", Nature: "DEBIT", Debit: 2500, Credit: 700},
		{AccountID: 2, Code: "1.2", Name: "Receivables", Type: "ASSET", Nature: "DEBIT", Debit: 1200, Credit: 400},
		{AccountID: 3, Code: "2.1", Name: "Payables", Type: "LIABILITY", Nature: "CREDIT", Debit: 100, Credit: 900},
		{AccountID: 4, Code: "3.1", Name: "Share Capital", Type: "EQUITY", Nature: "CREDIT", Debit: 0, Credit: 1000},
		{AccountID: 5, Code: "4.1", Name: "Sales", Type: "REVENUE", Nature: "CREDIT", Debit: 0, Credit: 2500},
		{AccountID: 6, Code: "5.1", Name: "Rent", Type: "EXPENSE", Nature: "DEBIT", Debit: 700, Credit: 0},
	}
}

func TestBuildTrialBalance(t *testing.T) {
	tb := BuildTrialBalance("2026-03-31", sampleActivity())

	require.Equal(t, "2026-03-31", tb.AsOf)
	require.InDelta(t, 4500, tb.TotalDebit, 1e-9)
	require.InDelta(t, 4500, tb.TotalCredit, 1e-9)
	require.True(t, shared.SameAmount(tb.TotalDebit, tb.TotalCredit))

	require.Len(t, tb.Groups, 5)
	require.Equal(t, "1", tb.Groups[0].Key)
	require.Len(t, tb.Groups[0].Rows, 2)
	require.Equal(t, "1.1", tb.Groups[0].Rows[0].Code)
	require.Equal(t, "1.2", tb.Groups[0].Rows[1].Code)
	require.InDelta(t, 3700, tb.Groups[0].Debit, 1e-9)
	require.InDelta(t, 1100, tb.Groups[0].Credit, 1e-9)
	require.InDelta(t, 2600, tb.Groups[0].Closing, 1e-9)

	require.Equal(t, "2", tb.Groups[1].Key)
	require.InDelta(t, -800, tb.Groups[1].Closing, 1e-9)
}

func TestBuildTrialBalanceEmpty(t *testing.T) {
	tb := BuildTrialBalance("2026-03-31", nil)
	require.Empty(t, tb.Groups)
	require.Zero(t, tb.TotalDebit)
	require.Zero(t, tb.TotalCredit)
}

func TestBuildProfitAndLoss(t *testing.T) {
	pl := BuildProfitAndLoss("2026-03-01", "2026-03-31", sampleActivity())

	require.Len(t, pl.Revenue, 1)
	require.Len(t, pl.Expenses, 1)
	require.InDelta(t, 2500, pl.TotalRevenue, 1e-9)
	require.InDelta(t, 700, pl.TotalExpense, 1e-9)
	require.InDelta(t, 1800, pl.NetIncome, 1e-9)
	require.Equal(t, "4.1", pl.Revenue[0].Code)
	require.InDelta(t, 2500, pl.Revenue[0].Amount, 1e-9)
}

func TestBuildBalanceSheetBalances(t *testing.T) {
	bs := BuildBalanceSheet("2026-03-31", sampleActivity())

	require.InDelta(t, 3600, bs.TotalAssets, 1e-9)
	require.InDelta(t, 800, bs.TotalLiabilities, 1e-9)
	require.InDelta(t, 1000, bs.TotalEquity, 1e-9)
	// retained earnings folds unclosed revenue and expense activity
	require.InDelta(t, 1800, bs.RetainedEarnings, 1e-9)
	require.InDelta(t, bs.TotalAssets, bs.TotalLiabilitiesAndEquity, 1e-9)
}

func TestBuildAccountStatementRunningBalance(t *testing.T) {
	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)
	lines := []StatementLine{
		{PostingDate: from.AddDate(0, 0, 2), VoucherNo: "INV-1", Debit: 500},
		{PostingDate: from.AddDate(0, 0, 9), VoucherNo: "PAY-1", Credit: 200},
		{PostingDate: from.AddDate(0, 0, 20), VoucherNo: "INV-2", Debit: 150},
	}

	stmt := BuildAccountStatement("1.1", "Cash", "DEBIT", from, to, 1000, lines)
	require.InDelta(t, 1000, stmt.Opening, 1e-9)
	require.Len(t, stmt.Lines, 3)
	require.InDelta(t, 1500, stmt.Lines[0].Balance, 1e-9)
	require.InDelta(t, 1300, stmt.Lines[1].Balance, 1e-9)
	require.InDelta(t, 1450, stmt.Lines[2].Balance, 1e-9)
	require.InDelta(t, 1450, stmt.Closing, 1e-9)

	// credit natured accounts run the other way
	creditStmt := BuildAccountStatement("4.1", "Sales", "CREDIT", from, to, 0, []StatementLine{
		{PostingDate: from, VoucherNo: "INV-1", Credit: 500},
		{PostingDate: from.AddDate(0, 0, 1), VoucherNo: "CN-1", Debit: 100},
	})
	require.InDelta(t, 500, creditStmt.Lines[0].Balance, 1e-9)
	require.InDelta(t, 400, creditStmt.Closing, 1e-9)
}

func TestPresentTrialBalance(t *testing.T) {
	view := PresentTrialBalance(BuildTrialBalance("2026-03-31", sampleActivity()))
	require.True(t, view.Balanced)
	require.Equal(t, "4,500.00", view.TotalDebit)
	require.Equal(t, "4,500.00", view.TotalCredit)
}
