package reports

import "time"

// StatementLine is one ledger movement on an account statement.
type StatementLine struct {
	PostingDate time.Time
	VoucherType string
	VoucherNo   string
	Remark      string
	Debit       float64
	Credit      float64
	Balance     float64
	Cancelled   bool
}

// AccountStatement lists an account's movements over a date range with a
// running balance in the account's nature direction.
type AccountStatement struct {
	AccountCode string
	AccountName string
	Nature      string
	From        time.Time
	To          time.Time
	Opening     float64
	Lines       []StatementLine
	Closing     float64
}

// BuildAccountStatement computes running balances from an opening balance
// and chronologically ordered movements.
func BuildAccountStatement(code, name, nature string, from, to time.Time, opening float64, lines []StatementLine) AccountStatement {
	stmt := AccountStatement{
		AccountCode: code,
		AccountName: name,
		Nature:      nature,
		From:        from,
		To:          to,
		Opening:     opening,
	}
	running := opening
	for _, line := range lines {
		if nature == "DEBIT" {
			running += line.Debit - line.Credit
		} else {
			running += line.Credit - line.Debit
		}
		line.Balance = running
		stmt.Lines = append(stmt.Lines, line)
	}
	stmt.Closing = running
	return stmt
}
