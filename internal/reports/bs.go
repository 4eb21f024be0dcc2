package reports

// BalanceSheetLine is one account's closing position.
type BalanceSheetLine struct {
	Code    string
	Name    string
	Balance float64
}

// BalanceSheet projects closing positions as of a date. RetainedEarnings
// folds cumulative revenue and expense activity into the equity side so
// the statement balances without a closing run.
type BalanceSheet struct {
	AsOf                      string
	Assets                    []BalanceSheetLine
	Liabilities               []BalanceSheetLine
	Equity                    []BalanceSheetLine
	TotalAssets               float64
	TotalLiabilities          float64
	TotalEquity               float64
	RetainedEarnings          float64
	TotalLiabilitiesAndEquity float64
}

// BuildBalanceSheet classifies closing balances by account type.
func BuildBalanceSheet(asOf string, accounts []AccountActivity) BalanceSheet {
	report := BalanceSheet{AsOf: asOf}
	for _, acc := range accounts {
		switch acc.Type {
		case "ASSET":
			balance := acc.Debit - acc.Credit
			report.Assets = append(report.Assets, BalanceSheetLine{Code: acc.Code, Name: acc.Name, Balance: balance})
			report.TotalAssets += balance
		case "LIABILITY":
			balance := acc.Credit - acc.Debit
			report.Liabilities = append(report.Liabilities, BalanceSheetLine{Code: acc.Code, Name: acc.Name, Balance: balance})
			report.TotalLiabilities += balance
		case "EQUITY":
			balance := acc.Credit - acc.Debit
			report.Equity = append(report.Equity, BalanceSheetLine{Code: acc.Code, Name: acc.Name, Balance: balance})
			report.TotalEquity += balance
		case "REVENUE":
			report.RetainedEarnings += acc.Credit - acc.Debit
		case "EXPENSE":
			report.RetainedEarnings -= acc.Debit - acc.Credit
		}
	}
	report.TotalLiabilitiesAndEquity = report.TotalLiabilities + report.TotalEquity + report.RetainedEarnings
	return report
}
