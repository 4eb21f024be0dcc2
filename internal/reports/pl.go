package reports

// ProfitAndLossLine is one account contribution to the statement.
type ProfitAndLossLine struct {
	Code   string
	Name   string
	Amount float64
}

// ProfitAndLoss projects revenue and expense activity for a period.
type ProfitAndLoss struct {
	From         string
	To           string
	Revenue      []ProfitAndLossLine
	Expenses     []ProfitAndLossLine
	TotalRevenue float64
	TotalExpense float64
	NetIncome    float64
}

// BuildProfitAndLoss separates activity into revenue and expense sections.
// Revenue accounts carry credit-natured activity so their contribution is
// Credit-Debit; expenses contribute Debit-Credit.
func BuildProfitAndLoss(from, to string, accounts []AccountActivity) ProfitAndLoss {
	report := ProfitAndLoss{From: from, To: to}
	for _, acc := range accounts {
		switch acc.Type {
		case "REVENUE":
			amount := acc.Credit - acc.Debit
			report.Revenue = append(report.Revenue, ProfitAndLossLine{Code: acc.Code, Name: acc.Name, Amount: amount})
			report.TotalRevenue += amount
		case "EXPENSE":
			amount := acc.Debit - acc.Credit
			report.Expenses = append(report.Expenses, ProfitAndLossLine{Code: acc.Code, Name: acc.Name, Amount: amount})
			report.TotalExpense += amount
		}
	}
	report.NetIncome = report.TotalRevenue - report.TotalExpense
	return report
}
