package reports

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/harborerp/ledger-core/internal/shared"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders an amount with thousand separators for display,
// e.g. 1234567.8 -> "1,234,567.80".
func FormatAmount(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// TrialBalanceView is the display projection of a trial balance.
type TrialBalanceView struct {
	AsOf        string                  `json:"as_of"`
	Groups      []TrialBalanceGroupView `json:"groups"`
	TotalDebit  string                  `json:"total_debit"`
	TotalCredit string                  `json:"total_credit"`
	Balanced    bool                    `json:"balanced"`
}

type TrialBalanceGroupView struct {
	Key     string                `json:"key"`
	Rows    []TrialBalanceRowView `json:"rows"`
	Debit   string                `json:"debit"`
	Credit  string                `json:"credit"`
	Closing string                `json:"closing"`
}

type TrialBalanceRowView struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Debit   string `json:"debit"`
	Credit  string `json:"credit"`
	Closing string `json:"closing"`
}

// PresentTrialBalance converts the projection into formatted strings.
func PresentTrialBalance(tb TrialBalance) TrialBalanceView {
	view := TrialBalanceView{
		AsOf:        tb.AsOf,
		TotalDebit:  FormatAmount(tb.TotalDebit),
		TotalCredit: FormatAmount(tb.TotalCredit),
		Balanced:    shared.SameAmount(tb.TotalDebit, tb.TotalCredit),
	}
	for _, grp := range tb.Groups {
		gv := TrialBalanceGroupView{
			Key:     grp.Key,
			Debit:   FormatAmount(grp.Debit),
			Credit:  FormatAmount(grp.Credit),
			Closing: FormatAmount(grp.Closing),
		}
		for _, row := range grp.Rows {
			gv.Rows = append(gv.Rows, TrialBalanceRowView{
				Code:    row.Code,
				Name:    row.Name,
				Debit:   FormatAmount(row.Debit),
				Credit:  FormatAmount(row.Credit),
				Closing: FormatAmount(row.Closing),
			})
		}
		view.Groups = append(view.Groups, gv)
	}
	return view
}
