package reports

import (
	"sort"
	"strings"
)

// AccountActivity models a leaf account with aggregated ledger movement up
// to the report date. Cancelled vouchers net out because the reversal legs
// are included in the sums.
type AccountActivity struct {
	AccountID int64
	Code      string
	Name      string
	Type      string
	Nature    string
	Debit     float64
	Credit    float64
}

// Closing computes the closing balance in conventional debit-minus-credit
// presentation.
func (a AccountActivity) Closing() float64 {
	return a.Debit - a.Credit
}

// GroupKey returns the top dot-delimited code segment used for grouping.
func (a AccountActivity) GroupKey() string {
	if idx := strings.Index(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	return a.Code
}

// TrialBalanceRow represents one account inside a trial balance group.
type TrialBalanceRow struct {
	Code    string
	Name    string
	Debit   float64
	Credit  float64
	Closing float64
}

// TrialBalanceGroup aggregates rows that share a top-level code segment.
type TrialBalanceGroup struct {
	Key     string
	Rows    []TrialBalanceRow
	Debit   float64
	Credit  float64
	Closing float64
}

// TrialBalance is the final projection. TotalDebit always equals
// TotalCredit for a ledger that honours double entry.
type TrialBalance struct {
	AsOf        string
	Groups      []TrialBalanceGroup
	TotalDebit  float64
	TotalCredit float64
}

// BuildTrialBalance converts account activity into the grouped projection.
func BuildTrialBalance(asOf string, accounts []AccountActivity) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range accounts {
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		row := TrialBalanceRow{
			Code:    acc.Code,
			Name:    acc.Name,
			Debit:   acc.Debit,
			Credit:  acc.Credit,
			Closing: acc.Closing(),
		}
		grp.Rows = append(grp.Rows, row)
		grp.Debit += row.Debit
		grp.Credit += row.Credit
		grp.Closing += row.Closing
	}

	sort.Strings(keys)
	result := TrialBalance{AsOf: asOf}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Rows, func(i, j int) bool {
			return grp.Rows[i].Code < grp.Rows[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit += grp.Debit
		result.TotalCredit += grp.Credit
	}
	return result
}
