package reports

import (
	"context"
	"time"
)

// ReadRepository is the aggregate query boundary.
type ReadRepository interface {
	ActivityAsOf(ctx context.Context, asOf time.Time) ([]AccountActivity, error)
	ActivityBetween(ctx context.Context, from, to time.Time) ([]AccountActivity, error)
	GetStatementAccount(ctx context.Context, code string) (StatementAccount, error)
	OpeningBalance(ctx context.Context, accountID int64, before time.Time, nature string) (float64, error)
	Movements(ctx context.Context, accountID int64, from, to time.Time) ([]StatementLine, error)
}

// Service assembles read-only projections. Report queries never mutate
// ledger or directory state.
type Service struct {
	repo  ReadRepository
	cache *Cache
}

// NewService constructs the reporting service. cache may be nil.
func NewService(repo ReadRepository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

const dateLayout = "2006-01-02"

// TrialBalance builds the grouped trial balance as of a date, served from
// cache when available.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "tb", asOf.Format(dateLayout))
	if err != nil {
		return TrialBalance{}, err
	}
	var tb TrialBalance
	err = s.cache.FetchJSON(ctx, key, &tb, func(ctx context.Context) (interface{}, error) {
		activity, err := s.repo.ActivityAsOf(ctx, asOf)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(asOf.Format(dateLayout), activity), nil
	})
	return tb, err
}

// ProfitAndLoss builds the income statement for a period.
func (s *Service) ProfitAndLoss(ctx context.Context, from, to time.Time) (ProfitAndLoss, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "pl", from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return ProfitAndLoss{}, err
	}
	var pl ProfitAndLoss
	err = s.cache.FetchJSON(ctx, key, &pl, func(ctx context.Context) (interface{}, error) {
		activity, err := s.repo.ActivityBetween(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(from.Format(dateLayout), to.Format(dateLayout), activity), nil
	})
	return pl, err
}

// BalanceSheet builds the position statement as of a date.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "bs", asOf.Format(dateLayout))
	if err != nil {
		return BalanceSheet{}, err
	}
	var bs BalanceSheet
	err = s.cache.FetchJSON(ctx, key, &bs, func(ctx context.Context) (interface{}, error) {
		activity, err := s.repo.ActivityAsOf(ctx, asOf)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(asOf.Format(dateLayout), activity), nil
	})
	return bs, err
}

// Statement builds an account statement for a date range. Statements are
// not cached; they target a single account and stay cheap.
func (s *Service) Statement(ctx context.Context, accountCode string, from, to time.Time) (AccountStatement, error) {
	account, err := s.repo.GetStatementAccount(ctx, accountCode)
	if err != nil {
		return AccountStatement{}, err
	}
	opening, err := s.repo.OpeningBalance(ctx, account.ID, from, account.Nature)
	if err != nil {
		return AccountStatement{}, err
	}
	lines, err := s.repo.Movements(ctx, account.ID, from, to)
	if err != nil {
		return AccountStatement{}, err
	}
	return BuildAccountStatement(account.Code, account.Name, account.Nature, from, to, opening, lines), nil
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
