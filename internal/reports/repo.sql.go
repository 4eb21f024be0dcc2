package reports

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborerp/ledger-core/internal/coa"
)

// Repository reads aggregated ledger activity for projections. It never
// writes, and it sums every ledger entry: a reversal appears as offsetting
// legs, so cancelled vouchers net to zero without any filter. Cached account
// balances are not trusted for reporting.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ActivityAsOf aggregates per-account debit/credit sums for leaf accounts
// with postings on or before the date.
func (r *Repository) ActivityAsOf(ctx context.Context, asOf time.Time) ([]AccountActivity, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.name, a.type, a.nature,
COALESCE(SUM(e.debit),0), COALESCE(SUM(e.credit),0)
FROM accounts a
JOIN ledger_entries e ON e.account_id = a.id AND e.posting_date <= $1
WHERE a.is_group = FALSE
GROUP BY a.id, a.code, a.name, a.type, a.nature
ORDER BY a.code ASC`, asOf)
	if err != nil {
		return nil, err
	}
	return scanActivity(rows)
}

// ActivityBetween aggregates per-account debit/credit sums for a period.
func (r *Repository) ActivityBetween(ctx context.Context, from, to time.Time) ([]AccountActivity, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.name, a.type, a.nature,
COALESCE(SUM(e.debit),0), COALESCE(SUM(e.credit),0)
FROM accounts a
JOIN ledger_entries e ON e.account_id = a.id AND e.posting_date >= $1 AND e.posting_date <= $2
WHERE a.is_group = FALSE
GROUP BY a.id, a.code, a.name, a.type, a.nature
ORDER BY a.code ASC`, from, to)
	if err != nil {
		return nil, err
	}
	return scanActivity(rows)
}

func scanActivity(rows pgx.Rows) ([]AccountActivity, error) {
	defer rows.Close()
	var out []AccountActivity
	for rows.Next() {
		var a AccountActivity
		if err := rows.Scan(&a.AccountID, &a.Code, &a.Name, &a.Type, &a.Nature, &a.Debit, &a.Credit); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// StatementAccount is the account header for a statement query.
type StatementAccount struct {
	ID     int64
	Code   string
	Name   string
	Nature string
}

// GetStatementAccount resolves the account header by code.
func (r *Repository) GetStatementAccount(ctx context.Context, code string) (StatementAccount, error) {
	var a StatementAccount
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, nature FROM accounts WHERE code=$1`, code).
		Scan(&a.ID, &a.Code, &a.Name, &a.Nature)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StatementAccount{}, coa.ErrAccountNotFound
		}
		return StatementAccount{}, err
	}
	return a, nil
}

// OpeningBalance computes the account's balance before the given date in
// its nature direction.
func (r *Repository) OpeningBalance(ctx context.Context, accountID int64, before time.Time, nature string) (float64, error) {
	var debit, credit float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(debit),0), COALESCE(SUM(credit),0)
FROM ledger_entries WHERE account_id=$1 AND posting_date < $2`, accountID, before).
		Scan(&debit, &credit)
	if err != nil {
		return 0, err
	}
	if nature == "DEBIT" {
		return debit - credit, nil
	}
	return credit - debit, nil
}

// Movements lists the account's entries inside the range in posting order.
// Cancelled legs stay on the statement, flagged, so the audit trail reads
// exactly as the ledger was written.
func (r *Repository) Movements(ctx context.Context, accountID int64, from, to time.Time) ([]StatementLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT posting_date, voucher_type, voucher_no, remark, debit, credit, cancelled
FROM ledger_entries
WHERE account_id=$1 AND posting_date >= $2 AND posting_date <= $3
ORDER BY posting_date ASC, id ASC`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []StatementLine
	for rows.Next() {
		var l StatementLine
		if err := rows.Scan(&l.PostingDate, &l.VoucherType, &l.VoucherNo, &l.Remark, &l.Debit, &l.Credit, &l.Cancelled); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
