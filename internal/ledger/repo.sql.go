package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborerp/ledger-core/internal/coa"
	"github.com/harborerp/ledger-core/internal/platform/db"
)

// Repository persists ledger entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx       pgx.Tx
	accounts coa.TxRepository
}

// WithTx executes fn within a repeatable-read transaction shared with the
// account directory, so entries and balances commit together.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, accounts: coa.NewTxRepository(tx)})
	})
}

func (r *txRepository) Accounts() coa.TxRepository {
	return r.accounts
}

const entryColumns = `id, posting_date, voucher_type, voucher_no, account_id, debit, credit, remark, cancelled, created_by, created_at, updated_at`

func (r *txRepository) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO ledger_entries (posting_date, voucher_type, voucher_no, account_id, debit, credit, remark, cancelled, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,false,$8) RETURNING id, created_at, updated_at`,
		e.PostingDate, e.VoucherType, e.VoucherNo, e.AccountID, e.Debit, e.Credit, e.Remark, e.CreatedBy)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (r *txRepository) ListVoucher(ctx context.Context, voucherNo string) ([]Entry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE voucher_no=$1 ORDER BY id ASC`, voucherNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PostingDate, &e.VoucherType, &e.VoucherNo, &e.AccountID, &e.Debit, &e.Credit, &e.Remark, &e.Cancelled, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *txRepository) VoucherExists(ctx context.Context, voucherNo string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE voucher_no=$1)`, voucherNo).Scan(&exists)
	return exists, err
}

func (r *txRepository) MarkVoucherCancelled(ctx context.Context, voucherNo string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_entries SET cancelled=true, updated_at=NOW() WHERE voucher_no=$1 AND NOT cancelled`, voucherNo)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyCancelled
	}
	return nil
}

// isSerializationFailure detects commit-time conflicts that callers should
// retry (serialization failure or deadlock).
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
