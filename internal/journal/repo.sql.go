package journal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborerp/ledger-core/internal/platform/db"
)

// Repository persists journal entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("journal repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const entryColumns = `id, number, date, description, type, status, total_debit, total_credit, voucher_no, rejected_for, created_by, created_at, updated_at`

func (r *txRepository) Insert(ctx context.Context, e Entry) (Entry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (date, description, type, status, total_debit, total_credit, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, number, created_at, updated_at`,
		e.Date, e.Description, e.Type, e.Status, e.TotalDebit, e.TotalCredit, e.CreatedBy)
	if err := row.Scan(&e.ID, &e.Number, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Entry{}, err
	}
	for idx := range e.Lines {
		line := &e.Lines[idx]
		line.EntryID = e.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, remark)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, e.ID, line.AccountID, line.Debit, line.Credit, line.Remark).Scan(&line.ID)
		if err != nil {
			return Entry{}, err
		}
	}
	return e, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Entry, error) {
	var e Entry
	err := r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id).
		Scan(&e.ID, &e.Number, &e.Date, &e.Description, &e.Type, &e.Status, &e.TotalDebit, &e.TotalCredit, &e.VoucherNo, &e.RejectedFor, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, remark FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Entry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.Remark); err != nil {
			return Entry{}, err
		}
		e.Lines = append(e.Lines, line)
	}
	return e, rows.Err()
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status, voucherNo, reason string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, voucher_no=COALESCE(NULLIF($3,''), voucher_no), rejected_for=$4, updated_at=NOW() WHERE id=$1`,
		id, status, voucherNo, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) UpdateTotals(ctx context.Context, id int64, debit, credit float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE journal_entries SET total_debit=$2, total_credit=$3, updated_at=NOW() WHERE id=$1`, id, debit, credit)
	return err
}

func (r *txRepository) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries ORDER BY number DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Number, &e.Date, &e.Description, &e.Type, &e.Status, &e.TotalDebit, &e.TotalCredit, &e.VoucherNo, &e.RejectedFor, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
