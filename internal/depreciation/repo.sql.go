package depreciation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborerp/ledger-core/internal/platform/db"
)

// Repository persists assets and schedules in PostgreSQL.
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
		return errors.New("depreciation repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) GetAsset(ctx context.Context, assetID int64) (Asset, error) {
	var a Asset
	err := r.tx.QueryRow(ctx, `SELECT id, name, cost, salvage, life_periods, method, expense_account_id, accum_account_id, acquired_at, created_at, updated_at
FROM fixed_assets WHERE id=$1`, assetID).
		Scan(&a.ID, &a.Name, &a.Cost, &a.Salvage, &a.LifePeriods, &a.Method, &a.ExpenseAccountID, &a.AccumAccountID, &a.AcquiredAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, ErrAssetNotFound
		}
		return Asset{}, err
	}
	return a, nil
}

func (r *txRepository) CountScheduleEntries(ctx context.Context, assetID int64) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM depreciation_schedule WHERE asset_id=$1`, assetID).Scan(&count)
	return count, err
}

const scheduleColumns = `id, asset_id, schedule_date, amount, accumulated, book_value, status, voucher_no, created_at, updated_at`

func (r *txRepository) InsertScheduleEntry(ctx context.Context, e ScheduleEntry) (ScheduleEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO depreciation_schedule (asset_id, schedule_date, amount, accumulated, book_value, status, voucher_no)
VALUES ($1,$2,$3,$4,$5,$6,'') RETURNING id, created_at, updated_at`,
		e.AssetID, e.ScheduleDate, e.Amount, e.Accumulated, e.BookValue, e.Status)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return ScheduleEntry{}, err
	}
	return e, nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, assetID int64, date time.Time) (ScheduleEntry, error) {
	var e ScheduleEntry
	err := r.tx.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM depreciation_schedule
WHERE asset_id=$1 AND schedule_date=$2 FOR UPDATE`, assetID, date).
		Scan(&e.ID, &e.AssetID, &e.ScheduleDate, &e.Amount, &e.Accumulated, &e.BookValue, &e.Status, &e.VoucherNo, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ScheduleEntry{}, ErrScheduleEntryNotFound
		}
		return ScheduleEntry{}, err
	}
	return e, nil
}

func (r *txRepository) MarkPosted(ctx context.Context, entryID int64, voucherNo string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE depreciation_schedule SET status=$2, voucher_no=$3, updated_at=NOW() WHERE id=$1 AND status=$4`,
		entryID, EntryStatusPosted, voucherNo, EntryStatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyPosted
	}
	return nil
}

func (r *txRepository) ListSchedule(ctx context.Context, assetID int64) ([]ScheduleEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+scheduleColumns+` FROM depreciation_schedule WHERE asset_id=$1 ORDER BY schedule_date ASC`, assetID)
	if err != nil {
		return nil, err
	}
	return scanScheduleRows(rows)
}

func (r *txRepository) ListDuePending(ctx context.Context, asOf time.Time) ([]ScheduleEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+scheduleColumns+` FROM depreciation_schedule
WHERE status=$1 AND schedule_date <= $2 ORDER BY schedule_date ASC, asset_id ASC`, EntryStatusPending, asOf)
	if err != nil {
		return nil, err
	}
	return scanScheduleRows(rows)
}

func scanScheduleRows(rows pgx.Rows) ([]ScheduleEntry, error) {
	defer rows.Close()
	var entries []ScheduleEntry
	for rows.Next() {
		var e ScheduleEntry
		if err := rows.Scan(&e.ID, &e.AssetID, &e.ScheduleDate, &e.Amount, &e.Accumulated, &e.BookValue, &e.Status, &e.VoucherNo, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
