package settlement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborerp/ledger-core/internal/platform/db"
)

// Repository persists allocations in PostgreSQL. Invoice master data is
// owned by the party directory; this repository only reads it.
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
		return errors.New("settlement repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// ListOutstandingForUpdate locks the party's open invoices and returns them
// with the amount still owed after prior allocations.
func (r *txRepository) ListOutstandingForUpdate(ctx context.Context, partyID int64) ([]OutstandingInvoice, error) {
	rows, err := r.tx.Query(ctx, `SELECT i.id, i.party_id, i.invoice_date, i.seq, i.total,
	i.total - COALESCE((SELECT SUM(s.amount) FROM invoice_settlements s WHERE s.invoice_id = i.id), 0) AS remaining
FROM invoices i
WHERE i.party_id = $1
  AND i.total > COALESCE((SELECT SUM(s.amount) FROM invoice_settlements s WHERE s.invoice_id = i.id), 0)
ORDER BY i.invoice_date ASC, i.seq ASC
FOR UPDATE OF i`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []OutstandingInvoice
	for rows.Next() {
		var inv OutstandingInvoice
		if err := rows.Scan(&inv.ID, &inv.PartyID, &inv.InvoiceDate, &inv.Seq, &inv.Total, &inv.Remaining); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *txRepository) ListByPayment(ctx context.Context, paymentID string) ([]Allocation, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, payment_id, invoice_id, amount, allocated_at FROM invoice_settlements WHERE payment_id=$1 ORDER BY id ASC`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var allocations []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.InvoiceID, &a.Amount, &a.AllocatedAt); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// Insert records an allocation only while the invoice still carries enough
// outstanding amount; the guard holds even if a concurrent writer slipped in.
func (r *txRepository) Insert(ctx context.Context, a Allocation) (Allocation, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO invoice_settlements (payment_id, invoice_id, amount, allocated_at)
SELECT $1, i.id, $3, $4 FROM invoices i
WHERE i.id = $2
  AND i.total - COALESCE((SELECT SUM(s.amount) FROM invoice_settlements s WHERE s.invoice_id = i.id), 0) >= $3
RETURNING id`, a.PaymentID, a.InvoiceID, a.Amount, a.AllocatedAt)
	if err := row.Scan(&a.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Allocation{}, ErrInsufficientOutstanding
		}
		return Allocation{}, err
	}
	return a, nil
}

func (r *txRepository) DeleteByPayment(ctx context.Context, paymentID string) (int64, error) {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM invoice_settlements WHERE payment_id=$1`, paymentID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
