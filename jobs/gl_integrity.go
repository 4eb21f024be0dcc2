package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborerp/ledger-core/internal/shared"
)

// IntegrityDrift reports one account whose cached balance disagrees with
// the sum of its leaf entries.
type IntegrityDrift struct {
	AccountID int64
	Code      string
	Cached    float64
	Derived   float64
}

// RunGLIntegrityCheck recomputes every leaf balance from the full entry
// stream and compares it against the cached account balance. Reversal legs
// are summed alongside the cancelled originals they offset, so a reversed
// voucher derives to zero. Drift is logged, never auto-corrected; an
// operator decides how to repair.
func RunGLIntegrityCheck(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) ([]IntegrityDrift, error) {
	rows, err := pool.Query(ctx, `SELECT a.id, a.code, a.balance,
CASE WHEN a.nature = 'DEBIT'
	THEN COALESCE(SUM(e.debit - e.credit), 0)
	ELSE COALESCE(SUM(e.credit - e.debit), 0)
END AS derived
FROM accounts a
LEFT JOIN ledger_entries e ON e.account_id = a.id
WHERE a.is_group = FALSE
GROUP BY a.id, a.code, a.balance, a.nature`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drifts []IntegrityDrift
	for rows.Next() {
		var d IntegrityDrift
		if err := rows.Scan(&d.AccountID, &d.Code, &d.Cached, &d.Derived); err != nil {
			return nil, err
		}
		if !shared.SameAmount(d.Cached, d.Derived) {
			drifts = append(drifts, d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var totalDebit, totalCredit float64
	err = pool.QueryRow(ctx, `SELECT COALESCE(SUM(debit),0), COALESCE(SUM(credit),0) FROM ledger_entries`).
		Scan(&totalDebit, &totalCredit)
	if err != nil {
		return nil, err
	}

	if logger != nil {
		for _, d := range drifts {
			logger.Warn("balance drift detected",
				slog.String("account", d.Code),
				slog.Float64("cached", d.Cached),
				slog.Float64("derived", d.Derived))
		}
		logger.Info("GL integrity check completed",
			slog.Int("drifts", len(drifts)),
			slog.Float64("total_debit", totalDebit),
			slog.Float64("total_credit", totalCredit),
			slog.Bool("balanced", shared.SameAmount(totalDebit, totalCredit)))
	}
	return drifts, nil
}

// HandleGLIntegrityTask adapts the check into an Asynq handler.
func HandleGLIntegrityTask(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if _, err := decodePayload[GLIntegrityPayload](t); err != nil {
			return err
		}
		_, err := RunGLIntegrityCheck(ctx, pool, logger)
		return err
	}
}
