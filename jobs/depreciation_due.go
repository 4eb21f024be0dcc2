package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/harborerp/ledger-core/internal/depreciation"
)

// HandleDepreciationDueTask reports pending depreciation periods whose
// date has passed. It only surfaces them; posting stays an explicit call.
func HandleDepreciationDueTask(svc *depreciation.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		payload, err := decodePayload[DepreciationDuePayload](t)
		if err != nil {
			return err
		}
		asOf := payload.AsOf
		if asOf.IsZero() {
			asOf = time.Now()
		}
		due, err := svc.ListDuePending(ctx, asOf)
		if err != nil {
			return err
		}
		if logger != nil {
			for _, entry := range due {
				logger.Info("depreciation period due",
					slog.Int64("asset_id", entry.AssetID),
					slog.Time("schedule_date", entry.ScheduleDate),
					slog.Float64("amount", entry.Amount))
			}
			logger.Info("depreciation due scan completed", slog.Int("due", len(due)))
		}
		return nil
	}
}
