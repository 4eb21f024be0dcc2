package depreciation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BuildSchedule computes the deterministic period plan for an asset. The
// arithmetic runs in decimal cents so the periods sum to exactly
// (cost - salvage): the final period absorbs any rounding remainder, book
// value never increases and never drops below salvage.
func BuildSchedule(asset Asset) ([]ScheduleEntry, error) {
	if asset.LifePeriods <= 0 {
		return nil, fmt.Errorf("%w: life periods %d", ErrInvalidAsset, asset.LifePeriods)
	}
	cost := decimal.NewFromFloat(asset.Cost).Round(2)
	salvage := decimal.NewFromFloat(asset.Salvage).Round(2)
	if cost.LessThan(salvage) || salvage.IsNegative() {
		return nil, fmt.Errorf("%w: cost %.2f salvage %.2f", ErrInvalidAsset, asset.Cost, asset.Salvage)
	}
	if asset.Method != "" && asset.Method != MethodStraightLine {
		return nil, fmt.Errorf("%w: unsupported method %s", ErrInvalidAsset, asset.Method)
	}

	depreciable := cost.Sub(salvage)
	periods := int64(asset.LifePeriods)
	perPeriod := depreciable.DivRound(decimal.NewFromInt(periods), 2)

	start := asset.AcquiredAt
	if start.IsZero() {
		start = time.Now()
	}
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)

	entries := make([]ScheduleEntry, 0, asset.LifePeriods)
	accumulated := decimal.Zero
	for i := 0; i < asset.LifePeriods; i++ {
		amount := perPeriod
		if i == asset.LifePeriods-1 {
			amount = depreciable.Sub(accumulated)
		}
		accumulated = accumulated.Add(amount)
		book := cost.Sub(accumulated)
		entries = append(entries, ScheduleEntry{
			AssetID:      asset.ID,
			ScheduleDate: start.AddDate(0, i+1, 0),
			Amount:       amount.InexactFloat64(),
			Accumulated:  accumulated.InexactFloat64(),
			BookValue:    book.InexactFloat64(),
			Status:       EntryStatusPending,
		})
	}
	return entries, nil
}
