package depreciation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborerp/ledger-core/internal/shared"
)

func truckAsset() Asset {
	return Asset{
		ID:          1,
		Name:        "Delivery Truck",
		Cost:        25000,
		Salvage:     2500,
		LifePeriods: 48,
		Method:      MethodStraightLine,
		AcquiredAt:  time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildScheduleStraightLine(t *testing.T) {
	entries, err := BuildSchedule(truckAsset())
	require.NoError(t, err)
	require.Len(t, entries, 48)

	sum := int64(0)
	for _, e := range entries {
		require.InDelta(t, 468.75, e.Amount, 1e-9)
		sum += shared.Cents(e.Amount)
	}
	// periods sum to exactly cost - salvage
	require.Equal(t, shared.Cents(22500), sum)

	first := entries[0]
	require.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), first.ScheduleDate)
	require.Equal(t, EntryStatusPending, first.Status)

	last := entries[len(entries)-1]
	require.InDelta(t, 22500, last.Accumulated, 1e-9)
	require.InDelta(t, 2500, last.BookValue, 1e-9)
}

func TestBuildScheduleLastPeriodAbsorbsRemainder(t *testing.T) {
	asset := Asset{ID: 2, Cost: 1000, Salvage: 0, LifePeriods: 3,
		AcquiredAt: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)}

	entries, err := BuildSchedule(asset)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.InDelta(t, 333.33, entries[0].Amount, 1e-9)
	require.InDelta(t, 333.33, entries[1].Amount, 1e-9)
	require.InDelta(t, 333.34, entries[2].Amount, 1e-9)
	require.InDelta(t, 0, entries[2].BookValue, 1e-9)
}

func TestBuildScheduleBookValueMonotone(t *testing.T) {
	entries, err := BuildSchedule(truckAsset())
	require.NoError(t, err)

	previous := 25000.0
	for _, e := range entries {
		require.LessOrEqual(t, e.BookValue, previous)
		require.GreaterOrEqual(t, shared.Cents(e.BookValue), shared.Cents(2500))
		previous = e.BookValue
	}
}

func TestBuildScheduleRejectsInvalidFigures(t *testing.T) {
	bad := truckAsset()
	bad.LifePeriods = 0
	_, err := BuildSchedule(bad)
	require.ErrorIs(t, err, ErrInvalidAsset)

	bad = truckAsset()
	bad.Salvage = 30000
	_, err = BuildSchedule(bad)
	require.ErrorIs(t, err, ErrInvalidAsset)

	bad = truckAsset()
	bad.Salvage = -1
	_, err = BuildSchedule(bad)
	require.ErrorIs(t, err, ErrInvalidAsset)

	bad = truckAsset()
	bad.Method = "DOUBLE_DECLINING"
	_, err = BuildSchedule(bad)
	require.ErrorIs(t, err, ErrInvalidAsset)
}

func TestBuildScheduleZeroDepreciable(t *testing.T) {
	asset := truckAsset()
	asset.Salvage = asset.Cost

	entries, err := BuildSchedule(asset)
	require.NoError(t, err)
	require.Len(t, entries, 48)
	for _, e := range entries {
		require.InDelta(t, 0, e.Amount, 1e-9)
		require.InDelta(t, asset.Cost, e.BookValue, 1e-9)
	}
}
