package depreciation

import (
	"errors"
	"time"
)

// Method enumerates supported depreciation methods.
type Method string

const (
	// MethodStraightLine spreads (cost - salvage) evenly over the life.
	MethodStraightLine Method = "STRAIGHT_LINE"
)

// EntryStatus enumerates schedule entry states.
type EntryStatus string

const (
	EntryStatusPending EntryStatus = "PENDING"
	EntryStatusPosted  EntryStatus = "POSTED"
)

// Asset holds the figures the scheduler needs for one fixed asset.
// Master data beyond that stays with the asset register.
type Asset struct {
	ID               int64
	Name             string
	Cost             float64
	Salvage          float64
	LifePeriods      int
	Method           Method
	ExpenseAccountID int64
	AccumAccountID   int64
	AcquiredAt       time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ScheduleEntry is one planned or posted depreciation period. The full
// schedule is generated once; periods flip to POSTED only through the
// posting engine.
type ScheduleEntry struct {
	ID           int64
	AssetID      int64
	ScheduleDate time.Time
	Amount       float64
	Accumulated  float64
	BookValue    float64
	Status       EntryStatus
	VoucherNo    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrAssetNotFound indicates a missing asset.
	ErrAssetNotFound = errors.New("depreciation: asset not found")
	// ErrScheduleEntryNotFound indicates no pending entry for the date.
	ErrScheduleEntryNotFound = errors.New("depreciation: schedule entry not found")
	// ErrAlreadyPosted indicates the period was posted before.
	ErrAlreadyPosted = errors.New("depreciation: period already posted")
	// ErrScheduleExists blocks regenerating an existing schedule.
	ErrScheduleExists = errors.New("depreciation: schedule already generated")
	// ErrInvalidAsset indicates figures a schedule cannot be built from.
	ErrInvalidAsset = errors.New("depreciation: invalid asset figures")
)
