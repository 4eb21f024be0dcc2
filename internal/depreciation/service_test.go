package depreciation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborerp/ledger-core/internal/ledger"
)

type memoryDepreciationRepo struct {
	mu      sync.Mutex
	assets  map[int64]Asset
	entries []ScheduleEntry
	nextID  int64
}

func newMemoryDepreciationRepo(assets ...Asset) *memoryDepreciationRepo {
	repo := &memoryDepreciationRepo{assets: make(map[int64]Asset)}
	for _, a := range assets {
		repo.assets[a.ID] = a
	}
	return repo
}

func (r *memoryDepreciationRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memoryDepreciationTx{repo: r})
}

type memoryDepreciationTx struct {
	repo *memoryDepreciationRepo
}

func (t *memoryDepreciationTx) GetAsset(ctx context.Context, assetID int64) (Asset, error) {
	a, ok := t.repo.assets[assetID]
	if !ok {
		return Asset{}, ErrAssetNotFound
	}
	return a, nil
}

func (t *memoryDepreciationTx) CountScheduleEntries(ctx context.Context, assetID int64) (int, error) {
	count := 0
	for _, e := range t.repo.entries {
		if e.AssetID == assetID {
			count++
		}
	}
	return count, nil
}

func (t *memoryDepreciationTx) InsertScheduleEntry(ctx context.Context, e ScheduleEntry) (ScheduleEntry, error) {
	t.repo.nextID++
	e.ID = t.repo.nextID
	t.repo.entries = append(t.repo.entries, e)
	return e, nil
}

func (t *memoryDepreciationTx) GetEntryForUpdate(ctx context.Context, assetID int64, date time.Time) (ScheduleEntry, error) {
	for _, e := range t.repo.entries {
		if e.AssetID == assetID && e.ScheduleDate.Equal(date) {
			return e, nil
		}
	}
	return ScheduleEntry{}, ErrScheduleEntryNotFound
}

func (t *memoryDepreciationTx) MarkPosted(ctx context.Context, entryID int64, voucherNo string) error {
	for idx := range t.repo.entries {
		if t.repo.entries[idx].ID != entryID {
			continue
		}
		if t.repo.entries[idx].Status != EntryStatusPending {
			return ErrAlreadyPosted
		}
		t.repo.entries[idx].Status = EntryStatusPosted
		t.repo.entries[idx].VoucherNo = voucherNo
		return nil
	}
	return ErrScheduleEntryNotFound
}

func (t *memoryDepreciationTx) ListSchedule(ctx context.Context, assetID int64) ([]ScheduleEntry, error) {
	var out []ScheduleEntry
	for _, e := range t.repo.entries {
		if e.AssetID == assetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memoryDepreciationTx) ListDuePending(ctx context.Context, asOf time.Time) ([]ScheduleEntry, error) {
	var out []ScheduleEntry
	for _, e := range t.repo.entries {
		if e.Status == EntryStatusPending && !e.ScheduleDate.After(asOf) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePosting struct {
	posted  []ledger.PostingInput
	postErr error
}

func (f *fakePosting) Post(ctx context.Context, input ledger.PostingInput) (ledger.Voucher, error) {
	if f.postErr != nil {
		return ledger.Voucher{}, f.postErr
	}
	for _, p := range f.posted {
		if p.VoucherNo == input.VoucherNo {
			return ledger.Voucher{}, fmt.Errorf("%w: %s", ledger.ErrDuplicateVoucher, input.VoucherNo)
		}
	}
	f.posted = append(f.posted, input)
	return ledger.Voucher{VoucherNo: input.VoucherNo}, nil
}

func testTruck() Asset {
	return Asset{
		ID:               1,
		Name:             "Delivery Truck",
		Cost:             25000,
		Salvage:          2500,
		LifePeriods:      48,
		Method:           MethodStraightLine,
		ExpenseAccountID: 52,
		AccumAccountID:   13,
		AcquiredAt:       time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerateSchedule(t *testing.T) {
	repo := newMemoryDepreciationRepo(testTruck())
	svc := NewService(repo, &fakePosting{}, nil)
	ctx := context.Background()

	entries, err := svc.GenerateSchedule(ctx, 1, 7)
	require.NoError(t, err)
	require.Len(t, entries, 48)
	for _, e := range entries {
		require.Equal(t, EntryStatusPending, e.Status)
	}

	_, err = svc.GenerateSchedule(ctx, 1, 7)
	require.ErrorIs(t, err, ErrScheduleExists)

	_, err = svc.GenerateSchedule(ctx, 99, 7)
	require.ErrorIs(t, err, ErrAssetNotFound)
}

func TestPostPeriod(t *testing.T) {
	repo := newMemoryDepreciationRepo(testTruck())
	posting := &fakePosting{}
	svc := NewService(repo, posting, nil)
	ctx := context.Background()

	entries, err := svc.GenerateSchedule(ctx, 1, 7)
	require.NoError(t, err)
	first := entries[0]

	voucherNo, err := svc.PostPeriod(ctx, 1, first.ScheduleDate, 7)
	require.NoError(t, err)
	require.Equal(t, "DEP-1-202602", voucherNo)

	require.Len(t, posting.posted, 1)
	input := posting.posted[0]
	require.Equal(t, ledger.VoucherTypeDepreciation, input.VoucherType)
	require.Len(t, input.Legs, 2)
	require.Equal(t, int64(52), input.Legs[0].AccountID)
	require.InDelta(t, first.Amount, input.Legs[0].Debit, 1e-9)
	require.Equal(t, int64(13), input.Legs[1].AccountID)
	require.InDelta(t, first.Amount, input.Legs[1].Credit, 1e-9)

	schedule, err := svc.ListSchedule(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, schedule[0].Status)
	require.Equal(t, voucherNo, schedule[0].VoucherNo)

	_, err = svc.PostPeriod(ctx, 1, first.ScheduleDate, 7)
	require.ErrorIs(t, err, ErrAlreadyPosted)

	_, err = svc.PostPeriod(ctx, 1, first.ScheduleDate.AddDate(10, 0, 0), 7)
	require.ErrorIs(t, err, ErrScheduleEntryNotFound)
}

func TestPostPeriodFailureLeavesPending(t *testing.T) {
	repo := newMemoryDepreciationRepo(testTruck())
	posting := &fakePosting{postErr: ledger.ErrInvalidPostingTarget}
	svc := NewService(repo, posting, nil)
	ctx := context.Background()

	entries, err := svc.GenerateSchedule(ctx, 1, 7)
	require.NoError(t, err)

	_, err = svc.PostPeriod(ctx, 1, entries[0].ScheduleDate, 7)
	require.ErrorIs(t, err, ledger.ErrInvalidPostingTarget)

	schedule, err := svc.ListSchedule(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, EntryStatusPending, schedule[0].Status)
	require.Empty(t, schedule[0].VoucherNo)
}

func TestPostPeriodCompletesAfterEarlierVoucherCommit(t *testing.T) {
	repo := newMemoryDepreciationRepo(testTruck())
	posting := &fakePosting{}
	svc := NewService(repo, posting, nil)
	ctx := context.Background()

	entries, err := svc.GenerateSchedule(ctx, 1, 7)
	require.NoError(t, err)
	first := entries[0]

	// the voucher from an attempt that died before linking the schedule entry
	_, err = posting.Post(ctx, ledger.PostingInput{
		VoucherType: ledger.VoucherTypeDepreciation,
		VoucherNo:   "DEP-1-202602",
		Date:        first.ScheduleDate,
		PostedBy:    7,
		Legs: []ledger.Leg{
			{AccountID: 52, Debit: first.Amount},
			{AccountID: 13, Credit: first.Amount},
		},
	})
	require.NoError(t, err)

	voucherNo, err := svc.PostPeriod(ctx, 1, first.ScheduleDate, 7)
	require.NoError(t, err)
	require.Equal(t, "DEP-1-202602", voucherNo)
	require.Len(t, posting.posted, 1)

	schedule, err := svc.ListSchedule(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, schedule[0].Status)
	require.Equal(t, voucherNo, schedule[0].VoucherNo)
}

func TestListDuePending(t *testing.T) {
	repo := newMemoryDepreciationRepo(testTruck())
	svc := NewService(repo, &fakePosting{}, nil)
	ctx := context.Background()

	entries, err := svc.GenerateSchedule(ctx, 1, 7)
	require.NoError(t, err)

	// three periods have fallen due by mid April
	due, err := svc.ListDuePending(ctx, time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 3)

	_, err = svc.PostPeriod(ctx, 1, entries[0].ScheduleDate, 7)
	require.NoError(t, err)

	due, err = svc.ListDuePending(ctx, time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 2)
}
