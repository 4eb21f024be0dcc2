package depreciation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harborerp/ledger-core/internal/ledger"
	"github.com/harborerp/ledger-core/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes scheduler persistence inside one transaction.
type TxRepository interface {
	GetAsset(ctx context.Context, assetID int64) (Asset, error)
	CountScheduleEntries(ctx context.Context, assetID int64) (int, error)
	InsertScheduleEntry(ctx context.Context, e ScheduleEntry) (ScheduleEntry, error)
	GetEntryForUpdate(ctx context.Context, assetID int64, date time.Time) (ScheduleEntry, error)
	MarkPosted(ctx context.Context, entryID int64, voucherNo string) error
	ListSchedule(ctx context.Context, assetID int64) ([]ScheduleEntry, error)
	ListDuePending(ctx context.Context, asOf time.Time) ([]ScheduleEntry, error)
}

// PostingPort is the posting engine boundary.
type PostingPort interface {
	Post(ctx context.Context, input ledger.PostingInput) (ledger.Voucher, error)
}

// AuditPort records scheduler activity.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service generates depreciation schedules and posts individual periods on
// demand. It never auto-posts on a timer; the caller picks the pending date.
type Service struct {
	repo    RepositoryPort
	posting PostingPort
	audit   AuditPort
	now     func() time.Time
}

// NewService constructs the scheduler.
func NewService(repo RepositoryPort, posting PostingPort, audit AuditPort) *Service {
	return &Service{repo: repo, posting: posting, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GenerateSchedule builds and stores the full period plan for an asset,
// all periods PENDING. Fails if a schedule already exists.
func (s *Service) GenerateSchedule(ctx context.Context, assetID int64, actorID int64) ([]ScheduleEntry, error) {
	var entries []ScheduleEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		asset, err := tx.GetAsset(ctx, assetID)
		if err != nil {
			return err
		}
		existing, err := tx.CountScheduleEntries(ctx, assetID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: asset %d", ErrScheduleExists, assetID)
		}
		planned, err := BuildSchedule(asset)
		if err != nil {
			return err
		}
		for _, entry := range planned {
			inserted, err := tx.InsertScheduleEntry(ctx, entry)
			if err != nil {
				return err
			}
			entries = append(entries, inserted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "depreciation.generate",
			Entity:   "asset",
			EntityID: fmt.Sprintf("%d", assetID),
			Meta:     map[string]any{"periods": len(entries)},
			At:       s.now(),
		})
	}
	return entries, nil
}

// PostPeriod posts one pending period: debit depreciation expense, credit
// accumulated depreciation, then links the schedule entry to the voucher.
// The posting engine runs in its own transaction between two scheduler
// units of work; the voucher number is derived from asset and period, so a
// retry after a half-done attempt meets its own voucher as a duplicate and
// only has to finish the link.
func (s *Service) PostPeriod(ctx context.Context, assetID int64, date time.Time, actorID int64) (string, error) {
	var asset Asset
	var entry ScheduleEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		asset, err = tx.GetAsset(ctx, assetID)
		if err != nil {
			return err
		}
		entry, err = tx.GetEntryForUpdate(ctx, assetID, date)
		if err != nil {
			return err
		}
		if entry.Status == EntryStatusPosted {
			return fmt.Errorf("%w: asset %d period %s", ErrAlreadyPosted, assetID, date.Format("2006-01-02"))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	voucherNo := fmt.Sprintf("DEP-%d-%s", assetID, entry.ScheduleDate.Format("200601"))
	remark := fmt.Sprintf("Depreciation %s for %s", entry.ScheduleDate.Format("2006-01"), asset.Name)
	_, err = s.posting.Post(ctx, ledger.PostingInput{
		VoucherType: ledger.VoucherTypeDepreciation,
		VoucherNo:   voucherNo,
		Date:        entry.ScheduleDate,
		PostedBy:    actorID,
		Legs: []ledger.Leg{
			{AccountID: asset.ExpenseAccountID, Debit: entry.Amount, Remark: remark},
			{AccountID: asset.AccumAccountID, Credit: entry.Amount, Remark: remark},
		},
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateVoucher) {
		return "", err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.MarkPosted(ctx, entry.ID, voucherNo)
	})
	if err != nil {
		return "", err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "depreciation.post",
			Entity:   "asset",
			EntityID: fmt.Sprintf("%d", assetID),
			Meta:     map[string]any{"voucher_no": voucherNo, "date": date.Format("2006-01-02")},
			At:       s.now(),
		})
	}
	return voucherNo, nil
}

// ListSchedule returns the asset's full period plan.
func (s *Service) ListSchedule(ctx context.Context, assetID int64) ([]ScheduleEntry, error) {
	var entries []ScheduleEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetAsset(ctx, assetID); err != nil {
			return err
		}
		var err error
		entries, err = tx.ListSchedule(ctx, assetID)
		return err
	})
	return entries, err
}

// ListDuePending reports pending periods whose date has passed. Posting
// them remains an explicit caller decision.
func (s *Service) ListDuePending(ctx context.Context, asOf time.Time) ([]ScheduleEntry, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	var entries []ScheduleEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = tx.ListDuePending(ctx, asOf)
		return err
	})
	return entries, err
}
