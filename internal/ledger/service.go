package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/harborerp/ledger-core/internal/coa"
	"github.com/harborerp/ledger-core/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes ledger writes plus directory access inside one
// transaction, so entry inserts and balance updates commit together.
type TxRepository interface {
	Accounts() coa.TxRepository
	InsertEntry(ctx context.Context, e Entry) (Entry, error)
	ListVoucher(ctx context.Context, voucherNo string) ([]Entry, error)
	VoucherExists(ctx context.Context, voucherNo string) (bool, error)
	MarkVoucherCancelled(ctx context.Context, voucherNo string) error
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// EventsPort publishes posted vouchers to downstream consumers.
type EventsPort interface {
	PublishVoucherPosted(ctx context.Context, event VoucherPostedEvent) error
}

// VoucherPostedEvent is emitted after a voucher commits.
type VoucherPostedEvent struct {
	VoucherNo   string      `json:"voucher_no"`
	VoucherType VoucherType `json:"voucher_type"`
	TotalDebit  float64     `json:"total_debit"`
	PostedBy    int64       `json:"posted_by"`
	PostedAt    time.Time   `json:"posted_at"`
}

// Service is the single entry point for all ledger mutation. Every other
// module computes proposed legs and hands them here.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	events EventsPort
	now    func() time.Time
}

// NewService constructs the posting engine.
func NewService(repo RepositoryPort, audit AuditPort, events EventsPort) *Service {
	return &Service{repo: repo, audit: audit, events: events, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post validates and writes one balanced voucher: one ledger row per leg and
// a rolled-up balance delta per target account, all inside one transaction.
func (s *Service) Post(ctx context.Context, input PostingInput) (Voucher, error) {
	if err := input.Validate(); err != nil {
		return Voucher{}, err
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	var voucher Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.VoucherExists(ctx, input.VoucherNo)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrDuplicateVoucher, input.VoucherNo)
		}
		accounts := tx.Accounts()
		targets := make([]coa.Account, len(input.Legs))
		for idx, leg := range input.Legs {
			account, err := accounts.GetByID(ctx, leg.AccountID)
			if err != nil {
				return err
			}
			if account.IsGroup || !account.IsActive {
				return fmt.Errorf("%w: account %s", ErrInvalidPostingTarget, account.Code)
			}
			targets[idx] = account
		}
		entries := make([]Entry, 0, len(input.Legs))
		for _, leg := range input.Legs {
			inserted, err := tx.InsertEntry(ctx, Entry{
				PostingDate: date,
				VoucherType: input.VoucherType,
				VoucherNo:   input.VoucherNo,
				AccountID:   leg.AccountID,
				Debit:       leg.Debit,
				Credit:      leg.Credit,
				Remark:      leg.Remark,
				CreatedBy:   input.PostedBy,
			})
			if err != nil {
				return err
			}
			entries = append(entries, inserted)
		}
		for idx, leg := range input.Legs {
			delta := balanceDelta(targets[idx].Nature, leg)
			if err := coa.ApplyDelta(ctx, accounts, leg.AccountID, delta); err != nil {
				return err
			}
		}
		voucher = Voucher{VoucherNo: input.VoucherNo, Entries: entries}
		return nil
	})
	if err != nil {
		if isSerializationFailure(err) {
			return Voucher{}, fmt.Errorf("%w: voucher %s", ErrConcurrencyConflict, input.VoucherNo)
		}
		return Voucher{}, err
	}
	s.afterPost(ctx, input, voucher)
	return voucher, nil
}

// Reverse posts an offsetting voucher and flags the original legs cancelled.
// Both sets stay on file for the audit trail.
func (s *Service) Reverse(ctx context.Context, voucherNo string, actorID int64) (Voucher, error) {
	if voucherNo == "" {
		return Voucher{}, fmt.Errorf("%w: empty voucher number", ErrVoucherNotFound)
	}
	reversalNo := voucherNo + "-REV"
	var voucher Voucher
	var voucherType VoucherType
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		originals, err := tx.ListVoucher(ctx, voucherNo)
		if err != nil {
			return err
		}
		if len(originals) == 0 {
			return fmt.Errorf("%w: %s", ErrVoucherNotFound, voucherNo)
		}
		if originals[0].Cancelled {
			return fmt.Errorf("%w: %s", ErrAlreadyCancelled, voucherNo)
		}
		voucherType = originals[0].VoucherType
		accounts := tx.Accounts()
		entries := make([]Entry, 0, len(originals))
		for _, original := range originals {
			inserted, err := tx.InsertEntry(ctx, Entry{
				PostingDate: s.now(),
				VoucherType: original.VoucherType,
				VoucherNo:   reversalNo,
				AccountID:   original.AccountID,
				Debit:       original.Credit,
				Credit:      original.Debit,
				Remark:      fmt.Sprintf("Reversal of %s", voucherNo),
				CreatedBy:   actorID,
			})
			if err != nil {
				return err
			}
			entries = append(entries, inserted)
		}
		for _, original := range originals {
			account, err := accounts.GetByID(ctx, original.AccountID)
			if err != nil {
				return err
			}
			delta := balanceDelta(account.Nature, Leg{AccountID: original.AccountID, Debit: original.Credit, Credit: original.Debit})
			if err := coa.ApplyDelta(ctx, accounts, original.AccountID, delta); err != nil {
				return err
			}
		}
		if err := tx.MarkVoucherCancelled(ctx, voucherNo); err != nil {
			return err
		}
		voucher = Voucher{VoucherNo: reversalNo, Entries: entries}
		return nil
	})
	if err != nil {
		if isSerializationFailure(err) {
			return Voucher{}, fmt.Errorf("%w: voucher %s", ErrConcurrencyConflict, voucherNo)
		}
		return Voucher{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "ledger.reverse",
			Entity:   "voucher",
			EntityID: voucherNo,
			Meta:     map[string]any{"reversal_no": reversalNo, "voucher_type": string(voucherType)},
			At:       s.now(),
		})
	}
	if s.events != nil {
		var totalDebit float64
		for _, e := range voucher.Entries {
			totalDebit += e.Debit
		}
		// a reversal is a posted voucher too; downstream caches must drop
		_ = s.events.PublishVoucherPosted(ctx, VoucherPostedEvent{
			VoucherNo:   reversalNo,
			VoucherType: voucherType,
			TotalDebit:  totalDebit,
			PostedBy:    actorID,
			PostedAt:    s.now(),
		})
	}
	return voucher, nil
}

// GetVoucher loads all legs for one voucher number.
func (s *Service) GetVoucher(ctx context.Context, voucherNo string) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = tx.ListVoucher(ctx, voucherNo)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("%w: %s", ErrVoucherNotFound, voucherNo)
		}
		return nil
	})
	return entries, err
}

func (s *Service) afterPost(ctx context.Context, input PostingInput, voucher Voucher) {
	var totalDebit float64
	for _, leg := range input.Legs {
		totalDebit += leg.Debit
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.PostedBy,
			Action:   "ledger.post",
			Entity:   "voucher",
			EntityID: voucher.VoucherNo,
			Meta:     map[string]any{"voucher_type": string(input.VoucherType), "legs": len(input.Legs)},
			At:       s.now(),
		})
	}
	if s.events != nil {
		_ = s.events.PublishVoucherPosted(ctx, VoucherPostedEvent{
			VoucherNo:   voucher.VoucherNo,
			VoucherType: input.VoucherType,
			TotalDebit:  totalDebit,
			PostedBy:    input.PostedBy,
			PostedAt:    s.now(),
		})
	}
}

// balanceDelta converts a leg into the signed change of the account's cached
// balance, expressed in the account's nature direction.
func balanceDelta(nature coa.AccountNature, leg Leg) float64 {
	if nature == coa.NatureDebit {
		return leg.Debit - leg.Credit
	}
	return leg.Credit - leg.Debit
}
