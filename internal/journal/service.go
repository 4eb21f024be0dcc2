package journal

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

// TxRepository exposes journal persistence inside one transaction.
type TxRepository interface {
	Insert(ctx context.Context, e Entry) (Entry, error)
	GetForUpdate(ctx context.Context, id int64) (Entry, error)
	UpdateStatus(ctx context.Context, id int64, status Status, voucherNo, reason string) error
	UpdateTotals(ctx context.Context, id int64, debit, credit float64) error
	List(ctx context.Context) ([]Entry, error)
}

// PostingPort is the posting engine boundary; the workflow never writes
// ledger rows itself.
type PostingPort interface {
	Post(ctx context.Context, input ledger.PostingInput) (ledger.Voucher, error)
	Reverse(ctx context.Context, voucherNo string, actorID int64) (ledger.Voucher, error)
}

// AuditPort records workflow transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the draft -> submitted -> posted/rejected state machine.
type Service struct {
	repo    RepositoryPort
	posting PostingPort
	audit   AuditPort
	now     func() time.Time
}

// NewService constructs the workflow service.
func NewService(repo RepositoryPort, posting PostingPort, audit AuditPort) *Service {
	return &Service{repo: repo, posting: posting, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create stores a new entry in DRAFT. Balance is not enforced yet; Submit
// recomputes and validates totals.
func (s *Service) Create(ctx context.Context, input CreateInput) (Entry, error) {
	if err := input.Validate(); err != nil {
		return Entry{}, err
	}
	entryType := input.Type
	if entryType == "" {
		entryType = EntryTypeManual
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	lines := make([]Line, 0, len(input.Lines))
	for _, line := range input.Lines {
		lines = append(lines, Line{AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit, Remark: line.Remark})
	}
	debit, credit := Totals(lines)
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.Insert(ctx, Entry{
			Date:        date,
			Description: input.Description,
			Type:        entryType,
			Status:      StatusDraft,
			TotalDebit:  debit,
			TotalCredit: credit,
			CreatedBy:   input.CreatedBy,
			Lines:       lines,
		})
		if err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, input.CreatedBy, "journal.create", entry.ID, nil)
	return entry, nil
}

// Submit recomputes totals from lines and moves DRAFT to SUBMITTED. An
// unbalanced entry fails and stays DRAFT.
func (s *Service) Submit(ctx context.Context, id, actorID int64) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return fmt.Errorf("%w: %s -> SUBMITTED", ErrInvalidStatus, current.Status)
		}
		debit, credit := Totals(current.Lines)
		if !shared.SameAmount(debit, credit) {
			return fmt.Errorf("%w: entry %d debit %.2f credit %.2f", ErrUnbalancedEntry, id, debit, credit)
		}
		if err := tx.UpdateTotals(ctx, id, debit, credit); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, StatusSubmitted, "", ""); err != nil {
			return err
		}
		current.Status = StatusSubmitted
		current.TotalDebit = debit
		current.TotalCredit = credit
		entry = current
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, actorID, "journal.submit", id, nil)
	return entry, nil
}

// Approve posts a SUBMITTED entry through the posting engine. On posting
// failure the entry stays SUBMITTED and the engine's error passes through
// unchanged.
//
// The posting engine opens its own transaction, so it runs between two
// workflow units of work rather than inside one: check status, post, then
// record POSTED. The voucher number is derived from the entry number, so a
// retry after a half-done approval meets its own voucher as a duplicate and
// only has to finish the status transition.
func (s *Service) Approve(ctx context.Context, id, actorID int64) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusSubmitted {
			return fmt.Errorf("%w: %s -> POSTED", ErrInvalidStatus, current.Status)
		}
		entry = current
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	voucherNo := fmt.Sprintf("JE-%d", entry.Number)
	legs := make([]ledger.Leg, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		legs = append(legs, ledger.Leg{AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit, Remark: line.Remark})
	}
	if _, err := s.posting.Post(ctx, ledger.PostingInput{
		VoucherType: ledger.VoucherTypeJournal,
		VoucherNo:   voucherNo,
		Date:        entry.Date,
		PostedBy:    actorID,
		Legs:        legs,
	}); err != nil && !errors.Is(err, ledger.ErrDuplicateVoucher) {
		return Entry{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusPosted {
			entry = current
			return nil
		}
		if current.Status != StatusSubmitted {
			return fmt.Errorf("%w: %s -> POSTED", ErrInvalidStatus, current.Status)
		}
		if err := tx.UpdateStatus(ctx, id, StatusPosted, voucherNo, ""); err != nil {
			return err
		}
		current.Status = StatusPosted
		current.VoucherNo = voucherNo
		entry = current
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, actorID, "journal.approve", id, map[string]any{"voucher_no": entry.VoucherNo})
	return entry, nil
}

// Reject declines a DRAFT or SUBMITTED entry. No ledger effect.
func (s *Service) Reject(ctx context.Context, id, actorID int64, reason string) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft && current.Status != StatusSubmitted {
			return fmt.Errorf("%w: %s -> REJECTED", ErrInvalidStatus, current.Status)
		}
		if err := tx.UpdateStatus(ctx, id, StatusRejected, "", reason); err != nil {
			return err
		}
		current.Status = StatusRejected
		current.RejectedFor = reason
		entry = current
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, actorID, "journal.reject", id, map[string]any{"reason": reason})
	return entry, nil
}

// Cancel undoes a POSTED entry by reversing its voucher. The original and
// the reversal both stay on file. Like Approve, the reversal runs between
// two workflow units of work; a voucher already reversed by a half-done
// earlier attempt counts as done and the status transition completes.
func (s *Service) Cancel(ctx context.Context, id, actorID int64) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusPosted {
			return fmt.Errorf("%w: %s -> CANCELLED", ErrInvalidStatus, current.Status)
		}
		entry = current
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	if _, err := s.posting.Reverse(ctx, entry.VoucherNo, actorID); err != nil && !errors.Is(err, ledger.ErrAlreadyCancelled) {
		return Entry{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusCancelled {
			entry = current
			return nil
		}
		if current.Status != StatusPosted {
			return fmt.Errorf("%w: %s -> CANCELLED", ErrInvalidStatus, current.Status)
		}
		if err := tx.UpdateStatus(ctx, id, StatusCancelled, current.VoucherNo, ""); err != nil {
			return err
		}
		current.Status = StatusCancelled
		entry = current
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, actorID, "journal.cancel", id, map[string]any{"voucher_no": entry.VoucherNo})
	return entry, nil
}

// Get loads one journal entry with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.GetForUpdate(ctx, id)
		return err
	})
	return entry, err
}

// List returns all journal entries.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = tx.List(ctx)
		return err
	})
	return entries, err
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}
