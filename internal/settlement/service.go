package settlement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/harborerp/ledger-core/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes settlement persistence inside one transaction.
// ListOutstandingForUpdate locks the party's open invoices so concurrent
// payments cannot both consume the same remaining amount.
type TxRepository interface {
	ListOutstandingForUpdate(ctx context.Context, partyID int64) ([]OutstandingInvoice, error)
	ListByPayment(ctx context.Context, paymentID string) ([]Allocation, error)
	Insert(ctx context.Context, a Allocation) (Allocation, error)
	DeleteByPayment(ctx context.Context, paymentID string) (int64, error)
}

// AuditPort records allocation activity.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service apportions payments across outstanding invoices, oldest first.
// It never posts to the general ledger itself; the payment's own debit and
// credit are a separate posting owned by the calling layer.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the allocator.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Allocate walks the party's outstanding invoices in FIFO order and assigns
// min(remainingPayment, invoice.Remaining) to each until the payment is
// consumed. Re-running for the same payment id fails with ErrAlreadyAllocated.
func (s *Service) Allocate(ctx context.Context, paymentID string, partyID int64, amount float64, actorID int64) (Result, error) {
	if paymentID == "" {
		return Result{}, fmt.Errorf("settlement: payment id required")
	}
	if shared.Cents(amount) <= 0 {
		return Result{}, fmt.Errorf("%w: %.2f", ErrInvalidAmount, amount)
	}
	var result Result
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.ListByPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyAllocated, paymentID)
		}
		invoices, err := tx.ListOutstandingForUpdate(ctx, partyID)
		if err != nil {
			return err
		}
		sortFIFO(invoices)
		remaining := amount
		when := s.now()
		for _, invoice := range invoices {
			if shared.Cents(remaining) == 0 {
				break
			}
			if shared.Cents(invoice.Remaining) <= 0 {
				continue
			}
			portion := invoice.Remaining
			if remaining < portion {
				portion = remaining
			}
			inserted, err := tx.Insert(ctx, Allocation{
				PaymentID:   paymentID,
				InvoiceID:   invoice.ID,
				Amount:      portion,
				AllocatedAt: when,
			})
			if err != nil {
				return err
			}
			result.Allocations = append(result.Allocations, inserted)
			remaining = shared.FromCents(shared.Cents(remaining) - shared.Cents(portion))
		}
		result.UnallocatedAmount = remaining
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "settlement.allocate",
			Entity:   "payment",
			EntityID: paymentID,
			Meta: map[string]any{
				"party_id":    partyID,
				"amount":      amount,
				"allocations": len(result.Allocations),
				"unallocated": result.UnallocatedAmount,
			},
			At: s.now(),
		})
	}
	return result, nil
}

// Unallocate removes a payment's allocations and restores the invoices'
// outstanding amounts, making the payment allocatable again.
func (s *Service) Unallocate(ctx context.Context, paymentID string, actorID int64) error {
	if paymentID == "" {
		return fmt.Errorf("settlement: payment id required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		removed, err := tx.DeleteByPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if removed == 0 {
			return fmt.Errorf("%w: %s", ErrNotAllocated, paymentID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "settlement.unallocate",
			Entity:   "payment",
			EntityID: paymentID,
			At:       s.now(),
		})
	}
	return nil
}

// ListByPayment returns a payment's allocation rows.
func (s *Service) ListByPayment(ctx context.Context, paymentID string) ([]Allocation, error) {
	var allocations []Allocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		allocations, err = tx.ListByPayment(ctx, paymentID)
		return err
	})
	return allocations, err
}

// sortFIFO orders by invoice date ascending, breaking date ties on the
// insertion sequence so identical inputs always allocate identically.
func sortFIFO(invoices []OutstandingInvoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		if invoices[i].InvoiceDate.Equal(invoices[j].InvoiceDate) {
			return invoices[i].Seq < invoices[j].Seq
		}
		return invoices[i].InvoiceDate.Before(invoices[j].InvoiceDate)
	})
}
