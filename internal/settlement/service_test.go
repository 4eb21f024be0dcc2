package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborerp/ledger-core/internal/shared"
)

type memorySettlementRepo struct {
	mu          sync.Mutex
	invoices    []OutstandingInvoice
	allocations []Allocation
	nextID      int64
}

func newMemorySettlementRepo(invoices ...OutstandingInvoice) *memorySettlementRepo {
	return &memorySettlementRepo{invoices: invoices}
}

func (r *memorySettlementRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memorySettlementTx{repo: r})
}

type memorySettlementTx struct {
	repo *memorySettlementRepo
}

func (t *memorySettlementTx) remaining(invoiceID int64) float64 {
	for _, inv := range t.repo.invoices {
		if inv.ID != invoiceID {
			continue
		}
		allocated := 0.0
		for _, a := range t.repo.allocations {
			if a.InvoiceID == invoiceID {
				allocated += a.Amount
			}
		}
		return shared.FromCents(shared.Cents(inv.Total) - shared.Cents(allocated))
	}
	return 0
}

func (t *memorySettlementTx) ListOutstandingForUpdate(ctx context.Context, partyID int64) ([]OutstandingInvoice, error) {
	var out []OutstandingInvoice
	for _, inv := range t.repo.invoices {
		if inv.PartyID != partyID {
			continue
		}
		remaining := t.remaining(inv.ID)
		if shared.Cents(remaining) <= 0 {
			continue
		}
		inv.Remaining = remaining
		out = append(out, inv)
	}
	return out, nil
}

func (t *memorySettlementTx) ListByPayment(ctx context.Context, paymentID string) ([]Allocation, error) {
	var out []Allocation
	for _, a := range t.repo.allocations {
		if a.PaymentID == paymentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *memorySettlementTx) Insert(ctx context.Context, a Allocation) (Allocation, error) {
	if shared.Cents(t.remaining(a.InvoiceID)) < shared.Cents(a.Amount) {
		return Allocation{}, ErrInsufficientOutstanding
	}
	t.repo.nextID++
	a.ID = t.repo.nextID
	t.repo.allocations = append(t.repo.allocations, a)
	return a, nil
}

func (t *memorySettlementTx) DeleteByPayment(ctx context.Context, paymentID string) (int64, error) {
	var kept []Allocation
	var removed int64
	for _, a := range t.repo.allocations {
		if a.PaymentID == paymentID {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	t.repo.allocations = kept
	return removed, nil
}

func day(d int) time.Time {
	return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC)
}

func threeInvoices() []OutstandingInvoice {
	return []OutstandingInvoice{
		{ID: 1, PartyID: 1, InvoiceDate: day(10), Seq: 1, Total: 1000},
		{ID: 2, PartyID: 1, InvoiceDate: day(15), Seq: 2, Total: 1500},
		{ID: 3, PartyID: 1, InvoiceDate: day(19), Seq: 3, Total: 800},
	}
}

func TestAllocateOldestFirst(t *testing.T) {
	repo := newMemorySettlementRepo(threeInvoices()...)
	svc := NewService(repo, nil)
	ctx := context.Background()

	result, err := svc.Allocate(ctx, "PAY-1", 1, 2200, 7)
	require.NoError(t, err)
	require.Len(t, result.Allocations, 2)
	require.Equal(t, int64(1), result.Allocations[0].InvoiceID)
	require.InDelta(t, 1000, result.Allocations[0].Amount, 1e-9)
	require.Equal(t, int64(2), result.Allocations[1].InvoiceID)
	require.InDelta(t, 1200, result.Allocations[1].Amount, 1e-9)
	require.InDelta(t, 0, result.UnallocatedAmount, 1e-9)

	// the newest invoice is untouched
	tx := &memorySettlementTx{repo: repo}
	require.InDelta(t, 800, tx.remaining(3), 1e-9)

	// a later payment settles the remainder of invoice 2 before touching 3
	second, err := svc.Allocate(ctx, "PAY-2", 1, 300, 7)
	require.NoError(t, err)
	require.Len(t, second.Allocations, 1)
	require.Equal(t, int64(2), second.Allocations[0].InvoiceID)
	require.InDelta(t, 300, second.Allocations[0].Amount, 1e-9)
	require.InDelta(t, 0, tx.remaining(2), 1e-9)
}

func TestAllocateOverpaymentStaysUnallocated(t *testing.T) {
	repo := newMemorySettlementRepo(threeInvoices()...)
	svc := NewService(repo, nil)

	result, err := svc.Allocate(context.Background(), "PAY-1", 1, 4000, 7)
	require.NoError(t, err)
	require.Len(t, result.Allocations, 3)
	require.InDelta(t, 700, result.UnallocatedAmount, 1e-9)
}

func TestAllocateNoInvoices(t *testing.T) {
	repo := newMemorySettlementRepo()
	svc := NewService(repo, nil)

	result, err := svc.Allocate(context.Background(), "PAY-1", 1, 500, 7)
	require.NoError(t, err)
	require.Empty(t, result.Allocations)
	require.InDelta(t, 500, result.UnallocatedAmount, 1e-9)
}

func TestAllocateIdempotencyGuard(t *testing.T) {
	repo := newMemorySettlementRepo(threeInvoices()...)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, "PAY-1", 1, 100, 7)
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, "PAY-1", 1, 100, 7)
	require.ErrorIs(t, err, ErrAlreadyAllocated)
}

func TestAllocateRejectsNonPositiveAmount(t *testing.T) {
	repo := newMemorySettlementRepo(threeInvoices()...)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, "PAY-1", 1, 0, 7)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Allocate(ctx, "PAY-1", 1, -10, 7)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAllocateTieBreaksOnSeq(t *testing.T) {
	repo := newMemorySettlementRepo(
		OutstandingInvoice{ID: 2, PartyID: 1, InvoiceDate: day(5), Seq: 2, Total: 400},
		OutstandingInvoice{ID: 1, PartyID: 1, InvoiceDate: day(5), Seq: 1, Total: 400},
	)
	svc := NewService(repo, nil)

	result, err := svc.Allocate(context.Background(), "PAY-1", 1, 500, 7)
	require.NoError(t, err)
	require.Len(t, result.Allocations, 2)
	require.Equal(t, int64(1), result.Allocations[0].InvoiceID)
	require.InDelta(t, 400, result.Allocations[0].Amount, 1e-9)
	require.Equal(t, int64(2), result.Allocations[1].InvoiceID)
	require.InDelta(t, 100, result.Allocations[1].Amount, 1e-9)
}

func TestUnallocateRestoresOutstanding(t *testing.T) {
	repo := newMemorySettlementRepo(threeInvoices()...)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, "PAY-1", 1, 2200, 7)
	require.NoError(t, err)

	require.NoError(t, svc.Unallocate(ctx, "PAY-1", 7))

	tx := &memorySettlementTx{repo: repo}
	require.InDelta(t, 1000, tx.remaining(1), 1e-9)
	require.InDelta(t, 1500, tx.remaining(2), 1e-9)

	// the payment can be allocated again
	result, err := svc.Allocate(ctx, "PAY-1", 1, 2200, 7)
	require.NoError(t, err)
	require.Len(t, result.Allocations, 2)

	require.ErrorIs(t, svc.Unallocate(ctx, "PAY-9", 7), ErrNotAllocated)
}

func TestAllocationsNeverExceedInvoiceTotals(t *testing.T) {
	repo := newMemorySettlementRepo(threeInvoices()...)
	svc := NewService(repo, nil)
	ctx := context.Background()

	payments := []struct {
		id     string
		amount float64
	}{
		{"PAY-1", 700.33}, {"PAY-2", 1299.67}, {"PAY-3", 555.55}, {"PAY-4", 2000},
	}
	for _, p := range payments {
		_, err := svc.Allocate(ctx, p.id, 1, p.amount, 7)
		require.NoError(t, err)
	}

	tx := &memorySettlementTx{repo: repo}
	for _, inv := range threeInvoices() {
		require.GreaterOrEqual(t, tx.remaining(inv.ID), 0.0)
	}
	totalAllocated := 0.0
	for _, a := range repo.allocations {
		totalAllocated += a.Amount
	}
	require.Equal(t, shared.Cents(1000+1500+800), shared.Cents(totalAllocated))
}
