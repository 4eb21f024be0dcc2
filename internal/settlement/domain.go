package settlement

import (
	"errors"
	"time"
)

// OutstandingInvoice is supplied by the party directory: one open invoice
// with the amount still owed. Seq preserves insertion order so allocation
// ties on the same date resolve deterministically.
type OutstandingInvoice struct {
	ID          int64
	PartyID     int64
	InvoiceDate time.Time
	Seq         int64
	Total       float64
	Remaining   float64
}

// Allocation links one payment to one invoice for a partial or full amount.
type Allocation struct {
	ID          int64
	PaymentID   string
	InvoiceID   int64
	Amount      float64
	AllocatedAt time.Time
}

// Result reports how a payment was apportioned. Anything left after all
// invoices are exhausted stays on account rather than being discarded.
type Result struct {
	Allocations       []Allocation
	UnallocatedAmount float64
}

var (
	// ErrAlreadyAllocated indicates the payment was allocated before.
	ErrAlreadyAllocated = errors.New("settlement: payment already allocated")
	// ErrNotAllocated indicates there is nothing to unallocate.
	ErrNotAllocated = errors.New("settlement: payment has no allocations")
	// ErrInsufficientOutstanding guards the invariant that allocations never
	// exceed an invoice's remaining amount, even under concurrent payments.
	ErrInsufficientOutstanding = errors.New("settlement: allocation exceeds outstanding amount")
	// ErrInvalidAmount indicates a non-positive payment amount.
	ErrInvalidAmount = errors.New("settlement: amount must be positive")
)
