package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/harborerp/ledger-core/internal/shared"
)

// VoucherType groups ledger legs by the business event that produced them.
type VoucherType string

const (
	VoucherTypeJournal      VoucherType = "JOURNAL"
	VoucherTypeSalesInvoice VoucherType = "SALES_INVOICE"
	VoucherTypePayment      VoucherType = "PAYMENT"
	VoucherTypeReceipt      VoucherType = "RECEIPT"
	VoucherTypeDepreciation VoucherType = "DEPRECIATION"
)

// Entry is one immutable general ledger leg: one row per account per side of
// a transaction. Reversal inserts offsetting rows and flags the originals
// cancelled; rows are never edited or deleted.
type Entry struct {
	ID          int64
	PostingDate time.Time
	VoucherType VoucherType
	VoucherNo   string
	AccountID   int64
	Debit       float64
	Credit      float64
	Remark      string
	Cancelled   bool
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Leg describes one proposed debit or credit before posting.
type Leg struct {
	AccountID int64
	Debit     float64
	Credit    float64
	Remark    string
}

// PostingInput groups fields required to post one voucher.
type PostingInput struct {
	VoucherType VoucherType
	VoucherNo   string
	Date        time.Time
	PostedBy    int64
	Legs        []Leg
}

// Voucher is the result of a successful posting.
type Voucher struct {
	VoucherNo string
	Entries   []Entry
}

var (
	// ErrUnbalancedPosting indicates sum(debit) != sum(credit).
	ErrUnbalancedPosting = errors.New("ledger: posting does not balance")
	// ErrInvalidPostingTarget indicates a group or inactive account leg.
	ErrInvalidPostingTarget = errors.New("ledger: invalid posting target")
	// ErrVoucherNotFound indicates no legs exist for the voucher number.
	ErrVoucherNotFound = errors.New("ledger: voucher not found")
	// ErrAlreadyCancelled indicates the voucher was reversed before.
	ErrAlreadyCancelled = errors.New("ledger: voucher already cancelled")
	// ErrDuplicateVoucher indicates the voucher number is already posted.
	ErrDuplicateVoucher = errors.New("ledger: duplicate voucher number")
	// ErrConcurrencyConflict signals a commit-time conflict; callers retry
	// the whole logical operation.
	ErrConcurrencyConflict = errors.New("ledger: concurrency conflict, retry")
)

// Validate checks the posting contract before any write happens.
func (in PostingInput) Validate() error {
	if in.VoucherNo == "" {
		return errors.New("ledger: voucher number required")
	}
	if in.VoucherType == "" {
		return errors.New("ledger: voucher type required")
	}
	if len(in.Legs) == 0 {
		return fmt.Errorf("%w: no legs", ErrUnbalancedPosting)
	}
	var debit, credit float64
	for idx, leg := range in.Legs {
		if leg.AccountID == 0 {
			return fmt.Errorf("ledger: leg %d missing account", idx)
		}
		if leg.Debit < 0 || leg.Credit < 0 {
			return fmt.Errorf("ledger: leg %d negative amount", idx)
		}
		if (leg.Debit > 0) == (leg.Credit > 0) {
			return fmt.Errorf("ledger: leg %d must carry exactly one of debit/credit", idx)
		}
		debit += leg.Debit
		credit += leg.Credit
	}
	if !shared.SameAmount(debit, credit) {
		return fmt.Errorf("%w: voucher %s debit %.2f credit %.2f", ErrUnbalancedPosting, in.VoucherNo, debit, credit)
	}
	return nil
}
