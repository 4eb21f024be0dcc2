package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/harborerp/ledger-core/internal/shared"
)

// EntryType distinguishes operator-keyed journals from system postings.
type EntryType string

const (
	EntryTypeManual EntryType = "MANUAL"
	EntryTypeSystem EntryType = "SYSTEM"
)

// Status enumerates the journal lifecycle.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusPosted    Status = "POSTED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// Entry is the transaction envelope before posting. Only POSTED entries
// produce ledger rows; a posted entry is undone by reversal, never deletion.
type Entry struct {
	ID          int64
	Number      int64
	Date        time.Time
	Description string
	Type        EntryType
	Status      Status
	TotalDebit  float64
	TotalCredit float64
	VoucherNo   string
	RejectedFor string
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []Line
}

// Line stores one debit or credit amount for an account.
type Line struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Debit     float64
	Credit    float64
	Remark    string
}

// CreateInput groups fields required to draft a journal entry.
type CreateInput struct {
	Date        time.Time
	Description string
	Type        EntryType
	CreatedBy   int64
	Lines       []LineInput
}

// LineInput describes one proposed journal line.
type LineInput struct {
	AccountID int64
	Debit     float64
	Credit    float64
	Remark    string
}

var (
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("journal: entry not found")
	// ErrUnbalancedEntry indicates line debits != credits.
	ErrUnbalancedEntry = errors.New("journal: lines must balance")
	// ErrInvalidStatus indicates the transition is not allowed.
	ErrInvalidStatus = errors.New("journal: invalid status transition")
	// ErrNoLines indicates an entry without lines.
	ErrNoLines = errors.New("journal: at least one line required")
)

// Validate checks structural requirements on a draft.
func (in CreateInput) Validate() error {
	if len(in.Lines) == 0 {
		return ErrNoLines
	}
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("journal: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("journal: line %d negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("journal: line %d cannot be both debit and credit", idx)
		}
	}
	return nil
}

// Totals sums line debits and credits.
func Totals(lines []Line) (debit, credit float64) {
	for _, line := range lines {
		debit += line.Debit
		credit += line.Credit
	}
	return debit, credit
}

// Balanced reports whether debits equal credits at cent precision.
func Balanced(lines []Line) bool {
	debit, credit := Totals(lines)
	return shared.SameAmount(debit, credit)
}
