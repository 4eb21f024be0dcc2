package coa

import (
	"errors"
	"strings"
	"time"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// AccountNature marks the side on which an account normally increases.
type AccountNature string

const (
	NatureDebit  AccountNature = "DEBIT"
	NatureCredit AccountNature = "CREDIT"
)

// NatureOf derives the balance nature from the account type.
func NatureOf(t AccountType) AccountNature {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NatureDebit
	default:
		return NatureCredit
	}
}

// Account models a chart of accounts node. Group nodes aggregate their
// children and never receive postings directly; Balance is cached in the
// account's nature direction and is always re-derivable from leaf postings.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Type      AccountType
	Nature    AccountNature
	ParentID  *int64
	Level     int
	IsGroup   bool
	IsActive  bool
	Balance   float64
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateAccountInput groups fields required to add a CoA node.
type CreateAccountInput struct {
	Code       string
	Name       string
	Type       AccountType
	ParentCode string
	IsGroup    bool
	Currency   string
}

var (
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("coa: account not found")
	// ErrDuplicateCode indicates the code is already taken.
	ErrDuplicateCode = errors.New("coa: duplicate account code")
	// ErrInvalidHierarchy indicates the code does not extend its parent.
	ErrInvalidHierarchy = errors.New("coa: invalid account hierarchy")
	// ErrAccountHasBalance blocks deactivation of accounts holding value.
	ErrAccountHasBalance = errors.New("coa: account has nonzero balance")
	// ErrAccountHasChildren blocks deactivation while active children exist.
	ErrAccountHasChildren = errors.New("coa: account has active children")
)

// Validate checks structural requirements before touching storage.
func (in CreateAccountInput) Validate() error {
	if in.Code == "" {
		return errors.New("coa: code required")
	}
	if in.Name == "" {
		return errors.New("coa: name required")
	}
	switch in.Type {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
	default:
		return errors.New("coa: unknown account type")
	}
	if in.ParentCode != "" && !ChildCodeOf(in.ParentCode, in.Code) {
		return ErrInvalidHierarchy
	}
	return nil
}

// ChildCodeOf reports whether child extends parent by one dot-delimited segment.
func ChildCodeOf(parent, child string) bool {
	if !strings.HasPrefix(child, parent+".") {
		return false
	}
	rest := strings.TrimPrefix(child, parent+".")
	return rest != "" && !strings.Contains(rest, ".")
}
