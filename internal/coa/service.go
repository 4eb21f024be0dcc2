package coa

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/harborerp/ledger-core/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes directory operations inside one transaction.
type TxRepository interface {
	GetByCode(ctx context.Context, code string) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
	Insert(ctx context.Context, a Account) (Account, error)
	List(ctx context.Context) ([]Account, error)
	CountActiveChildren(ctx context.Context, id int64) (int, error)
	SetActive(ctx context.Context, id int64, active bool) error
	// AddToBalance locks the row and adds delta to the cached balance.
	AddToBalance(ctx context.Context, id int64, delta float64) error
}

// AuditPort records directory changes for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service maintains the hierarchical chart of accounts.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the directory service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateAccount inserts a new CoA node under the given parent code.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput, actorID int64) (Account, error) {
	if err := input.Validate(); err != nil {
		return Account{}, err
	}
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account := Account{
			Code:     input.Code,
			Name:     input.Name,
			Type:     input.Type,
			Nature:   NatureOf(input.Type),
			IsGroup:  input.IsGroup,
			IsActive: true,
			Currency: input.Currency,
			Level:    1,
		}
		if input.ParentCode != "" {
			parent, err := tx.GetByCode(ctx, input.ParentCode)
			if err != nil {
				return fmt.Errorf("%w: parent %s", ErrInvalidHierarchy, input.ParentCode)
			}
			if !parent.IsGroup {
				return fmt.Errorf("%w: parent %s is not a group", ErrInvalidHierarchy, parent.Code)
			}
			account.ParentID = &parent.ID
			account.Level = parent.Level + 1
		}
		inserted, err := tx.Insert(ctx, account)
		if err != nil {
			return err
		}
		created = inserted
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "coa.create",
			Entity:   "account",
			EntityID: created.Code,
			Meta:     map[string]any{"name": created.Name, "type": string(created.Type)},
			At:       s.now(),
		})
	}
	return created, nil
}

// Resolve returns the account matching the code, or the numeric id when the
// code does not match. Callers hold codes as the stable external identifier.
func (s *Service) Resolve(ctx context.Context, codeOrID string) (Account, error) {
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		found, err := tx.GetByCode(ctx, codeOrID)
		if err == nil {
			account = found
			return nil
		}
		id, parseErr := strconv.ParseInt(codeOrID, 10, 64)
		if parseErr != nil {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, codeOrID)
		}
		found, err = tx.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, codeOrID)
		}
		account = found
		return nil
	})
	return account, err
}

// List returns all directory nodes ordered by code.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		accounts, err = tx.List(ctx)
		return err
	})
	return accounts, err
}

// Deactivate marks an account inactive once it carries no value and has no
// active children. Accounts with postings are never deleted.
func (s *Service) Deactivate(ctx context.Context, id int64, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if shared.Cents(account.Balance) != 0 {
			return fmt.Errorf("%w: %s balance %.2f", ErrAccountHasBalance, account.Code, account.Balance)
		}
		children, err := tx.CountActiveChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: %s", ErrAccountHasChildren, account.Code)
		}
		return tx.SetActive(ctx, id, false)
	})
	if err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "coa.deactivate",
			Entity:   "account",
			EntityID: fmt.Sprintf("%d", id),
			At:       s.now(),
		})
	}
	return nil
}

// ApplyDelta adjusts a leaf balance and rolls the same delta up to every
// ancestor. It must run inside the transaction that wrote the ledger rows,
// so it operates on an open TxRepository rather than the service itself.
// Only the posting engine calls it.
func ApplyDelta(ctx context.Context, tx TxRepository, accountID int64, delta float64) error {
	current, err := tx.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	for {
		if err := tx.AddToBalance(ctx, current.ID, delta); err != nil {
			return err
		}
		if current.ParentID == nil {
			return nil
		}
		current, err = tx.GetByID(ctx, *current.ParentID)
		if err != nil {
			return err
		}
	}
}
