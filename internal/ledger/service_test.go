package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/harborerp/ledger-core/internal/coa"
)

type memoryLedgerRepo struct {
	mu       sync.Mutex
	accounts map[int64]coa.Account
	entries  []Entry
	nextID   int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{accounts: make(map[int64]coa.Account)}
}

func (r *memoryLedgerRepo) addAccount(a coa.Account) {
	r.accounts[a.ID] = a
}

// WithTx serialises units of work with a mutex, standing in for the row
// locks the SQL repository takes.
func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memoryLedgerTx{repo: r})
}

type memoryLedgerTx struct {
	repo *memoryLedgerRepo
}

func (t *memoryLedgerTx) Accounts() coa.TxRepository {
	return &memoryAccountsTx{repo: t.repo}
}

func (t *memoryLedgerTx) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	t.repo.nextID++
	e.ID = t.repo.nextID
	t.repo.entries = append(t.repo.entries, e)
	return e, nil
}

func (t *memoryLedgerTx) ListVoucher(ctx context.Context, voucherNo string) ([]Entry, error) {
	var out []Entry
	for _, e := range t.repo.entries {
		if e.VoucherNo == voucherNo {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memoryLedgerTx) VoucherExists(ctx context.Context, voucherNo string) (bool, error) {
	for _, e := range t.repo.entries {
		if e.VoucherNo == voucherNo {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryLedgerTx) MarkVoucherCancelled(ctx context.Context, voucherNo string) error {
	marked := false
	for idx := range t.repo.entries {
		if t.repo.entries[idx].VoucherNo == voucherNo && !t.repo.entries[idx].Cancelled {
			t.repo.entries[idx].Cancelled = true
			marked = true
		}
	}
	if !marked {
		return ErrAlreadyCancelled
	}
	return nil
}

type memoryAccountsTx struct {
	repo *memoryLedgerRepo
}

func (t *memoryAccountsTx) GetByCode(ctx context.Context, code string) (coa.Account, error) {
	for _, a := range t.repo.accounts {
		if a.Code == code {
			return a, nil
		}
	}
	return coa.Account{}, coa.ErrAccountNotFound
}

func (t *memoryAccountsTx) GetByID(ctx context.Context, id int64) (coa.Account, error) {
	a, ok := t.repo.accounts[id]
	if !ok {
		return coa.Account{}, coa.ErrAccountNotFound
	}
	return a, nil
}

func (t *memoryAccountsTx) Insert(ctx context.Context, a coa.Account) (coa.Account, error) {
	t.repo.accounts[a.ID] = a
	return a, nil
}

func (t *memoryAccountsTx) List(ctx context.Context) ([]coa.Account, error) {
	var out []coa.Account
	for _, a := range t.repo.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (t *memoryAccountsTx) CountActiveChildren(ctx context.Context, id int64) (int, error) {
	count := 0
	for _, a := range t.repo.accounts {
		if a.ParentID != nil && *a.ParentID == id && a.IsActive {
			count++
		}
	}
	return count, nil
}

func (t *memoryAccountsTx) SetActive(ctx context.Context, id int64, active bool) error {
	a, ok := t.repo.accounts[id]
	if !ok {
		return coa.ErrAccountNotFound
	}
	a.IsActive = active
	t.repo.accounts[id] = a
	return nil
}

func (t *memoryAccountsTx) AddToBalance(ctx context.Context, id int64, delta float64) error {
	a, ok := t.repo.accounts[id]
	if !ok {
		return coa.ErrAccountNotFound
	}
	a.Balance += delta
	t.repo.accounts[id] = a
	return nil
}

func seedDirectory(repo *memoryLedgerRepo) {
	rootID := int64(1)
	repo.addAccount(coa.Account{ID: 1, Code: "1", Name: "Assets", Type: coa.AccountTypeAsset, Nature: coa.NatureDebit, IsGroup: true, IsActive: true, Level: 1})
	repo.addAccount(coa.Account{ID: 2, Code: "1.1", Name: "Cash", Type: coa.AccountTypeAsset, Nature: coa.NatureDebit, ParentID: &rootID, IsActive: true, Level: 2})
	repo.addAccount(coa.Account{ID: 3, Code: "4.1", Name: "Sales", Type: coa.AccountTypeRevenue, Nature: coa.NatureCredit, IsActive: true, Level: 1})
	repo.addAccount(coa.Account{ID: 4, Code: "1.9", Name: "Dormant", Type: coa.AccountTypeAsset, Nature: coa.NatureDebit, ParentID: &rootID, IsActive: false, Level: 2})
}

func testDate() time.Time {
	return time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
}

func TestPostBalancedVoucher(t *testing.T) {
	repo := newMemoryLedgerRepo()
	seedDirectory(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	voucher, err := svc.Post(ctx, PostingInput{
		VoucherType: VoucherTypeSalesInvoice,
		VoucherNo:   "INV-1",
		Date:        testDate(),
		PostedBy:    7,
		Legs: []Leg{
			{AccountID: 2, Debit: 150},
			{AccountID: 3, Credit: 150},
		},
	})
	require.NoError(t, err)
	require.Len(t, voucher.Entries, 2)

	// cash is debit natured, sales credit natured: both balances rise
	require.InDelta(t, 150, repo.accounts[2].Balance, 1e-9)
	require.InDelta(t, 150, repo.accounts[3].Balance, 1e-9)
	// rollup reaches the asset root
	require.InDelta(t, 150, repo.accounts[1].Balance, 1e-9)
}

func TestPostRejectsUnbalanced(t *testing.T) {
	repo := newMemoryLedgerRepo()
	seedDirectory(repo)
	svc := NewService(repo, nil, nil)

	_, err := svc.Post(context.Background(), PostingInput{
		VoucherType: VoucherTypeJournal,
		VoucherNo:   "JE-1",
		Legs: []Leg{
			{AccountID: 2, Debit: 100},
			{AccountID: 3, Credit: 99.99},
		},
	})
	require.ErrorIs(t, err, ErrUnbalancedPosting)
	require.Empty(t, repo.entries)
}

func TestPostRejectsGroupAndInactiveTargets(t *testing.T) {
	repo := newMemoryLedgerRepo()
	seedDirectory(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Post(ctx, PostingInput{
		VoucherType: VoucherTypeJournal,
		VoucherNo:   "JE-2",
		Legs: []Leg{
			{AccountID: 1, Debit: 50},
			{AccountID: 3, Credit: 50},
		},
	})
	require.ErrorIs(t, err, ErrInvalidPostingTarget)

	_, err = svc.Post(ctx, PostingInput{
		VoucherType: VoucherTypeJournal,
		VoucherNo:   "JE-3",
		Legs: []Leg{
			{AccountID: 4, Debit: 50},
			{AccountID: 3, Credit: 50},
		},
	})
	require.ErrorIs(t, err, ErrInvalidPostingTarget)
	require.Empty(t, repo.entries)
}

func TestPostRejectsDuplicateVoucher(t *testing.T) {
	repo := newMemoryLedgerRepo()
	seedDirectory(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	input := PostingInput{
		VoucherType: VoucherTypeJournal,
		VoucherNo:   "JE-4",
		Legs: []Leg{
			{AccountID: 2, Debit: 10},
			{AccountID: 3, Credit: 10},
		},
	}
	_, err := svc.Post(ctx, input)
	require.NoError(t, err)
	_, err = svc.Post(ctx, input)
	require.ErrorIs(t, err, ErrDuplicateVoucher)
}

func TestReverseVoucher(t *testing.T) {
	repo := newMemoryLedgerRepo()
	seedDirectory(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Post(ctx, PostingInput{
		VoucherType: VoucherTypeSalesInvoice,
		VoucherNo:   "INV-9",
		Legs: []Leg{
			{AccountID: 2, Debit: 300},
			{AccountID: 3, Credit: 300},
		},
	})
	require.NoError(t, err)

	reversal, err := svc.Reverse(ctx, "INV-9", 7)
	require.NoError(t, err)
	require.Equal(t, "INV-9-REV", reversal.VoucherNo)
	require.Len(t, reversal.Entries, 2)

	// balances return to zero after reversal
	require.InDelta(t, 0, repo.accounts[2].Balance, 1e-9)
	require.InDelta(t, 0, repo.accounts[3].Balance, 1e-9)
	require.InDelta(t, 0, repo.accounts[1].Balance, 1e-9)

	originals, err := svc.GetVoucher(ctx, "INV-9")
	require.NoError(t, err)
	for _, e := range originals {
		require.True(t, e.Cancelled)
	}

	_, err = svc.Reverse(ctx, "INV-9", 7)
	require.ErrorIs(t, err, ErrAlreadyCancelled)

	_, err = svc.Reverse(ctx, "NOPE", 7)
	require.ErrorIs(t, err, ErrVoucherNotFound)
}

func TestDerivedBalancesMatchCachedAfterReversal(t *testing.T) {
	repo := newMemoryLedgerRepo()
	seedDirectory(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Post(ctx, PostingInput{
		VoucherType: VoucherTypeSalesInvoice,
		VoucherNo:   "INV-1",
		Legs: []Leg{
			{AccountID: 2, Debit: 300},
			{AccountID: 3, Credit: 300},
		},
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, PostingInput{
		VoucherType: VoucherTypeReceipt,
		VoucherNo:   "RC-1",
		Legs: []Leg{
			{AccountID: 2, Debit: 125.50},
			{AccountID: 3, Credit: 125.50},
		},
	})
	require.NoError(t, err)
	_, err = svc.Reverse(ctx, "INV-1", 7)
	require.NoError(t, err)

	// recompute each leaf balance from the full entry stream, the way the
	// nightly integrity check does: cancelled originals and their reversal
	// legs are both summed and net to zero
	derived := make(map[int64]float64)
	for _, e := range repo.entries {
		nature := repo.accounts[e.AccountID].Nature
		derived[e.AccountID] += balanceDelta(nature, Leg{Debit: e.Debit, Credit: e.Credit})
	}
	for id, account := range repo.accounts {
		if account.IsGroup {
			continue
		}
		require.InDelta(t, account.Balance, derived[id], 1e-9, "account %s", account.Code)
	}
	require.InDelta(t, 125.50, repo.accounts[2].Balance, 1e-9)
	require.InDelta(t, 125.50, derived[2], 1e-9)
}

func TestConcurrentPostingsKeepBalancesConsistent(t *testing.T) {
	repo := newMemoryLedgerRepo()
	seedDirectory(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	const n = 50
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, err := svc.Post(ctx, PostingInput{
				VoucherType: VoucherTypeReceipt,
				VoucherNo:   fmt.Sprintf("RC-%d", i),
				Legs: []Leg{
					{AccountID: 2, Debit: 1},
					{AccountID: 3, Credit: 1},
				},
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	require.InDelta(t, n, repo.accounts[2].Balance, 1e-9)
	require.InDelta(t, n, repo.accounts[3].Balance, 1e-9)
	require.InDelta(t, n, repo.accounts[1].Balance, 1e-9)
	require.Len(t, repo.entries, 2*n)
}

func TestBalanceDelta(t *testing.T) {
	require.InDelta(t, 40, balanceDelta(coa.NatureDebit, Leg{Debit: 40}), 1e-9)
	require.InDelta(t, -40, balanceDelta(coa.NatureDebit, Leg{Credit: 40}), 1e-9)
	require.InDelta(t, 40, balanceDelta(coa.NatureCredit, Leg{Credit: 40}), 1e-9)
	require.InDelta(t, -40, balanceDelta(coa.NatureCredit, Leg{Debit: 40}), 1e-9)
}
