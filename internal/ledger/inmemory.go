package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryStore struct {
	mu           sync.Mutex
	wallets      map[int64]Wallet
	byTaxID      map[string]int64
	byEmail      map[string]int64
	entries      map[int64][]Entry
	transfers    map[uuid.UUID]Transfer
	nextWalletID int64
	nextEntryID  int64

	now          func() time.Time
	failTransfer error
}

// NewInMemory creates a concurrency-safe in-memory ledger store useful for
// unit tests. All invariants of the Postgres store hold: uniqueness of tax id
// and email, non-negative balances, and atomic balance+entry mutation.
func NewInMemory() Store {
	return &memoryStore{
		wallets:   make(map[int64]Wallet),
		byTaxID:   make(map[string]int64),
		byEmail:   make(map[string]int64),
		entries:   make(map[int64][]Entry),
		transfers: make(map[uuid.UUID]Transfer),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryStore) CreateWallet(_ context.Context, w NewWallet) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byTaxID[w.TaxID]; exists {
		return Wallet{}, ErrDuplicateWallet
	}
	if _, exists := s.byEmail[w.Email]; exists {
		return Wallet{}, ErrDuplicateWallet
	}

	s.nextWalletID++
	wallet := Wallet{
		ID:           s.nextWalletID,
		FullName:     w.FullName,
		TaxID:        w.TaxID,
		Email:        w.Email,
		PasswordHash: w.PasswordHash,
		Balance:      decimal.Zero,
		CreatedAt:    s.now(),
	}
	s.wallets[wallet.ID] = wallet
	s.byTaxID[w.TaxID] = wallet.ID
	s.byEmail[w.Email] = wallet.ID
	return wallet, nil
}

func (s *memoryStore) Wallet(_ context.Context, id int64) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.wallets[id]
	if !ok {
		return Wallet{}, &NotFoundError{WalletID: id}
	}
	return wallet, nil
}

func (s *memoryStore) Credit(_ context.Context, id int64, amount decimal.Decimal, description string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.post(id, KindCredit, amount, description)
}

func (s *memoryStore) Debit(_ context.Context, id int64, amount decimal.Decimal, description string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.post(id, KindDebit, amount, description)
}

// post mutates nothing until every check has passed. Callers hold s.mu.
func (s *memoryStore) post(id int64, kind EntryKind, amount decimal.Decimal, description string) (Entry, error) {
	if !amount.IsPositive() {
		return Entry{}, ErrInvalidAmount
	}

	wallet, ok := s.wallets[id]
	if !ok {
		return Entry{}, &NotFoundError{WalletID: id}
	}

	var after decimal.Decimal
	if kind == KindCredit {
		after = wallet.Balance.Add(amount)
	} else {
		if wallet.Balance.LessThan(amount) {
			return Entry{}, ErrInsufficientBalance
		}
		after = wallet.Balance.Sub(amount)
	}

	s.nextEntryID++
	entry := Entry{
		ID:           s.nextEntryID,
		WalletID:     id,
		Kind:         kind,
		Amount:       amount,
		Description:  description,
		Timestamp:    s.now(),
		BalanceAfter: after,
	}

	wallet.Balance = after
	s.wallets[id] = wallet
	s.entries[id] = append(s.entries[id], entry)
	return entry, nil
}

func (s *memoryStore) Transfer(_ context.Context, senderID, receiverID int64, value decimal.Decimal) (Transfer, error) {
	if !value.IsPositive() {
		return Transfer{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.wallets[senderID]
	if !ok {
		return Transfer{}, &NotFoundError{WalletID: senderID}
	}
	if _, ok := s.wallets[receiverID]; !ok {
		return Transfer{}, &NotFoundError{WalletID: receiverID}
	}
	if sender.Balance.LessThan(value) {
		return Transfer{}, ErrInsufficientBalance
	}

	// Injected commit failure: checks passed but nothing may be written.
	if s.failTransfer != nil {
		err := s.failTransfer
		s.failTransfer = nil
		return Transfer{}, fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}

	if _, err := s.post(senderID, KindDebit, value, fmt.Sprintf("Transfer to wallet ID: %d", receiverID)); err != nil {
		return Transfer{}, err
	}
	if _, err := s.post(receiverID, KindCredit, value, fmt.Sprintf("Transfer from wallet ID: %d", senderID)); err != nil {
		return Transfer{}, err
	}

	transfer := Transfer{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Value:      value,
		CreatedAt:  s.now(),
	}
	s.transfers[transfer.ID] = transfer
	return transfer, nil
}

func (s *memoryStore) BalanceAsOf(_ context.Context, id int64, asOf time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[id]; !ok {
		return decimal.Zero, &NotFoundError{WalletID: id}
	}

	latest, ok := latestThrough(s.entries[id], asOf)
	if !ok {
		return decimal.Zero, nil
	}
	return latest.BalanceAfter, nil
}

func (s *memoryStore) Entries(_ context.Context, id int64, asOf time.Time) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[id]; !ok {
		return nil, &NotFoundError{WalletID: id}
	}

	var out []Entry
	all := s.entries[id]
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].Timestamp.After(asOf) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// latestThrough picks the entry with the greatest (timestamp, id) pair not
// exceeding asOf. Equal timestamps resolve to the higher id.
func latestThrough(entries []Entry, asOf time.Time) (Entry, bool) {
	var (
		best  Entry
		found bool
	)
	for _, e := range entries {
		if e.Timestamp.After(asOf) {
			continue
		}
		if !found || e.Timestamp.After(best.Timestamp) ||
			(e.Timestamp.Equal(best.Timestamp) && e.ID > best.ID) {
			best = e
			found = true
		}
	}
	return best, found
}
