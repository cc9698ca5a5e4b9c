package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbongo-pay/mbongo_pay/internal/ledger"
)

const (
	depositDescription  = "Deposit operation"
	withdrawDescription = "Withdrawal operation"
)

// Service exposes wallet account operations backed by the ledger store.
type Service struct {
	store ledger.Store
}

// NewService builds a wallet service instance.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// CreateInput captures data required to open a wallet.
type CreateInput struct {
	FullName string
	TaxID    string
	Email    string
	Password string
}

// Balance is a point-in-time view of a wallet's funds.
type Balance struct {
	WalletID int64
	Amount   decimal.Decimal
	AsOf     time.Time
}

// Create opens a wallet with a zero balance. The credential is stored only as
// a bcrypt hash. Duplicate tax id or email surfaces as ErrDuplicateWallet.
func (s *Service) Create(ctx context.Context, input CreateInput) (ledger.Wallet, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return ledger.Wallet{}, err
	}

	return s.store.CreateWallet(ctx, ledger.NewWallet{
		FullName:     input.FullName,
		TaxID:        input.TaxID,
		Email:        input.Email,
		PasswordHash: hash,
	})
}

// Deposit credits the wallet and appends the matching ledger entry.
func (s *Service) Deposit(ctx context.Context, id int64, amount decimal.Decimal) (ledger.Entry, error) {
	return s.store.Credit(ctx, id, amount, depositDescription)
}

// Withdraw debits the wallet. ErrInsufficientBalance when the balance cannot
// cover the amount; nothing is written in that case.
func (s *Service) Withdraw(ctx context.Context, id int64, amount decimal.Decimal) (ledger.Entry, error) {
	return s.store.Debit(ctx, id, amount, withdrawDescription)
}

// Balance returns the live balance.
func (s *Service) Balance(ctx context.Context, id int64) (Balance, error) {
	w, err := s.store.Wallet(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: w.ID, Amount: w.Balance, AsOf: time.Now().UTC()}, nil
}

// HistoricalBalance reconstructs the balance as of an arbitrary past moment
// from the entry log, independent of the live balance. A wallet with no
// entries at that point reports zero.
func (s *Service) HistoricalBalance(ctx context.Context, id int64, asOf time.Time) (Balance, error) {
	amount, err := s.store.BalanceAsOf(ctx, id, asOf)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: id, Amount: amount, AsOf: asOf}, nil
}

// Statement lists the wallet's ledger entries up to asOf, newest first.
func (s *Service) Statement(ctx context.Context, id int64, asOf time.Time) ([]ledger.Entry, error) {
	return s.store.Entries(ctx, id, asOf)
}
