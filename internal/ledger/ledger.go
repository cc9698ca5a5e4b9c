package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance occurs when a debit or transfer would drive a
	// wallet balance negative.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDuplicateWallet indicates the tax id or email is already registered.
	ErrDuplicateWallet = errors.New("tax id or email already exists")

	// ErrInvalidAmount indicates a zero or negative amount was supplied.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrTransactionAborted indicates the atomic commit failed at the storage
	// layer. No partial state was written, so the whole operation is safe to
	// retry from scratch.
	ErrTransactionAborted = errors.New("transaction aborted")
)

// NotFoundError reports which wallet id an operation referenced.
type NotFoundError struct {
	WalletID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("wallet %d not found", e.WalletID)
}

// EntryKind discriminates ledger entry directions.
type EntryKind string

const (
	KindDebit  EntryKind = "DEBIT"
	KindCredit EntryKind = "CREDIT"
)

// Wallet holds the identity and live balance of an account.
type Wallet struct {
	ID           int64
	FullName     string
	TaxID        string
	Email        string
	PasswordHash []byte
	Balance      decimal.Decimal
	CreatedAt    time.Time
}

// NewWallet carries the fields required to open a wallet.
type NewWallet struct {
	FullName     string
	TaxID        string
	Email        string
	PasswordHash []byte
}

// Entry is one immutable record in a wallet's append-only log. Entry ids are
// assigned monotonically, so id order is log order.
type Entry struct {
	ID           int64
	WalletID     int64
	Kind         EntryKind
	Amount       decimal.Decimal
	Description  string
	Timestamp    time.Time
	BalanceAfter decimal.Decimal
}

// Transfer records a completed wallet-to-wallet movement. The id is random
// rather than sequential so it leaks nothing about operation ordering or
// volume.
type Transfer struct {
	ID         uuid.UUID
	SenderID   int64
	ReceiverID int64
	Value      decimal.Decimal
	CreatedAt  time.Time
}

// Store is the contract implemented by ledger backends (e.g. Postgres).
//
// A balance change and its log entry are one atomic state change:
// implementations never append an entry without the matching balance update
// and never update a balance without appending. Transfer commits the sender
// debit, receiver credit and transfer record together or not at all.
type Store interface {
	CreateWallet(ctx context.Context, w NewWallet) (Wallet, error)
	Wallet(ctx context.Context, id int64) (Wallet, error)
	Credit(ctx context.Context, id int64, amount decimal.Decimal, description string) (Entry, error)
	Debit(ctx context.Context, id int64, amount decimal.Decimal, description string) (Entry, error)
	Transfer(ctx context.Context, senderID, receiverID int64, value decimal.Decimal) (Transfer, error)
	BalanceAsOf(ctx context.Context, id int64, asOf time.Time) (decimal.Decimal, error)
	Entries(ctx context.Context, id int64, asOf time.Time) ([]Entry, error)
}
