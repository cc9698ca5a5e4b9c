package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolationCode = "23505"

// PostgresStore persists wallets, entries and transfers in PostgreSQL.
// Balance checks and mutations run under SELECT ... FOR UPDATE row locks so
// concurrent debits against the same wallet serialize instead of racing.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWallet inserts a wallet with a zero balance. Uniqueness of tax id and
// email is enforced by the database constraints; a violation surfaces as
// ErrDuplicateWallet regardless of which column collided.
func (s *PostgresStore) CreateWallet(ctx context.Context, w NewWallet) (Wallet, error) {
	const query = `INSERT INTO wallets (full_name, tax_id, email, password_hash, balance, created_at)
        VALUES ($1, $2, $3, $4, 0, $5) RETURNING id`

	wallet := Wallet{
		FullName:     w.FullName,
		TaxID:        w.TaxID,
		Email:        w.Email,
		PasswordHash: w.PasswordHash,
		Balance:      decimal.Zero,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.db.QueryRow(ctx, query, w.FullName, w.TaxID, w.Email, w.PasswordHash, wallet.CreatedAt).Scan(&wallet.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Wallet{}, ErrDuplicateWallet
		}
		return Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}

	return wallet, nil
}

// Wallet fetches a wallet row by id.
func (s *PostgresStore) Wallet(ctx context.Context, id int64) (Wallet, error) {
	const query = `SELECT id, full_name, tax_id, email, password_hash, balance::text, created_at
        FROM wallets WHERE id = $1`

	var (
		w       Wallet
		balance string
	)
	if err := s.db.QueryRow(ctx, query, id).Scan(&w.ID, &w.FullName, &w.TaxID, &w.Email, &w.PasswordHash, &balance, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, &NotFoundError{WalletID: id}
		}
		return Wallet{}, fmt.Errorf("select wallet: %w", err)
	}

	var err error
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return Wallet{}, fmt.Errorf("parse balance: %w", err)
	}
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}

// Credit adds amount to the wallet balance and appends the CREDIT entry in a
// single transaction.
func (s *PostgresStore) Credit(ctx context.Context, id int64, amount decimal.Decimal, description string) (Entry, error) {
	return s.post(ctx, id, KindCredit, amount, description)
}

// Debit subtracts amount from the wallet balance and appends the DEBIT entry
// in a single transaction. ErrInsufficientBalance is returned, with nothing
// written, when the locked balance is smaller than amount.
func (s *PostgresStore) Debit(ctx context.Context, id int64, amount decimal.Decimal, description string) (Entry, error) {
	return s.post(ctx, id, KindDebit, amount, description)
}

func (s *PostgresStore) post(ctx context.Context, id int64, kind EntryKind, amount decimal.Decimal, description string) (Entry, error) {
	if !amount.IsPositive() {
		return Entry{}, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockBalance(ctx, tx, id)
	if err != nil {
		return Entry{}, err
	}

	var after decimal.Decimal
	if kind == KindCredit {
		after = balance.Add(amount)
	} else {
		if balance.LessThan(amount) {
			return Entry{}, ErrInsufficientBalance
		}
		after = balance.Sub(amount)
	}

	entry, err := applyPosting(ctx, tx, Entry{
		WalletID:     id,
		Kind:         kind,
		Amount:       amount,
		Description:  description,
		Timestamp:    time.Now().UTC(),
		BalanceAfter: after,
	})
	if err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}
	return entry, nil
}

// Transfer debits the sender, credits the receiver and records the transfer
// as one transaction. Both wallet rows are locked in ascending id order so two
// opposite-direction transfers cannot deadlock.
func (s *PostgresStore) Transfer(ctx context.Context, senderID, receiverID int64, value decimal.Decimal) (Transfer, error) {
	if !value.IsPositive() {
		return Transfer{}, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transfer{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balances := make(map[int64]decimal.Decimal, 2)
	first, second := senderID, receiverID
	if receiverID < senderID {
		first, second = receiverID, senderID
	}
	for _, id := range []int64{first, second} {
		if balances[id], err = lockBalance(ctx, tx, id); err != nil {
			return Transfer{}, err
		}
	}

	if balances[senderID].LessThan(value) {
		return Transfer{}, ErrInsufficientBalance
	}

	now := time.Now().UTC()

	balances[senderID] = balances[senderID].Sub(value)
	if _, err := applyPosting(ctx, tx, Entry{
		WalletID:     senderID,
		Kind:         KindDebit,
		Amount:       value,
		Description:  fmt.Sprintf("Transfer to wallet ID: %d", receiverID),
		Timestamp:    now,
		BalanceAfter: balances[senderID],
	}); err != nil {
		return Transfer{}, err
	}

	balances[receiverID] = balances[receiverID].Add(value)
	if _, err := applyPosting(ctx, tx, Entry{
		WalletID:     receiverID,
		Kind:         KindCredit,
		Amount:       value,
		Description:  fmt.Sprintf("Transfer from wallet ID: %d", senderID),
		Timestamp:    now,
		BalanceAfter: balances[receiverID],
	}); err != nil {
		return Transfer{}, err
	}

	transfer := Transfer{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Value:      value,
		CreatedAt:  now,
	}
	if _, err := tx.Exec(ctx, `INSERT INTO transfers (id, sender_id, receiver_id, value, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5)`,
		transfer.ID, transfer.SenderID, transfer.ReceiverID, transfer.Value.String(), transfer.CreatedAt); err != nil {
		return Transfer{}, fmt.Errorf("insert transfer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Transfer{}, fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}
	return transfer, nil
}

// BalanceAsOf reconstructs the wallet balance at asOf from the entry log.
// Equal timestamps tie-break on the highest entry id, so the result is
// deterministic even when two entries share a timestamp.
func (s *PostgresStore) BalanceAsOf(ctx context.Context, id int64, asOf time.Time) (decimal.Decimal, error) {
	if err := s.walletExists(ctx, id); err != nil {
		return decimal.Zero, err
	}

	const query = `SELECT balance_after::text FROM entries
        WHERE wallet_id = $1 AND created_at <= $2
        ORDER BY created_at DESC, id DESC LIMIT 1`

	var after string
	if err := s.db.QueryRow(ctx, query, id, asOf).Scan(&after); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No entries yet at that point in time: pre-history balance.
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("select balance as of: %w", err)
	}
	return decimal.NewFromString(after)
}

// Entries lists the wallet's log entries with timestamp <= asOf, newest first.
func (s *PostgresStore) Entries(ctx context.Context, id int64, asOf time.Time) ([]Entry, error) {
	if err := s.walletExists(ctx, id); err != nil {
		return nil, err
	}

	const query = `SELECT id, kind, amount::text, description, created_at, balance_after::text
        FROM entries WHERE wallet_id = $1 AND created_at <= $2
        ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query, id, asOf)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e             Entry
			amount, after string
		)
		if err := rows.Scan(&e.ID, &e.Kind, &amount, &e.Description, &e.Timestamp, &after); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		if e.BalanceAfter, err = decimal.NewFromString(after); err != nil {
			return nil, fmt.Errorf("parse balance_after: %w", err)
		}
		e.WalletID = id
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) walletExists(ctx context.Context, id int64) error {
	var one int
	if err := s.db.QueryRow(ctx, `SELECT 1 FROM wallets WHERE id = $1`, id).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{WalletID: id}
		}
		return fmt.Errorf("select wallet: %w", err)
	}
	return nil
}

func lockBalance(ctx context.Context, tx pgx.Tx, id int64) (decimal.Decimal, error) {
	var balance string
	if err := tx.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE id = $1 FOR UPDATE`, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, &NotFoundError{WalletID: id}
		}
		return decimal.Zero, fmt.Errorf("lock wallet %d: %w", id, err)
	}
	return decimal.NewFromString(balance)
}

// applyPosting writes the balance update and its entry together; the caller
// owns the surrounding transaction.
func applyPosting(ctx context.Context, tx pgx.Tx, e Entry) (Entry, error) {
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1::numeric WHERE id = $2`,
		e.BalanceAfter.String(), e.WalletID); err != nil {
		return Entry{}, fmt.Errorf("update balance: %w", err)
	}

	const query = `INSERT INTO entries (wallet_id, kind, amount, description, created_at, balance_after)
        VALUES ($1, $2, $3::numeric, $4, $5, $6::numeric) RETURNING id`
	if err := tx.QueryRow(ctx, query, e.WalletID, string(e.Kind), e.Amount.String(), e.Description, e.Timestamp, e.BalanceAfter.String()).Scan(&e.ID); err != nil {
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}
