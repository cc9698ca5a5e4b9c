package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mbongo-pay/mbongo_pay/internal/ledger"
	"github.com/mbongo-pay/mbongo_pay/internal/notification"
)

type testNotifier struct {
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	return nil
}

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", v, err)
	}
	return d
}

func setup(t *testing.T) (ledger.Store, ledger.Wallet, ledger.Wallet) {
	t.Helper()
	store := ledger.NewInMemory()
	ctx := context.Background()

	sender, err := store.CreateWallet(ctx, ledger.NewWallet{FullName: "Ada Sender", TaxID: "1", Email: "s@x.com"})
	if err != nil {
		t.Fatalf("create sender: %v", err)
	}
	receiver, err := store.CreateWallet(ctx, ledger.NewWallet{FullName: "Ben Receiver", TaxID: "2", Email: "r@x.com"})
	if err != nil {
		t.Fatalf("create receiver: %v", err)
	}
	return store, sender, receiver
}

func TestTransferSuccess(t *testing.T) {
	store, sender, receiver := setup(t)
	ctx := context.Background()

	if _, err := store.Credit(ctx, sender.ID, dec(t, "70.00"), "seed"); err != nil {
		t.Fatalf("seed sender: %v", err)
	}
	if _, err := store.Credit(ctx, receiver.ID, dec(t, "50.00"), "seed"); err != nil {
		t.Fatalf("seed receiver: %v", err)
	}

	notifier := &testNotifier{}
	svc := NewService(store, notifier)

	view, err := svc.Transfer(ctx, sender.ID, receiver.ID, dec(t, "20.00"))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if view.ID == uuid.Nil {
		t.Fatal("transfer id must be set")
	}
	if view.SenderID != sender.ID || view.SenderName != "Ada Sender" {
		t.Fatalf("sender view: %+v", view)
	}
	if view.ReceiverID != receiver.ID || view.ReceiverName != "Ben Receiver" {
		t.Fatalf("receiver view: %+v", view)
	}
	if !view.Value.Equal(dec(t, "20.00")) || view.CreatedAt.IsZero() {
		t.Fatalf("value/created_at view: %+v", view)
	}

	gotSender, _ := store.Wallet(ctx, sender.ID)
	gotReceiver, _ := store.Wallet(ctx, receiver.ID)
	if !gotSender.Balance.Equal(dec(t, "50.00")) || !gotReceiver.Balance.Equal(dec(t, "70.00")) {
		t.Fatalf("balances: sender=%s receiver=%s", gotSender.Balance, gotReceiver.Balance)
	}

	if notifier.last.Kind != notification.KindTransferReceived || notifier.last.WalletID != receiver.ID {
		t.Fatalf("expected receiver notification, got %+v", notifier.last)
	}
}

func TestTransferMissingSenderReportedFirst(t *testing.T) {
	store, _, _ := setup(t)
	svc := NewService(store, nil)

	// Both ids unknown: the sender id must be the one reported.
	_, err := svc.Transfer(context.Background(), 888, 999, dec(t, "1.00"))
	var nf *ledger.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.WalletID != 888 {
		t.Fatalf("expected missing sender 888 reported, got %d", nf.WalletID)
	}
}

func TestTransferMissingReceiver(t *testing.T) {
	store, sender, _ := setup(t)
	svc := NewService(store, nil)

	_, err := svc.Transfer(context.Background(), sender.ID, 999, dec(t, "1.00"))
	var nf *ledger.NotFoundError
	if !errors.As(err, &nf) || nf.WalletID != 999 {
		t.Fatalf("expected missing receiver 999 reported, got %v", err)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	store, sender, receiver := setup(t)
	ctx := context.Background()

	if _, err := store.Credit(ctx, sender.ID, dec(t, "5.00"), "seed"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	notifier := &testNotifier{}
	svc := NewService(store, notifier)

	if _, err := svc.Transfer(ctx, sender.ID, receiver.ID, dec(t, "5.01")); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if notifier.last.Kind != "" {
		t.Fatal("no notification may be sent for a failed transfer")
	}
}

func TestTransferInvalidValue(t *testing.T) {
	store, sender, receiver := setup(t)
	svc := NewService(store, nil)

	if _, err := svc.Transfer(context.Background(), sender.ID, receiver.ID, decimal.Zero); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestTransferAbortedNotNotified(t *testing.T) {
	store, sender, receiver := setup(t)
	ctx := context.Background()

	if _, err := store.Credit(ctx, sender.ID, dec(t, "100.00"), "seed"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	notifier := &testNotifier{}
	svc := NewService(store, notifier)

	ledger.FailNextTransfer(store, errors.New("broken pipe"))

	if _, err := svc.Transfer(ctx, sender.ID, receiver.ID, dec(t, "10.00")); !errors.Is(err, ledger.ErrTransactionAborted) {
		t.Fatalf("expected ErrTransactionAborted, got %v", err)
	}
	if notifier.last.Kind != "" {
		t.Fatal("no notification may be sent for an aborted transfer")
	}

	gotSender, _ := store.Wallet(ctx, sender.ID)
	if !gotSender.Balance.Equal(dec(t, "100.00")) {
		t.Fatalf("aborted transfer mutated sender: %s", gotSender.Balance)
	}
}
