package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mbongo-pay/mbongo_pay/internal/ledger"
	"github.com/mbongo-pay/mbongo_pay/internal/notification"
)

// Service orchestrates wallet-to-wallet transfers: the sender debit, the
// receiver credit and the transfer record commit as one atomic unit in the
// ledger store.
type Service struct {
	store    ledger.Store
	notifier notification.Notifier
}

// NewService constructs a transfer service.
func NewService(store ledger.Store, notifier notification.Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// View is the caller-facing projection of a completed transfer.
type View struct {
	ID           uuid.UUID
	SenderID     int64
	SenderName   string
	ReceiverID   int64
	ReceiverName string
	Value        decimal.Decimal
	CreatedAt    time.Time
}

// Transfer moves value from sender to receiver. The sender is looked up
// before the receiver, so a missing sender is the error reported even when
// both ids are unknown. Balance sufficiency is validated before any mutation
// and re-checked under the store's locks.
func (s *Service) Transfer(ctx context.Context, senderID, receiverID int64, value decimal.Decimal) (View, error) {
	if !value.IsPositive() {
		return View{}, ledger.ErrInvalidAmount
	}

	sender, err := s.store.Wallet(ctx, senderID)
	if err != nil {
		return View{}, err
	}
	receiver, err := s.store.Wallet(ctx, receiverID)
	if err != nil {
		return View{}, err
	}
	if sender.Balance.LessThan(value) {
		return View{}, ledger.ErrInsufficientBalance
	}

	record, err := s.store.Transfer(ctx, sender.ID, receiver.ID, value)
	if err != nil {
		return View{}, err
	}

	if s.notifier != nil {
		// Best effort; a failed notification never fails a committed transfer.
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:     notification.KindTransferReceived,
			WalletID: receiver.ID,
			Body:     fmt.Sprintf("You received %s from wallet %d", value, sender.ID),
		})
	}

	return View{
		ID:           record.ID,
		SenderID:     sender.ID,
		SenderName:   sender.FullName,
		ReceiverID:   receiver.ID,
		ReceiverName: receiver.FullName,
		Value:        record.Value,
		CreatedAt:    record.CreatedAt,
	}, nil
}
