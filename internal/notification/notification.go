package notification

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const (
	// KindTransferReceived indicates funds arrived from another wallet.
	KindTransferReceived = "transfer_received"
)

// Message describes a notification payload.
type Message struct {
	Kind     string `json:"kind"`
	WalletID int64  `json:"wallet_id"`
	Body     string `json:"body"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger. Used when no
// broker is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "wallet_id", message.WalletID, "body", message.Body)
	return nil
}

// NATSNotifier publishes notifications as JSON events on a NATS subject
// derived from the message kind, e.g. wallets.transfer_received.
type NATSNotifier struct {
	conn *nats.Conn
}

// NewNATSNotifier constructs a NATS-backed notifier.
func NewNATSNotifier(conn *nats.Conn) *NATSNotifier {
	return &NATSNotifier{conn: conn}
}

// Send publishes the message. Publishing is fire-and-forget; the caller
// decides whether delivery failures matter.
func (n *NATSNotifier) Send(_ context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return n.conn.Publish("wallets."+message.Kind, payload)
}
