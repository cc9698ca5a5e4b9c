package infra

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// NewNATSConn connects to the NATS server used for event publishing.
func NewNATSConn(url, appName string) (*nats.Conn, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}

	conn, err := nats.Connect(url, nats.Name(appName))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}
