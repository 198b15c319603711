package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/nats-io/nats.go"
)

const DefaultSubject = "orders.generated"

// Publisher is the part of a NATS connection the order publisher needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// OrderPublisher announces every generated order on a NATS subject so
// downstream consumers can follow the demo without polling the stores.
type OrderPublisher struct {
	conn    Publisher
	subject string
}

func NewOrderPublisher(conn Publisher, subject string) *OrderPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &OrderPublisher{conn: conn, subject: subject}
}

// Connect dials NATS with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

func (p *OrderPublisher) Name() string { return "events" }

func (p *OrderPublisher) Write(_ context.Context, order domain.Order) error {
	if p == nil || p.conn == nil {
		return domain.ErrStoreNotConfigured
	}
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish order %d: %w", order.TicketID, err)
	}
	return nil
}
