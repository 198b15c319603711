package generator

import (
	"context"

	"github.com/nathanyu/order-fanout/internal/composer"
	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/nathanyu/order-fanout/internal/fanout"
)

// OrderGenerator produces one order per call and fans it out.
type OrderGenerator interface {
	RunOnce(ctx context.Context) (fanout.Report, error)
}

// TicketSource hands out ticket numbers. It never fails.
type TicketSource interface {
	Next(ctx context.Context) int64
}

// Fanout writes an order into every configured store.
type Fanout interface {
	Write(ctx context.Context, order domain.Order, opts ...fanout.WriteOption) fanout.Report
}

// LocalExecutor composes orders in process from the catalog.
type LocalExecutor struct {
	tickets  TicketSource
	catalog  composer.Catalog
	composer *composer.Composer
	writer   Fanout
}

func NewLocalExecutor(tickets TicketSource, catalog composer.Catalog, c *composer.Composer, w Fanout) *LocalExecutor {
	return &LocalExecutor{tickets: tickets, catalog: catalog, composer: c, writer: w}
}

func (e *LocalExecutor) Name() string { return "local" }

// Generate allocates a ticket and composes an order without writing it.
func (e *LocalExecutor) Generate(ctx context.Context, cons composer.Constraints) domain.Order {
	ticketID := e.tickets.Next(ctx)
	snap := composer.LoadSnapshot(ctx, e.catalog)
	return e.composer.Compose(ctx, snap, e.catalog, ticketID, cons)
}

// RunOnce generates an order and fans it out. Store failures are part of
// the report; it only returns an error when no writer is set.
func (e *LocalExecutor) RunOnce(ctx context.Context) (fanout.Report, error) {
	order := e.Generate(ctx, composer.Constraints{})
	if e.writer == nil {
		return fanout.Report{TicketID: order.TicketID, Source: e.Name()}, domain.ErrStoreNotConfigured
	}
	return e.writer.Write(ctx, order, fanout.WithSource(e.Name())), nil
}
