package composer

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nathanyu/order-fanout/internal/clock"
	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/nathanyu/order-fanout/internal/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	maxItemsPerOrder = 3
	maxQuantity      = 3

	PlaceholderName  = "Synthetic product"
	PlaceholderPrice = 3.00
)

// Range is an inclusive id range used when the catalog has no rows.
type Range struct {
	Min int64
	Max int64
}

func (r Range) pick(rng *rand.Rand) int64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Int64N(r.Max-r.Min+1)
}

// Constraints pin parts of the composed order. Nil fields are chosen at
// random.
type Constraints struct {
	ClientID *int64 `json:"cliente_id"`
	BranchID *int64 `json:"sucursal_id"`
}

// ProductLookup finds products that can be put on an order.
type ProductLookup interface {
	ListAvailableProducts(ctx context.Context, branchID int64) ([]domain.Product, error)
	ListAllProducts(ctx context.Context) ([]domain.Product, error)
}

// Composer builds synthetic orders from a catalog snapshot. It is safe
// for concurrent use.
type Composer struct {
	mu  sync.Mutex
	rng *rand.Rand

	clock    clock.Clock
	clients  Range
	branches Range
}

type Option func(*Composer)

// WithSeed makes the random choices reproducible.
func WithSeed(seed uint64) Option {
	return func(c *Composer) {
		c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *Composer) { c.clock = clk }
}

// WithFallbackRanges sets the id ranges used when the catalog has no
// clients or branches.
func WithFallbackRanges(clients, branches Range) Option {
	return func(c *Composer) {
		c.clients = clients
		c.branches = branches
	}
}

func New(opts ...Option) *Composer {
	c := &Composer{
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		clock:    clock.NewSystem(),
		clients:  Range{Min: 1, Max: 500},
		branches: Range{Min: 1, Max: 10},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose builds one order. It always returns at least one line item and
// never fails; missing catalog data is replaced with fallback values.
func (c *Composer) Compose(ctx context.Context, snap Snapshot, lookup ProductLookup, ticketID int64, cons Constraints) domain.Order {
	ctx, span := telemetry.Tracer.Start(ctx, "composer.compose")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	order := domain.Order{
		TicketID:  ticketID,
		Timestamp: c.clock.Now().Truncate(time.Second),
	}

	switch {
	case cons.ClientID != nil:
		order.ClientID = *cons.ClientID
	case len(snap.Clients) > 0:
		order.ClientID = snap.Clients[c.rng.IntN(len(snap.Clients))].ID
	default:
		order.ClientID = c.clients.pick(c.rng)
		degraded(ctx, "client", "no clients in catalog, using fallback id", "client_id", order.ClientID)
	}

	switch {
	case cons.BranchID != nil:
		order.BranchID = *cons.BranchID
	case len(snap.Branches) > 0:
		order.BranchID = snap.Branches[c.rng.IntN(len(snap.Branches))].ID
	default:
		order.BranchID = c.branches.pick(c.rng)
		degraded(ctx, "branch", "no branches in catalog, using fallback id", "branch_id", order.BranchID)
	}

	pool := c.productPool(ctx, lookup, order.BranchID)
	if len(pool) == 0 {
		degraded(ctx, "products", "no products available, using placeholder item", "branch_id", order.BranchID)
		order.LineItems = []domain.LineItem{{
			Quantity:  1,
			LineTotal: PlaceholderPrice,
			Name:      PlaceholderName,
		}}
	} else {
		order.LineItems = c.pickItems(pool)
	}

	total := decimal.Zero
	for _, li := range order.LineItems {
		total = total.Add(decimal.NewFromFloat(li.LineTotal))
	}
	order.Total = total.Round(2).InexactFloat64()

	order.PaymentMethod = domain.PaymentMethods[c.rng.IntN(len(domain.PaymentMethods))]
	if len(snap.Promotions) > 0 {
		promo := snap.Promotions[c.rng.IntN(len(snap.Promotions))]
		order.PromotionID = &promo
	}

	span.SetAttributes(
		attribute.Int64("ticket_id", order.TicketID),
		attribute.Int64("branch_id", order.BranchID),
		attribute.Int("items", len(order.LineItems)),
	)
	telemetry.OrderTotalAmount.Observe(order.Total)
	return order
}

func (c *Composer) productPool(ctx context.Context, lookup ProductLookup, branchID int64) []domain.Product {
	if lookup == nil {
		return nil
	}
	products, err := lookup.ListAvailableProducts(ctx, branchID)
	if err != nil {
		degraded(ctx, "catalog_error", "branch product lookup failed", "branch_id", branchID, "error", err)
	}
	if len(products) > 0 {
		return products
	}
	products, err = lookup.ListAllProducts(ctx)
	if err != nil {
		degraded(ctx, "catalog_error", "product lookup failed", "error", err)
	}
	return products
}

// pickItems draws up to three distinct products from pool. The pool is
// copied so the caller's slice is left alone.
func (c *Composer) pickItems(pool []domain.Product) []domain.LineItem {
	pool = append([]domain.Product(nil), pool...)
	k := min(len(pool), 1+c.rng.IntN(maxItemsPerOrder))

	items := make([]domain.LineItem, 0, k)
	for range k {
		i := c.rng.IntN(len(pool))
		p := pool[i]
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]

		qty := c.quantity(p.Stock)
		items = append(items, domain.LineItem{
			ProductID: p.ID,
			Quantity:  qty,
			LineTotal: lineTotal(p.UnitPrice, qty),
			Name:      p.Name,
		})
	}
	return items
}

func (c *Composer) quantity(stock int) int {
	if stock <= 1 {
		return 1
	}
	return 1 + c.rng.IntN(min(maxQuantity, stock))
}

func lineTotal(unitPrice float64, qty int) float64 {
	return decimal.NewFromFloat(unitPrice).
		Mul(decimal.NewFromInt(int64(qty))).
		Round(2).
		InexactFloat64()
}

func degraded(ctx context.Context, reason, msg string, args ...any) {
	telemetry.DegradedOrdersTotal.WithLabelValues(reason).Inc()
	slog.WarnContext(ctx, msg, args...)
}
