package composer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nathanyu/order-fanout/internal/clock"
	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	clients    []domain.Client
	branches   []domain.Branch
	promotions []int64
	byBranch   map[int64][]domain.Product
	all        []domain.Product
	err        error

	branchCalls int
	allCalls    int
}

func (f *fakeCatalog) ListClients(context.Context) ([]domain.Client, error) {
	return f.clients, f.err
}

func (f *fakeCatalog) ListBranches(context.Context) ([]domain.Branch, error) {
	return f.branches, f.err
}

func (f *fakeCatalog) ListPromotionIDs(context.Context) ([]int64, error) {
	return f.promotions, f.err
}

func (f *fakeCatalog) ListAvailableProducts(_ context.Context, branchID int64) ([]domain.Product, error) {
	f.branchCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byBranch[branchID], nil
}

func (f *fakeCatalog) ListAllProducts(context.Context) ([]domain.Product, error) {
	f.allCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.all, nil
}

var testNow = time.Date(2025, 6, 1, 9, 15, 0, 0, time.UTC)

func newTestComposer(seed uint64) *Composer {
	return New(WithSeed(seed), WithClock(clock.NewFixed(testNow)))
}

func richCatalog() *fakeCatalog {
	return &fakeCatalog{
		clients:    []domain.Client{{ID: 1}, {ID: 2}, {ID: 3}},
		branches:   []domain.Branch{{ID: 10}, {ID: 20}},
		promotions: []int64{100, 200},
		byBranch: map[int64][]domain.Product{
			10: {
				{ID: 1, Name: "Latte", UnitPrice: 4.45, Stock: 50},
				{ID: 2, Name: "Espresso", UnitPrice: 1.99, Stock: 2},
				{ID: 3, Name: "Muffin", UnitPrice: 3.10, Stock: 1},
				{ID: 4, Name: "Cookie", UnitPrice: 0.35, Stock: 7},
			},
			20: {
				{ID: 5, Name: "Tea", UnitPrice: 2.05, Stock: 3},
				{ID: 6, Name: "Bagel", UnitPrice: 3.33, Stock: 0},
			},
		},
	}
}

func TestCompose_TotalsAndDistinctProducts(t *testing.T) {
	cat := richCatalog()
	c := newTestComposer(1)
	ctx := context.Background()

	for i := range 500 {
		order := c.Compose(ctx, LoadSnapshot(ctx, cat), cat, int64(i+1), Constraints{})

		require.NotEmpty(t, order.LineItems)
		assert.LessOrEqual(t, len(order.LineItems), 3)

		sum := decimal.Zero
		seen := map[int64]bool{}
		for _, li := range order.LineItems {
			sum = sum.Add(decimal.NewFromFloat(li.LineTotal))
			assert.False(t, seen[li.ProductID], "duplicate product %d", li.ProductID)
			seen[li.ProductID] = true
		}
		assert.Equal(t, sum.Round(2).InexactFloat64(), order.Total)
		assert.GreaterOrEqual(t, order.Total, 0.0)
		assert.Equal(t, testNow, order.Timestamp)
		assert.Contains(t, domain.PaymentMethods, order.PaymentMethod)
		require.NotNil(t, order.PromotionID)
		assert.Contains(t, []int64{100, 200}, *order.PromotionID)
	}
}

func TestCompose_QuantityBoundedByStock(t *testing.T) {
	cat := richCatalog()
	c := newTestComposer(2)
	ctx := context.Background()

	stock := map[int64]int{}
	for _, ps := range cat.byBranch {
		for _, p := range ps {
			stock[p.ID] = p.Stock
		}
	}

	for i := range 500 {
		order := c.Compose(ctx, LoadSnapshot(ctx, cat), cat, int64(i+1), Constraints{})
		for _, li := range order.LineItems {
			s := stock[li.ProductID]
			assert.GreaterOrEqual(t, li.Quantity, 1)
			if s > 1 {
				assert.LessOrEqual(t, li.Quantity, min(3, s))
			} else {
				assert.Equal(t, 1, li.Quantity)
			}
		}
	}
}

func TestCompose_SingleChoiceCatalogIsDeterministic(t *testing.T) {
	cat := &fakeCatalog{
		clients:  []domain.Client{{ID: 42}},
		branches: []domain.Branch{{ID: 7}},
		byBranch: map[int64][]domain.Product{
			7: {{ID: 9, Name: "Latte", UnitPrice: 4.5, Stock: 1}},
		},
	}
	c := newTestComposer(3)
	ctx := context.Background()

	for i := range 100 {
		order := c.Compose(ctx, LoadSnapshot(ctx, cat), cat, int64(i+1), Constraints{})
		assert.Equal(t, int64(7), order.BranchID)
		assert.Equal(t, int64(42), order.ClientID)
		require.Len(t, order.LineItems, 1)
		assert.Equal(t, int64(9), order.LineItems[0].ProductID)
		assert.Equal(t, 1, order.LineItems[0].Quantity)
		assert.Equal(t, 4.5, order.Total)
		assert.Nil(t, order.PromotionID)
	}
}

func TestCompose_EmptyCatalogUsesPlaceholder(t *testing.T) {
	cat := &fakeCatalog{}
	c := New(WithSeed(4), WithFallbackRanges(Range{Min: 1, Max: 500}, Range{Min: 1, Max: 10}))
	ctx := context.Background()

	for i := range 50 {
		order := c.Compose(ctx, LoadSnapshot(ctx, cat), cat, int64(i+1), Constraints{})

		require.Len(t, order.LineItems, 1)
		li := order.LineItems[0]
		assert.False(t, li.HasProduct())
		assert.Equal(t, PlaceholderName, li.Name)
		assert.Equal(t, 1, li.Quantity)
		assert.Equal(t, 3.00, li.LineTotal)
		assert.Equal(t, 3.00, order.Total)

		assert.GreaterOrEqual(t, order.ClientID, int64(1))
		assert.LessOrEqual(t, order.ClientID, int64(500))
		assert.GreaterOrEqual(t, order.BranchID, int64(1))
		assert.LessOrEqual(t, order.BranchID, int64(10))
	}
}

func TestCompose_FallsBackToAllProducts(t *testing.T) {
	cat := &fakeCatalog{
		branches: []domain.Branch{{ID: 1}},
		all:      []domain.Product{{ID: 8, Name: "Sandwich", UnitPrice: 6, Stock: domain.SyntheticStock}},
	}
	c := newTestComposer(5)

	order := c.Compose(context.Background(), LoadSnapshot(context.Background(), cat), cat, 1, Constraints{})

	require.Len(t, order.LineItems, 1)
	assert.Equal(t, int64(8), order.LineItems[0].ProductID)
	assert.LessOrEqual(t, order.LineItems[0].Quantity, 3)
	assert.Equal(t, 1, cat.branchCalls)
	assert.Equal(t, 1, cat.allCalls)
}

func TestCompose_CatalogErrorsDegrade(t *testing.T) {
	cat := &fakeCatalog{err: errors.New("connection refused")}
	c := newTestComposer(6)
	ctx := context.Background()

	snap := LoadSnapshot(ctx, cat)
	assert.Empty(t, snap.Clients)
	assert.Empty(t, snap.Branches)
	assert.Empty(t, snap.Promotions)

	order := c.Compose(ctx, snap, cat, 99, Constraints{})
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, PlaceholderName, order.LineItems[0].Name)
	assert.Equal(t, int64(99), order.TicketID)
}

func TestCompose_Constraints(t *testing.T) {
	cat := richCatalog()
	c := newTestComposer(7)
	client, branch := int64(555), int64(20)

	order := c.Compose(context.Background(), LoadSnapshot(context.Background(), cat), cat, 1,
		Constraints{ClientID: &client, BranchID: &branch})

	assert.Equal(t, int64(555), order.ClientID)
	assert.Equal(t, int64(20), order.BranchID)
	for _, li := range order.LineItems {
		assert.Contains(t, []int64{5, 6}, li.ProductID)
	}
}

func TestCompose_NilLookup(t *testing.T) {
	order := newTestComposer(8).Compose(context.Background(), Snapshot{}, nil, 1, Constraints{})
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, 3.00, order.Total)
}

func TestCompose_TimestampTruncatedToSecond(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 123456789, time.UTC)
	c := New(WithSeed(9), WithClock(clock.NewFixed(now)))

	order := c.Compose(context.Background(), Snapshot{}, nil, 1, Constraints{})
	assert.Equal(t, time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC), order.Timestamp)
	assert.Zero(t, order.Timestamp.Nanosecond())
}

func TestLineTotalRounding(t *testing.T) {
	assert.Equal(t, 0.35, lineTotal(0.35, 1))
	assert.Equal(t, 5.97, lineTotal(1.99, 3))
	assert.Equal(t, 0.3, lineTotal(0.1, 3))
}
