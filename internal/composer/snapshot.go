package composer

import (
	"context"

	"github.com/nathanyu/order-fanout/internal/domain"
)

// Snapshot is the part of the catalog read once per composition.
type Snapshot struct {
	Clients    []domain.Client
	Branches   []domain.Branch
	Promotions []int64
}

type CatalogReader interface {
	ListClients(ctx context.Context) ([]domain.Client, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)
	ListPromotionIDs(ctx context.Context) ([]int64, error)
}

// Catalog is everything the composer reads.
type Catalog interface {
	CatalogReader
	ProductLookup
}

// LoadSnapshot reads clients, branches and promotions. A failed read
// leaves that part empty and the composer falls back for it.
func LoadSnapshot(ctx context.Context, reader CatalogReader) Snapshot {
	var snap Snapshot
	if reader == nil {
		return snap
	}
	var err error
	if snap.Clients, err = reader.ListClients(ctx); err != nil {
		degraded(ctx, "catalog_error", "client lookup failed", "error", err)
	}
	if snap.Branches, err = reader.ListBranches(ctx); err != nil {
		degraded(ctx, "catalog_error", "branch lookup failed", "error", err)
	}
	if snap.Promotions, err = reader.ListPromotionIDs(ctx); err != nil {
		degraded(ctx, "catalog_error", "promotion lookup failed", "error", err)
	}
	return snap
}
