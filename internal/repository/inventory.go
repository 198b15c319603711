package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/nathanyu/order-fanout/internal/fanout"
	"go.opentelemetry.io/otel/attribute"
)

const decrementStock = `UPDATE Stock SET cantidad = GREATEST(0, cantidad - ?) WHERE idSucursal = ? AND idProducto = ?`

// InventoryRepository decrements per-branch stock for sold products.
type InventoryRepository struct {
	db *sqlx.DB
}

func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) Name() string { return "inventory" }

// Write lowers stock by each line's quantity, clamping at zero. Lines
// without a catalog product are left alone.
func (r *InventoryRepository) Write(ctx context.Context, order domain.Order) error {
	if r == nil || r.db == nil {
		return domain.ErrStoreNotConfigured
	}
	items := order.KnownItems()
	if len(items) == 0 {
		return fanout.Skip("order has no catalog products")
	}

	ctx, span := startSpan(ctx, "mysql.decrement_stock", "UPDATE", "Stock",
		attribute.Int64("branch_id", order.BranchID),
		attribute.Int("items", len(items)))
	defer span.End()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("begin stock tx: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.Rebind(decrementStock)
	for _, li := range items {
		if _, err := tx.ExecContext(ctx, stmt, li.Quantity, order.BranchID, li.ProductID); err != nil {
			span.RecordError(err)
			return fmt.Errorf("decrement stock for product %d: %w", li.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("commit stock tx: %w", err)
	}
	return nil
}
