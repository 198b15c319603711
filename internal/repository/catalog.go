package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/nathanyu/order-fanout/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	queryClients = `SELECT id, nombre, COALESCE(email, '') AS email FROM Cliente`

	queryBranches = `SELECT id, pais, ciudad, direccion FROM Sucursal`

	queryAvailableProducts = `
		SELECT p.id, p.nombre, p.precio, s.cantidad
		FROM Producto p
		JOIN Stock s ON p.id = s.idProducto
		WHERE s.idSucursal = ? AND s.cantidad > 0`

	queryAllProducts = `SELECT id, nombre, precio FROM Producto`

	queryPromotionIDs = `SELECT id FROM Promocion`
)

// CatalogRepository reads clients, branches, products and promotions from
// the relational store. It never writes. A repository without a database
// returns empty results.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) configured() bool {
	return r != nil && r.db != nil
}

func (r *CatalogRepository) ListClients(ctx context.Context) ([]domain.Client, error) {
	if !r.configured() {
		return nil, nil
	}
	ctx, span := startSpan(ctx, "mysql.list_clients", "SELECT", "Cliente")
	defer span.End()

	var clients []domain.Client
	if err := r.db.SelectContext(ctx, &clients, queryClients); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list clients: %w", err)
	}
	span.SetAttributes(attribute.Int("result.count", len(clients)))
	return clients, nil
}

func (r *CatalogRepository) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	if !r.configured() {
		return nil, nil
	}
	ctx, span := startSpan(ctx, "mysql.list_branches", "SELECT", "Sucursal")
	defer span.End()

	var branches []domain.Branch
	if err := r.db.SelectContext(ctx, &branches, queryBranches); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list branches: %w", err)
	}
	span.SetAttributes(attribute.Int("result.count", len(branches)))
	return branches, nil
}

// ListAvailableProducts returns the products with positive stock at a branch.
func (r *CatalogRepository) ListAvailableProducts(ctx context.Context, branchID int64) ([]domain.Product, error) {
	if !r.configured() {
		return nil, nil
	}
	ctx, span := startSpan(ctx, "mysql.list_available_products", "SELECT", "Stock",
		attribute.Int64("branch_id", branchID))
	defer span.End()

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, r.db.Rebind(queryAvailableProducts), branchID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list products for branch %d: %w", branchID, err)
	}
	span.SetAttributes(attribute.Int("result.count", len(products)))
	return products, nil
}

// ListAllProducts returns every product with SyntheticStock as its level.
func (r *CatalogRepository) ListAllProducts(ctx context.Context) ([]domain.Product, error) {
	if !r.configured() {
		return nil, nil
	}
	ctx, span := startSpan(ctx, "mysql.list_all_products", "SELECT", "Producto")
	defer span.End()

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, queryAllProducts); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list products: %w", err)
	}
	for i := range products {
		products[i].Stock = domain.SyntheticStock
	}
	return products, nil
}

func (r *CatalogRepository) ListPromotionIDs(ctx context.Context) ([]int64, error) {
	if !r.configured() {
		return nil, nil
	}
	ctx, span := startSpan(ctx, "mysql.list_promotions", "SELECT", "Promocion")
	defer span.End()

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, queryPromotionIDs); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	return ids, nil
}

func startSpan(ctx context.Context, name, operation, table string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.system", "mysql"),
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
	)
	return dbTracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
}
