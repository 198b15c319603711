package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func TestCatalog_ListClients(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(queryClients)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "email"}).
			AddRow(1, "Ana García", "ana@example.com").
			AddRow(2, "Luis Pérez", ""))

	clients, err := NewCatalogRepository(db).ListClients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, domain.Client{ID: 1, Name: "Ana García", Email: "ana@example.com"}, clients[0])
	assert.Empty(t, clients[1].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalog_ListAvailableProducts(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.idSucursal = ? AND s.cantidad > 0")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "precio", "cantidad"}).
			AddRow(5, "Latte", 4.5, 12))

	products, err := NewCatalogRepository(db).ListAvailableProducts(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []domain.Product{{ID: 5, Name: "Latte", UnitPrice: 4.5, Stock: 12}}, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalog_ListAllProductsUsesSyntheticStock(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(queryAllProducts)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "precio"}).
			AddRow(1, "Espresso", 2.0).
			AddRow(2, "Muffin", 3.0))

	products, err := NewCatalogRepository(db).ListAllProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	for _, p := range products {
		assert.Equal(t, domain.SyntheticStock, p.Stock)
	}
}

func TestCatalog_ListPromotionIDs(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(queryPromotionIDs)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4).AddRow(9))

	ids, err := NewCatalogRepository(db).ListPromotionIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 9}, ids)
}

func TestCatalog_QueryErrorIsReturned(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(queryBranches)).WillReturnError(errors.New("table missing"))

	branches, err := NewCatalogRepository(db).ListBranches(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "list branches")
	assert.Nil(t, branches)
}

func TestCatalog_NoDatabase(t *testing.T) {
	repo := NewCatalogRepository(nil)
	ctx := context.Background()

	clients, err := repo.ListClients(ctx)
	assert.NoError(t, err)
	assert.Empty(t, clients)

	products, err := repo.ListAvailableProducts(ctx, 1)
	assert.NoError(t, err)
	assert.Empty(t, products)

	ids, err := repo.ListPromotionIDs(ctx)
	assert.NoError(t, err)
	assert.Empty(t, ids)
}
