package repository

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	SeedClients  = 10
	SeedProducts = 8
	SeedBranches = 5
	SeedStockQty = 100
)

var (
	seedFirstNames = []string{"Ana", "Juan", "María", "Luis", "Sofía", "Carlos", "Lucía", "Pedro", "Marta", "Diego", "Laura", "Javier"}
	seedLastNames  = []string{"García", "Pérez", "Rodríguez", "Gómez", "Fernández", "López", "Martínez", "Sánchez", "Romero", "Torres"}

	seedProducts = []struct {
		name  string
		kind  string
		price float64
	}{
		{"Latte", "Bebida Caliente", 4.5},
		{"Espresso", "Bebida Caliente", 2.0},
		{"Muffin", "Panadería", 3.0},
		{"Bagel", "Panadería", 3.0},
		{"Tea", "Bebida Caliente", 2.0},
		{"Cookie", "Snack", 1.5},
		{"Frappuccino", "Bebida Fria", 5.5},
		{"Sandwich", "Desayuno", 6.0},
	}
)

// CatalogSeeder tops up the relational catalog so a fresh demo has
// clients, products, branches and stock to draw from.
type CatalogSeeder struct {
	db  *sqlx.DB
	rng *rand.Rand
	now func() time.Time
}

func NewCatalogSeeder(db *sqlx.DB) *CatalogSeeder {
	return &CatalogSeeder{
		db:  db,
		rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		now: time.Now,
	}
}

// Seed inserts whatever rows are missing. Each table is handled on its
// own; a failure on one is logged and the rest still run.
func (s *CatalogSeeder) Seed(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	var failed []string
	for _, step := range []struct {
		table string
		fn    func(context.Context) (int, error)
	}{
		{"Cliente", s.seedClients},
		{"Producto", s.seedProducts},
		{"Sucursal", s.seedBranches},
		{"Stock", s.seedStock},
	} {
		n, err := step.fn(ctx)
		if err != nil {
			slog.WarnContext(ctx, "catalog seed step failed", "table", step.table, "error", err)
			failed = append(failed, step.table)
			continue
		}
		if n > 0 {
			slog.InfoContext(ctx, "catalog seeded", "table", step.table, "inserted", n)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("seed catalog: failed tables %s", strings.Join(failed, ", "))
	}
	return nil
}

func (s *CatalogSeeder) count(ctx context.Context, table string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table)
	return n, err
}

func (s *CatalogSeeder) seedClients(ctx context.Context) (int, error) {
	have, err := s.count(ctx, "Cliente")
	if err != nil {
		return 0, err
	}
	stmt := s.db.Rebind(`INSERT INTO Cliente (nombre, email, pais, telefono, domicilio, saldo, stars_acumuladas, fechaRegistro, estadoMembresia)
		VALUES (?, ?, 'Argentina', '0000', 'Domicilio', 0.0, 0, ?, 'Activo')`)
	inserted := 0
	for i := have + 1; i <= SeedClients; i++ {
		first := seedFirstNames[s.rng.IntN(len(seedFirstNames))]
		last := seedLastNames[s.rng.IntN(len(seedLastNames))]
		email := fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i)
		if _, err := s.db.ExecContext(ctx, stmt, first+" "+last, email, s.now()); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (s *CatalogSeeder) seedProducts(ctx context.Context) (int, error) {
	have, err := s.count(ctx, "Producto")
	if err != nil {
		return 0, err
	}
	if have >= SeedProducts {
		return 0, nil
	}
	stmt := s.db.Rebind(`INSERT INTO Producto (nombre, tipo, precio) VALUES (?, ?, ?)`)
	inserted := 0
	for _, p := range seedProducts[have:SeedProducts] {
		if _, err := s.db.ExecContext(ctx, stmt, p.name, p.kind, p.price); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (s *CatalogSeeder) seedBranches(ctx context.Context) (int, error) {
	have, err := s.count(ctx, "Sucursal")
	if err != nil {
		return 0, err
	}
	stmt := s.db.Rebind(`INSERT INTO Sucursal (pais, ciudad, direccion, horario, capacidad) VALUES ('Argentina', ?, ?, '8-20', 30)`)
	inserted := 0
	for i := have + 1; i <= SeedBranches; i++ {
		if _, err := s.db.ExecContext(ctx, stmt, fmt.Sprintf("Ciudad_%d", i), fmt.Sprintf("Calle %d", i)); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// seedStock gives every branch and product pair a stock row, but only when
// the Stock table is empty so existing levels are never reset.
func (s *CatalogSeeder) seedStock(ctx context.Context) (int, error) {
	have, err := s.count(ctx, "Stock")
	if err != nil || have > 0 {
		return 0, err
	}

	var branchIDs, productIDs []int64
	if err := s.db.SelectContext(ctx, &branchIDs, "SELECT id FROM Sucursal"); err != nil {
		return 0, err
	}
	if err := s.db.SelectContext(ctx, &productIDs, "SELECT id FROM Producto"); err != nil {
		return 0, err
	}

	stmt := s.db.Rebind(`INSERT INTO Stock (idSucursal, idProducto, cantidad) VALUES (?, ?, ?)`)
	inserted := 0
	for _, b := range branchIDs {
		for _, p := range productIDs {
			if _, err := s.db.ExecContext(ctx, stmt, b, p, SeedStockQty); err != nil {
				return inserted, err
			}
			inserted++
		}
	}
	return inserted, nil
}
