package domain

// SyntheticStock is the stock level assumed for products read without a
// per-branch stock row. It only bounds the quantity choice.
const SyntheticStock = 999

type Client struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"nombre" json:"name"`
	Email string `db:"email" json:"email"`
}

type Branch struct {
	ID      int64  `db:"id" json:"id"`
	Country string `db:"pais" json:"country"`
	City    string `db:"ciudad" json:"city"`
	Address string `db:"direccion" json:"address"`
}

// Product is a catalog product together with its stock at one branch.
// Stock <= 0 means the level is unknown.
type Product struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"nombre" json:"name"`
	UnitPrice float64 `db:"precio" json:"unit_price"`
	Stock     int     `db:"cantidad" json:"stock_qty"`
}
