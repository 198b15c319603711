package domain

import "time"

// PaymentMethod is how a synthetic purchase was paid.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "Cash"
	PaymentCard         PaymentMethod = "Card"
	PaymentMobileWallet PaymentMethod = "MobileWallet"
)

// PaymentMethods lists every accepted payment method.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentMobileWallet}

// Order is one synthetic purchase. It is built once by the composer,
// handed to the fanout writer and then discarded.
type Order struct {
	TicketID      int64         `json:"ticket_id"`
	BranchID      int64         `json:"sucursal_id"`
	ClientID      int64         `json:"cliente_id"`
	Timestamp     time.Time     `json:"fecha"`
	Total         float64       `json:"total"`
	PaymentMethod PaymentMethod `json:"metodo_pago"`
	PromotionID   *int64        `json:"promocion_id"`
	LineItems     []LineItem    `json:"detalles"`
}

// LineItem is one product line. LineTotal is unit price times quantity,
// rounded to cents. ProductID 0 marks the placeholder item.
type LineItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"cantidad"`
	LineTotal float64 `json:"precio"`
	Name      string  `json:"nombre,omitempty"`
}

// HasProduct reports whether the line references a catalog product.
func (li LineItem) HasProduct() bool {
	return li.ProductID > 0
}

// KnownItems returns the line items that reference catalog products.
func (o Order) KnownItems() []LineItem {
	items := make([]LineItem, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		if li.HasProduct() {
			items = append(items, li)
		}
	}
	return items
}

// Validate checks the shape of an order received from outside the process.
func (o Order) Validate() error {
	if o.TicketID <= 0 {
		return ErrMalformedOrder
	}
	if o.ClientID <= 0 || o.BranchID <= 0 {
		return ErrMalformedOrder
	}
	if len(o.LineItems) == 0 {
		return ErrMalformedOrder
	}
	for _, li := range o.LineItems {
		if li.Quantity < 1 {
			return ErrMalformedOrder
		}
	}
	return nil
}
