package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderValidate(t *testing.T) {
	valid := Order{TicketID: 1, ClientID: 4, BranchID: 2, LineItems: []LineItem{{ProductID: 3, Quantity: 1, LineTotal: 2}}}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		order Order
	}{
		{"zero ticket", Order{ClientID: 4, BranchID: 2, LineItems: valid.LineItems}},
		{"null client", Order{TicketID: 1, BranchID: 2, LineItems: valid.LineItems}},
		{"null branch", Order{TicketID: 1, ClientID: 4, LineItems: valid.LineItems}},
		{"no items", Order{TicketID: 1, ClientID: 4, BranchID: 2}},
		{"zero quantity", Order{TicketID: 1, ClientID: 4, BranchID: 2, LineItems: []LineItem{{ProductID: 3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.order.Validate(), ErrMalformedOrder)
		})
	}
}

func TestKnownItems(t *testing.T) {
	order := Order{LineItems: []LineItem{
		{ProductID: 0, Quantity: 1, Name: "Synthetic product"},
		{ProductID: 4, Quantity: 2},
	}}

	items := order.KnownItems()
	require.Len(t, items, 1)
	assert.Equal(t, int64(4), items[0].ProductID)
	assert.False(t, order.LineItems[0].HasProduct())
}

func TestOrderJSON_NullPromotion(t *testing.T) {
	data, err := json.Marshal(Order{TicketID: 1, PaymentMethod: PaymentCash})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"promocion_id":null`)
	assert.Contains(t, string(data), `"metodo_pago":"Cash"`)
}
