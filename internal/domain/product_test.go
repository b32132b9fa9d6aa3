package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProductLowStock(t *testing.T) {
	tests := []struct {
		quantity  int
		threshold int
		want      bool
	}{
		{3, 5, true},
		{5, 5, true},
		{6, 5, false},
		{0, 5, true},
		{-2, 5, true},
		{10, 10, true},
	}

	for _, tt := range tests {
		p := Product{Quantity: tt.quantity}
		assert.Equal(t, tt.want, p.LowStock(tt.threshold),
			"quantity=%d threshold=%d", tt.quantity, tt.threshold)
	}
}

func TestSaleRecalcTotal(t *testing.T) {
	unit, _ := decimal.NewFromString("10.00")
	s := Sale{Quantity: 2, UnitPrice: unit}
	s.RecalcTotal()
	assert.Equal(t, "20.00", s.TotalPrice.StringFixed(2))

	s.Quantity = 7
	s.RecalcTotal()
	assert.Equal(t, "70.00", s.TotalPrice.StringFixed(2))

	s.UnitPrice, _ = decimal.NewFromString("3.33")
	s.RecalcTotal()
	assert.Equal(t, "23.31", s.TotalPrice.StringFixed(2))
}
