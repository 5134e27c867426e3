package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStock(t *testing.T) {
	tests := []struct {
		name    string
		current int
		delta   int
		policy  StockPolicy
		want    int
		wantErr error
	}{
		{"sale within stock", 5, -3, StockStrict, 2, nil},
		{"sale beyond stock", 1, -3, StockStrict, 1, ErrStockWouldGoNegative},
		{"adjustment clamps", 2, -5, StockClamp, 0, nil},
		{"restock to limit", MaxStock - 5, 5, StockClamp, MaxStock, nil},
		{"restock past limit", MaxStock - 5, 6, StockClamp, MaxStock - 5, ErrStockOutOfRange},
		{"return past limit", MaxStock, 1, StockStrict, MaxStock, ErrStockOutOfRange},
		{"huge delta", 1 << 30, math.MaxInt, StockClamp, 1 << 30, ErrStockOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStock(tt.current, tt.delta, tt.policy)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
