package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateFinalBill_BasePlanOnly(t *testing.T) {
	bill := CalculateFinalBill(999)

	assert.Equal(t, 999.0, bill.Subtotal)
	assert.Equal(t, 180.0, bill.GSTAmount) // 179.82 rounds up
	assert.Equal(t, 1179.0, bill.Total)
}

func TestCalculateFinalBill_WithOverage(t *testing.T) {
	// 999 base + 30 excess refunds at 15 each
	bill := CalculateFinalBill(999 + 30*15)

	assert.Equal(t, 1449.0, bill.Subtotal)
	assert.Equal(t, 261.0, bill.GSTAmount) // 260.82 rounds up
	assert.Equal(t, 1710.0, bill.Total)
}

func TestCalculateFinalBill_RoundsHalfUp(t *testing.T) {
	// 250 * 0.18 = 45.0 exactly
	assert.Equal(t, 45.0, CalculateFinalBill(250).GSTAmount)

	// 947.22 * 0.18 = 170.4996 -> 170
	assert.Equal(t, 170.0, CalculateFinalBill(947.22).GSTAmount)

	// 836.11 * 0.18 = 150.4998 -> 150; half-up boundary sits at .5
	assert.Equal(t, 150.0, CalculateFinalBill(836.11).GSTAmount)

	// 2500 * 0.18 = 450.0
	assert.Equal(t, 450.0, CalculateFinalBill(2500).GSTAmount)
}

func TestCalculateFinalBill_TotalIsSubtotalPlusGST(t *testing.T) {
	for _, base := range []float64{0, 1, 999, 2499, 4999, 12345.67} {
		bill := CalculateFinalBill(base)
		assert.Equal(t, bill.Subtotal+bill.GSTAmount, bill.Total, "base %.2f", base)
		assert.Equal(t, base, bill.Subtotal)
		assert.GreaterOrEqual(t, bill.GSTAmount, 0.0)
	}
}

func TestCalculateFinalBill_ZeroBase(t *testing.T) {
	bill := CalculateFinalBill(0)
	assert.Equal(t, 0.0, bill.Subtotal)
	assert.Equal(t, 0.0, bill.GSTAmount)
	assert.Equal(t, 0.0, bill.Total)
}
