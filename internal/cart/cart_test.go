package cart

import (
	"testing"

	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	tests := []struct {
		name     string
		lines    []Line
		discount string
		fee      string
		rate     string
		want     Totals
	}{
		{
			name:     "plain basket",
			lines:    []Line{{ProductID: a, Quantity: 2, UnitPrice: d("12.50")}, {ProductID: b, Quantity: 1, UnitPrice: d("4.99")}},
			discount: "0", fee: "0", rate: "0",
			want: Totals{Subtotal: d("29.99"), Discount: d("0"), DeliveryFee: d("0"), Tax: d("0"), Total: d("29.99")},
		},
		{
			name:     "discount fee and tax",
			lines:    []Line{{ProductID: a, Quantity: 3, UnitPrice: d("10")}},
			discount: "5", fee: "15", rate: "0.125",
			want: Totals{Subtotal: d("30"), Discount: d("5"), DeliveryFee: d("15"), Tax: d("3.13"), Total: d("43.13")},
		},
		{
			name:     "discount capped at subtotal",
			lines:    []Line{{ProductID: a, Quantity: 1, UnitPrice: d("8")}},
			discount: "20", fee: "10", rate: "0.15",
			want: Totals{Subtotal: d("8"), Discount: d("8"), DeliveryFee: d("10"), Tax: d("0"), Total: d("10")},
		},
		{
			name:     "half rounds up",
			lines:    []Line{{ProductID: a, Quantity: 1, UnitPrice: d("0.125")}},
			discount: "0", fee: "0", rate: "0",
			want: Totals{Subtotal: d("0.13"), Discount: d("0"), DeliveryFee: d("0"), Tax: d("0"), Total: d("0.13")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.lines, d(tt.discount), d(tt.fee), d(tt.rate))
			require.NoError(t, err)
			assert.True(t, tt.want.Subtotal.Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, tt.want.Discount.Equal(got.Discount), "discount %s", got.Discount)
			assert.True(t, tt.want.DeliveryFee.Equal(got.DeliveryFee), "fee %s", got.DeliveryFee)
			assert.True(t, tt.want.Tax.Equal(got.Tax), "tax %s", got.Tax)
			assert.True(t, tt.want.Total.Equal(got.Total), "total %s", got.Total)

			sum := decimal.Zero
			for _, l := range got.Lines {
				sum = sum.Add(l.LineTotal)
			}
			assert.True(t, sum.Equal(got.Subtotal))
			assert.True(t, got.Total.Equal(got.Subtotal.Sub(got.Discount).Add(got.DeliveryFee).Add(got.Tax)))
		})
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	a := uuid.New()
	_, err := Compute(nil, decimal.Zero, decimal.Zero, decimal.Zero)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = Compute([]Line{{ProductID: a, Quantity: 0, UnitPrice: d("1")}}, decimal.Zero, decimal.Zero, decimal.Zero)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = Compute([]Line{{ProductID: a, Quantity: 1, UnitPrice: d("1")}}, d("-1"), decimal.Zero, decimal.Zero)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestMerge(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	got := Merge([]Line{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 2}, {ProductID: a, Quantity: 3}})
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ProductID)
	assert.Equal(t, 4, got[0].Quantity)
	assert.Equal(t, 2, got[1].Quantity)
}
