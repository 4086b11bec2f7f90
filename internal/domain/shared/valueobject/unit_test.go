package valueobject

import (
	"errors"
	"testing"

	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"KG", UnitKG},
		{" g ", UnitG},
		{"Grams", UnitG},
		{"litre", UnitL},
		{"ML", UnitML},
		{"piece", UnitPCS},
		{"bottle", "bottle"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeUnit(tt.in))
		})
	}
}

func TestUnitRegistry_Convert(t *testing.T) {
	r := DefaultUnitRegistry()

	tests := []struct {
		name string
		qty  string
		from string
		to   string
		want string
	}{
		{"grams to kilograms", "80", "g", "kg", "0.08"},
		{"kilograms to grams", "0.25", "kg", "g", "250"},
		{"millilitres to litres", "330", "ml", "l", "0.33"},
		{"litres to millilitres", "1.5", "L", "ml", "1500"},
		{"identity", "3", "pcs", "PCS", "3"},
		{"identity for unregistered unit", "2", "bottle", "bottle", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Convert(decimal.RequireFromString(tt.qty), tt.from, tt.to)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestUnitRegistry_UnknownPair(t *testing.T) {
	r := DefaultUnitRegistry()

	_, err := r.Convert(decimal.NewFromInt(1), "kg", "ml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrUnitConversionUnknown))
	assert.False(t, r.CanConvert("pcs", "g"))
	assert.True(t, r.CanConvert("kg", "g"))
}

func TestUnitRegistry_Register(t *testing.T) {
	r := NewUnitRegistry()

	require.NoError(t, r.Register("bottle", "ml", decimal.NewFromInt(500)))
	got, err := r.Convert(decimal.NewFromInt(250), "ml", "bottle")
	require.NoError(t, err)
	assert.Equal(t, "0.5", got.String())

	assert.Error(t, r.Register("g", "g", decimal.NewFromInt(1)))
	assert.Error(t, r.Register("g", "kg", decimal.Zero))
	assert.Error(t, r.Register("", "kg", decimal.NewFromInt(1)))
}
