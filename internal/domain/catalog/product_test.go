package catalog

import (
	"testing"

	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_UpdateBaseUnit(t *testing.T) {
	p, err := NewProduct("Flour", ProductTypeIngredient, " KG ")
	require.NoError(t, err)
	assert.Equal(t, "kg", p.BaseUnit)

	p.CurrentStock = decimal.RequireFromString("3")
	err = p.Update("Flour", ProductTypeIngredient, "g")
	assert.ErrorIs(t, err, ErrBaseUnitInUse)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, "kg", p.BaseUnit)

	// same unit with stock is a plain rename
	require.NoError(t, p.Update("Wheat flour", ProductTypeIngredient, "kg"))
	assert.Equal(t, "Wheat flour", p.Name)

	p.CurrentStock = decimal.Zero
	require.NoError(t, p.Update("Wheat flour", ProductTypeIngredient, "g"))
	assert.Equal(t, "g", p.BaseUnit)
}
