package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ProductType classifies a catalog product
type ProductType string

const (
	ProductTypeIngredient  ProductType = "ingredient"
	ProductTypeSemiProduct ProductType = "semi_product"
	ProductTypeDish        ProductType = "dish"
	ProductTypePackage     ProductType = "package"
	ProductTypeAlcohol     ProductType = "alcohol"
)

// IsValid reports whether t is a known product type
func (t ProductType) IsValid() bool {
	switch t {
	case ProductTypeIngredient, ProductTypeSemiProduct, ProductTypeDish, ProductTypePackage, ProductTypeAlcohol:
		return true
	}
	return false
}

// Product is a catalog item as seen by the ledger.
// CurrentStock is a cache of the sum of all batches across warehouses and is
// only written by the posting engine.
type Product struct {
	shared.BaseEntity
	Name         string
	Type         ProductType
	BaseUnit     string
	UnitCost     decimal.Decimal // per base unit
	MinStock     decimal.Decimal
	CurrentStock decimal.Decimal
}

// NewProduct creates a new product
func NewProduct(name string, productType ProductType, baseUnit string) (*Product, error) {
	p := &Product{
		BaseEntity:   shared.NewBaseEntity(),
		UnitCost:     decimal.Zero,
		MinStock:     decimal.Zero,
		CurrentStock: decimal.Zero,
	}
	if err := p.Update(name, productType, baseUnit); err != nil {
		return nil, err
	}
	return p, nil
}

// ErrBaseUnitInUse rejects a base unit change while batches are stored in
// the old unit
var ErrBaseUnitInUse = shared.NewDomainError(shared.CodeInvalidState, "base unit cannot change while the product holds stock")

// Update changes descriptive fields. The base unit is fixed while the
// stock cache is non-zero.
func (p *Product) Update(name string, productType ProductType, baseUnit string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError(shared.CodeInvalidInput, "product name cannot exceed 200 characters")
	}
	if !productType.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "unknown product type: "+string(productType))
	}
	unit := valueobject.NormalizeUnit(baseUnit)
	if unit == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "base unit cannot be empty")
	}

	if unit != p.BaseUnit && !p.CurrentStock.IsZero() {
		return ErrBaseUnitInUse
	}

	p.Name = name
	p.Type = productType
	p.BaseUnit = unit
	p.Touch()
	return nil
}

// SetUnitCost sets the cost per base unit and reports whether it changed
func (p *Product) SetUnitCost(cost decimal.Decimal) (bool, error) {
	if cost.IsNegative() {
		return false, shared.NewDomainError(shared.CodeInvalidInput, "unit cost cannot be negative")
	}
	if p.UnitCost.Equal(cost) {
		return false, nil
	}
	p.UnitCost = cost
	p.Touch()
	return true, nil
}

// SetMinStock sets the low-stock threshold
func (p *Product) SetMinStock(minStock decimal.Decimal) error {
	if minStock.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "minimum stock cannot be negative")
	}
	p.MinStock = minStock
	p.Touch()
	return nil
}

// IsBelowMinStock reports whether the cached stock is under the threshold.
// A zero threshold disables the check.
func (p *Product) IsBelowMinStock() bool {
	return p.MinStock.IsPositive() && p.CurrentStock.LessThan(p.MinStock)
}

// ProductWithID returns a product carrying a caller supplied identifier.
// Products are owned by the catalog collaborator, so the ledger keeps its ids.
func ProductWithID(id uuid.UUID, name string, productType ProductType, baseUnit string) (*Product, error) {
	p, err := NewProduct(name, productType, baseUnit)
	if err != nil {
		return nil, err
	}
	if id != uuid.Nil {
		p.ID = id
	}
	return p, nil
}
