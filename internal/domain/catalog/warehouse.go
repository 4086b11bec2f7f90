package catalog

import (
	"strings"

	"github.com/kitchenledger/backend/internal/domain/shared"
)

// WarehouseType classifies a storage location
type WarehouseType string

const (
	WarehouseTypeMain    WarehouseType = "main"
	WarehouseTypeKitchen WarehouseType = "kitchen"
	WarehouseTypeBar     WarehouseType = "bar"
	WarehouseTypeDraft   WarehouseType = "draft"
)

// Warehouse is a storage location. The ledger never modifies it.
type Warehouse struct {
	shared.BaseEntity
	Code string
	Name string
	Type WarehouseType
}

// NewWarehouse creates a warehouse
func NewWarehouse(code, name string, warehouseType WarehouseType) (*Warehouse, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "warehouse code cannot be empty")
	}
	switch warehouseType {
	case WarehouseTypeMain, WarehouseTypeKitchen, WarehouseTypeBar, WarehouseTypeDraft:
	default:
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "unknown warehouse type: "+string(warehouseType))
	}
	return &Warehouse{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       strings.TrimSpace(name),
		Type:       warehouseType,
	}, nil
}
