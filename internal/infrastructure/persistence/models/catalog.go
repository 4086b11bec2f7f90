package models

import (
	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for catalog products
type ProductModel struct {
	BaseModel
	Name         string              `gorm:"type:varchar(200);not null;index"`
	Type         catalog.ProductType `gorm:"type:varchar(20);not null"`
	BaseUnit     string              `gorm:"type:varchar(20);not null"`
	UnitCost     decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	MinStock     decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	CurrentStock decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:   m.BaseModel.ToDomain(),
		Name:         m.Name,
		Type:         m.Type,
		BaseUnit:     m.BaseUnit,
		UnitCost:     m.UnitCost,
		MinStock:     m.MinStock,
		CurrentStock: m.CurrentStock,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{
		Name:         p.Name,
		Type:         p.Type,
		BaseUnit:     p.BaseUnit,
		UnitCost:     p.UnitCost,
		MinStock:     p.MinStock,
		CurrentStock: p.CurrentStock,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// WarehouseModel is the persistence model for warehouses
type WarehouseModel struct {
	BaseModel
	Code string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name string                `gorm:"type:varchar(200)"`
	Type catalog.WarehouseType `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// ToDomain converts the persistence model to a domain Warehouse
func (m *WarehouseModel) ToDomain() *catalog.Warehouse {
	return &catalog.Warehouse{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Name:       m.Name,
		Type:       m.Type,
	}
}

// WarehouseModelFromDomain creates a persistence model from a domain Warehouse
func WarehouseModelFromDomain(w *catalog.Warehouse) *WarehouseModel {
	m := &WarehouseModel{Code: w.Code, Name: w.Name, Type: w.Type}
	m.FromDomainBaseEntity(w.BaseEntity)
	return m
}

// RecipeModel is the persistence model for recipes
type RecipeModel struct {
	BaseModel
	ProductID   uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex"`
	Name        string                  `gorm:"type:varchar(200)"`
	YieldOut    decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	YieldUnit   string                  `gorm:"type:varchar(20)"`
	CostPrice   decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Ingredients []RecipeIngredientModel `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (RecipeModel) TableName() string {
	return "recipes"
}

// RecipeIngredientModel is one ordered line of a recipe
type RecipeIngredientModel struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RecipeID               uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position               int             `gorm:"not null"`
	ProductID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity               decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Unit                   string          `gorm:"type:varchar(20);not null"`
	LossCoefficientPercent decimal.Decimal `gorm:"type:decimal(8,4);not null"`
}

// TableName returns the table name for GORM
func (RecipeIngredientModel) TableName() string {
	return "recipe_ingredients"
}

// ToDomain converts the persistence model to a domain Recipe.
// Ingredients must be loaded ordered by position.
func (m *RecipeModel) ToDomain() *catalog.Recipe {
	ingredients := make([]catalog.RecipeIngredient, len(m.Ingredients))
	for i, ing := range m.Ingredients {
		ingredients[i] = catalog.RecipeIngredient{
			ProductID:              ing.ProductID,
			Quantity:               ing.Quantity,
			Unit:                   ing.Unit,
			LossCoefficientPercent: ing.LossCoefficientPercent,
		}
	}
	return &catalog.Recipe{
		BaseEntity:  m.BaseModel.ToDomain(),
		ProductID:   m.ProductID,
		Name:        m.Name,
		YieldOut:    m.YieldOut,
		YieldUnit:   m.YieldUnit,
		Ingredients: ingredients,
		CostPrice:   m.CostPrice,
	}
}

// RecipeModelFromDomain creates a persistence model from a domain Recipe
func RecipeModelFromDomain(r *catalog.Recipe) *RecipeModel {
	m := &RecipeModel{
		ProductID: r.ProductID,
		Name:      r.Name,
		YieldOut:  r.YieldOut,
		YieldUnit: r.YieldUnit,
		CostPrice: r.CostPrice,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	m.Ingredients = make([]RecipeIngredientModel, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		m.Ingredients[i] = RecipeIngredientModel{
			ID:                     uuid.New(),
			RecipeID:               r.ID,
			Position:               i,
			ProductID:              ing.ProductID,
			Quantity:               ing.Quantity,
			Unit:                   ing.Unit,
			LossCoefficientPercent: ing.LossCoefficientPercent,
		}
	}
	return m
}
