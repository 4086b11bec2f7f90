// Package models contains GORM persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// - base.go: BaseModel and AggregateModel
// - catalog.go: products, warehouses, recipes and their ingredients
// - inventory.go: stock batches, documents and document lines
// - audit.go: audit log entries
// - outbox.go: outbox pattern model for event delivery
package models
