// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain types to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain types should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain documents and persistence models
// 4. Repositories use persistence models for database operations
//
// Structure:
// - base.go: Base persistence model fields shared by table models
// - registry.go: Business record partition rows and audit log entries
package models
