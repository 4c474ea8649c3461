// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// of ORM concerns.
//
// Structure:
// - base.go: BaseModel shared by entity tables
// - attachment.go: settings, folders, files, submitted document snapshots and attachment jobs
package models
