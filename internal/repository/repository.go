package repository

import (
	"gorm.io/gorm"

	"github.com/xGerart/odoo-sync-backend/internal/entity"
)

// Repositories bundles the persistence layer.
type Repositories struct {
	Invoice InvoiceRepository
	History HistoryRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Invoice: NewInvoiceRepository(db),
		History: NewHistoryRepository(db),
	}
}

// Migrate creates or updates the schema. The SET NULL constraint on
// sync_history.invoice_id is part of the schema contract: deleting a
// working invoice must never delete its history.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Invoice{},
		&entity.InvoiceItem{},
		&entity.SyncHistory{},
		&entity.SyncHistoryItem{},
	)
}
