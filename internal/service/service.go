package service

import (
	"go.uber.org/zap"

	"github.com/xGerart/odoo-sync-backend/internal/config"
	"github.com/xGerart/odoo-sync-backend/internal/erp"
	"github.com/xGerart/odoo-sync-backend/internal/repository"
)

// Services bundles the business layer.
type Services struct {
	Invoice       *InvoiceService
	Sync          *SyncService
	History       *HistoryService
	Inconsistency *InconsistencyService
	Export        *ExportService
}

func NewServices(repos *repository.Repositories, remote erp.Client, locker Locker, cfg *config.Config, logger *zap.Logger) *Services {
	syncSvc := NewSyncService(repos.Invoice, repos.History, remote, locker, cfg.Sync, logger)
	return &Services{
		Invoice:       NewInvoiceService(repos.Invoice, cfg.Sync, logger),
		Sync:          syncSvc,
		History:       NewHistoryService(repos.History),
		Inconsistency: NewInconsistencyService(repos.Invoice, remote, syncSvc, logger),
		Export:        NewExportService(repos.Invoice),
	}
}
