package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/xGerart/odoo-sync-backend/internal/entity"
	"github.com/xGerart/odoo-sync-backend/internal/erp"
	"github.com/xGerart/odoo-sync-backend/internal/repository"
)

// quantityTolerance absorbs float noise when comparing local and remote
// quantities.
const quantityTolerance = 1e-4

// Discrepancy reports one barcode whose locally recorded synced quantity
// differs from the remote system's current quantity.
type Discrepancy struct {
	Barcode        string  `json:"barcode"`
	Description    string  `json:"description"`
	LocalQuantity  float64 `json:"local_quantity"`
	RemoteQuantity float64 `json:"remote_quantity"`
	RemoteMissing  bool    `json:"remote_missing"`
}

// InconsistencyService reconciles local sync bookkeeping against the remote
// system. Detection is read-only; fixing is an explicit, separate action
// that re-runs the sync orchestrator.
type InconsistencyService struct {
	invoices repository.InvoiceRepository
	remote   erp.Client
	sync     *SyncService
	logger   *zap.Logger
}

func NewInconsistencyService(invoices repository.InvoiceRepository, remote erp.Client, sync *SyncService, logger *zap.Logger) *InconsistencyService {
	return &InconsistencyService{invoices: invoices, remote: remote, sync: sync, logger: logger}
}

// Detect compares local synced quantities against the remote system for
// the given invoices (all fully or partially synced invoices when empty).
// It mutates nothing; running it twice without an intervening sync yields
// the same list.
func (s *InconsistencyService) Detect(ctx context.Context, invoiceIDs []string) ([]Discrepancy, error) {
	invoices, err := s.loadInvoices(ctx, invoiceIDs)
	if err != nil {
		return nil, err
	}

	// Replay sync attempts in chronological order so that a replace-mode
	// sync overwrites only what was synced before it, mirroring how the
	// remote system absorbed the attempts.
	sort.SliceStable(invoices, func(i, j int) bool {
		ti, tj := invoices[i].SyncedAt, invoices[j].SyncedAt
		switch {
		case ti == nil:
			return tj != nil
		case tj == nil:
			return false
		default:
			return ti.Before(*tj)
		}
	})

	type localEntry struct {
		quantity    float64
		description string
	}
	local := make(map[string]*localEntry)
	for i := range invoices {
		inv := &invoices[i]
		for j := range inv.Items {
			item := &inv.Items[j]
			if item.Barcode == "" || item.SyncSuccess == nil || !*item.SyncSuccess {
				continue
			}
			entry, ok := local[item.Barcode]
			if !ok {
				entry = &localEntry{description: item.Description}
				local[item.Barcode] = entry
			}
			if inv.QuantityMode == entity.QuantityModeReplace {
				entry.quantity = item.Quantity
			} else {
				entry.quantity += item.Quantity
			}
		}
	}

	barcodes := make([]string, 0, len(local))
	for barcode := range local {
		barcodes = append(barcodes, barcode)
	}
	sort.Strings(barcodes)

	var discrepancies []Discrepancy
	for _, barcode := range barcodes {
		entry := local[barcode]
		remoteQty, err := s.remote.QueryQuantity(ctx, barcode)
		if err != nil {
			// Only a confirmed missing product is a discrepancy; a
			// transport failure aborts the run so an outage never
			// reads as a wave of deleted products.
			if errors.Is(err, erp.ErrProductNotFound) {
				discrepancies = append(discrepancies, Discrepancy{
					Barcode:       barcode,
					Description:   entry.description,
					LocalQuantity: entry.quantity,
					RemoteMissing: true,
				})
				continue
			}
			return nil, fmt.Errorf("query remote quantity for %s: %w", barcode, err)
		}
		if math.Abs(remoteQty-entry.quantity) > quantityTolerance {
			discrepancies = append(discrepancies, Discrepancy{
				Barcode:        barcode,
				Description:    entry.description,
				LocalQuantity:  entry.quantity,
				RemoteQuantity: remoteQty,
			})
		}
	}

	s.logger.Info("reconciliation finished",
		zap.Int("barcodes_checked", len(barcodes)),
		zap.Int("discrepancies", len(discrepancies)),
	)
	return discrepancies, nil
}

// Fix re-invokes the sync orchestrator on the given invoice's items.
func (s *InconsistencyService) Fix(ctx context.Context, invoiceID string, itemIDs []string, fixedBy string) (*SyncOutcome, error) {
	return s.sync.Sync(ctx, invoiceID, SyncOptions{ItemIDs: itemIDs, SyncedBy: fixedBy})
}

func (s *InconsistencyService) loadInvoices(ctx context.Context, invoiceIDs []string) ([]entity.Invoice, error) {
	if len(invoiceIDs) == 0 {
		invoices, _, err := s.invoices.List(ctx, repository.InvoiceListParams{
			Statuses: []string{entity.StatusPartiallySynced, entity.StatusSynced},
			Size:     1000,
		})
		return invoices, err
	}

	var invoices []entity.Invoice
	for _, id := range invoiceIDs {
		inv, err := s.invoices.GetByID(ctx, id)
		if err != nil {
			return nil, wrapNotFound(err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, nil
}
