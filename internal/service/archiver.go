package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/xGerart/odoo-sync-backend/internal/entity"
)

// buildSnapshot materializes the immutable history record for one sync
// attempt. A new snapshot is created on every attempt; existing snapshots
// are never touched. Successful items carry the transmitted (tax-exclusive)
// price; failed or unattempted items carry none.
func buildSnapshot(inv *entity.Invoice, attempts []*itemAttempt, syncedBy string, at time.Time, errorSummary string) *entity.SyncHistory {
	invoiceID := inv.ID
	snapshot := &entity.SyncHistory{
		ID:            uuid.New().String(),
		InvoiceID:     &invoiceID,
		InvoiceNumber: inv.InvoiceNumber,
		SupplierName:  inv.SupplierName,
		InvoiceDate:   inv.InvoiceDate,
		UploadedBy:    inv.UploadedBy,
		SyncedBy:      syncedBy,
		SyncedAt:      at,
		RawPayload:    inv.RawPayload,
	}

	var totalQuantity, totalValue float64
	for _, a := range attempts {
		item := entity.SyncHistoryItem{
			ID:          uuid.New().String(),
			HistoryID:   snapshot.ID,
			Barcode:     a.item.Barcode,
			Description: a.item.Description,
			Quantity:    a.item.Quantity,
			UnitCost:    a.item.UnitCost,
			Success:     a.success,
		}

		itemValue := a.item.UnitCost * a.item.Quantity
		item.TotalValue = &itemValue
		totalQuantity += a.item.Quantity
		totalValue += itemValue

		if a.success {
			price := a.quote.Transmitted
			item.SalePrice = &price
			productID := a.productID
			item.RemoteProductID = &productID
			snapshot.SuccessfulItems++
		} else if a.attempted {
			item.ErrorMessage = a.errMsg
			snapshot.FailedItems++
		}

		snapshot.Items = append(snapshot.Items, item)
	}

	snapshot.TotalItems = len(attempts)
	snapshot.TotalQuantity = totalQuantity
	snapshot.TotalValue = &totalValue
	snapshot.HasErrors = snapshot.FailedItems > 0
	if snapshot.HasErrors {
		snapshot.ErrorSummary = errorSummary
	}

	return snapshot
}
