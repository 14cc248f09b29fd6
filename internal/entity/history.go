package entity

import (
	"time"
)

// SyncHistory is the immutable audit record of one sync attempt. It is
// created once per attempt and never updated or deleted by the application.
// The reference to the originating invoice is deliberately weak: deleting
// the invoice sets InvoiceID to NULL on its history rows instead of
// cascading, so the audit trail outlives the working record.
type SyncHistory struct {
	ID string `json:"id" gorm:"primaryKey;size:36"`

	InvoiceID *string `json:"invoice_id" gorm:"size:36;index"`

	// Invoice metadata snapshotted at sync time.
	InvoiceNumber string     `json:"invoice_number" gorm:"size:50;not null"`
	SupplierName  string     `json:"supplier_name" gorm:"size:255"`
	InvoiceDate   *time.Time `json:"invoice_date"`
	UploadedBy    string     `json:"uploaded_by" gorm:"size:50;not null"`

	SyncedBy string    `json:"synced_by" gorm:"size:50;not null"`
	SyncedAt time.Time `json:"synced_at" gorm:"not null;index"`

	TotalItems      int      `json:"total_items" gorm:"not null;default:0"`
	SuccessfulItems int      `json:"successful_items" gorm:"not null;default:0"`
	FailedItems     int      `json:"failed_items" gorm:"not null;default:0"`
	TotalQuantity   float64  `json:"total_quantity" gorm:"not null;default:0"`
	TotalValue      *float64 `json:"total_value"`

	RawPayload string `json:"-" gorm:"type:text"`

	HasErrors    bool   `json:"has_errors" gorm:"not null;default:false"`
	ErrorSummary string `json:"error_summary" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`

	Invoice *Invoice          `json:"-" gorm:"foreignKey:InvoiceID;constraint:OnDelete:SET NULL"`
	Items   []SyncHistoryItem `json:"items,omitempty" gorm:"foreignKey:HistoryID;constraint:OnDelete:CASCADE"`
}

func (SyncHistory) TableName() string {
	return "sync_history"
}

// SyncHistoryItem records the per-item result of a sync attempt. SalePrice
// is the tax-exclusive price actually transmitted to the remote system; it
// is nil when the item was never successfully synced.
type SyncHistoryItem struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	HistoryID string `json:"history_id" gorm:"size:36;not null;index"`

	Barcode         string   `json:"barcode" gorm:"size:100;index"`
	Description     string   `json:"description" gorm:"size:255;not null"`
	Quantity        float64  `json:"quantity" gorm:"not null"`
	UnitCost        float64  `json:"unit_cost"`
	SalePrice       *float64 `json:"sale_price"`
	TotalValue      *float64 `json:"total_value"`
	RemoteProductID *int     `json:"remote_product_id"`

	Success      bool   `json:"success" gorm:"not null;default:false"`
	ErrorMessage string `json:"error_message" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`

	History *SyncHistory `json:"-" gorm:"foreignKey:HistoryID"`
}

func (SyncHistoryItem) TableName() string {
	return "sync_history_items"
}
