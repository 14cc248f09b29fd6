package entity

import (
	"time"
)

// Invoice is the mutable working record for an ingested supplier invoice.
// It is created at ingestion, edited during the review workflow and may be
// deleted at any time; sync history outlives it (see SyncHistory).
type Invoice struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	InvoiceNumber string     `json:"invoice_number" gorm:"size:50;index"`
	SupplierName  string     `json:"supplier_name" gorm:"size:255"`
	InvoiceDate   *time.Time `json:"invoice_date"`

	UploadedBy string `json:"uploaded_by" gorm:"size:50;not null"`
	RawPayload string `json:"-" gorm:"type:text;not null"`

	Status string `json:"status" gorm:"size:32;not null;default:pendiente_revision;index"`

	// Pricing configuration applied at sync time.
	ProfitMargin float64 `json:"profit_margin" gorm:"not null;default:0.5"`
	ApplyTax     bool    `json:"apply_tax" gorm:"not null;default:true"`
	QuantityMode string  `json:"quantity_mode" gorm:"size:10;not null;default:add"`

	Notes string `json:"notes" gorm:"type:text"`

	SubmittedAt *time.Time `json:"submitted_at"`
	SubmittedBy string     `json:"submitted_by" gorm:"size:50"`
	SyncedAt    *time.Time `json:"synced_at"`
	SyncedBy    string     `json:"synced_by" gorm:"size:50"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []InvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

func (Invoice) TableName() string {
	return "pending_invoices"
}

// TotalQuantity sums the quantities of all non-excluded items.
func (inv *Invoice) TotalQuantity() float64 {
	var total float64
	for i := range inv.Items {
		if !inv.Items[i].IsExcluded {
			total += inv.Items[i].Quantity
		}
	}
	return total
}

// InvoiceItem is a single line item of a working invoice. Quantity and
// barcode are editable during review; the manual sale price, when set, is
// always the tax-inclusive display price.
type InvoiceItem struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	InvoiceID string `json:"invoice_id" gorm:"size:36;not null;index"`

	Barcode     string `json:"barcode" gorm:"size:100;index"`
	Description string `json:"description" gorm:"size:255;not null"`

	Quantity         float64 `json:"quantity" gorm:"not null"`
	OriginalQuantity float64 `json:"original_quantity" gorm:"not null"`
	UnitCost         float64 `json:"unit_cost" gorm:"not null"`

	ManualSalePrice *float64 `json:"manual_sale_price"`

	IsExcluded     bool   `json:"is_excluded" gorm:"not null;default:false"`
	ExcludedReason string `json:"excluded_reason" gorm:"size:255"`

	// Outcome of the most recent sync attempt for this item.
	RemoteProductID *int    `json:"remote_product_id"`
	SyncSuccess     *bool   `json:"sync_success"`
	SyncError       string  `json:"sync_error" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Invoice *Invoice `json:"-" gorm:"foreignKey:InvoiceID"`
}

func (InvoiceItem) TableName() string {
	return "pending_invoice_items"
}

// Quantity merge modes for remote stock updates.
const (
	QuantityModeAdd     = "add"
	QuantityModeReplace = "replace"
)

// ValidQuantityMode reports whether mode is one of the supported merge modes.
func ValidQuantityMode(mode string) bool {
	return mode == QuantityModeAdd || mode == QuantityModeReplace
}
