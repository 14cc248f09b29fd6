package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/xGerart/odoo-sync-backend/internal/entity"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("repository: record not found")

// InvoiceListParams filters and paginates invoice listings.
type InvoiceListParams struct {
	Statuses []string
	Supplier string
	Keyword  string
	Page     int
	Size     int
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	List(ctx context.Context, params InvoiceListParams) ([]entity.Invoice, int64, error)
	Update(ctx context.Context, inv *entity.Invoice) error
	GetItem(ctx context.Context, invoiceID, itemID string) (*entity.InvoiceItem, error)
	UpdateItem(ctx context.Context, item *entity.InvoiceItem) error
	Delete(ctx context.Context, id string) error
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	if err := r.db.WithContext(ctx).Create(inv).Error; err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

func (r *invoiceRepository) List(ctx context.Context, params InvoiceListParams) ([]entity.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Invoice{})

	if len(params.Statuses) > 0 {
		query = query.Where("status IN ?", params.Statuses)
	}
	if params.Supplier != "" {
		query = query.Where("supplier_name ILIKE ?", "%"+params.Supplier+"%")
	}
	if params.Keyword != "" {
		query = query.Where("invoice_number ILIKE ? OR supplier_name ILIKE ?",
			"%"+params.Keyword+"%", "%"+params.Keyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.Size < 1 {
		params.Size = 20
	}

	var invoices []entity.Invoice
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, total, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *entity.Invoice) error {
	if err := r.db.WithContext(ctx).Omit("Items").Save(inv).Error; err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepository) GetItem(ctx context.Context, invoiceID, itemID string) (*entity.InvoiceItem, error) {
	var item entity.InvoiceItem
	err := r.db.WithContext(ctx).
		First(&item, "id = ? AND invoice_id = ?", itemID, invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

func (r *invoiceRepository) UpdateItem(ctx context.Context, item *entity.InvoiceItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// Delete removes the invoice and its items. History rows referencing the
// invoice are left in place; the database sets their invoice_id to NULL.
func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&entity.InvoiceItem{}).Error; err != nil {
			return fmt.Errorf("delete invoice items: %w", err)
		}
		res := tx.Delete(&entity.Invoice{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete invoice: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("invoice %s: %w", id, ErrNotFound)
		}
		return nil
	})
}
