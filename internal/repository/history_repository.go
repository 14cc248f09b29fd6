package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/xGerart/odoo-sync-backend/internal/entity"
)

// HistoryListParams filters and paginates history listings.
type HistoryListParams struct {
	InvoiceNumber string
	Supplier      string
	Page          int
	Size          int
}

type HistoryRepository interface {
	// RecordAttempt persists the result of one sync attempt as a single
	// durable unit: the invoice's status and counters, the per-item sync
	// results and the new history snapshot either all commit or none do.
	RecordAttempt(ctx context.Context, inv *entity.Invoice, attempted []*entity.InvoiceItem, snapshot *entity.SyncHistory) error
	List(ctx context.Context, params HistoryListParams) ([]entity.SyncHistory, int64, error)
	GetByID(ctx context.Context, id string) (*entity.SyncHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) RecordAttempt(ctx context.Context, inv *entity.Invoice, attempted []*entity.InvoiceItem, snapshot *entity.SyncHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(inv).Error; err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		for _, item := range attempted {
			if err := tx.Save(item).Error; err != nil {
				return fmt.Errorf("save item %s: %w", item.ID, err)
			}
		}
		if err := tx.Create(snapshot).Error; err != nil {
			return fmt.Errorf("create history snapshot: %w", err)
		}
		return nil
	})
}

func (r *historyRepository) List(ctx context.Context, params HistoryListParams) ([]entity.SyncHistory, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.SyncHistory{})

	if params.InvoiceNumber != "" {
		query = query.Where("invoice_number = ?", params.InvoiceNumber)
	}
	if params.Supplier != "" {
		query = query.Where("supplier_name ILIKE ?", "%"+params.Supplier+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.Size < 1 {
		params.Size = 20
	}

	var records []entity.SyncHistory
	err := query.Order("synced_at DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	return records, total, nil
}

func (r *historyRepository) GetByID(ctx context.Context, id string) (*entity.SyncHistory, error) {
	var record entity.SyncHistory
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("history %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return &record, nil
}
