package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xGerart/odoo-sync-backend/internal/config"
	"github.com/xGerart/odoo-sync-backend/internal/entity"
	"github.com/xGerart/odoo-sync-backend/internal/repository"
)

// InvoiceService owns the working invoice's ingestion and review workflow.
type InvoiceService struct {
	repo   repository.InvoiceRepository
	cfg    config.SyncConfig
	logger *zap.Logger
}

func NewInvoiceService(repo repository.InvoiceRepository, cfg config.SyncConfig, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{repo: repo, cfg: cfg, logger: logger}
}

// LineItemInput is one parsed line item handed over by the ingestion layer.
type LineItemInput struct {
	Barcode     string  `json:"barcode"`
	Description string  `json:"description" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	UnitCost    float64 `json:"unit_cost" binding:"gte=0"`
}

// IngestRequest creates a working invoice from parsed line items.
type IngestRequest struct {
	InvoiceNumber string          `json:"invoice_number" binding:"required"`
	SupplierName  string          `json:"supplier_name"`
	InvoiceDate   *time.Time      `json:"invoice_date"`
	RawPayload    string          `json:"raw_payload"`
	Items         []LineItemInput `json:"items" binding:"required,min=1,dive"`
	ProfitMargin  *float64        `json:"profit_margin"`
	ApplyTax      *bool           `json:"apply_tax"`
	QuantityMode  string          `json:"quantity_mode"`
}

// Ingest creates a pendiente_revision invoice with its line items.
func (s *InvoiceService) Ingest(ctx context.Context, req IngestRequest, uploadedBy string) (*entity.Invoice, error) {
	margin := s.cfg.DefaultMargin
	if req.ProfitMargin != nil {
		margin = *req.ProfitMargin
	}
	if margin <= -1 {
		return nil, fmt.Errorf("%w: profit margin must be greater than -1", ErrInvalidInput)
	}

	applyTax := true
	if req.ApplyTax != nil {
		applyTax = *req.ApplyTax
	}

	mode := req.QuantityMode
	if mode == "" {
		mode = entity.QuantityModeAdd
	}
	if !entity.ValidQuantityMode(mode) {
		return nil, fmt.Errorf("%w: unknown quantity mode %q", ErrInvalidInput, mode)
	}

	inv := &entity.Invoice{
		ID:            uuid.New().String(),
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		SupplierName:  strings.TrimSpace(req.SupplierName),
		InvoiceDate:   req.InvoiceDate,
		UploadedBy:    uploadedBy,
		RawPayload:    req.RawPayload,
		Status:        entity.StatusPendingReview,
		ProfitMargin:  margin,
		ApplyTax:      applyTax,
		QuantityMode:  mode,
	}
	for _, li := range req.Items {
		if li.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for %q", ErrInvalidInput, li.Description)
		}
		if li.UnitCost < 0 {
			return nil, fmt.Errorf("%w: unit cost must not be negative for %q", ErrInvalidInput, li.Description)
		}
		inv.Items = append(inv.Items, entity.InvoiceItem{
			ID:               uuid.New().String(),
			InvoiceID:        inv.ID,
			Barcode:          strings.TrimSpace(li.Barcode),
			Description:      strings.TrimSpace(li.Description),
			Quantity:         li.Quantity,
			OriginalQuantity: li.Quantity,
			UnitCost:         li.UnitCost,
		})
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	s.logger.Info("invoice ingested",
		zap.String("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int("items", len(inv.Items)),
	)
	return inv, nil
}

func (s *InvoiceService) Get(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return inv, nil
}

func (s *InvoiceService) List(ctx context.Context, params repository.InvoiceListParams) ([]entity.Invoice, int64, error) {
	return s.repo.List(ctx, params)
}

// BeginReview moves the invoice into en_revision.
func (s *InvoiceService) BeginReview(ctx context.Context, id, reviewer string) (*entity.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if !entity.CanBeginReview(inv.Status) {
		return nil, fmt.Errorf("%w: cannot begin review from %q", ErrInvalidStatus, inv.Status)
	}
	inv.Status = entity.StatusInReview
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Finalize marks the review as done: the invoice becomes corregida and is
// eligible for sync.
func (s *InvoiceService) Finalize(ctx context.Context, id, reviewer, notes string) (*entity.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if !entity.CanFinalize(inv.Status) {
		return nil, fmt.Errorf("%w: cannot finalize from %q", ErrInvalidStatus, inv.Status)
	}
	now := time.Now()
	inv.Status = entity.StatusCorrected
	inv.SubmittedAt = &now
	inv.SubmittedBy = reviewer
	if notes != "" {
		inv.Notes = notes
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateItemRequest edits a line item during review.
type UpdateItemRequest struct {
	Quantity    *float64 `json:"quantity"`
	Barcode     *string  `json:"barcode"`
	Description *string  `json:"description"`
}

func (s *InvoiceService) UpdateItem(ctx context.Context, invoiceID, itemID string, req UpdateItemRequest) (*entity.InvoiceItem, error) {
	item, err := s.editableItem(ctx, invoiceID, itemID)
	if err != nil {
		return nil, err
	}
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
		}
		item.Quantity = *req.Quantity
	}
	if req.Barcode != nil {
		item.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return nil, fmt.Errorf("%w: description must not be empty", ErrInvalidInput)
		}
		item.Description = strings.TrimSpace(*req.Description)
	}
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetManualPrice sets or clears (nil) the manual sale price. The manual
// price is by convention the tax-inclusive display price.
func (s *InvoiceService) SetManualPrice(ctx context.Context, invoiceID, itemID string, price *float64) (*entity.InvoiceItem, error) {
	item, err := s.editableItem(ctx, invoiceID, itemID)
	if err != nil {
		return nil, err
	}
	if price != nil && *price < 0 {
		return nil, fmt.Errorf("%w: manual sale price must not be negative", ErrInvalidInput)
	}
	item.ManualSalePrice = price
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetExclusion excludes an item from sync (or re-includes it).
func (s *InvoiceService) SetExclusion(ctx context.Context, invoiceID, itemID string, excluded bool, reason string) (*entity.InvoiceItem, error) {
	item, err := s.editableItem(ctx, invoiceID, itemID)
	if err != nil {
		return nil, err
	}
	item.IsExcluded = excluded
	if excluded {
		item.ExcludedReason = reason
	} else {
		item.ExcludedReason = ""
	}
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateConfigRequest changes the pricing configuration used at sync time.
type UpdateConfigRequest struct {
	ProfitMargin *float64 `json:"profit_margin"`
	ApplyTax     *bool    `json:"apply_tax"`
	QuantityMode *string  `json:"quantity_mode"`
}

func (s *InvoiceService) UpdateConfig(ctx context.Context, id string, req UpdateConfigRequest) (*entity.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if inv.Status == entity.StatusSynced {
		return nil, fmt.Errorf("%w: invoice already synced", ErrInvalidStatus)
	}
	if req.ProfitMargin != nil {
		if *req.ProfitMargin <= -1 {
			return nil, fmt.Errorf("%w: profit margin must be greater than -1", ErrInvalidInput)
		}
		inv.ProfitMargin = *req.ProfitMargin
	}
	if req.ApplyTax != nil {
		inv.ApplyTax = *req.ApplyTax
	}
	if req.QuantityMode != nil {
		if !entity.ValidQuantityMode(*req.QuantityMode) {
			return nil, fmt.Errorf("%w: unknown quantity mode %q", ErrInvalidInput, *req.QuantityMode)
		}
		inv.QuantityMode = *req.QuantityMode
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Delete removes the working invoice. History snapshots referencing it are
// preserved with a nulled reference.
func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapNotFound(err)
	}
	s.logger.Info("invoice deleted", zap.String("invoice_id", id))
	return nil
}

func (s *InvoiceService) editableItem(ctx context.Context, invoiceID, itemID string) (*entity.InvoiceItem, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if inv.Status == entity.StatusSynced {
		return nil, fmt.Errorf("%w: invoice already synced", ErrInvalidStatus)
	}
	item, err := s.repo.GetItem(ctx, invoiceID, itemID)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return item, nil
}
