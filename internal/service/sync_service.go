package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xGerart/odoo-sync-backend/internal/config"
	"github.com/xGerart/odoo-sync-backend/internal/entity"
	"github.com/xGerart/odoo-sync-backend/internal/erp"
	"github.com/xGerart/odoo-sync-backend/internal/pricing"
	"github.com/xGerart/odoo-sync-backend/internal/repository"
)

// SyncService drives per-item submission of a working invoice to the remote
// system. Items fail independently; the attempt's aggregate outcome moves
// the invoice lifecycle and is archived as an immutable history snapshot in
// the same transaction.
type SyncService struct {
	invoices repository.InvoiceRepository
	history  repository.HistoryRepository
	remote   erp.Client
	locker   Locker
	calc     pricing.Calculator
	cfg      config.SyncConfig
	logger   *zap.Logger
}

func NewSyncService(
	invoices repository.InvoiceRepository,
	history repository.HistoryRepository,
	remote erp.Client,
	locker Locker,
	cfg config.SyncConfig,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		invoices: invoices,
		history:  history,
		remote:   remote,
		locker:   locker,
		calc:     pricing.NewCalculator(cfg.TaxRate),
		cfg:      cfg,
		logger:   logger,
	}
}

// SyncOptions narrows a sync attempt.
type SyncOptions struct {
	// ItemIDs restricts the attempt to specific items. Empty means all
	// eligible items.
	ItemIDs  []string
	SyncedBy string
	Notes    string
}

// SyncOutcome summarizes one sync attempt. It is always returned for
// partial failures; an error is returned only for validation, conflict or
// storage failures that prevented or aborted the attempt.
type SyncOutcome struct {
	InvoiceID    string `json:"invoice_id"`
	HistoryID    string `json:"history_id"`
	Status       string `json:"status"`
	Total        int    `json:"total"`
	Successful   int    `json:"successful"`
	Failed       int    `json:"failed"`
	HasErrors    bool   `json:"has_errors"`
	ErrorSummary string `json:"error_summary,omitempty"`
}

// itemAttempt holds the per-item state of one sync attempt.
type itemAttempt struct {
	item      *entity.InvoiceItem
	quote     pricing.Quote
	attempted bool
	success   bool
	errMsg    string
	productID int
}

// Sync submits the invoice's eligible items to the remote system.
//
// Concurrent attempts on the same invoice are rejected with
// ErrSyncInProgress. The invoice must be corregida or
// parcialmente_sincronizada; on a partial re-sync only previously-failed
// items are re-attempted. Cancellation stops further submissions but the
// outcomes of items already attempted are committed.
func (s *SyncService) Sync(ctx context.Context, invoiceID string, opts SyncOptions) (*SyncOutcome, error) {
	release, err := s.locker.Acquire(ctx, "sync:invoice:"+invoiceID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if !entity.CanSync(inv.Status) {
		return nil, fmt.Errorf("%w: cannot sync from status %q", ErrInvalidStatus, inv.Status)
	}
	if !entity.ValidQuantityMode(inv.QuantityMode) {
		return nil, fmt.Errorf("%w: unknown quantity mode %q", ErrInvalidInput, inv.QuantityMode)
	}

	attempts := s.selectItems(inv, opts.ItemIDs)
	if len(attempts) == 0 {
		return nil, fmt.Errorf("%w: no items eligible for sync", ErrInvalidInput)
	}

	// Price every item up front so that invalid pricing inputs reject the
	// whole attempt before any remote call.
	for _, a := range attempts {
		quote, err := s.calc.Quote(a.item.UnitCost, inv.ProfitMargin, inv.ApplyTax, a.item.ManualSalePrice)
		if err != nil {
			return nil, fmt.Errorf("%w: item %q: %v", ErrInvalidInput, a.item.Barcode, err)
		}
		a.quote = quote
	}

	mode := erp.MergeAdd
	if inv.QuantityMode == entity.QuantityModeReplace {
		mode = erp.MergeReplace
	}

	for _, a := range attempts {
		if ctx.Err() != nil {
			s.logger.Warn("sync cancelled mid-batch",
				zap.String("invoice_id", inv.ID),
				zap.Error(ctx.Err()))
			break
		}
		s.submitOne(ctx, a, mode)
	}

	successful, failed := 0, 0
	var errParts []string
	for _, a := range attempts {
		if !a.attempted {
			continue
		}
		if a.success {
			successful++
		} else {
			failed++
			errParts = append(errParts, fmt.Sprintf("%s (%s): %s", a.item.Barcode, a.item.Description, a.errMsg))
		}
	}
	total := len(attempts)
	summary := strings.Join(errParts, "; ")

	now := time.Now()
	inv.Status = entity.StatusAfterSync(inv.Status, successful, total)
	inv.SyncedAt = &now
	inv.SyncedBy = opts.SyncedBy
	if opts.Notes != "" {
		inv.Notes = opts.Notes
	}

	snapshot := buildSnapshot(inv, attempts, opts.SyncedBy, now, summary)

	attemptedItems := make([]*entity.InvoiceItem, 0, len(attempts))
	for _, a := range attempts {
		if a.attempted {
			attemptedItems = append(attemptedItems, a.item)
		}
	}
	// The attempt's outcome must be committed even when the batch was
	// cancelled part-way through.
	if err := s.history.RecordAttempt(context.WithoutCancel(ctx), inv, attemptedItems, snapshot); err != nil {
		// Storage failure is fatal to the attempt; status and snapshot
		// roll back together.
		return nil, fmt.Errorf("record sync attempt: %w", err)
	}

	s.logger.Info("sync attempt finished",
		zap.String("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("status", inv.Status),
		zap.Int("total", total),
		zap.Int("successful", successful),
		zap.Int("failed", failed),
	)

	return &SyncOutcome{
		InvoiceID:    inv.ID,
		HistoryID:    snapshot.ID,
		Status:       inv.Status,
		Total:        total,
		Successful:   successful,
		Failed:       failed,
		HasErrors:    failed > 0,
		ErrorSummary: summary,
	}, nil
}

// selectItems picks the items for this attempt: an explicit id set when
// given, otherwise only previously-failed items on a partial re-sync,
// otherwise every non-excluded item. Previously-successful items are never
// resubmitted.
func (s *SyncService) selectItems(inv *entity.Invoice, itemIDs []string) []*itemAttempt {
	wanted := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}

	var attempts []*itemAttempt
	for i := range inv.Items {
		item := &inv.Items[i]
		if item.IsExcluded {
			continue
		}
		if item.SyncSuccess != nil && *item.SyncSuccess {
			continue
		}
		if len(wanted) > 0 && !wanted[item.ID] {
			continue
		}
		attempts = append(attempts, &itemAttempt{item: item})
	}
	return attempts
}

// submitOne performs a single bounded remote submission and records the
// result on the working item. Failures are isolated to the item.
func (s *SyncService) submitOne(ctx context.Context, a *itemAttempt, mode erp.MergeMode) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	a.attempted = true
	res, err := s.remote.SubmitItem(callCtx, erp.SubmitRequest{
		Barcode:   a.item.Barcode,
		Name:      a.item.Description,
		Quantity:  a.item.Quantity,
		UnitCost:  a.item.UnitCost,
		SalePrice: a.quote.Transmitted,
		Mode:      mode,
	})

	success := err == nil
	a.success = success
	a.item.SyncSuccess = &success
	if err != nil {
		a.errMsg = err.Error()
		a.item.SyncError = err.Error()
		s.logger.Warn("item sync failed",
			zap.String("barcode", a.item.Barcode),
			zap.Error(err))
		return
	}
	a.productID = res.ProductID
	a.item.RemoteProductID = &res.ProductID
	a.item.SyncError = ""
}

func wrapNotFound(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrNotFound, err)
}
