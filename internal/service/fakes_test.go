package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xGerart/odoo-sync-backend/internal/entity"
	"github.com/xGerart/odoo-sync-backend/internal/erp"
	"github.com/xGerart/odoo-sync-backend/internal/repository"
)

// In-memory doubles for the persistence, locking and remote collaborators.

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*entity.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[string]*entity.Invoice)}
}

func copyInvoice(inv *entity.Invoice) *entity.Invoice {
	cp := *inv
	cp.Items = make([]entity.InvoiceItem, len(inv.Items))
	copy(cp.Items, inv.Items)
	return &cp
}

func (r *fakeInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", id, repository.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, params repository.InvoiceListParams) ([]entity.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Invoice
	for _, inv := range r.invoices {
		if len(params.Statuses) > 0 {
			match := false
			for _, s := range params.Statuses {
				if inv.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *copyInvoice(inv))
	}
	return out, int64(len(out)), nil
}

func (r *fakeInvoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.invoices[inv.ID]
	if !ok {
		return fmt.Errorf("invoice %s: %w", inv.ID, repository.ErrNotFound)
	}
	items := stored.Items
	r.invoices[inv.ID] = copyInvoice(inv)
	if len(inv.Items) == 0 {
		r.invoices[inv.ID].Items = items
	}
	return nil
}

func (r *fakeInvoiceRepo) GetItem(_ context.Context, invoiceID, itemID string) (*entity.InvoiceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, repository.ErrNotFound)
	}
	for i := range inv.Items {
		if inv.Items[i].ID == itemID {
			cp := inv.Items[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("item %s: %w", itemID, repository.ErrNotFound)
}

func (r *fakeInvoiceRepo) UpdateItem(_ context.Context, item *entity.InvoiceItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[item.InvoiceID]
	if !ok {
		return fmt.Errorf("invoice %s: %w", item.InvoiceID, repository.ErrNotFound)
	}
	for i := range inv.Items {
		if inv.Items[i].ID == item.ID {
			inv.Items[i] = *item
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", item.ID, repository.ErrNotFound)
}

func (r *fakeInvoiceRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[id]; !ok {
		return fmt.Errorf("invoice %s: %w", id, repository.ErrNotFound)
	}
	delete(r.invoices, id)
	return nil
}

type fakeHistoryRepo struct {
	mu       sync.Mutex
	invoices *fakeInvoiceRepo
	records  []*entity.SyncHistory
	failNext bool
}

func newFakeHistoryRepo(invoices *fakeInvoiceRepo) *fakeHistoryRepo {
	return &fakeHistoryRepo{invoices: invoices}
}

func (r *fakeHistoryRepo) RecordAttempt(ctx context.Context, inv *entity.Invoice, attempted []*entity.InvoiceItem, snapshot *entity.SyncHistory) error {
	r.mu.Lock()
	if r.failNext {
		r.failNext = false
		r.mu.Unlock()
		return fmt.Errorf("storage failure")
	}
	r.mu.Unlock()

	if err := r.invoices.Update(ctx, inv); err != nil {
		return err
	}
	for _, item := range attempted {
		if err := r.invoices.UpdateItem(ctx, item); err != nil {
			return err
		}
	}

	r.mu.Lock()
	cp := *snapshot
	cp.Items = make([]entity.SyncHistoryItem, len(snapshot.Items))
	copy(cp.Items, snapshot.Items)
	r.records = append(r.records, &cp)
	r.mu.Unlock()
	return nil
}

func (r *fakeHistoryRepo) List(_ context.Context, _ repository.HistoryListParams) ([]entity.SyncHistory, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.SyncHistory, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out, int64(len(out)), nil
}

func (r *fakeHistoryRepo) GetByID(_ context.Context, id string) (*entity.SyncHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("history %s: %w", id, repository.ErrNotFound)
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, ErrSyncInProgress
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}

type submittedItem struct {
	req erp.SubmitRequest
}

type fakeErpClient struct {
	mu        sync.Mutex
	submitted []submittedItem
	failFor   map[string]error // barcode -> error
	afterEach func()           // invoked after every submission
	remoteQty map[string]float64
	queryErr  error // when set, every QueryQuantity fails with it
	nextID    int
}

func newFakeErpClient() *fakeErpClient {
	return &fakeErpClient{
		failFor:   make(map[string]error),
		remoteQty: make(map[string]float64),
		nextID:    500,
	}
}

func (c *fakeErpClient) SubmitItem(ctx context.Context, req erp.SubmitRequest) (erp.SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return erp.SubmitResult{}, err
	}
	c.mu.Lock()
	c.submitted = append(c.submitted, submittedItem{req: req})
	err := c.failFor[req.Barcode]
	after := c.afterEach
	c.mu.Unlock()

	if after != nil {
		after()
	}
	if err != nil {
		return erp.SubmitResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	if req.Mode == erp.MergeReplace {
		c.remoteQty[req.Barcode] = req.Quantity
	} else {
		c.remoteQty[req.Barcode] += req.Quantity
	}
	return erp.SubmitResult{ProductID: c.nextID, Created: true}, nil
}

func (c *fakeErpClient) QueryQuantity(ctx context.Context, barcode string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queryErr != nil {
		return 0, c.queryErr
	}
	qty, ok := c.remoteQty[barcode]
	if !ok {
		return 0, fmt.Errorf("%w: barcode %q", erp.ErrProductNotFound, barcode)
	}
	return qty, nil
}

func (c *fakeErpClient) Ping(context.Context) error { return nil }

func (c *fakeErpClient) submissionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.submitted)
}
