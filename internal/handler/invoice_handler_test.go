package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xGerart/odoo-sync-backend/internal/config"
	"github.com/xGerart/odoo-sync-backend/internal/erp"
	"github.com/xGerart/odoo-sync-backend/internal/repository"
	"github.com/xGerart/odoo-sync-backend/internal/service"
	"github.com/xGerart/odoo-sync-backend/internal/testutil"
)

// stubErp accepts every submission and remembers quantities.
type stubErp struct {
	mu      sync.Mutex
	qty     map[string]float64
	calls   int
	failAll bool
}

func newStubErp() *stubErp {
	return &stubErp{qty: make(map[string]float64)}
}

func (s *stubErp) SubmitItem(_ context.Context, req erp.SubmitRequest) (erp.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failAll {
		return erp.SubmitResult{}, fmt.Errorf("remote unavailable")
	}
	if req.Mode == erp.MergeReplace {
		s.qty[req.Barcode] = req.Quantity
	} else {
		s.qty[req.Barcode] += req.Quantity
	}
	return erp.SubmitResult{ProductID: 100 + s.calls, Created: true}, nil
}

func (s *stubErp) QueryQuantity(_ context.Context, barcode string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qty, ok := s.qty[barcode]
	if !ok {
		return 0, erp.ErrProductNotFound
	}
	return qty, nil
}

func (s *stubErp) Ping(context.Context) error { return nil }

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

func setupInvoiceTest(t *testing.T) (*gin.Engine, *stubErp) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	cfg := &config.Config{
		Sync: config.SyncConfig{
			TaxRate:       0.15,
			DefaultMargin: 0.5,
			ItemTimeout:   5 * time.Second,
			LockTTL:       time.Minute,
		},
	}

	remote := newStubErp()
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, remote, noopLocker{}, cfg, zap.NewNop())
	handlers := NewHandlers(services)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")

	invoices := api.Group("/invoices")
	invoices.POST("", handlers.Invoice.Ingest)
	invoices.GET("", handlers.Invoice.List)
	invoices.GET("/:id", handlers.Invoice.Get)
	invoices.DELETE("/:id", handlers.Invoice.Delete)
	invoices.POST("/:id/review", handlers.Invoice.BeginReview)
	invoices.POST("/:id/submit", handlers.Invoice.Finalize)
	invoices.PATCH("/:id/config", handlers.Invoice.UpdateConfig)
	invoices.POST("/:id/sync", handlers.Invoice.Sync)
	invoices.GET("/:id/export", handlers.Invoice.Export)
	invoices.PATCH("/:id/items/:itemId", handlers.Invoice.UpdateItem)
	invoices.PUT("/:id/items/:itemId/sale-price", handlers.Invoice.SetSalePrice)
	invoices.PUT("/:id/items/:itemId/exclusion", handlers.Invoice.SetExclusion)

	history := api.Group("/history")
	history.GET("", handlers.History.List)
	history.GET("/:id", handlers.History.Get)

	return router, remote
}

func ingestBody() map[string]interface{} {
	return map[string]interface{}{
		"invoice_number": "001-002-000000321",
		"supplier_name":  "DISTRIBUIDORA GUAYAS",
		"raw_payload":    "<comprobante/>",
		"items": []map[string]interface{}{
			{"barcode": "7861042310010", "description": "ACEITE GIRASOL 1L", "quantity": 12, "unit_cost": 2.50},
			{"barcode": "7861042310011", "description": "ARROZ FLOR 2KG", "quantity": 20, "unit_cost": 1.80},
		},
	}
}

func TestInvoiceLifecycleFlow(t *testing.T) {
	router, remote := setupInvoiceTest(t)
	token := testutil.DefaultTestToken()

	// Ingest
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/invoices", ingestBody(), token)
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d, body %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	invoiceID := data["id"].(string)
	if data["status"] != "pendiente_revision" {
		t.Errorf("status = %v, want pendiente_revision", data["status"])
	}

	// Review
	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/review", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("review status = %d, body %s", w.Code, w.Body.String())
	}

	// Finalize
	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/submit",
		map[string]interface{}{"notes": "cantidades verificadas"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	if resp["data"].(map[string]interface{})["status"] != "corregida" {
		t.Errorf("status after submit = %v, want corregida", resp["data"])
	}

	// Sync
	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/sync", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("sync status = %d, body %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	outcome := resp["data"].(map[string]interface{})
	if outcome["status"] != "sincronizada" {
		t.Errorf("sync outcome status = %v, want sincronizada", outcome["status"])
	}
	if outcome["successful"].(float64) != 2 {
		t.Errorf("successful = %v, want 2", outcome["successful"])
	}
	if remote.qty["7861042310010"] != 12 || remote.qty["7861042310011"] != 20 {
		t.Errorf("remote quantities = %v", remote.qty)
	}

	// History
	w = testutil.DoRequest(router, http.MethodGet, "/api/v1/history", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	resp = testutil.ParseResponse(w)
	list := resp["data"].(map[string]interface{})
	if list["pagination"].(map[string]interface{})["total"].(float64) != 1 {
		t.Errorf("history total = %v, want 1", list["pagination"])
	}
}

func TestSyncRejectedBeforeReview(t *testing.T) {
	router, remote := setupInvoiceTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/invoices", ingestBody(), token)
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d", w.Code)
	}
	invoiceID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/sync", nil, token)
	if w.Code != http.StatusConflict {
		t.Errorf("sync status = %d, want 409", w.Code)
	}
	if remote.calls != 0 {
		t.Error("rejected sync must not call the remote system")
	}
}

func TestItemEditsAndExport(t *testing.T) {
	router, _ := setupInvoiceTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/invoices", ingestBody(), token)
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	invoiceID := data["id"].(string)
	items := data["items"].([]interface{})
	itemID := items[0].(map[string]interface{})["id"].(string)

	// Manual sale price
	w = testutil.DoRequest(router, http.MethodPut,
		"/api/v1/invoices/"+invoiceID+"/items/"+itemID+"/sale-price",
		map[string]interface{}{"sale_price": 3.95}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("sale-price status = %d, body %s", w.Code, w.Body.String())
	}

	// Negative price is rejected
	w = testutil.DoRequest(router, http.MethodPut,
		"/api/v1/invoices/"+invoiceID+"/items/"+itemID+"/sale-price",
		map[string]interface{}{"sale_price": -1}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative sale-price status = %d, want 400", w.Code)
	}

	// Exclusion
	w = testutil.DoRequest(router, http.MethodPut,
		"/api/v1/invoices/"+invoiceID+"/items/"+itemID+"/exclusion",
		map[string]interface{}{"excluded": true, "reason": "TRANSPORTE"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("exclusion status = %d", w.Code)
	}

	// Export
	w = testutil.DoRequest(router, http.MethodGet, "/api/v1/invoices/"+invoiceID+"/export", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("export content type = %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("export body empty")
	}
}

func TestAuthRequired(t *testing.T) {
	router, _ := setupInvoiceTest(t)

	w := testutil.DoRequest(router, http.MethodGet, "/api/v1/invoices", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestGetUnknownInvoiceReturns404(t *testing.T) {
	router, _ := setupInvoiceTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, http.MethodGet, "/api/v1/invoices/does-not-exist", nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40400 {
		t.Errorf("code = %v, want 40400", resp["code"])
	}
}
