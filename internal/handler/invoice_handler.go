package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xGerart/odoo-sync-backend/internal/repository"
	"github.com/xGerart/odoo-sync-backend/internal/service"
)

// InvoiceHandler exposes the invoice review and sync workflow.
type InvoiceHandler struct {
	svc    *service.InvoiceService
	sync   *service.SyncService
	export *service.ExportService
}

func NewInvoiceHandler(svc *service.InvoiceService, sync *service.SyncService, export *service.ExportService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, sync: sync, export: export}
}

// Ingest creates a working invoice from parsed line items.
func (h *InvoiceHandler) Ingest(c *gin.Context) {
	var req service.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	inv, err := h.svc.Ingest(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, inv)
}

// List returns invoices filtered by status, supplier and keyword.
func (h *InvoiceHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := repository.InvoiceListParams{
		Supplier: c.Query("supplier"),
		Keyword:  c.Query("keyword"),
		Page:     page,
		Size:     pageSize,
	}
	if status := c.Query("status"); status != "" {
		params.Statuses = strings.Split(status, ",")
	}

	invoices, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      invoices,
		Pagination: &Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	inv, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, inv)
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// BeginReview moves the invoice into en_revision.
func (h *InvoiceHandler) BeginReview(c *gin.Context) {
	inv, err := h.svc.BeginReview(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, inv)
}

type finalizeRequest struct {
	Notes string `json:"notes"`
}

// Finalize closes the review: the invoice becomes corregida.
func (h *InvoiceHandler) Finalize(c *gin.Context) {
	var req finalizeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	inv, err := h.svc.Finalize(c.Request.Context(), c.Param("id"), GetUserID(c), req.Notes)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, inv)
}

// UpdateConfig changes the pricing and quantity configuration.
func (h *InvoiceHandler) UpdateConfig(c *gin.Context) {
	var req service.UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	inv, err := h.svc.UpdateConfig(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, inv)
}

// UpdateItem edits a line item during review.
func (h *InvoiceHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	item, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, item)
}

type salePriceRequest struct {
	SalePrice *float64 `json:"sale_price"`
}

// SetSalePrice sets or clears the manual sale price of an item.
func (h *InvoiceHandler) SetSalePrice(c *gin.Context) {
	var req salePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	item, err := h.svc.SetManualPrice(c.Request.Context(), c.Param("id"), c.Param("itemId"), req.SalePrice)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, item)
}

type exclusionRequest struct {
	Excluded bool   `json:"excluded"`
	Reason   string `json:"reason"`
}

// SetExclusion excludes an item from sync, or re-includes it.
func (h *InvoiceHandler) SetExclusion(c *gin.Context) {
	var req exclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	item, err := h.svc.SetExclusion(c.Request.Context(), c.Param("id"), c.Param("itemId"), req.Excluded, req.Reason)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, item)
}

type syncRequest struct {
	ItemIDs []string `json:"item_ids"`
	Notes   string   `json:"notes"`
}

// Sync submits the invoice's eligible items to the remote system.
func (h *InvoiceHandler) Sync(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	outcome, err := h.sync.Sync(c.Request.Context(), c.Param("id"), service.SyncOptions{
		ItemIDs:  req.ItemIDs,
		SyncedBy: GetUserID(c),
		Notes:    req.Notes,
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, outcome)
}

// Export downloads the invoice items as an xlsx workbook.
func (h *InvoiceHandler) Export(c *gin.Context) {
	data, filename, err := h.export.InvoiceWorkbook(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
