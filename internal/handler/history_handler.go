package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xGerart/odoo-sync-backend/internal/repository"
	"github.com/xGerart/odoo-sync-backend/internal/service"
)

// HistoryHandler is the read-only view over archived sync attempts.
type HistoryHandler struct {
	svc *service.HistoryService
}

func NewHistoryHandler(svc *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

func (h *HistoryHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	records, total, err := h.svc.List(c.Request.Context(), repository.HistoryListParams{
		InvoiceNumber: c.Query("invoice_number"),
		Supplier:      c.Query("supplier"),
		Page:          page,
		Size:          pageSize,
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      records,
		Pagination: &Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

func (h *HistoryHandler) Get(c *gin.Context) {
	record, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, record)
}
