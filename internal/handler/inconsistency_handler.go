package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xGerart/odoo-sync-backend/internal/service"
)

// InconsistencyHandler exposes reconciliation against the remote system.
type InconsistencyHandler struct {
	svc *service.InconsistencyService
}

func NewInconsistencyHandler(svc *service.InconsistencyService) *InconsistencyHandler {
	return &InconsistencyHandler{svc: svc}
}

type detectRequest struct {
	InvoiceIDs []string `json:"invoice_ids"`
}

// Detect compares local synced quantities against the remote system.
// It is read-only and safe to run repeatedly.
func (h *InconsistencyHandler) Detect(c *gin.Context) {
	var req detectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	discrepancies, err := h.svc.Detect(c.Request.Context(), req.InvoiceIDs)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"discrepancies": discrepancies,
		"count":         len(discrepancies),
	})
}

type fixRequest struct {
	InvoiceID string   `json:"invoice_id" binding:"required"`
	ItemIDs   []string `json:"item_ids"`
}

// Fix re-runs the sync for the given invoice's items.
func (h *InconsistencyHandler) Fix(c *gin.Context) {
	var req fixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	outcome, err := h.svc.Fix(c.Request.Context(), req.InvoiceID, req.ItemIDs, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, outcome)
}
