package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/xGerart/odoo-sync-backend/internal/service"
)

// Handlers bundles the HTTP layer.
type Handlers struct {
	Invoice       *InvoiceHandler
	History       *HistoryHandler
	Inconsistency *InconsistencyHandler
}

func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Invoice:       NewInvoiceHandler(svc.Invoice, svc.Sync, svc.Export),
		History:       NewHistoryHandler(svc.History),
		Inconsistency: NewInconsistencyHandler(svc.Inconsistency),
	}
}

// Response is the common envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse wraps paginated collections.
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{Code: 0, Message: "success", Data: data})
}

// Error maps an application code to its HTTP status (code/100).
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{Code: code, Message: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceError translates business-layer errors into the envelope.
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrSyncInProgress):
		Error(c, 40901, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID reads the authenticated user from the request context.
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}
