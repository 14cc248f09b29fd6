package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xGerart/odoo-sync-backend/internal/config"
)

// Odoo model names used by the sync.
const (
	modelProduct       = "product.product"
	modelStockQuant    = "stock.quant"
	modelStockLocation = "stock.location"
)

// OdooClient implements Client against Odoo's JSON-RPC endpoint
// (/jsonrpc, service "object", method "execute_kw").
type OdooClient struct {
	url      string
	database string
	username string
	password string

	hc     *http.Client
	logger *zap.Logger

	mu  sync.Mutex
	uid int
}

func NewOdooClient(cfg config.OdooConfig, logger *zap.Logger) *OdooClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OdooClient{
		url:      cfg.URL,
		database: cfg.Database,
		username: cfg.Username,
		password: cfg.Password,
		hc:       &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type rpcRequest struct {
	Jsonrpc string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Message string `json:"message"`
	} `json:"data"`
}

func (e *rpcError) Error() string {
	if e.Data.Message != "" {
		return e.Data.Message
	}
	return e.Message
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *OdooClient) call(ctx context.Context, service, method string, args []any, out any) error {
	payload, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("erp: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/jsonrpc", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("erp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("erp: %s.%s: %w", service, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("erp: %s.%s: unexpected status %d", service, method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("erp: decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("erp: %s.%s: %w", service, method, rpcResp.Error)
	}
	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("erp: decode result: %w", err)
		}
	}
	return nil
}

// Login authenticates against the common service and caches the uid.
func (c *OdooClient) Login(ctx context.Context) error {
	var uid int
	err := c.call(ctx, "common", "authenticate",
		[]any{c.database, c.username, c.password, map[string]any{}}, &uid)
	if err != nil {
		return err
	}
	if uid == 0 {
		return fmt.Errorf("%w: rejected for user %q", ErrNotAuthenticated, c.username)
	}
	c.mu.Lock()
	c.uid = uid
	c.mu.Unlock()
	return nil
}

func (c *OdooClient) ensureAuth(ctx context.Context) (int, error) {
	c.mu.Lock()
	uid := c.uid
	c.mu.Unlock()
	if uid != 0 {
		return uid, nil
	}
	if err := c.Login(ctx); err != nil {
		return 0, err
	}
	c.mu.Lock()
	uid = c.uid
	c.mu.Unlock()
	return uid, nil
}

func (c *OdooClient) executeKw(ctx context.Context, model, method string, args []any, kw map[string]any, out any) error {
	uid, err := c.ensureAuth(ctx)
	if err != nil {
		return err
	}
	if kw == nil {
		kw = map[string]any{}
	}
	callArgs := []any{c.database, uid, c.password, model, method, args, kw}
	return c.call(ctx, "object", "execute_kw", callArgs, out)
}

func (c *OdooClient) searchRead(ctx context.Context, model string, domain []any, fields []string, limit int) ([]map[string]any, error) {
	kw := map[string]any{"fields": fields}
	if limit > 0 {
		kw["limit"] = limit
	}
	var records []map[string]any
	if err := c.executeKw(ctx, model, "search_read", []any{domain}, kw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *OdooClient) create(ctx context.Context, model string, values map[string]any) (int, error) {
	var id int
	if err := c.executeKw(ctx, model, "create", []any{values}, nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *OdooClient) write(ctx context.Context, model string, ids []int, values map[string]any) error {
	return c.executeKw(ctx, model, "write", []any{ids, values}, nil, nil)
}

// Ping verifies connectivity and credentials.
func (c *OdooClient) Ping(ctx context.Context) error {
	return c.Login(ctx)
}

// SubmitItem creates or updates the product matching the request barcode
// and merges its stock quantity. Existing products keep their list price
// unless the transmitted price is higher (price protection).
func (c *OdooClient) SubmitItem(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	domain := []any{[]any{"barcode", "=", req.Barcode}}
	existing, err := c.searchRead(ctx, modelProduct, domain, []string{"id", "list_price"}, 1)
	if err != nil {
		return SubmitResult{}, err
	}

	var result SubmitResult
	if len(existing) > 0 {
		productID := asInt(existing[0]["id"])
		values := map[string]any{
			"standard_price":   roundForOdoo(req.UnitCost),
			"available_in_pos": true,
			"barcode":          req.Barcode,
		}
		if req.SalePrice > asFloat(existing[0]["list_price"]) {
			values["list_price"] = roundForOdoo(req.SalePrice)
		}
		if err := c.write(ctx, modelProduct, []int{productID}, values); err != nil {
			return SubmitResult{}, err
		}
		result = SubmitResult{ProductID: productID}
	} else {
		values := map[string]any{
			"name":             req.Name,
			"barcode":          req.Barcode,
			"standard_price":   roundForOdoo(req.UnitCost),
			"list_price":       roundForOdoo(req.SalePrice),
			"type":             "consu",
			"is_storable":      true,
			"tracking":         "none",
			"available_in_pos": true,
			"sale_ok":          true,
			"purchase_ok":      true,
		}
		productID, err := c.create(ctx, modelProduct, values)
		if err != nil {
			return SubmitResult{}, err
		}
		result = SubmitResult{ProductID: productID, Created: true}
	}

	if req.Quantity > 0 {
		if err := c.updateStock(ctx, result.ProductID, req.Quantity, req.Mode); err != nil {
			return SubmitResult{}, fmt.Errorf("product %d: %w", result.ProductID, err)
		}
	}
	return result, nil
}

// updateStock merges the quantity into the internal stock location's quant.
func (c *OdooClient) updateStock(ctx context.Context, productID int, quantity float64, mode MergeMode) error {
	locations, err := c.searchRead(ctx, modelStockLocation,
		[]any{[]any{"usage", "=", "internal"}}, []string{"id"}, 1)
	if err != nil {
		return err
	}
	if len(locations) == 0 {
		return fmt.Errorf("erp: no internal stock location")
	}
	locationID := asInt(locations[0]["id"])

	quants, err := c.searchRead(ctx, modelStockQuant,
		[]any{
			[]any{"product_id", "=", productID},
			[]any{"location_id", "=", locationID},
		}, []string{"id", "quantity"}, 1)
	if err != nil {
		return err
	}

	final := quantity
	if len(quants) > 0 {
		if mode == MergeAdd {
			final += asFloat(quants[0]["quantity"])
		}
		return c.write(ctx, modelStockQuant, []int{asInt(quants[0]["id"])},
			map[string]any{"quantity": roundForOdoo(final)})
	}

	_, err = c.create(ctx, modelStockQuant, map[string]any{
		"product_id":  productID,
		"location_id": locationID,
		"quantity":    roundForOdoo(final),
	})
	return err
}

// QueryQuantity returns the remote on-hand quantity for a barcode.
func (c *OdooClient) QueryQuantity(ctx context.Context, barcode string) (float64, error) {
	records, err := c.searchRead(ctx, modelProduct,
		[]any{[]any{"barcode", "=", barcode}}, []string{"qty_available"}, 1)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("%w: barcode %q", ErrProductNotFound, barcode)
	}
	return asFloat(records[0]["qty_available"]), nil
}

// roundForOdoo keeps 8 decimals; Odoo expects high precision floats to
// avoid rounding drift in tax calculations.
func roundForOdoo(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}
