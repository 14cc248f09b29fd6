// Package erp talks to the remote inventory/ERP system. Every operation is
// item-level and may fail independently; callers are expected to treat a
// failed call as a per-item outcome, not a batch abort.
package erp

import (
	"context"
	"errors"
)

// Merge modes for stock quantity updates.
type MergeMode string

const (
	// MergeAdd adds the transmitted quantity to the remote quantity.
	MergeAdd MergeMode = "add"
	// MergeReplace overwrites the remote quantity.
	MergeReplace MergeMode = "replace"
)

var (
	// ErrNotAuthenticated is returned when the remote system rejects the
	// configured credentials.
	ErrNotAuthenticated = errors.New("erp: not authenticated")
	// ErrProductNotFound is returned by QueryQuantity for unknown barcodes.
	ErrProductNotFound = errors.New("erp: product not found")
)

// SubmitRequest carries one priced item to the remote system. SalePrice is
// the tax-exclusive transmitted price.
type SubmitRequest struct {
	Barcode   string
	Name      string
	Quantity  float64
	UnitCost  float64
	SalePrice float64
	Mode      MergeMode
}

// SubmitResult reports how the remote system absorbed the item.
type SubmitResult struct {
	ProductID int
	Created   bool
}

// Client is the collaborator interface consumed by the sync and
// reconciliation services.
type Client interface {
	// SubmitItem creates or updates the remote product identified by the
	// request barcode and merges its stock quantity per the merge mode.
	SubmitItem(ctx context.Context, req SubmitRequest) (SubmitResult, error)
	// QueryQuantity returns the remote on-hand quantity for a barcode.
	QueryQuantity(ctx context.Context, barcode string) (float64, error)
	// Ping verifies connectivity and authentication.
	Ping(ctx context.Context) error
}
