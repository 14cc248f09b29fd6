package service

import "errors"

var (
	// ErrNotFound wraps missing invoices, items or history records.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput covers request validation failures, including
	// degenerate pricing inputs. Rejected before any remote call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidStatus is returned when an operation is not permitted in
	// the invoice's current lifecycle status.
	ErrInvalidStatus = errors.New("operation not allowed in current status")
	// ErrSyncInProgress signals a concurrent sync attempt on the same
	// invoice. The second attempt is rejected without any state change.
	ErrSyncInProgress = errors.New("sync already in progress for this invoice")
)
