// Package pricing computes the sale prices transmitted to the remote ERP.
//
// Prices exist in two forms: the display price shown at the point of sale
// (tax-inclusive when the invoice applies tax) and the transmitted price
// sent to the remote system, which is always tax-exclusive. A manual sale
// price, when present, is by convention the tax-inclusive display price and
// supersedes the margin calculation.
package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeCost     = errors.New("pricing: cost must not be negative")
	ErrMarginOutOfRange = errors.New("pricing: margin must be greater than -1")
	ErrNegativeOverride = errors.New("pricing: manual sale price must not be negative")
)

// Quote is the result of a price calculation for one item.
type Quote struct {
	// Display is the customer-facing price, tax-inclusive when tax applies.
	Display float64
	// Transmitted is the tax-exclusive price sent to the remote system.
	Transmitted float64
}

// Calculator derives sale prices from cost, margin and tax configuration.
// It is pure: same inputs, same outputs, no side effects.
type Calculator struct {
	TaxRate float64
}

// NewCalculator returns a Calculator for the given tax rate.
func NewCalculator(taxRate float64) Calculator {
	return Calculator{TaxRate: taxRate}
}

// Quote computes the display and transmitted prices for an item.
//
// Base price is cost*(1+margin). With applyTax the display price is
// base*(1+TaxRate), otherwise it equals the base. A non-nil manualOverride
// (tax-inclusive) replaces the computed display price. The transmitted
// price removes tax again when applyTax is set.
//
// Degenerate inputs are rejected, never clamped.
func (c Calculator) Quote(cost, margin float64, applyTax bool, manualOverride *float64) (Quote, error) {
	if cost < 0 {
		return Quote{}, fmt.Errorf("%w: got %.4f", ErrNegativeCost, cost)
	}
	if margin <= -1 {
		return Quote{}, fmt.Errorf("%w: got %.4f", ErrMarginOutOfRange, margin)
	}
	if manualOverride != nil && *manualOverride < 0 {
		return Quote{}, fmt.Errorf("%w: got %.4f", ErrNegativeOverride, *manualOverride)
	}

	display := cost * (1 + margin)
	if applyTax {
		display *= 1 + c.TaxRate
	}
	if manualOverride != nil {
		display = *manualOverride
	}

	transmitted := display
	if applyTax {
		transmitted = display / (1 + c.TaxRate)
	}

	return Quote{Display: display, Transmitted: transmitted}, nil
}
