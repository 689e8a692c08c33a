package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hzzxn/app-stock/internal/model"
	"github.com/hzzxn/app-stock/internal/store"
)

// Validation failures are rejected before any mutation and never audited.
var (
	ErrCartEmpty        = errors.New("cart is empty")
	ErrProductNotFound  = errors.New("product not found")
	ErrVariantNotFound  = errors.New("variant not found")
	ErrUnitNotFound     = errors.New("unit of sale not found")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrInvalidStatus    = errors.New("unknown sale status")
	ErrDuplicateSKU     = errors.New("a product with this SKU already exists")
	ErrSaleClosed       = errors.New("sale no longer accepts payments")
	ErrPermissionDenied = errors.New("role is not allowed to perform this transition")
)

// InsufficientStockError reports a reserve or direct consumption that asked
// for more than is available. The operation has no partial effect.
type InsufficientStockError struct {
	Key       store.UnitKey
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.Key, e.Requested, e.Available)
}

// ExceedsPendingError reports a payment larger than the outstanding balance.
type ExceedsPendingError struct {
	Pending decimal.Decimal
}

func (e *ExceedsPendingError) Error() string {
	return fmt.Sprintf("payment exceeds pending balance (%s)", e.Pending.StringFixed(2))
}

// IllegalTransitionError reports a status change the state machine forbids.
// The sale is left untouched.
type IllegalTransitionError struct {
	Receipt string
	From    model.SaleStatus
	To      model.SaleStatus
	Reason  string
}

func (e *IllegalTransitionError) Error() string {
	msg := fmt.Sprintf("sale %s: illegal transition %s -> %s", e.Receipt, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
