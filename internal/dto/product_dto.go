package dto

import (
	"github.com/shopspring/decimal"

	"github.com/hzzxn/app-stock/internal/model"
)

// ─── Requests ───────────────────────────────────────────────────────────────

// UnitRequest declares one unit-of-sale a variant is offered in.
type UnitRequest struct {
	UV    string           `json:"uv" validate:"required,oneof=UNIT BOX SACK PAIR DOZEN BAG OTHER"`
	Label string           `json:"label,omitempty"` // required when UV=OTHER
	Stock int              `json:"stock" validate:"min=0"`
	Price *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gt=0"`
	Cost  *decimal.Decimal `json:"cost,omitempty" validate:"omitempty,min=0"`
}

// VariantRequest declares a product configuration and its units.
type VariantRequest struct {
	VariantID  string            `json:"variant_id" validate:"required"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Units      []UnitRequest     `json:"units" validate:"required,min=1,dive"`
}

// CreateProductRequest is the body of POST /v1/products.
type CreateProductRequest struct {
	SKU      string           `json:"sku" validate:"required"`
	Name     string           `json:"name" validate:"required"`
	Category string           `json:"category,omitempty"`
	StockMin int              `json:"stock_min" validate:"min=0"`
	Price    decimal.Decimal  `json:"price" validate:"required,gt=0"`
	Cost     decimal.Decimal  `json:"cost" validate:"min=0"`
	Variants []VariantRequest `json:"variants,omitempty" validate:"omitempty,dive"`
}

// AddUnitRequest is the body of POST /v1/products/:id/variants/:vid/units.
type AddUnitRequest = UnitRequest

// StockAdjustRequest is the body of POST /v1/products/:id/stock.
type StockAdjustRequest struct {
	VariantID string `json:"variant_id" validate:"required"`
	UV        string `json:"uv" validate:"required,oneof=UNIT BOX SACK PAIR DOZEN BAG OTHER"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
	Direction string `json:"direction" validate:"required,oneof=in out"`
}

// ─── Responses ──────────────────────────────────────────────────────────────

type ProductListResponse struct {
	Count    int              `json:"count"`
	Products []*model.Product `json:"products"`
}

type AuditListResponse struct {
	Count  int                `json:"count"`
	Events []model.AuditEvent `json:"events"`
}
