package dto

import (
	"github.com/shopspring/decimal"

	"github.com/hzzxn/app-stock/internal/model"
)

// ─── Requests ───────────────────────────────────────────────────────────────

// SaleItemRequest is one cart line of POST /v1/sales.
type SaleItemRequest struct {
	ProductID int              `json:"product_id" validate:"required,gt=0"`
	VariantID string           `json:"variant_id" validate:"required"`
	UV        string           `json:"uv" validate:"required,oneof=UNIT BOX SACK PAIR DOZEN BAG OTHER"`
	Qty       int              `json:"qty" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gt=0"` // overrides catalog price
}

// PaymentRequest is bound from POST /v1/sales/:receipt/payments and from
// the initial payments of a new sale.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Method string          `json:"method" validate:"required,oneof=CASH WALLET TRANSFER CARD OTHER"`
}

// DeliveryRequest carries the destination data of a shipped sale.
type DeliveryRequest struct {
	Type         string          `json:"type" validate:"required,oneof=PICKUP LOCAL_DELIVERY OUT_OF_TOWN"`
	Address      string          `json:"address,omitempty"`
	District     string          `json:"district,omitempty"`
	Province     string          `json:"province,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	ShippingCost decimal.Decimal `json:"shipping_cost" validate:"min=0"`
	Notes        string          `json:"notes,omitempty"`
}

// CreateSaleRequest is the body of POST /v1/sales.
type CreateSaleRequest struct {
	Items         []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	Payments      []PaymentRequest  `json:"payments,omitempty" validate:"omitempty,dive"`
	Delivery      *DeliveryRequest  `json:"delivery,omitempty"`
	ClientName    string            `json:"client_name,omitempty"`
	ClientDoc     string            `json:"client_doc,omitempty"`
	ClientObs     string            `json:"client_obs,omitempty"`
	PendingReason string            `json:"pending_reason,omitempty"`
}

// ChangeStatusRequest is the body of PATCH /v1/sales/:receipt/status.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

// SaleFilter is bound from the query string of GET /v1/sales.
type SaleFilter struct {
	Status string `form:"status"` // empty = all
}

// ─── Responses ──────────────────────────────────────────────────────────────

type SaleListResponse struct {
	Count int           `json:"count"`
	Sales []*model.Sale `json:"sales"`
}

type PaymentListResponse struct {
	Receipt  string          `json:"receipt"`
	Count    int             `json:"count"`
	Payments []model.Payment `json:"payments"`
}
