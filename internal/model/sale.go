package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus is the lifecycle state of a sale. Transitions between states
// are validated and executed exclusively by the sales state machine.
type SaleStatus string

const (
	StatusPendingPayment   SaleStatus = "PENDING_PAYMENT"
	StatusPaidCash         SaleStatus = "PAID_CASH"
	StatusReadyForPickup   SaleStatus = "READY_FOR_PICKUP"
	StatusReadyForShipping SaleStatus = "READY_FOR_SHIPPING"
	StatusFulfilled        SaleStatus = "FULFILLED"
	StatusVoided           SaleStatus = "VOIDED"
)

// ValidStatuses is the closed set of sale states.
var ValidStatuses = map[SaleStatus]bool{
	StatusPendingPayment:   true,
	StatusPaidCash:         true,
	StatusReadyForPickup:   true,
	StatusReadyForShipping: true,
	StatusFulfilled:        true,
	StatusVoided:           true,
}

// Paid states: the sale total has been settled and stock consumed.
func (s SaleStatus) IsPaidState() bool {
	return s == StatusPaidCash || s == StatusReadyForPickup || s == StatusReadyForShipping
}

// DeliveryType enumerates how a sale reaches the client.
type DeliveryType string

const (
	DeliveryPickup    DeliveryType = "PICKUP"
	DeliveryLocal     DeliveryType = "LOCAL_DELIVERY"
	DeliveryOutOfTown DeliveryType = "OUT_OF_TOWN"
)

// PaymentMethod values accepted for real payments. SettlementMethod is
// reserved for payments synthesized by a manual PENDING_PAYMENT to
// PAID_CASH status change; it never arrives from a client request.
type PaymentMethod string

const (
	MethodCash       PaymentMethod = "CASH"
	MethodWallet     PaymentMethod = "WALLET"
	MethodTransfer   PaymentMethod = "TRANSFER"
	MethodCard       PaymentMethod = "CARD"
	MethodOther      PaymentMethod = "OTHER"
	SettlementMethod PaymentMethod = "manual settlement"
)

// SaleItem is one frozen line of a sale. Product, variant, unit, quantity
// and prices never change after the sale is created.
type SaleItem struct {
	ProductID         int               `json:"pid"`
	SKU               string            `json:"sku"`
	Name              string            `json:"name"`
	Qty               int               `json:"qty"`
	UnitPrice         decimal.Decimal   `json:"unit_price"`
	UnitCost          decimal.Decimal   `json:"unit_cost"`
	LineTotal         decimal.Decimal   `json:"line_total"`
	LineProfit        decimal.Decimal   `json:"line_profit"`
	VariantID         string            `json:"variant_id"`
	VariantAttributes map[string]string `json:"variant_attributes,omitempty"`
	UV                UnitOfSale        `json:"uv"`
	UVLabel           string            `json:"uv_label,omitempty"`
}

// Payment is one append-only entry of the sale's payment ledger.
// Payments are never edited or removed once recorded.
type Payment struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Method PaymentMethod   `json:"method"`
	TS     time.Time       `json:"ts"`
	Actor  string          `json:"actor"`
}

// Delivery carries the type-specific destination data of a sale.
type Delivery struct {
	Type         DeliveryType    `json:"type"`
	Address      string          `json:"address,omitempty"`
	District     string          `json:"district,omitempty"`
	Province     string          `json:"province,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Notes        string          `json:"notes,omitempty"`
}

// Sale is the aggregate: line items frozen at creation plus mutable
// status, payments and delivery metadata. A sale is created once from a
// validated cart snapshot and never deleted.
//
// PaidAmount and PendingAmount are derived from Payments by the payment
// reconciler; nothing else may write them.
type Sale struct {
	Receipt       string          `json:"receipt"`
	User          string          `json:"user"`
	TS            time.Time       `json:"ts"`
	Status        SaleStatus      `json:"status"`
	Items         []SaleItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	CostTotal     decimal.Decimal `json:"cost_total"`
	ProfitTotal   decimal.Decimal `json:"profit_total"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	Payments      []Payment       `json:"payments"`
	Delivery      *Delivery       `json:"delivery,omitempty"`
	ClientName    string          `json:"client_name,omitempty"`
	ClientDoc     string          `json:"client_doc,omitempty"`
	ClientObs     string          `json:"client_obs,omitempty"`
	CompletionTS  *time.Time      `json:"completion_ts,omitempty"`
	CompletedBy   string          `json:"completed_by,omitempty"`
	PendingReason string          `json:"pending_reason,omitempty"`
	AnnulReason   string          `json:"annul_reason,omitempty"`
}

// IsPaid reports whether the outstanding balance is zero.
func (s *Sale) IsPaid() bool {
	return s.PendingAmount.LessThanOrEqual(decimal.Zero)
}

// IsTerminal reports whether the sale reached an end state.
func (s *Sale) IsTerminal() bool {
	return s.Status == StatusFulfilled || s.Status == StatusVoided
}
