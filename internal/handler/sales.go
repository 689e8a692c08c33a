package handler

import (
	"net/http"
	"strconv"

	"github.com/hzzxn/app-stock/internal/dto"
	"github.com/hzzxn/app-stock/internal/middleware"
	"github.com/hzzxn/app-stock/internal/model"
	"github.com/hzzxn/app-stock/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct {
	sales    service.SalesService
	payments service.PaymentService
	audit    service.AuditLog
}

func NewSalesHandler(sales service.SalesService, payments service.PaymentService, audit service.AuditLog) *SalesHandler {
	return &SalesHandler{sales: sales, payments: payments, audit: audit}
}

// Create confirms a cart and registers the sale. Stock is reserved or
// consumed before the response is written.
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	in := service.CreateSaleInput{
		User:          middleware.GetActor(c),
		ClientName:    req.ClientName,
		ClientDoc:     req.ClientDoc,
		ClientObs:     req.ClientObs,
		PendingReason: req.PendingReason,
	}
	for _, line := range req.Items {
		in.Items = append(in.Items, service.CartItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			UV:        model.UnitOfSale(line.UV),
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
		})
	}
	for _, p := range req.Payments {
		in.Payments = append(in.Payments, service.InitialPayment{
			Amount: p.Amount,
			Method: model.PaymentMethod(p.Method),
		})
	}
	if req.Delivery != nil {
		in.Delivery = &model.Delivery{
			Type:         model.DeliveryType(req.Delivery.Type),
			Address:      req.Delivery.Address,
			District:     req.Delivery.District,
			Province:     req.Delivery.Province,
			Reference:    req.Delivery.Reference,
			Phone:        req.Delivery.Phone,
			ShippingCost: req.Delivery.ShippingCost,
			Notes:        req.Delivery.Notes,
		}
	}

	sale, err := h.sales.CreateSale(in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// List returns sales, optionally filtered by status.
func (h *SalesHandler) List(c *gin.Context) {
	var filter dto.SaleFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, err)
		return
	}
	sales, err := h.sales.ListSales(model.SaleStatus(filter.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SaleListResponse{Count: len(sales), Sales: sales})
}

// Get returns one sale by receipt.
func (h *SalesHandler) Get(c *gin.Context) {
	sale, err := h.sales.GetSale(c.Param("receipt"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// Pending returns the sales still waiting for payment.
func (h *SalesHandler) Pending(c *gin.Context) {
	sales, err := h.sales.PendingSales()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SaleListResponse{Count: len(sales), Sales: sales})
}

// ChangeStatus moves a sale through its lifecycle, applying the ledger
// side effects of the transition.
func (h *SalesHandler) ChangeStatus(c *gin.Context) {
	var req dto.ChangeStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sale, err := h.sales.ChangeStatus(
		c.Param("receipt"),
		model.SaleStatus(req.Status),
		middleware.GetActor(c),
		middleware.GetRole(c),
		req.Reason,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// Fulfill marks a sale as delivered to the client.
func (h *SalesHandler) Fulfill(c *gin.Context) {
	sale, err := h.sales.Fulfill(c.Param("receipt"), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// AddPayment records a payment against a sale. Settling a pending sale
// commits its reserved stock before the response is written.
func (h *SalesHandler) AddPayment(c *gin.Context) {
	var req dto.PaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sale, err := h.payments.AddPayment(c.Param("receipt"), req.Amount, model.PaymentMethod(req.Method), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// ValidatePayment dry-runs a payment without recording anything.
func (h *SalesHandler) ValidatePayment(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	preview, err := h.payments.ValidatePayment(c.Param("receipt"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Payments returns the payment ledger of a sale.
func (h *SalesHandler) Payments(c *gin.Context) {
	receipt := c.Param("receipt")
	payments, err := h.payments.PaymentHistory(receipt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PaymentListResponse{Receipt: receipt, Count: len(payments), Payments: payments})
}

// Stats returns the aggregate sales figures.
func (h *SalesHandler) Stats(c *gin.Context) {
	stats, err := h.sales.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Audit returns the audit trail, optionally filtered by event type.
func (h *SalesHandler) Audit(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, service.ErrInvalidQuantity)
			return
		}
		limit = n
	}
	events, err := h.audit.Events(model.AuditType(c.Query("type")), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AuditListResponse{Count: len(events), Events: events})
}
