package handler

import (
	"net/http"
	"strconv"

	"github.com/hzzxn/app-stock/internal/apierror"
	"github.com/hzzxn/app-stock/internal/dto"
	"github.com/hzzxn/app-stock/internal/middleware"
	"github.com/hzzxn/app-stock/internal/model"
	"github.com/hzzxn/app-stock/internal/service"
	"github.com/hzzxn/app-stock/internal/store"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventory service.InventoryService
}

func NewInventoryHandler(inventory service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

func productID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product id"))
		return 0, false
	}
	return id, true
}

// Create registers a new product with its initial variants.
func (h *InventoryHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}

	in := service.CreateProductInput{
		SKU:      req.SKU,
		Name:     req.Name,
		Category: req.Category,
		StockMin: req.StockMin,
		Price:    req.Price,
		Cost:     req.Cost,
	}
	for _, v := range req.Variants {
		in.Variants = append(in.Variants, toVariantInput(v))
	}

	p, err := h.inventory.CreateProduct(in, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func toVariantInput(v dto.VariantRequest) service.VariantInput {
	in := service.VariantInput{
		VariantID:  v.VariantID,
		Attributes: v.Attributes,
	}
	for _, u := range v.Units {
		in.Units = append(in.Units, service.UnitInput{
			UV:    model.UnitOfSale(u.UV),
			Label: u.Label,
			Stock: u.Stock,
			Price: u.Price,
			Cost:  u.Cost,
		})
	}
	return in
}

// List returns the whole catalog.
func (h *InventoryHandler) List(c *gin.Context) {
	if sku := c.Query("sku"); sku != "" {
		p, err := h.inventory.GetProductBySKU(sku)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.ProductListResponse{Count: 1, Products: []*model.Product{p}})
		return
	}
	products, err := h.inventory.ListProducts()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProductListResponse{Count: len(products), Products: products})
}

// Get returns one product by id.
func (h *InventoryHandler) Get(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	p, err := h.inventory.GetProduct(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// AddVariant appends a new configuration to a product.
func (h *InventoryHandler) AddVariant(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req dto.VariantRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, err := h.inventory.AddVariant(id, toVariantInput(req), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// AddUnit offers a variant in an additional unit-of-sale.
func (h *InventoryHandler) AddUnit(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req dto.AddUnitRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, err := h.inventory.AddUnit(id, c.Param("vid"), service.UnitInput{
		UV:    model.UnitOfSale(req.UV),
		Label: req.Label,
		Stock: req.Stock,
		Price: req.Price,
		Cost:  req.Cost,
	}, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// AdjustStock receives or removes on-hand stock for one unit.
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req dto.StockAdjustRequest
	if !bindAndValidate(c, &req) {
		return
	}

	key := store.UnitKey{ProductID: id, VariantID: req.VariantID, UV: model.UnitOfSale(req.UV)}
	actor := middleware.GetActor(c)

	var (
		p   *model.Product
		err error
	)
	if req.Direction == "in" {
		p, err = h.inventory.AddStock(key, req.Qty, actor)
	} else {
		p, err = h.inventory.RemoveStock(key, req.Qty, actor)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// LowStock lists products at or below their minimum stock threshold.
func (h *InventoryHandler) LowStock(c *gin.Context) {
	products, err := h.inventory.LowStock()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProductListResponse{Count: len(products), Products: products})
}
