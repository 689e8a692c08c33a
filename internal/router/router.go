package router

import (
	"time"

	"github.com/hzzxn/app-stock/internal/config"
	"github.com/hzzxn/app-stock/internal/handler"
	"github.com/hzzxn/app-stock/internal/middleware"
	"github.com/hzzxn/app-stock/internal/service"
	"github.com/hzzxn/app-stock/internal/store"

	"github.com/gin-gonic/gin"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Store
func New(cfg *config.Config, st *store.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimit, time.Duration(cfg.RateWindowSeconds)*time.Second))
	r.Use(middleware.Actor())

	// ── Services ─────────────────────────────────────────────────────────────
	gate := service.RoleGate{}
	salesSvc := service.NewSalesService(st, gate)
	paymentSvc := service.NewPaymentService(st)
	inventorySvc := service.NewInventoryService(st)
	auditLog := service.NewAuditLog(st)

	// ── Handlers ─────────────────────────────────────────────────────────────
	salesH := handler.NewSalesHandler(salesSvc, paymentSvc, auditLog)
	inventoryH := handler.NewInventoryHandler(inventorySvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(cfg.DataDir))

	v1 := r.Group("/v1")
	{
		sales := v1.Group("/sales")
		{
			sales.POST("", salesH.Create)
			sales.GET("", salesH.List)
			sales.GET("/pending", salesH.Pending)
			sales.GET("/stats", salesH.Stats)
			sales.GET("/:receipt", salesH.Get)
			sales.PATCH("/:receipt/status", salesH.ChangeStatus)
			sales.POST("/:receipt/fulfill", salesH.Fulfill)
			sales.POST("/:receipt/payments", salesH.AddPayment)
			sales.GET("/:receipt/payments", salesH.Payments)
			sales.POST("/:receipt/payments/validate", salesH.ValidatePayment)
		}

		products := v1.Group("/products")
		{
			products.POST("", inventoryH.Create)
			products.GET("", inventoryH.List)
			products.GET("/low-stock", inventoryH.LowStock)
			products.GET("/:id", inventoryH.Get)
			products.POST("/:id/variants", inventoryH.AddVariant)
			products.POST("/:id/variants/:vid/units", inventoryH.AddUnit)
			products.POST("/:id/stock", inventoryH.AdjustStock)
		}

		v1.GET("/audit", salesH.Audit)
	}

	return r
}
