package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hzzxn/app-stock/internal/model"
	"github.com/hzzxn/app-stock/internal/store"
)

// ── Fixtures ──────────────────────────────────────────────────────────────────

// env wires the full service stack over a real store in a temp directory.
type env struct {
	store     *store.Store
	sales     SalesService
	payments  PaymentService
	inventory InventoryService
	audit     AuditLog
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st, err := store.Open(t.TempDir(), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return &env{
		store:     st,
		sales:     NewSalesService(st, RoleGate{}),
		payments:  NewPaymentService(st),
		inventory: NewInventoryService(st),
		audit:     NewAuditLog(st),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedShoe creates product 1: variant V1 sold by the box, 10 in stock,
// price 10, cost 4.
func (e *env) seedShoe(t *testing.T) *model.Product {
	t.Helper()
	p, err := e.inventory.CreateProduct(CreateProductInput{
		SKU:      "SHOE-01",
		Name:     "Shoe",
		Category: "footwear",
		StockMin: 2,
		Price:    dec("10"),
		Cost:     dec("4"),
		Variants: []VariantInput{
			{
				VariantID:  "V1",
				Attributes: map[string]string{"color": "black"},
				Units:      []UnitInput{{UV: model.UnitBox, Stock: 10}},
			},
		},
	}, "seeder")
	require.NoError(t, err)
	return p
}

func (e *env) shoeKey() store.UnitKey {
	return store.UnitKey{ProductID: 1, VariantID: "V1", UV: model.UnitBox}
}

// shoeUnit reads back the live stock counters for the seeded unit.
func (e *env) shoeUnit(t *testing.T) model.UnitStock {
	t.Helper()
	var out model.UnitStock
	err := e.store.View(store.ScopeInventory, func(tx *store.Tx) error {
		p, ok := tx.Product(1)
		require.True(t, ok)
		out = *p.Variants[0].Units[0]
		return nil
	})
	require.NoError(t, err)
	return out
}

func (e *env) cart(qty int) []CartItem {
	return []CartItem{{ProductID: 1, VariantID: "V1", UV: model.UnitBox, Qty: qty}}
}

// pendingShoeSale seeds the catalog and creates an unpaid sale of qty boxes.
func (e *env) pendingShoeSale(t *testing.T, qty int) *model.Sale {
	t.Helper()
	e.seedShoe(t)
	sale, err := e.sales.CreateSale(CreateSaleInput{User: "cashier", Items: e.cart(qty)})
	require.NoError(t, err)
	return sale
}

func (e *env) auditCount(t *testing.T, typ model.AuditType) int {
	t.Helper()
	events, err := e.audit.Events(typ, 0)
	require.NoError(t, err)
	return len(events)
}
