package store

import (
	"errors"
	"fmt"

	"github.com/hzzxn/app-stock/internal/model"
)

// ErrNoReservation means a release or commit referenced stock the sale
// never reserved (or already consumed). That is a reservation-accounting
// bug and must surface instead of being clamped away.
var ErrNoReservation = errors.New("no outstanding reservation for sale")

// Tx gives scoped access to the in-memory state while the corresponding
// locks are held. A Tx is only valid inside the Update/View callback that
// produced it; accessors touching a resource outside the Tx scope panic,
// because that would mean reading or writing without the lock.
type Tx struct {
	s     *Store
	scope Scope
}

func (tx *Tx) need(scope Scope, resource string) {
	if tx.scope&scope == 0 {
		panic(fmt.Sprintf("store: %s accessed outside transaction scope", resource))
	}
}

// ── Inventory ────────────────────────────────────────────────────────────────

// Product returns the live product with the given id.
func (tx *Tx) Product(id int) (*model.Product, bool) {
	tx.need(ScopeInventory, "inventory")
	p, ok := tx.s.products[id]
	return p, ok
}

// ProductBySKU scans for a product with the given SKU.
func (tx *Tx) ProductBySKU(sku string) (*model.Product, bool) {
	tx.need(ScopeInventory, "inventory")
	for _, p := range tx.s.products {
		if p.SKU == sku {
			return p, true
		}
	}
	return nil, false
}

// Products returns all products ordered by id.
func (tx *Tx) Products() []*model.Product {
	tx.need(ScopeInventory, "inventory")
	return sortedProducts(tx.s.products)
}

// PutProduct inserts or replaces a product.
func (tx *Tx) PutProduct(p *model.Product) {
	tx.need(ScopeInventory, "inventory")
	tx.s.products[p.ID] = p
}

// NextProductID returns one more than the highest existing product id.
func (tx *Tx) NextProductID() int {
	tx.need(ScopeInventory, "inventory")
	max := 0
	for id := range tx.s.products {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// ── Reservations (inventory resource) ────────────────────────────────────────

// AddReservation records qty units held for the sale on the given unit.
func (tx *Tx) AddReservation(receipt string, key UnitKey, qty int) {
	tx.need(ScopeInventory, "inventory")
	held := tx.s.reservations[receipt]
	if held == nil {
		held = make(map[UnitKey]int)
		tx.s.reservations[receipt] = held
	}
	held[key] += qty
}

// Outstanding reports how many units the sale still holds on the given unit.
func (tx *Tx) Outstanding(receipt string, key UnitKey) int {
	tx.need(ScopeInventory, "inventory")
	return tx.s.reservations[receipt][key]
}

// ConsumeReservation removes qty units from the sale's hold on the given
// unit. It fails when the sale does not hold that many — double releases
// are detected here rather than clamped.
func (tx *Tx) ConsumeReservation(receipt string, key UnitKey, qty int) error {
	tx.need(ScopeInventory, "inventory")
	held := tx.s.reservations[receipt]
	if held == nil || held[key] < qty {
		return fmt.Errorf("%w: %s holds %d of %s, tried to release %d",
			ErrNoReservation, receipt, held[key], key, qty)
	}
	held[key] -= qty
	if held[key] == 0 {
		delete(held, key)
	}
	if len(held) == 0 {
		delete(tx.s.reservations, receipt)
	}
	return nil
}

// ── Sales ────────────────────────────────────────────────────────────────────

// SaleByReceipt returns the live sale with the given receipt.
func (tx *Tx) SaleByReceipt(receipt string) (*model.Sale, bool) {
	tx.need(ScopeSales, "sales")
	sale, ok := tx.s.byReceipt[receipt]
	return sale, ok
}

// Sales returns all sales in creation order.
func (tx *Tx) Sales() []*model.Sale {
	tx.need(ScopeSales, "sales")
	return tx.s.sales
}

// AppendSale stores a newly created sale.
func (tx *Tx) AppendSale(sale *model.Sale) {
	tx.need(ScopeSales, "sales")
	tx.s.sales = append(tx.s.sales, sale)
	tx.s.byReceipt[sale.Receipt] = sale
	if n, ok := receiptNumber(sale.Receipt); ok && n > tx.s.maxReceipt {
		tx.s.maxReceipt = n
	}
}

// NextReceipt issues the next sequential receipt number (R0001, R0002, …).
func (tx *Tx) NextReceipt() string {
	tx.need(ScopeSales, "sales")
	tx.s.maxReceipt++
	return fmt.Sprintf("R%04d", tx.s.maxReceipt)
}

// ── Audit ────────────────────────────────────────────────────────────────────

// AppendAudit stores an audit event.
func (tx *Tx) AppendAudit(ev model.AuditEvent) {
	tx.need(ScopeAudit, "audit")
	tx.s.audit = append(tx.s.audit, ev)
}

// AuditEvents returns the audit trail in append order.
func (tx *Tx) AuditEvents() []model.AuditEvent {
	tx.need(ScopeAudit, "audit")
	return tx.s.audit
}
