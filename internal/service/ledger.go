package service

import (
	"fmt"

	"github.com/hzzxn/app-stock/internal/model"
	"github.com/hzzxn/app-stock/internal/store"
)

// ledger implements the primitive stock operations. Every method runs
// inside a store transaction that holds the inventory lock, so each call
// is linearizable per unit key. The multi-item variants validate the
// whole batch before touching any counter, so a call either applies fully
// or not at all.
//
// Reservations are keyed by (receipt, unit) in the store's reservation
// table; releasing or committing stock a sale never reserved fails loudly
// instead of clamping counters.
type ledger struct{}

func (ledger) unit(tx *store.Tx, key store.UnitKey) (*model.UnitStock, error) {
	p, ok := tx.Product(key.ProductID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, key.ProductID)
	}
	v := p.Variant(key.VariantID)
	if v == nil {
		return nil, fmt.Errorf("%w: %s in product %d", ErrVariantNotFound, key.VariantID, key.ProductID)
	}
	u := v.Unit(key.UV)
	if u == nil {
		return nil, fmt.Errorf("%w: %s on variant %s", ErrUnitNotFound, key.UV, key.VariantID)
	}
	return u, nil
}

// itemKeys aggregates sale items into per-unit quantities, so two lines on
// the same unit are validated and applied as one figure.
func itemKeys(items []model.SaleItem) map[store.UnitKey]int {
	keys := make(map[store.UnitKey]int, len(items))
	for _, item := range items {
		keys[store.UnitKey{ProductID: item.ProductID, VariantID: item.VariantID, UV: item.UV}] += item.Qty
	}
	return keys
}

// reserveItems places a hold for every item of an unpaid sale.
func (l ledger) reserveItems(tx *store.Tx, receipt string, items []model.SaleItem) error {
	keys := itemKeys(items)
	units := make(map[store.UnitKey]*model.UnitStock, len(keys))
	for key, qty := range keys {
		u, err := l.unit(tx, key)
		if err != nil {
			return err
		}
		if avail := u.Available(); avail < qty {
			return &InsufficientStockError{Key: key, Requested: qty, Available: avail}
		}
		units[key] = u
	}
	for key, qty := range keys {
		units[key].Reserved += qty
		tx.AddReservation(receipt, key, qty)
	}
	return nil
}

// releaseItems drops the sale's holds without consuming stock (void of an
// unpaid sale).
func (l ledger) releaseItems(tx *store.Tx, receipt string, items []model.SaleItem) error {
	keys := itemKeys(items)
	units := make(map[store.UnitKey]*model.UnitStock, len(keys))
	for key, qty := range keys {
		u, err := l.unit(tx, key)
		if err != nil {
			return err
		}
		if tx.Outstanding(receipt, key) < qty {
			return fmt.Errorf("%w: %s on %s", store.ErrNoReservation, receipt, key)
		}
		units[key] = u
	}
	for key, qty := range keys {
		if err := tx.ConsumeReservation(receipt, key, qty); err != nil {
			return err
		}
		units[key].Reserved -= qty
	}
	return nil
}

// commitItems turns the sale's holds into consumed stock (sale settled).
func (l ledger) commitItems(tx *store.Tx, receipt string, items []model.SaleItem) error {
	keys := itemKeys(items)
	units := make(map[store.UnitKey]*model.UnitStock, len(keys))
	for key, qty := range keys {
		u, err := l.unit(tx, key)
		if err != nil {
			return err
		}
		if tx.Outstanding(receipt, key) < qty {
			return fmt.Errorf("%w: %s on %s", store.ErrNoReservation, receipt, key)
		}
		if u.Stock < qty {
			return fmt.Errorf("reservation accounting violated on %s: stock %d below reserved commit of %d",
				key, u.Stock, qty)
		}
		units[key] = u
	}
	for key, qty := range keys {
		if err := tx.ConsumeReservation(receipt, key, qty); err != nil {
			return err
		}
		units[key].Reserved -= qty
		units[key].Stock -= qty
	}
	return nil
}

// consumeItems decrements stock directly, skipping the reservation phase
// (sale created already fully paid).
func (l ledger) consumeItems(tx *store.Tx, items []model.SaleItem) error {
	keys := itemKeys(items)
	units := make(map[store.UnitKey]*model.UnitStock, len(keys))
	for key, qty := range keys {
		u, err := l.unit(tx, key)
		if err != nil {
			return err
		}
		if avail := u.Available(); avail < qty {
			return &InsufficientStockError{Key: key, Requested: qty, Available: avail}
		}
		units[key] = u
	}
	for key, qty := range keys {
		units[key].Stock -= qty
	}
	return nil
}

// restoreItems returns consumed stock to the shelf (void of a settled sale).
func (l ledger) restoreItems(tx *store.Tx, items []model.SaleItem) error {
	keys := itemKeys(items)
	units := make(map[store.UnitKey]*model.UnitStock, len(keys))
	for key := range keys {
		u, err := l.unit(tx, key)
		if err != nil {
			return err
		}
		units[key] = u
	}
	for key, qty := range keys {
		units[key].Stock += qty
	}
	return nil
}

// adjust applies a signed delta to on-hand stock from inventory management.
// Removals are capped at the available quantity so adjustments can never
// cut into stock that is reserved for pending sales.
func (l ledger) adjust(tx *store.Tx, key store.UnitKey, delta int) error {
	u, err := l.unit(tx, key)
	if err != nil {
		return err
	}
	if delta < 0 {
		if avail := u.Available(); avail < -delta {
			return &InsufficientStockError{Key: key, Requested: -delta, Available: avail}
		}
	}
	u.Stock += delta
	return nil
}
