package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzzxn/app-stock/internal/model"
	"github.com/hzzxn/app-stock/internal/store"
)

func items(qty int) []model.SaleItem {
	return []model.SaleItem{{ProductID: 1, VariantID: "V1", UV: model.UnitBox, Qty: qty}}
}

func TestLedger_ReserveThenRelease_RestoresCounters(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	var l ledger
	err := e.store.Update(store.ScopeInventory, func(tx *store.Tx) error {
		require.NoError(t, l.reserveItems(tx, "R0001", items(4)))
		return l.releaseItems(tx, "R0001", items(4))
	})
	require.NoError(t, err)

	u := e.shoeUnit(t)
	assert.Equal(t, 10, u.Stock)
	assert.Equal(t, 0, u.Reserved)
	assert.Equal(t, 10, u.Available())
}

func TestLedger_ReserveThenCommit_ConsumesStock(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	var l ledger
	err := e.store.Update(store.ScopeInventory, func(tx *store.Tx) error {
		require.NoError(t, l.reserveItems(tx, "R0001", items(4)))
		return l.commitItems(tx, "R0001", items(4))
	})
	require.NoError(t, err)

	u := e.shoeUnit(t)
	assert.Equal(t, 6, u.Stock)
	assert.Equal(t, 0, u.Reserved)
}

func TestLedger_Reserve_InsufficientStock(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	var l ledger
	err := e.store.Update(store.ScopeInventory, func(tx *store.Tx) error {
		return l.reserveItems(tx, "R0001", items(11))
	})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 11, insufficient.Requested)
	assert.Equal(t, 10, insufficient.Available)

	// No partial effect.
	u := e.shoeUnit(t)
	assert.Equal(t, 0, u.Reserved)
}

func TestLedger_Reserve_AggregatesDuplicateLines(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	var l ledger
	two := append(items(6), items(6)...)
	err := e.store.Update(store.ScopeInventory, func(tx *store.Tx) error {
		return l.reserveItems(tx, "R0001", two)
	})
	// 6+6 exceeds the 10 available and must be judged as one figure.
	var insufficient *InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
}

func TestLedger_DoubleRelease_Detected(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	var l ledger
	err := e.store.Update(store.ScopeInventory, func(tx *store.Tx) error {
		require.NoError(t, l.reserveItems(tx, "R0001", items(3)))
		require.NoError(t, l.releaseItems(tx, "R0001", items(3)))
		return l.releaseItems(tx, "R0001", items(3))
	})
	assert.ErrorIs(t, err, store.ErrNoReservation)

	u := e.shoeUnit(t)
	assert.Equal(t, 0, u.Reserved)
	assert.Equal(t, 10, u.Stock)
}

func TestLedger_ReleaseForeignReservation_Detected(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	var l ledger
	err := e.store.Update(store.ScopeInventory, func(tx *store.Tx) error {
		require.NoError(t, l.reserveItems(tx, "R0001", items(3)))
		return l.commitItems(tx, "R0002", items(3))
	})
	assert.ErrorIs(t, err, store.ErrNoReservation)
}

func TestLedger_ConsumeDirect_SkipsReservation(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	var l ledger
	err := e.store.Update(store.ScopeInventory, func(tx *store.Tx) error {
		return l.consumeItems(tx, items(4))
	})
	require.NoError(t, err)

	u := e.shoeUnit(t)
	assert.Equal(t, 6, u.Stock)
	assert.Equal(t, 0, u.Reserved)
}

func TestLedger_Restore_ReturnsStock(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	var l ledger
	err := e.store.Update(store.ScopeInventory, func(tx *store.Tx) error {
		require.NoError(t, l.consumeItems(tx, items(4)))
		return l.restoreItems(tx, items(4))
	})
	require.NoError(t, err)
	assert.Equal(t, 10, e.shoeUnit(t).Stock)
}

func TestLedger_Adjust_RemovalNeverCutsIntoReserved(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	var l ledger
	err := e.store.Update(store.ScopeInventory, func(tx *store.Tx) error {
		require.NoError(t, l.reserveItems(tx, "R0001", items(7)))
		return l.adjust(tx, e.shoeKey(), -4)
	})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Available)

	u := e.shoeUnit(t)
	assert.Equal(t, 10, u.Stock)
}

func TestLedger_UnknownUnit(t *testing.T) {
	e := newEnv(t)
	e.seedShoe(t)

	var l ledger
	err := e.store.Update(store.ScopeInventory, func(tx *store.Tx) error {
		return l.adjust(tx, store.UnitKey{ProductID: 1, VariantID: "V1", UV: model.UnitSack}, 1)
	})
	assert.ErrorIs(t, err, ErrUnitNotFound)
}
