package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzzxn/app-stock/internal/model"
)

// ── Helpers ───────────────────────────────────────────────────────────────────

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir, Options{})
	require.NoError(t, err)
	return s
}

func testProduct(id int) *model.Product {
	return &model.Product{
		ID:    id,
		SKU:   "SKU-1",
		Name:  "Test product",
		Price: decimal.NewFromInt(10),
		Cost:  decimal.NewFromInt(4),
		Variants: []*model.Variant{
			{
				VariantID: "V1",
				Units:     []*model.UnitStock{{UV: model.UnitBox, Stock: 10}},
			},
		},
	}
}

func testSale(receipt string, status model.SaleStatus, qty int) *model.Sale {
	return &model.Sale{
		Receipt: receipt,
		User:    "tester",
		TS:      time.Now().UTC(),
		Status:  status,
		Items: []model.SaleItem{
			{ProductID: 1, SKU: "SKU-1", Qty: qty, VariantID: "V1", UV: model.UnitBox},
		},
		Total: decimal.NewFromInt(int64(qty) * 10),
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestOpen_EmptyDir(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	err := s.View(ScopeInventory|ScopeSales|ScopeAudit, func(tx *Tx) error {
		assert.Empty(t, tx.Products())
		assert.Empty(t, tx.Sales())
		assert.Empty(t, tx.AuditEvents())
		return nil
	})
	require.NoError(t, err)
}

func TestPersistence_Roundtrip(t *testing.T) {
	dir := t.TempDir()

	s := openStore(t, dir)
	err := s.UpdateSync(ScopeInventory|ScopeSales|ScopeAudit, func(tx *Tx) error {
		tx.PutProduct(testProduct(1))
		tx.AppendSale(testSale(tx.NextReceipt(), model.StatusPaidCash, 2))
		tx.AppendAudit(model.AuditEvent{ID: "ev1", Type: model.AuditSale, Message: "created"})
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := openStore(t, dir)
	defer reopened.Close()

	err = reopened.View(ScopeInventory|ScopeSales|ScopeAudit, func(tx *Tx) error {
		p, ok := tx.Product(1)
		require.True(t, ok)
		assert.Equal(t, "SKU-1", p.SKU)
		assert.True(t, p.Price.Equal(decimal.NewFromInt(10)))

		sale, ok := tx.SaleByReceipt("R0001")
		require.True(t, ok)
		assert.Equal(t, model.StatusPaidCash, sale.Status)

		require.Len(t, tx.AuditEvents(), 1)
		assert.Equal(t, "ev1", tx.AuditEvents()[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestReceiptNumbering_ContinuesFromMaxSuffix(t *testing.T) {
	dir := t.TempDir()

	s := openStore(t, dir)
	err := s.UpdateSync(ScopeSales, func(tx *Tx) error {
		tx.AppendSale(testSale("R0007", model.StatusFulfilled, 1))
		tx.AppendSale(testSale("R0003", model.StatusFulfilled, 1))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := openStore(t, dir)
	defer reopened.Close()

	err = reopened.Update(ScopeSales, func(tx *Tx) error {
		assert.Equal(t, "R0008", tx.NextReceipt())
		return nil
	})
	require.NoError(t, err)
}

func TestAtomicWrite_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()

	s := openStore(t, dir)
	err := s.UpdateSync(ScopeInventory, func(tx *Tx) error {
		tx.PutProduct(testProduct(1))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".tmp", filepath.Ext(e.Name()))
	}
	_, err = os.Stat(filepath.Join(dir, "products.json"))
	assert.NoError(t, err)
}

func TestLoad_RebuildsReservationsFromPendingSales(t *testing.T) {
	dir := t.TempDir()

	s := openStore(t, dir)
	err := s.UpdateSync(ScopeInventory|ScopeSales, func(tx *Tx) error {
		p := testProduct(1)
		// A stale counter in the snapshot must not survive the reload.
		p.Variants[0].Units[0].Reserved = 9
		tx.PutProduct(p)
		tx.AppendSale(testSale("R0001", model.StatusPendingPayment, 3))
		tx.AppendSale(testSale("R0002", model.StatusVoided, 5))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := openStore(t, dir)
	defer reopened.Close()

	key := UnitKey{ProductID: 1, VariantID: "V1", UV: model.UnitBox}
	err = reopened.View(ScopeInventory, func(tx *Tx) error {
		p, _ := tx.Product(1)
		u := p.Variants[0].Units[0]
		// Only the pending sale holds stock; the voided one does not.
		assert.Equal(t, 3, u.Reserved)
		assert.Equal(t, 7, u.Available())
		assert.Equal(t, 3, tx.Outstanding("R0001", key))
		assert.Equal(t, 0, tx.Outstanding("R0002", key))
		return nil
	})
	require.NoError(t, err)
}

func TestConsumeReservation_DetectsOverRelease(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	key := UnitKey{ProductID: 1, VariantID: "V1", UV: model.UnitBox}
	err := s.Update(ScopeInventory, func(tx *Tx) error {
		tx.AddReservation("R0001", key, 2)
		require.NoError(t, tx.ConsumeReservation("R0001", key, 2))
		return tx.ConsumeReservation("R0001", key, 1)
	})
	assert.ErrorIs(t, err, ErrNoReservation)
}

func TestTx_PanicsOutsideScope(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	assert.Panics(t, func() {
		_ = s.View(ScopeInventory, func(tx *Tx) error {
			tx.Sales()
			return nil
		})
	})
}

func TestUpdate_ErrorSkipsFlush(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	defer s.Close()

	wantErr := assert.AnError
	err := s.UpdateSync(ScopeInventory, func(tx *Tx) error {
		tx.PutProduct(testProduct(1))
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, statErr := os.Stat(filepath.Join(dir, "products.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUpdateSync_ConcurrentAuditAppendsAllDurable(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)

	const writers = 64
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.UpdateSync(ScopeAudit, func(tx *Tx) error {
				tx.AppendAudit(model.AuditEvent{ID: fmt.Sprintf("ev%03d", i), Type: model.AuditSystem})
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Every acknowledged append must be on disk, not just in memory: a
	// snapshot written later may never carry fewer events than one written
	// earlier.
	raw, err := os.ReadFile(filepath.Join(dir, "audit.json"))
	require.NoError(t, err)
	var events []model.AuditEvent
	require.NoError(t, json.Unmarshal(raw, &events))
	seen := make(map[string]bool, len(events))
	for _, ev := range events {
		seen[ev.ID] = true
	}
	for i := 0; i < writers; i++ {
		assert.True(t, seen[fmt.Sprintf("ev%03d", i)], "event ev%03d missing from snapshot", i)
	}
	require.NoError(t, s.Close())
}

func TestUpdateSync_MarshalFailureReturnsError(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	defer s.Close()

	err := s.UpdateSync(ScopeAudit, func(tx *Tx) error {
		tx.AppendAudit(model.AuditEvent{
			ID:      "bad",
			Type:    model.AuditSystem,
			Details: map[string]interface{}{"ch": make(chan int)},
		})
		return nil
	})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "audit.json"))
	assert.True(t, os.IsNotExist(statErr))
}
