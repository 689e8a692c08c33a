// Package store is the persistence cache: an in-memory mirror of the
// durable JSON snapshots with write-behind flushing.
//
// Each durable resource (inventory, sales, audit) is guarded by its own
// lock. Operations that touch more than one resource must acquire locks
// through Update/View, which take them in a single fixed global order
// (inventory → sales → audit) to prevent deadlock. Mutations update the
// in-memory copy synchronously and queue the serialized snapshot for the
// background writer; UpdateSync waits for durability before returning.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/hzzxn/app-stock/internal/model"
)

// Scope selects which resources a transaction locks (and flushes).
type Scope uint8

const (
	ScopeInventory Scope = 1 << iota
	ScopeSales
	ScopeAudit
)

// UnitKey identifies one stock counter: a unit-of-sale of a variant.
type UnitKey struct {
	ProductID int
	VariantID string
	UV        model.UnitOfSale
}

func (k UnitKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.ProductID, k.VariantID, k.UV)
}

// Options tunes the write-behind flusher.
type Options struct {
	FlushQueueSize  int
	FlushMaxRetries int
}

// Store owns the in-memory state and the durable snapshot files.
type Store struct {
	invMu   sync.RWMutex
	salesMu sync.RWMutex
	auditMu sync.RWMutex

	// guarded by invMu
	products map[int]*model.Product
	// outstanding reservations per sale: receipt → unit → qty.
	// Rebuilt from PENDING_PAYMENT sales at load time; the Reserved
	// counters on UnitStock are recomputed from this table, never trusted
	// from the snapshot, so reserved > stock cannot survive a restart.
	reservations map[string]map[UnitKey]int

	// guarded by salesMu
	sales      []*model.Sale
	byReceipt  map[string]*model.Sale
	maxReceipt int

	// guarded by auditMu
	audit []model.AuditEvent

	productsRes *resource
	salesRes    *resource
	auditRes    *resource
	flusher     *flusher
}

// Open loads (or initializes) the snapshots under dir and starts the
// background writer.
func Open(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	s := &Store{
		products:     make(map[int]*model.Product),
		reservations: make(map[string]map[UnitKey]int),
		byReceipt:    make(map[string]*model.Sale),
		productsRes:  newResource(dir, "products"),
		salesRes:     newResource(dir, "sales"),
		auditRes:     newResource(dir, "audit"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.flusher = newFlusher(opts.FlushQueueSize, opts.FlushMaxRetries)
	return s, nil
}

func (s *Store) load() error {
	// Products are persisted as a map keyed by id.
	if data, err := s.productsRes.read(); err != nil {
		return err
	} else if data != nil {
		byID := make(map[string]*model.Product)
		if err := json.Unmarshal(data, &byID); err != nil {
			return fmt.Errorf("decode products: %w", err)
		}
		for key, p := range byID {
			id, err := strconv.Atoi(key)
			if err != nil {
				return fmt.Errorf("decode products: bad id %q", key)
			}
			p.ID = id
			s.products[id] = p
		}
	}

	if data, err := s.salesRes.read(); err != nil {
		return err
	} else if data != nil {
		if err := json.Unmarshal(data, &s.sales); err != nil {
			return fmt.Errorf("decode sales: %w", err)
		}
	}
	for _, sale := range s.sales {
		s.byReceipt[sale.Receipt] = sale
		if n, ok := receiptNumber(sale.Receipt); ok && n > s.maxReceipt {
			s.maxReceipt = n
		}
	}

	if data, err := s.auditRes.read(); err != nil {
		return err
	} else if data != nil {
		if err := json.Unmarshal(data, &s.audit); err != nil {
			return fmt.Errorf("decode audit: %w", err)
		}
	}

	s.rebuildReservations()
	return nil
}

// rebuildReservations derives the reservation table from pending sales and
// resets every Reserved counter to match it.
func (s *Store) rebuildReservations() {
	for _, p := range s.products {
		for _, v := range p.Variants {
			for _, u := range v.Units {
				u.Reserved = 0
			}
		}
	}
	for _, sale := range s.sales {
		if sale.Status != model.StatusPendingPayment {
			continue
		}
		held := make(map[UnitKey]int)
		for _, item := range sale.Items {
			key := UnitKey{ProductID: item.ProductID, VariantID: item.VariantID, UV: item.UV}
			held[key] += item.Qty
			if p, ok := s.products[item.ProductID]; ok {
				if v := p.Variant(item.VariantID); v != nil {
					if u := v.Unit(item.UV); u != nil {
						u.Reserved += item.Qty
					}
				}
			}
		}
		s.reservations[sale.Receipt] = held
	}
}

func receiptNumber(receipt string) (int, bool) {
	if len(receipt) < 2 || receipt[0] != 'R' {
		return 0, false
	}
	n, err := strconv.Atoi(receipt[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Update runs fn under write locks for the given scope and, on success,
// queues snapshots of every scoped resource for asynchronous persistence.
func (s *Store) Update(scope Scope, fn func(tx *Tx) error) error {
	return s.update(scope, false, fn)
}

// UpdateSync is Update but waits until the snapshots are durable. Use it
// when the caller must not observe success before the data is on disk
// (e.g. stock decrements on sale confirmation).
func (s *Store) UpdateSync(scope Scope, fn func(tx *Tx) error) error {
	return s.update(scope, true, fn)
}

func (s *Store) update(scope Scope, sync bool, fn func(tx *Tx) error) error {
	s.lock(scope)
	err := fn(&Tx{s: s, scope: scope})
	var waits []chan error
	if err == nil {
		var snaps []snapshot
		snaps, err = s.marshalLocked(scope)
		// Enqueue while still holding the locks: the queue then carries
		// snapshots in mutation order, so the writer can never overwrite a
		// newer snapshot with a staler one marshaled by a rival that lost
		// the race to the channel.
		for _, snap := range snaps {
			waits = append(waits, s.flusher.submit(snap.res, snap.data, sync))
		}
	}
	s.unlock(scope)
	if err != nil {
		return err
	}
	// Waiting for durability happens outside the locks.
	for _, done := range waits {
		if done == nil {
			continue
		}
		if ferr := <-done; ferr != nil {
			return ferr
		}
	}
	return nil
}

// View runs fn under read locks for the given scope.
func (s *Store) View(scope Scope, fn func(tx *Tx) error) error {
	s.rlock(scope)
	defer s.runlock(scope)
	return fn(&Tx{s: s, scope: scope})
}

// Lock acquisition order is fixed: inventory → sales → audit.
func (s *Store) lock(scope Scope) {
	if scope&ScopeInventory != 0 {
		s.invMu.Lock()
	}
	if scope&ScopeSales != 0 {
		s.salesMu.Lock()
	}
	if scope&ScopeAudit != 0 {
		s.auditMu.Lock()
	}
}

func (s *Store) unlock(scope Scope) {
	if scope&ScopeAudit != 0 {
		s.auditMu.Unlock()
	}
	if scope&ScopeSales != 0 {
		s.salesMu.Unlock()
	}
	if scope&ScopeInventory != 0 {
		s.invMu.Unlock()
	}
}

func (s *Store) rlock(scope Scope) {
	if scope&ScopeInventory != 0 {
		s.invMu.RLock()
	}
	if scope&ScopeSales != 0 {
		s.salesMu.RLock()
	}
	if scope&ScopeAudit != 0 {
		s.auditMu.RLock()
	}
}

func (s *Store) runlock(scope Scope) {
	if scope&ScopeAudit != 0 {
		s.auditMu.RUnlock()
	}
	if scope&ScopeSales != 0 {
		s.salesMu.RUnlock()
	}
	if scope&ScopeInventory != 0 {
		s.invMu.RUnlock()
	}
}

// marshalLocked serializes the scoped resources; the caller holds their locks.
// A marshal failure aborts the flush so the caller can report it instead of
// acknowledging a write that never reached disk.
func (s *Store) marshalLocked(scope Scope) ([]snapshot, error) {
	var snaps []snapshot
	if scope&ScopeInventory != 0 {
		byID := make(map[string]*model.Product, len(s.products))
		for id, p := range s.products {
			byID[strconv.Itoa(id)] = p
		}
		data, err := json.MarshalIndent(byID, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", s.productsRes.name, err)
		}
		snaps = append(snaps, snapshot{res: s.productsRes, data: data})
	}
	if scope&ScopeSales != 0 {
		data, err := json.MarshalIndent(s.sales, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", s.salesRes.name, err)
		}
		snaps = append(snaps, snapshot{res: s.salesRes, data: data})
	}
	if scope&ScopeAudit != 0 {
		data, err := json.MarshalIndent(s.audit, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", s.auditRes.name, err)
		}
		snaps = append(snaps, snapshot{res: s.auditRes, data: data})
	}
	return snaps, nil
}

// Close flushes every resource synchronously and stops the writer.
func (s *Store) Close() error {
	all := ScopeInventory | ScopeSales | ScopeAudit
	s.lock(all)
	snaps, err := s.marshalLocked(all)
	var waits []chan error
	for _, snap := range snaps {
		waits = append(waits, s.flusher.submit(snap.res, snap.data, true))
	}
	s.unlock(all)

	firstErr := err
	for _, done := range waits {
		if werr := <-done; werr != nil && firstErr == nil {
			firstErr = werr
		}
	}
	s.flusher.close()
	return firstErr
}

func sortedProducts(products map[int]*model.Product) []*model.Product {
	out := make([]*model.Product, 0, len(products))
	for _, p := range products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
