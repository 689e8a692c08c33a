package service

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hzzxn/app-stock/internal/model"
	"github.com/hzzxn/app-stock/internal/store"
)

// UnitInput describes one unit-of-sale a variant is offered in. Price and
// Cost override the product-level figures when set.
type UnitInput struct {
	UV    model.UnitOfSale
	Label string
	Stock int
	Price *decimal.Decimal
	Cost  *decimal.Decimal
}

// VariantInput describes a product configuration and its units.
type VariantInput struct {
	VariantID  string
	Attributes map[string]string
	Units      []UnitInput
}

// CreateProductInput is a new catalog entry with its initial variants.
type CreateProductInput struct {
	SKU      string
	Name     string
	Category string
	StockMin int
	Price    decimal.Decimal
	Cost     decimal.Decimal
	Variants []VariantInput
}

// InventoryService manages the catalog and on-hand stock. Stock counters
// only move through here or through the sale lifecycle; nothing writes
// them directly.
type InventoryService interface {
	CreateProduct(in CreateProductInput, actor string) (*model.Product, error)
	AddVariant(productID int, in VariantInput, actor string) (*model.Product, error)
	AddUnit(productID int, variantID string, in UnitInput, actor string) (*model.Product, error)
	AddStock(key store.UnitKey, qty int, actor string) (*model.Product, error)
	RemoveStock(key store.UnitKey, qty int, actor string) (*model.Product, error)
	GetProduct(id int) (*model.Product, error)
	GetProductBySKU(sku string) (*model.Product, error)
	ListProducts() ([]*model.Product, error)
	LowStock() ([]*model.Product, error)
}

type inventoryService struct {
	store  *store.Store
	ledger ledger
	audit  auditSink
}

func NewInventoryService(st *store.Store) InventoryService {
	return &inventoryService{store: st}
}

func buildUnit(in UnitInput) (*model.UnitStock, error) {
	if !model.ValidUnits[in.UV] {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, in.UV)
	}
	if in.Stock < 0 {
		return nil, ErrInvalidQuantity
	}
	if in.UV == model.UnitOther && in.Label == "" {
		return nil, errors.New("unit OTHER requires a label")
	}
	return &model.UnitStock{
		UV:    in.UV,
		Stock: in.Stock,
		Price: in.Price,
		Cost:  in.Cost,
		Label: in.Label,
	}, nil
}

func buildVariant(in VariantInput) (*model.Variant, error) {
	if in.VariantID == "" {
		return nil, errors.New("variant id is required")
	}
	v := &model.Variant{
		VariantID:  in.VariantID,
		Attributes: in.Attributes,
	}
	seen := make(map[model.UnitOfSale]bool)
	for _, ui := range in.Units {
		if seen[ui.UV] {
			return nil, fmt.Errorf("duplicate unit %s on variant %s", ui.UV, in.VariantID)
		}
		seen[ui.UV] = true
		u, err := buildUnit(ui)
		if err != nil {
			return nil, err
		}
		v.Units = append(v.Units, u)
	}
	return v, nil
}

// CreateProduct registers a new catalog entry. SKUs are unique across the
// catalog.
func (s *inventoryService) CreateProduct(in CreateProductInput, actor string) (*model.Product, error) {
	if in.SKU == "" || in.Name == "" {
		return nil, errors.New("sku and name are required")
	}

	var out *model.Product
	err := s.store.UpdateSync(store.ScopeInventory|store.ScopeAudit, func(tx *store.Tx) error {
		if _, exists := tx.ProductBySKU(in.SKU); exists {
			return fmt.Errorf("%w: %s", ErrDuplicateSKU, in.SKU)
		}
		p := &model.Product{
			ID:       tx.NextProductID(),
			SKU:      in.SKU,
			Name:     in.Name,
			Category: in.Category,
			StockMin: in.StockMin,
			Price:    in.Price,
			Cost:     in.Cost,
		}
		seen := make(map[string]bool)
		for _, vi := range in.Variants {
			if seen[vi.VariantID] {
				return fmt.Errorf("duplicate variant %s on %s", vi.VariantID, in.SKU)
			}
			seen[vi.VariantID] = true
			v, err := buildVariant(vi)
			if err != nil {
				return err
			}
			p.Variants = append(p.Variants, v)
		}
		tx.PutProduct(p)
		s.audit.system(tx, actor, fmt.Sprintf("Product %s (%s) added to catalog", p.Name, p.SKU), p.SKU)
		out = cloneProduct(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("sku", out.SKU).Int("id", out.ID).Str("actor", actor).Msg("product created")
	return out, nil
}

// AddVariant appends a new configuration to an existing product.
func (s *inventoryService) AddVariant(productID int, in VariantInput, actor string) (*model.Product, error) {
	var out *model.Product
	err := s.store.UpdateSync(store.ScopeInventory|store.ScopeAudit, func(tx *store.Tx) error {
		p, ok := tx.Product(productID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
		}
		if p.Variant(in.VariantID) != nil {
			return fmt.Errorf("duplicate variant %s on %s", in.VariantID, p.SKU)
		}
		v, err := buildVariant(in)
		if err != nil {
			return err
		}
		p.Variants = append(p.Variants, v)
		s.audit.system(tx, actor, fmt.Sprintf("Variant %s added to %s", v.VariantID, p.SKU), p.SKU)
		out = cloneProduct(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddUnit offers an existing variant in an additional unit-of-sale.
func (s *inventoryService) AddUnit(productID int, variantID string, in UnitInput, actor string) (*model.Product, error) {
	var out *model.Product
	err := s.store.UpdateSync(store.ScopeInventory|store.ScopeAudit, func(tx *store.Tx) error {
		p, ok := tx.Product(productID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
		}
		v := p.Variant(variantID)
		if v == nil {
			return fmt.Errorf("%w: %s on %s", ErrVariantNotFound, variantID, p.SKU)
		}
		if v.Unit(in.UV) != nil {
			return fmt.Errorf("duplicate unit %s on variant %s", in.UV, variantID)
		}
		u, err := buildUnit(in)
		if err != nil {
			return err
		}
		v.Units = append(v.Units, u)
		s.audit.system(tx, actor, fmt.Sprintf("Unit %s added to %s/%s", u.UV, p.SKU, variantID), p.SKU)
		out = cloneProduct(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddStock receives qty units into on-hand stock.
func (s *inventoryService) AddStock(key store.UnitKey, qty int, actor string) (*model.Product, error) {
	return s.adjustStock(key, qty, actor)
}

// RemoveStock takes qty units out of on-hand stock. Removals never cut
// into quantities reserved for pending sales.
func (s *inventoryService) RemoveStock(key store.UnitKey, qty int, actor string) (*model.Product, error) {
	return s.adjustStock(key, -qty, actor)
}

func (s *inventoryService) adjustStock(key store.UnitKey, delta int, actor string) (*model.Product, error) {
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}
	var out *model.Product
	err := s.store.UpdateSync(store.ScopeInventory|store.ScopeAudit, func(tx *store.Tx) error {
		if err := s.ledger.adjust(tx, key, delta); err != nil {
			return err
		}
		p, _ := tx.Product(key.ProductID)
		if delta > 0 {
			s.audit.stockAdded(tx, actor, key, p.SKU, delta)
		} else {
			s.audit.stockRemoved(tx, actor, key, p.SKU, -delta)
		}
		out = cloneProduct(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("unit", key.String()).Int("delta", delta).Str("actor", actor).Msg("stock adjusted")
	return out, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *inventoryService) GetProduct(id int) (*model.Product, error) {
	var out *model.Product
	err := s.store.View(store.ScopeInventory, func(tx *store.Tx) error {
		p, ok := tx.Product(id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrProductNotFound, id)
		}
		out = cloneProduct(p)
		return nil
	})
	return out, err
}

func (s *inventoryService) GetProductBySKU(sku string) (*model.Product, error) {
	var out *model.Product
	err := s.store.View(store.ScopeInventory, func(tx *store.Tx) error {
		p, ok := tx.ProductBySKU(sku)
		if !ok {
			return fmt.Errorf("%w: %s", ErrProductNotFound, sku)
		}
		out = cloneProduct(p)
		return nil
	})
	return out, err
}

func (s *inventoryService) ListProducts() ([]*model.Product, error) {
	var out []*model.Product
	err := s.store.View(store.ScopeInventory, func(tx *store.Tx) error {
		for _, p := range tx.Products() {
			out = append(out, cloneProduct(p))
		}
		return nil
	})
	return out, err
}

// LowStock lists products whose total stock sits at or below their
// minimum threshold.
func (s *inventoryService) LowStock() ([]*model.Product, error) {
	var out []*model.Product
	err := s.store.View(store.ScopeInventory, func(tx *store.Tx) error {
		for _, p := range tx.Products() {
			if p.IsLowStock() {
				out = append(out, cloneProduct(p))
			}
		}
		return nil
	})
	return out, err
}

// cloneProduct copies a product deeply enough for reads outside the store
// locks.
func cloneProduct(p *model.Product) *model.Product {
	out := *p
	out.Variants = make([]*model.Variant, 0, len(p.Variants))
	for _, v := range p.Variants {
		cv := *v
		cv.Units = make([]*model.UnitStock, 0, len(v.Units))
		for _, u := range v.Units {
			cu := *u
			cv.Units = append(cv.Units, &cu)
		}
		out.Variants = append(out.Variants, &cv)
	}
	return &out
}
