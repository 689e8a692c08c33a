package model

import (
	"github.com/shopspring/decimal"
)

// UnitOfSale enumerates the quantity units a variant can be sold in.
// OTHER carries a free-text label on the UnitStock entry.
type UnitOfSale string

const (
	UnitUnit  UnitOfSale = "UNIT"
	UnitBox   UnitOfSale = "BOX"
	UnitSack  UnitOfSale = "SACK"
	UnitPair  UnitOfSale = "PAIR"
	UnitDozen UnitOfSale = "DOZEN"
	UnitBag   UnitOfSale = "BAG"
	UnitOther UnitOfSale = "OTHER"
)

// ValidUnits is the closed set of accepted unit-of-sale codes.
var ValidUnits = map[UnitOfSale]bool{
	UnitUnit:  true,
	UnitBox:   true,
	UnitSack:  true,
	UnitPair:  true,
	UnitDozen: true,
	UnitBag:   true,
	UnitOther: true,
}

// UnitStock holds the counters for one unit-of-sale of a variant.
// Stock and Reserved are only ever mutated by the stock ledger; writing
// them from anywhere else breaks the reservation accounting.
type UnitStock struct {
	UV       UnitOfSale       `json:"uv"`
	Stock    int              `json:"stock"`
	Reserved int              `json:"reserved"`
	Price    *decimal.Decimal `json:"price,omitempty"` // overrides the product fallback
	Cost     *decimal.Decimal `json:"cost,omitempty"`
	Label    string           `json:"label,omitempty"` // free text, UV=OTHER only
}

// Available is the quantity that can still be promised to new sales.
func (u *UnitStock) Available() int {
	if u.Stock <= u.Reserved {
		return 0
	}
	return u.Stock - u.Reserved
}

// Variant is a distinguishable configuration of a product (color, size).
// It is the true holder of stock, one UnitStock entry per unit-of-sale.
type Variant struct {
	VariantID  string            `json:"variant_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Units      []*UnitStock      `json:"units"`
}

// Unit returns the UnitStock entry for the given unit-of-sale, or nil.
func (v *Variant) Unit(uv UnitOfSale) *UnitStock {
	for _, u := range v.Units {
		if u.UV == uv {
			return u
		}
	}
	return nil
}

// TotalStock sums on-hand stock across all units of this variant.
func (v *Variant) TotalStock() int {
	total := 0
	for _, u := range v.Units {
		total += u.Stock
	}
	return total
}

// AvailableStock sums available stock across all units of this variant.
func (v *Variant) AvailableStock() int {
	total := 0
	for _, u := range v.Units {
		total += u.Available()
	}
	return total
}

// Product is a logical container: the sellable stock lives in its variants.
// Price and Cost are fallbacks inherited by units that do not override them.
type Product struct {
	ID       int             `json:"id"`
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	StockMin int             `json:"stock_min"`
	Price    decimal.Decimal `json:"price"`
	Cost     decimal.Decimal `json:"cost"`
	Variants []*Variant      `json:"variants"`
}

// Variant returns the variant with the given id, or nil.
func (p *Product) Variant(variantID string) *Variant {
	for _, v := range p.Variants {
		if v.VariantID == variantID {
			return v
		}
	}
	return nil
}

// TotalStock sums on-hand stock across all variants.
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		total += v.TotalStock()
	}
	return total
}

// IsLowStock reports whether total stock has fallen to the minimum threshold.
func (p *Product) IsLowStock() bool {
	return p.TotalStock() <= p.StockMin
}

// UnitPrice resolves the sale price for a unit, falling back to the product price.
func (p *Product) UnitPrice(variantID string, uv UnitOfSale) decimal.Decimal {
	if v := p.Variant(variantID); v != nil {
		if u := v.Unit(uv); u != nil && u.Price != nil {
			return *u.Price
		}
	}
	return p.Price
}

// UnitCost resolves the purchase cost for a unit, falling back to the product cost.
func (p *Product) UnitCost(variantID string, uv UnitOfSale) decimal.Decimal {
	if v := p.Variant(variantID); v != nil {
		if u := v.Unit(uv); u != nil && u.Cost != nil {
			return *u.Cost
		}
	}
	return p.Cost
}
