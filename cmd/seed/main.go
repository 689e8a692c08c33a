// cmd/seed/main.go — Seeds a demo catalog into the data directory.
// Usage: go run cmd/seed/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"github.com/hzzxn/app-stock/internal/model"
	"github.com/hzzxn/app-stock/internal/service"
	"github.com/hzzxn/app-stock/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func main() {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	st, err := store.Open(dataDir, store.Options{})
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	inventory := service.NewInventoryService(st)

	products := []service.CreateProductInput{
		{
			SKU:      "RICE-EXT-50",
			Name:     "Extra rice",
			Category: "groceries",
			StockMin: 10,
			Price:    dec("4.50"),
			Cost:     dec("3.20"),
			Variants: []service.VariantInput{
				{
					VariantID: "default",
					Units: []service.UnitInput{
						{UV: model.UnitUnit, Stock: 120},
						{UV: model.UnitSack, Stock: 15, Price: ptr(dec("210.00")), Cost: ptr(dec("155.00"))},
					},
				},
			},
		},
		{
			SKU:      "SHOE-TRK-01",
			Name:     "Trekking shoe",
			Category: "footwear",
			StockMin: 4,
			Price:    dec("89.90"),
			Cost:     dec("52.00"),
			Variants: []service.VariantInput{
				{
					VariantID:  "black-42",
					Attributes: map[string]string{"color": "black", "size": "42"},
					Units:      []service.UnitInput{{UV: model.UnitPair, Stock: 8}},
				},
				{
					VariantID:  "brown-41",
					Attributes: map[string]string{"color": "brown", "size": "41"},
					Units:      []service.UnitInput{{UV: model.UnitPair, Stock: 5}},
				},
			},
		},
		{
			SKU:      "EGG-FRM-12",
			Name:     "Farm eggs",
			Category: "groceries",
			StockMin: 6,
			Price:    dec("0.60"),
			Cost:     dec("0.38"),
			Variants: []service.VariantInput{
				{
					VariantID: "default",
					Units: []service.UnitInput{
						{UV: model.UnitUnit, Stock: 300},
						{UV: model.UnitDozen, Stock: 25, Price: ptr(dec("6.50")), Cost: ptr(dec("4.20"))},
					},
				},
			},
		},
	}

	for _, in := range products {
		p, err := inventory.CreateProduct(in, "seed")
		if err != nil {
			log.Fatalf("seed %s: %v", in.SKU, err)
		}
		fmt.Printf("✅ Product %d %s (%s) seeded\n", p.ID, p.SKU, p.Name)
	}
}
