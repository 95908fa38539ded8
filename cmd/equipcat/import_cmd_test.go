package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"equipcat/internal/models"
	"equipcat/internal/store"
)

const seedYAML = `
categories:
  - name: Drills
    image: /uploads/categories/drills.png
    products:
      - prod_id: D-9
        name: Hammer drill
        description: 800W hammer drill
        date: 2024-03-01
        info:
          - key: power
            value: 800W
  - name: Saws
    products:
      - prod_id: S-1
        name: Circular saw
        description: 190mm blade
`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestImportCatalogCreatesAndSkips(t *testing.T) {
	cfg := testCLIConfig(t)
	seed, err := readCatalogSeed(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	existing := models.Category{Name: "saws", CreatedAt: now, UpdatedAt: now}
	if err := st.CreateCategory(ctx, &existing); err != nil {
		t.Fatalf("create category: %v", err)
	}

	result, err := importCatalog(ctx, st, seed, false, now)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.CategoriesCreated != 1 || result.CategoriesExisting != 1 || result.ProductsCreated != 2 {
		t.Fatalf("unexpected result %+v", result)
	}

	products, err := st.ListProducts(ctx, store.ProductFilter{CategoryName: "Saws"})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 1 || products[0].CategoryID != existing.ID {
		t.Fatalf("expected saw in existing category, got %+v", products)
	}

	drills, err := st.ListProducts(ctx, store.ProductFilter{CategoryName: "drills"})
	if err != nil {
		t.Fatalf("list drills: %v", err)
	}
	if len(drills) != 1 || drills[0].Date.Format(importDateLayout) != "2024-03-01" || len(drills[0].Info) != 1 {
		t.Fatalf("unexpected drill %+v", drills)
	}

	again, err := importCatalog(ctx, st, seed, false, now)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if again.CategoriesCreated != 0 || again.ProductsCreated != 0 || again.ProductsSkipped != 2 {
		t.Fatalf("expected idempotent reimport, got %+v", again)
	}
}

func TestImportCatalogDryRunWritesNothing(t *testing.T) {
	cfg := testCLIConfig(t)
	seed, err := readCatalogSeed(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	result, err := importCatalog(ctx, st, seed, true, time.Now().UTC())
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !result.DryRun || result.CategoriesCreated != 2 || result.ProductsCreated != 2 {
		t.Fatalf("unexpected dry run result %+v", result)
	}
	categories, err := st.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 0 {
		t.Fatalf("dry run created categories: %+v", categories)
	}
}

func TestReadCatalogSeedValidation(t *testing.T) {
	if _, err := readCatalogSeed(writeSeed(t, "categories: []\n")); err == nil {
		t.Fatal("expected error for empty seed")
	}
	if _, err := readCatalogSeed(writeSeed(t, "categories: [\n")); err == nil {
		t.Fatal("expected parse error")
	}

	seed, err := readCatalogSeed(writeSeed(t, "categories:\n  - name: Drills\n    products:\n      - prod_id: X\n        name: X\n"))
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}
	cfg := testCLIConfig(t)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	if _, err := importCatalog(context.Background(), st, seed, false, time.Now().UTC()); err == nil {
		t.Fatal("expected missing description error")
	}
}
