package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"equipcat/internal/config"
	"equipcat/internal/models"
	"equipcat/internal/store"
)

const importDateLayout = "2006-01-02"

// catalogSeed is the YAML document accepted by `equipcat import`.
type catalogSeed struct {
	Categories []categorySeed `yaml:"categories"`
}

type categorySeed struct {
	Name     string        `yaml:"name"`
	Image    string        `yaml:"image"`
	Products []productSeed `yaml:"products"`
}

type productSeed struct {
	ProdID      string                    `yaml:"prod_id"`
	Name        string                    `yaml:"name"`
	Description string                    `yaml:"description"`
	Date        string                    `yaml:"date"`
	Info        []models.ProductInfoEntry `yaml:"info"`
}

type importResult struct {
	DryRun             bool     `json:"dry_run"`
	CategoriesCreated  int      `json:"categories_created"`
	CategoriesExisting int      `json:"categories_existing"`
	ProductsCreated    int      `json:"products_created"`
	ProductsSkipped    int      `json:"products_skipped"`
	Skipped            []string `json:"skipped,omitempty"`
}

func newImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <catalog.yaml>",
		Short: "Seed categories and products from a YAML file",
		Args:  requireExactlyArgs(1, "catalog file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := readCatalogSeed(args[0])
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				result, err := importCatalog(commandContext(cmd), st, seed, dryRun, time.Now().UTC())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(result)
				}

				prefix := ""
				if result.DryRun {
					prefix = "dry run: "
				}
				if err := writePlain("%scategories created=%d existing=%d, products created=%d skipped=%d\n",
					prefix, result.CategoriesCreated, result.CategoriesExisting, result.ProductsCreated, result.ProductsSkipped); err != nil {
					return err
				}
				for _, line := range result.Skipped {
					if err := writePlain("  skipped %s\n", line); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be created without writing")
	return cmd
}

func readCatalogSeed(path string) (catalogSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return catalogSeed{}, err
	}

	var seed catalogSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return catalogSeed{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(seed.Categories) == 0 {
		return catalogSeed{}, errors.New("no categories found in catalog file")
	}
	return seed, nil
}

// importCatalog creates missing categories by name and missing products by
// prod_id. Existing rows are never modified.
func importCatalog(ctx context.Context, st *store.Store, seed catalogSeed, dryRun bool, now time.Time) (importResult, error) {
	result := importResult{DryRun: dryRun}

	categories, err := st.ListCategories(ctx)
	if err != nil {
		return result, err
	}
	categoryIDs := make(map[string]string, len(categories))
	for _, category := range categories {
		categoryIDs[strings.ToLower(category.Name)] = category.ID
	}

	products, err := st.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return result, err
	}
	prodIDs := make(map[string]struct{}, len(products))
	for _, product := range products {
		prodIDs[product.ProdID] = struct{}{}
	}

	for i, cs := range seed.Categories {
		name := strings.TrimSpace(cs.Name)
		if name == "" {
			return result, fmt.Errorf("categories[%d]: name is required", i)
		}

		categoryID, exists := categoryIDs[strings.ToLower(name)]
		if exists {
			result.CategoriesExisting++
		} else {
			category := models.Category{Name: name, Image: strings.TrimSpace(cs.Image), CreatedAt: now, UpdatedAt: now}
			if !dryRun {
				if err := st.CreateCategory(ctx, &category); err != nil {
					return result, fmt.Errorf("create category %s: %w", name, err)
				}
			}
			categoryID = category.ID
			categoryIDs[strings.ToLower(name)] = categoryID
			result.CategoriesCreated++
		}

		for j, ps := range cs.Products {
			product, err := ps.toProduct(categoryID, now)
			if err != nil {
				return result, fmt.Errorf("categories[%d].products[%d]: %w", i, j, err)
			}
			if _, ok := prodIDs[product.ProdID]; ok {
				result.ProductsSkipped++
				result.Skipped = append(result.Skipped, fmt.Sprintf("%s (prod_id exists)", product.ProdID))
				continue
			}
			if !dryRun {
				if err := st.CreateProduct(ctx, &product); err != nil {
					return result, fmt.Errorf("create product %s: %w", product.ProdID, err)
				}
			}
			prodIDs[product.ProdID] = struct{}{}
			result.ProductsCreated++
		}
	}

	return result, nil
}

func (ps productSeed) toProduct(categoryID string, now time.Time) (models.Product, error) {
	product := models.Product{
		ProdID:      strings.TrimSpace(ps.ProdID),
		Name:        strings.TrimSpace(ps.Name),
		CategoryID:  categoryID,
		Description: strings.TrimSpace(ps.Description),
		Info:        ps.Info,
		Date:        now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if product.ProdID == "" || product.Name == "" || product.Description == "" {
		return product, errors.New("prod_id, name and description are required")
	}
	if product.Info == nil {
		product.Info = []models.ProductInfoEntry{}
	}
	if raw := strings.TrimSpace(ps.Date); raw != "" {
		date, err := time.Parse(importDateLayout, raw)
		if err != nil {
			return product, fmt.Errorf("invalid date %q: %w", raw, err)
		}
		product.Date = date.UTC()
	}
	return product, nil
}
