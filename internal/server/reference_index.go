package server

import (
	"context"
	"log/slog"
	"path"

	"golang.org/x/sync/errgroup"

	"equipcat/internal/models"
	"equipcat/internal/store"
)

// ReferenceIndex computes, on demand, which catalog documents reference an asset.
type ReferenceIndex struct {
	refs         store.ReferenceStore
	publicPrefix string
	logger       *slog.Logger
}

// NewReferenceIndex builds an index over refs. Entity path fields are
// compared against "<publicPrefix>/<folder>/<file>".
func NewReferenceIndex(refs store.ReferenceStore, publicPrefix string, logger *slog.Logger) *ReferenceIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceIndex{refs: refs, publicPrefix: publicPrefix, logger: logger}
}

type referenceLookup struct {
	entity string
	run    func(ctx context.Context) ([]models.UsageRef, error)
	refs   []models.UsageRef
	err    error
}

// Report runs every per-entity lookup concurrently. A failed lookup leaves
// that list empty and marks the report incomplete.
func (x *ReferenceIndex) Report(ctx context.Context, folder models.MediaFolder, name string) models.UsageReport {
	assetPath := publicAssetPath(x.publicPrefix, folder, name)
	report := models.UsageReport{
		Folder:        string(folder),
		File:          name,
		Path:          assetPath,
		Products:      []models.UsageRef{},
		ProductImages: []models.UsageRef{},
		Categories:    []models.UsageRef{},
		Posts:         []models.UsageRef{},
		Banners:       []models.UsageRef{},
	}

	lookups := []*referenceLookup{
		{entity: models.UsageEntityCategories, run: func(ctx context.Context) ([]models.UsageRef, error) {
			return x.refs.CategoriesByImage(ctx, assetPath)
		}},
		{entity: models.UsageEntityPosts, run: func(ctx context.Context) ([]models.UsageRef, error) {
			return x.refs.PostsByImage(ctx, assetPath)
		}},
		{entity: models.UsageEntityBanners, run: func(ctx context.Context) ([]models.UsageRef, error) {
			return x.refs.BannersByImage(ctx, assetPath)
		}},
		{entity: models.UsageEntityProductImages, run: func(ctx context.Context) ([]models.UsageRef, error) {
			return x.refs.ProductImagesByPath(ctx, assetPath)
		}},
		{entity: models.UsageEntityProducts, run: func(ctx context.Context) ([]models.UsageRef, error) {
			return x.refs.ProductsMentioning(ctx, name)
		}},
	}

	// Lookups never return errors to the group so one failure cannot cancel the rest.
	var g errgroup.Group
	for _, lookup := range lookups {
		g.Go(func() error {
			lookup.refs, lookup.err = lookup.run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	for _, lookup := range lookups {
		if lookup.err != nil {
			x.logger.Warn("reference lookup failed", "entity", lookup.entity, "path", assetPath, "error", lookup.err)
			report.Incomplete = true
			report.Failed = append(report.Failed, lookup.entity)
			continue
		}
		if len(lookup.refs) == 0 {
			continue
		}
		report.InUse = true
		switch lookup.entity {
		case models.UsageEntityCategories:
			report.Categories = lookup.refs
		case models.UsageEntityPosts:
			report.Posts = lookup.refs
		case models.UsageEntityBanners:
			report.Banners = lookup.refs
		case models.UsageEntityProductImages:
			report.ProductImages = lookup.refs
		case models.UsageEntityProducts:
			report.Products = lookup.refs
		}
	}
	return report
}

func publicAssetPath(prefix string, folder models.MediaFolder, name string) string {
	if prefix == "" {
		return path.Join(string(folder), name)
	}
	return path.Join(prefix, string(folder), name)
}
