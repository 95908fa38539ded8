package store

import (
	"context"
	"strings"

	"equipcat/internal/models"
)

// CategoriesByImage lists categories whose image equals path.
func (s *Store) CategoriesByImage(ctx context.Context, path string) ([]models.UsageRef, error) {
	return s.queryRefs(ctx, `
		SELECT id, name, 'category_image' FROM categories WHERE image = ? ORDER BY id
	`, path)
}

// PostsByImage lists posts whose image equals path.
func (s *Store) PostsByImage(ctx context.Context, path string) ([]models.UsageRef, error) {
	return s.queryRefs(ctx, `
		SELECT id, title, 'image' FROM posts WHERE image = ? ORDER BY id
	`, path)
}

// BannersByImage lists banners whose desktop or mobile image equals path.
func (s *Store) BannersByImage(ctx context.Context, path string) ([]models.UsageRef, error) {
	return s.queryRefs(ctx, `
		SELECT id, title, CASE WHEN image = ? THEN 'image' ELSE 'mobile_image' END
		FROM banners
		WHERE image = ? OR mobile_image = ?
		ORDER BY id
	`, path, path, path)
}

// ProductImagesByPath lists product image rows whose image_path equals path.
func (s *Store) ProductImagesByPath(ctx context.Context, path string) ([]models.UsageRef, error) {
	return s.queryRefs(ctx, `
		SELECT id, product_id, 'image_path' FROM product_images WHERE image_path = ? ORDER BY id
	`, path)
}

// ProductsMentioning lists products whose description or product_info
// contains filename as a raw, case-sensitive substring.
func (s *Store) ProductsMentioning(ctx context.Context, filename string) ([]models.UsageRef, error) {
	if strings.TrimSpace(filename) == "" {
		return []models.UsageRef{}, nil
	}
	return s.queryRefs(ctx, `
		SELECT id, name, CASE WHEN instr(description, ?) > 0 THEN 'description' ELSE 'product_info' END
		FROM products
		WHERE instr(description, ?) > 0 OR instr(product_info, ?) > 0
		ORDER BY id
	`, filename, filename, filename)
}

func (s *Store) queryRefs(ctx context.Context, query string, args ...any) ([]models.UsageRef, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]models.UsageRef, 0)
	for rows.Next() {
		var ref models.UsageRef
		if err := rows.Scan(&ref.ID, &ref.Label, &ref.Field); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}
