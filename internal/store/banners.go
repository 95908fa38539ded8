package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"equipcat/internal/models"
)

const bannerColumns = "id, title, subtitle, image, mobile_image, text_mode, active, sort_order, created_at, updated_at"

// CreateBanner inserts an inactive banner at the end of the display order.
func (s *Store) CreateBanner(ctx context.Context, banner *models.Banner) error {
	if banner == nil {
		return fmt.Errorf("banner is required")
	}
	if banner.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		banner.ID = id
	}
	if banner.TextMode == "" {
		banner.TextMode = models.TextModeDark
	}

	var next int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(sort_order), -1) + 1 FROM banners").Scan(&next); err != nil {
		return err
	}
	banner.Order = next

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO banners (`+bannerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, banner.ID, banner.Title, banner.Subtitle, banner.Image, banner.MobileImage, string(banner.TextMode),
		boolToInt(banner.Active), banner.Order, dbFormatTime(banner.CreatedAt), dbFormatTime(banner.UpdatedAt))
	return err
}

// GetBanner returns one banner, or nil when absent.
func (s *Store) GetBanner(ctx context.Context, id string) (*models.Banner, error) {
	return getBanner(ctx, s.db, id)
}

// ListBanners returns every banner, newest first.
func (s *Store) ListBanners(ctx context.Context) ([]models.Banner, error) {
	return s.queryBanners(ctx, "SELECT "+bannerColumns+" FROM banners ORDER BY created_at DESC, id DESC")
}

// ListActiveBanners returns active banners in display order.
func (s *Store) ListActiveBanners(ctx context.Context) ([]models.Banner, error) {
	return s.queryBanners(ctx, "SELECT "+bannerColumns+" FROM banners WHERE active = 1 ORDER BY sort_order ASC, created_at ASC")
}

// UpdateBanner rewrites text, images and text mode.
func (s *Store) UpdateBanner(ctx context.Context, banner *models.Banner) error {
	if banner == nil {
		return fmt.Errorf("banner is required")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE banners
		SET title = ?, subtitle = ?, image = ?, mobile_image = ?, text_mode = ?, updated_at = ?
		WHERE id = ?
	`, banner.Title, banner.Subtitle, banner.Image, banner.MobileImage, string(banner.TextMode),
		dbFormatTime(banner.UpdatedAt), banner.ID)
	if err != nil {
		return err
	}
	return requireAffected(result, "banner", banner.ID)
}

// DeleteBanner removes one banner.
func (s *Store) DeleteBanner(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "banners", id)
}

// ActivateBanner marks a banner active unless maxActive banners already are.
// Activating an already-active banner is a no-op. Returns nil when absent.
func (s *Store) ActivateBanner(ctx context.Context, id string, maxActive int, now time.Time) (*models.Banner, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	banner, err := getBanner(ctx, tx, id)
	if err != nil || banner == nil {
		return nil, err
	}
	if banner.Active {
		return banner, nil
	}

	var active int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM banners WHERE active = 1").Scan(&active); err != nil {
		return nil, err
	}
	if maxActive > 0 && active >= maxActive {
		return nil, ErrActiveBannerLimit
	}

	if _, err := tx.ExecContext(ctx, "UPDATE banners SET active = 1, updated_at = ? WHERE id = ?", dbFormatTime(now), id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	banner.Active = true
	banner.UpdatedAt = now.UTC()
	return banner, nil
}

// DeactivateBanner clears the active flag. Returns nil when absent.
func (s *Store) DeactivateBanner(ctx context.Context, id string, now time.Time) (*models.Banner, error) {
	result, err := s.db.ExecContext(ctx, "UPDATE banners SET active = 0, updated_at = ? WHERE id = ?", dbFormatTime(now), id)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetBanner(ctx, id)
}

// SetBannerOrder sets one banner's display position.
func (s *Store) SetBannerOrder(ctx context.Context, id string, order int, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, "UPDATE banners SET sort_order = ?, updated_at = ? WHERE id = ?", order, dbFormatTime(now), id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getBanner(ctx context.Context, q queryRower, id string) (*models.Banner, error) {
	row := q.QueryRowContext(ctx, "SELECT "+bannerColumns+" FROM banners WHERE id = ?", id)
	banner, err := scanBanner(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return banner, err
}

func (s *Store) queryBanners(ctx context.Context, query string) ([]models.Banner, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	banners := make([]models.Banner, 0)
	for rows.Next() {
		banner, err := scanBanner(rows)
		if err != nil {
			return nil, err
		}
		banners = append(banners, *banner)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return banners, nil
}

func scanBanner(scanner rowScanner) (*models.Banner, error) {
	var banner models.Banner
	var textMode string
	var active int
	var createdAt, updatedAt string
	if err := scanner.Scan(&banner.ID, &banner.Title, &banner.Subtitle, &banner.Image, &banner.MobileImage,
		&textMode, &active, &banner.Order, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	banner.TextMode = models.TextMode(textMode)
	banner.Active = active != 0
	var err error
	if banner.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if banner.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &banner, nil
}
