package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"equipcat/internal/models"
)

const categoryColumns = "id, name, image, created_at, updated_at"

// CreateCategory inserts a category, assigning an id when empty.
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	if category == nil {
		return fmt.Errorf("category is required")
	}
	if category.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		category.ID = id
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, category.ID, category.Name, category.Image, dbFormatTime(category.CreatedAt), dbFormatTime(category.UpdatedAt))
	return err
}

// GetCategory returns one category, or nil when absent.
func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	category, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return category, err
}

// ListCategories returns every category, newest first.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	return collectCategories(rows)
}

// SearchCategories matches a case-insensitive substring of the name.
func (s *Store) SearchCategories(ctx context.Context, query string) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+categoryColumns+` FROM categories
		WHERE instr(lower(name), lower(?)) > 0
		ORDER BY name COLLATE NOCASE ASC`, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	return collectCategories(rows)
}

// UpdateCategory rewrites name and image.
func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	if category == nil {
		return fmt.Errorf("category is required")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, image = ?, updated_at = ? WHERE id = ?
	`, category.Name, category.Image, dbFormatTime(category.UpdatedAt), category.ID)
	if err != nil {
		return err
	}
	return requireAffected(result, "category", category.ID)
}

// DeleteCategory removes one category.
func (s *Store) DeleteCategory(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "categories", id)
}

// CountProductsInCategory counts products still assigned to a category.
func (s *Store) CountProductsInCategory(ctx context.Context, categoryID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE category_id = ?", categoryID).Scan(&count)
	return count, err
}

func scanCategory(scanner rowScanner) (*models.Category, error) {
	var category models.Category
	var createdAt, updatedAt string
	if err := scanner.Scan(&category.ID, &category.Name, &category.Image, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if category.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if category.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &category, nil
}

func collectCategories(rows *sql.Rows) ([]models.Category, error) {
	defer rows.Close()
	categories := make([]models.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) deleteByID(ctx context.Context, table, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func requireAffected(result sql.Result, kind, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, sql.ErrNoRows)
	}
	return nil
}
