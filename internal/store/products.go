package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"equipcat/internal/models"
)

const productSelect = `
	SELECT p.id, p.prod_id, p.name, p.category_id, COALESCE(c.name, ''), p.description, p.product_info,
	       p.date, p.created_at, p.updated_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
`

// CreateProduct inserts a product, assigning an id when empty.
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	if product == nil {
		return fmt.Errorf("product is required")
	}
	if product.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		product.ID = id
	}
	info, err := encodeProductInfo(product.Info)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, prod_id, name, category_id, description, product_info, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, product.ID, product.ProdID, product.Name, product.CategoryID, product.Description, info,
		dbFormatTime(product.Date), dbFormatTime(product.CreatedAt), dbFormatTime(product.UpdatedAt))
	return err
}

// GetProduct returns one product, or nil when absent.
func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, productSelect+" WHERE p.id = ?", id)
	product, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return product, err
}

// ListProducts returns products newest date first.
func (s *Store) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	var where []string
	var args []any
	if v := strings.TrimSpace(filter.CategoryID); v != "" {
		where = append(where, "p.category_id = ?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(filter.CategoryName); v != "" {
		where = append(where, "lower(c.name) = lower(?)")
		args = append(args, v)
	}
	if v := strings.TrimSpace(filter.NameQuery); v != "" {
		where = append(where, "instr(lower(p.name), lower(?)) > 0")
		args = append(args, v)
	}

	query := productSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.date DESC, p.created_at DESC, p.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateProduct rewrites every mutable product field.
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	if product == nil {
		return fmt.Errorf("product is required")
	}
	info, err := encodeProductInfo(product.Info)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET prod_id = ?, name = ?, category_id = ?, description = ?, product_info = ?, date = ?, updated_at = ?
		WHERE id = ?
	`, product.ProdID, product.Name, product.CategoryID, product.Description, info,
		dbFormatTime(product.Date), dbFormatTime(product.UpdatedAt), product.ID)
	if err != nil {
		return err
	}
	return requireAffected(result, "product", product.ID)
}

// DeleteProduct removes a product; its image rows cascade.
func (s *Store) DeleteProduct(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "products", id)
}

// AddProductImages inserts image rows. When any new row is main, the
// product's previous main flags are cleared in the same transaction.
func (s *Store) AddProductImages(ctx context.Context, productID string, images []models.ProductImage) ([]models.ProductImage, error) {
	if len(images) == 0 {
		return []models.ProductImage{}, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, image := range images {
		if image.IsMain {
			if _, err := tx.ExecContext(ctx, "UPDATE product_images SET is_main = 0 WHERE product_id = ?", productID); err != nil {
				return nil, err
			}
			break
		}
	}

	stored := make([]models.ProductImage, 0, len(images))
	for _, image := range images {
		if image.ID == "" {
			id, err := newID()
			if err != nil {
				return nil, err
			}
			image.ID = id
		}
		image.ProductID = productID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_images (id, product_id, image_path, is_main, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, image.ID, productID, image.ImagePath, boolToInt(image.IsMain), dbFormatTime(image.CreatedAt)); err != nil {
			return nil, err
		}
		stored = append(stored, image)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

// ListProductImages returns one product's images, oldest first.
func (s *Store) ListProductImages(ctx context.Context, productID string) ([]models.ProductImage, error) {
	grouped, err := s.ListImagesForProducts(ctx, []string{productID})
	if err != nil {
		return nil, err
	}
	images := grouped[productID]
	if images == nil {
		images = []models.ProductImage{}
	}
	return images, nil
}

// ListImagesForProducts groups images by product id, oldest first.
func (s *Store) ListImagesForProducts(ctx context.Context, productIDs []string) (map[string][]models.ProductImage, error) {
	result := map[string][]models.ProductImage{}
	if len(productIDs) == 0 {
		return result, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(productIDs)), ",")
	args := make([]any, 0, len(productIDs))
	for _, id := range productIDs {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, image_path, is_main, created_at
		FROM product_images
		WHERE product_id IN (`+placeholders+`)
		ORDER BY created_at ASC, id ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		image, err := scanProductImage(rows)
		if err != nil {
			return nil, err
		}
		result[image.ProductID] = append(result[image.ProductID], *image)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SetMainProductImage clears the product's other main flags, then sets this one.
// It returns nil when the image does not exist.
func (s *Store) SetMainProductImage(ctx context.Context, imageID string) (*models.ProductImage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, product_id, image_path, is_main, created_at FROM product_images WHERE id = ?
	`, imageID)
	image, err := scanProductImage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "UPDATE product_images SET is_main = 0 WHERE product_id = ?", image.ProductID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE product_images SET is_main = 1 WHERE id = ?", image.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	image.IsMain = true
	return image, nil
}

func scanProduct(scanner rowScanner) (*models.Product, error) {
	var product models.Product
	var info, date, createdAt, updatedAt string
	if err := scanner.Scan(&product.ID, &product.ProdID, &product.Name, &product.CategoryID, &product.CategoryName,
		&product.Description, &info, &date, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	entries, err := decodeProductInfo(info)
	if err != nil {
		return nil, err
	}
	product.Info = entries
	if product.Date, err = dbParseTime(date); err != nil {
		return nil, err
	}
	if product.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if product.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &product, nil
}

func scanProductImage(scanner rowScanner) (*models.ProductImage, error) {
	var image models.ProductImage
	var isMain int
	var createdAt string
	if err := scanner.Scan(&image.ID, &image.ProductID, &image.ImagePath, &isMain, &createdAt); err != nil {
		return nil, err
	}
	image.IsMain = isMain != 0
	var err error
	if image.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	return &image, nil
}

// encodeProductInfo stores product_info as JSON text. HTML escaping is off so
// filenames containing & < > stay searchable as raw substrings.
func encodeProductInfo(entries []models.ProductInfoEntry) (string, error) {
	if entries == nil {
		entries = []models.ProductInfoEntry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("encode product_info: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func decodeProductInfo(raw string) ([]models.ProductInfoEntry, error) {
	entries := []models.ProductInfoEntry{}
	if strings.TrimSpace(raw) == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode product_info: %w", err)
	}
	return entries, nil
}
