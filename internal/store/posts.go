package store

import (
	"context"
	"database/sql"
	"fmt"

	"equipcat/internal/models"
)

const postColumns = "id, title, short_description, long_description, image, date, created_at, updated_at"

// CreatePost inserts a post, assigning an id when empty.
func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil {
		return fmt.Errorf("post is required")
	}
	if post.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		post.ID = id
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, post.ID, post.Title, post.ShortDescription, post.LongDescription, post.Image,
		dbNullTime(post.Date), dbFormatTime(post.CreatedAt), dbFormatTime(post.UpdatedAt))
	return err
}

// GetPost returns one post, or nil when absent.
func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id)
	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return post, err
}

// ListPosts returns every post, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+postColumns+" FROM posts ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdatePost rewrites every mutable post field.
func (s *Store) UpdatePost(ctx context.Context, post *models.Post) error {
	if post == nil {
		return fmt.Errorf("post is required")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts
		SET title = ?, short_description = ?, long_description = ?, image = ?, date = ?, updated_at = ?
		WHERE id = ?
	`, post.Title, post.ShortDescription, post.LongDescription, post.Image, dbNullTime(post.Date),
		dbFormatTime(post.UpdatedAt), post.ID)
	if err != nil {
		return err
	}
	return requireAffected(result, "post", post.ID)
}

// DeletePost removes one post.
func (s *Store) DeletePost(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "posts", id)
}

func scanPost(scanner rowScanner) (*models.Post, error) {
	var post models.Post
	var date sql.NullString
	var createdAt, updatedAt string
	if err := scanner.Scan(&post.ID, &post.Title, &post.ShortDescription, &post.LongDescription, &post.Image,
		&date, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if post.Date, err = dbParseNullTime(date); err != nil {
		return nil, err
	}
	if post.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if post.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &post, nil
}
