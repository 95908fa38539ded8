package store

import (
	"context"
	"errors"
	"time"

	"equipcat/internal/models"
)

// ErrActiveBannerLimit is returned when activating would exceed the active banner cap.
var ErrActiveBannerLimit = errors.New("active banner limit reached")

// ProductFilter narrows product listings. Zero values match everything.
type ProductFilter struct {
	CategoryID   string
	CategoryName string
	NameQuery    string
	Limit        int
}

// CatalogStore is the persistence surface for catalog entities.
type CatalogStore interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	SearchCategories(ctx context.Context, query string) ([]models.Category, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) (bool, error)
	CountProductsInCategory(ctx context.Context, categoryID string) (int, error)

	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) (bool, error)

	AddProductImages(ctx context.Context, productID string, images []models.ProductImage) ([]models.ProductImage, error)
	ListProductImages(ctx context.Context, productID string) ([]models.ProductImage, error)
	ListImagesForProducts(ctx context.Context, productIDs []string) (map[string][]models.ProductImage, error)
	SetMainProductImage(ctx context.Context, imageID string) (*models.ProductImage, error)

	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id string) (bool, error)

	CreateBanner(ctx context.Context, banner *models.Banner) error
	GetBanner(ctx context.Context, id string) (*models.Banner, error)
	ListBanners(ctx context.Context) ([]models.Banner, error)
	ListActiveBanners(ctx context.Context) ([]models.Banner, error)
	UpdateBanner(ctx context.Context, banner *models.Banner) error
	DeleteBanner(ctx context.Context, id string) (bool, error)
	ActivateBanner(ctx context.Context, id string, maxActive int, now time.Time) (*models.Banner, error)
	DeactivateBanner(ctx context.Context, id string, now time.Time) (*models.Banner, error)
	SetBannerOrder(ctx context.Context, id string, order int, now time.Time) (bool, error)
}

// ReferenceStore answers "who points at this asset" for one entity type per call.
type ReferenceStore interface {
	CategoriesByImage(ctx context.Context, path string) ([]models.UsageRef, error)
	PostsByImage(ctx context.Context, path string) ([]models.UsageRef, error)
	BannersByImage(ctx context.Context, path string) ([]models.UsageRef, error)
	ProductImagesByPath(ctx context.Context, path string) ([]models.UsageRef, error)
	ProductsMentioning(ctx context.Context, filename string) ([]models.UsageRef, error)
}

// AuthStore is the persistence surface for admins and sessions.
type AuthStore interface {
	CountUsers(ctx context.Context) (int, error)
	CreateAdminUser(ctx context.Context, username, email, passwordHash string, now time.Time) (*AuthUser, error)
	GetUserByUsername(ctx context.Context, username string) (*AuthUser, error)
	GetUserByID(ctx context.Context, id string) (*AuthUser, error)
	ListUsers(ctx context.Context) ([]AuthUser, error)
	UpdateUserCredentials(ctx context.Context, id, username, passwordHash string, now time.Time) (*AuthUser, error)
	CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, createdAt time.Time) error
	GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*AuthUser, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
	RevokeUserSessions(ctx context.Context, userID string, revokedAt time.Time) error
}

var (
	_ CatalogStore   = (*Store)(nil)
	_ ReferenceStore = (*Store)(nil)
	_ AuthStore      = (*Store)(nil)
)
