package api

import (
	"encoding/json"
	"time"

	"equipcat/internal/models"
)

// ErrorResponse is the JSON error body of every failed request.
type ErrorResponse struct {
	Error     string          `json:"error"`
	Code      string          `json:"code,omitempty"`
	ErrorCode int             `json:"error_code,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// LoginRequest authenticates one admin.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminUser is the public view of an admin account.
type AdminUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// LoginResponse carries the session token also set as a cookie.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      AdminUser `json:"user"`
}

// AuthMeResponse reports the current principal.
type AuthMeResponse struct {
	Authenticated bool       `json:"authenticated"`
	AuthType      string     `json:"auth_type,omitempty"`
	User          *AdminUser `json:"user,omitempty"`
}

// AdminUpdateRequest changes an admin's username and/or password.
type AdminUpdateRequest struct {
	CurrentUsername string  `json:"current_username"`
	NewUsername     *string `json:"new_username,omitempty"`
	NewPassword     *string `json:"new_password,omitempty"`
}

// MediaMetaUpdateRequest merges the supplied fields into a sidecar entry.
type MediaMetaUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Alt         *string `json:"alt,omitempty"`
	Caption     *string `json:"caption,omitempty"`
	Description *string `json:"description,omitempty"`
}

// MediaFavoriteRequest sets an asset's favorite flag.
type MediaFavoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

// MediaMetaResponse returns the stored sidecar entry.
type MediaMetaResponse struct {
	Folder string           `json:"folder"`
	Name   string           `json:"name"`
	Meta   models.MediaMeta `json:"meta"`
}

// MediaUploadResponse lists the stored filenames in upload order.
type MediaUploadResponse struct {
	Folder string             `json:"folder"`
	Files  []string           `json:"files"`
	Items  []models.MediaItem `json:"items"`
}

// MediaDeleteResponse confirms a guarded delete.
type MediaDeleteResponse struct {
	Folder  string `json:"folder"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

// IDRequest selects one entity by id in a JSON body.
type IDRequest struct {
	ID string `json:"id"`
}

// DeleteResponse confirms an entity delete.
type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// CategorySearchRequest searches categories by name.
type CategorySearchRequest struct {
	CategoryName string `json:"category_name"`
}

// ProductRequest creates or replaces a product.
type ProductRequest struct {
	ProdID      string                    `json:"prod_id"`
	Name        string                    `json:"product_name"`
	CategoryID  string                    `json:"cat_id"`
	Description string                    `json:"description"`
	Info        []models.ProductInfoEntry `json:"product_info"`
	Date        *time.Time                `json:"date,omitempty"`
}

// ProductSearchRequest filters products by name and/or category.
type ProductSearchRequest struct {
	Name       string `json:"product_name"`
	CategoryID string `json:"cat_id"`
}

// ProductCategoryRequest lists products of one category.
type ProductCategoryRequest struct {
	CategoryID string `json:"cat_id"`
}

// ProductSummary is a product with its resolved main image path.
type ProductSummary struct {
	models.Product
	MainImage *string `json:"main_image"`
}

// ProductDetail is a product with absolute main image and gallery URLs.
type ProductDetail struct {
	models.Product
	MainImage *string  `json:"main_image"`
	Gallery   []string `json:"gallery"`
}

// ProductWithImages is a product with every image row.
type ProductWithImages struct {
	models.Product
	Images []models.ProductImage `json:"images"`
}

// CategoryProductsResponse lists products of one category by name.
type CategoryProductsResponse struct {
	Category string           `json:"category"`
	Products []ProductSummary `json:"products"`
}

// ProductImagesResponse lists uploaded or stored images of one product.
type ProductImagesResponse struct {
	ProductID string                `json:"product_id"`
	Images    []models.ProductImage `json:"images"`
}

// BannerReorderRequest assigns display order by list position.
type BannerReorderRequest struct {
	Order []string `json:"order"`
}

// BannerReorderResponse reports which ids were reordered.
type BannerReorderResponse struct {
	Updated []string `json:"updated"`
	Missing []string `json:"missing,omitempty"`
}

// ContactRequest is a contact form or product inquiry submission.
type ContactRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
	ProductName string `json:"product_name,omitempty"`
	ProdID      string `json:"prod_id,omitempty"`
}

// ContactResponse confirms a sent message.
type ContactResponse struct {
	Sent    bool   `json:"sent"`
	Subject string `json:"subject"`
}
