package server

import (
	"net/http"
	"strings"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	admin := s.requireAdmin

	mux.HandleFunc("GET /health", s.handleHealth)

	// Static assets.
	if prefix := s.media.publicPrefix; prefix != "" {
		mux.HandleFunc("GET /"+prefix+"/{folder}/{name}", s.handleServeAsset)
	}

	// Admin auth.
	mux.HandleFunc("POST /api/admin/login", s.handleAuthLogin)
	mux.HandleFunc("POST /api/admin/logout", s.handleAuthLogout)
	mux.HandleFunc("GET /api/admin/me", admin(s.handleAuthMe))
	mux.HandleFunc("POST /api/admin/update", admin(s.handleAdminUpdate))

	// Media library.
	mux.HandleFunc("GET /api/media", admin(s.handleListMedia))
	mux.HandleFunc("POST /api/media/upload", admin(s.handleUploadMedia))
	mux.HandleFunc("POST /api/media/meta/{name}", admin(s.handleUpdateMediaMeta))
	mux.HandleFunc("POST /api/media/favorite/{name}", admin(s.handleFavoriteMedia))
	mux.HandleFunc("GET /api/media/download/{name}", admin(s.handleDownloadMedia))
	mux.HandleFunc("GET /api/media/usage/{folder}/{name}", admin(s.handleMediaUsage))
	mux.HandleFunc("DELETE /api/media/{name}", admin(s.handleDeleteMedia))

	// Categories.
	mux.HandleFunc("POST /api/category/add", admin(s.handleCreateCategory))
	mux.HandleFunc("POST /api/category/view", admin(s.handleListCategories))
	mux.HandleFunc("GET /api/category/userview", s.handleListCategories)
	mux.HandleFunc("POST /api/category/search", s.handleSearchCategories)
	mux.HandleFunc("PUT /api/category/update/{id}", admin(s.handleUpdateCategory))
	mux.HandleFunc("POST /api/category/delete", admin(s.handleDeleteCategory))

	// Products.
	mux.HandleFunc("POST /api/product/add", admin(s.handleCreateProduct))
	mux.HandleFunc("POST /api/product/upload-images/{id}", admin(s.handleUploadProductImages))
	mux.HandleFunc("GET /api/product/images/{productId}", s.handleListProductImages)
	mux.HandleFunc("PUT /api/product/setMainImage/{imageId}", admin(s.handleSetMainProductImage))
	mux.HandleFunc("GET /api/product/latest", s.handleLatestProducts)
	mux.HandleFunc("GET /api/product/userview", s.handleListProductSummaries)
	mux.HandleFunc("GET /api/product/userview/{id}", s.handleProductDetail)
	mux.HandleFunc("GET /api/product/category/{categoryName}", s.handleProductsByCategoryName)
	mux.HandleFunc("GET /api/product/viewallProducts", admin(s.handleListProductSummaries))
	mux.HandleFunc("POST /api/product/view-by-category", s.handleProductsByCategory)
	mux.HandleFunc("POST /api/product/searchProducts", s.handleSearchProducts)
	mux.HandleFunc("GET /api/product/{id}", s.handleGetProduct)
	mux.HandleFunc("PUT /api/product/update/{id}", admin(s.handleUpdateProduct))
	mux.HandleFunc("POST /api/product/delete", admin(s.handleDeleteProduct))

	// Banners.
	mux.HandleFunc("POST /api/banners", admin(s.handleCreateBanner))
	mux.HandleFunc("GET /api/banners", s.handleListBanners)
	mux.HandleFunc("GET /api/banners/active", s.handleListActiveBanners)
	mux.HandleFunc("PUT /api/banners/reorder", admin(s.handleReorderBanners))
	mux.HandleFunc("PUT /api/banners/{id}/activate", admin(s.handleActivateBanner))
	mux.HandleFunc("PUT /api/banners/{id}/deactivate", admin(s.handleDeactivateBanner))
	mux.HandleFunc("PUT /api/banners/{id}", admin(s.handleUpdateBanner))
	mux.HandleFunc("DELETE /api/banners/{id}", admin(s.handleDeleteBanner))

	// Posts.
	mux.HandleFunc("POST /api/posts", admin(s.handleCreatePost))
	mux.HandleFunc("GET /api/posts", s.handleListPosts)
	mux.HandleFunc("GET /api/posts/{id}", s.handleGetPost)
	mux.HandleFunc("PUT /api/posts/{id}", admin(s.handleUpdatePost))
	mux.HandleFunc("DELETE /api/posts/{id}", admin(s.handleDeletePost))

	// Contact form.
	mux.HandleFunc("POST /api/contact", s.handleContact)

	return mux
}

func trimmedPathValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PathValue(key))
}
