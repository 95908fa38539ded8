package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"equipcat/internal/api"
	"equipcat/internal/models"
	"equipcat/internal/store"
)

const (
	maxProductImagesPerUpload = 10
	defaultLatestProducts     = 10
	maxLatestProducts         = 100
)

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req api.ProductRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if err := s.validateProductRequest(r.Context(), req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	now := time.Now().UTC()
	product := productFromRequest(req, now)
	product.CreatedAt = now
	if err := s.store.CreateProduct(r.Context(), product); err != nil {
		s.writeProductStoreError(w, r, err, req.ProdID)
		return
	}
	stored, err := s.store.GetProduct(r.Context(), product.ID)
	if err != nil || stored == nil {
		stored = product
	}
	s.writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	var req api.ProductRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	existing, err := s.store.GetProduct(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if existing == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("product not found"), ErrCodeEntityNotFound))
		return
	}
	if err := s.validateProductRequest(r.Context(), req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	product := productFromRequest(req, time.Now().UTC())
	product.ID = id
	product.CreatedAt = existing.CreatedAt
	if req.Date == nil {
		product.Date = existing.Date
	}
	if err := s.store.UpdateProduct(r.Context(), product); err != nil {
		s.writeProductStoreError(w, r, err, req.ProdID)
		return
	}
	stored, err := s.store.GetProduct(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	var req api.IDRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	id, err := requireBodyID(req.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	images, err := s.store.ListProductImages(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	deleted, err := s.store.DeleteProduct(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !deleted {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("product not found"), ErrCodeEntityNotFound))
		return
	}
	for _, image := range images {
		s.releaseAll(r.Context(), image.ImagePath)
	}
	s.writeJSON(w, http.StatusOK, api.DeleteResponse{ID: id, Deleted: true})
}

func (s *Server) handleUploadProductImages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	product, err := s.store.GetProduct(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if product == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("product not found"), ErrCodeEntityNotFound))
		return
	}
	if !s.parseMultipartReq(w, r) {
		return
	}

	headers := formFiles(r, "images")
	switch {
	case len(headers) == 0:
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("images are required"), ErrCodeMissingRequired))
		return
	case len(headers) > maxProductImagesPerUpload:
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("at most %d images per upload", maxProductImagesPerUpload), ErrCodeTooManyFiles))
		return
	}
	mainIndex := -1
	if raw := formValue(r, "main_index"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed >= len(headers) {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid main_index"), ErrCodeInvalidArgument))
			return
		}
		mainIndex = parsed
	}

	items, err := s.storeUploads(r.Context(), models.MediaFolderProducts, headers)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	now := time.Now().UTC()
	rows := make([]models.ProductImage, 0, len(items))
	for i, item := range items {
		rows = append(rows, models.ProductImage{
			ImagePath: s.media.PublicPath(models.MediaFolderProducts, item.Name),
			IsMain:    i == mainIndex,
			CreatedAt: now,
		})
	}
	stored, err := s.store.AddProductImages(r.Context(), id, rows)
	if err != nil {
		for _, row := range rows {
			s.releaseAll(r.Context(), row.ImagePath)
		}
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.ProductImagesResponse{ProductID: id, Images: stored})
}

func (s *Server) handleListProductImages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "productId")
	if !ok {
		return
	}
	product, err := s.store.GetProduct(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if product == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("product not found"), ErrCodeEntityNotFound))
		return
	}
	images, err := s.store.ListProductImages(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProductImagesResponse{ProductID: id, Images: images})
}

func (s *Server) handleSetMainProductImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "imageId")
	if !ok {
		return
	}
	image, err := s.store.SetMainProductImage(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if image == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("image not found"), ErrCodeEntityNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, image)
}

func (s *Server) handleLatestProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryIntDefault(r, "limit", defaultLatestProducts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if limit <= 0 {
		limit = defaultLatestProducts
	}
	if limit > maxLatestProducts {
		limit = maxLatestProducts
	}
	s.writeProductSummaries(w, r, store.ProductFilter{Limit: limit})
}

func (s *Server) handleListProductSummaries(w http.ResponseWriter, r *http.Request) {
	s.writeProductSummaries(w, r, store.ProductFilter{})
}

func (s *Server) handleProductsByCategory(w http.ResponseWriter, r *http.Request) {
	var req api.ProductCategoryRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if err := requireFields("cat_id", req.CategoryID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeProductSummaries(w, r, store.ProductFilter{CategoryID: req.CategoryID})
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	var req api.ProductSearchRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	s.writeProductSummaries(w, r, store.ProductFilter{CategoryID: req.CategoryID, NameQuery: req.Name})
}

func (s *Server) handleProductsByCategoryName(w http.ResponseWriter, r *http.Request) {
	name := trimmedPathValue(r, "categoryName")
	if err := requireFields("categoryName", name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	summaries, err := s.productSummaries(r.Context(), store.ProductFilter{CategoryName: name})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CategoryProductsResponse{Category: name, Products: summaries})
}

func (s *Server) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	product, images, ok := s.loadProductWithImages(w, r)
	if !ok {
		return
	}
	detail := api.ProductDetail{Product: *product, Gallery: make([]string, 0, len(images))}
	if main := mainProductImage(images); main != nil {
		url := assetURL(r, main.ImagePath)
		detail.MainImage = &url
	}
	for _, image := range images {
		detail.Gallery = append(detail.Gallery, assetURL(r, image.ImagePath))
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, images, ok := s.loadProductWithImages(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProductWithImages{Product: *product, Images: images})
}

func (s *Server) loadProductWithImages(w http.ResponseWriter, r *http.Request) (*models.Product, []models.ProductImage, bool) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return nil, nil, false
	}
	product, err := s.store.GetProduct(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return nil, nil, false
	}
	if product == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("product not found"), ErrCodeEntityNotFound))
		return nil, nil, false
	}
	images, err := s.store.ListProductImages(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return nil, nil, false
	}
	return product, images, true
}

func (s *Server) writeProductSummaries(w http.ResponseWriter, r *http.Request, filter store.ProductFilter) {
	summaries, err := s.productSummaries(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) productSummaries(ctx context.Context, filter store.ProductFilter) ([]api.ProductSummary, error) {
	products, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(products))
	for _, product := range products {
		ids = append(ids, product.ID)
	}
	images, err := s.store.ListImagesForProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]api.ProductSummary, 0, len(products))
	for _, product := range products {
		summary := api.ProductSummary{Product: product}
		if main := mainProductImage(images[product.ID]); main != nil {
			imagePath := main.ImagePath
			summary.MainImage = &imagePath
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// mainProductImage picks the flagged main image, else the most recently added one.
func mainProductImage(images []models.ProductImage) *models.ProductImage {
	var latest *models.ProductImage
	for i := range images {
		image := &images[i]
		if image.IsMain {
			return image
		}
		if latest == nil || !image.CreatedAt.Before(latest.CreatedAt) {
			latest = image
		}
	}
	return latest
}

func (s *Server) validateProductRequest(ctx context.Context, req api.ProductRequest) error {
	if err := requireFields(
		"prod_id", req.ProdID,
		"product_name", req.Name,
		"cat_id", req.CategoryID,
		"description", req.Description,
	); err != nil {
		return err
	}
	category, err := s.store.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return storeFailure(err)
	}
	if category == nil {
		return badRequestCode(fmt.Errorf("cat_id: category %s not found", req.CategoryID), ErrCodeInvalidArgument)
	}
	return nil
}

func productFromRequest(req api.ProductRequest, now time.Time) *models.Product {
	info := req.Info
	if info == nil {
		info = []models.ProductInfoEntry{}
	}
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}
	return &models.Product{
		ProdID:      req.ProdID,
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Info:        info,
		Date:        date,
		UpdatedAt:   now,
	}
}

func (s *Server) writeProductStoreError(w http.ResponseWriter, r *http.Request, err error, prodID string) {
	switch {
	case isUniqueConstraint(err):
		s.writeErrorReq(w, r, http.StatusConflict, conflictCode(fmt.Errorf("prod_id %q already exists", prodID), ErrCodeEntityExists))
	case isForeignKeyConstraint(err):
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("cat_id: category not found"), ErrCodeInvalidArgument))
	case errors.Is(err, sql.ErrNoRows):
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("product not found"), ErrCodeEntityNotFound))
	default:
		s.writeStoreError(w, r, err)
	}
}
