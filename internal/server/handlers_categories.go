package server

import (
	"fmt"
	"net/http"
	"time"

	"equipcat/internal/api"
	"equipcat/internal/models"
)

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipartReq(w, r) {
		return
	}
	name := formValue(r, "category_name")
	image := formFile(r, "image")
	if err := requireFields("category_name", name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if image == nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("image is required"), ErrCodeMissingRequired))
		return
	}

	imagePath, err := s.storeImage(r.Context(), models.MediaFolderCategories, image)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	now := time.Now().UTC()
	category := &models.Category{Name: name, Image: imagePath, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateCategory(r.Context(), category); err != nil {
		s.releaseAll(r.Context(), imagePath)
		if isUniqueConstraint(err) {
			s.writeErrorReq(w, r, http.StatusConflict, conflictCode(fmt.Errorf("category %q already exists", name), ErrCodeEntityExists))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleSearchCategories(w http.ResponseWriter, r *http.Request) {
	var req api.CategorySearchRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if err := requireFields("category_name", req.CategoryName); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	categories, err := s.store.SearchCategories(r.Context(), req.CategoryName)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	if !s.parseMultipartReq(w, r) {
		return
	}
	name := formValue(r, "category_name")
	if err := requireFields("category_name", name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	category, err := s.store.GetCategory(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if category == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("category not found"), ErrCodeEntityNotFound))
		return
	}

	previousImage := ""
	if image := formFile(r, "image"); image != nil {
		imagePath, err := s.storeImage(r.Context(), models.MediaFolderCategories, image)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		previousImage, category.Image = category.Image, imagePath
	}
	category.Name = name
	category.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateCategory(r.Context(), category); err != nil {
		if previousImage != "" {
			s.releaseAll(r.Context(), category.Image)
		}
		if isUniqueConstraint(err) {
			s.writeErrorReq(w, r, http.StatusConflict, conflictCode(fmt.Errorf("category %q already exists", name), ErrCodeEntityExists))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	if previousImage != category.Image {
		s.releaseAll(r.Context(), previousImage)
	}
	s.writeJSON(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	var req api.IDRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	id, err := requireBodyID(req.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	category, err := s.store.GetCategory(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if category == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("category not found"), ErrCodeEntityNotFound))
		return
	}
	count, err := s.store.CountProductsInCategory(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if count > 0 {
		s.writeErrorReq(w, r, http.StatusConflict, conflictCode(fmt.Errorf("category has %d products", count), ErrCodeCategoryNotEmpty))
		return
	}

	deleted, err := s.store.DeleteCategory(r.Context(), id)
	if err != nil {
		if isForeignKeyConstraint(err) {
			s.writeErrorReq(w, r, http.StatusConflict, conflictCode(fmt.Errorf("category still has products"), ErrCodeCategoryNotEmpty))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	if !deleted {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("category not found"), ErrCodeEntityNotFound))
		return
	}
	s.releaseAll(r.Context(), category.Image)
	s.writeJSON(w, http.StatusOK, api.DeleteResponse{ID: id, Deleted: true})
}
