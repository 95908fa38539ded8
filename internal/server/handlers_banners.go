package server

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"equipcat/internal/api"
	"equipcat/internal/models"
	"equipcat/internal/store"
)

func (s *Server) handleCreateBanner(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipartReq(w, r) {
		return
	}
	desktop := formFile(r, "desktop_image")
	if desktop == nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("desktop_image is required"), ErrCodeMissingRequired))
		return
	}
	textMode, err := models.ParseTextMode(formValue(r, "text_mode"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidTextMode))
		return
	}

	imagePath, err := s.storeImage(r.Context(), models.MediaFolderBanners, desktop)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	mobilePath := ""
	if mobile := formFile(r, "mobile_image"); mobile != nil {
		mobilePath, err = s.storeImage(r.Context(), models.MediaFolderBanners, mobile)
		if err != nil {
			s.releaseAll(r.Context(), imagePath)
			s.writeServiceError(w, r, err)
			return
		}
	}

	now := time.Now().UTC()
	banner := &models.Banner{
		Title:       formValue(r, "title"),
		Subtitle:    formValue(r, "subtitle"),
		Image:       imagePath,
		MobileImage: mobilePath,
		TextMode:    textMode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateBanner(r.Context(), banner); err != nil {
		s.releaseAll(r.Context(), imagePath, mobilePath)
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, banner)
}

func (s *Server) handleListBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := s.store.ListBanners(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, banners)
}

func (s *Server) handleListActiveBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := s.store.ListActiveBanners(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, banners)
}

func (s *Server) handleActivateBanner(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	banner, err := s.store.ActivateBanner(r.Context(), id, models.MaxActiveBanners, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrActiveBannerLimit) {
			s.writeErrorReq(w, r, http.StatusConflict, conflictCode(fmt.Errorf("at most %d banners can be active", models.MaxActiveBanners), ErrCodeBannerLimit))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	if banner == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("banner not found"), ErrCodeEntityNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, banner)
}

func (s *Server) handleDeactivateBanner(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	banner, err := s.store.DeactivateBanner(r.Context(), id, time.Now().UTC())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if banner == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("banner not found"), ErrCodeEntityNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, banner)
}

// handleReorderBanners assigns each listed banner its list position, one row
// at a time. A failure midway leaves earlier rows updated.
func (s *Server) handleReorderBanners(w http.ResponseWriter, r *http.Request) {
	var req api.BannerReorderRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if len(req.Order) == 0 {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("order is required"), ErrCodeMissingRequired))
		return
	}
	for _, id := range req.Order {
		if !validateID(id) {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid id %q", id), ErrCodeInvalidID))
			return
		}
	}

	now := time.Now().UTC()
	resp := api.BannerReorderResponse{Updated: make([]string, 0, len(req.Order))}
	for position, id := range req.Order {
		found, err := s.store.SetBannerOrder(r.Context(), id, position, now)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if !found {
			resp.Missing = append(resp.Missing, id)
			continue
		}
		resp.Updated = append(resp.Updated, id)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateBanner(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	if !s.parseMultipartReq(w, r) {
		return
	}
	banner, err := s.store.GetBanner(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if banner == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("banner not found"), ErrCodeEntityNotFound))
		return
	}

	if raw, present := r.MultipartForm.Value["text_mode"]; present && len(raw) > 0 {
		textMode, err := models.ParseTextMode(raw[0])
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidTextMode))
			return
		}
		banner.TextMode = textMode
	}
	if values, present := r.MultipartForm.Value["title"]; present && len(values) > 0 {
		banner.Title = formValue(r, "title")
	}
	if values, present := r.MultipartForm.Value["subtitle"]; present && len(values) > 0 {
		banner.Subtitle = formValue(r, "subtitle")
	}

	var replaced, added []string
	for _, slot := range []struct {
		field string
		dst   *string
	}{
		{field: "desktop_image", dst: &banner.Image},
		{field: "mobile_image", dst: &banner.MobileImage},
	} {
		header := formFile(r, slot.field)
		if header == nil {
			continue
		}
		imagePath, err := s.storeImage(r.Context(), models.MediaFolderBanners, header)
		if err != nil {
			s.releaseAll(r.Context(), added...)
			s.writeServiceError(w, r, err)
			return
		}
		replaced = append(replaced, *slot.dst)
		added = append(added, imagePath)
		*slot.dst = imagePath
	}

	banner.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateBanner(r.Context(), banner); err != nil {
		s.releaseAll(r.Context(), added...)
		if errors.Is(err, sql.ErrNoRows) {
			s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("banner not found"), ErrCodeEntityNotFound))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	s.releaseAll(r.Context(), replaced...)
	s.writeJSON(w, http.StatusOK, banner)
}

func (s *Server) handleDeleteBanner(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	banner, err := s.store.GetBanner(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if banner == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("banner not found"), ErrCodeEntityNotFound))
		return
	}
	deleted, err := s.store.DeleteBanner(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !deleted {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("banner not found"), ErrCodeEntityNotFound))
		return
	}
	s.releaseAll(r.Context(), banner.Image, banner.MobileImage)
	s.writeJSON(w, http.StatusOK, api.DeleteResponse{ID: id, Deleted: true})
}
