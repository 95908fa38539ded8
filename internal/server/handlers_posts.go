package server

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"equipcat/internal/api"
	"equipcat/internal/models"
)

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipartReq(w, r) {
		return
	}
	title := formValue(r, "title")
	if err := requireFields("title", title); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	image := formFile(r, "image")
	if image == nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("image is required"), ErrCodeMissingRequired))
		return
	}
	date, err := parseOptionalDate(r.FormValue("date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	imagePath, err := s.storeImage(r.Context(), models.MediaFolderPosts, image)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	now := time.Now().UTC()
	post := &models.Post{
		Title:            title,
		ShortDescription: formValue(r, "short_description"),
		LongDescription:  formValue(r, "long_description"),
		Image:            imagePath,
		Date:             date,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreatePost(r.Context(), post); err != nil {
		s.releaseAll(r.Context(), imagePath)
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if post == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("post not found"), ErrCodeEntityNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	if !s.parseMultipartReq(w, r) {
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if post == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("post not found"), ErrCodeEntityNotFound))
		return
	}

	values := r.MultipartForm.Value
	if _, ok := values["title"]; ok {
		post.Title = formValue(r, "title")
		if err := requireFields("title", post.Title); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	if _, ok := values["short_description"]; ok {
		post.ShortDescription = formValue(r, "short_description")
	}
	if _, ok := values["long_description"]; ok {
		post.LongDescription = formValue(r, "long_description")
	}
	if _, ok := values["date"]; ok {
		date, err := parseOptionalDate(r.FormValue("date"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		post.Date = date
	}

	previousImage := ""
	if image := formFile(r, "image"); image != nil {
		imagePath, err := s.storeImage(r.Context(), models.MediaFolderPosts, image)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		previousImage, post.Image = post.Image, imagePath
	}
	post.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdatePost(r.Context(), post); err != nil {
		if previousImage != "" {
			s.releaseAll(r.Context(), post.Image)
		}
		if errors.Is(err, sql.ErrNoRows) {
			s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("post not found"), ErrCodeEntityNotFound))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	s.releaseAll(r.Context(), previousImage)
	s.writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if post == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("post not found"), ErrCodeEntityNotFound))
		return
	}
	deleted, err := s.store.DeletePost(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !deleted {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("post not found"), ErrCodeEntityNotFound))
		return
	}
	s.releaseAll(r.Context(), post.Image)
	s.writeJSON(w, http.StatusOK, api.DeleteResponse{ID: id, Deleted: true})
}
