package server

import (
	"fmt"
	"mime"
	"net/http"
	"path"

	"equipcat/internal/api"
)

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	page, err := queryIntDefault(r, "page", defaultMediaPage)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	limit, err := queryIntDefault(r, "limit", defaultMediaLimit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	query := r.URL.Query()
	result, err := s.media.List(r.Context(), MediaListQuery{
		Folder: query.Get("category"),
		Search: query.Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	folder, err := parseFolder(r.URL.Query().Get("cat"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !s.parseMultipartReq(w, r) {
		return
	}
	headers := formFiles(r, "files")
	if len(headers) == 0 {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("files are required"), ErrCodeMissingRequired))
		return
	}

	items, err := s.storeUploads(r.Context(), folder, headers)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	s.writeJSON(w, http.StatusCreated, api.MediaUploadResponse{Folder: string(folder), Files: names, Items: items})
}

func (s *Server) handleUpdateMediaMeta(w http.ResponseWriter, r *http.Request) {
	var req api.MediaMetaUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	folder, name := r.URL.Query().Get("cat"), r.PathValue("name")
	meta, err := s.media.UpdateMetadata(r.Context(), folder, name, MediaMetaPatch{
		Title:       req.Title,
		Alt:         req.Alt,
		Caption:     req.Caption,
		Description: req.Description,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MediaMetaResponse{Folder: folder, Name: name, Meta: meta})
}

func (s *Server) handleFavoriteMedia(w http.ResponseWriter, r *http.Request) {
	var req api.MediaFavoriteRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.Favorite == nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("favorite is required"), ErrCodeMissingRequired))
		return
	}
	folder, name := r.URL.Query().Get("cat"), r.PathValue("name")
	meta, err := s.media.SetFavorite(r.Context(), folder, name, *req.Favorite)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MediaMetaResponse{Folder: folder, Name: name, Meta: meta})
}

func (s *Server) handleDownloadMedia(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, r, r.URL.Query().Get("cat"), r.PathValue("name"), true)
}

func (s *Server) handleServeAsset(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, r, r.PathValue("folder"), r.PathValue("name"), false)
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request, folder, name string, attachment bool) {
	content, info, err := s.media.Open(r.Context(), folder, name)
	if err != nil {
		// Public asset URLs never reveal why a path was rejected.
		if !attachment && httpStatusFromError(err) == http.StatusBadRequest {
			err = notFoundCode(fmt.Errorf("media not found"), ErrCodeMediaNotFound)
		}
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Close()

	if attachment {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name}))
	} else {
		w.Header().Set("Cache-Control", "public, max-age=86400")
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if mediaType := mime.TypeByExtension(path.Ext(info.Name)); mediaType != "" {
		w.Header().Set("Content-Type", mediaType)
	}
	http.ServeContent(w, r, info.Name, info.ModifiedAt, content)
}

func (s *Server) handleMediaUsage(w http.ResponseWriter, r *http.Request) {
	report, err := s.media.Usage(r.Context(), r.PathValue("folder"), r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	rawFolder, name := r.URL.Query().Get("cat"), r.PathValue("name")
	folder, err := s.media.Delete(r.Context(), rawFolder, name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MediaDeleteResponse{Folder: string(folder), Name: name, Deleted: true})
}
