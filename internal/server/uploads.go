package server

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"equipcat/internal/models"
)

func (s *Server) parseMultipartReq(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.multipartMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return false
	}
	return true
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	if errors.Is(err, http.ErrNotMultipart) {
		return badRequestCode(fmt.Errorf("multipart form required"), ErrCodeInvalidArgument)
	}
	return badRequestCode(err, ErrCodeInvalidArgument)
}

func formFiles(r *http.Request, field string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	return r.MultipartForm.File[field]
}

func formFile(r *http.Request, field string) *multipart.FileHeader {
	files := formFiles(r, field)
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

func formValue(r *http.Request, field string) string {
	return strings.TrimSpace(r.FormValue(field))
}

// storeUploads writes the given headers into folder through the media
// service and returns the stored items in order.
func (s *Server) storeUploads(ctx context.Context, folder models.MediaFolder, headers []*multipart.FileHeader) ([]models.MediaItem, error) {
	uploads := make([]MediaUpload, 0, len(headers))
	closers := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, badRequestCode(fmt.Errorf("open upload %s: %w", header.Filename, err), ErrCodeInvalidArgument)
		}
		closers = append(closers, file)
		uploads = append(uploads, MediaUpload{Filename: header.Filename, Content: file})
	}
	return s.media.Upload(ctx, string(folder), uploads)
}

// storeImage stores one upload and returns the path entities keep for it.
func (s *Server) storeImage(ctx context.Context, folder models.MediaFolder, header *multipart.FileHeader) (string, error) {
	items, err := s.storeUploads(ctx, folder, []*multipart.FileHeader{header})
	if err != nil {
		return "", err
	}
	return s.media.PublicPath(folder, items[0].Name), nil
}

// releaseAll runs the guarded delete for each non-empty path.
func (s *Server) releaseAll(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		s.media.Release(ctx, p)
	}
}

// assetURL turns a stored entity path into an absolute URL for this request's host.
func assetURL(r *http.Request, storedPath string) string {
	storedPath = strings.TrimPrefix(strings.TrimSpace(storedPath), "/")
	if storedPath == "" {
		return ""
	}
	return requestScheme(r) + "://" + r.Host + "/" + storedPath
}
