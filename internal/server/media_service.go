package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"equipcat/internal/assets"
	"equipcat/internal/models"
)

const (
	defaultMediaPage  = 1
	defaultMediaLimit = 40
	maxMediaLimit     = 200
	mediaSniffBytes   = 512
	fallbackMediaType = "application/octet-stream"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// MediaService implements the asset lifecycle: listing, upload, metadata,
// download, usage reporting and the reference-guarded delete.
type MediaService struct {
	files        assets.Store
	meta         assets.MetaStore
	refs         *ReferenceIndex
	publicPrefix string
	logger       *slog.Logger
	now          func() time.Time

	allowedMediaTypes map[string]struct{}
}

// MediaListQuery selects one page of a listing.
type MediaListQuery struct {
	Folder string
	Search string
	Page   int
	Limit  int
}

// MediaUpload is one file of a multi-file upload.
type MediaUpload struct {
	Filename string
	Content  io.Reader
}

// MediaMetaPatch carries the metadata fields to overwrite; nil leaves a field as is.
type MediaMetaPatch struct {
	Title       *string
	Alt         *string
	Caption     *string
	Description *string
}

// NewMediaService constructs a MediaService.
func NewMediaService(files assets.Store, meta assets.MetaStore, refs *ReferenceIndex, publicPrefix string, logger *slog.Logger) *MediaService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaService{
		files:        files,
		meta:         meta,
		refs:         refs,
		publicPrefix: strings.Trim(publicPrefix, "/"),
		logger:       logger,
		now:          time.Now,
	}
}

// ConfigurePolicy restricts uploads to the given media types. An empty list allows all.
func (s *MediaService) ConfigurePolicy(allowedMediaTypes []string) {
	if s == nil {
		return
	}
	normalized := map[string]struct{}{}
	for _, raw := range allowedMediaTypes {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(raw))
		if err != nil || mediaType == "" {
			continue
		}
		normalized[strings.ToLower(mediaType)] = struct{}{}
	}
	if len(normalized) == 0 {
		s.allowedMediaTypes = nil
		return
	}
	s.allowedMediaTypes = normalized
}

// PublicPath returns the path catalog entities store for an asset.
func (s *MediaService) PublicPath(folder models.MediaFolder, name string) string {
	return publicAssetPath(s.publicPrefix, folder, name)
}

// List returns one page of assets ordered favorites first, then by name and folder.
func (s *MediaService) List(ctx context.Context, q MediaListQuery) (models.MediaPage, error) {
	folders, err := parseFolderSelector(q.Folder)
	if err != nil {
		return models.MediaPage{}, err
	}
	page, limit := normalizePage(q.Page, q.Limit)
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	items := make([]models.MediaItem, 0)
	for _, folder := range folders {
		files, err := s.files.List(ctx, folder)
		if err != nil {
			return models.MediaPage{}, storageFailure(fmt.Errorf("list %s: %w", folder, err))
		}
		if len(files) == 0 {
			continue
		}
		entries, err := s.meta.Read(folder)
		if err != nil {
			return models.MediaPage{}, storageFailure(fmt.Errorf("read %s metadata: %w", folder, err))
		}
		for _, file := range files {
			meta, ok := entries[file.Name]
			if !ok {
				meta = models.DefaultMediaMeta(file.Name)
			}
			if needle != "" && !mediaMatches(needle, file.Name, meta) {
				continue
			}
			items = append(items, s.item(file, meta))
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Meta.Favorite != b.Meta.Favorite {
			return a.Meta.Favorite
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Folder < b.Folder
	})

	total := len(items)
	start := total
	if page-1 < (total+limit-1)/limit {
		start = (page - 1) * limit
	}
	end := start + limit
	if end > total {
		end = total
	}

	return models.MediaPage{
		Total: total,
		Items: items[start:end],
		Page:  page,
		Limit: limit,
	}, nil
}

// Upload stores every payload, then records one default sidecar entry per
// stored file. Files written before a failure stay on disk.
func (s *MediaService) Upload(ctx context.Context, rawFolder string, uploads []MediaUpload) ([]models.MediaItem, error) {
	folder, err := parseFolder(rawFolder)
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, badRequestCode(fmt.Errorf("at least one file is required"), ErrCodeMissingRequired)
	}

	stored := make([]assets.FileInfo, 0, len(uploads))
	var uploadErr error
	for _, upload := range uploads {
		info, err := s.put(ctx, folder, upload)
		if err != nil {
			uploadErr = err
			break
		}
		stored = append(stored, info)
	}

	if len(stored) > 0 {
		metaErr := s.meta.Update(folder, func(entries map[string]models.MediaMeta) error {
			for _, info := range stored {
				if _, ok := entries[info.Name]; !ok {
					entries[info.Name] = models.DefaultMediaMeta(info.Name)
				}
			}
			return nil
		})
		if metaErr != nil && uploadErr == nil {
			uploadErr = storageFailure(fmt.Errorf("record %s metadata: %w", folder, metaErr))
		}
	}
	if uploadErr != nil {
		return nil, uploadErr
	}

	items := make([]models.MediaItem, 0, len(stored))
	for _, info := range stored {
		items = append(items, s.item(info, models.DefaultMediaMeta(info.Name)))
	}
	s.logger.Info("media uploaded", "folder", folder, "count", len(items))
	return items, nil
}

func (s *MediaService) put(ctx context.Context, folder models.MediaFolder, upload MediaUpload) (assets.FileInfo, error) {
	if upload.Content == nil {
		return assets.FileInfo{}, badRequestCode(fmt.Errorf("file content is required"), ErrCodeMissingRequired)
	}
	name := storedUploadName(upload.Filename, s.now())

	content := bufio.NewReaderSize(upload.Content, mediaSniffBytes)
	if s.allowedMediaTypes != nil {
		peek, _ := content.Peek(mediaSniffBytes)
		sniffed := sniffMediaType(peek)
		if _, ok := s.allowedMediaTypes[sniffed]; !ok {
			return assets.FileInfo{}, badRequestCode(fmt.Errorf("media type %s is not allowed for %s", sniffed, upload.Filename), ErrCodeInvalidMediaType)
		}
	}

	info, err := s.files.Put(ctx, folder, name, content)
	if err != nil {
		return assets.FileInfo{}, s.mapAssetError(err, folder, name)
	}
	return info, nil
}

// UpdateMetadata merges patch into the asset's sidecar entry.
func (s *MediaService) UpdateMetadata(ctx context.Context, rawFolder, name string, patch MediaMetaPatch) (models.MediaMeta, error) {
	return s.updateEntry(ctx, rawFolder, name, func(meta *models.MediaMeta) {
		if patch.Title != nil {
			meta.Title = *patch.Title
		}
		if patch.Alt != nil {
			meta.Alt = *patch.Alt
		}
		if patch.Caption != nil {
			meta.Caption = *patch.Caption
		}
		if patch.Description != nil {
			meta.Description = *patch.Description
		}
	})
}

// SetFavorite sets only the favorite flag of the asset's sidecar entry.
func (s *MediaService) SetFavorite(ctx context.Context, rawFolder, name string, favorite bool) (models.MediaMeta, error) {
	return s.updateEntry(ctx, rawFolder, name, func(meta *models.MediaMeta) {
		meta.Favorite = favorite
	})
}

func (s *MediaService) updateEntry(ctx context.Context, rawFolder, name string, apply func(meta *models.MediaMeta)) (models.MediaMeta, error) {
	folder, err := s.requireExisting(ctx, rawFolder, name)
	if err != nil {
		return models.MediaMeta{}, err
	}

	var updated models.MediaMeta
	err = s.meta.Update(folder, func(entries map[string]models.MediaMeta) error {
		meta, ok := entries[name]
		if !ok {
			meta = models.DefaultMediaMeta(name)
		}
		apply(&meta)
		entries[name] = meta
		updated = meta
		return nil
	})
	if err != nil {
		return models.MediaMeta{}, s.mapAssetError(err, folder, name)
	}
	return updated, nil
}

// Open returns the asset content for download.
func (s *MediaService) Open(ctx context.Context, rawFolder, name string) (io.ReadSeekCloser, assets.FileInfo, error) {
	folder, err := parseFolder(rawFolder)
	if err != nil {
		return nil, assets.FileInfo{}, err
	}
	if err := assets.ValidateFilename(name); err != nil {
		return nil, assets.FileInfo{}, invalidPath(err)
	}
	rc, info, err := s.files.Open(ctx, folder, name)
	if err != nil {
		return nil, assets.FileInfo{}, s.mapAssetError(err, folder, name)
	}
	return rc, info, nil
}

// Usage reports which catalog documents reference the asset.
func (s *MediaService) Usage(ctx context.Context, rawFolder, name string) (models.UsageReport, error) {
	folder, err := parseFolder(rawFolder)
	if err != nil {
		return models.UsageReport{}, err
	}
	if err := assets.ValidateFilename(name); err != nil {
		return models.UsageReport{}, invalidPath(err)
	}
	return s.refs.Report(ctx, folder, name), nil
}

// Delete removes an unreferenced asset and then its sidecar entry, returning
// the canonical folder it was removed from. A referenced asset is left
// untouched and its usage report is returned in a conflict error.
func (s *MediaService) Delete(ctx context.Context, rawFolder, name string) (models.MediaFolder, error) {
	folder, err := s.requireExisting(ctx, rawFolder, name)
	if err != nil {
		return "", err
	}

	report := s.refs.Report(ctx, folder, name)
	if report.InUse {
		return "", conflictWithDetails(fmt.Errorf("%s/%s is in use", folder, name), ErrCodeAssetInUse, report)
	}
	if report.Incomplete {
		s.logger.Warn("deleting media with incomplete usage report", "folder", folder, "name", name, "failed", report.Failed)
	}

	if err := s.files.Delete(ctx, folder, name); err != nil {
		return "", s.mapAssetError(err, folder, name)
	}
	err = s.meta.Update(folder, func(entries map[string]models.MediaMeta) error {
		delete(entries, name)
		return nil
	})
	if err != nil {
		return "", storageFailure(fmt.Errorf("remove %s/%s metadata: %w", folder, name, err))
	}
	s.logger.Info("media deleted", "folder", folder, "name", name)
	return folder, nil
}

// Release runs the guarded delete for a path previously stored on an entity.
// Paths outside the upload prefix, missing files and files still referenced
// elsewhere are left alone.
func (s *MediaService) Release(ctx context.Context, publicPath string) {
	if s == nil {
		return
	}
	folder, name, ok := s.splitPublicPath(publicPath)
	if !ok {
		return
	}
	_, err := s.Delete(ctx, string(folder), name)
	switch {
	case err == nil:
	case httpStatusFromError(err) == http.StatusConflict, httpStatusFromError(err) == http.StatusNotFound:
		s.logger.Debug("media kept", "path", publicPath, "reason", err)
	default:
		s.logger.Warn("release media", "path", publicPath, "error", err)
	}
}

func (s *MediaService) splitPublicPath(publicPath string) (models.MediaFolder, string, bool) {
	rest := strings.TrimPrefix(strings.TrimSpace(publicPath), "/")
	if s.publicPrefix != "" {
		var ok bool
		rest, ok = strings.CutPrefix(rest, s.publicPrefix+"/")
		if !ok {
			return "", "", false
		}
	}
	rawFolder, name, ok := strings.Cut(rest, "/")
	if !ok {
		return "", "", false
	}
	folder := models.MediaFolder(rawFolder)
	if !assets.IsKnownFolder(folder) || assets.ValidateFilename(name) != nil {
		return "", "", false
	}
	return folder, name, true
}

func (s *MediaService) requireExisting(ctx context.Context, rawFolder, name string) (models.MediaFolder, error) {
	folder, err := parseFolder(rawFolder)
	if err != nil {
		return "", err
	}
	if err := assets.ValidateFilename(name); err != nil {
		return "", invalidPath(err)
	}
	if _, err := s.files.Stat(ctx, folder, name); err != nil {
		return "", s.mapAssetError(err, folder, name)
	}
	return folder, nil
}

func (s *MediaService) item(info assets.FileInfo, meta models.MediaMeta) models.MediaItem {
	folder := string(info.Folder)
	return models.MediaItem{
		Name:        info.Name,
		Folder:      folder,
		URL:         "/" + s.PublicPath(info.Folder, escapePathElement(info.Name)),
		DownloadURL: "/api/media/download/" + escapePathElement(info.Name) + "?cat=" + url.QueryEscape(folder),
		SizeBytes:   info.SizeBytes,
		ModifiedAt:  info.ModifiedAt,
		Meta:        meta,
	}
}

func (s *MediaService) mapAssetError(err error, folder models.MediaFolder, name string) error {
	switch {
	case errors.Is(err, assets.ErrNotFound):
		return notFoundCode(fmt.Errorf("media %s/%s not found", folder, name), ErrCodeMediaNotFound)
	case errors.Is(err, assets.ErrInvalidPath):
		return invalidPath(err)
	default:
		return storageFailure(err)
	}
}

func parseFolder(raw string) (models.MediaFolder, error) {
	folder, err := models.ParseMediaFolder(raw)
	if err != nil {
		return "", invalidPath(err)
	}
	return folder, nil
}

func parseFolderSelector(raw string) ([]models.MediaFolder, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" || value == models.MediaFolderAll {
		return models.MediaFolders, nil
	}
	folder, err := parseFolder(value)
	if err != nil {
		return nil, err
	}
	return []models.MediaFolder{folder}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = defaultMediaPage
	}
	if limit <= 0 {
		limit = defaultMediaLimit
	}
	if limit > maxMediaLimit {
		limit = maxMediaLimit
	}
	return page, limit
}

func mediaMatches(needle, name string, meta models.MediaMeta) bool {
	for _, field := range []string{name, meta.Title, meta.Alt, meta.Caption, meta.Description} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// storedUploadName prefixes the client's base name with the upload time in
// unix milliseconds and collapses whitespace runs to "-".
func storedUploadName(clientName string, now time.Time) string {
	base := strings.ReplaceAll(clientName, "\\", "/")
	base = path.Base(strings.TrimSpace(base))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	base = whitespaceRun.ReplaceAllString(base, "-")
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + base
}

func sniffMediaType(peek []byte) string {
	detected := http.DetectContentType(peek)
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil || mediaType == "" {
		return fallbackMediaType
	}
	return strings.ToLower(mediaType)
}

func escapePathElement(name string) string {
	return url.PathEscape(name)
}
