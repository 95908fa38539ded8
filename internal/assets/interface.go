package assets

import (
	"context"
	"errors"
	"io"
	"time"

	"equipcat/internal/models"
)

// SidecarFilename is the per-folder metadata file. It is never listed or served.
const SidecarFilename = "media.meta.json"

var (
	// ErrNotFound reports that the addressed asset does not exist.
	ErrNotFound = errors.New("asset not found")
	// ErrInvalidPath reports a folder or filename that could escape its folder.
	ErrInvalidPath = errors.New("invalid asset path")
)

// FileInfo describes one stored asset binary.
type FileInfo struct {
	Folder     models.MediaFolder
	Name       string
	SizeBytes  int64
	ModifiedAt time.Time
}

// Store is the byte-storage abstraction used by the media service.
type Store interface {
	Put(ctx context.Context, folder models.MediaFolder, name string, r io.Reader) (FileInfo, error)
	Open(ctx context.Context, folder models.MediaFolder, name string) (io.ReadSeekCloser, FileInfo, error)
	Stat(ctx context.Context, folder models.MediaFolder, name string) (FileInfo, error)
	Delete(ctx context.Context, folder models.MediaFolder, name string) error
	List(ctx context.Context, folder models.MediaFolder) ([]FileInfo, error)
}

// MetaStore persists the per-folder sidecar map.
type MetaStore interface {
	Read(folder models.MediaFolder) (map[string]models.MediaMeta, error)
	Write(folder models.MediaFolder, entries map[string]models.MediaMeta) error
	Update(folder models.MediaFolder, fn func(entries map[string]models.MediaMeta) error) error
}
