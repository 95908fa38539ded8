package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"equipcat/internal/models"
)

const maxNameCollisions = 1000

// FolderStore keeps asset binaries in one directory per media folder.
type FolderStore struct {
	root string
}

// NewFolderStore creates a folder store rooted at root, creating every known folder.
func NewFolderStore(root string) (*FolderStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("upload root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	for _, folder := range models.MediaFolders {
		if err := os.MkdirAll(filepath.Join(abs, string(folder)), 0o755); err != nil {
			return nil, err
		}
	}
	return &FolderStore{root: abs}, nil
}

// Root returns the absolute upload root.
func (s *FolderStore) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// Put writes r under name, picking a numeric suffix when name is taken.
func (s *FolderStore) Put(ctx context.Context, folder models.MediaFolder, name string, r io.Reader) (FileInfo, error) {
	var zero FileInfo
	if s == nil {
		return zero, fmt.Errorf("asset store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if _, err := s.pathFor(folder, name); err != nil {
		return zero, err
	}

	dir := filepath.Join(s.root, string(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}

	stored, err := s.claimName(folder, name, tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return zero, err
	}
	info := FileInfo{Folder: folder, Name: stored, SizeBytes: n}
	if st, err := os.Stat(filepath.Join(dir, stored)); err == nil {
		info.ModifiedAt = st.ModTime().UTC()
	}
	return info, nil
}

// claimName links the finished temp file to the first free candidate name.
// os.Link fails when the target exists, so an existing asset is never replaced.
func (s *FolderStore) claimName(folder models.MediaFolder, name, tmpPath string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < maxNameCollisions; i++ {
		candidate := name
		if i > 0 {
			candidate = stem + "-" + strconv.Itoa(i) + ext
		}
		dst, err := s.pathFor(folder, candidate)
		if err != nil {
			return "", err
		}
		err = os.Link(tmpPath, dst)
		if err == nil {
			_ = os.Remove(tmpPath)
			return candidate, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}
		// Filesystems without hard links fall back to an exclusive create.
		copyErr := exclusiveCopy(tmpPath, dst)
		if copyErr == nil {
			_ = os.Remove(tmpPath)
			return candidate, nil
		}
		if !errors.Is(copyErr, os.ErrExist) {
			return "", copyErr
		}
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", name, maxNameCollisions)
}

func exclusiveCopy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

// Open returns a seekable reader for one asset.
func (s *FolderStore) Open(ctx context.Context, folder models.MediaFolder, name string) (io.ReadSeekCloser, FileInfo, error) {
	var zero FileInfo
	if s == nil {
		return nil, zero, fmt.Errorf("asset store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, zero, err
	}
	path, err := s.pathFor(folder, name)
	if err != nil {
		return nil, zero, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, zero, ErrNotFound
		}
		return nil, zero, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, zero, err
	}
	if !st.Mode().IsRegular() {
		_ = f.Close()
		return nil, zero, ErrNotFound
	}
	return f, fileInfo(folder, st), nil
}

// Stat reports one asset without opening it.
func (s *FolderStore) Stat(ctx context.Context, folder models.MediaFolder, name string) (FileInfo, error) {
	var zero FileInfo
	if s == nil {
		return zero, fmt.Errorf("asset store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	path, err := s.pathFor(folder, name)
	if err != nil {
		return zero, err
	}
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	if !st.Mode().IsRegular() {
		return zero, ErrNotFound
	}
	return fileInfo(folder, st), nil
}

// Delete removes one asset. Missing files are ignored.
func (s *FolderStore) Delete(ctx context.Context, folder models.MediaFolder, name string) error {
	if s == nil {
		return fmt.Errorf("asset store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFor(folder, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the regular files of one folder sorted by name.
// Hidden files and the sidecar are skipped; a missing folder lists empty.
func (s *FolderStore) List(ctx context.Context, folder models.MediaFolder) ([]FileInfo, error) {
	if s == nil {
		return nil, fmt.Errorf("asset store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.folderDir(folder)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []FileInfo{}, nil
		}
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || name == SidecarFilename {
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		st, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		files = append(files, fileInfo(folder, st))
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func fileInfo(folder models.MediaFolder, st os.FileInfo) FileInfo {
	return FileInfo{
		Folder:     folder,
		Name:       st.Name(),
		SizeBytes:  st.Size(),
		ModifiedAt: st.ModTime().UTC(),
	}
}

func (s *FolderStore) folderDir(folder models.MediaFolder) (string, error) {
	if !IsKnownFolder(folder) {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, string(folder)), nil
}

// pathFor resolves one asset path, rejecting anything outside its folder.
func (s *FolderStore) pathFor(folder models.MediaFolder, name string) (string, error) {
	dir, err := s.folderDir(folder)
	if err != nil {
		return "", err
	}
	if err := ValidateFilename(name); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel != name {
		return "", ErrInvalidPath
	}
	return path, nil
}

// IsKnownFolder reports whether folder is one of the fixed media folders.
func IsKnownFolder(folder models.MediaFolder) bool {
	for _, known := range models.MediaFolders {
		if known == folder {
			return true
		}
	}
	return false
}

// ValidateFilename accepts only a single, visible path element.
func ValidateFilename(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidPath
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return ErrInvalidPath
	case name == SidecarFilename:
		return ErrInvalidPath
	case strings.HasPrefix(name, "."):
		return ErrInvalidPath
	}
	return nil
}
