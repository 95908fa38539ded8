package models

import (
	"fmt"
	"strings"
	"time"
)

// MediaFolder is one asset category directory under the upload root.
type MediaFolder string

const (
	MediaFolderProducts   MediaFolder = "products"
	MediaFolderPosts      MediaFolder = "posts"
	MediaFolderBanners    MediaFolder = "banners"
	MediaFolderCategories MediaFolder = "categories"

	// MediaFolderAll selects every known folder when listing.
	MediaFolderAll = "all"
)

// MediaFolders lists every known folder in listing order.
var MediaFolders = []MediaFolder{
	MediaFolderProducts,
	MediaFolderPosts,
	MediaFolderBanners,
	MediaFolderCategories,
}

// ParseMediaFolder validates a single-folder selector.
func ParseMediaFolder(raw string) (MediaFolder, error) {
	value := MediaFolder(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("folder is required")
	}
	for _, folder := range MediaFolders {
		if folder == value {
			return value, nil
		}
	}
	return "", fmt.Errorf("invalid folder: %s", raw)
}

// MediaMeta is the sidecar record describing one asset.
type MediaMeta struct {
	Title       string `json:"title"`
	Alt         string `json:"alt"`
	Caption     string `json:"caption"`
	Description string `json:"description"`
	Favorite    bool   `json:"favorite"`
}

// DefaultMediaMeta returns the record used for assets without a sidecar entry.
func DefaultMediaMeta(filename string) MediaMeta {
	return MediaMeta{Title: filename}
}

// MediaItem is one listed asset.
type MediaItem struct {
	Name        string    `json:"name"`
	Folder      string    `json:"folder"`
	URL         string    `json:"url"`
	DownloadURL string    `json:"download_url"`
	SizeBytes   int64     `json:"size_bytes"`
	ModifiedAt  time.Time `json:"modified_at"`
	Meta        MediaMeta `json:"meta"`
}

// MediaPage is one page of a media listing.
type MediaPage struct {
	Total int         `json:"total"`
	Items []MediaItem `json:"items"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Entity types checked by the usage report.
const (
	UsageEntityProducts      = "products"
	UsageEntityProductImages = "product_images"
	UsageEntityCategories    = "categories"
	UsageEntityPosts         = "posts"
	UsageEntityBanners       = "banners"
)

// UsageRef identifies one document referencing an asset.
type UsageRef struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Field string `json:"field"`
}

// UsageReport lists the catalog documents referencing one asset.
//
// Incomplete is set when at least one lookup failed; Failed names the entity
// types whose lists are therefore unreliable.
type UsageReport struct {
	Folder        string     `json:"folder"`
	File          string     `json:"file"`
	Path          string     `json:"path"`
	InUse         bool       `json:"in_use"`
	Products      []UsageRef `json:"products"`
	ProductImages []UsageRef `json:"product_images"`
	Categories    []UsageRef `json:"categories"`
	Posts         []UsageRef `json:"posts"`
	Banners       []UsageRef `json:"banners"`
	Incomplete    bool       `json:"incomplete"`
	Failed        []string   `json:"failed,omitempty"`
}
