package models

import (
	"fmt"
	"strings"
	"time"
)

// Category groups products and carries one display image.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"category_name"`
	Image     string    `json:"category_image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductInfoEntry is one key/value row of a product's technical specs.
type ProductInfoEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Product is one catalog item.
type Product struct {
	ID           string             `json:"id"`
	ProdID       string             `json:"prod_id"`
	Name         string             `json:"product_name"`
	CategoryID   string             `json:"cat_id"`
	CategoryName string             `json:"category,omitempty"`
	Description  string             `json:"description"`
	Info         []ProductInfoEntry `json:"product_info"`
	Date         time.Time          `json:"date"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// ProductImage links one stored image path to a product.
type ProductImage struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	ImagePath string    `json:"image_path"`
	IsMain    bool      `json:"is_main"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a blog entry.
type Post struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	ShortDescription string     `json:"short_description"`
	LongDescription  string     `json:"long_description"`
	Image            string     `json:"image"`
	Date             *time.Time `json:"date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TextMode selects banner text contrast.
type TextMode string

const (
	TextModeLight TextMode = "light"
	TextModeDark  TextMode = "dark"
)

// ParseTextMode returns the banner text mode, defaulting to dark.
func ParseTextMode(raw string) (TextMode, error) {
	value := TextMode(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case "":
		return TextModeDark, nil
	case TextModeLight, TextModeDark:
		return value, nil
	default:
		return "", fmt.Errorf("invalid text_mode: %s", raw)
	}
}

// Banner is a homepage hero with desktop and mobile images.
type Banner struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	Image       string    `json:"image"`
	MobileImage string    `json:"mobile_image"`
	TextMode    TextMode  `json:"text_mode"`
	Active      bool      `json:"active"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MaxActiveBanners caps how many banners render at once.
const MaxActiveBanners = 2
