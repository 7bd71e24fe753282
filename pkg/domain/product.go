package domain

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"
)

// PlaceholderImage replaces any image value that is not a usable http(s) URL.
const PlaceholderImage = "/default-product.png"

// Product is a catalog entry as served by the shop API.
type Product struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug,omitempty"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Category    *Category `json:"category,omitempty"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"creationAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UnmarshalJSON decodes a product and normalizes its image list so every
// entry is either a valid http(s) URL or PlaceholderImage.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Product(raw)
	p.Images = ResolveImages(p.Images)
	return nil
}

// Cover returns the first image, or the placeholder when the product has none.
func (p Product) Cover() string {
	if len(p.Images) == 0 {
		return PlaceholderImage
	}
	return p.Images[0]
}

// CategoryName returns the category name or "" when the product is uncategorized.
func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// Category groups products.
type Category struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"creationAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductFilters constrains a product listing. Zero values mean unconstrained.
type ProductFilters struct {
	Title      string
	PriceMin   *float64
	PriceMax   *float64
	CategoryID int
}

// IsZero reports whether no filter is set.
func (f ProductFilters) IsZero() bool {
	return f.Title == "" && f.PriceMin == nil && f.PriceMax == nil && f.CategoryID == 0
}

// Apply writes the active filters into params using the API's parameter names.
func (f ProductFilters) Apply(params url.Values) {
	if f.Title != "" {
		params.Set("title", f.Title)
	}
	if f.PriceMin != nil {
		params.Set("price_min", formatPrice(*f.PriceMin))
	}
	if f.PriceMax != nil {
		params.Set("price_max", formatPrice(*f.PriceMax))
	}
	if f.CategoryID != 0 {
		params.Set("categoryId", strconv.Itoa(f.CategoryID))
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Price returns a pointer to v, for filter and update payload literals.
func Price(v float64) *float64 {
	return &v
}

// ResolveImages maps ResolveImage over raw.
func ResolveImages(raw []string) []string {
	if raw == nil {
		return nil
	}
	out := make([]string, len(raw))
	for i, img := range raw {
		out[i] = ResolveImage(img)
	}
	return out
}

// ResolveImage returns the usable URL held by raw, or PlaceholderImage.
// Never fails.
func ResolveImage(raw string) string {
	u, err := ParseImage(raw)
	if err != nil {
		return PlaceholderImage
	}
	return u
}

// ParseImage extracts an image URL from raw. The API sometimes stores a
// JSON-encoded array inside the string; its first element is used then.
// The result must carry an http or https scheme.
func ParseImage(raw string) (string, error) {
	candidate := raw
	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err == nil && len(urls) > 0 {
		candidate = urls[0]
	}
	if !isHTTPURL(candidate) {
		return "", &Error{Kind: KindMalformedImageData, Message: "image is not an http(s) URL: " + raw}
	}
	return candidate, nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
