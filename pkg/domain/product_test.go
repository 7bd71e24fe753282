package domain

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"
)

func TestResolveImage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain https", "https://example.com/a.png", "https://example.com/a.png"},
		{"plain http", "http://example.com/a.png", "http://example.com/a.png"},
		{"json array in string", `["https://i.imgur.com/x.jpeg"]`, "https://i.imgur.com/x.jpeg"},
		{"json array with non-url", `["not-a-url"]`, PlaceholderImage},
		{"json array empty", `[]`, PlaceholderImage},
		{"broken json fragment", `["https://i.imgur.com/x.jpeg"`, PlaceholderImage},
		{"relative path", "/img/a.png", PlaceholderImage},
		{"ftp scheme", "ftp://example.com/a.png", PlaceholderImage},
		{"empty", "", PlaceholderImage},
		{"garbage", "::::", PlaceholderImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveImage(tt.raw); got != tt.want {
				t.Errorf("ResolveImage(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseImage_MalformedKind(t *testing.T) {
	_, err := ParseImage(`["not-a-url"]`)
	if err == nil {
		t.Fatal("expected error for non-url image")
	}
	if !errors.Is(err, ErrMalformedImageData) {
		t.Errorf("error = %v, want MalformedImageData kind", err)
	}
}

func TestProductUnmarshalNormalizesImages(t *testing.T) {
	payload := `{
		"id": 7,
		"title": "Classic Tee",
		"price": 25,
		"description": "soft",
		"category": {"id": 1, "name": "Clothes"},
		"images": ["[\"https://i.imgur.com/a.jpeg\"", "https://i.imgur.com/b.jpeg", "[\"nope\"]"]
	}`

	var p Product
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	want := []string{PlaceholderImage, "https://i.imgur.com/b.jpeg", PlaceholderImage}
	if len(p.Images) != len(want) {
		t.Fatalf("got %d images, want %d", len(p.Images), len(want))
	}
	for i := range want {
		if p.Images[i] != want[i] {
			t.Errorf("Images[%d] = %q, want %q", i, p.Images[i], want[i])
		}
	}
	if p.CategoryName() != "Clothes" {
		t.Errorf("CategoryName() = %q, want %q", p.CategoryName(), "Clothes")
	}
}

func TestProductCover(t *testing.T) {
	if got := (Product{}).Cover(); got != PlaceholderImage {
		t.Errorf("Cover() on empty product = %q, want placeholder", got)
	}
	p := Product{Images: []string{"https://example.com/1.png", "https://example.com/2.png"}}
	if got := p.Cover(); got != "https://example.com/1.png" {
		t.Errorf("Cover() = %q, want first image", got)
	}
}

func TestProductFiltersApply(t *testing.T) {
	tests := []struct {
		name    string
		filters ProductFilters
		want    map[string]string
	}{
		{"empty", ProductFilters{}, map[string]string{}},
		{"title only", ProductFilters{Title: "shoe"}, map[string]string{"title": "shoe"}},
		{
			"all fields",
			ProductFilters{Title: "x", PriceMin: Price(10), PriceMax: Price(99.5), CategoryID: 3},
			map[string]string{"title": "x", "price_min": "10", "price_max": "99.5", "categoryId": "3"},
		},
		{"zero min price is still a bound", ProductFilters{PriceMin: Price(0)}, map[string]string{"price_min": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := url.Values{}
			tt.filters.Apply(params)
			if len(params) != len(tt.want) {
				t.Fatalf("got %d params (%v), want %d", len(params), params, len(tt.want))
			}
			for k, v := range tt.want {
				if got := params.Get(k); got != v {
					t.Errorf("param %s = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestProductFiltersIsZero(t *testing.T) {
	if !(ProductFilters{}).IsZero() {
		t.Error("empty filters should be zero")
	}
	if (ProductFilters{CategoryID: 1}).IsZero() {
		t.Error("filters with category should not be zero")
	}
}
