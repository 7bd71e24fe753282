package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/storefront/pkg/domain"
)

func TestFormNavigation(t *testing.T) {
	f := newForm(formField{label: "A"}, formField{label: "B"}, formField{label: "C", choices: []choice{{"x", 1}, {"y", 2}}})

	f.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	if f.fields[0].value != "hi" {
		t.Fatalf("value = %q", f.fields[0].value)
	}
	f.update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if f.focus != 2 {
		t.Fatalf("shift+tab from first should wrap to last, got %d", f.focus)
	}
	f.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")})
	if c, _ := f.fields[2].selected(); c.id != 2 {
		t.Errorf("h should cycle backwards to y, got %+v", c)
	}
	f.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("z")})
	if f.fields[2].value != "" {
		t.Error("choice fields take no text")
	}
	if ev := f.update(tea.KeyMsg{Type: tea.KeyEnter}); ev != formSubmit {
		t.Error("enter on the last field should submit")
	}
	f.focus = 0
	if ev := f.update(tea.KeyMsg{Type: tea.KeyEnter}); ev != formNone || f.focus != 1 {
		t.Errorf("enter should advance, focus=%d", f.focus)
	}
	f.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	if f.fields[1].value != "l" {
		t.Error("h and l are text in text fields")
	}
}

func TestFormMasksSecrets(t *testing.T) {
	f := newForm(formField{label: "Password", secret: true, value: "hunter2"})
	if v := f.View(); strings.Contains(v, "hunter2") {
		t.Errorf("secret leaked: %q", v)
	}
}

func TestProductRequestCreate(t *testing.T) {
	cats := []domain.Category{{ID: 3, Name: "Toys"}}
	f := newProductForm(cats, nil)
	f.fields[pfTitle].value = "Ball"
	f.fields[pfPrice].value = "0"
	f.fields[pfDescription].value = "Round"
	f.fields[pfImages].value = "https://i.imgur.com/a.png, https://i.imgur.com/b.png"

	if _, err := productRequest(f, nil); err == nil {
		t.Fatal("expected error for zero price")
	}
	f.fields[pfPrice].value = "4.5"
	req, err := productRequest(f, nil)
	if err != nil {
		t.Fatalf("productRequest: %v", err)
	}
	if req.CategoryID != 3 || req.Price == nil || *req.Price != 4.5 || len(req.Images) != 2 {
		t.Errorf("req = %+v", req)
	}

	if _, err := productRequest(newProductForm(nil, nil), nil); err == nil {
		t.Error("expected error for empty form")
	}
}

func TestProductRequestEditZeroPrice(t *testing.T) {
	cats := []domain.Category{{ID: 1, Name: "A"}}
	orig := &domain.Product{ID: 9, Title: "Mug", Price: 8, Description: "Blue", Category: &cats[0]}

	f := newProductForm(cats, orig)
	f.fields[pfPrice].value = "0"
	req, err := productRequest(f, orig)
	if err != nil {
		t.Fatalf("productRequest: %v", err)
	}
	if req.Price == nil || *req.Price != 0 {
		t.Errorf("expected price set to 0, got %+v", req)
	}

	f.fields[pfPrice].value = "-1"
	if _, err := productRequest(f, orig); err == nil {
		t.Error("expected error for negative price")
	}
}

func TestProductRequestEdit(t *testing.T) {
	cats := []domain.Category{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	orig := &domain.Product{ID: 9, Title: "Mug", Price: 8, Description: "Blue", Category: &cats[0], Images: []string{"https://i.imgur.com/m.png"}}

	f := newProductForm(cats, orig)
	if _, err := productRequest(f, orig); !errors.Is(err, errNothingChanged) {
		t.Fatalf("expected errNothingChanged, got %v", err)
	}

	f.fields[pfCategory].choice = 1
	f.fields[pfTitle].value = ""
	req, err := productRequest(f, orig)
	if err != nil {
		t.Fatalf("productRequest: %v", err)
	}
	if req.CategoryID != 2 || req.Title != "" || req.Price != nil || req.Images != nil {
		t.Errorf("expected category only, got %+v", req)
	}
}

func TestFiltersFromKeepsTitle(t *testing.T) {
	cats := []domain.Category{{ID: 5, Name: "Shoes"}}
	base := domain.ProductFilters{Title: "run", CategoryID: 5}
	f := newFilterForm(cats, base)
	if c, _ := f.fields[ffCategory].selected(); c.id != 5 {
		t.Fatalf("filter form should preselect the active category, got %+v", c)
	}
	f.fields[ffPriceMin].value = "5"

	got, err := filtersFrom(f, base)
	if err != nil {
		t.Fatalf("filtersFrom: %v", err)
	}
	if got.Title != "run" || got.CategoryID != 5 || got.PriceMin == nil || *got.PriceMin != 5 || got.PriceMax != nil {
		t.Errorf("filters = %+v", got)
	}

	f.fields[ffPriceMax].value = "abc"
	if _, err := filtersFrom(f, base); err == nil {
		t.Error("expected error for bad amount")
	}
}
