package tui

import (
	"errors"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/storefront/internal/sanitize"
	"github.com/naveenspark/storefront/pkg/client"
	"github.com/naveenspark/storefront/pkg/domain"
)

// choice is one option of a cycling field.
type choice struct {
	label string
	id    int
}

type formField struct {
	label   string
	value   string
	secret  bool
	choices []choice
	choice  int
}

func (f formField) selected() (choice, bool) {
	if len(f.choices) == 0 {
		return choice{}, false
	}
	return f.choices[f.choice], true
}

// form is a vertical list of inputs. Text fields take typed and pasted
// runes; choice fields cycle with left/right or h/l.
type form struct {
	fields []formField
	focus  int
}

type formEvent int

const (
	formNone formEvent = iota
	formSubmit
)

func newForm(fields ...formField) form {
	return form{fields: fields}
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.fields[i].value)
}

func (f *form) update(msg tea.KeyMsg) formEvent {
	field := &f.fields[f.focus]
	switch msg.String() {
	case "ctrl+s":
		return formSubmit
	case "enter":
		if f.focus == len(f.fields)-1 {
			return formSubmit
		}
		f.focus++
	case "tab", "down":
		f.focus = (f.focus + 1) % len(f.fields)
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + len(f.fields)) % len(f.fields)
	case "left", "right", "h", "l":
		if len(field.choices) > 0 {
			step := 1
			if k := msg.String(); k == "left" || k == "h" {
				step = -1
			}
			field.choice = (field.choice + step + len(field.choices)) % len(field.choices)
			return formNone
		}
		field.value = editText(field.value, msg)
	default:
		if len(field.choices) == 0 {
			field.value = editText(field.value, msg)
		}
	}
	return formNone
}

func (f form) View() string {
	var b strings.Builder
	width := 0
	for _, fl := range f.fields {
		if n := len(fl.label); n > width {
			width = n
		}
	}
	for i, fl := range f.fields {
		label := padRight(fl.label, width)
		var val string
		switch {
		case len(fl.choices) > 0:
			c, _ := fl.selected()
			val = "‹ " + sanitize.Line(c.label, 40) + " ›"
		case fl.secret:
			val = strings.Repeat("•", len([]rune(fl.value)))
		default:
			val = truncStr(fl.value, 72)
		}
		if i == f.focus {
			b.WriteString("  " + inputPromptStyle.Render("> ") + selectedStyle.Render(label) + "  " + normalStyle.Render(val) + accentStyle.Render("▏") + "\n")
		} else {
			b.WriteString("    " + dimStyle.Render(label) + "  " + normalStyle.Render(val) + "\n")
		}
	}
	return b.String()
}

// Product form field indexes.
const (
	pfTitle = iota
	pfPrice
	pfDescription
	pfCategory
	pfImages
)

var errNothingChanged = errors.New("One or more fields need to be changed.") //nolint:staticcheck // shown verbatim

// newProductForm builds the create or edit form. orig is nil when creating.
func newProductForm(categories []domain.Category, orig *domain.Product) form {
	choices := make([]choice, 0, len(categories))
	sel := 0
	for i, c := range categories {
		choices = append(choices, choice{label: c.Name, id: c.ID})
		if orig != nil && orig.Category != nil && orig.Category.ID == c.ID {
			sel = i
		}
	}
	f := newForm(
		formField{label: "Title"},
		formField{label: "Price"},
		formField{label: "Description"},
		formField{label: "Category", choices: choices, choice: sel},
		formField{label: "Images"},
	)
	if orig != nil {
		f.fields[pfTitle].value = orig.Title
		f.fields[pfPrice].value = strconv.FormatFloat(orig.Price, 'f', -1, 64)
		f.fields[pfDescription].value = orig.Description
		f.fields[pfImages].value = strings.Join(orig.Images, ", ")
	}
	return f
}

// productRequest validates the form. When orig is set only changed fields
// are carried, and an unchanged form is rejected.
func productRequest(f form, orig *domain.Product) (client.ProductRequest, error) {
	var req client.ProductRequest

	title := f.value(pfTitle)
	desc := f.value(pfDescription)
	priceText := f.value(pfPrice)
	cat, hasCat := f.fields[pfCategory].selected()

	var images []string
	for _, raw := range splitList(f.value(pfImages)) {
		u, err := domain.ParseImage(raw)
		if err != nil {
			return req, err
		}
		images = append(images, u)
	}

	var price float64
	if priceText != "" {
		p, err := strconv.ParseFloat(priceText, 64)
		if err != nil || p < 0 || (orig == nil && p == 0) {
			return req, errors.New("Price must be a positive number.") //nolint:staticcheck // shown verbatim
		}
		price = p
	}

	if orig == nil {
		if title == "" || priceText == "" || desc == "" || len(images) == 0 {
			return req, errors.New("All fields are required.") //nolint:staticcheck // shown verbatim
		}
		if !hasCat {
			return req, errors.New("No categories available.") //nolint:staticcheck // shown verbatim
		}
		return client.ProductRequest{
			Title:       title,
			Price:       domain.Price(price),
			Description: desc,
			CategoryID:  cat.id,
			Images:      images,
		}, nil
	}

	if title != "" && title != orig.Title {
		req.Title = title
	}
	if priceText != "" && price != orig.Price {
		req.Price = domain.Price(price)
	}
	if desc != "" && desc != orig.Description {
		req.Description = desc
	}
	if hasCat && (orig.Category == nil || cat.id != orig.Category.ID) {
		req.CategoryID = cat.id
	}
	if len(images) > 0 && strings.Join(images, ",") != strings.Join(orig.Images, ",") {
		req.Images = images
	}
	if req.IsEmpty() {
		return req, errNothingChanged
	}
	return req, nil
}

// Filter form field indexes.
const (
	ffPriceMin = iota
	ffPriceMax
	ffCategory
)

func newFilterForm(categories []domain.Category, cur domain.ProductFilters) form {
	choices := []choice{{label: "Any"}}
	sel := 0
	for _, c := range categories {
		if c.ID == cur.CategoryID {
			sel = len(choices)
		}
		choices = append(choices, choice{label: c.Name, id: c.ID})
	}
	f := newForm(
		formField{label: "Min price"},
		formField{label: "Max price"},
		formField{label: "Category", choices: choices, choice: sel},
	)
	if cur.PriceMin != nil {
		f.fields[ffPriceMin].value = strconv.FormatFloat(*cur.PriceMin, 'f', -1, 64)
	}
	if cur.PriceMax != nil {
		f.fields[ffPriceMax].value = strconv.FormatFloat(*cur.PriceMax, 'f', -1, 64)
	}
	return f
}

// filtersFrom merges the filter form into base, keeping base's title.
func filtersFrom(f form, base domain.ProductFilters) (domain.ProductFilters, error) {
	lo, err := parseOptionalFloat(f.value(ffPriceMin))
	if err != nil {
		return base, err
	}
	hi, err := parseOptionalFloat(f.value(ffPriceMax))
	if err != nil {
		return base, err
	}
	if lo != nil && hi != nil && *lo > *hi {
		return base, errors.New("Min price is above max price.") //nolint:staticcheck // shown verbatim
	}
	out := domain.ProductFilters{Title: base.Title, PriceMin: lo, PriceMax: hi}
	if c, ok := f.fields[ffCategory].selected(); ok {
		out.CategoryID = c.id
	}
	return out, nil
}
