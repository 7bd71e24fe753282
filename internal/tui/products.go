package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/naveenspark/storefront/internal/catalog"
	"github.com/naveenspark/storefront/internal/config"
	"github.com/naveenspark/storefront/internal/sanitize"
	"github.com/naveenspark/storefront/pkg/client"
	"github.com/naveenspark/storefront/pkg/domain"
)

type productsMode int

const (
	modeList productsMode = iota
	modeDetail
	modeSearch
	modeFilters
	modeCreate
	modeEdit
	modeConfirmDelete
)

type pageLoadedMsg struct {
	req   catalog.Request
	items []domain.Product
	err   error
}

type categoriesLoadedMsg struct {
	categories []domain.Category
	err        error
}

type productSavedMsg struct {
	product *domain.Product
	created bool
	err     error
}

type productDeletedMsg struct {
	id  int
	err error
}

type copyResultMsg struct {
	err error
}

type productsModel struct {
	api        API
	fetcher    *catalog.Fetcher
	copyFn     func(string) error
	logger     zerolog.Logger
	mode       productsMode
	cursor     int
	search     string
	form       form
	categories []domain.Category
	status     string
	statusErr  bool
	busy       bool
	width      int
	height     int
}

func newProductsModel(api API, fetcher *catalog.Fetcher, copyFn func(string) error, logger zerolog.Logger) productsModel {
	return productsModel{api: api, fetcher: fetcher, copyFn: copyFn, logger: logger}
}

func (m productsModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.loadCategories())
}

// fetch issues a read for the fetcher's current query. Its result is applied
// only if no newer read was issued meanwhile.
func (m productsModel) fetch() tea.Cmd {
	req := m.fetcher.Begin()
	api := m.api
	return func() tea.Msg {
		items, err := api.ListProducts(context.Background(), req.Query.Filters, req.Query.Limit, req.Query.Offset)
		return pageLoadedMsg{req: req, items: items, err: err}
	}
}

func (m productsModel) loadCategories() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		cats, err := api.ListCategories(context.Background())
		return categoriesLoadedMsg{categories: cats, err: err}
	}
}

// editing reports whether keys should bypass global bindings.
func (m productsModel) editing() bool {
	switch m.mode {
	case modeSearch, modeFilters, modeCreate, modeEdit:
		return true
	}
	return false
}

func (m productsModel) selected() (domain.Product, bool) {
	items := m.fetcher.State().Items
	if m.cursor < 0 || m.cursor >= len(items) {
		return domain.Product{}, false
	}
	return items[m.cursor], true
}

func (m *productsModel) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m productsModel) Update(msg tea.Msg) (productsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case pageLoadedMsg:
		if m.fetcher.Complete(msg.req, msg.items, msg.err) {
			n := len(m.fetcher.State().Items)
			if m.cursor >= n {
				m.cursor = max(n-1, 0)
			}
		}
		return m, nil

	case categoriesLoadedMsg:
		if msg.err != nil {
			m.logger.Warn().Err(msg.err).Msg("load categories")
			return m, nil
		}
		m.categories = msg.categories
		return m, nil

	case productSavedMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus(client.MessageOf(msg.err), true)
			return m, nil
		}
		verb := "updated"
		if msg.created {
			verb = "created"
		}
		m.setStatus(fmt.Sprintf("product %d %s", msg.product.ID, verb), false)
		m.mode = modeList
		return m, m.fetch()

	case productDeletedMsg:
		m.busy = false
		m.mode = modeList
		if msg.err != nil {
			m.setStatus(client.MessageOf(msg.err), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("product %d deleted", msg.id), false)
		return m, m.fetch()

	case copyResultMsg:
		if msg.err != nil {
			m.setStatus("copy failed: "+msg.err.Error(), true)
		} else {
			m.setStatus("image URL copied", false)
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m productsModel) updateKeys(msg tea.KeyMsg) (productsModel, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		return m.updateSearch(msg)
	case modeFilters:
		return m.updateFilters(msg)
	case modeCreate, modeEdit:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	case modeDetail:
		switch msg.String() {
		case "esc", "backspace":
			m.mode = modeList
			return m, nil
		case "c", "e", "d":
			return m.updateList(msg)
		}
		return m, nil
	}
	return m.updateList(msg)
}

func (m productsModel) updateList(msg tea.KeyMsg) (productsModel, tea.Cmd) {
	st := m.fetcher.State()
	m.status = ""

	switch msg.String() {
	case "j", "down":
		if m.cursor < len(st.Items)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if len(st.Items) > 0 {
			m.mode = modeDetail
		}
	case "l", "right":
		if m.fetcher.NextPage() {
			m.cursor = 0
			return m, m.fetch()
		}
	case "h", "left":
		if m.fetcher.PreviousPage() {
			m.cursor = 0
			return m, m.fetch()
		}
	case "s":
		next := nextPageSize(st.Limit)
		if err := m.fetcher.SetPageSize(next); err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.cursor = 0
		return m, m.fetch()
	case "r":
		return m, m.fetch()
	case "/":
		m.mode = modeSearch
		m.search = st.Filters.Title
	case "f":
		m.mode = modeFilters
		m.form = newFilterForm(m.categories, st.Filters)
	case "x":
		if !st.Filters.IsZero() {
			m.fetcher.ResetFilters()
			m.cursor = 0
			return m, m.fetch()
		}
	case "n":
		if len(m.categories) == 0 {
			return m, m.loadCategories()
		}
		m.mode = modeCreate
		m.form = newProductForm(m.categories, nil)
	case "e":
		if p, ok := m.selected(); ok {
			m.mode = modeEdit
			m.form = newProductForm(m.categories, &p)
		}
	case "d":
		if _, ok := m.selected(); ok {
			m.mode = modeConfirmDelete
		}
	case "c":
		if p, ok := m.selected(); ok {
			url := p.Cover()
			copyFn := m.copyFn
			return m, func() tea.Msg {
				return copyResultMsg{err: copyFn(url)}
			}
		}
	}
	return m, nil
}

func (m productsModel) updateSearch(msg tea.KeyMsg) (productsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		return m, nil
	case "enter":
		m.mode = modeList
		filters := m.fetcher.State().Filters
		filters.Title = strings.TrimSpace(m.search)
		m.fetcher.SetFilters(filters)
		m.cursor = 0
		return m, m.fetch()
	}
	m.search = editText(m.search, msg)
	return m, nil
}

func (m productsModel) updateFilters(msg tea.KeyMsg) (productsModel, tea.Cmd) {
	if msg.String() == "esc" {
		m.mode = modeList
		m.status = ""
		return m, nil
	}
	if m.form.update(msg) != formSubmit {
		return m, nil
	}
	filters, err := filtersFrom(m.form, m.fetcher.State().Filters)
	if err != nil {
		m.setStatus(err.Error(), true)
		return m, nil
	}
	m.mode = modeList
	m.status = ""
	m.fetcher.SetFilters(filters)
	m.cursor = 0
	return m, m.fetch()
}

func (m productsModel) updateForm(msg tea.KeyMsg) (productsModel, tea.Cmd) {
	if msg.String() == "esc" {
		m.mode = modeList
		m.status = ""
		return m, nil
	}
	if m.form.update(msg) != formSubmit || m.busy {
		return m, nil
	}

	var orig *domain.Product
	if m.mode == modeEdit {
		p, ok := m.selected()
		if !ok {
			m.mode = modeList
			return m, nil
		}
		orig = &p
	}
	req, err := productRequest(m.form, orig)
	if err != nil {
		m.setStatus(domain.MessageOf(err), true)
		return m, nil
	}

	m.busy = true
	m.status = ""
	api := m.api
	if orig == nil {
		return m, func() tea.Msg {
			p, err := api.CreateProduct(context.Background(), req)
			return productSavedMsg{product: p, created: true, err: err}
		}
	}
	id := orig.ID
	return m, func() tea.Msg {
		p, err := api.UpdateProduct(context.Background(), id, req)
		return productSavedMsg{product: p, err: err}
	}
}

func (m productsModel) updateConfirm(msg tea.KeyMsg) (productsModel, tea.Cmd) {
	switch msg.String() {
	case "y":
		p, ok := m.selected()
		if !ok || m.busy {
			m.mode = modeList
			return m, nil
		}
		m.busy = true
		api := m.api
		return m, func() tea.Msg {
			return productDeletedMsg{id: p.ID, err: api.DeleteProduct(context.Background(), p.ID)}
		}
	case "n", "esc":
		m.mode = modeList
	}
	return m, nil
}

func nextPageSize(cur int) int {
	for i, n := range config.PageSizes {
		if n == cur {
			return config.PageSizes[(i+1)%len(config.PageSizes)]
		}
	}
	return config.PageSizes[0]
}

func (m productsModel) View() string {
	st := m.fetcher.State()
	var b strings.Builder

	b.WriteString(m.summaryLine(st) + "\n\n")

	switch m.mode {
	case modeSearch:
		if m.search == "" {
			b.WriteString("  " + inputPromptStyle.Render("/ ") + accentStyle.Render("▏") + inputPlaceholderStyle.Render("title contains...") + "\n\n")
		} else {
			b.WriteString("  " + inputPromptStyle.Render("/ ") + normalStyle.Render(m.search) + accentStyle.Render("▏") + "\n\n")
		}
	case modeFilters:
		b.WriteString(sectionHeaderStyle.Render("  FILTERS") + "\n\n" + m.form.View() + "\n")
		b.WriteString(m.statusLine())
		return b.String()
	case modeCreate, modeEdit:
		title := "  NEW PRODUCT"
		if m.mode == modeEdit {
			title = "  EDIT PRODUCT"
		}
		b.WriteString(sectionHeaderStyle.Render(title) + "\n\n" + m.form.View() + "\n")
		if m.busy {
			b.WriteString(dimStyle.Render("  saving...") + "\n")
		}
		b.WriteString(m.statusLine())
		return b.String()
	case modeDetail:
		if p, ok := m.selected(); ok {
			b.WriteString(productDetail(p))
		}
		b.WriteString(m.statusLine())
		return b.String()
	}

	if st.Err != nil {
		b.WriteString("  " + errorStyle.Render(domain.MessageOf(st.Err)) + "\n\n")
	}
	if len(st.Items) == 0 {
		if st.Loading {
			b.WriteString(dimStyle.Render("  loading...") + "\n")
		} else if st.Err == nil {
			b.WriteString(dimStyle.Render("  no products match") + "\n")
		}
	}

	titleWidth := max(m.width-40, 20)
	for i, p := range st.Items {
		line := fmt.Sprintf("%-5d %s  %s  %s",
			p.ID,
			padRight(sanitize.Line(p.Title, titleWidth), titleWidth),
			priceStyle.Render(padRight(formatPrice(p.Price), 10)),
			categoryStyle.Render(sanitize.Line(p.CategoryName(), 18)))
		if i == m.cursor {
			b.WriteString(selectedRowBg.Render(" "+accentStyle.Render("▸")+" "+selectedStyle.Render(line)) + "\n")
		} else {
			b.WriteString("   " + normalStyle.Render(line) + "\n")
		}
	}

	if m.mode == modeConfirmDelete {
		if p, ok := m.selected(); ok {
			b.WriteString("\n  " + errorStyle.Render(fmt.Sprintf("delete %q? ", sanitize.Line(p.Title, 40))) + helpEntry("y", "yes") + "  " + helpEntry("n", "no") + "\n")
		}
	}
	b.WriteString(m.statusLine())
	return b.String()
}

func (m productsModel) summaryLine(st catalog.State) string {
	parts := []string{fmt.Sprintf("page %d", st.Page), fmt.Sprintf("%d per page", st.Limit)}
	if st.Loading {
		parts = append(parts, "loading")
	}
	f := st.Filters
	if f.Title != "" {
		parts = append(parts, fmt.Sprintf("title %q", sanitize.Line(f.Title, 30)))
	}
	if f.PriceMin != nil {
		parts = append(parts, "min "+formatPrice(*f.PriceMin))
	}
	if f.PriceMax != nil {
		parts = append(parts, "max "+formatPrice(*f.PriceMax))
	}
	if f.CategoryID != 0 {
		name := fmt.Sprintf("#%d", f.CategoryID)
		for _, c := range m.categories {
			if c.ID == f.CategoryID {
				name = sanitize.Line(c.Name, 20)
			}
		}
		parts = append(parts, "category "+name)
	}
	nav := ""
	if st.HasPrevious {
		nav += "‹ "
	}
	if st.HasMore {
		nav += "›"
	}
	return "  " + metaStyle.Render(strings.Join(parts, " . ")) + "  " + accentStyle.Render(nav)
}

func (m productsModel) statusLine() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return "\n  " + errorStyle.Render(m.status) + "\n"
	}
	return "\n  " + successStyle.Render(m.status) + "\n"
}

func productDetail(p domain.Product) string {
	var b strings.Builder
	b.WriteString("  " + selectedStyle.Render(sanitize.Line(p.Title, 80)) + "  " + priceStyle.Render(formatPrice(p.Price)) + "\n")
	meta := []string{fmt.Sprintf("#%d", p.ID)}
	if name := p.CategoryName(); name != "" {
		meta = append(meta, categoryStyle.Render(sanitize.Line(name, 30)))
	}
	if !p.UpdatedAt.IsZero() {
		meta = append(meta, "updated "+formatTime(p.UpdatedAt))
	}
	b.WriteString("  " + metaStyle.Render(strings.Join(meta, " . ")) + "\n\n")
	for _, line := range wrap(sanitize.Text(p.Description), 76) {
		b.WriteString("  " + normalStyle.Render(line) + "\n")
	}
	b.WriteString("\n" + sectionHeaderStyle.Render("  IMAGES") + "\n")
	images := p.Images
	if len(images) == 0 {
		images = []string{p.Cover()}
	}
	for _, u := range images {
		b.WriteString("  " + dimStyle.Render(sanitize.Line(u, 100)) + "\n")
	}
	return b.String()
}

// wrap breaks s into lines of at most width runes on word boundaries.
func wrap(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		if len([]rune(cur))+1+len([]rune(w)) > width {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur += " " + w
	}
	return append(lines, cur)
}
