package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/naveenspark/storefront/internal/catalog"
	"github.com/naveenspark/storefront/internal/sanitize"
	"github.com/naveenspark/storefront/internal/session"
	"github.com/naveenspark/storefront/pkg/client"
	"github.com/naveenspark/storefront/pkg/domain"
)

// API is the part of the storefront client the TUI drives.
type API interface {
	catalog.Source
	CreateProduct(ctx context.Context, req client.ProductRequest) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int, req client.ProductRequest) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateUser(ctx context.Context, req client.CreateUserRequest) (*domain.User, error)
	IsEmailAvailable(ctx context.Context, email string) (bool, error)
}

// Sessions is the session store as seen by the TUI.
type Sessions interface {
	Snapshot() session.Session
	Restore(ctx context.Context) (session.Session, error)
	LoginWithCredentials(ctx context.Context, email, password string) (session.Session, error)
	LoginWithDelegatedSession(ctx context.Context) (session.Session, error)
	UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (session.Session, error)
	Logout(ctx context.Context) session.Session
}

// DelegatedLogin runs an interactive identity provider sign-in.
type DelegatedLogin interface {
	Login(ctx context.Context) (*domain.DelegatedProfile, error)
}

// Options configures the TUI.
type Options struct {
	API      API
	Sessions Sessions
	// OAuth is nil when no identity provider is configured.
	OAuth    DelegatedLogin
	PageSize int
	Version  string
	// Releases is nil when update checks are off.
	Releases Releases
	Logger   zerolog.Logger
	// Copy writes to the system clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
}

type view int

const (
	viewProducts view = iota
	viewAccount
)

// App is the root Bubbletea model.
type App struct {
	version  string
	releases Releases
	logger   zerolog.Logger
	view     view
	products productsModel
	account  accountModel
	helpOpen bool
	update   string
	width    int
	height   int
	frame    int // logo shimmer animation frame
}

// NewApp creates a new TUI application.
func NewApp(opts Options) App {
	copyFn := opts.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	fetcher := catalog.NewFetcher(opts.API, opts.PageSize, catalog.WithLogger(opts.Logger))
	return App{
		version:  opts.Version,
		releases: opts.Releases,
		logger:   opts.Logger,
		products: newProductsModel(opts.API, fetcher, copyFn, opts.Logger),
		account:  newAccountModel(opts.Sessions, opts.API, opts.OAuth, opts.Logger),
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.products.Init(), a.account.restore(), shimmerTickCmd(), checkForUpdate(a.releases, a.version, a.logger))
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + tabs(1) + blank(1) + help(1) = 5 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 5}
		a.products, _ = a.products.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case updateAvailableMsg:
		if msg.tag != "" {
			a.update = msg.tag
		}
		return a, nil

	case pageLoadedMsg, categoriesLoadedMsg, productSavedMsg, productDeletedMsg, copyResultMsg:
		var cmd tea.Cmd
		a.products, cmd = a.products.Update(msg)
		return a, cmd

	case sessionMsg, emailCheckedMsg, signupFailedMsg:
		var cmd tea.Cmd
		a.account, cmd = a.account.Update(msg)
		return a, cmd

	case AuthURLMsg:
		a.view = viewAccount
		var cmd tea.Cmd
		a.account, cmd = a.account.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if a.helpOpen {
			switch msg.String() {
			case "?", "esc":
				a.helpOpen = false
			case "q", "ctrl+c":
				return a, tea.Quit
			}
			return a, nil
		}

		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		if !a.isEditing() {
			switch msg.String() {
			case "?":
				a.helpOpen = true
				return a, nil
			case "q":
				return a, tea.Quit
			case "1":
				a.view = viewProducts
				return a, nil
			case "2":
				a.view = viewAccount
				return a, nil
			}
		}

		var cmd tea.Cmd
		switch a.view {
		case viewProducts:
			a.products, cmd = a.products.Update(msg)
		case viewAccount:
			a.account, cmd = a.account.Update(msg)
		}
		return a, cmd
	}
	return a, nil
}

func (a App) isEditing() bool {
	switch a.view {
	case viewProducts:
		return a.products.editing()
	case viewAccount:
		return a.account.editing()
	}
	return false
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)

	var parts []string
	if id := a.account.sess.Identity; id != nil {
		who := sanitize.Line(id.Name, 30)
		if id.IsAdmin() {
			who += " " + adminStyle.Render("admin")
		}
		parts = append(parts, who)
	} else {
		parts = append(parts, "signed out")
	}
	if a.update != "" {
		parts = append(parts, accentStyle.Render(a.update+" available"))
	}
	statsLine := metaStyle.Render(strings.Join(parts, " . "))

	header := center(logo, a.width) + "\n" + center(statsLine, a.width)

	type tabEntry struct {
		key  string
		name string
		v    view
	}
	tabs := []tabEntry{
		{"1", "Products", viewProducts},
		{"2", "Profile", viewAccount},
	}
	colWidth := a.width / len(tabs)
	var tabBar strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		labelWidth := lipgloss.Width(label)
		leftPad := max((colWidth-labelWidth)/2, 0)
		rightPad := max(colWidth-labelWidth-leftPad, 0)
		tabBar.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}

	var body, help string
	switch a.view {
	case viewProducts:
		body = a.products.View()
		help = a.productsHelp()
	case viewAccount:
		body = a.account.View()
		help = " " + helpEntry("1-2", "tabs") + "  " + a.account.helpKeys()
	}

	if a.helpOpen {
		body = helpView()
		help = " " + helpEntry("esc", "close")
	}

	chrome := 5
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")

	return fmt.Sprintf("%s\n%s\n\n%s\n%s", header, tabBar.String(), body, help)
}

func (a App) productsHelp() string {
	switch a.products.mode {
	case modeSearch:
		return helpBar("enter", "apply", "esc", "cancel")
	case modeFilters:
		return helpBar("tab", "next", "h/l", "category", "ctrl+s", "apply", "esc", "cancel")
	case modeCreate, modeEdit:
		return helpBar("tab", "next", "h/l", "category", "ctrl+s", "save", "esc", "cancel")
	case modeConfirmDelete:
		return helpBar("y", "delete", "n", "keep")
	case modeDetail:
		return helpBar("c", "copy image", "e", "edit", "d", "delete", "esc", "back")
	}
	return helpBar("1-2", "tabs", "j/k", "nav", "h/l", "page", "/", "search", "f", "filter", "s", "size", "n", "new", "?", "help", "q", "quit")
}

func center(s string, width int) string {
	pad := max((width-lipgloss.Width(s))/2, 0)
	return strings.Repeat(" ", pad) + s
}
