// Package catalog pages through the remote product collection.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/naveenspark/storefront/pkg/domain"
)

// DefaultPageSize is used when NewFetcher gets a limit below 1.
const DefaultPageSize = 10

const msgFetchFailed = "Failed to load products."

// Source lists one page of products.
type Source interface {
	ListProducts(ctx context.Context, filters domain.ProductFilters, limit, offset int) ([]domain.Product, error)
}

// Query is the remote read the fetcher would issue next.
type Query struct {
	Offset  int
	Limit   int
	Filters domain.ProductFilters
}

// Page is the result of one fetch. HasMore is inferred from a full page;
// the API exposes no total count.
type Page struct {
	Items   []domain.Product
	HasMore bool
}

// Request is an issued fetch awaiting its result.
type Request struct {
	Generation uint64
	Query      Query
}

// State is a snapshot for rendering.
type State struct {
	Items       []domain.Product
	HasMore     bool
	HasPrevious bool
	Page        int
	Offset      int
	Limit       int
	Filters     domain.ProductFilters
	Err         error
	Loading     bool
}

// Fetcher tracks filters and paging position and applies only the result of
// the most recently issued request.
type Fetcher struct {
	src    Source
	logger zerolog.Logger

	mu      sync.Mutex
	query   Query
	page    int
	items   []domain.Product
	hasMore bool
	err     error
	gen     uint64
	loading bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the fetcher's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) { f.logger = l.With().Str("component", "catalog").Logger() }
}

// NewFetcher returns a fetcher at the first page with no filters.
func NewFetcher(src Source, limit int, opts ...Option) *Fetcher {
	if limit < 1 {
		limit = DefaultPageSize
	}
	f := &Fetcher{
		src:    src,
		logger: zerolog.Nop(),
		query:  Query{Limit: limit},
		page:   1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetFilters replaces the filters and returns to the first page.
func (f *Fetcher) SetFilters(filters domain.ProductFilters) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query.Filters = filters
	f.rewind()
}

// ResetFilters clears every filter and returns to the first page.
func (f *Fetcher) ResetFilters() {
	f.SetFilters(domain.ProductFilters{})
}

// SetPageSize changes the page size and returns to the first page.
func (f *Fetcher) SetPageSize(n int) error {
	if n < 1 {
		return fmt.Errorf("catalog: page size must be at least 1, got %d", n)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query.Limit = n
	f.rewind()
	return nil
}

// NextPage advances one page if the last fetch filled a whole page.
// It reports whether the position changed.
func (f *Fetcher) NextPage() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasMore {
		return false
	}
	f.query.Offset += f.query.Limit
	f.page++
	f.moved()
	return true
}

// PreviousPage moves back one page. At the first page it does nothing.
func (f *Fetcher) PreviousPage() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.query.Offset-f.query.Limit < 0 {
		return false
	}
	f.query.Offset -= f.query.Limit
	f.page--
	f.moved()
	return true
}

// rewind resets the position to the first page. Callers hold mu.
func (f *Fetcher) rewind() {
	f.query.Offset = 0
	f.page = 1
	f.moved()
}

// moved invalidates knowledge tied to the old position: the hasMore signal
// and any request issued for it. Callers hold mu.
func (f *Fetcher) moved() {
	f.hasMore = false
	f.gen++
	f.loading = false
}

// Query returns the query the next fetch will issue.
func (f *Fetcher) Query() Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query
}

// Begin issues a request for the current query. Any request issued earlier
// becomes stale.
func (f *Fetcher) Begin() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.loading = true
	return Request{Generation: f.gen, Query: f.query}
}

// Complete applies the result of req if req is still the latest request.
// A failure keeps the displayed items and records a FetchFailed error.
// It reports whether the result was applied.
func (f *Fetcher) Complete(req Request, items []domain.Product, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Generation != f.gen {
		f.logger.Debug().Uint64("generation", req.Generation).Uint64("latest", f.gen).Msg("discarding stale page")
		return false
	}
	f.loading = false
	if err != nil {
		f.err = domain.NewError(domain.KindFetchFailed, msgFetchFailed, err)
		f.logger.Warn().Err(err).Int("offset", req.Query.Offset).Int("limit", req.Query.Limit).Msg("fetch products")
		return true
	}
	if items == nil {
		items = []domain.Product{}
	}
	f.items = items
	f.hasMore = len(items) == req.Query.Limit
	f.err = nil
	return true
}

// Fetch issues exactly one remote read for the current query and applies it
// unless a newer request was issued meanwhile.
func (f *Fetcher) Fetch(ctx context.Context) (Page, error) {
	req := f.Begin()
	items, err := f.src.ListProducts(ctx, req.Query.Filters, req.Query.Limit, req.Query.Offset)
	if !f.Complete(req, items, err) {
		return Page{}, fmt.Errorf("catalog.Fetch: %w", domain.ErrSuperseded)
	}

	st := f.State()
	if st.Err != nil {
		return Page{Items: st.Items, HasMore: st.HasMore}, fmt.Errorf("catalog.Fetch: %w", st.Err)
	}
	return Page{Items: st.Items, HasMore: st.HasMore}, nil
}

// State returns a snapshot of the fetcher.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]domain.Product, len(f.items))
	copy(items, f.items)
	return State{
		Items:       items,
		HasMore:     f.hasMore,
		HasPrevious: f.query.Offset-f.query.Limit >= 0,
		Page:        f.page,
		Offset:      f.query.Offset,
		Limit:       f.query.Limit,
		Filters:     f.query.Filters,
		Err:         f.err,
		Loading:     f.loading,
	}
}
