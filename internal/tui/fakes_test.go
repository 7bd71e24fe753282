package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/naveenspark/storefront/internal/session"
	"github.com/naveenspark/storefront/pkg/client"
	"github.com/naveenspark/storefront/pkg/domain"
)

type listCall struct {
	filters domain.ProductFilters
	limit   int
	offset  int
}

// fakeAPI implements API and session.API against in-memory data.
type fakeAPI struct {
	mu         sync.Mutex
	products   []domain.Product
	categories []domain.Category
	lists      []listCall
	created    []client.ProductRequest
	updated    map[int]client.ProductRequest
	deleted    []int
	users      []client.CreateUserRequest
	taken      map[string]bool
	password   string
	user       domain.User
	listErr    error
}

func newFakeAPI(n int) *fakeAPI {
	f := &fakeAPI{
		categories: []domain.Category{{ID: 1, Name: "Clothes"}, {ID: 2, Name: "Shoes"}},
		updated:    map[int]client.ProductRequest{},
		taken:      map[string]bool{"taken@mail.com": true},
		password:   "changeme",
		user:       domain.User{ID: 7, Name: "Maria", Email: "maria@mail.com", Role: "customer"},
	}
	for i := 1; i <= n; i++ {
		f.products = append(f.products, domain.Product{
			ID:       i,
			Title:    fmt.Sprintf("Product %d", i),
			Price:    float64(i * 10),
			Category: &f.categories[0],
			Images:   []string{fmt.Sprintf("https://i.imgur.com/p%d.jpeg", i)},
		})
	}
	return f
}

func (f *fakeAPI) ListProducts(_ context.Context, filters domain.ProductFilters, limit, offset int) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, listCall{filters: filters, limit: limit, offset: offset})
	if f.listErr != nil {
		return nil, f.listErr
	}
	if offset >= len(f.products) {
		return []domain.Product{}, nil
	}
	end := min(offset+limit, len(f.products))
	return append([]domain.Product(nil), f.products[offset:end]...), nil
}

func (f *fakeAPI) lastList() listCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists[len(f.lists)-1]
}

func (f *fakeAPI) CreateProduct(_ context.Context, req client.ProductRequest) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return &domain.Product{ID: 100, Title: req.Title, Price: *req.Price}, nil
}

func (f *fakeAPI) UpdateProduct(_ context.Context, id int, req client.ProductRequest) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[id] = req
	return &domain.Product{ID: id, Title: req.Title}, nil
}

func (f *fakeAPI) DeleteProduct(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) ListCategories(context.Context) ([]domain.Category, error) {
	return f.categories, nil
}

func (f *fakeAPI) CreateUser(_ context.Context, req client.CreateUserRequest) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, req)
	f.user = domain.User{ID: 8, Name: req.Name, Email: req.Email, Avatar: req.Avatar}
	f.password = req.Password
	return &f.user, nil
}

func (f *fakeAPI) IsEmailAvailable(_ context.Context, email string) (bool, error) {
	return !f.taken[email], nil
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (*client.AuthTokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if email != f.user.Email || password != f.password {
		return nil, &client.HTTPError{StatusCode: 401, Message: "Unauthorized"}
	}
	return &client.AuthTokens{AccessToken: "tok", RefreshToken: "ref"}, nil
}

func (f *fakeAPI) Profile(_ context.Context, token string) (*domain.User, error) {
	if token != "tok" {
		return nil, &client.HTTPError{StatusCode: 401}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.user
	return &u, nil
}

func (f *fakeAPI) UpdateUser(_ context.Context, _ string, _ int, upd domain.ProfileUpdate) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if upd.Name != nil {
		f.user.Name = *upd.Name
	}
	if upd.Email != nil {
		f.user.Email = *upd.Email
	}
	u := f.user
	return &u, nil
}

type fakeOAuth struct {
	err error
}

func (o fakeOAuth) Login(context.Context) (*domain.DelegatedProfile, error) {
	if o.err != nil {
		return nil, o.err
	}
	return &domain.DelegatedProfile{Subject: "sub-1", Name: "Dana", Email: "dana@example.com"}, nil
}

type fakeDelegated struct{}

func (fakeDelegated) CurrentSession(context.Context) (*domain.DelegatedProfile, error) {
	return &domain.DelegatedProfile{Subject: "sub-1", Name: "Dana", Email: "dana@example.com"}, nil
}

func (fakeDelegated) SignOut(context.Context) error { return nil }

var errNoClipboard = errors.New("no clipboard")

func newTestApp(api *fakeAPI) App {
	store := session.New(api, fakeDelegated{}, nil, zerolog.Nop())
	return NewApp(Options{
		API:      api,
		Sessions: store,
		OAuth:    fakeOAuth{},
		PageSize: 10,
		Version:  "dev",
		Logger:   zerolog.Nop(),
		Copy:     func(string) error { return errNoClipboard },
	})
}
