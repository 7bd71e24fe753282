package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/naveenspark/storefront/pkg/domain"
)

// DefaultBaseURL is the public shop API.
const DefaultBaseURL = "https://api.escuelajs.co/api/v1"

// Client is the shop API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. A client passed through
// WithHTTPClient is copied rather than changed.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit caps outgoing requests at perSecond with the given burst.
// A non-positive perSecond disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// WithToken returns a copy of c that authenticates as token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the bearer token the client sends, if any.
func (c *Client) Token() string {
	return c.token
}

// --- Auth ---

// AuthTokens is the response of the login endpoint.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthTokens, error) {
	var tokens AuthTokens
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/auth/login", body, &tokens); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("client.Login: empty access token")
	}
	return &tokens, nil
}

// Profile returns the account that owns token.
func (c *Client) Profile(ctx context.Context, token string) (*domain.User, error) {
	var u domain.User
	if err := c.c(token).get(ctx, "/auth/profile", &u); err != nil {
		return nil, fmt.Errorf("client.Profile: %w", err)
	}
	return &u, nil
}

// --- Users ---

// CreateUserRequest is the signup payload.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

// ListUsers returns all accounts. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.get(ctx, "/users", &users); err != nil {
		return nil, fmt.Errorf("client.ListUsers: %w", err)
	}
	return users, nil
}

// GetUser fetches a single account by ID.
func (c *Client) GetUser(ctx context.Context, id int) (*domain.User, error) {
	var u domain.User
	if err := c.get(ctx, "/users/"+strconv.Itoa(id), &u); err != nil {
		return nil, fmt.Errorf("client.GetUser: %w", err)
	}
	return &u, nil
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	var created domain.User
	if err := c.post(ctx, "/users", req, &created); err != nil {
		return nil, fmt.Errorf("client.CreateUser: %w", err)
	}
	return &created, nil
}

// UpdateUser applies a partial profile update, authorized by token.
func (c *Client) UpdateUser(ctx context.Context, token string, id int, upd domain.ProfileUpdate) (*domain.User, error) {
	var u domain.User
	if err := c.c(token).doRequest(ctx, http.MethodPut, "/users/"+strconv.Itoa(id), upd, &u); err != nil {
		return nil, fmt.Errorf("client.UpdateUser: %w", err)
	}
	return &u, nil
}

// IsEmailAvailable reports whether email can be used for a new account.
// The endpoint's isAvailable flag is true when an account already exists.
func (c *Client) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	var resp struct {
		Registered bool `json:"isAvailable"`
	}
	if err := c.post(ctx, "/users/is-available", map[string]string{"email": email}, &resp); err != nil {
		return false, fmt.Errorf("client.IsEmailAvailable: %w", err)
	}
	return !resp.Registered, nil
}

// --- Products ---

// ProductRequest is the payload for creating or updating a product.
// On update, empty fields are omitted and left unchanged; a nil Price
// leaves the price alone while a pointer to 0 sets it to zero.
type ProductRequest struct {
	Title       string   `json:"title,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Description string   `json:"description,omitempty"`
	CategoryID  int      `json:"categoryId,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// IsEmpty reports whether the request carries no field.
func (r ProductRequest) IsEmpty() bool {
	return r.Title == "" && r.Price == nil && r.Description == "" && r.CategoryID == 0 && len(r.Images) == 0
}

// ListProducts fetches one page of products matching filters.
func (c *Client) ListProducts(ctx context.Context, filters domain.ProductFilters, limit, offset int) ([]domain.Product, error) {
	params := url.Values{}
	filters.Apply(params)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var products []domain.Product
	if err := c.get(ctx, "/products?"+params.Encode(), &products); err != nil {
		return nil, fmt.Errorf("client.ListProducts: %w", err)
	}
	return products, nil
}

// GetProduct fetches a single product by ID.
func (c *Client) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	var p domain.Product
	if err := c.get(ctx, "/products/"+strconv.Itoa(id), &p); err != nil {
		return nil, fmt.Errorf("client.GetProduct: %w", err)
	}
	return &p, nil
}

// CreateProduct creates a new product.
func (c *Client) CreateProduct(ctx context.Context, req ProductRequest) (*domain.Product, error) {
	var created domain.Product
	if err := c.post(ctx, "/products", req, &created); err != nil {
		return nil, fmt.Errorf("client.CreateProduct: %w", err)
	}
	return &created, nil
}

// UpdateProduct applies a partial update to a product.
func (c *Client) UpdateProduct(ctx context.Context, id int, req ProductRequest) (*domain.Product, error) {
	var updated domain.Product
	if err := c.doRequest(ctx, http.MethodPut, "/products/"+strconv.Itoa(id), req, &updated); err != nil {
		return nil, fmt.Errorf("client.UpdateProduct: %w", err)
	}
	return &updated, nil
}

// DeleteProduct deletes a product.
func (c *Client) DeleteProduct(ctx context.Context, id int) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/products/"+strconv.Itoa(id), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteProduct: %w", err)
	}
	return nil
}

// --- Categories ---

// CategoryRequest is the payload for creating or updating a category.
type CategoryRequest struct {
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// ListCategories returns every category.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	if err := c.get(ctx, "/categories", &cats); err != nil {
		return nil, fmt.Errorf("client.ListCategories: %w", err)
	}
	return cats, nil
}

// GetCategory fetches a single category by ID.
func (c *Client) GetCategory(ctx context.Context, id int) (*domain.Category, error) {
	var cat domain.Category
	if err := c.get(ctx, "/categories/"+strconv.Itoa(id), &cat); err != nil {
		return nil, fmt.Errorf("client.GetCategory: %w", err)
	}
	return &cat, nil
}

// CreateCategory creates a new category.
func (c *Client) CreateCategory(ctx context.Context, req CategoryRequest) (*domain.Category, error) {
	var created domain.Category
	if err := c.post(ctx, "/categories", req, &created); err != nil {
		return nil, fmt.Errorf("client.CreateCategory: %w", err)
	}
	return &created, nil
}

// UpdateCategory applies a partial update to a category.
func (c *Client) UpdateCategory(ctx context.Context, id int, req CategoryRequest) (*domain.Category, error) {
	var updated domain.Category
	if err := c.doRequest(ctx, http.MethodPut, "/categories/"+strconv.Itoa(id), req, &updated); err != nil {
		return nil, fmt.Errorf("client.UpdateCategory: %w", err)
	}
	return &updated, nil
}

// DeleteCategory deletes a category.
func (c *Client) DeleteCategory(ctx context.Context, id int) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/categories/"+strconv.Itoa(id), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteCategory: %w", err)
	}
	return nil
}

// ListCategoryProducts returns the products of one category.
func (c *Client) ListCategoryProducts(ctx context.Context, id int) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.get(ctx, "/categories/"+strconv.Itoa(id)+"/products", &products); err != nil {
		return nil, fmt.Errorf("client.ListCategoryProducts: %w", err)
	}
	return products, nil
}

// c returns a client bound to token, or c itself when token is empty.
func (c *Client) c(token string) *Client {
	if token == "" {
		return c
	}
	return c.WithToken(token)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", reqID).Msg("request failed")
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", reqID).
		Msg("api request")

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorMessage pulls the human-readable part out of an API error body.
// The API answers with {"message": "..." | [...], "error": "..."}.
func errorMessage(body []byte) string {
	var apiErr struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) != nil {
		return strings.TrimSpace(string(body))
	}
	if len(apiErr.Message) > 0 {
		var msg string
		if json.Unmarshal(apiErr.Message, &msg) == nil && msg != "" {
			return msg
		}
		var msgs []string
		if json.Unmarshal(apiErr.Message, &msgs) == nil && len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	if apiErr.Error != "" {
		return apiErr.Error
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}
