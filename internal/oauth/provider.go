// Package oauth signs the user in with an external OpenID Connect provider
// and keeps the resulting delegated session on disk.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/naveenspark/storefront/internal/browser"
	"github.com/naveenspark/storefront/internal/kvstore"
	"github.com/naveenspark/storefront/pkg/domain"
)

// Persisted state location.
const (
	Namespace    = "storefront"
	DelegatedKey = "delegated"
)

// DefaultLoginTimeout bounds how long Login waits for the browser callback.
const DefaultLoginTimeout = 2 * time.Minute

// Config describes the identity provider.
type Config struct {
	Issuer        string
	ClientID      string
	ClientSecret  string
	Scopes        []string
	RevocationURL string
	LoginTimeout  time.Duration
}

// delegatedSession is the persisted form of a signed-in provider session.
type delegatedSession struct {
	Profile      domain.DelegatedProfile `json:"profile"`
	AccessToken  string                  `json:"access_token"`
	RefreshToken string                  `json:"refresh_token,omitempty"`
	Expiry       time.Time               `json:"expiry"`
}

func (s delegatedSession) expired(now time.Time) bool {
	return !s.Expiry.IsZero() && !now.Before(s.Expiry)
}

// Provider owns the OAuth handshake and the delegated session.
type Provider struct {
	cfg        Config
	store      kvstore.Store
	open       browser.Opener
	prompt     func(authURL string)
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time

	mu       sync.Mutex
	provider *oidc.Provider
}

// Option configures a Provider.
type Option func(*Provider)

// WithOpener replaces the browser opener.
func WithOpener(open browser.Opener) Option {
	return func(p *Provider) { p.open = open }
}

// WithPrompt sets a fallback that shows the authorization URL when the
// browser cannot be opened.
func WithPrompt(prompt func(authURL string)) Option {
	return func(p *Provider) { p.prompt = prompt }
}

// WithHTTPClient sets the client used for discovery, exchange and revocation.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) { p.httpClient = hc }
}

// New creates a Provider persisting into store.
func New(cfg Config, store kvstore.Store, logger zerolog.Logger, opts ...Option) *Provider {
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = DefaultLoginTimeout
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	p := &Provider{
		cfg:        cfg,
		store:      store,
		open:       browser.Open,
		prompt:     func(string) {},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "oauth").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Configured reports whether an issuer and client ID are set.
func (p *Provider) Configured() bool {
	return p.cfg.Issuer != "" && p.cfg.ClientID != ""
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	return oidc.ClientContext(ctx, p.httpClient)
}

// discover fetches the provider's metadata once.
func (p *Provider) discover(ctx context.Context) (*oidc.Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.provider != nil {
		return p.provider, nil
	}
	initCtx, cancel := context.WithTimeout(p.clientContext(ctx), 30*time.Second)
	defer cancel()
	provider, err := oidc.NewProvider(initCtx, p.cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oauth: discover %s: %w", p.cfg.Issuer, err)
	}
	p.provider = provider
	return provider, nil
}

func (p *Provider) oauth2Config(provider *oidc.Provider, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       p.cfg.Scopes,
	}
}

// Login runs the authorization-code flow with PKCE through a localhost
// callback and persists the resulting session.
func (p *Provider) Login(ctx context.Context) (*domain.DelegatedProfile, error) {
	if !p.Configured() {
		return nil, errors.New("oauth: issuer and client id are not configured")
	}
	ctx = p.clientContext(ctx)
	provider, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("oauth: start callback listener: %w", err)
	}
	defer listener.Close() //nolint:errcheck

	port := listener.Addr().(*net.TCPAddr).Port
	conf := p.oauth2Config(provider, fmt.Sprintf("http://127.0.0.1:%d/callback", port))

	state := uuid.NewString()
	nonce := uuid.NewString()
	pkce := oauth2.GenerateVerifier()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, codeCh, errCh),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if srvErr := srv.Serve(listener); srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
			select {
			case errCh <- srvErr:
			default:
			}
		}
	}()
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx) //nolint:errcheck
	}()

	authURL := conf.AuthCodeURL(state,
		oidc.Nonce(nonce),
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(pkce),
	)
	if err := p.open(authURL); err != nil {
		p.logger.Warn().Err(err).Msg("open browser")
		p.prompt(authURL)
	}

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, fmt.Errorf("oauth: callback: %w", err)
	case <-time.After(p.cfg.LoginTimeout):
		return nil, fmt.Errorf("oauth: no callback received within %s", p.cfg.LoginTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(pkce))
	if err != nil {
		return nil, fmt.Errorf("oauth: exchange code: %w", err)
	}
	profile, err := p.verify(ctx, provider, tok, nonce)
	if err != nil {
		return nil, err
	}

	sess := delegatedSession{
		Profile:      *profile,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if err := p.save(ctx, sess); err != nil {
		return nil, err
	}
	p.logger.Info().Str("subject", profile.Subject).Msg("delegated sign-in complete")
	return profile, nil
}

// verify checks the ID token in tok and extracts the profile claims.
// An empty nonce skips the nonce check (refresh responses carry none).
func (p *Provider) verify(ctx context.Context, provider *oidc.Provider, tok *oauth2.Token, nonce string) (*domain.DelegatedProfile, error) {
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("oauth: token response has no id_token")
	}
	idToken, err := provider.Verifier(&oidc.Config{ClientID: p.cfg.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("oauth: verify id token: %w", err)
	}
	if nonce != "" && idToken.Nonce != nonce {
		return nil, errors.New("oauth: id token nonce mismatch")
	}

	var profile domain.DelegatedProfile
	if err := idToken.Claims(&profile); err != nil {
		return nil, fmt.Errorf("oauth: read claims: %w", err)
	}
	if profile.Subject == "" {
		profile.Subject = idToken.Subject
	}
	return &profile, nil
}

// CurrentSession returns the persisted delegated profile. An expired session
// is refreshed when a refresh token is available; otherwise it is dropped
// and domain.ErrNoDelegatedSession returned.
func (p *Provider) CurrentSession(ctx context.Context) (*domain.DelegatedProfile, error) {
	sess, ok, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNoDelegatedSession
	}
	if !sess.expired(p.now()) {
		profile := sess.Profile
		return &profile, nil
	}

	if sess.RefreshToken != "" && p.Configured() {
		refreshed, err := p.refresh(ctx, sess)
		if err == nil {
			return &refreshed.Profile, nil
		}
		p.logger.Warn().Err(err).Msg("refresh delegated session")
	}
	if err := p.store.Delete(ctx, Namespace, DelegatedKey); err != nil {
		p.logger.Warn().Err(err).Msg("drop expired delegated session")
	}
	return nil, domain.ErrNoDelegatedSession
}

func (p *Provider) refresh(ctx context.Context, sess delegatedSession) (delegatedSession, error) {
	ctx = p.clientContext(ctx)
	provider, err := p.discover(ctx)
	if err != nil {
		return sess, err
	}
	tok, err := p.oauth2Config(provider, "").TokenSource(ctx, &oauth2.Token{RefreshToken: sess.RefreshToken}).Token()
	if err != nil {
		return sess, fmt.Errorf("oauth: refresh token: %w", err)
	}
	sess.AccessToken = tok.AccessToken
	sess.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		sess.RefreshToken = tok.RefreshToken
	}
	if profile, err := p.verify(ctx, provider, tok, ""); err == nil {
		sess.Profile = *profile
	}
	if err := p.save(ctx, sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// SignOut revokes the provider token (best effort) and forgets the session.
func (p *Provider) SignOut(ctx context.Context) error {
	sess, ok, err := p.load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var revokeErr error
	if p.cfg.RevocationURL != "" {
		token := sess.RefreshToken
		if token == "" {
			token = sess.AccessToken
		}
		revokeErr = p.revoke(ctx, token)
	}
	if err := p.store.Delete(ctx, Namespace, DelegatedKey); err != nil {
		return errors.Join(revokeErr, fmt.Errorf("oauth: delete session: %w", err))
	}
	return revokeErr
}

func (p *Provider) revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.RevocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("oauth: revoke: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("oauth: revoke: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		return fmt.Errorf("oauth: revoke: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (p *Provider) load(ctx context.Context) (delegatedSession, bool, error) {
	data, ok, err := p.store.Get(ctx, Namespace, DelegatedKey)
	if err != nil {
		return delegatedSession{}, false, fmt.Errorf("oauth: load session: %w", err)
	}
	if !ok {
		return delegatedSession{}, false, nil
	}
	var sess delegatedSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return delegatedSession{}, false, fmt.Errorf("oauth: decode session: %w", err)
	}
	return sess, true, nil
}

func (p *Provider) save(ctx context.Context, sess delegatedSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("oauth: encode session: %w", err)
	}
	if err := p.store.Set(ctx, Namespace, DelegatedKey, data); err != nil {
		return fmt.Errorf("oauth: save session: %w", err)
	}
	return nil
}
