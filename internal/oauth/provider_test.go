package oauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/naveenspark/storefront/internal/kvstore"
	"github.com/naveenspark/storefront/pkg/domain"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
		wantErr    bool
	}{
		{"ok", "state=s1&code=abc", http.StatusOK, "abc", false},
		{"state mismatch", "state=evil&code=abc", http.StatusForbidden, "", true},
		{"missing code", "state=s1", http.StatusBadRequest, "", true},
		{"provider error", "state=s1&error=access_denied", http.StatusBadRequest, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codeCh := make(chan string, 1)
			errCh := make(chan error, 1)
			h := callbackHandler("s1", codeCh, errCh)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))
			require.Equal(t, tt.wantStatus, rec.Code)

			select {
			case code := <-codeCh:
				require.Equal(t, tt.wantCode, code)
			case err := <-errCh:
				require.True(t, tt.wantErr, "unexpected error: %v", err)
			default:
				t.Fatal("handler delivered nothing")
			}
		})
	}
}

func TestCallbackHandler_RepeatedHitsDoNotBlock(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	h := callbackHandler("s1", codeCh, errCh)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=abc", nil))
	}
	require.Equal(t, "abc", <-codeCh)
}

func seed(t *testing.T, store kvstore.Store, sess delegatedSession) {
	t.Helper()
	data, err := json.Marshal(sess)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), Namespace, DelegatedKey, data))
}

func TestCurrentSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	profile := domain.DelegatedProfile{Subject: "g-1", Name: "Ada", Email: "ada@example.com"}

	t.Run("none", func(t *testing.T) {
		p := New(Config{}, kvstore.NewFileStore(t.TempDir()), zerolog.Nop())
		_, err := p.CurrentSession(ctx)
		require.ErrorIs(t, err, domain.ErrNoDelegatedSession)
	})

	t.Run("valid", func(t *testing.T) {
		store := kvstore.NewFileStore(t.TempDir())
		seed(t, store, delegatedSession{Profile: profile, AccessToken: "at", Expiry: now.Add(time.Hour)})
		p := New(Config{}, store, zerolog.Nop())
		p.now = func() time.Time { return now }

		got, err := p.CurrentSession(ctx)
		require.NoError(t, err)
		require.Equal(t, profile, *got)
	})

	t.Run("expired without refresh token", func(t *testing.T) {
		store := kvstore.NewFileStore(t.TempDir())
		seed(t, store, delegatedSession{Profile: profile, AccessToken: "at", Expiry: now.Add(-time.Minute)})
		p := New(Config{}, store, zerolog.Nop())
		p.now = func() time.Time { return now }

		_, err := p.CurrentSession(ctx)
		require.ErrorIs(t, err, domain.ErrNoDelegatedSession)

		_, ok, err := store.Get(ctx, Namespace, DelegatedKey)
		require.NoError(t, err)
		require.False(t, ok, "expired session is dropped")
	})
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var revoked []string
	revoker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		revoked = append(revoked, r.PostForm.Get("token"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer revoker.Close()

	store := kvstore.NewFileStore(t.TempDir())
	seed(t, store, delegatedSession{Profile: domain.DelegatedProfile{Subject: "g-1"}, AccessToken: "at", RefreshToken: "rt"})
	p := New(Config{RevocationURL: revoker.URL}, store, zerolog.Nop())

	require.NoError(t, p.SignOut(ctx))
	require.Equal(t, []string{"rt"}, revoked)

	_, err := p.CurrentSession(ctx)
	require.ErrorIs(t, err, domain.ErrNoDelegatedSession)

	require.NoError(t, p.SignOut(ctx), "signing out twice is fine")
	require.Len(t, revoked, 1)
}

func TestSignOut_RevokeFailureStillForgets(t *testing.T) {
	ctx := context.Background()
	revoker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer revoker.Close()

	store := kvstore.NewFileStore(t.TempDir())
	seed(t, store, delegatedSession{AccessToken: "at"})
	p := New(Config{RevocationURL: revoker.URL}, store, zerolog.Nop())

	require.Error(t, p.SignOut(ctx))
	_, ok, err := store.Get(ctx, Namespace, DelegatedKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLogin_NotConfigured(t *testing.T) {
	p := New(Config{}, kvstore.NewFileStore(t.TempDir()), zerolog.Nop())
	require.False(t, p.Configured())
	_, err := p.Login(context.Background())
	require.Error(t, err)
}

// fakeIssuer is a minimal OpenID provider: discovery, JWKS and a token
// endpoint that requires a PKCE verifier.
type fakeIssuer struct {
	t   *testing.T
	srv *httptest.Server
	key *rsa.PrivateKey

	mu    sync.Mutex
	nonce string
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	fi := &fakeIssuer{t: t, key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"issuer":                                fi.srv.URL,
			"authorization_endpoint":                fi.srv.URL + "/authorize",
			"token_endpoint":                        fi.srv.URL + "/token",
			"jwks_uri":                              fi.srv.URL + "/jwks",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "k1",
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" || r.PostForm.Get("code_verifier") == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"}) //nolint:errcheck
			return
		}
		fi.mu.Lock()
		nonce := fi.nonce
		fi.mu.Unlock()

		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":     fi.srv.URL,
			"aud":     "client-1",
			"sub":     "g-42",
			"iat":     time.Now().Unix(),
			"exp":     time.Now().Add(time.Hour).Unix(),
			"nonce":   nonce,
			"name":    "Ada Lovelace",
			"email":   "ada@example.com",
			"picture": "https://example.com/ada.png",
		})
		tok.Header["kid"] = "k1"
		idToken, err := tok.SignedString(key)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"id_token":      idToken,
		})
	})
	fi.srv = httptest.NewServer(mux)
	t.Cleanup(fi.srv.Close)
	return fi
}

// opener plays the browser: it records the nonce and follows the redirect
// back to the callback with the given code.
func (fi *fakeIssuer) opener(code string) func(string) error {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		require.NoError(fi.t, err)
		q := u.Query()
		require.Equal(fi.t, "S256", q.Get("code_challenge_method"))
		require.NotEmpty(fi.t, q.Get("code_challenge"))

		fi.mu.Lock()
		fi.nonce = q.Get("nonce")
		fi.mu.Unlock()

		cb := q.Get("redirect_uri") + "?" + url.Values{"state": {q.Get("state")}, "code": {code}}.Encode()
		go func() {
			resp, err := http.Get(cb) //nolint:gosec,noctx
			if err == nil {
				resp.Body.Close() //nolint:errcheck
			}
		}()
		return nil
	}
}

func TestLogin_EndToEnd(t *testing.T) {
	fi := newFakeIssuer(t)
	store := kvstore.NewFileStore(t.TempDir())
	p := New(Config{Issuer: fi.srv.URL, ClientID: "client-1", LoginTimeout: 10 * time.Second},
		store, zerolog.Nop(), WithOpener(fi.opener("good-code")))

	profile, err := p.Login(context.Background())
	require.NoError(t, err)
	require.Equal(t, "g-42", profile.Subject)
	require.Equal(t, "Ada Lovelace", profile.Name)
	require.Equal(t, "https://example.com/ada.png", profile.AvatarURL)

	current, err := p.CurrentSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, *profile, *current)
}

func TestLogin_ExchangeRejected(t *testing.T) {
	fi := newFakeIssuer(t)
	p := New(Config{Issuer: fi.srv.URL, ClientID: "client-1", LoginTimeout: 10 * time.Second},
		kvstore.NewFileStore(t.TempDir()), zerolog.Nop(), WithOpener(fi.opener("bad-code")))

	_, err := p.Login(context.Background())
	require.Error(t, err)

	_, err = p.CurrentSession(context.Background())
	require.ErrorIs(t, err, domain.ErrNoDelegatedSession)
}

func TestLogin_Timeout(t *testing.T) {
	fi := newFakeIssuer(t)
	var prompted string
	p := New(Config{Issuer: fi.srv.URL, ClientID: "client-1", LoginTimeout: 50 * time.Millisecond},
		kvstore.NewFileStore(t.TempDir()), zerolog.Nop(),
		WithOpener(func(string) error { return errors.New("no browser") }),
		WithPrompt(func(u string) { prompted = u }))

	_, err := p.Login(context.Background())
	require.Error(t, err)
	require.Contains(t, prompted, fi.srv.URL+"/authorize")
}
