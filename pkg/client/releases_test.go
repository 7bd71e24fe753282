package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReleaseNewerThan(t *testing.T) {
	tests := []struct {
		latest  string
		current string
		want    bool
	}{
		{"1.0.1", "1.0.0", true},
		{"1.1.0", "1.0.9", true},
		{"2.0.0", "1.9.9", true},
		{"v0.5.0", "0.4.2", true},
		{"v1.2.0", "1.2.0-rc1", false},
		{"1.0.0", "1.0.0", false},
		{"0.4.2", "v0.5.0", false},
		{"v1", "1.0.0", false},
		{"abc", "def", false},
	}
	for _, tc := range tests {
		t.Run(tc.latest+"_vs_"+tc.current, func(t *testing.T) {
			if got := (Release{Tag: tc.latest}).NewerThan(tc.current); got != tc.want {
				t.Errorf("NewerThan(%q, %q) = %v, want %v", tc.latest, tc.current, got, tc.want)
			}
		})
	}
}

func TestReleaseVersion(t *testing.T) {
	for _, tag := range []string{"1.4.0", "v1.4.0"} {
		if got := (Release{Tag: tag}).Version(); got != "v1.4.0" {
			t.Errorf("Version(%q) = %q, want v1.4.0", tag, got)
		}
	}
}

func TestLatestRelease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/storefront/releases/latest" || r.Header.Get("X-Request-ID") == "" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"tag_name": "v0.5.0", "html_url": "https://example.com/r/0.5.0"}) //nolint:errcheck
	}))
	defer srv.Close()

	rel, err := New(srv.URL + "/repos/acme/storefront/releases/latest").LatestRelease(context.Background())
	if err != nil {
		t.Fatalf("LatestRelease() error: %v", err)
	}
	if rel.Tag != "v0.5.0" || rel.URL != "https://example.com/r/0.5.0" {
		t.Errorf("LatestRelease() = %+v", rel)
	}
}

func TestLatestRelease_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{}) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := New(srv.URL + "/missing").LatestRelease(context.Background())
	if !IsStatus(err, http.StatusNotFound) {
		t.Errorf("err = %v, want 404", err)
	}
	if _, err := New(srv.URL + "/untagged").LatestRelease(context.Background()); err == nil {
		t.Error("expected error for a release without a tag")
	}
}
