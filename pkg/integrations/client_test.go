package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/cache"
)

func TestNewClient(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()

	headers := map[string]string{"User-Agent": "pypigraph-test"}
	client := NewClient(c, "test:", time.Hour, headers)

	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.cache != c {
		t.Error("NewClient() cache not set correctly")
	}
	if client.headers["User-Agent"] != "pypigraph-test" {
		t.Error("NewClient() headers not set correctly")
	}
}

func TestNewClientNilCache(t *testing.T) {
	client := NewClient(nil, "test:", time.Hour, nil)
	if _, ok := client.cache.(*cache.NullCache); !ok {
		t.Errorf("nil cache should become NullCache, got %T", client.cache)
	}
}

func TestClientGet(t *testing.T) {
	type response struct {
		Message string `json:"message"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(response{Message: "hello"})
	}))
	defer server.Close()

	client := NewClient(nil, "test:", time.Hour, nil)
	client.SetHTTPClient(server.Client())

	var resp response
	if err := client.Get(context.Background(), server.URL, &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("Get() message = %q, want %q", resp.Message, "hello")
	}
}

func TestClientGetWithHeadersOverridesDefaults(t *testing.T) {
	var got, def string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Accept")
		def = r.Header.Get("X-Default")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(nil, "test:", time.Hour, map[string]string{
		"Accept":    "application/json",
		"X-Default": "kept",
	})
	client.SetHTTPClient(server.Client())

	var resp map[string]string
	err := client.GetWithHeaders(context.Background(), server.URL,
		map[string]string{"Accept": "application/vnd.pypi.simple.v1+json"}, &resp)
	if err != nil {
		t.Fatalf("GetWithHeaders() error: %v", err)
	}
	if got != "application/vnd.pypi.simple.v1+json" {
		t.Errorf("Accept = %q", got)
	}
	if def != "kept" {
		t.Errorf("X-Default = %q, want kept", def)
	}
}

func TestClientGetText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text response"))
	}))
	defer server.Close()

	client := NewClient(nil, "test:", time.Hour, nil)
	client.SetHTTPClient(server.Client())

	text, err := client.GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetText() error: %v", err)
	}
	if text != "plain text response" {
		t.Errorf("GetText() = %q", text)
	}
}

func TestClientGetStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		retryable bool
	}{
		{"not found", http.StatusNotFound, ErrNotFound, false},
		{"server error", http.StatusBadGateway, ErrNetwork, true},
		{"rate limited", http.StatusTooManyRequests, ErrNetwork, true},
		{"forbidden", http.StatusForbidden, ErrNetwork, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(nil, "test:", time.Hour, nil)
			client.SetHTTPClient(server.Client())

			var resp map[string]string
			err := client.Get(context.Background(), server.URL, &resp)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Get() error = %v, want %v", err, tt.wantErr)
			}
			if cache.IsRetryable(err) != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", cache.IsRetryable(err), tt.retryable)
			}
		})
	}
}

func TestClientGetBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	defer server.Close()

	client := NewClient(nil, "test:", time.Hour, nil)
	client.SetHTTPClient(server.Client())

	var resp map[string]string
	if err := client.Get(context.Background(), server.URL, &resp); err == nil {
		t.Error("Get() should fail on undecodable body")
	}
}

func TestClientCached(t *testing.T) {
	c := cache.NewMemoryCache()
	client := NewClient(c, "test:", time.Hour, nil)
	ctx := context.Background()

	var fetches int
	fetch := func(v *string) func() error {
		return func() error {
			fetches++
			*v = "fetched"
			return nil
		}
	}

	var first string
	if err := client.Cached(ctx, "key", false, &first, fetch(&first)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}

	var second string
	if err := client.Cached(ctx, "key", false, &second, fetch(&second)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if fetches != 1 {
		t.Errorf("fetch count = %d, want 1", fetches)
	}
	if second != "fetched" {
		t.Errorf("cached value = %q", second)
	}
	if _, ok, _ := c.Get(ctx, "test:key"); !ok {
		t.Error("entry not stored under prefixed key")
	}

	var third string
	if err := client.Cached(ctx, "key", true, &third, fetch(&third)); err != nil {
		t.Fatalf("Cached(refresh) error: %v", err)
	}
	if fetches != 2 {
		t.Errorf("refresh should bypass cache, fetch count = %d", fetches)
	}
}

func TestClientCachedFetchError(t *testing.T) {
	c := cache.NewMemoryCache()
	client := NewClient(c, "test:", time.Hour, nil)

	var v string
	err := client.Cached(context.Background(), "key", false, &v, func() error {
		return ErrNotFound
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Cached() error = %v, want ErrNotFound", err)
	}
	if c.Len() != 0 {
		t.Error("failed fetch should not be cached")
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("retry backoff takes about a second")
	}
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":"yes"}`))
	}))
	defer server.Close()

	client := NewClient(nil, "test:", 0, nil)
	client.SetHTTPClient(server.Client())

	var resp map[string]string
	err := client.Cached(context.Background(), "retry", true, &resp, func() error {
		return client.Get(context.Background(), server.URL, &resp)
	})
	if err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if calls.Load() != 2 || resp["ok"] != "yes" {
		t.Errorf("calls = %d, resp = %v", calls.Load(), resp)
	}
}

func TestNormalizePkgName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Django", "django"},
		{"Flask_App", "flask-app"},
		{"Foo_Bar.Baz", "foo-bar-baz"},
		{"foo-bar-baz", "foo-bar-baz"},
		{"zope.interface", "zope-interface"},
		{"a--_..b", "a-b"},
		{"-leading_", "-leading-"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizePkgName(tt.input); got != tt.want {
				t.Errorf("NormalizePkgName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePkgNameProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z0-9._-]{0,24}`).Draw(t, "name")
		once := NormalizePkgName(name)

		if NormalizePkgName(once) != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", name, once, NormalizePkgName(once))
		}
		if NormalizePkgName(swapSeparators(name)) != once {
			t.Fatalf("separator-sensitive: %q", name)
		}
		if strings.ContainsAny(once, "_.") || strings.Contains(once, "--") {
			t.Fatalf("separator run survived in %q", once)
		}
	})
}

// swapSeparators replaces each separator with another one and flips case.
func swapSeparators(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch {
		case r == '-':
			out[i] = '.'
		case r == '.':
			out[i] = '_'
		case r == '_':
			out[i] = '-'
		case r >= 'a' && r <= 'z':
			out[i] = r - 'a' + 'A'
		}
	}
	return string(out)
}
