package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vovakirdan/supportchat-server/internal/config"
)

func TestOriginPolicy(t *testing.T) {
	cases := []struct {
		name       string
		patterns   []string
		production bool
		origin     string
		want       bool
	}{
		{name: "dev localhost", production: false, origin: "http://localhost:5173", want: true},
		{name: "dev loopback ip", production: false, origin: "http://127.0.0.1:3000", want: true},
		{name: "dev empty list allows all", production: false, origin: "https://anything.example", want: true},
		{name: "prod localhost needs listing", patterns: []string{"support.example.com"}, production: true, origin: "http://localhost:5173", want: false},
		{name: "host pattern", patterns: []string{"support.example.com"}, production: true, origin: "https://support.example.com", want: true},
		{name: "wildcard host pattern", patterns: []string{"*.example.com"}, production: true, origin: "https://admin.example.com", want: true},
		{name: "scheme pattern", patterns: []string{"https://support.example.com"}, production: true, origin: "http://support.example.com", want: false},
		{name: "case insensitive", patterns: []string{"Support.Example.com"}, production: true, origin: "https://support.example.COM", want: true},
		{name: "unlisted", patterns: []string{"support.example.com"}, production: false, origin: "https://evil.example", want: false},
		{name: "garbage", patterns: []string{"support.example.com"}, production: false, origin: "::not a url", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := originPolicy(tc.patterns, tc.production)(tc.origin); got != tc.want {
				t.Fatalf("origin %q: expected %v, got %v", tc.origin, tc.want, got)
			}
		})
	}
}

func TestCORSOnRESTRoutes(t *testing.T) {
	s := startTestServer(t, func(cfg *config.Config) {
		cfg.AllowedOrigins = []string{"https://support.example.com"}
	})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		s.ts.Config.Handler.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("https://support.example.com")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://support.example.com" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}

	rec = preflight("https://evil.example")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unlisted origin, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin header, got %q", got)
	}

	// Requests without an Origin header are not subject to CORS.
	expectStatus(t, s.request(http.MethodGet, "/health", "", nil), http.StatusOK)
}
