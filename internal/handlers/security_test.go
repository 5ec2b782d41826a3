package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cromashop/croma/internal/config"
)

func newSecurityFixture() *Handlers {
	return &Handlers{
		config: &config.Config{BaseURL: "https://croma.example"},
		logger: slog.Default(),
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	h := newSecurityFixture()
	rec := httptest.NewRecorder()
	h.SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	want := map[string]string{
		"X-Content-Type-Options":     "nosniff",
		"X-Frame-Options":            "DENY",
		"Referrer-Policy":            "strict-origin-when-cross-origin",
		"Cross-Origin-Opener-Policy": "same-origin",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		origin      string
		wantStatus  int
		wantAllowed string
	}{
		{
			name:        "storefront origin is allowed",
			method:      http.MethodPost,
			origin:      "https://croma.example",
			wantStatus:  http.StatusOK,
			wantAllowed: "https://croma.example",
		},
		{
			name:        "origin match ignores case",
			method:      http.MethodPost,
			origin:      "https://CROMA.example",
			wantStatus:  http.StatusOK,
			wantAllowed: "https://CROMA.example",
		},
		{
			name:       "foreign origin gets no CORS headers",
			method:     http.MethodPost,
			origin:     "https://evil.example",
			wantStatus: http.StatusOK,
		},
		{
			name:        "preflight from storefront short-circuits",
			method:      http.MethodOptions,
			origin:      "https://croma.example",
			wantStatus:  http.StatusNoContent,
			wantAllowed: "https://croma.example",
		},
		{
			name:       "no origin header passes through untouched",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newSecurityFixture()
			req := httptest.NewRequest(tt.method, "/api/checkout", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.CORS(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowed {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllowed)
			}
		})
	}
}
