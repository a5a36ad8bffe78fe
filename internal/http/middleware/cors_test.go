package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"listed origin", []string{"https://clinic.example"}, "https://clinic.example", "https://clinic.example"},
		{"trailing slash in config", []string{"https://clinic.example/"}, "https://clinic.example", "https://clinic.example"},
		{"unknown origin", []string{"https://clinic.example"}, "https://evil.example", ""},
		{"wildcard", []string{"*"}, "http://localhost:3000", "http://localhost:3000"},
		{"no origin header", []string{"*"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(okHandler(&called)).ServeHTTP(rec, req)

			assert.True(t, called)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.want != "" {
				assert.Equal(t, corsAllowMethods, rec.Header().Get("Access-Control-Allow-Methods"))
				assert.Equal(t, "X-Request-ID", rec.Header().Get("Access-Control-Expose-Headers"))
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	mw := CORS([]string{"https://clinic.example"})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://clinic.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	mw(okHandler(&called)).ServeHTTP(rec, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	mw(okHandler(&called)).ServeHTTP(rec, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
