package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestDashboardApp(t *testing.T) {
	t.Parallel()

	app, err := DashboardApp()
	if err != nil {
		t.Fatalf("DashboardApp() error = %v", err)
	}

	r := chi.NewRouter()
	app.Register(r, slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{path: "/ui/", wantCode: http.StatusOK, wantBody: "EventSource"},
		{path: "/ui/index", wantCode: http.StatusOK, wantBody: "EventSource"},
		{path: "/ui", wantCode: http.StatusMovedPermanently},
		{path: "/ui/missing.js", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

		if rec.Code != tt.wantCode {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
		}

		if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
			t.Errorf("GET %s body does not contain %q", tt.path, tt.wantBody)
		}
	}
}
