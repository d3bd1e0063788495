// Package web serves the embedded dashboard.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed all:dashboard
var dashboardFS embed.FS

type Router interface {
	HandleFunc(pattern string, handler http.HandlerFunc)
	Mount(pattern string, handler http.Handler)
}

// DashboardApp serves the live readings dashboard under /ui/.
func DashboardApp() (*WebApp, error) {
	return NewWebApp("dashboard", dashboardFS, "dashboard", "/ui/")
}

type WebApp struct {
	name    string
	l       *slog.Logger
	fs      fs.FS
	urlBase string
}

func NewWebApp(name string, app fs.FS, subDir string, urlBase string) (*WebApp, error) {
	subFS, err := fs.Sub(app, subDir)
	if err != nil {
		return nil, err
	}

	return &WebApp{
		name:    name,
		fs:      subFS,
		urlBase: "/" + strings.Trim(urlBase, "/") + "/",
		l:       slog.Default().With(slog.String("component", name)),
	}, nil
}

func (wa *WebApp) URLBase() string {
	return wa.urlBase
}

func (wa *WebApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}

	for _, suffix := range []string{"", ".html", "/index.html"} {
		candidate := strings.TrimSuffix(path, "/") + suffix

		info, err := fs.Stat(wa.fs, candidate)
		if err != nil || info.IsDir() {
			continue
		}

		http.ServeFileFS(w, r, wa.fs, candidate)

		return
	}

	wa.l.Debug("File not found", slog.String("path", path))
	http.NotFound(w, r)
}

// Register mounts the app at its base URL. The base without a trailing slash redirects to it.
func (wa *WebApp) Register(mux Router, l *slog.Logger) {
	wa.l = l.With(slog.String("app", wa.name), slog.String("urlBase", wa.urlBase), slog.String("component", "file-server"))

	base := strings.TrimSuffix(wa.urlBase, "/")

	// Mount claims base as well, so the redirect must be registered after it.
	mux.Mount(base, http.StripPrefix(wa.urlBase, wa))
	mux.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, wa.urlBase, http.StatusMovedPermanently)
	})

	wa.l.Info("Registered web app")
}
