// Package router wraps chi so every route is registered together with its documentation.
package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"envsensor/backend/pkg/generate"
	"envsensor/backend/pkg/utils"
)

type ParameterIn string

const (
	ParameterInPath   ParameterIn = "path"
	ParameterInQuery  ParameterIn = "query"
	ParameterInHeader ParameterIn = "header"
)

type ParameterSpec struct {
	In          ParameterIn
	Description string
	Required    bool
	Type        any
}

type RequestBodySpec struct {
	Type     any
	Examples map[string]any
}

type ResponseSpec struct {
	Description string
	// ContentType defaults to application/json.
	ContentType string
	Type        any
	Examples    map[string]any
}

type RouteSpec struct {
	OperationID string
	Summary     string
	Description string
	Group       string
	Deprecated  string
	RequestType *RequestBodySpec
	Parameters  map[string]ParameterSpec
	Responses   map[int]ResponseSpec
	Handler     http.HandlerFunc

	method   string
	fullPath string
}

// RouteBuilder registers routes on a chi router under a path prefix.
type RouteBuilder struct {
	router    chi.Router
	collector generate.HTTPMetadataCollector
	l         *slog.Logger
	prefix    string
}

func NewRouteBuilder(l *slog.Logger, collector generate.HTTPMetadataCollector) (*RouteBuilder, error) {
	if collector == nil {
		return nil, fmt.Errorf("collector is required")
	}

	return &RouteBuilder{
		router:    chi.NewRouter(),
		collector: collector,
		l:         l.With(slog.String("component", "route-builder")),
	}, nil
}

// Router returns the underlying chi router.
func (rb *RouteBuilder) Router() chi.Router {
	return rb.router
}

// Route mounts a sub-router at pattern. Middlewares added inside fn only apply to it.
func (rb *RouteBuilder) Route(pattern string, fn func(rb *RouteBuilder)) {
	rb.router.Route(pattern, func(r chi.Router) {
		fn(&RouteBuilder{
			router:    r,
			collector: rb.collector,
			l:         rb.l,
			prefix:    generate.SanitizePath(rb.prefix + pattern),
		})
	})
}

func (rb *RouteBuilder) Use(middlewares ...func(http.Handler) http.Handler) {
	rb.router.Use(middlewares...)
}

func (rb *RouteBuilder) Get(path string, spec RouteSpec) error {
	return rb.register(http.MethodGet, path, spec)
}

func (rb *RouteBuilder) Post(path string, spec RouteSpec) error {
	return rb.register(http.MethodPost, path, spec)
}

func (rb *RouteBuilder) Put(path string, spec RouteSpec) error {
	return rb.register(http.MethodPut, path, spec)
}

func (rb *RouteBuilder) Delete(path string, spec RouteSpec) error {
	return rb.register(http.MethodDelete, path, spec)
}

func (rb *RouteBuilder) MustGet(path string, spec RouteSpec) {
	rb.must(http.MethodGet, path, spec)
}

func (rb *RouteBuilder) MustPost(path string, spec RouteSpec) {
	rb.must(http.MethodPost, path, spec)
}

func (rb *RouteBuilder) MustPut(path string, spec RouteSpec) {
	rb.must(http.MethodPut, path, spec)
}

func (rb *RouteBuilder) MustDelete(path string, spec RouteSpec) {
	rb.must(http.MethodDelete, path, spec)
}

func (rb *RouteBuilder) must(method, path string, spec RouteSpec) {
	if err := rb.register(method, path, spec); err != nil {
		rb.l.Error("Failed to register route", slog.String("method", method), slog.String("path", path), slog.String("operationID", spec.OperationID), utils.ErrAttr(err))
		os.Exit(1)
	}
}

func (rb *RouteBuilder) register(method, path string, spec RouteSpec) error {
	spec.method = method
	spec.fullPath = generate.SanitizePath(rb.prefix + "/" + path)

	if err := validateRouteSpec(spec); err != nil {
		return fmt.Errorf("invalid route spec for %s %s: %w", method, spec.fullPath, err)
	}

	params, err := generateParameters(spec)
	if err != nil {
		return err
	}

	route := &generate.RouteInfo{
		OperationID: spec.OperationID,
		Method:      method,
		Path:        spec.fullPath,
		Summary:     spec.Summary,
		Description: spec.Description,
		Group:       spec.Group,
		Deprecated:  spec.Deprecated,
		Parameters:  params,
		Responses:   make(map[int]generate.ResponseInfo, len(spec.Responses)),
	}

	if spec.RequestType != nil {
		route.Request = &generate.RequestInfo{TypeValue: spec.RequestType.Type, Examples: spec.RequestType.Examples}
	}

	for code, resp := range spec.Responses {
		route.Responses[code] = generate.ResponseInfo{
			Description: resp.Description,
			ContentType: resp.ContentType,
			TypeValue:   resp.Type,
			Examples:    resp.Examples,
		}
	}

	if err := rb.collector.RegisterRoute(route); err != nil {
		return fmt.Errorf("failed to register route %s with collector: %w", spec.OperationID, err)
	}

	rb.router.Method(method, generate.SanitizePath("/"+path), spec.Handler)

	rb.l.Debug("Registered route", slog.String("method", method), slog.String("path", spec.fullPath), slog.String("operationID", spec.OperationID))

	return nil
}
