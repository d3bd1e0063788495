// Package api exposes the sensor service over HTTP.
package api

import (
	"log/slog"

	"envsensor/backend/internal/apicommon"
	"envsensor/backend/internal/services"
	"envsensor/backend/pkg/router"
)

const (
	CoreGroup      = "Core"
	ReadingsGroup  = "Readings"
	ScanGroup      = "Scan"
	SettingsGroup  = "Settings"
	DiagnoseGroup  = "Diagnostics"
	exampleDevice  = "C4:7F:51:0A:22:9E"
	exampleDevice2 = "D2:10:8B:44:01:7C"
)

type Handler struct {
	l   *slog.Logger
	svc *services.Services
}

func NewHandler(l *slog.Logger, svc *services.Services) *Handler {
	return &Handler{
		l:   l.With(slog.String("component", "api")),
		svc: svc,
	}
}

// RegisterRoutes mounts every endpoint under /api.
func (h *Handler) RegisterRoutes(rb *router.RouteBuilder, mw *apicommon.MiddlewareHandler) {
	rb.Route("/api", func(rb *router.RouteBuilder) {
		rb.Use(mw.RequestIDMiddleware)
		rb.Use(mw.LoggerMiddleware)
		rb.Use(mw.RecoveryMiddleware)

		h.RegisterPing("/ping", rb)
		h.RegisterHealth("/health", rb)

		rb.Route("/readings", func(rb *router.RouteBuilder) {
			h.RegisterGetReadings("/", rb)
			h.RegisterResetReadings("/", rb)
			h.RegisterStreamReadings("/stream", rb)
		})

		h.RegisterGetDevices("/devices", rb)

		rb.Route("/scan", func(rb *router.RouteBuilder) {
			h.RegisterGetScan("/", rb)
			h.RegisterStartScan("/start", rb)
			h.RegisterStopScan("/stop", rb)
			h.RegisterGetScanOnStart("/autostart", rb)
			h.RegisterPutScanOnStart("/autostart", rb)
		})

		rb.Route("/allowlist", func(rb *router.RouteBuilder) {
			h.RegisterGetAllowList("/", rb)
			h.RegisterAddAllowed("/", rb)
			h.RegisterClearAllowList("/", rb)
			h.RegisterRemoveAllowed("/{deviceID}", rb)
		})

		rb.Route("/discovery", func(rb *router.RouteBuilder) {
			h.RegisterGetDiscovery("/", rb)
			h.RegisterPutDiscovery("/", rb)
		})

		h.RegisterIngestAdvertisement("/advertisements", rb)
		h.RegisterDecode("/decode", rb)
		h.RegisterGetStats("/stats", rb)
	})
}
