package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mqttbroker "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"

	"envsensor/backend/internal/api"
	"envsensor/backend/internal/apicommon"
	"envsensor/backend/internal/config"
	mqttapi "envsensor/backend/internal/mqtt"
	"envsensor/backend/internal/services"
	"envsensor/backend/internal/session"
	"envsensor/backend/internal/settings"
	"envsensor/backend/internal/shared/helpers"
	"envsensor/backend/pkg/generate"
	"envsensor/backend/pkg/mqtt"
	"envsensor/backend/pkg/router"
	"envsensor/backend/pkg/utils"
	"envsensor/web"
)

func main() {
	sigCtx, sigCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer sigCancel()

	cfg, err := config.New()
	if err != nil {
		fatalIfErr(slog.Default(), fmt.Errorf("failed to create config: %w", err))
	}

	defer utils.LogOnError(slog.Default(), cfg.Close, "failed to close config")

	logger := helpers.GetLogger(cfg)

	collector, err := getCollector(cfg, logger)
	fatalIfErr(logger, err)

	// Settings persistence is only needed at runtime
	var store services.SettingsStore

	if !cfg.Generate {
		fatalIfErr(logger, helpers.RunMigrations(logger, cfg))

		db, err := helpers.OpenDatabase(sigCtx, cfg)
		fatalIfErr(logger, err)

		defer utils.LogOnError(logger, db.Close, "failed to close database")

		store = settings.New(logger, db)
	}

	sess, err := session.New(logger, session.Options{DedupCapacity: cfg.DedupCapacity})
	fatalIfErr(logger, err)

	// Builders
	rb, err := router.NewRouteBuilder(logger, collector)
	fatalIfErr(logger, err)

	mb, err := mqtt.NewMQTTBuilder(logger, collector, mqtt.MQTTClientOptions{
		BrokerURL: cfg.MQTTBroker,
		ClientID:  cfg.MQTTClientID,
		Username:  cfg.MQTTUsername,
		Password:  cfg.MQTTPassword,
	})
	fatalIfErr(logger, err)

	svc := services.NewServices(logger, sess, store, mb.Client())

	registerHTTPHandlers(logger, rb, api.NewHandler(logger, svc))
	registerMQTTHandlers(logger, mb, mqttapi.NewMQTTHandler(logger, svc))

	if cfg.Generate {
		if err := collector.Generate(); err != nil {
			fatalIfErr(logger, fmt.Errorf("failed to generate API documentation: %w", err))
		}

		return
	}

	st, err := svc.Sensors.Restore(sigCtx, settings.Settings{ScanOnStart: cfg.ScanOnStart}, cfg.AllowList)
	fatalIfErr(logger, err)

	go svc.Sensors.Run(sigCtx)

	// Embedded MQTT broker
	var broker *mqttbroker.Server

	if cfg.MQTTServerEnabled {
		mqttAddr := fmt.Sprintf(":%d", cfg.MQTTBrokerPort)
		broker, err = getMQTTServer(logger, mqttAddr)
		fatalIfErr(logger, err)

		go func() {
			logger.Info("MQTT broker listening", slog.String("address", mqttAddr))

			if err := broker.Serve(); err != nil {
				logger.Error("MQTT broker failed", utils.ErrAttr(err))
				sigCancel()
			}
		}()
	}

	if st.ScanOnStart {
		svc.Sensors.StartScan()
	}

	// The retained scan command is republished on every connect.
	mb.OnConnect(svc.Sensors.ResendScanState)

	go func() {
		if err := mb.Connect(sigCtx); err != nil {
			logger.Error("Failed to connect to MQTT broker", utils.ErrAttr(err))
		}
	}()

	httpServer := apicommon.NewHTTPServer(logger, fmt.Sprintf(":%d", cfg.Port), rb.Router())
	httpServer.StartOnBackground(sigCancel)

	// Wait for signal (either OS or some failure)
	<-sigCtx.Done()
	logger.Info("received signal, shutting down...")

	if err := httpServer.ShutdownWithDefaultTimeout(); err != nil {
		logger.Error("http server shutdown failed", utils.ErrAttr(err))
	}

	logger.Info("disconnecting from MQTT broker...")
	mb.Disconnect()

	if broker != nil {
		logger.Info("mqtt broker shutting down...")

		if err := broker.Close(); err != nil {
			logger.Error("mqtt broker shutdown failed", utils.ErrAttr(err))
		}
	}

	logger.Info("server exited gracefully")
}

func getMQTTServer(l *slog.Logger, addr string) (*mqttbroker.Server, error) {
	server := mqttbroker.New(&mqttbroker.Options{
		Logger: l.With(slog.String("component", "mqtt-broker")),
	})
	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: addr})

	if err := server.AddListener(tcp); err != nil {
		return nil, err
	}

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, err
	}

	return server, nil
}

func registerHTTPHandlers(l *slog.Logger, rb *router.RouteBuilder, h *api.Handler) {
	l.Info("Registering HTTP handlers...")

	h.RegisterRoutes(rb, apicommon.NewMiddlewareHandler(l))

	dashboard, err := web.DashboardApp()
	fatalIfErr(l, err)
	dashboard.Register(rb.Router(), l)

	rb.Router().HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, dashboard.URLBase(), http.StatusMovedPermanently)
	})

	l.Info("HTTP handlers registered successfully")
}

func registerMQTTHandlers(l *slog.Logger, mb *mqtt.MQTTBuilder, h *mqttapi.Handler) {
	l.Info("Registering MQTT handlers...")
	h.Register(mb)
	l.Info("MQTT handlers registered successfully")
}

//nolint:ireturn // Returns MetadataCollector interface (OpenAPICollector or NoopCollector)
func getCollector(c *config.Config, l *slog.Logger) (generate.MetadataCollector, error) {
	if !c.Generate {
		return generate.NoopCollector{}, nil
	}

	return generate.NewOpenAPICollector(l, generate.OpenAPICollectorOptions{
		DatabaseSchemaFileOutputPath: "docs/schema.sql",
		DocsFileOutputPath:           "docs/api_docs.json",
		OpenAPISpecOutputPath:        "docs/openapi.yaml",
		APIInfo: generate.APIInfo{
			Title:       "envsensor API",
			Version:     utils.GetVersionShort(),
			Description: "Readings, scan control and settings of the envsensor gateway",
			Servers: []generate.ServerInfo{
				{URL: "http://localhost:8080", Description: "Local gateway"},
			},
		},
	})
}

func fatalIfErr(l *slog.Logger, err error) {
	if err == nil {
		return
	}

	l.Error("error", utils.ErrAttr(err))
	os.Exit(1)
}
