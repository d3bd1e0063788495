package services

import (
	"context"
	"log/slog"

	"envsensor/backend/pkg/utils"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type CoreService struct {
	l    *slog.Logger
	db   pinger
	mqtt Publisher
}

func NewCoreService(l *slog.Logger, db pinger, mqtt Publisher) *CoreService {
	return &CoreService{
		l:    l.With(slog.String("service", "core")),
		db:   db,
		mqtt: mqtt,
	}
}

type HealthStatus struct {
	Database bool
	MQTT     bool
}

func (s *CoreService) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{Database: true, MQTT: true}

	if err := s.db.Ping(ctx); err != nil {
		s.l.Error("Database unreachable", utils.ErrAttr(err))
		status.Database = false
	}

	if s.mqtt == nil || !s.mqtt.IsConnected() {
		s.l.Error("MQTT broker unreachable")
		status.MQTT = false
	}

	return status
}
