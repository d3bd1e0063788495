package services

import (
	"log/slog"

	"envsensor/backend/internal/session"
)

// Publisher sends a registered MQTT publication.
type Publisher interface {
	Publish(operationID string, payload any, topicValues ...string) error
	IsConnected() bool
}

type Services struct {
	l       *slog.Logger
	Core    *CoreService
	Sensors *SensorService
}

func NewServices(l *slog.Logger, sess *session.Session, store SettingsStore, pub Publisher) *Services {
	return &Services{
		l:       l.With(slog.String("module", "services")),
		Core:    NewCoreService(l, store, pub),
		Sensors: NewSensorService(l, sess, store, pub),
	}
}
