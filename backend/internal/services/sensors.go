package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"envsensor/backend/internal/admission"
	"envsensor/backend/internal/readings"
	"envsensor/backend/internal/session"
	"envsensor/backend/internal/settings"
	"envsensor/backend/internal/shared/types"
	"envsensor/backend/pkg/payload"
	"envsensor/backend/pkg/utils"
)

const (
	OpPublishReading     = "publishReading"
	OpPublishScanCommand = "publishScanCommand"

	outboxSize = 64
)

// ErrInvalidAdvertisement wraps problems with the transport encoding of an advertisement,
// as opposed to admission rejections, which are ordinary outcomes.
var ErrInvalidAdvertisement = errors.New("invalid advertisement")

// SettingsStore is the persistence the sensor service needs.
type SettingsStore interface {
	pinger
	Load(ctx context.Context, defaults settings.Settings) (settings.Settings, error)
	Seed(ctx context.Context, ids []string) error
	AddAllowed(ctx context.Context, id string) error
	RemoveAllowed(ctx context.Context, id string) error
	ClearAllowList(ctx context.Context) error
	SetDiscoveryMode(ctx context.Context, enabled bool) error
	SetScanOnStart(ctx context.Context, enabled bool) error
}

type outbound struct {
	operationID string
	payload     any
	topicValues []string
}

// SensorService connects the session to settings persistence and MQTT publishing.
// Publications go through an outbox drained by Run, so callers never wait on the broker.
type SensorService struct {
	l      *slog.Logger
	sess   *session.Session
	store  SettingsStore
	pub    Publisher
	outbox chan outbound
	now    func() time.Time

	scanOnStart atomic.Bool
}

func NewSensorService(l *slog.Logger, sess *session.Session, store SettingsStore, pub Publisher) *SensorService {
	return &SensorService{
		l:      l.With(slog.String("service", "sensors")),
		sess:   sess,
		store:  store,
		pub:    pub,
		outbox: make(chan outbound, outboxSize),
		now:    time.Now,
	}
}

// Restore seeds an empty allow-list, loads the stored settings and applies them to the session.
func (s *SensorService) Restore(ctx context.Context, defaults settings.Settings, seed []string) (settings.Settings, error) {
	normalized := make([]string, 0, len(seed))
	for _, id := range seed {
		if id = admission.Normalize(id); id != "" {
			normalized = append(normalized, id)
		}
	}

	if err := s.store.Seed(ctx, normalized); err != nil {
		return settings.Settings{}, fmt.Errorf("failed to seed allow-list: %w", err)
	}

	st, err := s.store.Load(ctx, defaults)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	s.sess.ClearAllowList()

	for _, id := range st.AllowList {
		if _, err := s.sess.AllowDevice(id); err != nil {
			s.l.Warn("Skipping stored allow-list entry", slog.String("device", id), utils.ErrAttr(err))
		}
	}

	s.sess.SetDiscoveryMode(st.DiscoveryMode)
	s.scanOnStart.Store(st.ScanOnStart)

	s.l.Info("Settings restored",
		slog.Int("allowed", len(st.AllowList)),
		slog.Bool("discoveryMode", st.DiscoveryMode),
		slog.Bool("scanOnStart", st.ScanOnStart),
	)

	return st, nil
}

// Run publishes queued messages until ctx is done.
func (s *SensorService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.outbox:
			if s.pub == nil || !s.pub.IsConnected() {
				s.l.Debug("MQTT not connected, dropping publication", slog.String("operationID", msg.operationID))
				continue
			}

			if err := s.pub.Publish(msg.operationID, msg.payload, msg.topicValues...); err != nil {
				s.l.Warn("Failed to publish", slog.String("operationID", msg.operationID), utils.ErrAttr(err))
			}
		}
	}
}

func (s *SensorService) enqueue(operationID string, payload any, topicValues ...string) {
	select {
	case s.outbox <- outbound{operationID: operationID, payload: payload, topicValues: topicValues}:
	default:
		s.l.Warn("Publication outbox full, dropping message", slog.String("operationID", operationID))
	}
}

// ParseAdvertisement converts the wire form into the admission form.
func ParseAdvertisement(msg types.Advertisement) (admission.Advertisement, error) {
	if msg.DeviceID == "" {
		return admission.Advertisement{}, fmt.Errorf("%w: deviceID is required", ErrInvalidAdvertisement)
	}

	adv := admission.Advertisement{DeviceID: msg.DeviceID, RSSI: msg.RSSI, Name: msg.Name}

	if msg.ManufacturerData != "" {
		data, err := payload.ParseHex(msg.ManufacturerData)
		if err != nil {
			return admission.Advertisement{}, fmt.Errorf("%w: %w", ErrInvalidAdvertisement, err)
		}

		adv.ManufacturerData = data
	}

	return adv, nil
}

// Ingest runs one advertisement through the session and publishes it when stored.
func (s *SensorService) Ingest(msg types.Advertisement) (session.Outcome, error) {
	adv, err := ParseAdvertisement(msg)
	if err != nil {
		return session.Outcome{}, err
	}

	out := s.sess.Handle(adv, s.now())
	if out.Kind == session.Stored {
		s.enqueue(OpPublishReading, out.Reading, out.Reading.DeviceID)
	}

	return out, nil
}

// Decode decodes a hex frame without touching the session.
func (s *SensorService) Decode(hexPayload string) (payload.Payload, error) {
	return DecodeFrame(hexPayload)
}

// DecodeFrame decodes a bare 16 byte frame, or an 18 byte frame carrying the vendor prefix.
func DecodeFrame(hexPayload string) (payload.Payload, error) {
	b, err := payload.ParseHex(hexPayload)
	if err != nil {
		return payload.Payload{}, err
	}

	if len(b) == payload.Size+admission.VendorPrefixLen {
		if vendor := uint16(b[0]) | uint16(b[1])<<8; vendor != admission.VendorID {
			return payload.Payload{}, fmt.Errorf("%w: 0x%04X", admission.ErrVendorMismatch, vendor)
		}

		b = b[admission.VendorPrefixLen:]
	}

	return payload.Decode(b)
}

func (s *SensorService) StartScan() {
	s.sess.StartScan()
	s.enqueue(OpPublishScanCommand, types.ScanCommand{Action: types.ScanActionStart, Timestamp: s.now().UTC()})
}

func (s *SensorService) StopScan() {
	s.sess.StopScan()
	s.enqueue(OpPublishScanCommand, types.ScanCommand{Action: types.ScanActionStop, Timestamp: s.now().UTC()})
}

// ResendScanState queues the retained scan command matching the current scan
// state. Commands issued while the broker was unreachable are dropped by Run,
// so this runs on every broker connect.
func (s *SensorService) ResendScanState() {
	action := types.ScanActionStop
	if s.sess.Scanning() {
		action = types.ScanActionStart
	}

	s.enqueue(OpPublishScanCommand, types.ScanCommand{Action: action, Timestamp: s.now().UTC()})
}

func (s *SensorService) Scanning() bool {
	return s.sess.Scanning()
}

// AllowDevice persists the normalized identity, then applies it. It returns the normalized form.
func (s *SensorService) AllowDevice(ctx context.Context, id string) (string, error) {
	id = admission.Normalize(id)
	if id == "" {
		return "", admission.ErrEmptyDeviceID
	}

	if err := s.store.AddAllowed(ctx, id); err != nil {
		return "", err
	}

	return s.sess.AllowDevice(id)
}

// DisallowDevice reports whether the device was on the allow-list.
func (s *SensorService) DisallowDevice(ctx context.Context, id string) (bool, error) {
	id = admission.Normalize(id)

	if err := s.store.RemoveAllowed(ctx, id); err != nil {
		return false, err
	}

	return s.sess.DisallowDevice(id), nil
}

func (s *SensorService) ClearAllowList(ctx context.Context) error {
	if err := s.store.ClearAllowList(ctx); err != nil {
		return err
	}

	s.sess.ClearAllowList()

	return nil
}

func (s *SensorService) AllowList() []string {
	return s.sess.AllowList()
}

func (s *SensorService) FilterEnabled() bool {
	return s.sess.FilterEnabled()
}

func (s *SensorService) SetDiscoveryMode(ctx context.Context, enabled bool) error {
	if err := s.store.SetDiscoveryMode(ctx, enabled); err != nil {
		return err
	}

	s.sess.SetDiscoveryMode(enabled)
	s.l.Info("Discovery mode changed", slog.Bool("enabled", enabled))

	return nil
}

func (s *SensorService) DiscoveryMode() bool {
	return s.sess.DiscoveryMode()
}

// SetScanOnStart persists whether the service starts scanning when it boots.
// The running session is not affected.
func (s *SensorService) SetScanOnStart(ctx context.Context, enabled bool) error {
	if err := s.store.SetScanOnStart(ctx, enabled); err != nil {
		return err
	}

	s.scanOnStart.Store(enabled)
	s.l.Info("Scan on start changed", slog.Bool("enabled", enabled))

	return nil
}

func (s *SensorService) ScanOnStart() bool {
	return s.scanOnStart.Load()
}

func (s *SensorService) Readings() []readings.Reading {
	return s.sess.Readings()
}

func (s *SensorService) Discovered() []string {
	return s.sess.Discovered()
}

func (s *SensorService) Stats() session.Stats {
	return s.sess.Stats()
}

func (s *SensorService) Subscribe() (<-chan []readings.Reading, func()) {
	return s.sess.Subscribe()
}

// Reset starts over with an empty session. Allow-list and discovery mode are kept.
func (s *SensorService) Reset() {
	s.sess.Reset()
}
