// Package session owns the admission, dedup and storage state of one scan session.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"envsensor/backend/internal/admission"
	"envsensor/backend/internal/dedup"
	"envsensor/backend/internal/readings"
	"envsensor/backend/pkg/payload"
	"envsensor/backend/pkg/utils"
)

type Options struct {
	// DedupCapacity bounds the dedup set, 0 keeps every key for the whole session.
	DedupCapacity int
	// StoreCapacity defaults to readings.DefaultCapacity.
	StoreCapacity int
	AllowList     []string
	Discovery     bool
}

// Session serializes every advertisement through admit, decode, observe and insert.
// All methods are safe for concurrent use.
type Session struct {
	l *slog.Logger

	mu       sync.Mutex
	filter   *admission.Filter
	tracker  *dedup.Tracker
	store    *readings.Store
	scanning bool
	stats    Stats
	subs     map[*subscriber]struct{}
}

type subscriber struct {
	ch   chan []readings.Reading
	once sync.Once
}

func New(l *slog.Logger, opts Options) (*Session, error) {
	tracker, err := dedup.New(opts.DedupCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedup tracker: %w", err)
	}

	filter := admission.NewFilter()
	filter.AllowList().Replace(opts.AllowList)
	filter.SetDiscovery(opts.Discovery)

	return &Session{
		l:       l.With(slog.String("component", "session")),
		filter:  filter,
		tracker: tracker,
		store:   readings.NewStore(opts.StoreCapacity),
		subs:    make(map[*subscriber]struct{}),
	}, nil
}

// Handle processes one advertisement received at the given time.
func (s *Session) Handle(adv admission.Advertisement, at time.Time) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.handle(adv, at)
	s.stats.count(out.Kind)

	return out
}

func (s *Session) handle(adv admission.Advertisement, at time.Time) Outcome {
	res := s.filter.Admit(adv)
	out := Outcome{Vendor: res.Vendor, HasVendor: res.HasVendor}

	// Diagnostics other than stored readings are only logged in discovery mode.
	discovery := s.filter.Discovery()
	if discovery && res.HasVendor {
		s.l.Debug("Discovered device",
			slog.String("device", adv.DeviceID),
			slog.String("name", adv.DisplayName()),
			slog.Int("rssi", adv.RSSI),
			slog.String("vendor", fmt.Sprintf("0x%04X", res.Vendor)),
			slog.String("data", payload.FormatHex(adv.ManufacturerData)),
		)
	}

	switch res.Verdict {
	case admission.Rejected:
		if discovery {
			if errors.Is(res.Reason, admission.ErrNoVendorData) {
				s.l.Debug("Device without manufacturer data",
					slog.String("device", adv.DeviceID),
					slog.String("name", adv.DisplayName()),
					slog.Int("rssi", adv.RSSI),
				)
			} else {
				s.l.Debug("Advertisement rejected", slog.String("device", adv.DeviceID), utils.ErrAttr(res.Reason))
			}
		}
		out.Kind = Rejected
		out.Reason = res.Reason
		return out

	case admission.AcceptedForDiscovery:
		out.Kind = Discovery
		return out
	}

	p, err := payload.Decode(res.Payload)
	if err != nil {
		if discovery {
			s.l.Debug("Dropping malformed payload", slog.String("device", adv.DeviceID), utils.ErrAttr(err))
		}
		out.Kind = Malformed
		out.Reason = err
		return out
	}

	if !s.tracker.Observe(dedup.Key{DeviceID: adv.DeviceID, Nonce: p.Nonce}) {
		out.Kind = Duplicate
		return out
	}

	r := readings.New(at, adv.DeviceID, adv.Name, adv.RSSI, p)
	s.store.Insert(r)
	s.logReading(r, adv)
	s.publish()

	out.Kind = Stored
	out.Reading = &r

	return out
}

func (s *Session) logReading(r readings.Reading, adv admission.Advertisement) {
	s.l.Info("Sensor reading",
		slog.String("time", r.TimestampString()),
		slog.String("nonce", fmt.Sprintf("0x%04X", r.Nonce)),
		slog.String("device", r.DeviceID),
		slog.String("name", adv.DisplayName()),
		slog.Float64("temperature", r.Temperature),
		slog.Float64("humidity", r.Humidity),
		slog.Float64("pressure", r.Pressure),
		slog.Float64("voltage", r.Voltage),
		slog.Float64("current", r.Current),
		slog.Float64("power", r.Power),
		slog.Int("rssi", r.RSSI),
	)
}

// StartScan begins a new scan session. Nonces seen before are forgotten.
func (s *Session) StartScan() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracker.Reset()
	s.scanning = true
	s.l.Info("Scan started")
}

// StopScan ends the scan session. Readings stay available.
func (s *Session) StopScan() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scanning = false
	s.l.Info("Scan stopped")
}

// Reset drops readings, discovered devices, dedup keys and counters.
// Allow-list and discovery mode are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracker.Reset()
	s.store.Clear()
	s.filter.ForgetDiscovered()
	s.stats = Stats{}
	s.publish()
}

func (s *Session) Readings() []readings.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Snapshot()
}

func (s *Session) Discovered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filter.Discovered()
}

func (s *Session) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.scanning
}

// AllowList returns the normalized allow-list entries, sorted.
func (s *Session) AllowList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filter.AllowList().IDs()
}

// AllowDevice adds id to the allow-list and returns the normalized identity.
func (s *Session) AllowDevice(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filter.AllowList().Add(id)
}

// DisallowDevice removes id and reports whether it was listed.
func (s *Session) DisallowDevice(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filter.AllowList().Remove(id)
}

// ClearAllowList removes every entry, after which all devices are accepted.
func (s *Session) ClearAllowList() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter.AllowList().Clear()
}

// FilterEnabled reports whether the allow-list restricts admission.
func (s *Session) FilterEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filter.AllowList().Len() > 0
}

func (s *Session) SetDiscoveryMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter.SetDiscovery(enabled)
}

func (s *Session) DiscoveryMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filter.Discovery()
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.DedupKeys = s.tracker.Len()
	st.DedupCapacity = s.tracker.Capacity()
	st.Readings = s.store.Len()
	st.Discovered = len(s.filter.Discovered())
	st.Scanning = s.scanning

	return st
}

// Subscribe returns a channel receiving the reading snapshot after every change.
// A slow receiver only sees the latest snapshot. The returned func unsubscribes
// and closes the channel.
func (s *Session) Subscribe() (<-chan []readings.Reading, func()) {
	sub := &subscriber{ch: make(chan []readings.Reading, 1)}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	sub.ch <- s.store.Snapshot()
	s.mu.Unlock()

	return sub.ch, func() {
		sub.once.Do(func() {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
			close(sub.ch)
		})
	}
}

// publish must be called with mu held.
func (s *Session) publish() {
	if len(s.subs) == 0 {
		return
	}

	snap := s.store.Snapshot()
	for sub := range s.subs {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snap
	}
}
