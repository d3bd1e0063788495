package session

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envsensor/backend/internal/admission"
	"envsensor/backend/pkg/payload"
)

var testTime = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()

	s, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), opts)
	require.NoError(t, err)

	return s
}

func frame(vendor uint16, raw payload.Raw) []byte {
	return append([]byte{byte(vendor), byte(vendor >> 8)}, payload.Encode(raw)...)
}

func advert(device string, nonce uint16) admission.Advertisement {
	return admission.Advertisement{
		DeviceID: device,
		RSSI:     -60,
		ManufacturerData: frame(admission.VendorID, payload.Raw{
			Nonce:       nonce,
			Temperature: 2404,
			Humidity:    5712,
			Pressure:    7024,
			Voltage:     400,
			Current:     1024,
		}),
	}
}

func TestHandleEndToEnd(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{})
	s.StartScan()

	out := s.Handle(advert("AA:BB", 1), testTime)
	require.Equal(t, Stored, out.Kind)
	require.NotNil(t, out.Reading)

	r := out.Reading
	assert.Equal(t, "AA:BB", r.DeviceID)
	assert.Equal(t, uint16(1), r.Nonce)
	assert.Equal(t, 24.04, r.Temperature)
	assert.Equal(t, 57.12, r.Humidity)
	assert.Equal(t, 702.4, r.Pressure)
	assert.Equal(t, 4.0, r.Voltage)
	assert.Equal(t, 10.24, r.Current)
	assert.Equal(t, 40.96, r.Power)
	assert.Equal(t, -60, r.RSSI)
	assert.Equal(t, testTime, r.Timestamp)

	dup := s.Handle(advert("AA:BB", 1), testTime.Add(time.Second))
	assert.Equal(t, Duplicate, dup.Kind)

	snap := s.Readings()
	require.Len(t, snap, 1)
	assert.Equal(t, []string{"AA:BB"}, s.Discovered())
}

func TestHandleRejections(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{AllowList: []string{"aa:bb"}})

	out := s.Handle(admission.Advertisement{DeviceID: "AA:BB"}, testTime)
	assert.Equal(t, Rejected, out.Kind)
	require.ErrorIs(t, out.Reason, admission.ErrNoVendorData)

	adv := advert("AA:BB", 1)
	adv.ManufacturerData[0] = 0x4C
	adv.ManufacturerData[1] = 0x00
	out = s.Handle(adv, testTime)
	assert.Equal(t, Rejected, out.Kind)
	require.ErrorIs(t, out.Reason, admission.ErrVendorMismatch)
	assert.True(t, out.HasVendor)
	assert.Equal(t, uint16(0x004C), out.Vendor)

	out = s.Handle(advert("CC:DD", 1), testTime)
	assert.Equal(t, Rejected, out.Kind)
	require.ErrorIs(t, out.Reason, admission.ErrNotAllowlisted)

	short := advert("AA:BB", 1)
	short.ManufacturerData = short.ManufacturerData[:17]
	out = s.Handle(short, testTime)
	assert.Equal(t, Malformed, out.Kind)
	require.ErrorIs(t, out.Reason, payload.ErrInvalidLength)

	assert.Empty(t, s.Readings())
	assert.Equal(t, []string{"AA:BB", "CC:DD"}, s.Discovered())

	st := s.Stats()
	assert.Equal(t, uint64(3), st.Rejected)
	assert.Equal(t, uint64(1), st.Malformed)
	assert.Zero(t, st.DedupKeys)
}

func TestMalformedDoesNotConsumeNonce(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{})

	long := advert("AA:BB", 5)
	long.ManufacturerData = append(long.ManufacturerData, 0x00)
	assert.Equal(t, Malformed, s.Handle(long, testTime).Kind)
	assert.Equal(t, Stored, s.Handle(advert("AA:BB", 5), testTime).Kind)
}

func TestDiscoveryModeKeepsAdmission(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{Discovery: true})
	assert.True(t, s.DiscoveryMode())

	out := s.Handle(advert("AA:BB", 1), testTime)
	require.Equal(t, Stored, out.Kind)
	require.NotNil(t, out.Reading)
	assert.Equal(t, admission.VendorID, out.Vendor)
	assert.Equal(t, []string{"AA:BB"}, s.Discovered())
	assert.Equal(t, Duplicate, s.Handle(advert("AA:BB", 1), testTime).Kind)

	foreign := advert("CC:DD", 2)
	foreign.ManufacturerData = frame(0x004C, payload.Raw{Nonce: 2})
	out = s.Handle(foreign, testTime)
	assert.Equal(t, Discovery, out.Kind)
	assert.Equal(t, uint16(0x004C), out.Vendor)
	assert.Nil(t, out.Reading)
	assert.Len(t, s.Readings(), 1)
	assert.Equal(t, []string{"AA:BB"}, s.Discovered())

	s.SetDiscoveryMode(false)
	assert.Equal(t, Rejected, s.Handle(foreign, testTime).Kind)
	assert.Equal(t, Stored, s.Handle(advert("AA:BB", 3), testTime).Kind)
}

func TestDiagnosticsOnlyInDiscoveryMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := New(l, Options{})
	require.NoError(t, err)

	foreign := advert("CC:DD", 1)
	foreign.ManufacturerData = frame(0x004C, payload.Raw{Nonce: 1})
	short := advert("AA:BB", 2)
	short.ManufacturerData = short.ManufacturerData[:17]
	bare := admission.Advertisement{DeviceID: "EE:FF"}

	assert.Equal(t, Rejected, s.Handle(foreign, testTime).Kind)
	assert.Equal(t, Malformed, s.Handle(short, testTime).Kind)
	assert.Equal(t, Rejected, s.Handle(bare, testTime).Kind)
	assert.Empty(t, buf.String())

	s.SetDiscoveryMode(true)
	assert.Equal(t, Discovery, s.Handle(foreign, testTime).Kind)
	assert.Equal(t, Malformed, s.Handle(short, testTime).Kind)
	assert.Equal(t, Rejected, s.Handle(bare, testTime).Kind)

	logs := buf.String()
	assert.Contains(t, logs, "Discovered device")
	assert.Contains(t, logs, "Dropping malformed payload")
	assert.Contains(t, logs, "Device without manufacturer data")

	buf.Reset()
	assert.Equal(t, Stored, s.Handle(advert("AA:BB", 3), testTime).Kind)
	s.SetDiscoveryMode(false)
	buf.Reset()
	assert.Equal(t, Duplicate, s.Handle(advert("AA:BB", 3), testTime).Kind)
	assert.Empty(t, buf.String())
}

func TestStartScanResetsDedup(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{})
	assert.False(t, s.Scanning())

	s.StartScan()
	assert.True(t, s.Scanning())
	assert.Equal(t, Stored, s.Handle(advert("AA:BB", 9), testTime).Kind)
	assert.Equal(t, Duplicate, s.Handle(advert("AA:BB", 9), testTime).Kind)

	s.StopScan()
	assert.False(t, s.Scanning())

	s.StartScan()
	assert.Equal(t, Stored, s.Handle(advert("AA:BB", 9), testTime).Kind)
	assert.Len(t, s.Readings(), 2)
}

func TestReset(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{AllowList: []string{"AA:BB"}})
	s.Handle(advert("AA:BB", 1), testTime)

	s.Reset()
	assert.Empty(t, s.Readings())
	assert.Empty(t, s.Discovered())
	assert.Zero(t, s.Stats().Stored)
	assert.Equal(t, []string{"AA:BB"}, s.AllowList())
	assert.Equal(t, Stored, s.Handle(advert("AA:BB", 1), testTime).Kind)
}

func TestAllowListMutations(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{})
	assert.False(t, s.FilterEnabled())

	id, err := s.AllowDevice("  aa:bb ")
	require.NoError(t, err)
	assert.Equal(t, "AA:BB", id)
	assert.True(t, s.FilterEnabled())

	_, err = s.AllowDevice(" ")
	require.ErrorIs(t, err, admission.ErrEmptyDeviceID)

	assert.Equal(t, Rejected, s.Handle(advert("CC:DD", 1), testTime).Kind)

	assert.True(t, s.DisallowDevice("AA:BB"))
	assert.False(t, s.DisallowDevice("AA:BB"))

	_, _ = s.AllowDevice("EE:FF")
	s.ClearAllowList()
	assert.Empty(t, s.AllowList())
	assert.Equal(t, Stored, s.Handle(advert("CC:DD", 1), testTime).Kind)
}

func TestStoreBoundAndOrder(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{})
	for n := range uint16(120) {
		require.Equal(t, Stored, s.Handle(advert("AA:BB", n), testTime).Kind)
	}

	snap := s.Readings()
	require.Len(t, snap, 100)
	assert.Equal(t, uint16(119), snap[0].Nonce)
	assert.Equal(t, uint16(20), snap[99].Nonce)
	assert.Equal(t, 120, s.Stats().DedupKeys)
}

func TestBoundedDedup(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{DedupCapacity: 2})
	s.Handle(advert("AA:BB", 1), testTime)
	s.Handle(advert("AA:BB", 2), testTime)
	s.Handle(advert("AA:BB", 3), testTime)

	st := s.Stats()
	assert.Equal(t, 2, st.DedupKeys)
	assert.Equal(t, 2, st.DedupCapacity)
	assert.Equal(t, Stored, s.Handle(advert("AA:BB", 1), testTime).Kind)
}

func TestSubscribeLatestWins(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{})
	ch, cancel := s.Subscribe()

	initial := <-ch
	assert.Empty(t, initial)

	for n := range uint16(5) {
		s.Handle(advert("AA:BB", n), testTime)
	}

	latest := <-ch
	require.Len(t, latest, 5)
	assert.Equal(t, uint16(4), latest[0].Nonce)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra snapshot with %d readings", len(extra))
	default:
	}

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	// Inserting after unsubscribe must not block or panic.
	s.Handle(advert("AA:BB", 99), testTime)
}

func TestConcurrentHandle(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, Options{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range uint16(50) {
				s.Handle(advert("AA:BB", n), testTime)
			}
		}()
	}
	wg.Wait()

	st := s.Stats()
	assert.Equal(t, uint64(50), st.Stored)
	assert.Equal(t, uint64(350), st.Duplicate)
	assert.Len(t, s.Readings(), 50)
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "duplicate", Duplicate.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
