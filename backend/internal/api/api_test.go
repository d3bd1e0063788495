package api

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"envsensor/backend/internal/apicommon"
	"envsensor/backend/internal/services"
	"envsensor/backend/internal/session"
	"envsensor/backend/internal/settings"
	"envsensor/backend/internal/shared/types"
	"envsensor/backend/pkg/generate"
	"envsensor/backend/pkg/router"
	"envsensor/backend/pkg/utils"
)

const sensorData = "FFFF010064095016701B0000900100040000"

type memStore struct {
	mu      sync.Mutex
	allowed map[string]struct{}
	down    bool
}

func (m *memStore) err() error {
	if m.down {
		return errors.New("database down")
	}

	return nil
}

func (m *memStore) Ping(context.Context) error { return m.err() }
func (m *memStore) Load(_ context.Context, d settings.Settings) (settings.Settings, error) {
	return d, m.err()
}
func (m *memStore) Seed(context.Context, []string) error { return m.err() }
func (m *memStore) AddAllowed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.allowed == nil {
		m.allowed = map[string]struct{}{}
	}

	m.allowed[id] = struct{}{}

	return m.err()
}
func (m *memStore) RemoveAllowed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.allowed, id)

	return m.err()
}
func (m *memStore) ClearAllowList(context.Context) error         { return m.err() }
func (m *memStore) SetDiscoveryMode(context.Context, bool) error { return m.err() }
func (m *memStore) SetScanOnStart(context.Context, bool) error   { return m.err() }

func newTestServer(t *testing.T, store *memStore) *httptest.Server {
	t.Helper()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	sess, err := session.New(l, session.Options{})
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}

	rb, err := router.NewRouteBuilder(l, generate.NoopCollector{})
	if err != nil {
		t.Fatalf("NewRouteBuilder() error = %v", err)
	}

	NewHandler(l, services.NewServices(l, sess, store, nil)).RegisterRoutes(rb, apicommon.NewMiddlewareHandler(l))

	srv := httptest.NewServer(rb.Router())
	t.Cleanup(srv.Close)

	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, []byte) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error = %v", err)
	}

	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()

	v, err := utils.FromJSON[T](data)
	if err != nil {
		t.Fatalf("FromJSON(%s) error = %v", data, err)
	}

	return v
}

func TestPingAndHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &memStore{})

	code, body := do(t, srv, http.MethodGet, "/api/ping", "")
	if code != http.StatusOK || decode[types.PingResponse](t, body).Status != types.PingStatusOK {
		t.Errorf("ping = %d %s", code, body)
	}

	// No MQTT client is configured in tests.
	code, body = do(t, srv, http.MethodGet, "/api/health", "")
	if got := decode[types.HealthResponse](t, body); code != http.StatusServiceUnavailable || !got.Database || got.MQTT {
		t.Errorf("health = %d %s", code, body)
	}
}

func TestIngestAndReadings(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &memStore{})
	adv := `{"deviceID":"AA:BB","manufacturerData":"` + sensorData + `","rssi":-60,"name":"EnvSensor"}`

	code, body := do(t, srv, http.MethodPost, "/api/advertisements", adv)
	if code != http.StatusOK {
		t.Fatalf("ingest = %d %s", code, body)
	}

	out := decode[types.OutcomeResponse](t, body)
	if out.Outcome != "stored" || out.Reading == nil || out.Vendor == nil || *out.Vendor != "0xFFFF" {
		t.Errorf("outcome = %+v", out)
	}

	if out.Reading.Pressure != 702.4 || out.Reading.Power != 40.96 {
		t.Errorf("reading = %+v", out.Reading)
	}

	_, body = do(t, srv, http.MethodPost, "/api/advertisements", adv)
	if out := decode[types.OutcomeResponse](t, body); out.Outcome != "duplicate" {
		t.Errorf("second outcome = %+v", out)
	}

	_, body = do(t, srv, http.MethodPost, "/api/advertisements", `{"deviceID":"CC:DD","manufacturerData":"4C00AA"}`)
	if out := decode[types.OutcomeResponse](t, body); out.Outcome != "rejected" || out.Reason == "" || *out.Vendor != "0x004C" {
		t.Errorf("foreign vendor outcome = %+v", out)
	}

	code, _ = do(t, srv, http.MethodPost, "/api/advertisements", `{"manufacturerData":"FFFF"}`)
	if code != http.StatusBadRequest {
		t.Errorf("missing deviceID = %d, want 400", code)
	}

	code, _ = do(t, srv, http.MethodPost, "/api/advertisements", `{"deviceID":`)
	if code != http.StatusBadRequest {
		t.Errorf("malformed JSON = %d, want 400", code)
	}

	_, body = do(t, srv, http.MethodGet, "/api/readings", "")
	if got := decode[types.ReadingsResponse](t, body); len(got.Readings) != 1 || got.Readings[0].DeviceID != "AA:BB" {
		t.Errorf("readings = %s", body)
	}

	_, body = do(t, srv, http.MethodGet, "/api/devices", "")
	if got := decode[types.DevicesResponse](t, body); len(got.Devices) != 1 || got.Devices[0] != "AA:BB" {
		t.Errorf("devices = %s", body)
	}

	_, body = do(t, srv, http.MethodGet, "/api/stats", "")
	if got := decode[session.Stats](t, body); got.Stored != 1 || got.Duplicate != 1 || got.Rejected != 1 {
		t.Errorf("stats = %s", body)
	}

	code, _ = do(t, srv, http.MethodDelete, "/api/readings", "")
	if code != http.StatusNoContent {
		t.Errorf("reset = %d, want 204", code)
	}

	_, body = do(t, srv, http.MethodGet, "/api/readings", "")
	if got := decode[types.ReadingsResponse](t, body); got.Readings == nil || len(got.Readings) != 0 {
		t.Errorf("readings after reset = %s", body)
	}
}

func TestScanLifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &memStore{})

	for _, step := range []struct {
		method, path string
		want         bool
	}{
		{http.MethodGet, "/api/scan", false},
		{http.MethodPost, "/api/scan/start", true},
		{http.MethodGet, "/api/scan", true},
		{http.MethodPost, "/api/scan/stop", false},
		{http.MethodGet, "/api/scan", false},
	} {
		code, body := do(t, srv, step.method, step.path, "")
		if got := decode[types.ScanStatus](t, body); code != http.StatusOK || got.Scanning != step.want {
			t.Errorf("%s %s = %d %s, want scanning=%v", step.method, step.path, code, body, step.want)
		}
	}
}

func TestAllowList(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	srv := newTestServer(t, store)

	code, body := do(t, srv, http.MethodPost, "/api/allowlist", `{"deviceID":" aa:bb "}`)
	if got := decode[types.AllowListResponse](t, body); code != http.StatusCreated || !got.FilterEnabled || got.DeviceIDs[0] != "AA:BB" {
		t.Errorf("add = %d %s", code, body)
	}

	code, body = do(t, srv, http.MethodPost, "/api/allowlist", `{"deviceID":"  "}`)
	if got := decode[types.ErrorResponse](t, body); code != http.StatusBadRequest || got.Errors["deviceID"] == "" {
		t.Errorf("add empty = %d %s", code, body)
	}

	_, body = do(t, srv, http.MethodPost, "/api/advertisements", `{"deviceID":"CC:DD","manufacturerData":"`+sensorData+`"}`)
	if out := decode[types.OutcomeResponse](t, body); out.Outcome != "rejected" {
		t.Errorf("not allowlisted outcome = %+v", out)
	}

	code, _ = do(t, srv, http.MethodDelete, "/api/allowlist/aa:bb", "")
	if code != http.StatusNoContent {
		t.Errorf("remove = %d, want 204", code)
	}

	code, _ = do(t, srv, http.MethodDelete, "/api/allowlist/aa:bb", "")
	if code != http.StatusNotFound {
		t.Errorf("remove again = %d, want 404", code)
	}

	do(t, srv, http.MethodPost, "/api/allowlist", `{"deviceID":"EE:FF"}`)

	code, _ = do(t, srv, http.MethodDelete, "/api/allowlist", "")
	if code != http.StatusNoContent {
		t.Errorf("clear = %d, want 204", code)
	}

	_, body = do(t, srv, http.MethodGet, "/api/allowlist", "")
	if got := decode[types.AllowListResponse](t, body); got.FilterEnabled || len(got.DeviceIDs) != 0 {
		t.Errorf("allow-list after clear = %s", body)
	}

	store.down = true

	code, body = do(t, srv, http.MethodPost, "/api/allowlist", `{"deviceID":"AA:BB"}`)
	if got := decode[types.ErrorResponse](t, body); code != http.StatusInternalServerError || got.Message != "Internal Server Error" || got.RequestID == "" {
		t.Errorf("add with database down = %d %s", code, body)
	}
}

func TestDiscoveryMode(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &memStore{})

	code, body := do(t, srv, http.MethodPut, "/api/discovery", `{"enabled":true}`)
	if got := decode[types.DiscoveryStatus](t, body); code != http.StatusOK || !got.Enabled {
		t.Errorf("put discovery = %d %s", code, body)
	}

	_, body = do(t, srv, http.MethodPost, "/api/advertisements", `{"deviceID":"AA:BB","manufacturerData":"`+sensorData+`"}`)
	if out := decode[types.OutcomeResponse](t, body); out.Outcome != "stored" || out.Reading == nil {
		t.Errorf("vendor frame in discovery mode = %+v", out)
	}

	_, body = do(t, srv, http.MethodPost, "/api/advertisements", `{"deviceID":"CC:DD","manufacturerData":"4C00`+sensorData[4:]+`"}`)
	if out := decode[types.OutcomeResponse](t, body); out.Outcome != "discovery" || out.Reading != nil {
		t.Errorf("foreign frame in discovery mode = %+v", out)
	}

	_, body = do(t, srv, http.MethodGet, "/api/discovery", "")
	if got := decode[types.DiscoveryStatus](t, body); !got.Enabled {
		t.Errorf("get discovery = %s", body)
	}

	code, _ = do(t, srv, http.MethodPut, "/api/discovery", `{"enabled":true,"extra":1}`)
	if code != http.StatusBadRequest {
		t.Errorf("unknown field = %d, want 400", code)
	}
}

func TestScanOnStart(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &memStore{})

	code, body := do(t, srv, http.MethodPut, "/api/scan/autostart", `{"enabled":true}`)
	if got := decode[types.ScanOnStartStatus](t, body); code != http.StatusOK || !got.Enabled {
		t.Errorf("put autostart = %d %s", code, body)
	}

	_, body = do(t, srv, http.MethodGet, "/api/scan/autostart", "")
	if got := decode[types.ScanOnStartStatus](t, body); !got.Enabled {
		t.Errorf("get autostart = %s", body)
	}

	_, body = do(t, srv, http.MethodGet, "/api/scan", "")
	if got := decode[types.ScanStatus](t, body); got.Scanning {
		t.Errorf("autostart must not start a scan, got %s", body)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &memStore{})

	code, body := do(t, srv, http.MethodPost, "/api/decode", `{"payload":"`+sensorData[4:]+`"}`)
	got := decode[types.DecodeResponse](t, body)

	if code != http.StatusOK || got.Nonce != 1 || got.Temperature != 24.04 || got.Humidity != 57.12 || got.Voltage != 4 {
		t.Errorf("decode = %d %s", code, body)
	}

	code, _ = do(t, srv, http.MethodPost, "/api/decode", `{"payload":"0102"}`)
	if code != http.StatusBadRequest {
		t.Errorf("short payload = %d, want 400", code)
	}
}

func TestStreamReadings(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &memStore{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/readings/stream", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	events := make(chan string, 4)

	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
				events <- data
			}
		}

		close(events)
	}()

	next := func() types.ReadingsResponse {
		t.Helper()

		select {
		case data, ok := <-events:
			if !ok {
				t.Fatal("stream closed")
			}

			return decode[types.ReadingsResponse](t, []byte(data))
		case <-ctx.Done():
			t.Fatal("timed out waiting for event")
		}

		return types.ReadingsResponse{}
	}

	if initial := next(); len(initial.Readings) != 0 {
		t.Errorf("initial snapshot = %+v", initial)
	}

	do(t, srv, http.MethodPost, "/api/advertisements", `{"deviceID":"AA:BB","manufacturerData":"`+sensorData+`"}`)

	if update := next(); len(update.Readings) != 1 || update.Readings[0].Nonce != 1 {
		t.Errorf("update = %+v", update)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &memStore{})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/api/ping", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	req.Header.Set(apicommon.RequestIDHeader, "req-123")

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("ping error = %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get(apicommon.RequestIDHeader); got != "req-123" {
		t.Errorf("%s = %q, want req-123", apicommon.RequestIDHeader, got)
	}
}
