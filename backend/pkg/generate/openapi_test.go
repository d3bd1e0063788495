package generate

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type testReading struct {
	DeviceID  string    `json:"deviceID"`
	Nonce     uint16    `json:"nonce"`
	Timestamp time.Time `json:"timestamp"`
}

type testError struct {
	Message string `json:"message"`
}

func newTestCollector(t *testing.T) (*OpenAPICollector, string) {
	t.Helper()

	dir := t.TempDir()

	c, err := NewOpenAPICollector(slog.New(slog.NewTextHandler(io.Discard, nil)), OpenAPICollectorOptions{
		OpenAPISpecOutputPath: filepath.Join(dir, "openapi.yaml"),
		DocsFileOutputPath:    filepath.Join(dir, "api_docs.json"),
		APIInfo:               APIInfo{Title: "Test API", Version: "v1", Servers: []ServerInfo{{URL: "http://localhost:8080"}}},
	})
	if err != nil {
		t.Fatalf("NewOpenAPICollector() error = %v", err)
	}

	return c, dir
}

func readingsRoute() *RouteInfo {
	return &RouteInfo{
		OperationID: "getDeviceReadings",
		Method:      http.MethodGet,
		Path:        "/api/devices/{deviceID}/readings",
		Summary:     "Readings",
		Description: "Readings of a device",
		Group:       "Readings",
		Parameters: []ParameterInfo{
			{Name: "deviceID", In: "path", TypeValue: new(string), Description: "Device", Required: true},
			{Name: "limit", In: "query", TypeValue: new(int), Description: "Limit"},
		},
		Responses: map[int]ResponseInfo{
			http.StatusOK: {
				Description: "Readings",
				TypeValue:   []testReading{},
				Examples:    map[string]any{"one": []testReading{{DeviceID: "AA:BB", Nonce: 1}}},
			},
			http.StatusNotFound: {Description: "Unknown device", TypeValue: testError{}},
		},
	}
}

func TestNewOpenAPICollectorValidation(t *testing.T) {
	t.Parallel()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := NewOpenAPICollector(l, OpenAPICollectorOptions{APIInfo: APIInfo{Title: "x", Version: "1"}}); err == nil {
		t.Error("missing spec path should fail")
	}

	if _, err := NewOpenAPICollector(l, OpenAPICollectorOptions{OpenAPISpecOutputPath: "x.yaml"}); err == nil {
		t.Error("missing API info should fail")
	}
}

func TestRegisterRoute(t *testing.T) {
	t.Parallel()

	c, _ := newTestCollector(t)

	if err := c.RegisterRoute(readingsRoute()); err != nil {
		t.Fatalf("RegisterRoute() error = %v", err)
	}

	item := c.Spec().Paths.Value("/api/devices/{deviceID}/readings")
	if item == nil || item.Get == nil {
		t.Fatal("GET operation not registered")
	}

	if item.Get.OperationID != "getDeviceReadings" || len(item.Get.Parameters) != 2 {
		t.Errorf("unexpected operation: %+v", item.Get)
	}

	if _, ok := c.Spec().Components.Schemas["testError"]; !ok {
		t.Error("named struct should be registered as component")
	}

	if err := c.RegisterRoute(readingsRoute()); err == nil || !strings.Contains(err.Error(), "duplicate operationID") {
		t.Errorf("second registration error = %v, want duplicate operationID", err)
	}
}

func TestRegisterRouteErrors(t *testing.T) {
	t.Parallel()

	c, _ := newTestCollector(t)

	badParam := readingsRoute()
	badParam.OperationID = "badParam"
	badParam.Parameters[1].In = "cookie"

	if err := c.RegisterRoute(badParam); err == nil {
		t.Error("unsupported parameter location should fail")
	}

	noResponses := readingsRoute()
	noResponses.OperationID = "noResponses"
	noResponses.Responses = nil

	if err := c.RegisterRoute(noResponses); err == nil {
		t.Error("route without responses should fail")
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	c, dir := newTestCollector(t)

	if err := c.RegisterRoute(readingsRoute()); err != nil {
		t.Fatalf("RegisterRoute() error = %v", err)
	}

	err := c.RegisterMQTTPublication(&MQTTPublicationInfo{
		OperationID: "publishReading",
		Topic:       "sensors/{deviceID}/readings",
		TopicMQTT:   "sensors/+/readings",
		TopicParameters: []MQTTTopicParameter{
			{Name: "deviceID", TypeValue: new(string), Description: "Device"},
		},
		Summary:   "Reading",
		Group:     "Readings",
		QoS:       1,
		TypeValue: testReading{},
	})
	if err != nil {
		t.Fatalf("RegisterMQTTPublication() error = %v", err)
	}

	if err := c.RegisterMQTTSubscription(&MQTTSubscriptionInfo{OperationID: "publishReading", TypeValue: testReading{}}); err == nil {
		t.Error("operationID shared between HTTP and MQTT should fail")
	}

	if err := c.Generate(); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	spec, err := os.ReadFile(filepath.Join(dir, "openapi.yaml"))
	if err != nil {
		t.Fatalf("failed to read spec: %v", err)
	}

	for _, want := range []string{"openapi: 3.0.3", "getDeviceReadings", "/api/devices/{deviceID}/readings", "testError"} {
		if !strings.Contains(string(spec), want) {
			t.Errorf("spec does not contain %q", want)
		}
	}

	docs, err := os.ReadFile(filepath.Join(dir, "api_docs.json"))
	if err != nil {
		t.Fatalf("failed to read docs: %v", err)
	}

	for _, want := range []string{`"publishReading"`, `"sensors/+/readings"`, `"kind": "publish"`} {
		if !strings.Contains(string(docs), want) {
			t.Errorf("docs do not contain %s", want)
		}
	}
}

func TestNoopCollector(t *testing.T) {
	t.Parallel()

	var c MetadataCollector = NoopCollector{}

	if err := c.RegisterRoute(&RouteInfo{}); err != nil {
		t.Errorf("RegisterRoute() error = %v", err)
	}

	if err := c.Generate(); err != nil {
		t.Errorf("Generate() error = %v", err)
	}
}
