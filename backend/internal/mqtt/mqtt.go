// Package mqtt wires the sensor service to the broker: gateways publish advertisements,
// the service publishes readings and scan commands.
package mqtt

import (
	"log/slog"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"envsensor/backend/internal/readings"
	"envsensor/backend/internal/services"
	"envsensor/backend/internal/shared/types"
	mqttbuilder "envsensor/backend/pkg/mqtt"
	"envsensor/backend/pkg/utils"
)

const (
	TopicAdvertisements = "gateways/{gatewayID}/advertisements"
	TopicReadings       = "sensors/{deviceID}/readings"
	TopicScan           = "gateways/scan"

	GatewaysGroup = "Gateways"
	ReadingsGroup = "Readings"
)

type Handler struct {
	l   *slog.Logger
	svc *services.Services
}

func NewMQTTHandler(l *slog.Logger, svc *services.Services) *Handler {
	return &Handler{
		l:   l.With(slog.String("component", "mqtt-handler")),
		svc: svc,
	}
}

// Register declares every publication and subscription of the service on mb.
func (h *Handler) Register(mb *mqttbuilder.MQTTBuilder) {
	mb.MustRegisterSubscribe(TopicAdvertisements, mqttbuilder.SubscriptionSpec{
		OperationID: "receiveAdvertisement",
		Summary:     "Advertisement forwarded by a gateway",
		Description: "A gateway forwards every BLE advertisement it hears. Manufacturer data is hex encoded; advertisements without it are still forwarded so discovery can report them.",
		Group:       GatewaysGroup,
		TopicParameters: []mqttbuilder.TopicParameter{
			{Name: "gatewayID", Description: "Identifier of the forwarding gateway", Type: new(string)},
		},
		MessageType: types.Advertisement{},
		Handler:     h.HandleAdvertisement,
		QoS:         mqttbuilder.QoSAtLeastOnce,
		Examples: map[string]any{
			"Sensor": types.Advertisement{
				DeviceID:         "C4:7F:51:0A:22:9E",
				ManufacturerData: "FFFF010064095016701B0000900100040000",
				RSSI:             -67,
				Name:             "EnvSensor",
			},
			"Unknown device": types.Advertisement{DeviceID: "58:2D:34:11:9A:01", RSSI: -88},
		},
	})

	mb.MustRegisterPublish(TopicReadings, mqttbuilder.PublicationSpec{
		OperationID: services.OpPublishReading,
		Summary:     "Stored sensor reading",
		Description: "Published once for every reading that passed admission and deduplication.",
		Group:       ReadingsGroup,
		TopicParameters: []mqttbuilder.TopicParameter{
			{Name: "deviceID", Description: "Identity of the sensor", Type: new(string)},
		},
		MessageType: readings.Reading{},
		QoS:         mqttbuilder.QoSAtLeastOnce,
		Examples: map[string]any{
			"Reading": readings.Reading{
				ID:          "01950c8e-7a40-7b1c-9d52-3f1e8a6b2c44",
				Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
				DeviceID:    "C4:7F:51:0A:22:9E",
				Name:        "EnvSensor",
				Nonce:       1,
				Temperature: 24.04,
				Humidity:    57.12,
				Pressure:    702.4,
				Voltage:     4,
				Current:     10.24,
				Power:       40.96,
				RSSI:        -67,
			},
		},
	})

	mb.MustRegisterPublish(TopicScan, mqttbuilder.PublicationSpec{
		OperationID: services.OpPublishScanCommand,
		Summary:     "Scan lifecycle command",
		Description: "Retained, so a gateway connecting later learns whether it should be scanning.",
		Group:       GatewaysGroup,
		MessageType: types.ScanCommand{},
		QoS:         mqttbuilder.QoSAtLeastOnce,
		Retained:    true,
		Examples: map[string]any{
			"Start": types.ScanCommand{Action: types.ScanActionStart, Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		},
	})
}

// HandleAdvertisement ingests one forwarded advertisement. Undecodable messages are dropped.
func (h *Handler) HandleAdvertisement(_ pahomqtt.Client, msg pahomqtt.Message) {
	l := h.l.With(slog.String("topic", msg.Topic()), slog.String("gateway", gatewayFromTopic(msg.Topic())))

	adv, err := utils.FromJSON[types.Advertisement](msg.Payload())
	if err != nil {
		l.Warn("Dropping malformed advertisement message", utils.ErrAttr(err))
		return
	}

	if _, err := h.svc.Sensors.Ingest(adv); err != nil {
		l.Warn("Dropping invalid advertisement", slog.String("device", adv.DeviceID), utils.ErrAttr(err))
	}
}

// gatewayFromTopic extracts {gatewayID} from gateways/{gatewayID}/advertisements.
func gatewayFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "gateways" {
		return ""
	}

	return parts[1]
}
