package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"envsensor/backend/pkg/utils"
)

const publishTimeout = 5 * time.Second

// MQTTClient publishes through the publications registered on its builder.
type MQTTClient struct {
	client  pahomqtt.Client
	builder *MQTTBuilder
}

// Publish serializes payload as JSON and sends it on the topic of the publication
// identified by operationID, filling its {param} segments with topicValues in order.
func (c *MQTTClient) Publish(operationID string, payload any, topicValues ...string) error {
	pub, ok := c.builder.publications[operationID]
	if !ok {
		return fmt.Errorf("publication not found for operationID %s", operationID)
	}

	topic, err := expandTopic(pub.topic, topicValues...)
	if err != nil {
		return err
	}

	body, err := utils.ToJSON(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	token := c.client.Publish(topic, byte(pub.QoS), pub.Retained, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to topic %s", topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	return nil
}

// IsConnected reports whether the connection to the broker is currently up.
func (c *MQTTClient) IsConnected() bool {
	return c.builder.connected.Load()
}
