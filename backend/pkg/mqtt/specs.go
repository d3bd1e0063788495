package mqtt

import (
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

type QoS byte

const (
	QoSAtMostOnce  QoS = 0
	QoSAtLeastOnce QoS = 1
	QoSExactlyOnce QoS = 2
)

// TopicParameter documents one {param} segment of a topic pattern.
type TopicParameter struct {
	Name        string
	Description string
	Type        any
}

// PublicationSpec describes a message the service publishes.
type PublicationSpec struct {
	OperationID     string
	Summary         string
	Description     string
	Group           string
	Deprecated      string
	TopicParameters []TopicParameter
	MessageType     any
	QoS             QoS
	Retained        bool
	Examples        map[string]any

	// Filled in at registration.
	topic     string
	topicMQTT string
}

// SubscriptionSpec describes a topic the service consumes.
type SubscriptionSpec struct {
	OperationID     string
	Summary         string
	Description     string
	Group           string
	Deprecated      string
	TopicParameters []TopicParameter
	MessageType     any
	Handler         pahomqtt.MessageHandler
	QoS             QoS
	Examples        map[string]any

	topic     string
	topicMQTT string
}
