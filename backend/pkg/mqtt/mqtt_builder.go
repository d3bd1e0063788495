package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"envsensor/backend/pkg/generate"
	"envsensor/backend/pkg/utils"
)

// MQTTBuilder registers documented publications and subscriptions, then owns the broker connection.
type MQTTBuilder struct {
	client        pahomqtt.Client
	wrappedClient *MQTTClient
	collector     generate.MQTTMetadataCollector
	l             *slog.Logger
	operationIDs  map[string]struct{}
	publications  map[string]*PublicationSpec
	subscriptions map[string]*SubscriptionSpec
	connectHooks  []func()

	connected atomic.Bool
	started   atomic.Bool
}

type MQTTClientOptions struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

func NewMQTTBuilder(l *slog.Logger, collector generate.MQTTMetadataCollector, opts MQTTClientOptions) (*MQTTBuilder, error) {
	l = l.With(slog.String("component", "mqtt-builder"))

	if opts.BrokerURL == "" {
		return nil, errors.New("broker URL is required")
	}

	if opts.ClientID == "" {
		return nil, errors.New("client ID is required")
	}

	if collector == nil {
		return nil, errors.New("collector is required")
	}

	mb := &MQTTBuilder{
		collector:     collector,
		l:             l,
		operationIDs:  make(map[string]struct{}),
		publications:  make(map[string]*PublicationSpec),
		subscriptions: make(map[string]*SubscriptionSpec),
	}

	clientOpts := pahomqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(5 * time.Second).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(15 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(mb.onConnect).
		SetConnectionLostHandler(mb.onConnectionLost).
		SetReconnectingHandler(mb.onReconnecting)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}

	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	mb.client = pahomqtt.NewClient(clientOpts)
	mb.wrappedClient = &MQTTClient{client: mb.client, builder: mb}

	l.Info("MQTT builder created", slog.String("broker", opts.BrokerURL), slog.String("clientID", opts.ClientID))

	return mb, nil
}

func (mb *MQTTBuilder) Client() *MQTTClient {
	return mb.wrappedClient
}

// OnConnect registers fn to run after every connect and reconnect, once
// subscriptions are restored. It must be called before Connect.
func (mb *MQTTBuilder) OnConnect(fn func()) {
	mb.connectHooks = append(mb.connectHooks, fn)
}

// RegisterPublish registers a publication. It must be called before Connect.
func (mb *MQTTBuilder) RegisterPublish(topic string, spec PublicationSpec) error {
	params, err := mb.prepare(topic, operationMeta{
		OperationID: spec.OperationID,
		Summary:     spec.Summary,
		Description: spec.Description,
		Group:       spec.Group,
		MessageType: spec.MessageType,
		QoS:         spec.QoS,
	}, spec.TopicParameters)
	if err != nil {
		return err
	}

	spec.topic = topic
	spec.topicMQTT = convertTopicToMQTT(topic)

	if err := mb.collector.RegisterMQTTPublication(&generate.MQTTPublicationInfo{
		OperationID:     spec.OperationID,
		Topic:           topic,
		TopicMQTT:       spec.topicMQTT,
		TopicParameters: params,
		Summary:         spec.Summary,
		Description:     spec.Description,
		Group:           spec.Group,
		Deprecated:      spec.Deprecated,
		QoS:             byte(spec.QoS),
		Retained:        spec.Retained,
		TypeValue:       spec.MessageType,
		Examples:        spec.Examples,
	}); err != nil {
		return fmt.Errorf("failed to register publication with collector: %w", err)
	}

	mb.operationIDs[spec.OperationID] = struct{}{}
	mb.publications[spec.OperationID] = &spec

	mb.l.Debug("Registered MQTT publication", slog.String("operationID", spec.OperationID), slog.String("topic", topic))

	return nil
}

func (mb *MQTTBuilder) MustRegisterPublish(topic string, spec PublicationSpec) {
	if err := mb.RegisterPublish(topic, spec); err != nil {
		mb.l.Error("Failed to register publication", slog.String("operationID", spec.OperationID), slog.String("topic", topic), utils.ErrAttr(err))
		os.Exit(1)
	}
}

// RegisterSubscribe registers a subscription. It must be called before Connect.
func (mb *MQTTBuilder) RegisterSubscribe(topic string, spec SubscriptionSpec) error {
	if spec.Handler == nil {
		return errors.New("invalid subscription spec: handler is required")
	}

	params, err := mb.prepare(topic, operationMeta{
		OperationID: spec.OperationID,
		Summary:     spec.Summary,
		Description: spec.Description,
		Group:       spec.Group,
		MessageType: spec.MessageType,
		QoS:         spec.QoS,
	}, spec.TopicParameters)
	if err != nil {
		return err
	}

	spec.topic = topic
	spec.topicMQTT = convertTopicToMQTT(topic)

	if err := mb.collector.RegisterMQTTSubscription(&generate.MQTTSubscriptionInfo{
		OperationID:     spec.OperationID,
		Topic:           topic,
		TopicMQTT:       spec.topicMQTT,
		TopicParameters: params,
		Summary:         spec.Summary,
		Description:     spec.Description,
		Group:           spec.Group,
		Deprecated:      spec.Deprecated,
		QoS:             byte(spec.QoS),
		TypeValue:       spec.MessageType,
		Examples:        spec.Examples,
	}); err != nil {
		return fmt.Errorf("failed to register subscription with collector: %w", err)
	}

	mb.operationIDs[spec.OperationID] = struct{}{}
	mb.subscriptions[spec.OperationID] = &spec

	mb.l.Debug("Registered MQTT subscription", slog.String("operationID", spec.OperationID), slog.String("topic", topic))

	return nil
}

func (mb *MQTTBuilder) MustRegisterSubscribe(topic string, spec SubscriptionSpec) {
	if err := mb.RegisterSubscribe(topic, spec); err != nil {
		mb.l.Error("Failed to register subscription", slog.String("operationID", spec.OperationID), slog.String("topic", topic), utils.ErrAttr(err))
		os.Exit(1)
	}
}

func (mb *MQTTBuilder) prepare(topic string, op operationMeta, documented []TopicParameter) ([]generate.MQTTTopicParameter, error) {
	if mb.started.Load() {
		return nil, errors.New("cannot register operations after connecting to MQTT broker")
	}

	if err := validateTopicPattern(topic); err != nil {
		return nil, fmt.Errorf("invalid topic pattern: %w", err)
	}

	if err := validateOperation(op); err != nil {
		return nil, fmt.Errorf("invalid spec: %w", err)
	}

	if _, exists := mb.operationIDs[op.OperationID]; exists {
		return nil, fmt.Errorf("duplicate operationID: %s", op.OperationID)
	}

	params, err := topicParameters(topic, documented)
	if err != nil {
		return nil, fmt.Errorf("failed to generate topic parameters in operationID %s: %w", op.OperationID, err)
	}

	return params, nil
}

// Connect blocks until the first connection succeeds or ctx is done.
// The client keeps retrying in the background, so a cancelled Connect still leaves it reconnecting.
func (mb *MQTTBuilder) Connect(ctx context.Context) error {
	mb.started.Store(true)

	mb.l.Info("Connecting to MQTT broker")

	token := mb.client.Connect()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to connect to MQTT broker: %w", ctx.Err())
		case <-ticker.C:
			mb.l.Warn("MQTT has not done an initial connection yet, still waiting")
		case <-token.Done():
			if err := token.Error(); err != nil {
				return fmt.Errorf("failed to connect to MQTT broker: %w", err)
			}

			return nil
		}
	}
}

func (mb *MQTTBuilder) Disconnect() {
	if !mb.client.IsConnected() {
		return
	}

	mb.l.Info("Disconnecting from MQTT broker")
	mb.client.Disconnect(250)
	mb.connected.Store(false)
}

// onConnect runs on every connect and reconnect, so subscriptions survive broker restarts.
func (mb *MQTTBuilder) onConnect(client pahomqtt.Client) {
	mb.connected.Store(true)
	mb.l.Info("Connected to MQTT broker", slog.Int("subscriptions", len(mb.subscriptions)))

	for _, spec := range mb.subscriptions {
		token := client.Subscribe(spec.topicMQTT, byte(spec.QoS), spec.Handler)
		token.Wait()

		if err := token.Error(); err != nil {
			mb.l.Error("Failed to subscribe", slog.String("topic", spec.topicMQTT), slog.String("operationID", spec.OperationID), utils.ErrAttr(err))
			continue
		}

		mb.l.Info("Subscribed", slog.String("topic", spec.topicMQTT), slog.String("operationID", spec.OperationID))
	}

	for _, fn := range mb.connectHooks {
		fn()
	}
}

func (mb *MQTTBuilder) onConnectionLost(_ pahomqtt.Client, err error) {
	mb.connected.Store(false)
	mb.l.Warn("Connection to MQTT broker lost", utils.ErrAttr(err))
}

func (mb *MQTTBuilder) onReconnecting(_ pahomqtt.Client, opts *pahomqtt.ClientOptions) {
	if len(opts.Servers) > 0 {
		mb.l.Info("Reconnecting to MQTT broker", slog.String("broker", opts.Servers[0].String()))
	}
}
