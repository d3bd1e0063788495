package generate

// MetadataCollector receives every HTTP and MQTT operation at registration time.
type MetadataCollector interface {
	HTTPMetadataCollector
	MQTTMetadataCollector
	Generate() error
}

type HTTPMetadataCollector interface {
	RegisterRoute(route *RouteInfo) error
}

type MQTTMetadataCollector interface {
	RegisterMQTTPublication(pub *MQTTPublicationInfo) error
	RegisterMQTTSubscription(sub *MQTTSubscriptionInfo) error
}

// ParameterInfo describes a path, query or header parameter.
type ParameterInfo struct {
	Name        string `json:"name"`
	In          string `json:"in"`
	TypeValue   any    `json:"-"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type RequestInfo struct {
	TypeValue any            `json:"-"`
	Examples  map[string]any `json:"examples,omitempty"`
}

type ResponseInfo struct {
	Description string `json:"description"`
	// ContentType defaults to application/json.
	ContentType string         `json:"contentType,omitempty"`
	TypeValue   any            `json:"-"`
	Examples    map[string]any `json:"examples,omitempty"`
}

type RouteInfo struct {
	OperationID string               `json:"operationID"`
	Method      string               `json:"method"`
	Path        string               `json:"path"`
	Summary     string               `json:"summary"`
	Description string               `json:"description"`
	Group       string               `json:"group"`
	Deprecated  string               `json:"deprecated,omitempty"`
	Parameters  []ParameterInfo      `json:"parameters,omitempty"`
	Request     *RequestInfo         `json:"request,omitempty"`
	Responses   map[int]ResponseInfo `json:"responses"`
}

type MQTTTopicParameter struct {
	Name        string `json:"name"`
	TypeValue   any    `json:"-"`
	Description string `json:"description"`
}

type MQTTPublicationInfo struct {
	OperationID     string               `json:"operationID"`
	Topic           string               `json:"topic"`
	TopicMQTT       string               `json:"topicMQTT"`
	TopicParameters []MQTTTopicParameter `json:"topicParameters,omitempty"`
	Summary         string               `json:"summary"`
	Description     string               `json:"description"`
	Group           string               `json:"group"`
	Deprecated      string               `json:"deprecated,omitempty"`
	QoS             byte                 `json:"qos"`
	Retained        bool                 `json:"retained"`
	TypeValue       any                  `json:"-"`
	Examples        map[string]any       `json:"examples,omitempty"`
}

type MQTTSubscriptionInfo struct {
	OperationID     string               `json:"operationID"`
	Topic           string               `json:"topic"`
	TopicMQTT       string               `json:"topicMQTT"`
	TopicParameters []MQTTTopicParameter `json:"topicParameters,omitempty"`
	Summary         string               `json:"summary"`
	Description     string               `json:"description"`
	Group           string               `json:"group"`
	Deprecated      string               `json:"deprecated,omitempty"`
	QoS             byte                 `json:"qos"`
	TypeValue       any                  `json:"-"`
	Examples        map[string]any       `json:"examples,omitempty"`
}

type APIInfo struct {
	Title       string       `json:"title"`
	Version     string       `json:"version"`
	Description string       `json:"description"`
	Servers     []ServerInfo `json:"servers,omitempty"`
}

type ServerInfo struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// NoopCollector is used outside generate mode.
type NoopCollector struct{}

func (NoopCollector) RegisterRoute(*RouteInfo) error                       { return nil }
func (NoopCollector) RegisterMQTTPublication(*MQTTPublicationInfo) error   { return nil }
func (NoopCollector) RegisterMQTTSubscription(*MQTTSubscriptionInfo) error { return nil }
func (NoopCollector) Generate() error                                      { return nil }
