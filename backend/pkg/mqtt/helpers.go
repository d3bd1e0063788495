package mqtt

import (
	"errors"
	"fmt"
	"strings"

	"envsensor/backend/pkg/generate"
)

// validateTopicPattern checks a topic written with {param} placeholders.
// Raw wildcards are refused so every variable segment is named and documented.
func validateTopicPattern(topic string) error {
	if topic == "" {
		return errors.New("topic cannot be empty")
	}

	if strings.HasPrefix(topic, "/") {
		return errors.New("leading slash is not allowed")
	}

	if strings.HasSuffix(topic, "/") {
		return errors.New("trailing slash is not allowed")
	}

	for segment := range strings.SplitSeq(topic, "/") {
		switch {
		case segment == "":
			return errors.New("empty segments are not allowed")
		case strings.Contains(segment, "#"):
			return errors.New("multi-level wildcard '#' is not supported, use {param} segments")
		case strings.Contains(segment, "+"):
			return errors.New("wildcard '+' is not supported, use {param} segments")
		case isParamSegment(segment):
			if name := segment[1 : len(segment)-1]; !generate.IsValidParameterName(name) {
				return fmt.Errorf("invalid parameter name '%s'", name)
			}
		case strings.ContainsAny(segment, "{}"):
			return errors.New("invalid parameter syntax, use {paramName}")
		}
	}

	return nil
}

func isParamSegment(segment string) bool {
	return strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}

// convertTopicToMQTT turns devices/{deviceID}/readings into devices/+/readings.
func convertTopicToMQTT(topic string) string {
	segments := strings.Split(topic, "/")
	for i, segment := range segments {
		if isParamSegment(segment) {
			segments[i] = "+"
		}
	}

	return strings.Join(segments, "/")
}

// expandTopic substitutes values into the {param} segments of topic, in order.
func expandTopic(topic string, values ...string) (string, error) {
	segments := strings.Split(topic, "/")
	next := 0

	for i, segment := range segments {
		if !isParamSegment(segment) {
			continue
		}

		if next >= len(values) {
			return "", fmt.Errorf("missing value for %s in topic %s", segment, topic)
		}

		value := values[next]
		if value == "" || strings.ContainsAny(value, "/+#") {
			return "", fmt.Errorf("invalid value %q for %s in topic %s", value, segment, topic)
		}

		segments[i] = value
		next++
	}

	if next != len(values) {
		return "", fmt.Errorf("topic %s takes %d values, got %d", topic, next, len(values))
	}

	return strings.Join(segments, "/"), nil
}

func validateQoS(qos QoS) error {
	if qos > QoSExactlyOnce {
		return errors.New("qos must be 0, 1, or 2")
	}

	return nil
}

// topicParameters checks that the documented parameters and the topic placeholders match exactly.
func topicParameters(topic string, documented []TopicParameter) ([]generate.MQTTTopicParameter, error) {
	inTopic := map[string]struct{}{}

	for section := range strings.SplitSeq(topic, "/") {
		names, err := generate.ExtractParamName(section)
		if err != nil {
			return nil, fmt.Errorf("invalid topic %s: %w", topic, err)
		}

		for _, name := range names {
			inTopic[name] = struct{}{}
		}
	}

	seen := map[string]struct{}{}
	params := make([]generate.MQTTTopicParameter, 0, len(documented))

	for _, p := range documented {
		switch {
		case p.Name == "":
			return nil, fmt.Errorf("parameter name required for topic %s", topic)
		case p.Description == "":
			return nil, fmt.Errorf("parameter Description required for topic %s", topic)
		case p.Type == nil:
			return nil, fmt.Errorf("parameter Type required for topic %s", topic)
		}

		if _, ok := inTopic[p.Name]; !ok {
			return nil, fmt.Errorf("documented parameter %s not found in topic", p.Name)
		}

		seen[p.Name] = struct{}{}
		params = append(params, generate.MQTTTopicParameter{Name: p.Name, TypeValue: p.Type, Description: p.Description})
	}

	for name := range inTopic {
		if _, ok := seen[name]; !ok {
			return nil, fmt.Errorf("topic parameter %s not documented", name)
		}
	}

	return params, nil
}

type operationMeta struct {
	OperationID string
	Summary     string
	Description string
	Group       string
	MessageType any
	QoS         QoS
}

func validateOperation(op operationMeta) error {
	switch {
	case op.OperationID == "":
		return errors.New("operationID is required")
	case op.Summary == "":
		return errors.New("summary is required")
	case op.Description == "":
		return errors.New("description is required")
	case op.Group == "":
		return errors.New("group is required")
	case op.MessageType == nil:
		return errors.New("messageType is required")
	}

	return validateQoS(op.QoS)
}
