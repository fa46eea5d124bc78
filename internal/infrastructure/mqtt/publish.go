package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxPayloadSize caps a single message at 1MB.
const maxPayloadSize = 1 << 20

// PublishJSON marshals v and publishes it on an afkloop topic at the
// configured QoS. Whether the broker retains it follows Topics.Retained:
// stage and calibration state is kept for late subscribers, notify and
// match events are not.
//
// Returns:
//   - error: ErrInvalidTopic, ErrNotConnected or ErrPublishFailed
func (c *Client) PublishJSON(topic string, v any) error {
	if !strings.HasPrefix(topic, TopicPrefix+"/") {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	if _, isCommand := (Topics{}).CommandAction(topic); isCommand {
		return fmt.Errorf("%w: %s is a control topic", ErrInvalidTopic, topic)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %w", ErrPublishFailed, err)
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), Topics{}.Retained(topic), payload)
	return wait(token, ErrPublishFailed)
}
