package mqtt

import (
	"encoding/json"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Values of StatusMessage.Status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Values of StatusMessage.Reason for an offline status.
const (
	ReasonShutdown   = "graceful_shutdown"
	ReasonUnexpected = "unexpected_disconnect"
)

// StatusMessage is the retained payload on afkloop/status.
type StatusMessage struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	Reason   string `json:"reason,omitempty"`

	// Commands is true while afkloop/command/{action} is being routed.
	Commands  bool   `json:"commands"`
	Timestamp string `json:"timestamp"`
}

func statusPayload(clientID, status, reason string, commands bool) []byte {
	b, _ := json.Marshal(StatusMessage{ //nolint:errcheck // Plain fields always marshal
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Commands:  commands,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return b
}

// configureLWT has the broker publish a retained offline status if the
// process vanishes without Close.
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetBinaryWill(Topics{}.Status(), statusPayload(clientID, StatusOffline, ReasonUnexpected, false), 1, true)
}

// announce publishes the retained status without waiting for the broker.
func (c *Client) announce(status, reason string) pahomqtt.Token {
	commands := status == StatusOnline && c.routingCommands()
	return c.client.Publish(Topics{}.Status(), byte(c.cfg.QoS), true,
		statusPayload(c.cfg.Broker.ClientID, status, reason, commands))
}
