package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// CommandHandler applies one remote control action, e.g. CommandPause.
// It runs on a paho goroutine. A returned error is logged.
type CommandHandler func(action string) error

type commandRoute struct {
	qos     byte
	handler CommandHandler
}

// SubscribeCommands routes afkloop/command/{action} messages to handler.
// Only known actions reach it, and retained messages are dropped so a
// command left on the broker cannot act on a later run. The route survives
// reconnects. A second call replaces the handler.
//
// Returns:
//   - error: ErrInvalidQoS, ErrNotConnected or ErrSubscribeFailed
func (c *Client) SubscribeCommands(qos byte, handler CommandHandler) error {
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Stored first so a reconnect during the subscribe restores it.
	route := &commandRoute{qos: qos, handler: handler}
	c.mu.Lock()
	previous := c.commands
	c.commands = route
	c.mu.Unlock()

	if err := wait(c.subscribe(route), ErrSubscribeFailed); err != nil {
		c.mu.Lock()
		if c.commands == route {
			c.commands = previous
		}
		c.mu.Unlock()
		return err
	}
	c.announce(StatusOnline, "")
	return nil
}

func (c *Client) subscribe(route *commandRoute) pahomqtt.Token {
	return c.client.Subscribe(Topics{}.AllCommands(), route.qos, c.onCommand(route.handler))
}

// onCommand adapts handler to paho.
func (c *Client) onCommand(handler CommandHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		if msg.Retained() {
			c.log().Warn("ignoring retained MQTT command", "topic", msg.Topic())
			return
		}
		c.route(handler, msg.Topic())
	}
}

// route hands the action in topic to handler, recovering a panic.
func (c *Client) route(handler CommandHandler, topic string) {
	log := c.log()
	defer func() {
		if r := recover(); r != nil {
			log.Error("MQTT command handler panic recovered", "topic", topic, "panic", r)
		}
	}()

	action, ok := Topics{}.CommandAction(topic)
	if !ok || !IsCommand(action) {
		log.Warn("ignoring unknown MQTT command", "topic", topic)
		return
	}
	if err := handler(action); err != nil {
		log.Warn("MQTT command failed", "action", action, "error", err)
	}
}

// restoreCommands re-subscribes the command route after a reconnect and
// reports whether there was one. It does not block the connect handler; a
// failure is logged and the next reconnect tries again.
func (c *Client) restoreCommands() bool {
	c.mu.RLock()
	route := c.commands
	c.mu.RUnlock()
	if route == nil {
		return false
	}

	token := c.subscribe(route)
	go func() {
		if err := wait(token, ErrSubscribeFailed); err != nil {
			c.log().Warn("restoring MQTT command route", "error", err)
		}
	}()
	return true
}

func (c *Client) routingCommands() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.commands != nil
}
