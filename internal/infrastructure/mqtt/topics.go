package mqtt

import "strings"

// TopicPrefix roots every afkloop topic.
const TopicPrefix = "afkloop"

// Remote control actions accepted on afkloop/command/{action}.
const (
	CommandPause         = "pause"
	CommandResume        = "resume"
	CommandStop          = "stop"
	CommandSuspend       = "suspend"
	CommandResumeProcess = "resume-process"
)

// Topics builds afkloop topic names.
//
//	topics := mqtt.Topics{}
//	topics.Calibration("settlement") // "afkloop/calibration/settlement"
type Topics struct{}

// Status is the retained online/offline topic, also used for the Last Will.
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// Stage carries the retained current stage.
func (Topics) Stage() string {
	return TopicPrefix + "/stage"
}

// Notify carries operator notifications.
func (Topics) Notify() string {
	return TopicPrefix + "/notify"
}

// Match carries one message per finished match.
func (Topics) Match() string {
	return TopicPrefix + "/match"
}

// Calibration carries the retained threshold of one predicate.
func (Topics) Calibration(predicateID string) string {
	return TopicPrefix + "/calibration/" + predicateID
}

// Command is the control topic for one action.
func (Topics) Command(action string) string {
	return TopicPrefix + "/command/" + action
}

// AllCommands matches every control topic.
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// Retained reports whether topic carries state rather than events. The
// broker keeps the last state message so a dashboard that connects late sees
// the current status, stage and thresholds.
func (t Topics) Retained(topic string) bool {
	switch {
	case topic == t.Status(), topic == t.Stage():
		return true
	case strings.HasPrefix(topic, TopicPrefix+"/calibration/"):
		return true
	}
	return false
}

// CommandAction extracts the action from a control topic.
// ok is false for anything that is not afkloop/command/{action}.
func (Topics) CommandAction(topic string) (action string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefix+"/command/")
	if !found || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// IsCommand reports whether action is one of the known control actions.
func IsCommand(action string) bool {
	switch action {
	case CommandPause, CommandResume, CommandStop, CommandSuspend, CommandResumeProcess:
		return true
	}
	return false
}
