package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/afkloop/internal/gameloop"
	"github.com/nerrad567/afkloop/internal/infrastructure/mqtt"
	"github.com/nerrad567/afkloop/internal/perception"
)

// WebSocket channels.
const (
	ChannelStageChanged       = "stage.changed"
	ChannelStageStalled       = "stage.stalled"
	ChannelNotify             = "notify"
	ChannelCycleStarted       = "cycle.started"
	ChannelDisconnect         = "disconnect"
	ChannelMatchCompleted     = "match.completed"
	ChannelRunFailed          = "run.failed"
	ChannelCalibrationChanged = "calibration.changed"
)

// Notification levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Broker publishes JSON to MQTT. Implemented by *mqtt.Client, which
// retains state topics.
type Broker interface {
	PublishJSON(topic string, v any) error
	IsConnected() bool
}

// Broadcaster pushes events to WebSocket clients. Implemented by *api.Hub.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Metrics writes time series. Implemented by *influxdb.Client.
type Metrics interface {
	WriteStageDwell(stage string, dwell time.Duration, stalled bool)
	WriteMatch(role, character, outcome string, duration time.Duration, disconnects int)
	WriteCalibration(predicateID string, threshold int, solved bool, change string)
}

// Logger defines the logging interface for the publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StageMessage is published on afkloop/stage and stage.* channels.
type StageMessage struct {
	Stage   string    `json:"stage"`
	Event   string    `json:"event"`
	DwellMS int64     `json:"dwell_ms,omitempty"`
	Stalled bool      `json:"stalled,omitempty"`
	At      time.Time `json:"at"`
}

// NotifyMessage is published on afkloop/notify and the notify channel.
type NotifyMessage struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// CalibrationMessage is published per predicate on afkloop/calibration/{id}.
type CalibrationMessage struct {
	Predicate string    `json:"predicate"`
	Threshold int       `json:"threshold"`
	Solved    bool      `json:"solved"`
	Change    string    `json:"change"`
	At        time.Time `json:"at"`
}

// Publisher fans events out to the attached sinks.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Sinks may be attached or
//     replaced while events flow.
type Publisher struct {
	mu      sync.RWMutex
	logger  Logger
	broker  Broker
	hub     Broadcaster
	metrics Metrics
	now     func() time.Time
}

var (
	_ gameloop.EventSink             = (*Publisher)(nil)
	_ gameloop.Notifier              = (*Publisher)(nil)
	_ perception.CalibrationObserver = (*Publisher)(nil)
)

// New returns a publisher that only logs.
func New(logger Logger) *Publisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Publisher{logger: logger, now: time.Now}
}

// SetBroker attaches (or with nil, detaches) the MQTT sink.
func (p *Publisher) SetBroker(b Broker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broker = b
}

// SetHub attaches the WebSocket sink.
func (p *Publisher) SetHub(h Broadcaster) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hub = h
}

// SetMetrics attaches the InfluxDB sink.
func (p *Publisher) SetMetrics(m Metrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = m
}

func (p *Publisher) sinks() (Broker, Broadcaster, Metrics) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.broker, p.hub, p.metrics
}

// publish sends v to MQTT when connected. Failures are logged at debug:
// the broker is a side channel and must not flood the session log.
func (p *Publisher) publish(topic string, v any) {
	broker, _, _ := p.sinks()
	if broker == nil || !broker.IsConnected() {
		return
	}
	if err := broker.PublishJSON(topic, v); err != nil {
		p.logger.Debug("mqtt publish failed", "topic", topic, "error", err)
	}
}

func (p *Publisher) broadcast(channel string, v any) {
	if _, hub, _ := p.sinks(); hub != nil {
		hub.Broadcast(channel, v)
	}
}

// ─── stage.Observer ─────────────────────────────────────────────────

// StageEntered publishes the retained current stage.
func (p *Publisher) StageEntered(name string) {
	p.logger.Debug("stage entered", "stage", name)
	msg := StageMessage{Stage: name, Event: "entered", At: p.now()}
	p.publish(mqtt.Topics{}.Stage(), msg)
	p.broadcast(ChannelStageChanged, msg)
}

// StageStalled reports a watchdog nudge.
func (p *Publisher) StageStalled(name string, dwell time.Duration) {
	p.logger.Warn("stage stalled", "stage", name, "dwell", dwell.Round(time.Second))
	msg := StageMessage{Stage: name, Event: "stalled", DwellMS: dwell.Milliseconds(), Stalled: true, At: p.now()}
	p.publish(mqtt.Topics{}.Stage(), msg)
	p.broadcast(ChannelStageStalled, msg)
}

// StageExited records the stage's dwell.
func (p *Publisher) StageExited(name string, dwell time.Duration, stalled bool) {
	p.logger.Debug("stage exited", "stage", name, "dwell", dwell.Round(time.Millisecond), "stalled", stalled)
	if _, _, metrics := p.sinks(); metrics != nil {
		metrics.WriteStageDwell(name, dwell, stalled)
	}
	p.broadcast(ChannelStageChanged, StageMessage{
		Stage: name, Event: "exited", DwellMS: dwell.Milliseconds(), Stalled: stalled, At: p.now(),
	})
}

// ─── gameloop.EventSink ─────────────────────────────────────────────

// CycleStarted announces a new cycle.
func (p *Publisher) CycleStarted(cycle int) {
	p.broadcast(ChannelCycleStarted, map[string]any{"cycle": cycle, "at": p.now()})
}

// Disconnected reports a disconnect and its classification.
func (p *Publisher) Disconnected(stage string, major bool) {
	p.logger.Info("disconnect classified", "stage", stage, "major", major)
	p.broadcast(ChannelDisconnect, map[string]any{"stage": stage, "major": major, "at": p.now()})
}

// MatchRecorded publishes a finished match.
func (p *Publisher) MatchRecorded(m gameloop.Match) {
	p.publish(mqtt.Topics{}.Match(), m)
	p.broadcast(ChannelMatchCompleted, m)
	if _, _, metrics := p.sinks(); metrics != nil {
		metrics.WriteMatch(m.Role, m.Character, string(m.Outcome), m.Duration(), m.Disconnects)
	}
}

// RunFailed reports an aborted run. The notification itself comes through Notify.
func (p *Publisher) RunFailed(err error) {
	p.broadcast(ChannelRunFailed, map[string]any{"error": err.Error(), "at": p.now()})
}

// ─── perception.CalibrationObserver ─────────────────────────────────

// CalibrationChanged publishes the retained threshold of a predicate.
func (p *Publisher) CalibrationChanged(id string, threshold int, solved bool, change perception.Change) {
	p.logger.Debug("calibration changed", "predicate", id, "threshold", threshold, "solved", solved, "change", change)
	msg := CalibrationMessage{Predicate: id, Threshold: threshold, Solved: solved, Change: change.String(), At: p.now()}
	p.publish(mqtt.Topics{}.Calibration(id), msg)
	p.broadcast(ChannelCalibrationChanged, msg)
	if _, _, metrics := p.sinks(); metrics != nil {
		metrics.WriteCalibration(id, threshold, solved, change.String())
	}
}

// ─── Notifier ───────────────────────────────────────────────────────

// Notify logs msg at level and forwards it to MQTT and the hub.
// Unknown levels are treated as info.
func (p *Publisher) Notify(_ context.Context, msg, level string) {
	switch level {
	case LevelError:
		p.logger.Error(msg)
	case LevelWarn:
		p.logger.Warn(msg)
	default:
		level = LevelInfo
		p.logger.Info(msg)
	}
	n := NotifyMessage{Level: level, Message: msg, At: p.now()}
	p.publish(mqtt.Topics{}.Notify(), n)
	p.broadcast(ChannelNotify, n)
}
