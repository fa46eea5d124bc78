// Package telemetry fans run events out to logs, MQTT, the WebSocket hub
// and InfluxDB.
//
// A single Publisher implements every observer interface the core exposes:
// stage.Observer, gameloop.EventSink, perception.CalibrationObserver and the
// Notify method shared by gameloop, script and worker. Every event is logged.
// The remote sinks are optional and may be attached after construction,
// because the API hub only exists once the server has started.
package telemetry
