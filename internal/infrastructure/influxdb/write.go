package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementStageDwell  = "stage_dwell"
	MeasurementMatch       = "match"
	MeasurementCalibration = "calibration"
)

// WriteStageDwell records how long a stage lasted. A stalled stage is sent
// at once.
func (c *Client) WriteStageDwell(stage string, dwell time.Duration, stalled bool) {
	c.write(StageDwellPoint(stage, dwell, stalled, time.Now()), stalled)
}

// WriteMatch records one finished match and sends the batch at once.
//
// Parameters:
//   - role: "survivor" or "killer"
//   - character: Selected character, may be empty
//   - outcome: "completed", "reconnected" or "aborted"
//   - duration: Match length
//   - disconnects: Disconnects seen during the match
func (c *Client) WriteMatch(role, character, outcome string, duration time.Duration, disconnects int) {
	c.write(MatchPoint(role, character, outcome, duration, disconnects, time.Now()), true)
}

// WriteCalibration records a threshold change for a predicate. Sweeps step
// often, so these wait for the batch.
func (c *Client) WriteCalibration(predicateID string, threshold int, solved bool, change string) {
	c.write(CalibrationPoint(predicateID, threshold, solved, change, time.Now()), false)
}

// write queues p and, when prompt is set, asks for an early flush. Points
// written after Close are dropped.
func (c *Client) write(p *write.Point, prompt bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.open {
		return
	}
	c.points.WritePoint(p)
	if prompt {
		select {
		case c.flush <- struct{}{}:
		default:
			// A flush is already pending and will carry p.
		}
	}
}

// StageDwellPoint builds a stage_dwell point.
func StageDwellPoint(stage string, dwell time.Duration, stalled bool, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementStageDwell,
		map[string]string{
			"stage":   stage,
			"stalled": strconv.FormatBool(stalled),
		},
		map[string]interface{}{
			"seconds": dwell.Seconds(),
		},
		at,
	)
}

// MatchPoint builds a match point. The character is a field to keep tag
// cardinality low.
func MatchPoint(role, character, outcome string, duration time.Duration, disconnects int, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementMatch,
		map[string]string{
			"role":    role,
			"outcome": outcome,
		},
		map[string]interface{}{
			"seconds":     duration.Seconds(),
			"disconnects": disconnects,
			"character":   character,
		},
		at,
	)
}

// CalibrationPoint builds a calibration point.
func CalibrationPoint(predicateID string, threshold int, solved bool, change string, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementCalibration,
		map[string]string{
			"predicate": predicateID,
			"change":    change,
		},
		map[string]interface{}{
			"threshold": threshold,
			"solved":    solved,
		},
		at,
	)
}
