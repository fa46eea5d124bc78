// Package state holds the blackboard shared by the control loop and its workers.
//
// Each field has a single writer:
//   - stop: the CLI (signals) and the control surfaces
//   - stage: the stage watchdog
//   - forced recalibration: the stage watchdog
//   - character index, current character and cycle count: the game loop
//   - key snapshots: the worker supervisor
//
// Readers go through the accessor methods, which are safe for concurrent use.
package state
