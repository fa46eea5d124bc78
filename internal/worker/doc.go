// Package worker runs the in-match input loops and coordinates suspend.
//
// Two workers run while a match is in progress:
//   - keepalive: holds the keepalive key (space) for a few seconds, then
//     releases it, forever
//   - action: runs the operator's script, or a built-in role routine when
//     no script applies
//
// Each worker sends input through its own input.Tracker so a suspend can
// release exactly what that worker holds and re-press it afterwards.
//
// Lifecycle:
//
//	sup := worker.NewSupervisor(keepalive, action, worker.NewGateSuspender(gate), st)
//	sup.StartAll(ctx)
//	...
//	sup.Suspend(ctx)         // release held inputs, pause
//	sup.ResumeProcess(ctx)   // unpause, re-press
//	sup.StopAll()
//
// Workers check the pause gate and the stop flag only between discrete
// input operations. Each worker's input.Tracker holds back new presses
// while the gate is paused and lets releases through, so a key already
// down is still let go.
package worker
