// Package gameloop drives the top-level match cycle.
//
// One cycle walks Matching → Ready → InGame → Settlement. Each stage polls
// perception predicates, clicks its way forward and services a stage
// watchdog so that a screen nobody recognises cannot hold the loop forever.
// A disconnect anywhere hands control to recovery, which classifies the
// disconnect as minor (a hall or the settlement screen is still visible) or
// major (the client fell back to its main menu) and walks back to a hall.
//
// Run executes on the caller's goroutine. Workers are started when a match
// begins and are stopped at settlement, on disconnect and when Run returns
// early.
//
// Usage:
//
//	ctrl := gameloop.New(gameloop.OptionsFromConfig(cfg), gameloop.Deps{
//	    Perception: engine,
//	    Watchdog:   watchdog,
//	    Input:      device,
//	    Workers:    supervisor,
//	    Gate:       gate,
//	    State:      st,
//	    Recorder:   gameloop.NewSQLiteRecorder(db.DB),
//	})
//	ctrl.SetLogger(logger.Component("gameloop"))
//	err := ctrl.Run(ctx)
package gameloop
