// Package perception turns screen regions into boolean facts.
//
// Each Predicate names a client-area region, a keyword list and a
// binarisation threshold. Check captures the region, converts it to a
// black-and-white image at the predicate's threshold, runs text recognition
// and reports whether any keyword appears in the (whitespace-stripped) text.
//
// # Calibration
//
// Recognition quality depends heavily on the threshold, so predicates start
// unsolved and sweep downward by ThresholdStep on every miss, wrapping from
// Floor back to Ceiling. The first hit marks the predicate solved and the
// sweep stops. While the stage watchdog reports a stall, solved predicates
// sweep again (Mode.Forced). The sweep itself is the pure function Evaluate;
// Engine only applies its result and persists it through a ThresholdStore.
//
// Usage:
//
//	engine := perception.NewEngine(cfg, preds, perception.Deps{
//	    Capturer:   screen,
//	    Recognizer: tess,
//	    Store:      perception.NewSQLiteStore(db.DB),
//	    Mode:       shared,
//	})
//	if err := engine.LoadCalibrations(ctx); err != nil {
//	    return err
//	}
//	inHall, err := engine.Check(ctx, config.PredicateMatchingHall)
package perception
