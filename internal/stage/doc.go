// Package stage tracks how long the control loop dwells in a named stage
// and nudges the game once when it stays too long.
//
// A stage is bracketed by Enter and Exit. Inside a bracket, the first
// CheckStay call that finds the dwell above its threshold clicks the safe
// point and turns on forced recalibration, so every recognition predicate
// resumes its threshold sweep. Exit turns it off again. The nudge fires at
// most once per bracket.
package stage
