// Package desktop drives the real screen, keyboard and mouse through robotgo.
//
// All coordinates taken by this package are client-area coordinates. The
// configured window offset is added before anything touches the screen, so
// the rest of the program never sees absolute positions.
package desktop
