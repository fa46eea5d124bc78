// Package api provides the HTTP status and control API and the WebSocket
// event stream for afkloop.
//
// Routes (all under /api/v1):
//
//	GET  /health             liveness, no auth
//	POST /auth/token         exchange the operator password for a JWT
//	GET  /status             run state and control flags      (status:read)
//	GET  /metrics            runtime, worker and sink metrics (status:read)
//	GET  /calibrations       live predicate thresholds        (status:read)
//	GET  /matches            recent matches and outcome totals (status:read)
//	GET  /audit              control action history           (status:read)
//	POST /control/{action}   pause, resume, stop, suspend, resume-process (run:control)
//	GET  /ws                 event stream; token in the query string (status:read)
//
// The first WebSocket frame is a "snapshot" of the run state. Clients then
// subscribe to channels by exact name ("stage.changed"), by prefix
// ("match.*") or to everything ("*"). Events carry a hub-wide seq; a gap
// means the client fell behind and events were dropped.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
