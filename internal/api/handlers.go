package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/afkloop/internal/audit"
	"github.com/nerrad567/afkloop/internal/auth"
	"github.com/nerrad567/afkloop/internal/control"
	"github.com/nerrad567/afkloop/internal/gameloop"
	"github.com/nerrad567/afkloop/internal/state"
)

const (
	healthTimeout     = 2 * time.Second
	defaultMatchLimit = 20
	maxMatchLimit     = 200
)

// handleHealth reports liveness plus the database and broker state.
// A failing database degrades the status but still answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.db.HealthCheck(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = err.Error()
		} else {
			resp["database"] = "ok"
		}
	}
	if s.mqtt != nil {
		resp["mqtt_connected"] = s.mqtt.IsConnected()
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Run     state.Status      `json:"run"`
	Control *control.Snapshot `json:"control,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{Run: s.state.Status()}
	if s.control != nil {
		snap := s.control.Snapshot()
		resp.Control = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

// CalibrationView is one predicate in GET /calibrations.
type CalibrationView struct {
	PredicateID string `json:"predicate_id"`
	Threshold   int    `json:"threshold"`
	Floor       int    `json:"floor"`
	Ceiling     int    `json:"ceiling"`
	Solved      bool   `json:"solved"`
}

func (s *Server) handleCalibrations(w http.ResponseWriter, _ *http.Request) {
	if s.predicates == nil {
		writeUnavailable(w, "perception not running")
		return
	}
	preds := s.predicates.Predicates()
	out := make([]CalibrationView, len(preds))
	for i, p := range preds {
		out[i] = CalibrationView{
			PredicateID: p.ID,
			Threshold:   p.Threshold,
			Floor:       p.Floor,
			Ceiling:     p.Ceiling,
			Solved:      p.Solved,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"calibrations": out})
}

// MatchesResponse is the body of GET /matches.
type MatchesResponse struct {
	Matches []gameloop.Match          `json:"matches"`
	Summary map[gameloop.Outcome]int `json:"summary"`
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if s.matches == nil {
		writeUnavailable(w, "match history not available")
		return
	}
	limit := defaultMatchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxMatchLimit)
	}

	matches, err := s.matches.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing matches", "error", err)
		writeInternalError(w, "failed to list matches")
		return
	}
	summary, err := s.matches.Summary(r.Context())
	if err != nil {
		s.logger.Error("summarising matches", "error", err)
		writeInternalError(w, "failed to summarise matches")
		return
	}
	if matches == nil {
		matches = []gameloop.Match{}
	}
	writeJSON(w, http.StatusOK, MatchesResponse{Matches: matches, Summary: summary})
}

// handleAudit lists control actions, newest first. Query: action, source,
// limit (1-200, default 50), offset.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeUnavailable(w, "audit log not available")
		return
	}
	q := r.URL.Query()
	filter := audit.Filter{Action: q.Get("action"), Source: q.Get("source")}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, p.name+" must be a non-negative integer")
			return
		}
		*p.dst = n
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit log", "error", err)
		writeInternalError(w, "failed to list audit log")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if s.control == nil {
		writeUnavailable(w, "control not available")
		return
	}
	action := chi.URLParam(r, "action")

	ctx := control.WithOrigin(r.Context(), control.Origin{
		Source:  audit.SourceAPI,
		Subject: subject(r.Context()),
	})
	err := s.control.Do(ctx, action)
	switch {
	case err == nil:
		s.logger.Info("control action via api", "action", action, "subject", subject(r.Context()))
		writeJSON(w, http.StatusOK, map[string]any{
			"action":  action,
			"control": s.control.Snapshot(),
		})
	case errors.Is(err, control.ErrUnknownAction):
		writeBadRequest(w, err.Error())
	case errors.Is(err, control.ErrStopped):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		s.logger.Error("control action failed", "action", action, "error", err)
		writeInternalError(w, "control action failed")
	}
}

type tokenRequest struct {
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleToken exchanges the operator password for a token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeBadRequest(w, "password is required")
		return
	}

	token, expires, err := s.auth.Login(req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrIssuanceDisabled):
		writeUnavailable(w, "token issuance is not configured")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.logger.Warn("operator login failed", "remote", r.RemoteAddr)
		writeUnauthorized(w, "invalid credentials")
		return
	default:
		s.logger.Error("issuing token", "error", err)
		writeInternalError(w, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(expires).Seconds()),
	})
}

// subject returns the authenticated subject for logging.
func subject(ctx context.Context) string {
	if c := claimsFromContext(ctx); c != nil {
		return c.Subject
	}
	return ""
}
