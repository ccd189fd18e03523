package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attendance-control-plane/internal/checkin"
	"attendance-control-plane/internal/fingerprint"
	organizerservice "attendance-control-plane/internal/organizer/service"
	"attendance-control-plane/internal/server/middleware"
	sessionservice "attendance-control-plane/internal/session/service"
	"attendance-control-plane/internal/telemetry"
	telemetrydomain "attendance-control-plane/internal/telemetry/domain"
)

type checkinRequest struct {
	Token    string              `json:"token"`
	Identity string              `json:"identity"`
	Signals  fingerprint.Signals `json:"signals"`
}

type checkinResponse struct {
	Accepted    bool   `json:"accepted"`
	Outcome     string `json:"outcome,omitempty"`
	Reason      string `json:"reason,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

func (s *Server) handleCheckin(w http.ResponseWriter, r *http.Request) {
	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.arbiter.Submit(r.Context(), checkin.Request{
		TokenValue: req.Token,
		Identity:   req.Identity,
		Signals:    req.Signals,
	})
	if err != nil {
		s.metrics.RecordDeny(r.Context(), checkin.ReasonInfrastructureError)
		writeError(w, http.StatusInternalServerError, checkin.ReasonInfrastructureError)
		return
	}

	event := &telemetrydomain.Event{
		SessionID: res.SessionID,
		Identity:  req.Identity,
		DeviceKey: res.DeviceKey,
		Source:    "server",
		CreatedAt: time.Now().UTC(),
	}
	if res.Accepted {
		s.metrics.RecordAccept(r.Context(), string(res.Outcome))
		event.EventType = telemetrydomain.EventCheckinAccepted
		event.Metadata = map[string]string{"outcome": string(res.Outcome)}
	} else {
		s.metrics.RecordDeny(r.Context(), res.Reason)
		event.EventType = telemetrydomain.EventCheckinDenied
		event.Metadata = map[string]string{"reason": res.Reason}
	}
	telemetry.EmitAsync(s.emitter, r.Context(), event)

	writeJSON(w, http.StatusOK, checkinResponse{
		Accepted:    res.Accepted,
		Outcome:     string(res.Outcome),
		Reason:      res.Reason,
		DisplayName: res.DisplayName,
	})
}

type sessionResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Status           string    `json:"status"`
	Phase            string    `json:"phase,omitempty"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	LateThresholdMin int       `json:"late_threshold_minutes"`
	TokenValue       string    `json:"token,omitempty"`
	Present          int       `json:"present"`
	Late             int       `json:"late"`
	Absent           int       `json:"absent"`
}

func (s *Server) handleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sessionservice.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		ID:               snap.ID,
		Name:             snap.Name,
		Status:           string(snap.Status),
		Phase:            string(snap.Phase),
		StartTime:        snap.StartTime,
		EndTime:          snap.EndTime,
		LateThresholdMin: int(snap.LateThreshold.Minutes()),
		Present:          snap.Present,
		Late:             snap.Late,
		Absent:           snap.Absent,
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, organizerservice.ErrEmailAlreadyRegistered) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"organizer_id": res.OrganizerID,
		"email":        res.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, organizerservice.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": res.AccessToken,
		"expires_at":   res.ExpiresAt,
		"organizer_id": res.OrganizerID,
		"name":         res.Name,
	})
}

type sessionCreateRequest struct {
	Name                 string    `json:"name"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	LateThresholdMinutes int       `json:"late_threshold_minutes"`
	RosterRef            string    `json:"roster_ref"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	organizerID, _ := middleware.GetOrganizerID(r.Context())
	var req sessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.sessions.Create(r.Context(), req.Name, organizerID,
		req.StartTime, req.EndTime, time.Duration(req.LateThresholdMinutes)*time.Minute, req.RosterRef)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	telemetry.EmitAsync(s.emitter, r.Context(), &telemetrydomain.Event{
		SessionID:   sess.ID,
		OrganizerID: organizerID,
		EventType:   telemetrydomain.EventSessionCreated,
		Source:      "server",
		CreatedAt:   time.Now().UTC(),
	})
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	organizerID, _ := middleware.GetOrganizerID(r.Context())
	sessions, err := s.sessions.ListByOrganizer(r.Context(), organizerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]map[string]any, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, map[string]any{
			"id":         sess.ID,
			"name":       sess.Name,
			"status":     string(sess.Status),
			"start_time": sess.StartTime,
			"end_time":   sess.EndTime,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.ownsSession(w, r, id) {
		return
	}
	if err := s.sessions.Stop(r.Context(), id); err != nil {
		writeSessionError(w, err)
		return
	}
	organizerID, _ := middleware.GetOrganizerID(r.Context())
	telemetry.EmitAsync(s.emitter, r.Context(), &telemetrydomain.Event{
		SessionID:   id,
		OrganizerID: organizerID,
		EventType:   telemetrydomain.EventSessionStopped,
		Source:      "server",
		CreatedAt:   time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleTokenRotate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.ownsSession(w, r, id) {
		return
	}
	tok, err := s.sessions.Rotate(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	telemetry.EmitAsync(s.emitter, r.Context(), &telemetrydomain.Event{
		SessionID: id,
		EventType: telemetrydomain.EventTokenRotated,
		Source:    "server",
		CreatedAt: time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": tok.Value})
}

func (s *Server) handleCurrentToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.ownsSession(w, r, id) {
		return
	}
	snap, err := s.sessions.Snapshot(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": snap.TokenValue})
}

func (s *Server) handleAttendanceLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.ownsSession(w, r, id) {
		return
	}
	records, err := s.attendance.ListBySession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, map[string]any{
			"identity":    rec.Identity,
			"device_key":  rec.DeviceKey,
			"outcome":     string(rec.Outcome),
			"recorded_at": rec.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (s *Server) handleDenialLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.ownsSession(w, r, id) {
		return
	}
	records, err := s.denials.ListBySession(r.Context(), id, 200)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, map[string]any{
			"identity":   rec.Identity,
			"device_key": rec.DeviceKey,
			"reason":     rec.Reason,
			"created_at": rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"denials": out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ownsSession checks that the authenticated organizer owns the session. It
// writes the error response and returns false when they do not.
func (s *Server) ownsSession(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	organizerID, ok := middleware.GetOrganizerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return false
	}
	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeSessionError(w, err)
		return false
	}
	if sess.OrganizerID != organizerID {
		writeError(w, http.StatusForbidden, "session belongs to another organizer")
		return false
	}
	return true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionservice.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, sessionservice.ErrTerminal):
		writeError(w, http.StatusConflict, "session already terminated")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
