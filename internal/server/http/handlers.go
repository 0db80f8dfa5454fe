package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"ibridge/internal/domain"
	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
)

// selectFunc is the shared shape of SetModel and SetMode.
type selectFunc func(ctx context.Context, name string) (ports.SelectResult, error)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "ibridge",
		"timestamp": time.Now().Unix(),
	})
}

// handleStatus handles GET /api/v1/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"automation_available": s.automator.Available(ctx),
	}
	if s.monitor != nil {
		status["workspace_path"] = s.monitor.LastPath()
	}
	if s.inbox != nil {
		if count, err := s.inbox.Count(); err == nil {
			status["inbox_count"] = count
		}
	}
	if s.quota != nil && s.quota.IsAvailable(ctx) {
		if quota, err := s.quota.GetQuota(ctx); err == nil {
			status["quota"] = quota
		}
	}

	s.respondJSON(w, http.StatusOK, status)
}

// handleState handles GET /api/v1/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.automator.State(r.Context())
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

type selectRequest struct {
	Name string `json:"name"`
}

// handleSetModel handles POST /api/v1/model
func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	s.handleSelect(w, r, s.automator.SetModel)
}

// handleSetMode handles POST /api/v1/mode
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	s.handleSelect(w, r, s.automator.SetMode)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request, selectFn selectFunc) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := selectFn(r.Context(), req.Name)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, result)
	case errors.Is(err, domain.ErrEmptyInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoEditorTarget):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrNoCandidateMatch), errors.Is(err, domain.ErrNotClickable):
		// The attempt ran but did not land; the result carries diagnostics.
		s.respondJSON(w, http.StatusOK, result)
	default:
		s.respondError(w, http.StatusBadGateway, err.Error())
	}
}

// handleWorkspace handles GET /api/v1/workspace
func (s *Server) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	path, ok := s.automator.WorkspacePath(r.Context())
	if !ok && s.monitor != nil {
		// Fall back to the last known good value.
		if last := s.monitor.LastPath(); last != "" {
			path, ok = last, true
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"path":  path,
		"known": ok,
	})
}

// handleApprovals handles GET /api/v1/approvals
func (s *Server) handleApprovals(w http.ResponseWriter, r *http.Request) {
	state, err := s.automator.Approvals(r.Context())
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

type approvalRequest struct {
	Decision string `json:"decision"` // "approve" or "reject"
}

// handleRespondApproval handles POST /api/v1/approvals/respond
func (s *Server) handleRespondApproval(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var approve bool
	switch req.Decision {
	case "approve":
		approve = true
	case "reject":
		approve = false
	default:
		s.respondError(w, http.StatusBadRequest, `decision must be "approve" or "reject"`)
		return
	}

	result, err := s.automator.RespondApproval(r.Context(), approve)
	if err != nil {
		if errors.Is(err, domain.ErrNoEditorTarget) {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleScreenshot handles GET /api/v1/screenshot
func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	img, format, err := s.automator.Screenshot(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoEditorTarget) {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/"+format)
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	if _, err := w.Write(img); err != nil {
		log.Debug().Err(err).Msg("failed to write screenshot response")
	}
}

// handlePairing handles GET /api/v1/pairing
func (s *Server) handlePairing(w http.ResponseWriter, r *http.Request) {
	if s.qr == nil {
		s.respondError(w, http.StatusNotFound, "pairing not configured")
		return
	}
	s.respondJSON(w, http.StatusOK, s.qr.GetPairingInfo())
}

// handlePairingQR handles GET /api/v1/pairing/qr
func (s *Server) handlePairingQR(w http.ResponseWriter, r *http.Request) {
	if s.qr == nil {
		s.respondError(w, http.StatusNotFound, "pairing not configured")
		return
	}

	size := 256
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 64 && n <= 1024 {
			size = n
		}
	}

	png, err := s.qr.GeneratePNG(size)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// handleHistory handles GET /api/v1/messages
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotFound, "inbox not configured")
		return
	}
	msgs, err := s.inbox.History()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []events.MessagePayload{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

type sendMessageRequest struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// handleSendMessage handles POST /api/v1/messages
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotFound, "inbox not configured")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Body == "" {
		s.respondError(w, http.StatusBadRequest, "body must not be empty")
		return
	}
	if req.Sender == "" {
		req.Sender = "api"
	}

	msg, err := s.inbox.Add(req.Sender, req.Body)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, msg)
}

// handleClearMessages handles DELETE /api/v1/messages
func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotFound, "inbox not configured")
		return
	}
	if err := s.inbox.Clear(); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Debug().Err(err).Msg("failed to encode response")
	}
}

// respondError writes a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{"error": message})
}
