// Package server exposes the policy engine over HTTP to the dashboard
// backend. Tool execute handlers live in the caller's process; this
// surface returns per-tool policy decisions and sanitized history, not
// executable descriptors.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dbforge/assistant-gate/internal/auth"
	"github.com/dbforge/assistant-gate/internal/chat"
	"github.com/dbforge/assistant-gate/internal/engine"
	"github.com/dbforge/assistant-gate/internal/settings"
	"github.com/dbforge/assistant-gate/internal/toolset"
)

// Server handles the gateway's HTTP API.
type Server struct {
	engine   *engine.Engine
	auth     auth.Authenticator
	settings settings.Provider
	logger   *zap.Logger
}

// New creates a Server with the given dependencies.
func New(eng *engine.Engine, authenticator auth.Authenticator, provider settings.Provider, logger *zap.Logger) *Server {
	return &Server{
		engine:   eng,
		auth:     authenticator,
		settings: provider,
		logger:   logger,
	}
}

// Router builds the chi router for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/tools/decisions", s.handleToolDecisions)
	r.Post("/v1/history/prepare", s.handlePrepareHistory)
	return r
}

// ToolRef names one tool offered by the caller's tool providers.
type ToolRef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ToolDecisionsRequest is the body of POST /v1/tools/decisions.
type ToolDecisionsRequest struct {
	Tools []ToolRef `json:"tools"`
}

// ToolDecisionsResponse lists the policy outcome per requested tool.
type ToolDecisionsResponse struct {
	RequestID  string            `json:"requestId"`
	OptInLevel string            `json:"optInLevel"`
	Decisions  []engine.Decision `json:"decisions"`
}

func (s *Server) handleToolDecisions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.New().String()

	org, err := s.auth.Authenticate(r.Context(), r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}

	var req ToolDecisionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	level, err := s.settings.CurrentLevel(r.Context(), org.OrgID)
	if err != nil {
		s.logger.Error("opt-in level lookup failed",
			zap.String("request_id", requestID),
			zap.String("org_id", org.OrgID),
			zap.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, "could not resolve opt-in level")
		return
	}

	raw := make(map[string]*toolset.Descriptor, len(req.Tools))
	for _, ref := range req.Tools {
		raw[ref.Name] = &toolset.Descriptor{Name: ref.Name, Description: ref.Description}
	}

	decisions, err := s.engine.Decide(r.Context(), org.OrgID, raw, level)
	if err != nil {
		var verr *toolset.ValidationError
		if errors.As(err, &verr) {
			// Unknown tool names mean taxonomy drift or a compromised
			// provider; the whole assembly fails, no partial set.
			s.logger.Error("tool set rejected",
				zap.String("request_id", requestID),
				zap.String("org_id", org.OrgID),
				zap.Error(verr),
			)
			s.writeError(w, http.StatusInternalServerError, "tool set rejected: "+verr.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, "tool decision failed")
		return
	}

	s.logger.Info("tool decisions served",
		zap.String("request_id", requestID),
		zap.String("org_id", org.OrgID),
		zap.String("opt_in_level", string(level)),
		zap.Int("tool_count", len(decisions)),
		zap.Duration("elapsed", time.Since(start)),
	)

	s.writeJSON(w, http.StatusOK, ToolDecisionsResponse{
		RequestID:  requestID,
		OptInLevel: string(level),
		Decisions:  decisions,
	})
}

// PrepareHistoryRequest is the body of POST /v1/history/prepare.
type PrepareHistoryRequest struct {
	Messages []chat.Message `json:"messages"`
}

// PrepareHistoryResponse carries the bounded, cleaned, sanitized view.
type PrepareHistoryResponse struct {
	RequestID  string         `json:"requestId"`
	OptInLevel string         `json:"optInLevel"`
	Messages   []chat.Message `json:"messages"`
}

func (s *Server) handlePrepareHistory(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	org, err := s.auth.Authenticate(r.Context(), r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}

	var req PrepareHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	for _, msg := range req.Messages {
		if err := msg.Validate(); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	level, err := s.settings.CurrentLevel(r.Context(), org.OrgID)
	if err != nil {
		s.logger.Error("opt-in level lookup failed",
			zap.String("request_id", requestID),
			zap.String("org_id", org.OrgID),
			zap.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, "could not resolve opt-in level")
		return
	}

	prepared := s.engine.PrepareHistory(req.Messages, level)

	s.writeJSON(w, http.StatusOK, PrepareHistoryResponse{
		RequestID:  requestID,
		OptInLevel: string(level),
		Messages:   prepared,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", zap.Error(err))
	}
}
