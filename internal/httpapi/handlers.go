// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

// Package httpapi exposes the authentication and progress operations as a
// JSON-over-HTTP API for the mobile client.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skillup/skillup/internal/auth"
	"github.com/skillup/skillup/internal/observability"
	"github.com/skillup/skillup/internal/progress"
)

// AuthService defines the authentication operations needed by the handlers.
type AuthService interface {
	// Register creates a new account and issues its first session.
	Register(ctx context.Context, username, password, email string) (*auth.Session, string, *auth.User, error)

	// Login authenticates a user and issues a session.
	Login(ctx context.Context, username, password string) (*auth.Session, string, *auth.User, error)

	// ValidateSession validates a bearer token and resolves its owner.
	ValidateSession(ctx context.Context, token string) (*auth.Session, *auth.User, error)

	// Logout invalidates a session eagerly.
	Logout(ctx context.Context, token string) error
}

// ProgressService defines the gamification operations needed by the handlers.
type ProgressService interface {
	// InitUser creates a zeroed progress record for a new account.
	InitUser(ctx context.Context, userID ulid.ULID) error

	// CompleteTask applies one task completion and returns the aggregates.
	CompleteTask(ctx context.Context, userID ulid.ULID, username string, score int) (*progress.Progress, error)

	// Leaderboard returns the current top-K projection.
	Leaderboard(ctx context.Context) ([]progress.Entry, error)
}

// Handler holds the HTTP handlers for the API surface.
type Handler struct {
	authSvc          AuthService
	progressSvc      ProgressService
	logger           *slog.Logger
	metrics          *observability.Metrics
	registrationOpen bool
}

// NewHandler creates a new Handler. metrics may be nil (disabled).
// Returns an error if any required dependency is nil.
func NewHandler(authSvc AuthService, progressSvc ProgressService, logger *slog.Logger, metrics *observability.Metrics) (*Handler, error) {
	if authSvc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if progressSvc == nil {
		return nil, oops.Errorf("progress service is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Handler{
		authSvc:          authSvc,
		progressSvc:      progressSvc,
		logger:           logger,
		metrics:          metrics,
		registrationOpen: true,
	}, nil
}

// SetRegistrationOpen gates the /register endpoint.
func (h *Handler) SetRegistrationOpen(open bool) {
	h.registrationOpen = open
}

// Routes returns the API routing table wrapped in the request middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("POST /logout", h.handleLogout)
	mux.HandleFunc("POST /check_bearer", h.handleCheckBearer)
	mux.HandleFunc("POST /task_done", h.handleTaskDone)
	mux.HandleFunc("GET /leaderboard", h.handleLeaderboard)
	return h.withRequestLogging(mux)
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type taskDoneRequest struct {
	Token string `json:"token"`
	Score int    `json:"score"`
}

type sessionResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.registrationOpen {
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "registration is closed"})
		return
	}

	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, token, user, err := h.authSvc.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		h.writeAuthError(w, "register", err)
		return
	}

	// The progress row is an aggregate projection; registration succeeds
	// even if it cannot be created now (CompleteTask creates it lazily).
	if err := h.progressSvc.InitUser(r.Context(), user.ID); err != nil {
		h.logger.Warn("progress init failed",
			"user_id", user.ID.String(),
			"error", err,
		)
	}

	h.countAuth("register", "ok")
	h.countSession("register")
	h.writeJSON(w, http.StatusOK, sessionResponse{
		Token:    token,
		UserID:   user.ID.String(),
		Username: user.Username,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, token, user, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeAuthError(w, "login", err)
		return
	}

	h.countAuth("login", "ok")
	h.countSession("login")
	h.writeJSON(w, http.StatusOK, sessionResponse{
		Token:    token,
		UserID:   user.ID.String(),
		Username: user.Username,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.authSvc.Logout(r.Context(), req.Token); err != nil {
		h.writeAuthError(w, "logout", err)
		return
	}

	h.countAuth("logout", "ok")
	h.writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *Handler) handleCheckBearer(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, user, err := h.authSvc.ValidateSession(r.Context(), req.Token)
	if err != nil {
		// Invalid and expired tokens are a routine outcome here, not an
		// error status: the client polls this endpoint on startup.
		if errCode(err) == "SESSION_INVALID" {
			h.countAuth("check_bearer", "invalid")
			h.writeJSON(w, http.StatusOK, map[string]bool{"valid": false})
			return
		}
		h.writeAuthError(w, "check_bearer", err)
		return
	}

	h.countAuth("check_bearer", "ok")
	h.writeJSON(w, http.StatusOK, map[string]any{
		"valid":    true,
		"user_id":  user.ID.String(),
		"username": user.Username,
	})
}

func (h *Handler) handleTaskDone(w http.ResponseWriter, r *http.Request) {
	var req taskDoneRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, user, err := h.authSvc.ValidateSession(r.Context(), req.Token)
	if err != nil {
		h.writeAuthError(w, "task_done", err)
		return
	}

	p, err := h.progressSvc.CompleteTask(r.Context(), user.ID, user.Username, req.Score)
	if err != nil {
		h.writeAuthError(w, "task_done", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{
		"score":      p.Score,
		"tasks_done": p.TasksDone,
		"streak":     p.Streak,
	})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if _, _, err := h.authSvc.ValidateSession(r.Context(), token); err != nil {
		h.writeAuthError(w, "leaderboard", err)
		return
	}

	entries, err := h.progressSvc.Leaderboard(r.Context())
	if err != nil {
		h.writeAuthError(w, "leaderboard", err)
		return
	}

	rows := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]any{
			"user_id":  e.UserID.String(),
			"username": e.Username,
			"score":    e.Score,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found {
		return token
	}
	return ""
}

// decode parses the JSON request body into dst, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("response encode failed", "error", err)
	}
}

func (h *Handler) countAuth(operation, outcome string) {
	if h.metrics != nil {
		h.metrics.AuthRequestsTotal.WithLabelValues(operation, outcome).Inc()
	}
}

func (h *Handler) countSession(origin string) {
	if h.metrics != nil {
		h.metrics.SessionsCreatedTotal.WithLabelValues(origin).Inc()
	}
}
