package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ctscan-quiz/internal/app"
	"ctscan-quiz/internal/domain"
)

// LeaderboardReader is the read side of the remote leaderboard.
type LeaderboardReader interface {
	Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, int, error)
}

// RESTHandler serves the small JSON surface next to the websocket.
type RESTHandler struct {
	service   *app.GameService
	board     LeaderboardReader
	adminCode string
	log       *zap.Logger
}

// NewRESTHandler wires the handlers. An empty adminCode disables /questions.
func NewRESTHandler(service *app.GameService, board LeaderboardReader, adminCode string, log *zap.Logger) *RESTHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RESTHandler{service: service, board: board, adminCode: adminCode, log: log}
}

// Register mounts the handlers on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/leaderboard", h.Leaderboard)
	mux.HandleFunc("/stats", h.Stats)
	mux.HandleFunc("/questions", h.Questions)
}

type errorResponse struct {
	Error string `json:"error"`
}

type leaderboardResponse struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	Total       int                       `json:"total"`
}

// Leaderboard proxies GET /leaderboard?limit=N to the remote board.
func (h *RESTHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	if h.board == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "leaderboard not configured"})
		return
	}
	limit := 10
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if strings.EqualFold(raw, "all") {
			limit = 0
		} else {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer or all"})
				return
			}
			limit = parsed
		}
	}

	entries, total, err := h.board.Top(r.Context(), limit)
	if err != nil {
		h.log.Warn("fetch leaderboard", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Leaderboard: entries, Total: total})
}

// Stats serves GET /stats?player=name.
func (h *RESTHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	player := strings.TrimSpace(r.URL.Query().Get("player"))
	if player == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "player is required"})
		return
	}
	stats, err := h.service.Stats(r.Context(), player)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Questions lets an admin read (GET) or replace (PUT) the bank. Requests must
// carry the admin code in X-Admin-Code.
func (h *RESTHandler) Questions(w http.ResponseWriter, r *http.Request) {
	if h.adminCode == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "question management disabled"})
		return
	}
	given := r.Header.Get("X-Admin-Code")
	if subtle.ConstantTimeCompare([]byte(given), []byte(h.adminCode)) != 1 {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "invalid admin code"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		questions, err := h.service.Questions(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, questions)
	case http.MethodPut:
		var questions []domain.Question
		if err := json.NewDecoder(r.Body).Decode(&questions); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid question payload"})
			return
		}
		if err := h.service.SaveQuestions(r.Context(), questions); err != nil {
			writeServiceError(w, err)
			return
		}
		h.log.Info("question bank replaced", zap.Int("questions", len(questions)))
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuestion):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
	case errors.Is(err, domain.ErrLeaderboardUnavailable):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "leaderboard unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
