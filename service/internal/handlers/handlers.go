// internal/handlers/handlers.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/wmxl/card-dealer-miniprogram/engine"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/game"
)

const maxBodyBytes = 1 << 16

// Handler exposes a SessionService over JSON HTTP.
type Handler struct {
	svc *game.SessionService
}

// New creates a Handler for svc.
func New(svc *game.SessionService) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the session API wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /sessions", h.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", h.handleGetSession)
	mux.HandleFunc("GET /sessions/{id}/debug", h.handleGetDebug)
	mux.HandleFunc("POST /sessions/{id}/players", h.handleJoin)
	mux.HandleFunc("GET /sessions/{id}/players/{number}", h.handleGetPlayer)
	mux.HandleFunc("POST /sessions/{id}/deal", h.handleDeal)
	mux.HandleFunc("POST /sessions/{id}/nominations", h.handleNominate)
	mux.HandleFunc("POST /sessions/{id}/votes", h.handleVote)
	mux.HandleFunc("POST /sessions/{id}/missions", h.handleMission)
	mux.HandleFunc("POST /sessions/{id}/assassination", h.handleAssassinate)
	mux.HandleFunc("POST /sessions/{id}/reset", h.handleReset)
	return logRequests(mux)
}

type errorResponse struct {
	Error   game.Code `json:"error"`
	Details string    `json:"details"`
}

type createSessionRequest struct {
	MaxPlayers int `json:"maxPlayers"`
}

type joinRequest struct {
	Nickname string `json:"nickname"`
}

type nominateRequest struct {
	Leader int   `json:"leader,omitempty"`
	Team   []int `json:"team"`
}

type voteRequest struct {
	Player  int              `json:"player"`
	Approve bool             `json:"approve"`
	Round   *engine.RoundTag `json:"round,omitempty"`
}

type missionRequest struct {
	Player  int  `json:"player"`
	Success bool `json:"success"`
}

type assassinateRequest struct {
	Assassin int `json:"assassin,omitempty"`
	Target   int `json:"target"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.svc.CreateSession(r.Context(), req.MaxPlayers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetSessionView(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleGetDebug(w http.ResponseWriter, r *http.Request) {
	dv, err := h.svc.GetSessionDebug(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dv)
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.JoinSession(r.Context(), r.PathValue("id"), req.Nickname)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BAD_REQUEST", Details: "player number must be an integer"})
		return
	}
	pv, err := h.svc.GetPlayerView(r.Context(), r.PathValue("id"), number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pv)
}

func (h *Handler) handleDeal(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.DealRoles(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleNominate(w http.ResponseWriter, r *http.Request) {
	var req nominateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.svc.SubmitNomination(r.Context(), r.PathValue("id"), req.Leader, req.Team)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.SubmitVote(r.Context(), r.PathValue("id"), req.Player, req.Approve, req.Round)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleMission(w http.ResponseWriter, r *http.Request) {
	var req missionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.SubmitMissionResult(r.Context(), r.PathValue("id"), req.Player, req.Success)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleAssassinate(w http.ResponseWriter, r *http.Request) {
	var req assassinateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.Assassinate(r.Context(), r.PathValue("id"), req.Assassin, req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.ResetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// decodeBody reads a JSON body into dst. It writes a 400 and returns false
// on malformed input. An empty body leaves dst at its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "BAD_REQUEST",
			Details: fmt.Sprintf("invalid JSON body: %v", err),
		})
		return false
	}
	return true
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(code game.Code) int {
	switch code {
	case game.CodeOK:
		return http.StatusOK
	case game.CodeSessionNotFound, game.CodePlayerNotFound:
		return http.StatusNotFound
	case game.CodeAlreadyDealt, game.CodeAlreadyVoted, game.CodeAlreadySubmitted,
		game.CodeAlreadyFinished, game.CodeWrongPhase, game.CodeStaleRound,
		game.CodeSessionFull, game.CodeGameInProgress, game.CodeRoundResolved:
		return http.StatusConflict
	case game.CodeTransient:
		return http.StatusServiceUnavailable
	case game.CodeCanceled:
		return http.StatusRequestTimeout
	case game.CodeInternal:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func writeError(w http.ResponseWriter, err error) {
	code := game.ErrorCode(err)
	status := StatusFor(code)
	details := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("handlers: internal error")
		details = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: code, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Warn("handlers: failed writing response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("handlers: request")
	})
}
