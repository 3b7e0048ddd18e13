package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"trickia-quiz/internal/app"
	"trickia-quiz/internal/domain"
)

// PlayerHeader carries the player identity on every API request.
const PlayerHeader = "X-Player-ID"

// Handler exposes the quiz use cases as a JSON API under /api.
type Handler struct {
	service *app.QuizService
	ws      *WSHandler
}

func NewHandler(service *app.QuizService) *Handler {
	return &Handler{service: service, ws: NewWSHandler(service)}
}

type startRequest struct {
	Themes []string `json:"themes"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/themes", h.themes)
	mux.HandleFunc("POST /api/session/start", h.withPlayer(h.startSession))
	mux.HandleFunc("GET /api/question", h.withPlayer(h.question))
	mux.HandleFunc("POST /api/answer", h.withPlayer(h.answer))
	mux.HandleFunc("GET /api/stats", h.withPlayer(h.stats))
	mux.HandleFunc("GET /api/api_stats", h.withPlayer(h.sourceStats))
	mux.HandleFunc("POST /api/session/end", h.withPlayer(h.endSession))
	mux.HandleFunc("GET /api/profile", h.withPlayer(h.profile))
	mux.HandleFunc("GET /api/model/state", h.withPlayer(h.modelState))
	mux.HandleFunc("GET /api/model/history", h.withPlayer(h.modelHistory))
	mux.HandleFunc("GET /api/ws", h.ws.ServeWS)
}

type playerHandler func(w http.ResponseWriter, r *http.Request, playerID string)

func (h *Handler) withPlayer(next playerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := playerFrom(r)
		if playerID == "" {
			writeError(w, domain.ErrPlayerNotFound)
			return
		}
		next(w, r, playerID)
	}
}

func playerFrom(r *http.Request) string {
	if id := r.Header.Get(PlayerHeader); id != "" {
		return id
	}
	return r.URL.Query().Get("player")
}

func (h *Handler) themes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Themes())
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, playerID string) {
	var req startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid start payload"})
			return
		}
	}
	ack, err := h.service.StartSession(r.Context(), playerID, req.Themes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

func (h *Handler) question(w http.ResponseWriter, r *http.Request, playerID string) {
	q, err := h.service.NextQuestion(r.Context(), playerID, r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) answer(w http.ResponseWriter, r *http.Request, playerID string) {
	var sub domain.AnswerSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid answer payload"})
		return
	}
	res, err := h.service.SubmitAnswer(r.Context(), playerID, sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request, playerID string) {
	stats, err := h.service.Stats(r.Context(), playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) sourceStats(w http.ResponseWriter, r *http.Request, playerID string) {
	stats, err := h.service.SourceStats(r.Context(), playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request, playerID string) {
	var report domain.SessionReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session report"})
		return
	}
	status, err := h.service.EndSession(r.Context(), playerID, report)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: status})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request, playerID string) {
	p, err := h.service.Profile(r.Context(), playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) modelState(w http.ResponseWriter, r *http.Request, playerID string) {
	states, err := h.service.ModelState(r.Context(), playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if states == nil {
		states = []domain.BanditState{}
	}
	writeJSON(w, http.StatusOK, states)
}

func (h *Handler) modelHistory(w http.ResponseWriter, r *http.Request, playerID string) {
	history, err := h.service.ModelHistory(r.Context(), playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPlayerNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNoActiveQuestion):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoQuestionAvailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("api error: %v", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
