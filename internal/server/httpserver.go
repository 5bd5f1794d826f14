// Package server exposes the local control API: board setup,
// commitment, firing and a consolidated status read. It is a thin
// layer over the app service; all game rules live below it.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"zkbattleship/internal/app"
	"zkbattleship/internal/game"
	"zkbattleship/internal/session"
)

type Server struct {
	Svc *app.Service
	Log zerolog.Logger
}

func New(svc *app.Service, log zerolog.Logger) *Server {
	return &Server{Svc: svc, Log: log.With().Str("component", "server").Logger()}
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/board/init", s.handleInit)
	mux.HandleFunc("POST /v1/commit", s.handleCommit)
	mux.HandleFunc("POST /v1/fire", s.handleFire)
	mux.HandleFunc("POST /v1/forfeit", s.handleForfeit)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	b, err := game.GenerateRandomBoard()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type commitReq struct {
	SessionID string     `json:"session_id"`
	Board     game.Board `json:"board"`
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	board := req.Board
	root, err := s.Svc.CommitBoard(r.Context(), req.SessionID, &board)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"commitment": root.Hex()})
}

type fireReq struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleFire(w http.ResponseWriter, r *http.Request) {
	var req fireReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Svc.FireShot(r.Context(), game.Coord{X: req.X, Y: req.Y}); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "submitted"})
}

func (s *Server) handleForfeit(w http.ResponseWriter, r *http.Request) {
	if err := s.Svc.Forfeit(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "forfeited"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	m := s.Svc.Rec.Machine()
	status := map[string]any{
		"session":  m.SessionID(),
		"phase":    m.Phase(),
		"turn":     m.TurnHolder(),
		"can_act":  m.CanAct(),
		"opponent": m.Opponent(),
		"shots": map[string]any{
			"hits_dealt": s.Svc.Rec.Outgoing().HitCount(),
			"hits_taken": s.Svc.Rec.Incoming().HitCount(),
		},
	}
	if m.Phase() == session.PhaseGameOver {
		status["winner"] = m.Winner()
	}
	if sec, err := s.Svc.Secret(); err == nil {
		status["commitment"] = sec.Commitment
	}
	writeJSON(w, http.StatusOK, status)
}
