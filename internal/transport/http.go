package transport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func withCORS(h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(h)
}

func (s *Server) registerHTTP() {
	s.router.HandleFunc("/api/state/{user_id}", s.handleState).Methods(http.MethodGet)
	s.router.HandleFunc("/api/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)

	s.router.HandleFunc("/api/admin/start", s.handleAdminStart).Methods(http.MethodPost)
	s.router.HandleFunc("/api/admin/end", s.handleAdminEnd).Methods(http.MethodPost)
	s.router.HandleFunc("/api/admin/status", s.handleAdminStatus).Methods(http.MethodGet)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(mux.Vars(r)["user_id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	state, stateErr := s.exchange.Snapshot(uint32(userID))
	if stateErr != nil {
		respondError(w, http.StatusNotFound, stateErr.Error())
		return
	}
	value, _ := s.exchange.Portfolio(uint32(userID))

	respondJSON(w, http.StatusOK, struct {
		State any    `json:"state"`
		Value uint64 `json:"portfolio_value"`
	}{State: state, Value: value})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.exchange.Leaderboard())
}

func (s *Server) handleAdminStart(w http.ResponseWriter, r *http.Request) {
	s.exchange.Start()
	respondJSON(w, http.StatusOK, map[string]bool{"accepting": true})
}

func (s *Server) handleAdminEnd(w http.ResponseWriter, r *http.Request) {
	s.exchange.Stop()
	respondJSON(w, http.StatusOK, map[string]bool{"accepting": false})
}

func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"accepting": s.exchange.Accepting()})
}
