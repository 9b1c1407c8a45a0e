package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/typeduel/typeduel-backend/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin filtering is left to the deployment proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(s.corsMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/sessions", s.createSessionHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/modes", s.modesHandler).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard/{mode}", s.leaderboardHandler).Methods(http.MethodGet)

	r.HandleFunc("/ws/{sessionId}", s.websocketHandler)

	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.registry.Count(),
	})
}

func (s *Server) modesHandler(w http.ResponseWriter, r *http.Request) {
	modes := make([]string, 0, len(game.ModePriority))
	for _, m := range game.ModePriority {
		modes = append(modes, string(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"modes": modes})
}

type createSessionRequest struct {
	Mode string `json:"mode"`
}

// createSessionHandler opens a fresh lobby in the requested mode and returns
// its id. Clients then connect to /ws/{sessionId}.
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed body"})
		return
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	session := s.registry.GetOrCreate(uuid.New(), mode)
	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId": session.ID.String(),
		"mode":      string(session.Mode),
	})
}

// leaderboardHandler serves the all-time top scores for a mode. A 404 here
// means the deployment runs without a database.
func (s *Server) leaderboardHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "leaderboard disabled", http.StatusNotFound)
		return
	}
	mode, err := game.ParseMode(mux.Vars(r)["mode"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	scores, err := s.store.TopScores(r.Context(), string(mode), 20)
	if err != nil {
		s.log.Error().Err(err).Msg("leaderboard query failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mode": string(mode), "scores": scores})
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["sessionId"])
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	// First connection to an unknown id creates the session. The optional
	// mode parameter only matters for the creator.
	mode := game.ModeClassic
	if v := r.URL.Query().Get("mode"); v != "" {
		parsed, err := game.ParseMode(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode = parsed
	}
	session := s.registry.GetOrCreate(id, mode)

	name, err := s.playerName(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	game.ServeClient(session, name, conn, s.log)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
