package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/wricardo/chipslide/game/engine"
	"github.com/wricardo/chipslide/game/levels"
	"github.com/wricardo/chipslide/game/service"
	"github.com/wricardo/chipslide/game/session"
	"github.com/wricardo/chipslide/transport/websocket"
)

// Instrumentation wraps the router with request metrics and serves them
type Instrumentation interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithInstrumentation enables request metrics and the /metrics endpoint
func WithInstrumentation(inst Instrumentation) Option {
	return func(s *Server) { s.metrics = inst }
}

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	metrics Instrumentation
	logger  *log.Logger
}

// NewServer creates a new API server. hub may be nil, which disables /ws and
// broadcasts.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Puzzle operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetPuzzleState).Methods("GET")
	api.HandleFunc("/sessions/{id}/select", s.handleSelect).Methods("POST")
	api.HandleFunc("/sessions/{id}/deselect", s.handleDeselect).Methods("POST")
	api.HandleFunc("/sessions/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Level packs and leaderboard
	api.HandleFunc("/packs", s.handleListPacks).Methods("GET")
	api.HandleFunc("/packs", s.handleSavePack).Methods("POST")
	api.HandleFunc("/packs/{id}", s.handleGetPack).Methods("GET")
	api.HandleFunc("/packs/{id}/levels/{level}/leaderboard", s.handleLeaderboard).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and domain errors to HTTP status codes
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	respondError(w, status, err.Error())
}

func errorStatus(err error) int {
	var rangeErr *service.LevelRangeError
	var parseErr *engine.ParseError
	var assemblyErr *engine.AssemblyError
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, levels.ErrPackNotFound),
		errors.As(err, &rangeErr):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, engine.ErrUnknownChip),
		errors.Is(err, engine.ErrNotAssembled),
		errors.Is(err, levels.ErrInvalidPack),
		errors.Is(err, levels.ErrInvalidPackID),
		errors.Is(err, levels.ErrReadOnly),
		errors.As(err, &parseErr),
		errors.As(err, &assemblyErr):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrPuzzleSolved),
		errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body into v. An empty body is fine.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", service.ErrInvalidRequest)
	}
	return nil
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PackID string `json:"pack_id,omitempty"`
		Level  int    `json:"level,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.CreateSession(r.Context(), req.PackID, req.Level)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Puzzle Handlers

func (s *Server) handleGetPuzzleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetPuzzleState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// cellRequest accepts either {"chip_id": n} or {"x": n, "y": n}
type cellRequest struct {
	ChipID    *engine.ChipID `json:"chip_id,omitempty"`
	X         *int           `json:"x,omitempty"`
	Y         *int           `json:"y,omitempty"`
	Direction string         `json:"direction,omitempty"`
}

func (c cellRequest) position() (*engine.Position, error) {
	if c.X == nil && c.Y == nil {
		return nil, nil
	}
	if c.X == nil || c.Y == nil {
		return nil, fmt.Errorf("%w: both x and y are required", service.ErrInvalidRequest)
	}
	return &engine.Position{X: *c.X, Y: *c.Y}, nil
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req cellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	pos, err := req.position()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := s.service.SelectChip(r.Context(), sessionID, service.SelectRequest{ChipID: req.ChipID, Position: pos})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcastState(sessionID, state)
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Deselect(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcastState(sessionID, state)
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req cellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	target, err := req.position()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Move(r.Context(), sessionID, service.MoveRequest{Target: target, Direction: req.Direction})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	// Broadcast to WebSocket clients
	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, result.PuzzleState)
		for _, ev := range result.Events {
			switch ev.Type {
			case service.EventChipMoved:
				s.hub.BroadcastEvent(sessionID, websocket.EventChipMoved, ev)
			case service.EventPuzzleSolved:
				s.hub.BroadcastEvent(sessionID, websocket.EventPuzzleSolved, ev)
			}
		}
	}

	s.logger.Debug("move request", "session", sessionID, "accepted", result.Success, "message", result.Message)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcastState(sessionID, state)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Puzzle reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetMoveHistory(r.Context(), sessionID, opts)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Pack Handlers

func (s *Server) handleListPacks(w http.ResponseWriter, r *http.Request) {
	packs, err := s.service.ListPacks(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, packs)
}

func (s *Server) handleGetPack(w http.ResponseWriter, r *http.Request) {
	pack, err := s.service.LoadPack(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pack_id": pack.ID,
		"names":   pack.Names(),
		"levels":  pack.Levels,
		"skipped": pack.Skipped,
	})
}

func (s *Server) handleSavePack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		respondError(w, http.StatusBadRequest, "Pack id is required")
		return
	}

	info, err := s.service.SavePack(r.Context(), req.ID, req.Text)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	level, err := strconv.Atoi(vars["level"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Level must be a number")
		return
	}
	limit := 10
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	results, err := s.service.Leaderboard(r.Context(), vars["id"], level, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pack_id": vars["id"],
		"level":   level,
		"results": results,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket disabled", http.StatusNotFound)
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

func (s *Server) broadcastState(sessionID string, state *engine.PuzzleState) {
	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
