package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	gws "github.com/gorilla/websocket"

	"github.com/wricardo/chipslide/game/engine"
	"github.com/wricardo/chipslide/game/levels"
	"github.com/wricardo/chipslide/game/metrics"
	"github.com/wricardo/chipslide/game/service"
	"github.com/wricardo/chipslide/game/session"
	"github.com/wricardo/chipslide/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, packID string, level int) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Puzzle Operations
	SelectChipFunc func(ctx context.Context, sessionID string, req service.SelectRequest) (*engine.PuzzleState, error)
	DeselectFunc   func(ctx context.Context, sessionID string) (*engine.PuzzleState, error)
	MoveFunc       func(ctx context.Context, sessionID string, req service.MoveRequest) (*service.MoveResult, error)
	ResetFunc      func(ctx context.Context, sessionID string) (*engine.PuzzleState, error)

	// Puzzle State
	GetPuzzleStateFunc func(ctx context.Context, sessionID string) (*engine.PuzzleState, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Packs
	ListPacksFunc   func(ctx context.Context) ([]*service.PackInfo, error)
	LoadPackFunc    func(ctx context.Context, packID string) (*service.Pack, error)
	SavePackFunc    func(ctx context.Context, packID, text string) (*service.PackInfo, error)
	LeaderboardFunc func(ctx context.Context, packID string, level, limit int) ([]service.Result, error)
}

func (m *MockGameService) CreateSession(ctx context.Context, packID string, level int) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, packID, level)
	}
	return &service.SessionInfo{ID: "test-session", PackID: packID, LevelIndex: level, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, PackID: "classic", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) SelectChip(ctx context.Context, sessionID string, req service.SelectRequest) (*engine.PuzzleState, error) {
	if m.SelectChipFunc != nil {
		return m.SelectChipFunc(ctx, sessionID, req)
	}
	return &engine.PuzzleState{}, nil
}

func (m *MockGameService) Deselect(ctx context.Context, sessionID string) (*engine.PuzzleState, error) {
	if m.DeselectFunc != nil {
		return m.DeselectFunc(ctx, sessionID)
	}
	return &engine.PuzzleState{}, nil
}

func (m *MockGameService) Move(ctx context.Context, sessionID string, req service.MoveRequest) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, req)
	}
	return &service.MoveResult{Success: true, PuzzleState: &engine.PuzzleState{}}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.PuzzleState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.PuzzleState{}, nil
}

func (m *MockGameService) GetPuzzleState(ctx context.Context, sessionID string) (*engine.PuzzleState, error) {
	if m.GetPuzzleStateFunc != nil {
		return m.GetPuzzleStateFunc(ctx, sessionID)
	}
	return &engine.PuzzleState{}, nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Moves: []engine.MoveHistoryEntry{}, Page: opts.Page, PageSize: opts.Limit, TotalPages: 1}, nil
}

func (m *MockGameService) ListPacks(ctx context.Context) ([]*service.PackInfo, error) {
	if m.ListPacksFunc != nil {
		return m.ListPacksFunc(ctx)
	}
	return []*service.PackInfo{}, nil
}

func (m *MockGameService) LoadPack(ctx context.Context, packID string) (*service.Pack, error) {
	if m.LoadPackFunc != nil {
		return m.LoadPackFunc(ctx, packID)
	}
	return &service.Pack{ID: packID}, nil
}

func (m *MockGameService) SavePack(ctx context.Context, packID, text string) (*service.PackInfo, error) {
	if m.SavePackFunc != nil {
		return m.SavePackFunc(ctx, packID, text)
	}
	return &service.PackInfo{PackID: packID}, nil
}

func (m *MockGameService) Leaderboard(ctx context.Context, packID string, level, limit int) ([]service.Result, error) {
	if m.LeaderboardFunc != nil {
		return m.LeaderboardFunc(ctx, packID, level, limit)
	}
	return []service.Result{}, nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func setupTestServer(t *testing.T, mockService *MockGameService, opts ...Option) (*Server, *websocket.Hub) {
	t.Helper()
	hub := websocket.NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewServer(mockService, hub, opts...), hub
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v (%s)", err, w.Body.String())
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("session not found: %w", session.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("load: %w", levels.ErrPackNotFound), http.StatusNotFound},
		{&service.LevelRangeError{PackID: "p", Index: 9, Count: 2}, http.StatusNotFound},
		{fmt.Errorf("%w: x", service.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("select: %w", engine.ErrUnknownChip), http.StatusBadRequest},
		{fmt.Errorf("save: %w", levels.ErrInvalidPack), http.StatusBadRequest},
		{&engine.ParseError{Level: "x", Reason: "bad"}, http.StatusBadRequest},
		{fmt.Errorf("select: %w", engine.ErrPuzzleSolved), http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default pack",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, packID string, level int) (*service.SessionInfo, error) {
					if packID != "" || level != 0 {
						t.Errorf("expected defaults, got %q/%d", packID, level)
					}
					return &service.SessionInfo{ID: "ab12", PackID: "classic"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" || resp.PackID != "classic" {
					t.Errorf("unexpected session %+v", resp)
				}
			},
		},
		{
			name:        "Create session on a given level",
			requestBody: map[string]interface{}{"pack_id": "classic", "level": 2},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, packID string, level int) (*service.SessionInfo, error) {
					if packID != "classic" || level != 2 {
						t.Errorf("expected classic/2, got %q/%d", packID, level)
					}
					return &service.SessionInfo{ID: "cd34", PackID: packID, LevelIndex: level}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Unknown pack",
			requestBody: map[string]interface{}{"pack_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, packID string, level int) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("failed to load pack: %w", levels.ErrPackNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Malformed body",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Handle service error",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, packID string, level int) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server, _ := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	base := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "a", CreatedAt: base, LastAccessedAt: base.Add(3 * time.Minute)},
				{ID: "b", CreatedAt: base.Add(time.Minute), LastAccessedAt: base.Add(time.Minute)},
				{ID: "c", CreatedAt: base.Add(2 * time.Minute), LastAccessedAt: base.Add(2 * time.Minute)},
			}, nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantTotal int
	}{
		{name: "default accessed desc", query: "", wantIDs: []string{"a", "c", "b"}, wantTotal: 3},
		{name: "created asc", query: "?sort=created&order=asc", wantIDs: []string{"a", "b", "c"}, wantTotal: 3},
		{name: "limit", query: "?sort=created&limit=2", wantIDs: []string{"c", "b"}, wantTotal: 3},
		{name: "bad limit ignored", query: "?limit=zero", wantIDs: []string{"a", "c", "b"}, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                   `json:"count"`
				Total    int                   `json:"total"`
				Sessions []service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			var ids []string
			for _, s := range resp.Sessions {
				ids = append(ids, s.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("Expected order %v, got %v", tt.wantIDs, ids)
			}
			if resp.Count != len(tt.wantIDs) || resp.Total != tt.wantTotal {
				t.Errorf("Expected count %d total %d, got %d/%d", len(tt.wantIDs), tt.wantTotal, resp.Count, resp.Total)
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID == "gone" {
				return nil, fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: sessionID, LevelName: "Swap"}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "gone" {
				return session.ErrSessionNotFound
			}
			return nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var info service.SessionInfo
	parseResponse(t, w, &info)
	if info.ID != "ab12" || info.LevelName != "Swap" {
		t.Errorf("unexpected session %+v", info)
	}

	for _, method := range []string{"GET", "DELETE"} {
		w = httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest(method, "/api/sessions/gone", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s missing session: expected 404, got %d", method, w.Code)
		}
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Session ab12 deleted") {
		t.Errorf("unexpected delete response %d %s", w.Code, w.Body.String())
	}
}

// Puzzle Operation Tests

func TestSelect(t *testing.T) {
	var got service.SelectRequest
	mockService := &MockGameService{
		SelectChipFunc: func(ctx context.Context, sessionID string, req service.SelectRequest) (*engine.PuzzleState, error) {
			got = req
			if req.Position != nil && req.Position.X == 9 {
				return nil, fmt.Errorf("select: %w", engine.ErrUnknownChip)
			}
			id := engine.ChipID(1)
			return &engine.PuzzleState{ActiveChip: &id}, nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		check      func(t *testing.T)
	}{
		{
			name:       "by chip id",
			body:       map[string]int{"chip_id": 1},
			wantStatus: http.StatusOK,
			check: func(t *testing.T) {
				if got.ChipID == nil || *got.ChipID != 1 || got.Position != nil {
					t.Errorf("expected chip id request, got %+v", got)
				}
			},
		},
		{
			name:       "by position",
			body:       map[string]int{"x": 0, "y": 1},
			wantStatus: http.StatusOK,
			check: func(t *testing.T) {
				if got.Position == nil || *got.Position != (engine.Position{X: 0, Y: 1}) {
					t.Errorf("expected position request, got %+v", got)
				}
			},
		},
		{name: "half a position", body: map[string]int{"x": 0}, wantStatus: http.StatusBadRequest},
		{name: "empty cell", body: map[string]int{"x": 9, "y": 9}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/select", tt.body))
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d (%s)", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.check != nil {
				tt.check(t)
			}
		})
	}

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/deselect", nil))
	if w.Code != http.StatusOK {
		t.Errorf("deselect: expected 200, got %d", w.Code)
	}
}

func TestMove(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*MockGameService, *testing.T)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Move by direction",
			body: map[string]string{"direction": "up"},
			setupMock: func(m *MockGameService, t *testing.T) {
				m.MoveFunc = func(ctx context.Context, sessionID string, req service.MoveRequest) (*service.MoveResult, error) {
					if req.Direction != "up" || req.Target != nil {
						t.Errorf("unexpected request %+v", req)
					}
					return &service.MoveResult{Success: true, PuzzleState: &engine.PuzzleState{MoveCount: 1}, Message: "Moved"}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MoveResult
				parseResponse(t, w, &resp)
				if !resp.Success || resp.PuzzleState.MoveCount != 1 {
					t.Errorf("unexpected result %+v", resp)
				}
			},
		},
		{
			name: "Move to a cell",
			body: map[string]int{"x": 1, "y": 0},
			setupMock: func(m *MockGameService, t *testing.T) {
				m.MoveFunc = func(ctx context.Context, sessionID string, req service.MoveRequest) (*service.MoveResult, error) {
					if req.Target == nil || *req.Target != (engine.Position{X: 1, Y: 0}) {
						t.Errorf("unexpected request %+v", req)
					}
					return &service.MoveResult{Success: false, PuzzleState: &engine.PuzzleState{}, Message: "Move not allowed"}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MoveResult
				parseResponse(t, w, &resp)
				if resp.Success {
					t.Error("rejected move should report success false")
				}
			},
		},
		{
			name:           "Invalid body",
			body:           "up",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Invalid direction",
			body: map[string]string{"direction": "sideways"},
			setupMock: func(m *MockGameService, t *testing.T) {
				m.MoveFunc = func(ctx context.Context, sessionID string, req service.MoveRequest) (*service.MoveResult, error) {
					return nil, fmt.Errorf("%w: invalid direction", service.ErrInvalidRequest)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Session not found",
			body: map[string]string{"direction": "up"},
			setupMock: func(m *MockGameService, t *testing.T) {
				m.MoveFunc = func(ctx context.Context, sessionID string, req service.MoveRequest) (*service.MoveResult, error) {
					return nil, fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService, t)
			}
			server, _ := setupTestServer(t, mockService)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/move", tt.body))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestReset(t *testing.T) {
	mockService := &MockGameService{
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.PuzzleState, error) {
			return &engine.PuzzleState{LevelName: "Swap", TotalMoves: 4}, nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Message string             `json:"message"`
		State   engine.PuzzleState `json:"state"`
	}
	parseResponse(t, w, &resp)
	if resp.State.LevelName != "Swap" || resp.State.TotalMoves != 4 {
		t.Errorf("unexpected state %+v", resp.State)
	}
}

func TestGetHistory(t *testing.T) {
	var got service.HistoryOptions
	mockService := &MockGameService{
		GetMoveHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
			got = opts
			return &service.HistoryResponse{Moves: []engine.MoveHistoryEntry{}, Page: opts.Page}, nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	tests := []struct {
		query string
		want  service.HistoryOptions
	}{
		{"", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"?page=3&limit=5&order=asc", service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}},
		{"?page=-1&limit=x&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/history"+tt.query, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", tt.query, w.Code)
		}
		if got != tt.want {
			t.Errorf("%q: expected %+v, got %+v", tt.query, tt.want, got)
		}
	}
}

func TestGetPuzzleState(t *testing.T) {
	mockService := &MockGameService{
		GetPuzzleStateFunc: func(ctx context.Context, sessionID string) (*engine.PuzzleState, error) {
			return &engine.PuzzleState{Columns: 2, Rows: 2, Layout: []string{"0 0", "1 1"}}, nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/state", nil))
	var state engine.PuzzleState
	parseResponse(t, w, &state)
	if state.Columns != 2 || len(state.Layout) != 2 {
		t.Errorf("unexpected state %+v", state)
	}
}

// Pack Tests

func TestPacks(t *testing.T) {
	var saved string
	mockService := &MockGameService{
		ListPacksFunc: func(ctx context.Context) ([]*service.PackInfo, error) {
			return []*service.PackInfo{{PackID: "classic", LevelCount: 4, Source: "embedded"}}, nil
		},
		LoadPackFunc: func(ctx context.Context, packID string) (*service.Pack, error) {
			if packID != "classic" {
				return nil, fmt.Errorf("%w: %q", levels.ErrPackNotFound, packID)
			}
			return &service.Pack{ID: "classic", Levels: []engine.Level{{Name: "First Steps", Body: "0 0\n1 1"}}}, nil
		},
		SavePackFunc: func(ctx context.Context, packID, text string) (*service.PackInfo, error) {
			if packID == "bad" {
				return nil, fmt.Errorf("%w: no levels", levels.ErrInvalidPack)
			}
			saved = text
			return &service.PackInfo{PackID: packID, LevelCount: 1}, nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/packs", nil))
	var infos []service.PackInfo
	parseResponse(t, w, &infos)
	if len(infos) != 1 || infos[0].PackID != "classic" {
		t.Errorf("unexpected packs %+v", infos)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/packs/classic", nil))
	var pack struct {
		PackID string   `json:"pack_id"`
		Names  []string `json:"names"`
	}
	parseResponse(t, w, &pack)
	if pack.PackID != "classic" || len(pack.Names) != 1 || pack.Names[0] != "First Steps" {
		t.Errorf("unexpected pack %+v", pack)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/packs/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing pack: expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/packs", map[string]string{"id": "mine", "text": "#One\n0\n1"}))
	if w.Code != http.StatusCreated || saved != "#One\n0\n1" {
		t.Errorf("save: expected 201, got %d (saved %q)", w.Code, saved)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/packs", map[string]string{"id": "bad", "text": "x"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid pack: expected 400, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/packs", map[string]string{"text": "x"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing id: expected 400, got %d", w.Code)
	}
}

func TestLeaderboard(t *testing.T) {
	var gotLevel, gotLimit int
	mockService := &MockGameService{
		LeaderboardFunc: func(ctx context.Context, packID string, level, limit int) ([]service.Result, error) {
			gotLevel, gotLimit = level, limit
			if level > 3 {
				return nil, &service.LevelRangeError{PackID: packID, Index: level, Count: 4}
			}
			return []service.Result{{PackID: packID, Level: level, Moves: 2}}, nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/packs/classic/levels/1/leaderboard?limit=3", nil))
	if w.Code != http.StatusOK || gotLevel != 1 || gotLimit != 3 {
		t.Fatalf("unexpected response %d (level %d limit %d)", w.Code, gotLevel, gotLimit)
	}
	var resp struct {
		Results []service.Result `json:"results"`
	}
	parseResponse(t, w, &resp)
	if len(resp.Results) != 1 || resp.Results[0].Moves != 2 {
		t.Errorf("unexpected results %+v", resp.Results)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/packs/classic/levels/1/leaderboard", nil))
	if gotLimit != 10 {
		t.Errorf("expected default limit 10, got %d", gotLimit)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/packs/classic/levels/9/leaderboard", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("out of range level: expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/packs/classic/levels/one/leaderboard", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric level: expected 400, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.New()
	server, _ := setupTestServer(t, &MockGameService{}, WithInstrumentation(m))

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `chipslide_http_request_duration_seconds_count{method="GET",path="/health",status="200"} 1`) {
		t.Errorf("expected the health request to be measured, got:\n%s", w.Body.String())
	}
}

func TestWebSocket(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID == "ab12" {
				return &service.SessionInfo{ID: sessionID}, nil
			}
			return nil, session.ErrSessionNotFound
		},
		MoveFunc: func(ctx context.Context, sessionID string, req service.MoveRequest) (*service.MoveResult, error) {
			id := engine.ChipID(0)
			return &service.MoveResult{
				Success:     true,
				PuzzleState: &engine.PuzzleState{MoveCount: 2, Solved: true},
				Events: []service.GameEvent{
					{ID: "e1", Type: service.EventChipMoved, ChipID: &id},
					{ID: "e2", Type: service.EventPuzzleSolved, Moves: 2},
				},
			}, nil
		},
	}
	server, hub := setupTestServer(t, mockService)

	t.Run("rejects bad requests", func(t *testing.T) {
		for query, want := range map[string]int{"": http.StatusBadRequest, "?session=nope": http.StatusNotFound} {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", "/ws"+query, nil))
			if w.Code != want {
				t.Errorf("%q: expected %d, got %d", query, want, w.Code)
			}
		}
	})

	t.Run("move broadcasts state and events", func(t *testing.T) {
		ts := httptest.NewServer(server)
		defer ts.Close()

		conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?session=ab12", nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()

		deadline := time.Now().Add(2 * time.Second)
		for hub.ClientCount("ab12") != 1 {
			if time.Now().After(deadline) {
				t.Fatal("client never registered")
			}
			time.Sleep(5 * time.Millisecond)
		}

		resp, err := http.Post(ts.URL+"/api/sessions/ab12/move", "application/json", strings.NewReader(`{"direction":"up"}`))
		if err != nil {
			t.Fatalf("move: %v", err)
		}
		resp.Body.Close()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var events []string
		for len(events) < 3 {
			_, data, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			var msg websocket.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("decode: %v", err)
			}
			events = append(events, msg.Event)
		}
		want := []string{websocket.EventStateUpdate, websocket.EventChipMoved, websocket.EventPuzzleSolved}
		if strings.Join(events, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, events)
		}
	})
}
