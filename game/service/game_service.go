package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/chipslide/game/engine"
)

var (
	ErrNoActiveChip   = errors.New("no chip selected")
	ErrInvalidRequest = errors.New("invalid request")
)

// LevelRangeError reports a level index outside a pack
type LevelRangeError struct {
	PackID string
	Index  int
	Count  int
}

func (e *LevelRangeError) Error() string {
	return fmt.Sprintf("level %d not found in pack %q (%d levels)", e.Index, e.PackID, e.Count)
}

// GameService defines all puzzle operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, packID string, level int) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Puzzle Operations
	SelectChip(ctx context.Context, sessionID string, req SelectRequest) (*engine.PuzzleState, error)
	Deselect(ctx context.Context, sessionID string) (*engine.PuzzleState, error)
	Move(ctx context.Context, sessionID string, req MoveRequest) (*MoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.PuzzleState, error)

	// Puzzle State
	GetPuzzleState(ctx context.Context, sessionID string) (*engine.PuzzleState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Level packs
	ListPacks(ctx context.Context) ([]*PackInfo, error)
	LoadPack(ctx context.Context, packID string) (*Pack, error)
	SavePack(ctx context.Context, packID, text string) (*PackInfo, error)

	// Leaderboard
	Leaderboard(ctx context.Context, packID string, level, limit int) ([]Result, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, pack *Pack, level int) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// PackManager handles level pack loading
type PackManager interface {
	LoadPack(id string) (*Pack, error)
	ListPacks() ([]*PackInfo, error)
	GetDefault() *Pack
	SavePack(id, text string) (*PackInfo, error)
}

// ResultStore keeps solved runs
type ResultStore interface {
	Record(ctx context.Context, result Result) error
	Top(ctx context.Context, packID string, level, limit int) ([]Result, error)
}

// Recorder receives gameplay measurements
type Recorder interface {
	MoveAttempted(accepted bool)
	PuzzleSolved(packID string, moves int)
	SessionsActive(n int)
}

// Solver computes the minimum number of moves for a level body.
// ok is false when the level is unsolvable or the search gave up.
type Solver interface {
	MinMoves(ctx context.Context, body string, chipTypes int) (moves int, ok bool)
}

// Session represents an active puzzle session
type Session struct {
	ID             string
	PackID         string
	Level          engine.Level
	Engine         *engine.PuzzleEngine
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
