package service

import (
	"time"

	"github.com/wricardo/chipslide/game/animation"
	"github.com/wricardo/chipslide/game/engine"
)

// Event types carried by GameEvent
const (
	EventChipMoved    = "chip_moved"
	EventPuzzleSolved = "puzzle_solved"
	EventReset        = "reset"
	EventSelected     = "selected"
	EventDeselected   = "deselected"
)

// SessionInfo provides information about a puzzle session
type SessionInfo struct {
	ID             string              `json:"id"`
	PackID         string              `json:"pack_id"`
	LevelIndex     int                 `json:"level_index"`
	LevelName      string              `json:"level_name"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	PuzzleState    *engine.PuzzleState `json:"puzzle_state"`
}

// SelectRequest picks the active chip either by ID or by the cell it sits on
type SelectRequest struct {
	ChipID   *engine.ChipID   `json:"chip_id,omitempty"`
	Position *engine.Position `json:"position,omitempty"`
}

// MoveRequest moves the active chip either to a target cell or one step in a
// direction (up, down, left, right)
type MoveRequest struct {
	Target    *engine.Position `json:"target,omitempty"`
	Direction string           `json:"direction,omitempty"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success     bool                `json:"success"`
	PuzzleState *engine.PuzzleState `json:"puzzle_state"`
	Message     string              `json:"message"`
	Events      []GameEvent         `json:"events,omitempty"`
	Relocation  *RelocationInfo     `json:"relocation,omitempty"`
	Optimal     *int                `json:"optimal_moves,omitempty"`
}

// RelocationInfo carries optional keyframes a client can use to animate the
// committed move. The puzzle state is already final when it is produced.
type RelocationInfo struct {
	ChipID   engine.ChipID     `json:"chip_id"`
	From     engine.Position   `json:"from"`
	To       engine.Position   `json:"to"`
	Duration time.Duration     `json:"duration"`
	Frames   []animation.Frame `json:"frames"`
}

// GameEvent represents an event that occurred during play
type GameEvent struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"` // chip_moved, puzzle_solved, reset, selected, deselected
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	ChipID    *engine.ChipID   `json:"chip_id,omitempty"`
	From      *engine.Position `json:"from,omitempty"`
	To        *engine.Position `json:"to,omitempty"`
	Moves     int              `json:"moves,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// Pack is a decoded level pack
type Pack struct {
	ID     string         `json:"id"`
	Levels []engine.Level `json:"levels"`

	// Skipped holds one message per level that failed to decode or assemble
	Skipped []string `json:"skipped,omitempty"`
}

// Names returns the level names in pack order
func (p *Pack) Names() []string {
	names := make([]string, len(p.Levels))
	for i, level := range p.Levels {
		names[i] = level.Name
	}
	return names
}

// Level returns the level at index
func (p *Pack) Level(index int) (engine.Level, error) {
	if index < 0 || index >= len(p.Levels) {
		return engine.Level{}, &LevelRangeError{PackID: p.ID, Index: index, Count: len(p.Levels)}
	}
	return p.Levels[index], nil
}

// PackInfo provides information about a level pack
type PackInfo struct {
	Filename   string   `json:"filename,omitempty"`
	PackID     string   `json:"pack_id"` // The identifier to use for session creation
	Source     string   `json:"source"`  // "embedded" or "directory"
	LevelCount int      `json:"level_count"`
	Levels     []string `json:"levels"`
	Skipped    int      `json:"skipped,omitempty"`
}

// Result is one solved run stored on the leaderboard
type Result struct {
	SessionID string    `json:"session_id"`
	PackID    string    `json:"pack_id"`
	Level     int       `json:"level"`
	LevelName string    `json:"level_name"`
	Moves     int       `json:"moves"`
	Optimal   int       `json:"optimal,omitempty"`
	SolvedAt  time.Time `json:"solved_at"`
}
