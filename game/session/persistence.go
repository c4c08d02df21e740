package session

import (
	"time"

	"github.com/wricardo/chipslide/game/engine"
	"github.com/wricardo/chipslide/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// The grid itself is not stored: loading reassembles Level and replays
// CurrentMoves.
type PersistedSessionData struct {
	ID             string                    `json:"id"`
	PackID         string                    `json:"pack_id"`
	Level          engine.Level              `json:"level"`
	CreatedAt      time.Time                 `json:"created_at"`
	LastAccessedAt time.Time                 `json:"last_accessed_at"`
	MoveHistory    []engine.MoveHistoryEntry `json:"move_history"`
	CurrentMoves   []engine.MoveHistoryEntry `json:"current_moves"`
}
