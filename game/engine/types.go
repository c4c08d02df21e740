package engine

import "time"

// ChipType identifies which band a chip belongs to. Band b expects ChipType(b+1).
type ChipType int

const (
	FirstChip   ChipType = 1
	SecondChip  ChipType = 2
	ThirdChip   ChipType = 3
	FourthChip  ChipType = 4
	FifthChip   ChipType = 5
	SixthChip   ChipType = 6
	SeventhChip ChipType = 7
	EighthChip  ChipType = 8
)

const (
	// Level text tokens
	EmptyToken     = "0"
	BlockToken     = "9"
	LevelDelimiter = "#"

	// Validation constants
	MaxChipTypes         = 8
	MaxGridSize          = 32
	BandHeight           = 2
	DefaultMovementSpeed = 5.0
	DefaultAnimationFPS  = 60
)

// ChipID indexes a chip inside the grid that created it. IDs are assigned in
// row-major order during assembly and are stable for the life of that grid.
type ChipID int

// Position represents column (X) and row (Y) coordinates, zero-based
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p offset by dx columns and dy rows
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Chip is a movable piece sitting on a floor cell
type Chip struct {
	ID     ChipID   `json:"id"`
	Type   ChipType `json:"type"`
	Pos    Position `json:"pos"`
	Active bool     `json:"active,omitempty"`
}

// EmptyField is the permanent floor under a traversable cell
type EmptyField struct {
	Pos      Position `json:"pos"`
	Occupied bool     `json:"occupied"`
}

// Block is an impassable cell
type Block struct {
	Pos Position `json:"pos"`
}

// Level is one decoded level from a level pack
type Level struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Body  string `json:"body"`
}

// ChipMovedEvent is emitted after every committed move
type ChipMovedEvent struct {
	ChipID   ChipID   `json:"chip_id"`
	ChipType ChipType `json:"chip_type"`
	Previous Position `json:"previous"`
	Next     Position `json:"next"`
	Moves    int      `json:"moves"`
}

// SolvedEvent is emitted once when a committed move solves the grid
type SolvedEvent struct {
	Level string `json:"level"`
	Moves int    `json:"moves"`
}

// BandTarget describes the chip type a band's front row expects
type BandTarget struct {
	Row       int      `json:"row"`
	ChipType  ChipType `json:"chip_type"`
	Satisfied bool     `json:"satisfied"`
}

// PuzzleState is a serializable snapshot of an engine
type PuzzleState struct {
	LevelName    string             `json:"level_name"`
	LevelIndex   int                `json:"level_index"`
	Columns      int                `json:"columns"`
	Rows         int                `json:"rows"`
	Layout       []string           `json:"layout"`
	Chips        []Chip             `json:"chips"`
	ActiveChip   *ChipID            `json:"active_chip,omitempty"`
	AllowedMoves []Position         `json:"allowed_moves,omitempty"`
	Targets      []BandTarget       `json:"targets"`
	MoveCount    int                `json:"move_count"`
	Solved       bool               `json:"solved"`
	TotalMoves   int                `json:"total_moves"`
	MoveHistory  []MoveHistoryEntry `json:"move_history"`

	// CurrentMoves tracks only the moves since the last reset. It mirrors MoveHistory entries
	// but gets cleared on reset while MoveHistory remains cumulative.
	CurrentMoves []MoveHistoryEntry `json:"current_moves"`
}

// MoveHistoryEntry represents a single committed move
type MoveHistoryEntry struct {
	MoveNumber int       `json:"move_number"`
	ChipID     ChipID    `json:"chip_id"`
	ChipType   ChipType  `json:"chip_type"`
	From       Position  `json:"from"`
	To         Position  `json:"to"`
	Timestamp  time.Time `json:"timestamp"`
}
