package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for puzzle operations
type Engine interface {
	// Level lifecycle
	Assemble(body string) error
	AssembleLevel(level Level) error
	Disassemble()
	Reset() error
	IsAssembled() bool

	// Selection
	SelectChip(id ChipID) error
	SelectAt(pos Position) error
	DeselectActive()
	Click(id ChipID) error
	BeginInteraction(id ChipID) error
	EndInteraction(id ChipID)
	ActiveChip() (Chip, bool)

	// Movement operations
	IsMoveAllowed(cell Position) bool
	AllowedMoves() []Position
	AttemptMove(cell Position) bool
	Move(direction string) bool

	// Progress
	MoveCount() int
	IsSolved() bool

	// State and history
	GetState() *PuzzleState
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// PuzzleEngine implements the Engine interface. It is single-threaded: every
// call runs to completion synchronously and callers serialize access.
type PuzzleEngine struct {
	opts Options

	level     Level
	grid      *Grid
	selection Selection
	moves     int
	solved    bool

	// history is cumulative across resets; current covers the running attempt
	history []MoveHistoryEntry
	current []MoveHistoryEntry

	// ChipMoved fires after every committed move
	ChipMoved Signal[ChipMovedEvent]
	// Solved fires once when a committed move solves the grid
	Solved Signal[SolvedEvent]

	now func() time.Time
}

// NewEngine creates a new puzzle engine with the provided options
func NewEngine(opts Options) (*PuzzleEngine, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	return &PuzzleEngine{opts: opts, now: time.Now}, nil
}

// NewEngineWithDefaults creates a new puzzle engine with default options
func NewEngineWithDefaults() *PuzzleEngine {
	return &PuzzleEngine{opts: DefaultOptions(), now: time.Now}
}

// Options returns the engine options
func (e *PuzzleEngine) Options() Options {
	return e.opts
}

// Assemble builds a grid from a bare level body
func (e *PuzzleEngine) Assemble(body string) error {
	return e.AssembleLevel(Level{Body: body})
}

// AssembleLevel tears down the current grid, if any, and builds a new one
// from level. Move count and history start over.
func (e *PuzzleEngine) AssembleLevel(level Level) error {
	grid, err := Assemble(level.Body, e.opts.ChipTypes)
	if err != nil {
		return err
	}

	e.Disassemble()
	e.level = level
	e.grid = grid
	e.solved = CheckWin(grid)
	return nil
}

// Disassemble discards the grid and every chip, field and block it owns
func (e *PuzzleEngine) Disassemble() {
	e.selection.Deactivate()
	e.grid = nil
	e.level = Level{}
	e.moves = 0
	e.solved = false
	e.current = nil
	e.history = nil
}

// Reset reassembles the current level. Cumulative history survives.
func (e *PuzzleEngine) Reset() error {
	if e.grid == nil {
		return ErrNotAssembled
	}
	history := e.history
	if err := e.AssembleLevel(e.level); err != nil {
		return err
	}
	e.history = history
	return nil
}

// IsAssembled reports whether a level is loaded
func (e *PuzzleEngine) IsAssembled() bool {
	return e.grid != nil
}

// Grid returns the assembled grid, or nil
func (e *PuzzleEngine) Grid() *Grid {
	return e.grid
}

// Level returns the assembled level
func (e *PuzzleEngine) Level() Level {
	return e.level
}

// RegistrySize returns how many chips, fields and blocks are alive
func (e *PuzzleEngine) RegistrySize() int {
	if e.grid == nil {
		return 0
	}
	return e.grid.RegistrySize()
}

// SelectChip makes id the active chip
func (e *PuzzleEngine) SelectChip(id ChipID) error {
	if err := e.checkSelectable(id); err != nil {
		return err
	}
	e.selection.Activate(id)
	return nil
}

// SelectAt selects the chip sitting at pos
func (e *PuzzleEngine) SelectAt(pos Position) error {
	if e.grid == nil {
		return ErrNotAssembled
	}
	chip, ok := e.grid.ChipAt(pos)
	if !ok {
		return fmt.Errorf("%w: no chip at (%d,%d)", ErrUnknownChip, pos.X, pos.Y)
	}
	return e.SelectChip(chip.ID)
}

// DeselectActive returns the selection to idle
func (e *PuzzleEngine) DeselectActive() {
	e.selection.Deactivate()
}

// Click toggles id: an active chip is deselected, any other chip becomes active
func (e *PuzzleEngine) Click(id ChipID) error {
	if e.selection.IsActive(id) {
		e.selection.Deactivate()
		return nil
	}
	if err := e.checkSelectable(id); err != nil {
		return err
	}
	e.selection.Toggle(id)
	return nil
}

// BeginInteraction starts a drag on id
func (e *PuzzleEngine) BeginInteraction(id ChipID) error {
	return e.SelectChip(id)
}

// EndInteraction ends a drag on id
func (e *PuzzleEngine) EndInteraction(id ChipID) {
	e.selection.Release(id)
}

// SelectionState returns Idle or Selected
func (e *PuzzleEngine) SelectionState() SelectionState {
	return e.selection.State()
}

// ActiveChip returns the selected chip, if any
func (e *PuzzleEngine) ActiveChip() (Chip, bool) {
	id, ok := e.selection.Active()
	if !ok || e.grid == nil {
		return Chip{}, false
	}
	chip, ok := e.grid.Chip(id)
	if !ok {
		return Chip{}, false
	}
	chip.Active = true
	return chip, true
}

// IsMoveAllowed reports whether the active chip may slide into cell
func (e *PuzzleEngine) IsMoveAllowed(cell Position) bool {
	return IsMoveAllowed(e.grid, &e.selection, cell)
}

// AllowedMoves lists the cells the active chip may slide into
func (e *PuzzleEngine) AllowedMoves() []Position {
	chip, ok := e.ActiveChip()
	if !ok {
		return nil
	}
	var cells []Position
	for _, d := range [][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
		cell := chip.Pos.Add(d[0], d[1])
		if e.IsMoveAllowed(cell) {
			cells = append(cells, cell)
		}
	}
	return cells
}

// AttemptMove validates and, when legal, commits a move of the active chip
// to cell. Illegal requests are ignored and report false.
func (e *PuzzleEngine) AttemptMove(cell Position) bool {
	if e.solved || !e.IsMoveAllowed(cell) {
		return false
	}
	id, _ := e.selection.Active()
	e.applyMove(id, cell)
	return true
}

// Move slides the active chip one cell in direction (up, down, left, right).
// An offset that would leave the grid is cancelled before validation.
func (e *PuzzleEngine) Move(direction string) bool {
	chip, ok := e.ActiveChip()
	if !ok {
		return false
	}
	dx, dy, ok := DirectionOffset(direction)
	if !ok {
		return false
	}
	return e.AttemptMove(ResolveDirectional(e.grid, chip.Pos, dx, dy))
}

// MoveCount returns the number of moves committed since the level started
func (e *PuzzleEngine) MoveCount() int {
	return e.moves
}

// IsSolved reports whether the grid satisfies the win predicate
func (e *PuzzleEngine) IsSolved() bool {
	return e.solved
}

// GetMoveHistory returns the cumulative move history
func (e *PuzzleEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.history
}

// GetCurrentMoves returns the moves since the last reset
func (e *PuzzleEngine) GetCurrentMoves() []MoveHistoryEntry {
	return e.current
}

// GetLastMove returns the last move made, or nil if no moves
func (e *PuzzleEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

// Replay re-applies recorded moves on the current grid. Each entry selects the
// chip at its From cell and moves it to To.
func (e *PuzzleEngine) Replay(entries []MoveHistoryEntry) error {
	for i, entry := range entries {
		if err := e.SelectAt(entry.From); err != nil {
			return fmt.Errorf("replay move %d: %w", i+1, err)
		}
		if !e.AttemptMove(entry.To) {
			return fmt.Errorf("replay move %d from (%d,%d) to (%d,%d): %w",
				i+1, entry.From.X, entry.From.Y, entry.To.X, entry.To.Y, ErrIllegalMove)
		}
	}
	e.selection.Deactivate()
	return nil
}

// Restore assembles level, replays current and then adopts the recorded
// histories verbatim, timestamps included
func (e *PuzzleEngine) Restore(level Level, history, current []MoveHistoryEntry) error {
	if err := e.AssembleLevel(level); err != nil {
		return err
	}
	if err := e.Replay(current); err != nil {
		return err
	}
	e.history = append([]MoveHistoryEntry(nil), history...)
	e.current = append([]MoveHistoryEntry(nil), current...)
	return nil
}

// applyMove commits a validated move, records it and runs the win check
func (e *PuzzleEngine) applyMove(id ChipID, to Position) {
	from := e.grid.relocate(id, to)
	e.moves++

	if e.opts.StrictInvariants {
		if err := e.grid.Verify(); err != nil {
			panic(err)
		}
	}

	chip := e.grid.chips[id]
	entry := MoveHistoryEntry{
		MoveNumber: len(e.history) + 1,
		ChipID:     id,
		ChipType:   chip.Type,
		From:       from,
		To:         to,
		Timestamp:  e.now(),
	}
	e.history = append(e.history, entry)
	e.current = append(e.current, entry)

	e.ChipMoved.Emit(ChipMovedEvent{
		ChipID:   id,
		ChipType: chip.Type,
		Previous: from,
		Next:     to,
		Moves:    e.moves,
	})

	if CheckWin(e.grid) {
		e.solved = true
		e.selection.Deactivate()
		e.Solved.Emit(SolvedEvent{Level: e.level.Name, Moves: e.moves})
	}
}

// checkSelectable returns an error when id cannot become the active chip
func (e *PuzzleEngine) checkSelectable(id ChipID) error {
	if e.grid == nil {
		return ErrNotAssembled
	}
	if e.solved {
		return ErrPuzzleSolved
	}
	if _, ok := e.grid.Chip(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownChip, id)
	}
	return nil
}
