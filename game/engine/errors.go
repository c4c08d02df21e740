package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNotAssembled = errors.New("no level assembled")
	ErrUnknownChip  = errors.New("unknown chip")
	ErrPuzzleSolved = errors.New("puzzle already solved")
	ErrIllegalMove  = errors.New("illegal move")
)

// ParseError reports malformed level text. It is fatal to the level it
// describes and to nothing else.
type ParseError struct {
	Level  string // level name, empty when the name line is missing
	Index  int    // 1-based position of the level in its pack, 0 when unknown
	Row    int    // 1-based body row, 0 when not row specific
	Reason string
}

func (e *ParseError) Error() string {
	where := "level"
	switch {
	case e.Level != "":
		where = fmt.Sprintf("level %q", e.Level)
	case e.Index > 0:
		where = fmt.Sprintf("level #%d", e.Index)
	}
	if e.Row > 0 {
		return fmt.Sprintf("parse %s row %d: %s", where, e.Row, e.Reason)
	}
	return fmt.Sprintf("parse %s: %s", where, e.Reason)
}

// AssemblyError reports a chip token outside the configured chip type range
type AssemblyError struct {
	Pos       Position
	Token     string
	ChipTypes int
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble: chip token %q at (%d,%d) exceeds %d chip types",
		e.Token, e.Pos.X, e.Pos.Y, e.ChipTypes)
}

// InvariantViolation reports an occupant/floor mismatch. It indicates an
// engine bug rather than bad input.
type InvariantViolation struct {
	Pos    Position
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("grid invariant violated at (%d,%d): %s", e.Pos.X, e.Pos.Y, e.Reason)
}
