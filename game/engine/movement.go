package engine

import "strings"

// IsMoveAllowed reports whether the active chip may slide into cell: a chip
// must be selected, cell must be exactly one orthogonal step away from it, and
// cell must be a free floor cell. It has no side effects.
func IsMoveAllowed(g *Grid, sel *Selection, cell Position) bool {
	if g == nil || sel == nil {
		return false
	}
	id, ok := sel.Active()
	if !ok {
		return false
	}
	chip, ok := g.Chip(id)
	if !ok {
		return false
	}
	if ManhattanDistance(chip.Pos, cell) != 1 {
		return false
	}
	field, ok := g.Floor(cell)
	return ok && !field.Occupied
}

// ResolveDirectional offsets from by dx columns and dy rows, cancelling the
// offset on any axis that would leave the grid
func ResolveDirectional(g *Grid, from Position, dx, dy int) Position {
	next := from.Add(dx, dy)
	if next.X < 0 || next.X >= g.Columns() {
		next.X -= dx
	}
	if next.Y < 0 || next.Y >= g.Rows() {
		next.Y -= dy
	}
	return next
}

// DirectionOffset maps up/down/left/right to a column and row offset
func DirectionOffset(direction string) (dx, dy int, ok bool) {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "up":
		return 0, -1, true
	case "down":
		return 0, 1, true
	case "left":
		return -1, 0, true
	case "right":
		return 1, 0, true
	default:
		return 0, 0, false
	}
}

// CheckWin reports whether the front row of every band holds, in every
// column, a chip of that band's type. Odd rows are never inspected.
func CheckWin(g *Grid) bool {
	if g == nil {
		return false
	}
	for row := 0; row < g.Rows(); row += BandHeight {
		for col := 0; col < g.Columns(); col++ {
			chip, ok := g.ChipAt(Position{X: col, Y: row})
			if !ok || chip.Type != TargetType(row) {
				return false
			}
		}
	}
	return true
}

// BandTargets reports the expected chip type for the front row of each band
// and whether that row is currently complete
func BandTargets(g *Grid) []BandTarget {
	if g == nil {
		return nil
	}
	targets := make([]BandTarget, 0, g.Rows()/BandHeight)
	for row := 0; row < g.Rows(); row += BandHeight {
		want := TargetType(row)
		satisfied := true
		for col := 0; col < g.Columns(); col++ {
			chip, ok := g.ChipAt(Position{X: col, Y: row})
			if !ok || chip.Type != want {
				satisfied = false
				break
			}
		}
		targets = append(targets, BandTarget{Row: row, ChipType: want, Satisfied: satisfied})
	}
	return targets
}
