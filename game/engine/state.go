package engine

// GetState returns a snapshot of the engine. The snapshot shares no memory
// with the engine and is safe to hand to other goroutines.
func (e *PuzzleEngine) GetState() *PuzzleState {
	state := &PuzzleState{
		LevelName:    e.level.Name,
		LevelIndex:   e.level.Index,
		MoveCount:    e.moves,
		Solved:       e.solved,
		TotalMoves:   len(e.history),
		MoveHistory:  append([]MoveHistoryEntry{}, e.history...),
		CurrentMoves: append([]MoveHistoryEntry{}, e.current...),
	}
	if e.grid == nil {
		return state
	}

	state.Columns = e.grid.Columns()
	state.Rows = e.grid.Rows()
	state.Layout = e.grid.Layout()
	state.Chips = e.grid.Chips()
	state.Targets = BandTargets(e.grid)

	if id, ok := e.selection.Active(); ok {
		active := id
		state.ActiveChip = &active
		state.Chips[id].Active = true
		state.AllowedMoves = e.AllowedMoves()
	}

	return state
}
