// Package engine provides the core puzzle logic for the Chip Slide game.
//
// The engine package implements the game mechanics including:
//   - Level text decoding into named level bodies
//   - Dual-layer grid assembly (occupants over a permanent floor)
//   - Chip selection with at most one active chip
//   - Move validation and application
//   - Win detection over two-row target bands
//
// Core Types:
//
// The Engine interface defines the main contract for puzzle operations,
// implemented by PuzzleEngine. Grid holds the assembled cells, while Level
// carries one decoded level from a level pack.
//
// Usage:
//
//	levels, err := engine.DecodeLevels(packText)
//	if err != nil {
//		log.Printf("some levels were skipped: %v", err)
//	}
//
//	puzzle := engine.NewEngineWithDefaults()
//	if err := puzzle.AssembleLevel(levels[0]); err != nil {
//		log.Fatal(err)
//	}
//
//	puzzle.Solved.Subscribe(func(ev engine.SolvedEvent) {
//		fmt.Printf("solved in %d moves\n", ev.Moves)
//	})
//
//	// Select the chip at (0,0) and slide it down
//	_ = puzzle.SelectAt(engine.Position{X: 0, Y: 0})
//	ok := puzzle.Move("down")
//
// Game Rules:
//
// Rows pair up into bands of two. Band b expects chips of type b+1. The
// puzzle is solved when the first row of every band is filled, in every
// column, with chips of that band's type. The second row of a band is free
// space for maneuvering and is never checked. A chip slides one cell at a
// time into an orthogonally adjacent, unoccupied floor cell.
package engine
