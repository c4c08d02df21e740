package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wricardo/chipslide/game/engine"
	"github.com/wricardo/chipslide/game/levels"
	"github.com/wricardo/chipslide/game/solver"
)

// Analysis summarizes one level and its shortest solution
type Analysis struct {
	Level    string
	Columns  int
	Rows     int
	Chips    int
	Free     int
	Solution *solver.Solution
	Err      error
}

// loadLevels returns the levels of a pack file, or of a known pack ID when no
// such file exists. Undecodable levels are skipped.
func loadLevels(arg string, chipTypes int) ([]engine.Level, error) {
	data, err := os.ReadFile(arg)
	if err == nil {
		decoded, decodeErr := engine.DecodeLevels(string(data))
		if len(decoded) == 0 {
			return nil, fmt.Errorf("%s: %w", arg, decodeErr)
		}
		return decoded, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	manager, err := levels.NewManager("", chipTypes)
	if err != nil {
		return nil, err
	}
	pack, err := manager.LoadPack(arg)
	if err != nil {
		return nil, err
	}
	return pack.Levels, nil
}

// analyzeLevel assembles a level and searches for its shortest solution
func analyzeLevel(ctx context.Context, s *solver.Solver, level engine.Level, chipTypes int) Analysis {
	a := Analysis{Level: level.Name}

	grid, err := engine.Assemble(level.Body, chipTypes)
	if err != nil {
		a.Err = err
		return a
	}
	a.Columns, a.Rows = grid.Columns(), grid.Rows()
	a.Chips = len(grid.Chips())
	a.Free = len(grid.Fields()) - engine.CountOccupiedFields(grid)

	a.Solution, a.Err = s.Solve(ctx, level.Body, chipTypes)
	return a
}

func printAnalysis(w io.Writer, a Analysis, showSteps bool) {
	fmt.Fprintf(w, "\n=== %s ===\n", a.Level)
	if a.Columns > 0 {
		fmt.Fprintf(w, "Grid: %d x %d, Chips: %d, Free fields: %d\n", a.Columns, a.Rows, a.Chips, a.Free)
	}

	switch {
	case errors.Is(a.Err, solver.ErrUnsolvable):
		fmt.Fprintln(w, "❌ Unsolvable")
	case errors.Is(a.Err, solver.ErrSearchLimit):
		fmt.Fprintf(w, "⚠️  Gave up: %v\n", a.Err)
	case a.Err != nil:
		fmt.Fprintf(w, "❌ %v\n", a.Err)
	default:
		fmt.Fprintf(w, "✅ Shortest solution: %d moves (%d states explored)\n", a.Solution.Moves, a.Solution.Explored)
		if showSteps {
			for i, step := range a.Solution.Steps {
				fmt.Fprintf(w, "  %d. (%d,%d) -> (%d,%d)\n", i+1, step.From.X, step.From.Y, step.To.X, step.To.Y)
			}
		}
	}
}
