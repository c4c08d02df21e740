package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/chipslide/game/engine"
)

// replay applies a solution through the engine and reports whether it solves
func replay(t *testing.T, body string, steps []Step) bool {
	t.Helper()
	e := engine.NewEngineWithDefaults()
	require.NoError(t, e.Assemble(body))
	for i, step := range steps {
		require.NoError(t, e.SelectAt(step.From), "step %d", i+1)
		require.True(t, e.AttemptMove(step.To), "step %d: %+v", i+1, step)
	}
	return e.IsSolved()
}

func TestSolve_MinimumMoves(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		moves int
	}{
		{"already solved", "1\n0", 0},
		{"one step", "0\n1", 1},
		{"two chips", "0 0\n1 1", 2},
		{"block in target row", "0 9\n9 0\n0 0\n1 1", -1},
		{"shift along the row", "1 0 1\n9 0 1", 2},
	}

	s := New(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solution, err := s.Solve(context.Background(), tt.body, engine.MaxChipTypes)
			if tt.moves < 0 {
				assert.ErrorIs(t, err, ErrUnsolvable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.moves, solution.Moves)
			assert.Len(t, solution.Steps, tt.moves)
			assert.True(t, replay(t, tt.body, solution.Steps))
		})
	}
}

func TestSolve_ClassicLevels(t *testing.T) {
	levels := map[string]string{
		"swap":        "2 0\n1 0\n0 2\n0 1",
		"corridor":    "0 0 0\n1 9 1\n0 2 0\n2 1 2",
		"three bands": "0 0\n2 1\n0 3\n1 0\n0 2\n3 0",
	}

	s := New(0)
	for name, body := range levels {
		t.Run(name, func(t *testing.T) {
			solution, err := s.Solve(context.Background(), body, engine.MaxChipTypes)
			require.NoError(t, err)
			assert.Positive(t, solution.Moves)
			assert.True(t, replay(t, body, solution.Steps))
		})
	}
}

func TestSolve_Unsolvable(t *testing.T) {
	// Only one type 1 chip for a two-column target row
	_, err := New(0).Solve(context.Background(), "0 0\n1 0", engine.MaxChipTypes)
	assert.ErrorIs(t, err, ErrUnsolvable)
}

func TestSolve_SearchLimit(t *testing.T) {
	_, err := New(2).Solve(context.Background(), "0 0 0\n1 9 1\n0 2 0\n2 1 2", engine.MaxChipTypes)
	assert.ErrorIs(t, err, ErrSearchLimit)
}

func TestSolve_InvalidLevel(t *testing.T) {
	_, err := New(0).Solve(context.Background(), "3 0\n0 0", 2)
	var aerr *engine.AssemblyError
	assert.ErrorAs(t, err, &aerr)
}

func TestSolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(0).Solve(ctx, "0\n1", engine.MaxChipTypes)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMinMoves(t *testing.T) {
	s := New(0)
	moves, ok := s.MinMoves(context.Background(), "0 0\n1 1", engine.MaxChipTypes)
	assert.True(t, ok)
	assert.Equal(t, 2, moves)

	_, ok = s.MinMoves(context.Background(), "0 0\n1 0", engine.MaxChipTypes)
	assert.False(t, ok)
}
