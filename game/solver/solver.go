// Package solver finds the minimum number of moves that solves a level.
//
// The search is a breadth-first walk over whole-grid states where every chip
// may slide into any orthogonally adjacent free cell. Chips of the same type
// are interchangeable, so states are keyed by the grid's token layout.
package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/wricardo/chipslide/game/engine"
)

var (
	ErrUnsolvable  = errors.New("level has no solution")
	ErrSearchLimit = errors.New("search limit reached")
)

// DefaultMaxStates bounds the search when no limit is given
const DefaultMaxStates = 200000

// Step is one chip move in a solution
type Step struct {
	From engine.Position `json:"from"`
	To   engine.Position `json:"to"`
}

// Solution is a shortest sequence of moves for a level
type Solution struct {
	Moves    int    `json:"moves"`
	Steps    []Step `json:"steps"`
	Explored int    `json:"explored"`
}

// Solver runs bounded breadth-first searches
type Solver struct {
	maxStates int
}

// New creates a solver that gives up after visiting maxStates grid states.
// A non-positive maxStates selects DefaultMaxStates.
func New(maxStates int) *Solver {
	if maxStates <= 0 {
		maxStates = DefaultMaxStates
	}
	return &Solver{maxStates: maxStates}
}

type board struct {
	columns int
	rows    int
}

type visit struct {
	parent string
	step   Step
}

// Solve returns a shortest solution for body
func (s *Solver) Solve(ctx context.Context, body string, chipTypes int) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	grid, err := engine.Assemble(body, chipTypes)
	if err != nil {
		return nil, err
	}

	b := board{columns: grid.Columns(), rows: grid.Rows()}
	start := b.encode(grid)

	if b.solved(start) {
		return &Solution{Moves: 0, Steps: []Step{}, Explored: 1}, nil
	}

	visited := map[string]visit{start: {}}
	queue := []string{start}

	for len(queue) > 0 {
		if len(visited)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		current := queue[0]
		queue = queue[1:]

		for _, next := range b.successors(current) {
			if _, seen := visited[next.state]; seen {
				continue
			}
			visited[next.state] = visit{parent: current, step: next.step}

			if b.solved(next.state) {
				steps := unwind(visited, start, next.state)
				return &Solution{Moves: len(steps), Steps: steps, Explored: len(visited)}, nil
			}

			if len(visited) >= s.maxStates {
				return nil, fmt.Errorf("%w after %d states", ErrSearchLimit, len(visited))
			}
			queue = append(queue, next.state)
		}
	}

	return nil, ErrUnsolvable
}

// MinMoves returns the length of a shortest solution. ok is false when the
// level is unsolvable, invalid, or the search was cut short.
func (s *Solver) MinMoves(ctx context.Context, body string, chipTypes int) (int, bool) {
	solution, err := s.Solve(ctx, body, chipTypes)
	if err != nil {
		return 0, false
	}
	return solution.Moves, true
}

type successor struct {
	state string
	step  Step
}

// successors lists every state one chip move away from state
func (b board) successors(state string) []successor {
	var out []successor
	cells := []byte(state)

	for i, c := range cells {
		if c < '1' || c > '8' {
			continue
		}
		from := b.position(i)
		for _, d := range [][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
			to := from.Add(d[0], d[1])
			if to.X < 0 || to.X >= b.columns || to.Y < 0 || to.Y >= b.rows {
				continue
			}
			j := b.index(to)
			if cells[j] != engine.EmptyToken[0] {
				continue
			}
			cells[i], cells[j] = cells[j], cells[i]
			out = append(out, successor{state: string(cells), step: Step{From: from, To: to}})
			cells[i], cells[j] = cells[j], cells[i]
		}
	}
	return out
}

// solved applies the win rule to an encoded state
func (b board) solved(state string) bool {
	for row := 0; row < b.rows; row += engine.BandHeight {
		want := byte('0' + engine.TargetType(row))
		for col := 0; col < b.columns; col++ {
			if state[row*b.columns+col] != want {
				return false
			}
		}
	}
	return true
}

// encode flattens a grid into one token byte per cell, row-major
func (b board) encode(g *engine.Grid) string {
	cells := make([]byte, 0, b.columns*b.rows)
	for _, line := range g.Layout() {
		for i := 0; i < len(line); i += 2 {
			cells = append(cells, line[i])
		}
	}
	return string(cells)
}

func (b board) position(i int) engine.Position {
	return engine.Position{X: i % b.columns, Y: i / b.columns}
}

func (b board) index(p engine.Position) int {
	return p.Y*b.columns + p.X
}

// unwind follows parent links from goal back to start
func unwind(visited map[string]visit, start, goal string) []Step {
	var steps []Step
	for state := goal; state != start; {
		v := visited[state]
		steps = append(steps, v.step)
		state = v.parent
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps
}
