package engine

import (
	"fmt"
	"strconv"
	"strings"
)

type occupantKind uint8

const (
	noOccupant occupantKind = iota
	fieldOccupant
	chipOccupant
)

// occupant references an arena entry: a chip or the cell's own field
type occupant struct {
	kind  occupantKind
	index int
}

const noField = -1

// Grid is an assembled level. Chips, fields and blocks live in flat arenas;
// the occupant and floor layers address them by index, so a chip never
// points at its field and a field never points at its chip.
type Grid struct {
	columns int
	rows    int

	chips  []Chip
	fields []EmptyField
	blocks []Block

	// occupants[y][x] is the current resident of a cell
	occupants [][]occupant
	// floor[y][x] is the permanent field index of a cell, or noField for blocks
	floor [][]int
}

// Assemble builds a grid from a level body. Tokens are read row by row, left
// to right, and coordinates are assigned in that order starting at (0,0).
// chipTypes bounds the chip digits accepted; a larger digit fails with
// *AssemblyError.
func Assemble(body string, chipTypes int) (*Grid, error) {
	if chipTypes < 1 || chipTypes > MaxChipTypes {
		return nil, fmt.Errorf("assemble: chip types must be between 1 and %d, got %d", MaxChipTypes, chipTypes)
	}

	rows, err := ParseBody(body)
	if err != nil {
		return nil, err
	}

	g := &Grid{
		columns:   len(rows[0]),
		rows:      len(rows),
		occupants: make([][]occupant, len(rows)),
		floor:     make([][]int, len(rows)),
	}

	for y, row := range rows {
		g.occupants[y] = make([]occupant, g.columns)
		g.floor[y] = make([]int, g.columns)

		for x, token := range row {
			pos := Position{X: x, Y: y}

			if token == BlockToken {
				g.blocks = append(g.blocks, Block{Pos: pos})
				g.floor[y][x] = noField
				continue
			}

			fieldIndex := len(g.fields)
			g.fields = append(g.fields, EmptyField{Pos: pos})
			g.floor[y][x] = fieldIndex
			g.occupants[y][x] = occupant{kind: fieldOccupant, index: fieldIndex}

			if token == EmptyToken {
				continue
			}

			chipType, _ := strconv.Atoi(token)
			if chipType > chipTypes {
				return nil, &AssemblyError{Pos: pos, Token: token, ChipTypes: chipTypes}
			}

			chipIndex := len(g.chips)
			g.chips = append(g.chips, Chip{
				ID:   ChipID(chipIndex),
				Type: ChipType(chipType),
				Pos:  pos,
			})
			g.fields[fieldIndex].Occupied = true
			g.occupants[y][x] = occupant{kind: chipOccupant, index: chipIndex}
		}
	}

	return g, nil
}

// Columns returns the number of columns
func (g *Grid) Columns() int {
	return g.columns
}

// Rows returns the number of rows
func (g *Grid) Rows() int {
	return g.rows
}

// InBounds reports whether p lies inside the grid
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.columns && p.Y >= 0 && p.Y < g.rows
}

// IsBlock reports whether p is an impassable cell
func (g *Grid) IsBlock(p Position) bool {
	return g.InBounds(p) && g.floor[p.Y][p.X] == noField
}

// Floor returns the permanent field at p
func (g *Grid) Floor(p Position) (EmptyField, bool) {
	if !g.InBounds(p) || g.floor[p.Y][p.X] == noField {
		return EmptyField{}, false
	}
	return g.fields[g.floor[p.Y][p.X]], true
}

// ChipAt returns the chip currently sitting at p
func (g *Grid) ChipAt(p Position) (Chip, bool) {
	if !g.InBounds(p) {
		return Chip{}, false
	}
	occ := g.occupants[p.Y][p.X]
	if occ.kind != chipOccupant {
		return Chip{}, false
	}
	return g.chips[occ.index], true
}

// Chip returns the chip with the given ID
func (g *Grid) Chip(id ChipID) (Chip, bool) {
	if id < 0 || int(id) >= len(g.chips) {
		return Chip{}, false
	}
	return g.chips[id], true
}

// Chips returns a copy of every chip, ordered by ID
func (g *Grid) Chips() []Chip {
	return append([]Chip(nil), g.chips...)
}

// Fields returns a copy of every floor field in row-major order
func (g *Grid) Fields() []EmptyField {
	return append([]EmptyField(nil), g.fields...)
}

// Blocks returns a copy of every block in row-major order
func (g *Grid) Blocks() []Block {
	return append([]Block(nil), g.blocks...)
}

// RegistrySize returns the number of chips, fields and blocks the grid owns
func (g *Grid) RegistrySize() int {
	return len(g.chips) + len(g.fields) + len(g.blocks)
}

// Layout renders the current occupancy in level text form, one string per row
func (g *Grid) Layout() []string {
	lines := make([]string, g.rows)
	tokens := make([]string, g.columns)
	for y := 0; y < g.rows; y++ {
		for x := 0; x < g.columns; x++ {
			switch occ := g.occupants[y][x]; occ.kind {
			case chipOccupant:
				tokens[x] = strconv.Itoa(int(g.chips[occ.index].Type))
			case fieldOccupant:
				tokens[x] = EmptyToken
			default:
				tokens[x] = BlockToken
			}
		}
		lines[y] = strings.Join(tokens, " ")
	}
	return lines
}

// Clone returns a deep copy that shares no state with g
func (g *Grid) Clone() *Grid {
	clone := &Grid{
		columns:   g.columns,
		rows:      g.rows,
		chips:     append([]Chip(nil), g.chips...),
		fields:    append([]EmptyField(nil), g.fields...),
		blocks:    append([]Block(nil), g.blocks...),
		occupants: make([][]occupant, g.rows),
		floor:     make([][]int, g.rows),
	}
	for y := 0; y < g.rows; y++ {
		clone.occupants[y] = append([]occupant(nil), g.occupants[y]...)
		clone.floor[y] = append([]int(nil), g.floor[y]...)
	}
	return clone
}

// Verify checks the occupant and floor layers against each other and returns
// the first *InvariantViolation found
func (g *Grid) Verify() error {
	for y := 0; y < g.rows; y++ {
		for x := 0; x < g.columns; x++ {
			pos := Position{X: x, Y: y}
			fieldIndex := g.floor[y][x]
			occ := g.occupants[y][x]

			if fieldIndex == noField {
				if occ.kind != noOccupant {
					return &InvariantViolation{Pos: pos, Reason: "block cell has an occupant"}
				}
				continue
			}

			field := g.fields[fieldIndex]
			if field.Pos != pos {
				return &InvariantViolation{Pos: pos, Reason: "floor field has a foreign position"}
			}

			switch occ.kind {
			case fieldOccupant:
				if occ.index != fieldIndex {
					return &InvariantViolation{Pos: pos, Reason: "occupant is another cell's field"}
				}
				if field.Occupied {
					return &InvariantViolation{Pos: pos, Reason: "free field is flagged occupied"}
				}
			case chipOccupant:
				if g.chips[occ.index].Pos != pos {
					return &InvariantViolation{Pos: pos, Reason: "chip position disagrees with its cell"}
				}
				if !field.Occupied {
					return &InvariantViolation{Pos: pos, Reason: "field under a chip is flagged free"}
				}
			default:
				return &InvariantViolation{Pos: pos, Reason: "floor cell has no occupant"}
			}
		}
	}

	for _, chip := range g.chips {
		occ := g.occupants[chip.Pos.Y][chip.Pos.X]
		if occ.kind != chipOccupant || ChipID(occ.index) != chip.ID {
			return &InvariantViolation{Pos: chip.Pos, Reason: fmt.Sprintf("chip %d is not its cell's occupant", chip.ID)}
		}
	}

	return nil
}

// relocate moves a chip to an adjacent free cell and returns where it came
// from. Callers validate the move first.
func (g *Grid) relocate(id ChipID, to Position) Position {
	chip := &g.chips[id]
	from := chip.Pos

	destField := g.floor[to.Y][to.X]
	g.fields[destField].Occupied = true
	chip.Pos = to

	sourceField := g.floor[from.Y][from.X]
	g.fields[sourceField].Occupied = false

	g.occupants[to.Y][to.X] = occupant{kind: chipOccupant, index: int(id)}
	g.occupants[from.Y][from.X] = occupant{kind: fieldOccupant, index: sourceField}

	return from
}
