package engine

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// TargetType returns the chip type expected in the band containing row
func TargetType(row int) ChipType {
	return ChipType(row/BandHeight + 1)
}

// CountChipsOfType counts the chips of one type in the grid
func CountChipsOfType(g *Grid, chipType ChipType) int {
	count := 0
	for _, chip := range g.chips {
		if chip.Type == chipType {
			count++
		}
	}
	return count
}

// CountOccupiedFields counts the floor fields that currently hold a chip
func CountOccupiedFields(g *Grid) int {
	count := 0
	for _, field := range g.fields {
		if field.Occupied {
			count++
		}
	}
	return count
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
