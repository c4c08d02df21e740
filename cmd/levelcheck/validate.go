package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wricardo/chipslide/game/engine"
)

// ValidationResult captures the outcome of validating one level of a pack.
// If Valid is true, Notes holds informational messages; otherwise Errors
// lists what is wrong.
type ValidationResult struct {
	File   string
	Level  string
	Valid  bool
	Errors []string
	Notes  []string
}

// validatePack reads a level pack file and validates every level in it.
// Levels that fail to decode are reported with whatever name the decoder
// recovered.
func validatePack(path string, chipTypes int) []ValidationResult {
	file := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return []ValidationResult{{
			File:   file,
			Errors: []string{fmt.Sprintf("Failed to read file: %v", err)},
		}}
	}

	levels, err := engine.DecodeLevels(string(data))

	var results []ValidationResult
	for _, decodeErr := range unjoin(err) {
		res := ValidationResult{File: file, Errors: []string{decodeErr.Error()}}
		var perr *engine.ParseError
		if errors.As(decodeErr, &perr) {
			res.Level = perr.Level
		}
		results = append(results, res)
	}

	for _, level := range levels {
		res := validateLevel(level, chipTypes)
		res.File = file
		results = append(results, res)
	}
	return results
}

// validateLevel assembles a decoded level and checks that the win condition
// is reachable in principle: every front row is free of blocks and each band
// has at least as many chips of its type as there are columns.
func validateLevel(level engine.Level, chipTypes int) ValidationResult {
	res := ValidationResult{Level: level.Name, Valid: true}
	fail := func(format string, args ...interface{}) {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
	}

	grid, err := engine.Assemble(level.Body, chipTypes)
	if err != nil {
		fail("%v", err)
		return res
	}
	if err := grid.Verify(); err != nil {
		fail("%v", err)
		return res
	}

	for row := 0; row < grid.Rows(); row += engine.BandHeight {
		target := engine.TargetType(row)
		if int(target) > chipTypes {
			fail("band at row %d expects chip type %d but only %d types are configured", row, target, chipTypes)
			continue
		}
		for x := 0; x < grid.Columns(); x++ {
			if grid.IsBlock(engine.Position{X: x, Y: row}) {
				fail("front row %d has a block at column %d", row, x)
			}
		}
		if have := engine.CountChipsOfType(grid, target); have < grid.Columns() {
			fail("band at row %d needs %d chips of type %d, found %d", row, grid.Columns(), target, have)
		}
	}

	free := len(grid.Fields()) - engine.CountOccupiedFields(grid)
	if free == 0 {
		fail("no free field, no chip can move")
	}

	res.Notes = append(res.Notes,
		fmt.Sprintf("%dx%d grid, %d chips, %d free fields, %d blocks",
			grid.Columns(), grid.Rows(), len(grid.Chips()), free, len(grid.Blocks())))
	if engine.CheckWin(grid) {
		res.Notes = append(res.Notes, "already solved when assembled")
	}
	return res
}

// unjoin flattens an errors.Join result into its parts
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
