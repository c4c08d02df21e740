package engine

import "fmt"

// Options configures a PuzzleEngine
type Options struct {
	// ChipTypes bounds the chip digits a level may use
	ChipTypes int `json:"chip_types" yaml:"chip_types"`

	// MovementSpeed is in world units per second. Grid logic ignores it; it
	// is carried for relocation animation on the consumer side.
	MovementSpeed float64 `json:"movement_speed" yaml:"movement_speed"`

	// StrictInvariants verifies the grid after every committed move and
	// panics with *InvariantViolation on mismatch
	StrictInvariants bool `json:"strict_invariants" yaml:"strict_invariants"`
}

// DefaultOptions returns the options used by NewEngineWithDefaults
func DefaultOptions() Options {
	return Options{
		ChipTypes:     MaxChipTypes,
		MovementSpeed: DefaultMovementSpeed,
	}
}

// ValidateOptions validates engine options for correctness
func ValidateOptions(opts Options) error {
	if opts.ChipTypes < 1 || opts.ChipTypes > MaxChipTypes {
		return fmt.Errorf("options validation: chip_types must be between 1 and %d, got %d", MaxChipTypes, opts.ChipTypes)
	}
	if opts.MovementSpeed <= 0 {
		return fmt.Errorf("options validation: movement_speed must be positive, got %v", opts.MovementSpeed)
	}
	return nil
}
