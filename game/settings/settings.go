// Package settings loads the server settings file.
//
// Settings are YAML. Missing keys keep their defaults, and a few keys can be
// overridden from the environment:
//
//	chip_types: 8
//	movement_speed: 5
//	animation_fps: 60
//	sessions_dir: sessions
//	results_db: results.db
//	session_ttl: 24h
//	strict_invariants: false
//	solver_max_states: 200000
package settings

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/chipslide/game/engine"
)

// EnvPath names the environment variable consulted when no settings path is given
const EnvPath = "CHIPSLIDE_SETTINGS"

// Settings configures the puzzle server
type Settings struct {
	ChipTypes        int           `yaml:"chip_types"`
	MovementSpeed    float64       `yaml:"movement_speed"`
	AnimationFPS     int           `yaml:"animation_fps"`
	SessionsDir      string        `yaml:"sessions_dir"`
	ResultsDB        string        `yaml:"results_db"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	StrictInvariants bool          `yaml:"strict_invariants"`
	SolverMaxStates  int           `yaml:"solver_max_states"`
}

// Default returns the built-in settings
func Default() Settings {
	return Settings{
		ChipTypes:       engine.MaxChipTypes,
		MovementSpeed:   engine.DefaultMovementSpeed,
		AnimationFPS:    engine.DefaultAnimationFPS,
		SessionsDir:     "sessions",
		ResultsDB:       "results.db",
		SessionTTL:      24 * time.Hour,
		SolverMaxStates: 200000,
	}
}

// Load reads settings from path on top of the defaults. With an empty path it
// falls back to $CHIPSLIDE_SETTINGS and, failing that, to the defaults alone.
// Environment overrides are applied last and the result is validated.
func Load(path string) (Settings, error) {
	s := Default()

	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read settings: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	if err := s.applyEnv(); err != nil {
		return s, err
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate checks every field and joins all problems found
func (s Settings) Validate() error {
	var errs []error
	if s.ChipTypes < 1 || s.ChipTypes > engine.MaxChipTypes {
		errs = append(errs, fmt.Errorf("chip_types must be between 1 and %d, got %d", engine.MaxChipTypes, s.ChipTypes))
	}
	if s.MovementSpeed <= 0 {
		errs = append(errs, fmt.Errorf("movement_speed must be positive, got %v", s.MovementSpeed))
	}
	if s.AnimationFPS < 1 || s.AnimationFPS > 240 {
		errs = append(errs, fmt.Errorf("animation_fps must be between 1 and 240, got %d", s.AnimationFPS))
	}
	if s.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("session_ttl must not be negative, got %s", s.SessionTTL))
	}
	if s.SolverMaxStates < 0 {
		errs = append(errs, fmt.Errorf("solver_max_states must not be negative, got %d", s.SolverMaxStates))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// EngineOptions returns the engine options these settings describe
func (s Settings) EngineOptions() engine.Options {
	return engine.Options{
		ChipTypes:        s.ChipTypes,
		MovementSpeed:    s.MovementSpeed,
		StrictInvariants: s.StrictInvariants,
	}
}

// applyEnv overrides fields from CHIPSLIDE_* variables
func (s *Settings) applyEnv() error {
	if v := os.Getenv("CHIPSLIDE_SESSIONS_DIR"); v != "" {
		s.SessionsDir = v
	}
	if v := os.Getenv("CHIPSLIDE_RESULTS_DB"); v != "" {
		s.ResultsDB = v
	}
	if v := os.Getenv("CHIPSLIDE_CHIP_TYPES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHIPSLIDE_CHIP_TYPES: %w", err)
		}
		s.ChipTypes = n
	}
	if v := os.Getenv("CHIPSLIDE_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHIPSLIDE_STRICT: %w", err)
		}
		s.StrictInvariants = b
	}
	return nil
}
