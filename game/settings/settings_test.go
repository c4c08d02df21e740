package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/chipslide/game/engine"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, engine.MaxChipTypes, s.ChipTypes)
	assert.Equal(t, 24*time.Hour, s.SessionTTL)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv(EnvPath, "")
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := writeSettings(t, "chip_types: 3\nsession_ttl: 90m\nstrict_invariants: true\n")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.ChipTypes)
	assert.Equal(t, 90*time.Minute, s.SessionTTL)
	assert.True(t, s.StrictInvariants)
	assert.Equal(t, engine.DefaultMovementSpeed, s.MovementSpeed, "unset keys keep defaults")

	opts := s.EngineOptions()
	assert.Equal(t, 3, opts.ChipTypes)
	assert.True(t, opts.StrictInvariants)
}

func TestLoad_EnvPath(t *testing.T) {
	path := writeSettings(t, "animation_fps: 30\n")
	t.Setenv(EnvPath, path)

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30, s.AnimationFPS)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CHIPSLIDE_SESSIONS_DIR", "/tmp/sess")
	t.Setenv("CHIPSLIDE_CHIP_TYPES", "4")
	t.Setenv("CHIPSLIDE_STRICT", "true")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/sess", s.SessionsDir)
	assert.Equal(t, 4, s.ChipTypes)
	assert.True(t, s.StrictInvariants)

	t.Setenv("CHIPSLIDE_CHIP_TYPES", "many")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeSettings(t, "chip_types: [1, 2\n"))
	assert.Error(t, err)

	_, err = Load(writeSettings(t, "chip_types: 12\n"))
	assert.ErrorContains(t, err, "chip_types")
}

func TestValidate_JoinsProblems(t *testing.T) {
	s := Default()
	s.ChipTypes = 0
	s.MovementSpeed = -1
	s.AnimationFPS = 0

	err := s.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "chip_types")
	assert.ErrorContains(t, err, "movement_speed")
	assert.ErrorContains(t, err, "animation_fps")
}
