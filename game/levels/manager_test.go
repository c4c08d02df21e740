package levels

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/wricardo/chipslide/game/engine"
)

const testPack = "#Alpha\n1 1\n0 0\n#Beta\n0 0\n1 1\n"

func writePackFile(t *testing.T, dir, id, text string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, id+".txt"), []byte(text), 0644); err != nil {
		t.Fatalf("Failed to write pack file: %v", err)
	}
}

func TestNewManager_EmbeddedDefault(t *testing.T) {
	m, err := NewManager("", engine.MaxChipTypes)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	def := m.GetDefault()
	if def == nil || def.ID != DefaultPackID {
		t.Fatalf("Expected default pack %q, got %+v", DefaultPackID, def)
	}
	if len(def.Levels) != 4 {
		t.Errorf("Expected 4 classic levels, got %d", len(def.Levels))
	}
	if len(def.Skipped) != 0 {
		t.Errorf("Expected classic pack to decode cleanly, got %v", def.Skipped)
	}
	if def.Levels[0].Name != "First Steps" {
		t.Errorf("Expected first level %q, got %q", "First Steps", def.Levels[0].Name)
	}
}

func TestNewManager_MissingDir(t *testing.T) {
	if _, err := NewManager(filepath.Join(t.TempDir(), "missing"), 8); err == nil {
		t.Error("Expected error for missing levels directory")
	}
}

func TestNewManager_InvalidChipTypes(t *testing.T) {
	if _, err := NewManager("", 0); err == nil {
		t.Error("Expected error for zero chip types")
	}
}

func TestLoadPack_FromDirectory(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "custom", testPack)

	m, err := NewManager(dir, engine.MaxChipTypes)
	if err != nil {
		t.Fatal(err)
	}

	pack, err := m.LoadPack("Custom.txt")
	if err != nil {
		t.Fatalf("Failed to load pack: %v", err)
	}
	if pack.ID != "custom" || len(pack.Levels) != 2 {
		t.Errorf("Unexpected pack: %+v", pack)
	}

	again, err := m.LoadPack("custom")
	if err != nil {
		t.Fatal(err)
	}
	if again != pack {
		t.Error("Expected cached pack on second load")
	}
}

func TestLoadPack_NotFound(t *testing.T) {
	m, err := NewManager("", engine.MaxChipTypes)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"nope", "../etc/passwd", ""} {
		if _, err := m.LoadPack(id); !errors.Is(err, ErrPackNotFound) {
			t.Errorf("LoadPack(%q): expected ErrPackNotFound, got %v", id, err)
		}
	}
}

func TestLoadPack_PartialAndInvalid(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "partial", "#Good\n1\n0\n#Bad\n1 0\n0\n")
	writePackFile(t, dir, "broken", "#Bad\n1 0\n0\n")
	writePackFile(t, dir, "toomany", "#Types\n3\n0\n")

	m, err := NewManager(dir, 2)
	if err != nil {
		t.Fatal(err)
	}

	pack, err := m.LoadPack("partial")
	if err != nil {
		t.Fatalf("Expected partial pack to load: %v", err)
	}
	if len(pack.Levels) != 1 || len(pack.Skipped) != 1 {
		t.Errorf("Expected 1 level and 1 skipped, got %d and %v", len(pack.Levels), pack.Skipped)
	}
	if !strings.Contains(pack.Skipped[0], "Bad") {
		t.Errorf("Expected skipped message to name the level, got %q", pack.Skipped[0])
	}

	if _, err := m.LoadPack("broken"); !errors.Is(err, ErrInvalidPack) {
		t.Errorf("Expected ErrInvalidPack, got %v", err)
	}
	if _, err := m.LoadPack("toomany"); !errors.Is(err, ErrInvalidPack) {
		t.Errorf("Expected ErrInvalidPack for chip type overflow, got %v", err)
	}
}

func TestListPacks(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "custom", testPack)
	writePackFile(t, dir, "broken", "#Bad\n1 0\n0\n")
	writePackFile(t, dir, "Bad Name", testPack)

	m, err := NewManager(dir, engine.MaxChipTypes)
	if err != nil {
		t.Fatal(err)
	}

	packs, err := m.ListPacks()
	if err != nil {
		t.Fatalf("Failed to list packs: %v", err)
	}
	if len(packs) != 2 {
		t.Fatalf("Expected classic and custom, got %d packs", len(packs))
	}
	if packs[0].PackID != "classic" || packs[0].Source != "embedded" {
		t.Errorf("Unexpected first pack: %+v", packs[0])
	}
	if packs[1].PackID != "custom" || packs[1].Filename != "custom.txt" || packs[1].LevelCount != 2 {
		t.Errorf("Unexpected second pack: %+v", packs[1])
	}
	if packs[1].Levels[1] != "Beta" {
		t.Errorf("Expected level names, got %v", packs[1].Levels)
	}
}

func TestSavePack(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, engine.MaxChipTypes)
	if err != nil {
		t.Fatal(err)
	}

	var loaded [][]string
	unsubscribe := m.OnLoaded(func(names []string) { loaded = append(loaded, names) })
	defer unsubscribe()

	info, err := m.SavePack("mine", testPack)
	if err != nil {
		t.Fatalf("Failed to save pack: %v", err)
	}
	if info.LevelCount != 2 || info.Source != "directory" {
		t.Errorf("Unexpected info: %+v", info)
	}
	if _, err := os.Stat(filepath.Join(dir, "mine.txt")); err != nil {
		t.Errorf("Expected pack file on disk: %v", err)
	}
	if len(loaded) != 1 || loaded[0][0] != "Alpha" {
		t.Errorf("Expected loaded signal with level names, got %v", loaded)
	}

	if _, err := m.SavePack("mine", "#Good\n1\n0\n#Bad\n1\n"); !errors.Is(err, ErrInvalidPack) {
		t.Errorf("Expected ErrInvalidPack for a pack with a bad level, got %v", err)
	}
	if _, err := m.SavePack("../escape", testPack); !errors.Is(err, ErrInvalidPackID) {
		t.Errorf("Expected ErrInvalidPackID, got %v", err)
	}

	readOnly, err := NewManager("", engine.MaxChipTypes)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := readOnly.SavePack("mine", testPack); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
}

func TestOnLoaded_EmitsOncePerDecode(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "custom", testPack)
	m, err := NewManager(dir, engine.MaxChipTypes)
	if err != nil {
		t.Fatal(err)
	}

	count := 0
	unsubscribe := m.OnLoaded(func([]string) { count++ })
	m.LoadPack("custom")
	m.LoadPack("custom")
	if count != 1 {
		t.Errorf("Expected 1 loaded signal, got %d", count)
	}

	unsubscribe()
	if err := m.RefreshCache(); err != nil {
		t.Fatal(err)
	}
	m.LoadPack("custom")
	if count != 1 {
		t.Errorf("Expected no signal after unsubscribe, got %d", count)
	}
}

func TestSetDefault(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "custom", testPack)
	m, err := NewManager(dir, engine.MaxChipTypes)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetDefault("custom"); err != nil {
		t.Fatal(err)
	}
	if m.GetDefault().ID != "custom" {
		t.Errorf("Expected default custom, got %q", m.GetDefault().ID)
	}
	if err := m.SetDefault("missing"); err == nil {
		t.Error("Expected error for missing pack")
	}
}

func TestConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "custom", testPack)
	m, err := NewManager(dir, engine.MaxChipTypes)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.LoadPack("custom"); err != nil {
				t.Errorf("Concurrent load failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
