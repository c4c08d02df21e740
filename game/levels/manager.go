package levels

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/chipslide/game/engine"
	"github.com/wricardo/chipslide/game/service"
)

var (
	ErrPackNotFound  = errors.New("level pack not found")
	ErrInvalidPack   = errors.New("invalid level pack")
	ErrInvalidPackID = errors.New("invalid pack id")
	ErrReadOnly      = errors.New("no levels directory configured")
)

const (
	// DefaultPackID names the embedded pack used when none is requested
	DefaultPackID = "classic"

	packExt = ".txt"

	sourceEmbedded  = "embedded"
	sourceDirectory = "directory"
)

//go:embed packs/*.txt
var embeddedPacks embed.FS

var packIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Manager handles level pack loading and caching
type Manager struct {
	levelsDir   string
	chipTypes   int
	defaultPack *service.Pack
	packs       map[string]*service.Pack
	mu          sync.RWMutex

	loaded   engine.Signal[[]string]
	signalMu sync.Mutex
}

// NewManager creates a new level pack manager. levelsDir may be empty, in
// which case only the embedded packs are offered and SavePack fails.
func NewManager(levelsDir string, chipTypes int) (*Manager, error) {
	if levelsDir != "" {
		if _, err := os.Stat(levelsDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("levels directory does not exist: %s", levelsDir)
		}
	}
	if chipTypes < 1 || chipTypes > engine.MaxChipTypes {
		return nil, fmt.Errorf("chip types must be between 1 and %d, got %d", engine.MaxChipTypes, chipTypes)
	}

	m := &Manager{
		levelsDir: levelsDir,
		chipTypes: chipTypes,
		packs:     make(map[string]*service.Pack),
	}

	if err := m.loadDefaultPack(); err != nil {
		return nil, fmt.Errorf("failed to load default pack: %w", err)
	}

	return m, nil
}

// OnLoaded registers fn to receive the level names of every pack decoded from
// now on. The returned function unsubscribes.
func (m *Manager) OnLoaded(fn func(names []string)) func() {
	m.signalMu.Lock()
	defer m.signalMu.Unlock()
	unsubscribe := m.loaded.Subscribe(fn)
	return func() {
		m.signalMu.Lock()
		defer m.signalMu.Unlock()
		unsubscribe()
	}
}

// LoadPack loads a pack by ID
func (m *Manager) LoadPack(id string) (*service.Pack, error) {
	id = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(id)), packExt)

	m.mu.RLock()
	// Check cache first
	if pack, exists := m.packs[id]; exists {
		m.mu.RUnlock()
		return pack, nil
	}
	m.mu.RUnlock()

	if !packIDPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrPackNotFound, id)
	}

	text, _, err := m.readPack(id)
	if err != nil {
		return nil, err
	}

	pack, err := m.decode(id, text)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	// Another caller may have decoded the same pack meanwhile
	if cached, exists := m.packs[id]; exists {
		m.mu.Unlock()
		return cached, nil
	}
	m.packs[id] = pack
	m.mu.Unlock()

	m.emitLoaded(pack)
	return pack, nil
}

// ListPacks returns information about all available packs, sorted by ID.
// Directory packs shadow embedded packs with the same ID.
func (m *Manager) ListPacks() ([]*service.PackInfo, error) {
	sources := make(map[string]string)

	embedded, err := fs.ReadDir(embeddedPacks, "packs")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded packs: %w", err)
	}
	for _, entry := range embedded {
		if strings.HasSuffix(entry.Name(), packExt) {
			sources[strings.TrimSuffix(entry.Name(), packExt)] = sourceEmbedded
		}
	}

	if m.levelsDir != "" {
		entries, err := os.ReadDir(m.levelsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read levels directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), packExt) {
				continue
			}
			id := strings.TrimSuffix(entry.Name(), packExt)
			if packIDPattern.MatchString(id) {
				sources[id] = sourceDirectory
			}
		}
	}

	ids := make([]string, 0, len(sources))
	for id := range sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var packs []*service.PackInfo
	for _, id := range ids {
		pack, err := m.LoadPack(id)
		if err != nil {
			// Skip invalid packs
			continue
		}
		packs = append(packs, packInfo(pack, sources[id]))
	}

	return packs, nil
}

// GetDefault returns the default pack
func (m *Manager) GetDefault() *service.Pack {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPack
}

// SetDefault sets the default pack by ID
func (m *Manager) SetDefault(id string) error {
	pack, err := m.LoadPack(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPack = pack
	return nil
}

// SavePack validates text and writes it to the levels directory. Unlike
// LoadPack it refuses a pack in which any level fails.
func (m *Manager) SavePack(id, text string) (*service.PackInfo, error) {
	if m.levelsDir == "" {
		return nil, ErrReadOnly
	}
	id = strings.ToLower(strings.TrimSpace(id))
	if !packIDPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPackID, id)
	}

	pack, err := m.decode(id, text)
	if err != nil {
		return nil, err
	}
	if len(pack.Skipped) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPack, strings.Join(pack.Skipped, "; "))
	}

	path := filepath.Join(m.levelsDir, id+packExt)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return nil, fmt.Errorf("failed to write pack file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.packs[id] = pack
	m.mu.Unlock()

	m.emitLoaded(pack)
	return packInfo(pack, sourceDirectory), nil
}

// RefreshCache drops every cached pack and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.packs = make(map[string]*service.Pack)
	m.mu.Unlock()

	return m.loadDefaultPack()
}

// loadDefaultPack loads the classic pack, falling back to the first
// available one
func (m *Manager) loadDefaultPack() error {
	pack, err := m.LoadPack(DefaultPackID)
	if err != nil {
		infos, listErr := m.ListPacks()
		if listErr != nil || len(infos) == 0 {
			return fmt.Errorf("no playable level pack available: %w", err)
		}
		pack, err = m.LoadPack(infos[0].PackID)
		if err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.defaultPack = pack
	m.mu.Unlock()
	return nil
}

// readPack returns the pack text and where it came from
func (m *Manager) readPack(id string) (string, string, error) {
	if m.levelsDir != "" {
		data, err := os.ReadFile(filepath.Join(m.levelsDir, id+packExt))
		if err == nil {
			return string(data), sourceDirectory, nil
		}
		if !os.IsNotExist(err) {
			return "", "", fmt.Errorf("failed to read pack file: %w", err)
		}
	}

	data, err := embeddedPacks.ReadFile("packs/" + id + packExt)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrPackNotFound, id)
	}
	return string(data), sourceEmbedded, nil
}

// decode turns pack text into a Pack, keeping only levels that decode and
// assemble with the configured chip type count
func (m *Manager) decode(id, text string) (*service.Pack, error) {
	decoded, err := engine.DecodeLevels(text)

	pack := &service.Pack{ID: id}
	if err != nil {
		pack.Skipped = append(pack.Skipped, splitJoined(err)...)
	}

	for _, level := range decoded {
		if _, err := engine.Assemble(level.Body, m.chipTypes); err != nil {
			pack.Skipped = append(pack.Skipped, fmt.Sprintf("level %q: %v", level.Name, err))
			continue
		}
		level.Index = len(pack.Levels)
		pack.Levels = append(pack.Levels, level)
	}

	if len(pack.Levels) == 0 {
		return nil, fmt.Errorf("%w %q: %s", ErrInvalidPack, id, strings.Join(pack.Skipped, "; "))
	}
	return pack, nil
}

func (m *Manager) emitLoaded(pack *service.Pack) {
	m.signalMu.Lock()
	defer m.signalMu.Unlock()
	m.loaded.Emit(pack.Names())
}

// splitJoined flattens an errors.Join result into one message per error
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}

func packInfo(pack *service.Pack, source string) *service.PackInfo {
	info := &service.PackInfo{
		PackID:     pack.ID,
		Source:     source,
		LevelCount: len(pack.Levels),
		Levels:     pack.Names(),
		Skipped:    len(pack.Skipped),
	}
	if source == sourceDirectory {
		info.Filename = pack.ID + packExt
	}
	return info
}
