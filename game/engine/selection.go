package engine

// SelectionState is the state of a Selection
type SelectionState int

const (
	Idle SelectionState = iota
	Selected
)

func (s SelectionState) String() string {
	if s == Selected {
		return "selected"
	}
	return "idle"
}

// Selection tracks the single active chip of one puzzle
type Selection struct {
	active   ChipID
	selected bool
}

// State returns Idle or Selected
func (s *Selection) State() SelectionState {
	if s.selected {
		return Selected
	}
	return Idle
}

// Active returns the active chip, if any
func (s *Selection) Active() (ChipID, bool) {
	return s.active, s.selected
}

// IsActive reports whether id is the active chip
func (s *Selection) IsActive(id ChipID) bool {
	return s.selected && s.active == id
}

// Activate makes id the active chip, deactivating any previous one first
func (s *Selection) Activate(id ChipID) {
	s.Deactivate()
	s.active = id
	s.selected = true
}

// Deactivate returns to Idle
func (s *Selection) Deactivate() {
	s.active = 0
	s.selected = false
}

// Toggle handles a click: it deactivates id when it is active and activates
// it otherwise
func (s *Selection) Toggle(id ChipID) {
	if s.IsActive(id) {
		s.Deactivate()
		return
	}
	s.Activate(id)
}

// Release ends an interaction on id; other chips keep their selection
func (s *Selection) Release(id ChipID) {
	if s.IsActive(id) {
		s.Deactivate()
	}
}
