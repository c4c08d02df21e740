package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/wricardo/chipslide/game/animation"
	"github.com/wricardo/chipslide/game/engine"
)

const solvedMessage = "Puzzle already solved; reset to play again"

// Option configures a GameService
type Option func(*gameServiceImpl)

// WithResults records solved runs in store
func WithResults(store ResultStore) Option {
	return func(s *gameServiceImpl) { s.results = store }
}

// WithRecorder reports gameplay measurements to r
func WithRecorder(r Recorder) Option {
	return func(s *gameServiceImpl) { s.recorder = r }
}

// WithSolver attaches the optimal move count to solved runs
func WithSolver(solver Solver) Option {
	return func(s *gameServiceImpl) { s.solver = solver }
}

// WithLogger sets the service logger
func WithLogger(logger *log.Logger) Option {
	return func(s *gameServiceImpl) { s.logger = logger }
}

// WithAnimation sets the relocation speed in cells per second and the
// keyframe rate
func WithAnimation(speed float64, fps int) Option {
	return func(s *gameServiceImpl) {
		s.speed = speed
		s.fps = fps
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	packs    PackManager
	results  ResultStore
	recorder Recorder
	solver   Solver
	logger   *log.Logger

	speed float64
	fps   int

	// Chip IDs are only unique within one grid, so each session gets its own
	// relocation guard
	relocators map[string]*animation.Relocator

	mu sync.RWMutex

	// Optimal move counts by chip types and level body. Guarded by solveMu,
	// never by mu, so a long search does not stall other sessions.
	optimal map[string]optimalCount
	solveMu sync.Mutex
}

type optimalCount struct {
	moves int
	ok    bool
}

// solvedRun carries what recordSolve needs once the service lock is released
type solvedRun struct {
	sessionID string
	packID    string
	level     engine.Level
	chipTypes int
	moves     int
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, packs PackManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:   sessions,
		packs:      packs,
		speed:      engine.DefaultMovementSpeed,
		fps:        engine.DefaultAnimationFPS,
		relocators: make(map[string]*animation.Relocator),
		optimal:    make(map[string]optimalCount),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// CreateSession starts a new session on level of packID. An empty packID
// uses the default pack.
func (s *gameServiceImpl) CreateSession(ctx context.Context, packID string, level int) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pack *Pack
	if packID != "" {
		var err error
		pack, err = s.packs.LoadPack(packID)
		if err != nil {
			return nil, s.packNotFound(packID, err)
		}
	} else {
		pack = s.packs.GetDefault()
		if pack == nil {
			return nil, fmt.Errorf("%w: no default level pack", ErrInvalidRequest)
		}
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", pack, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created", "session", session.ID, "pack", pack.ID, "level", session.Level.Name)
	s.reportSessions()
	return toSessionInfo(session), nil
}

// packNotFound lists the available packs alongside a failed lookup
func (s *gameServiceImpl) packNotFound(packID string, err error) error {
	infos, listErr := s.packs.ListPacks()
	if listErr != nil || len(infos) == 0 {
		return fmt.Errorf("failed to load pack %s: %w", packID, err)
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.PackID)
	}
	return fmt.Errorf("failed to load pack %s (available: %s): %w", packID, strings.Join(ids, ", "), err)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	// Write lock: touching LastAccessedAt races with readers holding RLock
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return toSessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, toSessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	delete(s.relocators, strings.ToLower(sessionID))
	s.reportSessions()
	return nil
}

// SelectChip makes a chip active, chosen by ID or by the cell it occupies
func (s *gameServiceImpl) SelectChip(ctx context.Context, sessionID string, req SelectRequest) (*engine.PuzzleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	switch {
	case req.ChipID != nil:
		err = sess.Engine.SelectChip(*req.ChipID)
	case req.Position != nil:
		err = sess.Engine.SelectAt(*req.Position)
	default:
		return nil, fmt.Errorf("%w: chip_id or position is required", ErrInvalidRequest)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select chip: %w", err)
	}

	if chip, ok := sess.Engine.ActiveChip(); ok {
		s.logger.Debug("chip selected", "session", sess.ID, "chip", chip.ID, "pos", chip.Pos)
	}
	return sess.Engine.GetState(), nil
}

// Deselect returns the session's selection to idle
func (s *gameServiceImpl) Deselect(ctx context.Context, sessionID string) (*engine.PuzzleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	sess.Engine.DeselectActive()
	return sess.Engine.GetState(), nil
}

// Move moves the active chip. A move the puzzle rules reject is not an error:
// the result reports Success false and the state is unchanged.
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, req MoveRequest) (*MoveResult, error) {
	result, run, err := s.move(sessionID, req)
	if err != nil || run == nil {
		return result, err
	}
	result.Optimal = s.recordSolve(ctx, *run)
	return result, nil
}

// move commits the move under the service lock and reports a solved run for
// the caller to record after unlocking
func (s *gameServiceImpl) move(sessionID string, req MoveRequest) (*MoveResult, *solvedRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Get session
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("session not found: %w", err)
	}

	// Update last accessed time
	s.sessions.UpdateLastAccessed(sessionID)

	if req.Target == nil {
		if req.Direction == "" {
			return nil, nil, fmt.Errorf("%w: target or direction is required", ErrInvalidRequest)
		}
		if _, _, ok := engine.DirectionOffset(req.Direction); !ok {
			return nil, nil, fmt.Errorf("%w: invalid direction %q (use up, down, left or right)", ErrInvalidRequest, req.Direction)
		}
	}

	chip, hasActive := sess.Engine.ActiveChip()
	if !hasActive {
		s.recordAttempt(false)
		msg := ErrNoActiveChip.Error()
		if sess.Engine.IsSolved() {
			msg = solvedMessage
		}
		return &MoveResult{
			Success:     false,
			PuzzleState: sess.Engine.GetState(),
			Message:     msg,
		}, nil, nil
	}

	// Collect events emitted while the move commits
	var moved *engine.ChipMovedEvent
	var solved *engine.SolvedEvent
	unsubMoved := sess.Engine.ChipMoved.Subscribe(func(ev engine.ChipMovedEvent) { moved = &ev })
	unsubSolved := sess.Engine.Solved.Subscribe(func(ev engine.SolvedEvent) { solved = &ev })

	var accepted bool
	if req.Target != nil {
		accepted = sess.Engine.AttemptMove(*req.Target)
	} else {
		accepted = sess.Engine.Move(req.Direction)
	}

	unsubMoved()
	unsubSolved()
	s.recordAttempt(accepted)

	result := &MoveResult{
		Success:     accepted,
		PuzzleState: sess.Engine.GetState(),
		Events:      []GameEvent{},
	}

	if !accepted || moved == nil {
		result.Message = "Move not allowed"
		s.logger.Debug("move rejected", "session", sess.ID, "chip", chip.ID, "from", chip.Pos)
		return result, nil, nil
	}

	result.Message = fmt.Sprintf("Moved chip %d from (%d,%d) to (%d,%d)",
		moved.ChipID, moved.Previous.X, moved.Previous.Y, moved.Next.X, moved.Next.Y)
	result.Events = append(result.Events, chipMovedEvent(*moved))
	result.Relocation = s.relocate(sess.ID, *moved)

	s.logger.Info("move", "session", sess.ID, "chip", moved.ChipID, "from", moved.Previous, "to", moved.Next, "moves", moved.Moves)

	var run *solvedRun
	if solved != nil {
		result.Message = fmt.Sprintf("Puzzle solved in %d moves!", solved.Moves)
		result.Events = append(result.Events, GameEvent{
			ID:        uuid.NewString(),
			Type:      EventPuzzleSolved,
			Message:   result.Message,
			Timestamp: time.Now(),
			Moves:     solved.Moves,
		})
		run = &solvedRun{
			sessionID: sess.ID,
			packID:    sess.PackID,
			level:     sess.Level,
			chipTypes: sess.Engine.Options().ChipTypes,
			moves:     solved.Moves,
		}
	}

	// Auto-save session after move
	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn("failed to persist session after move", "session", sessionID, "err", err)
	}

	return result, run, nil
}

// relocate plans keyframes for a committed move. A chip that is still
// travelling gets a single frame at its destination.
func (s *gameServiceImpl) relocate(sessionID string, ev engine.ChipMovedEvent) *RelocationInfo {
	key := strings.ToLower(sessionID)
	r, ok := s.relocators[key]
	if !ok {
		r = animation.NewRelocator(s.speed, s.fps)
		s.relocators[key] = r
	}

	rel, started := r.Begin(ev.ChipID, ev.Previous, ev.Next)
	if !started {
		return &RelocationInfo{
			ChipID: ev.ChipID,
			From:   ev.Previous,
			To:     ev.Next,
			Frames: []animation.Frame{{X: float64(ev.Next.X), Y: float64(ev.Next.Y)}},
		}
	}
	return &RelocationInfo{
		ChipID:   rel.ChipID,
		From:     rel.From,
		To:       rel.To,
		Duration: rel.Duration,
		Frames:   rel.Frames,
	}
}

// recordSolve stores the solved run and returns the optimal move count when
// a solver is configured and finds one
func (s *gameServiceImpl) recordSolve(ctx context.Context, run solvedRun) *int {
	var optimal *int
	if n, ok := s.minMoves(ctx, run.level.Body, run.chipTypes); ok {
		optimal = &n
	}

	if s.recorder != nil {
		s.recorder.PuzzleSolved(run.packID, run.moves)
	}

	if s.results != nil {
		result := Result{
			SessionID: run.sessionID,
			PackID:    run.packID,
			Level:     run.level.Index,
			LevelName: run.level.Name,
			Moves:     run.moves,
			SolvedAt:  time.Now(),
		}
		if optimal != nil {
			result.Optimal = *optimal
		}
		if err := s.results.Record(ctx, result); err != nil {
			s.logger.Warn("failed to record result", "session", run.sessionID, "err", err)
		}
	}

	s.logger.Info("puzzle solved", "session", run.sessionID, "pack", run.packID, "level", run.level.Name, "moves", run.moves)
	return optimal
}

// minMoves solves each level body once. Searches that give up are cached too.
func (s *gameServiceImpl) minMoves(ctx context.Context, body string, chipTypes int) (int, bool) {
	if s.solver == nil {
		return 0, false
	}
	key := fmt.Sprintf("%d\x00%s", chipTypes, body)

	s.solveMu.Lock()
	defer s.solveMu.Unlock()
	if c, ok := s.optimal[key]; ok {
		return c.moves, c.ok
	}
	n, ok := s.solver.MinMoves(ctx, body, chipTypes)
	if ctx.Err() == nil {
		s.optimal[key] = optimalCount{moves: n, ok: ok}
	}
	return n, ok
}

func (s *gameServiceImpl) recordAttempt(accepted bool) {
	if s.recorder != nil {
		s.recorder.MoveAttempted(accepted)
	}
}

func (s *gameServiceImpl) reportSessions() {
	if s.recorder != nil {
		s.recorder.SessionsActive(len(s.sessions.List()))
	}
}

// Reset reassembles the session's level
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.PuzzleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	if err := sess.Engine.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset puzzle: %w", err)
	}
	if r, ok := s.relocators[strings.ToLower(sessionID)]; ok {
		r.Reset()
	}

	// Auto-save session after reset
	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn("failed to persist session after reset", "session", sessionID, "err", err)
	}

	return sess.Engine.GetState(), nil
}

// GetPuzzleState returns the current puzzle state
func (s *gameServiceImpl) GetPuzzleState(ctx context.Context, sessionID string) (*engine.PuzzleState, error) {
	// Write lock: touching LastAccessedAt races with readers holding RLock
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.GetState(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	return paginate(sess.Engine.GetMoveHistory(), opts), nil
}

// paginate slices history into one page. Defaults: page 1, limit 20 (max
// 100), newest first.
func paginate(history []engine.MoveHistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			for i := total - 1 - start; i >= total-end; i-- {
				moves = append(moves, history[i])
			}
		} else {
			moves = append(moves, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// ListPacks returns the available level packs
func (s *gameServiceImpl) ListPacks(ctx context.Context) ([]*PackInfo, error) {
	return s.packs.ListPacks()
}

// LoadPack loads a level pack by ID
func (s *gameServiceImpl) LoadPack(ctx context.Context, packID string) (*Pack, error) {
	return s.packs.LoadPack(packID)
}

// SavePack stores a level pack
func (s *gameServiceImpl) SavePack(ctx context.Context, packID, text string) (*PackInfo, error) {
	info, err := s.packs.SavePack(packID, text)
	if err != nil {
		return nil, err
	}
	s.logger.Info("pack saved", "pack", info.PackID, "levels", info.LevelCount)
	return info, nil
}

// Leaderboard returns the best solved runs for one level of a pack
func (s *gameServiceImpl) Leaderboard(ctx context.Context, packID string, level, limit int) ([]Result, error) {
	pack, err := s.packs.LoadPack(packID)
	if err != nil {
		return nil, err
	}
	if _, err := pack.Level(level); err != nil {
		return nil, err
	}
	if s.results == nil {
		return []Result{}, nil
	}
	return s.results.Top(ctx, pack.ID, level, limit)
}

func chipMovedEvent(ev engine.ChipMovedEvent) GameEvent {
	id := ev.ChipID
	from, to := ev.Previous, ev.Next
	return GameEvent{
		ID:        uuid.NewString(),
		Type:      EventChipMoved,
		Message:   fmt.Sprintf("Chip %d moved to (%d,%d)", ev.ChipID, ev.Next.X, ev.Next.Y),
		Timestamp: time.Now(),
		ChipID:    &id,
		From:      &from,
		To:        &to,
		Moves:     ev.Moves,
	}
}

func toSessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		PackID:         sess.PackID,
		LevelIndex:     sess.Level.Index,
		LevelName:      sess.Level.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		PuzzleState:    sess.Engine.GetState(),
	}
}
