// Package animation turns committed chip moves into optional relocation
// keyframes for clients that want to interpolate a chip between cells.
//
// The puzzle engine never waits on this package: a move is final as soon as
// the engine accepts it. A Relocator only tracks which chips are still
// travelling on screen so a second relocation of the same chip can be
// refused while the first one plays out.
package animation

import (
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/harmonica"

	"github.com/wricardo/chipslide/game/engine"
)

const (
	// settleEpsilon is how close to the target, in cells, counts as arrived
	settleEpsilon = 0.001

	// maxSeconds caps a relocation no matter how slow the spring is
	maxSeconds = 2

	// damping of 1 is critically damped: no overshoot past the target cell
	damping = 1.0
)

// Frame is one keyframe of a relocation, in cell units
type Frame struct {
	At time.Duration `json:"at"`
	X  float64       `json:"x"`
	Y  float64       `json:"y"`
}

// Relocation describes one chip travelling between two cells
type Relocation struct {
	ChipID   engine.ChipID   `json:"chip_id"`
	From     engine.Position `json:"from"`
	To       engine.Position `json:"to"`
	Duration time.Duration   `json:"duration"`
	Frames   []Frame         `json:"frames"`
}

// Relocator plans relocations and guards one in-flight relocation per chip.
// It is safe for concurrent use.
type Relocator struct {
	fps    int
	spring harmonica.Spring

	mu       sync.Mutex
	inFlight map[engine.ChipID]time.Time
	now      func() time.Time
}

// NewRelocator creates a relocator. speed is in cells per second and sets the
// spring's angular frequency; fps sets the keyframe rate.
func NewRelocator(speed float64, fps int) *Relocator {
	if fps <= 0 {
		fps = engine.DefaultAnimationFPS
	}
	if speed <= 0 {
		speed = engine.DefaultMovementSpeed
	}
	return &Relocator{
		fps:      fps,
		spring:   harmonica.NewSpring(harmonica.FPS(fps), speed*math.Pi, damping),
		inFlight: make(map[engine.ChipID]time.Time),
		now:      time.Now,
	}
}

// Plan computes the keyframes from one cell to another without touching the
// in-flight guard
func (r *Relocator) Plan(id engine.ChipID, from, to engine.Position) Relocation {
	frameTime := time.Second / time.Duration(r.fps)
	maxFrames := maxSeconds * r.fps

	x, y := float64(from.X), float64(from.Y)
	tx, ty := float64(to.X), float64(to.Y)
	var vx, vy float64

	frames := []Frame{{At: 0, X: x, Y: y}}
	for i := 1; i <= maxFrames; i++ {
		x, vx = r.spring.Update(x, vx, tx)
		y, vy = r.spring.Update(y, vy, ty)

		if math.Abs(tx-x) < settleEpsilon && math.Abs(ty-y) < settleEpsilon {
			frames = append(frames, Frame{At: time.Duration(i) * frameTime, X: tx, Y: ty})
			break
		}
		frames = append(frames, Frame{At: time.Duration(i) * frameTime, X: x, Y: y})
	}

	// Always land exactly on the target cell
	last := &frames[len(frames)-1]
	last.X, last.Y = tx, ty

	return Relocation{
		ChipID:   id,
		From:     from,
		To:       to,
		Duration: last.At,
		Frames:   frames,
	}
}

// Begin starts a relocation of id. When id is already relocating it does
// nothing and returns false.
func (r *Relocator) Begin(id engine.ChipID, from, to engine.Position) (Relocation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if until, ok := r.inFlight[id]; ok && now.Before(until) {
		return Relocation{}, false
	}

	rel := r.Plan(id, from, to)
	r.inFlight[id] = now.Add(rel.Duration)
	return rel, true
}

// Finish marks the relocation of id complete ahead of its planned end
func (r *Relocator) Finish(id engine.ChipID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, id)
}

// InFlight reports whether id is still relocating
func (r *Relocator) InFlight(id engine.ChipID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.inFlight[id]
	if !ok {
		return false
	}
	if !r.now().Before(until) {
		delete(r.inFlight, id)
		return false
	}
	return true
}

// Reset forgets every in-flight relocation, as when a level is torn down
func (r *Relocator) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = make(map[engine.ChipID]time.Time)
}
