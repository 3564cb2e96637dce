package stackfx

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
)

// Params are the deck constants.
type Params struct {
	StickyOffset  float64
	ArrivalWindow float64
}

// DefaultParams returns the standard deck constants.
func DefaultParams() Params {
	return Params{StickyOffset: DefaultStickyOffset, ArrivalWindow: DefaultArrivalWindow}
}

// Engine recomputes the deck from scroll events, at most once per frame.
type Engine struct {
	params Params
	cards  int
	frames FrameScheduler
	sink   Sink

	layoutMu sync.RWMutex
	layout   Layout

	// pending is set between requesting a frame and finishing its
	// recomputation; scroll events that see it set only record position.
	pending atomic.Bool
	scrollY atomic.Uint64

	mu       sync.Mutex
	last     []Transform
	progress float64
	computes int
}

// NewEngine creates an engine for a deck of cards cards (at least one).
func NewEngine(params Params, layout Layout, cards int, frames FrameScheduler, sink Sink) (*Engine, error) {
	if cards < 1 {
		return nil, errors.New("stackfx: deck needs at least one card")
	}
	if frames == nil {
		return nil, errors.New("stackfx: frame scheduler is required")
	}
	if params.ArrivalWindow <= 0 {
		params.ArrivalWindow = DefaultArrivalWindow
	}
	if sink == nil {
		sink = SinkFunc(func([]Transform) {})
	}
	return &Engine{
		params: params,
		cards:  cards,
		frames: frames,
		sink:   sink,
		layout: layout,
	}, nil
}

// Activate poses the deck for the current scroll position without waiting
// for a frame.
func (e *Engine) Activate(scrollY float64) {
	e.scrollY.Store(math.Float64bits(scrollY))
	e.recompute(scrollY)
}

// OnScroll records the new scroll position and schedules a recomputation
// unless one is already pending for this frame.
func (e *Engine) OnScroll(scrollY float64) {
	e.scrollY.Store(math.Float64bits(scrollY))
	if e.pending.CompareAndSwap(false, true) {
		e.frames.RequestFrame(e.frame)
	}
}

// Resize replaces the layout (viewport or track size changed) and schedules
// a recomputation.
func (e *Engine) Resize(layout Layout) {
	e.layoutMu.Lock()
	e.layout = layout
	e.layoutMu.Unlock()
	e.OnScroll(e.ScrollY())
}

func (e *Engine) frame() {
	y := e.ScrollY()
	e.recompute(y)
	e.pending.Store(false)
	// A scroll that landed while we were computing saw the flag set and
	// only stored its position. Pick it up next frame.
	if e.ScrollY() != y && e.pending.CompareAndSwap(false, true) {
		e.frames.RequestFrame(e.frame)
	}
}

func (e *Engine) recompute(scrollY float64) {
	e.layoutMu.RLock()
	g := e.layout.At(scrollY)
	e.layoutMu.RUnlock()

	p := Progress(g, e.params.StickyOffset)
	pose := Pose(e.cards, p, e.params.ArrivalWindow)

	e.mu.Lock()
	e.last = pose
	e.progress = p
	e.computes++
	e.mu.Unlock()

	e.sink.Apply(pose)
}

// ScrollY returns the most recent scroll position.
func (e *Engine) ScrollY() float64 {
	return math.Float64frombits(e.scrollY.Load())
}

// Pending reports whether a recomputation is scheduled but has not run.
func (e *Engine) Pending() bool { return e.pending.Load() }

// Last returns the most recent pose and its progress.
func (e *Engine) Last() ([]Transform, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Transform, len(e.last))
	copy(out, e.last)
	return out, e.progress
}

// Computes returns how many recomputations have run.
func (e *Engine) Computes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.computes
}
