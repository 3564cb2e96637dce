package stackfx

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/folio/internal/dom"
)

var scenarioLayout = Layout{TrackOffset: 1000, TrackHeight: 2000, ViewportHeight: 800}

func newTestEngine(t *testing.T, frames FrameScheduler, sink Sink) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultParams(), scenarioLayout, 4, frames, sink)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine(DefaultParams(), scenarioLayout, 0, &ManualFrames{}, nil); err == nil {
		t.Error("expected error for empty deck")
	}
	if _, err := NewEngine(DefaultParams(), scenarioLayout, 3, nil, nil); err == nil {
		t.Error("expected error for missing frame scheduler")
	}
}

func TestActivatePosesImmediately(t *testing.T) {
	frames := &ManualFrames{}
	var got []Transform
	e := newTestEngine(t, frames, SinkFunc(func(p []Transform) { got = p }))

	e.Activate(0)
	if e.Computes() != 1 || len(got) != 4 {
		t.Fatalf("Activate should recompute once, got %d computes and %d transforms", e.Computes(), len(got))
	}
	if frames.Pending() != 0 {
		t.Error("Activate must not wait for a frame")
	}
	// Track is below the sticky offset: nothing has arrived yet.
	if got[1].TranslateY != 108 || got[0].Burial != 0 {
		t.Errorf("initial pose = %+v", got)
	}
}

func TestScrollEventsCoalescePerFrame(t *testing.T) {
	frames := &ManualFrames{}
	e := newTestEngine(t, frames, nil)
	e.Activate(0)

	for _, y := range []float64{100, 900, 1200, 1500} {
		e.OnScroll(y)
	}
	if frames.Pending() != 1 {
		t.Fatalf("pending frame callbacks = %d, want 1", frames.Pending())
	}
	if !e.Pending() {
		t.Error("engine should report a pending recomputation")
	}

	if ran := frames.Flush(); ran != 1 {
		t.Fatalf("Flush ran %d callbacks, want 1", ran)
	}
	if e.Pending() {
		t.Error("pending flag should be cleared after the frame runs")
	}
	if e.Computes() != 2 {
		t.Errorf("Computes = %d, want 2", e.Computes())
	}

	// The frame used the latest position: track top 1000-1500 = -500.
	_, p := e.Last()
	if want := 596.0 / 1200.0; !near(p, want) {
		t.Errorf("progress = %v, want %v", p, want)
	}

	if frames.Flush() != 0 {
		t.Error("no further frame should be queued")
	}
}

func TestScrollDuringRecomputeIsNotLost(t *testing.T) {
	frames := &ManualFrames{}
	var e *Engine
	once := sync.Once{}
	e = newTestEngine(t, frames, SinkFunc(func([]Transform) {
		once.Do(func() { e.OnScroll(5000) })
	}))

	e.OnScroll(500)
	frames.Flush()
	if frames.Pending() != 1 {
		t.Fatalf("a scroll during recomputation should schedule one more frame, pending = %d", frames.Pending())
	}
	frames.Flush()
	if _, p := e.Last(); p != 1 {
		t.Errorf("progress = %v, want 1 after catching up", p)
	}
}

func TestConcurrentScrollsScheduleOneFrame(t *testing.T) {
	frames := &ManualFrames{}
	e := newTestEngine(t, frames, nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.OnScroll(float64(i))
		}(i)
	}
	wg.Wait()
	if frames.Pending() != 1 {
		t.Errorf("pending frame callbacks = %d, want 1", frames.Pending())
	}
}

func TestResizeRecomputes(t *testing.T) {
	frames := &ManualFrames{}
	e := newTestEngine(t, frames, nil)
	e.Activate(1500)

	e.Resize(Layout{TrackOffset: 1000, TrackHeight: 800, ViewportHeight: 800})
	frames.Flush()
	if _, p := e.Last(); p != 0 {
		t.Errorf("progress after degenerate resize = %v, want 0", p)
	}
}

func TestDOMSink(t *testing.T) {
	doc, err := dom.ParseString(`<div id="stack-track"><div class="stack-card"></div><div class="stack-card"></div></div>`)
	if err != nil {
		t.Fatal(err)
	}
	cards := dom.QuerySelectorAll(doc.Root(), ".stack-card")
	e, err := NewEngine(DefaultParams(), scenarioLayout, len(cards), &ManualFrames{}, NewDOMSink(doc, cards))
	if err != nil {
		t.Fatal(err)
	}
	e.Activate(0)

	style, _ := dom.Attr(cards[1], "style")
	if style != "transform: translate3d(0, 108%, 0px) scale(1); opacity: 1;" {
		t.Errorf("card 1 style = %q", style)
	}
	if !strings.Contains(doc.String(), "translate3d") {
		t.Error("rendered document missing transforms")
	}
}

func TestTickerFrames(t *testing.T) {
	frames := NewTickerFrames(500)
	defer frames.Stop()

	done := make(chan struct{})
	e := newTestEngine(t, frames, SinkFunc(func([]Transform) {
		select {
		case done <- struct{}{}:
		default:
		}
	}))
	e.OnScroll(1200)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("frame never ran")
	}
}
