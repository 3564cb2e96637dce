package stackfx

import (
	"sync"
	"time"
)

// FrameScheduler runs callbacks before the next rendered frame.
type FrameScheduler interface {
	RequestFrame(fn func())
}

// TickerFrames runs queued callbacks once per tick, like a display refresh.
type TickerFrames struct {
	mu    sync.Mutex
	queue []func()

	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
}

// NewTickerFrames starts a frame loop at rate frames per second.
func NewTickerFrames(rate int) *TickerFrames {
	if rate <= 0 {
		rate = 60
	}
	f := &TickerFrames{
		ticker: time.NewTicker(time.Second / time.Duration(rate)),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go f.loop()
	return f
}

func (f *TickerFrames) RequestFrame(fn func()) {
	f.mu.Lock()
	f.queue = append(f.queue, fn)
	f.mu.Unlock()
}

func (f *TickerFrames) loop() {
	defer close(f.done)
	for {
		select {
		case <-f.stop:
			return
		case <-f.ticker.C:
			f.mu.Lock()
			queue := f.queue
			f.queue = nil
			f.mu.Unlock()
			for _, fn := range queue {
				fn()
			}
		}
	}
}

// Stop ends the frame loop. Callbacks still queued are dropped.
func (f *TickerFrames) Stop() {
	f.ticker.Stop()
	close(f.stop)
	<-f.done
}

// ManualFrames queues callbacks until Flush. Used to step frames by hand.
type ManualFrames struct {
	mu    sync.Mutex
	queue []func()
}

func (m *ManualFrames) RequestFrame(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

// Pending returns the number of queued callbacks.
func (m *ManualFrames) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Flush runs one frame: every callback queued before the call. Callbacks
// requested while flushing wait for the next frame. It returns the number
// of callbacks run.
func (m *ManualFrames) Flush() int {
	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.mu.Unlock()
	for _, fn := range queue {
		fn()
	}
	return len(queue)
}
