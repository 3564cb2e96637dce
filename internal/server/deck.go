package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/folio/internal/stackfx"
)

const maxDeckCards = 256

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// cardPose is a transform plus its rendered style.
type cardPose struct {
	stackfx.Transform
	CSS string `json:"css"`
}

type deckResponse struct {
	Progress float64                `json:"progress"`
	Geometry stackfx.StaticGeometry `json:"geometry"`
	Cards    []cardPose             `json:"cards"`
}

// deckRequest is the incoming /ws/deck message format.
type deckRequest struct {
	Type   string          `json:"type"` // "scroll" or "resize"
	Y      float64         `json:"y"`
	Layout *stackfx.Layout `json:"layout,omitempty"`
}

// deckMessage is the outgoing /ws/deck message format.
type deckMessage struct {
	Type     string     `json:"type"` // "frame" or "error"
	Seq      int        `json:"seq,omitempty"`
	Progress float64    `json:"progress"`
	Cards    []cardPose `json:"cards,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func poses(pose []stackfx.Transform) []cardPose {
	out := make([]cardPose, len(pose))
	for i, t := range pose {
		out[i] = cardPose{Transform: t, CSS: t.CSS()}
	}
	return out
}

// latestFrame is a single-slot mailbox for outgoing frames. put replaces
// any frame the writer has not taken yet, so a slow client always ends on
// the most recent pose.
type latestFrame struct {
	mu    sync.Mutex
	msg   *deckMessage
	ready chan struct{}
}

func newLatestFrame() *latestFrame {
	return &latestFrame{ready: make(chan struct{}, 1)}
}

func (l *latestFrame) put(m deckMessage) {
	l.mu.Lock()
	l.msg = &m
	l.mu.Unlock()
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latestFrame) take() (deckMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.msg == nil {
		return deckMessage{}, false
	}
	m := *l.msg
	l.msg = nil
	return m, true
}

// deckQuery reads the deck size and layout from query parameters.
func (s *Server) deckQuery(r *http.Request) (int, stackfx.Layout, error) {
	q := r.URL.Query()
	num := func(name string) (float64, error) {
		v := q.Get(name)
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not a number", name, v)
		}
		return f, nil
	}

	cards := s.cfg.Cards
	if v := q.Get("cards"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, stackfx.Layout{}, fmt.Errorf("cards: %q is not an integer", v)
		}
		cards = n
	}
	if cards < 1 || cards > maxDeckCards {
		return 0, stackfx.Layout{}, fmt.Errorf("cards must be between 1 and %d", maxDeckCards)
	}

	var (
		l   stackfx.Layout
		err error
	)
	if l.TrackOffset, err = num("track_offset"); err != nil {
		return 0, l, err
	}
	if l.TrackHeight, err = num("track_height"); err != nil {
		return 0, l, err
	}
	if l.ViewportHeight, err = num("viewport"); err != nil {
		return 0, l, err
	}
	return cards, l, nil
}

// handleDeck returns the deck pose for one scroll position.
func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	cards, layout, err := s.deckQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	scroll := 0.0
	if v := r.URL.Query().Get("scroll"); v != "" {
		if scroll, err = strconv.ParseFloat(v, 64); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scroll is not a number"})
			return
		}
	}

	g := layout.At(scroll)
	p := stackfx.Progress(g, s.cfg.Deck.StickyOffset)
	writeJSON(w, http.StatusOK, deckResponse{
		Progress: p,
		Geometry: g,
		Cards:    poses(stackfx.Pose(cards, p, s.cfg.Deck.ArrivalWindow)),
	})
}

// handleDeckStream runs a deck engine per connection. Scroll messages are
// coalesced to at most one frame per tick; each recomputation is pushed
// back as a frame message.
func (s *Server) handleDeckStream(w http.ResponseWriter, r *http.Request) {
	cards, layout, err := s.deckQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("deck: websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	latest := newLatestFrame()
	errs := make(chan deckMessage, 8)
	done := make(chan struct{})
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		broken := false
		write := func(m deckMessage) {
			if broken {
				return
			}
			if err := conn.WriteJSON(m); err != nil {
				s.logger.Debug("deck: websocket write", "error", err)
				broken = true
			}
		}
		for {
			select {
			case <-done:
				return
			case m := <-errs:
				write(m)
			case <-latest.ready:
				if m, ok := latest.take(); ok {
					write(m)
				}
			}
		}
	}()

	seq := 0
	var engine *stackfx.Engine
	sink := stackfx.SinkFunc(func(pose []stackfx.Transform) {
		seq++
		_, p := engine.Last()
		latest.put(deckMessage{Type: "frame", Seq: seq, Progress: p, Cards: poses(pose)})
	})

	frames := stackfx.NewTickerFrames(s.cfg.FrameRate)
	defer func() {
		frames.Stop()
		close(done)
		writer.Wait()
	}()
	engine, err = stackfx.NewEngine(s.cfg.Deck, layout, cards, frames, sink)
	if err != nil {
		s.logger.Error("deck: starting engine", "error", err)
		return
	}
	engine.Activate(0)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("deck: websocket read", "error", err)
			}
			return
		}

		var req deckRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			errs <- deckMessage{Type: "error", Error: "invalid message format"}
			continue
		}
		switch req.Type {
		case "scroll":
			engine.OnScroll(req.Y)
		case "resize":
			if req.Layout == nil {
				errs <- deckMessage{Type: "error", Error: "layout is required"}
				continue
			}
			engine.Resize(*req.Layout)
		default:
			errs <- deckMessage{Type: "error", Error: "unknown message type: " + req.Type}
		}
	}
}
