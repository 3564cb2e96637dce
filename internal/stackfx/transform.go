// Package stackfx maps scroll position onto a "stacking deck": each card
// slides up into place over a window of scroll progress and every card it
// covers is pushed back, shrunk and faded in proportion to how much of the
// deck has arrived on top of it.
//
// The deck is a pure function of scroll offset. Nothing carries over from
// one frame to the next.
package stackfx

import (
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultStickyOffset is the distance in px from the viewport top at
	// which the deck sticks.
	DefaultStickyOffset = 96
	// DefaultArrivalWindow is the fraction of total progress over which a
	// card moves from off-screen to in place.
	DefaultArrivalWindow = 0.18

	slidePercent = 108.0
	depthStepPx  = 28.0
	scaleStep    = 0.04
	opacityStep  = 0.1
	minOpacity   = 0.65
)

// Clamp01 clamps x to [0, 1]. NaN maps to 0.
func Clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

// Progress converts geometry into deck progress in [0, 1].
func Progress(g Geometry, stickyOffset float64) float64 {
	total := g.TrackHeight() - g.ViewportHeight()
	if total <= 0 {
		return 0
	}
	return Clamp01((stickyOffset - g.TrackTop()) / total)
}

// Arrival is how far card i of n has moved into place at progress p. Card 0
// is always in place.
func Arrival(i, n int, p, window float64) float64 {
	if i == 0 {
		return 1
	}
	if window <= 0 {
		window = DefaultArrivalWindow
	}
	start := float64(i) / float64(n)
	return Clamp01((Clamp01(p) - start) / window)
}

// BurialDepth is the summed arrival of every card after i.
func BurialDepth(i, n int, p, window float64) float64 {
	var depth float64
	for j := i + 1; j < n; j++ {
		depth += Arrival(j, n, p, window)
	}
	return depth
}

// Transform is the pose of one card.
type Transform struct {
	Index      int     `json:"index"`
	Arrival    float64 `json:"arrival"`
	Burial     float64 `json:"burial"`
	TranslateY float64 `json:"translate_y_pct"`
	TranslateZ float64 `json:"translate_z_px"`
	Scale      float64 `json:"scale"`
	Opacity    float64 `json:"opacity"`
}

// NewTransform derives the pose of card i from its arrival and burial.
func NewTransform(i int, arrival, burial float64) Transform {
	t := Transform{
		Index:      i,
		Arrival:    arrival,
		Burial:     burial,
		TranslateZ: -depthStepPx * burial,
		Scale:      1 - scaleStep*burial,
		Opacity:    math.Max(minOpacity, 1-opacityStep*burial),
	}
	if i > 0 {
		t.TranslateY = slidePercent * (1 - arrival)
	}
	return t
}

// Pose computes the transforms of an n-card deck at progress p. p is
// clamped to [0, 1].
func Pose(n int, p, window float64) []Transform {
	if n <= 0 {
		return nil
	}
	p = Clamp01(p)
	arrivals := make([]float64, n)
	for i := range arrivals {
		arrivals[i] = Arrival(i, n, p, window)
	}
	out := make([]Transform, n)
	var later float64
	for i := n - 1; i >= 0; i-- {
		out[i] = NewTransform(i, arrivals[i], later)
		later += arrivals[i]
	}
	return out
}

// CSS renders the transform as an inline style declaration.
func (t Transform) CSS() string {
	var sb strings.Builder
	sb.WriteString("transform: translate3d(0, ")
	sb.WriteString(num(t.TranslateY))
	sb.WriteString("%, ")
	sb.WriteString(num(t.TranslateZ))
	sb.WriteString("px) scale(")
	sb.WriteString(num(t.Scale))
	sb.WriteString("); opacity: ")
	sb.WriteString(num(t.Opacity))
	sb.WriteString(";")
	return sb.String()
}

// num formats to at most four decimals without trailing zeros.
func num(x float64) string {
	x = math.Round(x*1e4) / 1e4
	if x == 0 {
		x = 0 // drop negative zero
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}
