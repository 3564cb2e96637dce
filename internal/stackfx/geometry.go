package stackfx

// Geometry is the track and viewport measurement the deck is driven by.
type Geometry interface {
	// TrackTop is the track's top edge relative to the viewport top.
	TrackTop() float64
	TrackHeight() float64
	ViewportHeight() float64
}

// StaticGeometry is a fixed measurement.
type StaticGeometry struct {
	Top      float64 `json:"track_top"`
	Height   float64 `json:"track_height"`
	Viewport float64 `json:"viewport_height"`
}

func (g StaticGeometry) TrackTop() float64       { return g.Top }
func (g StaticGeometry) TrackHeight() float64    { return g.Height }
func (g StaticGeometry) ViewportHeight() float64 { return g.Viewport }

// Layout places the track in the page. The track's viewport-relative top at
// scroll offset y is TrackOffset - y.
type Layout struct {
	TrackOffset    float64 `json:"track_offset" yaml:"track_offset"`
	TrackHeight    float64 `json:"track_height" yaml:"track_height"`
	ViewportHeight float64 `json:"viewport_height" yaml:"viewport_height"`
}

// At measures the layout at scroll offset scrollY.
func (l Layout) At(scrollY float64) StaticGeometry {
	return StaticGeometry{
		Top:      l.TrackOffset - scrollY,
		Height:   l.TrackHeight,
		Viewport: l.ViewportHeight,
	}
}
