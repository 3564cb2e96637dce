package reveal

import (
	"math"
	"testing"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/folio/internal/dom"
	"github.com/ziadkadry99/folio/internal/logging"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name     string
		r        Rect
		viewport float64
		want     float64
	}{
		{"fully visible", Rect{Top: 100, Height: 200}, 800, 1},
		{"below fold", Rect{Top: 900, Height: 200}, 800, 0},
		{"inside bottom margin", Rect{Top: 760, Height: 100}, 800, 0},
		{"tenth past margin", Rect{Top: 740, Height: 100}, 800, 0.1},
		{"scrolled past", Rect{Top: -300, Height: 200}, 800, 0},
		{"half above", Rect{Top: -100, Height: 200}, 800, 0.5},
		{"empty in view", Rect{Top: 10}, 800, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(tt.r, tt.viewport, DefaultMarginBottom)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Ratio = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckActivatesOnce(t *testing.T) {
	doc, err := dom.ParseString(`<section id="a" class="reveal"></section><section id="b" class="reveal"></section><p id="c"></p>`)
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.Logger = logging.Discard()
	o := Observe(doc, opts)
	if o.Len() != 2 {
		t.Fatalf("Len = %d, want 2", o.Len())
	}

	tops := map[string]float64{"a": 100, "b": 1200}
	layout := LayoutFunc(func(el *html.Node) (Rect, bool) {
		return Rect{Top: tops[dom.AttrOr(el, "id", "")], Height: 300}, true
	})

	if n := o.Check(layout, 800); n != 1 {
		t.Fatalf("first Check revealed %d, want 1", n)
	}
	a := dom.QuerySelector(doc.Root(), "#a")
	b := dom.QuerySelector(doc.Root(), "#b")
	if !dom.HasClass(a, "active") || dom.HasClass(b, "active") {
		t.Fatalf("after first check: a=%v b=%v", dom.HasClass(a, "active"), dom.HasClass(b, "active"))
	}

	// Scroll so a leaves and b enters.
	tops["a"], tops["b"] = -1000, 200
	if n := o.Check(layout, 800); n != 1 {
		t.Errorf("second Check revealed %d, want 1", n)
	}
	if !dom.HasClass(a, "active") {
		t.Error("active removed after leaving viewport")
	}
	if !dom.HasClass(b, "active") {
		t.Error("b not revealed")
	}
	if o.Check(layout, 800) != 0 {
		t.Error("already revealed elements counted again")
	}
	if o.Revealed() != 2 {
		t.Errorf("Revealed = %d, want 2", o.Revealed())
	}
}
