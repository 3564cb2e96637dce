package stackfx

import (
	"golang.org/x/net/html"

	"github.com/ziadkadry99/folio/internal/dom"
)

// Sink receives each recomputed deck pose.
type Sink interface {
	Apply(pose []Transform)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(pose []Transform)

func (f SinkFunc) Apply(pose []Transform) { f(pose) }

// DOMSink writes each card's transform into its style attribute.
type DOMSink struct {
	doc   *dom.Document
	cards []*html.Node
}

// NewDOMSink targets cards inside doc. cards[i] receives pose[i].
func NewDOMSink(doc *dom.Document, cards []*html.Node) *DOMSink {
	return &DOMSink{doc: doc, cards: cards}
}

func (s *DOMSink) Apply(pose []Transform) {
	s.doc.Update(func(*html.Node) {
		for i, t := range pose {
			if i >= len(s.cards) {
				return
			}
			dom.SetAttr(s.cards[i], "style", t.CSS())
		}
	})
}
