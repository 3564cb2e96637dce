package page

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/folio/internal/dom"
)

// Card attributes.
const (
	AttrImage = "data-image"
	AttrLink  = "data-link"
	AttrTitle = "data-title"
)

// CardConfig is a deck card's configuration, read once from its element.
type CardConfig struct {
	Index        int    `json:"index"`
	ImageID      string `json:"image_id,omitempty"`
	ExternalLink string `json:"external_link,omitempty"`
	Title        string `json:"title,omitempty"`

	el *html.Node
}

// Element returns the card's element.
func (c CardConfig) Element() *html.Node { return c.el }

// parseCards reads every card under scope. The title falls back to the
// card's first heading.
func parseCards(scope *html.Node, selector string) []CardConfig {
	els := dom.QuerySelectorAll(scope, selector)
	cards := make([]CardConfig, 0, len(els))
	for i, el := range els {
		c := CardConfig{
			Index:        i,
			ImageID:      strings.TrimSpace(dom.AttrOr(el, AttrImage, "")),
			ExternalLink: strings.TrimSpace(dom.AttrOr(el, AttrLink, "")),
			Title:        strings.TrimSpace(dom.AttrOr(el, AttrTitle, "")),
			el:           el,
		}
		if c.Title == "" {
			if h := dom.QuerySelector(el, "h1, h2, h3, h4"); h != nil {
				c.Title = strings.TrimSpace(dom.TextContent(h))
			}
		}
		cards = append(cards, c)
	}
	return cards
}
