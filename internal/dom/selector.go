package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Supported selector syntax:
//   - tag: "section", "footer"
//   - .class (repeatable): ".stack-card", ".card.featured"
//   - #id: "#current-year"
//   - [attr] and [attr=val]: "[data-include]", "div[role=dialog]"
//   - compound forms: "div#deck.stack[data-deck]"
//   - descendant combinator: "#stack-track .stack-card"
//   - selector groups: "img[data-image], [data-include]"

type attrMatch struct {
	key    string
	val    string
	hasVal bool
}

// compound is one whitespace-separated step of a selector.
type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

// selector is a descendant chain; the last step is the subject.
type selector []compound

func parseCompound(s string) compound {
	var c compound
	for len(s) > 0 {
		switch s[0] {
		case '[':
			end := strings.IndexByte(s, ']')
			if end < 0 {
				end = len(s)
			}
			body := s[1:end]
			var m attrMatch
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				m.key = strings.TrimSpace(body[:eq])
				m.val = strings.Trim(strings.TrimSpace(body[eq+1:]), `"'`)
				m.hasVal = true
			} else {
				m.key = strings.TrimSpace(body)
			}
			c.attrs = append(c.attrs, m)
			if end < len(s) {
				end++
			}
			s = s[end:]
		case '#', '.':
			kind := s[0]
			end := 1
			for end < len(s) && !strings.ContainsRune("#.[", rune(s[end])) {
				end++
			}
			if kind == '#' {
				c.id = s[1:end]
			} else {
				c.classes = append(c.classes, s[1:end])
			}
			s = s[end:]
		default:
			end := 0
			for end < len(s) && !strings.ContainsRune("#.[", rune(s[end])) {
				end++
			}
			c.tag = strings.ToLower(s[:end])
			s = s[end:]
		}
	}
	return c
}

// splitSteps splits on whitespace outside attribute brackets.
func splitSteps(s string) []string {
	var (
		steps []string
		cur   strings.Builder
		depth int
	)
	flush := func() {
		if cur.Len() > 0 {
			steps = append(steps, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '[':
			depth++
			cur.WriteRune(r)
		case r == ']':
			depth--
			cur.WriteRune(r)
		case depth == 0 && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return steps
}

func parseSelectorGroup(s string) []selector {
	var group []selector
	for _, part := range strings.Split(s, ",") {
		steps := splitSteps(part)
		if len(steps) == 0 {
			continue
		}
		sel := make(selector, len(steps))
		for i, st := range steps {
			sel[i] = parseCompound(st)
		}
		group = append(group, sel)
	}
	return group
}

func (c compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && c.tag != "*" && n.Data != c.tag {
		return false
	}
	if c.id != "" && AttrOr(n, "id", "") != c.id {
		return false
	}
	for _, cl := range c.classes {
		if !HasClass(n, cl) {
			return false
		}
	}
	for _, a := range c.attrs {
		v, ok := Attr(n, a.key)
		if !ok || (a.hasVal && v != a.val) {
			return false
		}
	}
	return true
}

// matches checks n against the chain, walking ancestors up to (but not
// including) scope for the non-subject steps.
func (sel selector) matches(n, scope *html.Node) bool {
	last := len(sel) - 1
	if !sel[last].matches(n) {
		return false
	}
	step := last - 1
	for p := n.Parent; p != nil && p != scope && step >= 0; p = p.Parent {
		if sel[step].matches(p) {
			step--
		}
	}
	return step < 0
}

// QuerySelectorAll returns the descendants of scope matching sel, in
// document order.
func QuerySelectorAll(scope *html.Node, sel string) []*html.Node {
	group := parseSelectorGroup(sel)
	if len(group) == 0 || scope == nil {
		return nil
	}
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			for _, s := range group {
				if s.matches(c, scope) {
					out = append(out, c)
					break
				}
			}
			walk(c)
		}
	}
	walk(scope)
	return out
}

// QuerySelector returns the first descendant of scope matching sel, or nil.
func QuerySelector(scope *html.Node, sel string) *html.Node {
	group := parseSelectorGroup(sel)
	if len(group) == 0 || scope == nil {
		return nil
	}
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			for _, s := range group {
				if s.matches(c, scope) {
					found = c
					return true
				}
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(scope)
	return found
}

// Matches reports whether n itself matches sel.
func Matches(n *html.Node, sel string) bool {
	for _, s := range parseSelectorGroup(sel) {
		if s.matches(n, nil) {
			return true
		}
	}
	return false
}
