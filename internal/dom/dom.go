// Package dom is a small DOM layer over golang.org/x/net/html: parsing,
// selector queries, content replacement, attribute and class-list access.
//
// A Document serialises mutations behind a lock. Callers that suspend (a
// network fetch, a frame wait) must do so outside Update so that every
// mutation window runs to completion without interleaving.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Document is a parsed page.
type Document struct {
	mu   sync.RWMutex
	root *html.Node
}

// Parse reads a complete HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString parses a document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Update runs fn with exclusive access to the tree.
func (d *Document) Update(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// View runs fn with shared read access to the tree.
func (d *Document) View(fn func(root *html.Node)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.root)
}

// String renders the whole document.
func (d *Document) String() string {
	var out string
	d.View(func(root *html.Node) { out = Render(root) })
	return out
}

// Render serialises n including its own tag.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// InnerHTML serialises the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// SetInnerHTML replaces the children of el with the parsed markup.
func SetInnerHTML(el *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), el)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}
	RemoveChildren(el)
	for _, n := range nodes {
		el.AppendChild(n)
	}
	return nil
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	RemoveChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// TextContent concatenates the text of n and its descendants.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
