package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the value of attribute key or def when it is absent.
func AttrOr(n *html.Node, key, def string) string {
	if v, ok := Attr(n, key); ok {
		return v
	}
	return def
}

// SetAttr sets attribute key on n, replacing any previous value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key from n.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// Classes returns the class list of n.
func Classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether n carries class c.
func HasClass(n *html.Node, c string) bool {
	for _, have := range Classes(n) {
		if have == c {
			return true
		}
	}
	return false
}

// AddClass adds c to the class list of n if it is not already present.
func AddClass(n *html.Node, c string) {
	if HasClass(n, c) {
		return
	}
	SetAttr(n, "class", strings.Join(append(Classes(n), c), " "))
}

// RemoveClass removes c from the class list of n.
func RemoveClass(n *html.Node, c string) {
	classes := Classes(n)
	out := classes[:0]
	for _, have := range classes {
		if have != c {
			out = append(out, have)
		}
	}
	if len(out) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(out, " "))
}

// ToggleClass adds c when on is true and removes it otherwise.
func ToggleClass(n *html.Node, c string, on bool) {
	if on {
		AddClass(n, c)
	} else {
		RemoveClass(n, c)
	}
}
