package fragment

import (
	"bytes"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown renders .md fragments (project write-ups) to HTML.
type markdown struct {
	md goldmark.Markdown
}

func newMarkdown() *markdown {
	return &markdown{md: goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			// Fragments may embed raw HTML, including nested references.
			html.WithUnsafe(),
		),
	)}
}

func (m *markdown) render(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert(src, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func isMarkdown(ref, contentType string) bool {
	if strings.HasPrefix(contentType, "text/markdown") {
		return true
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	ext := strings.ToLower(path.Ext(ref))
	return ext == ".md" || ext == ".markdown"
}

// newPolicy allows user-generated-content markup plus the data attributes
// fragments, cards and images are driven by.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataAttributes()
	p.AllowAttrs("id", "class").Globally()
	p.AllowElements("section", "header", "footer", "nav", "main", "article", "span", "div")
	return p
}
