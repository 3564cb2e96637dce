package walker

import (
	"path/filepath"
	"strings"
)

// Kind classifies a site asset.
type Kind string

const (
	KindImage    Kind = "image"
	KindPage     Kind = "page"
	KindMarkdown Kind = "markdown"
	KindStyle    Kind = "style"
	KindScript   Kind = "script"
	KindOther    Kind = "other"
)

var extensionToKind = map[string]Kind{
	".png":      KindImage,
	".jpg":      KindImage,
	".jpeg":     KindImage,
	".gif":      KindImage,
	".webp":     KindImage,
	".svg":      KindImage,
	".ico":      KindImage,
	".html":     KindPage,
	".htm":      KindPage,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".css":      KindStyle,
	".js":       KindScript,
	".mjs":      KindScript,
}

// DetectKind classifies a file by its extension.
func DetectKind(name string) Kind {
	if k, ok := extensionToKind[strings.ToLower(filepath.Ext(name))]; ok {
		return k
	}
	return KindOther
}
