package imagecache

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"
)

// Handle is a locally usable image. Src is directly assignable as a display
// source: a data URL for a real handle, or the original identifier for a
// degraded one, so consumers never need to tell the two apart.
type Handle struct {
	ID          string
	ContentType string
	Width       int
	Height      int
	Degraded    bool

	data []byte
	src  string
}

func newHandle(id, contentType string, data []byte) *Handle {
	h := &Handle{ID: id, data: data}
	format := ""
	if cfg, f, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		h.Width, h.Height = cfg.Width, cfg.Height
		format = f
	}
	h.ContentType = sniffType(contentType, format, data)
	h.src = EncodePayload(h.ContentType, data)
	return h
}

// restoreHandle rebuilds a handle from a persisted payload, keeping the
// declared type tag as-is.
func restoreHandle(id, payload string) (*Handle, error) {
	contentType, data, err := DecodePayload(payload)
	if err != nil {
		return nil, err
	}
	h := &Handle{ID: id, ContentType: contentType, data: data, src: payload}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		h.Width, h.Height = cfg.Width, cfg.Height
	}
	return h, nil
}

func degradedHandle(id string) *Handle {
	return &Handle{ID: id, Degraded: true, src: id}
}

// Src returns the display source.
func (h *Handle) Src() string { return h.src }

// String returns the display source.
func (h *Handle) String() string { return h.src }

// Bytes returns the image bytes. It is nil for degraded handles.
func (h *Handle) Bytes() []byte { return h.data }

// Size returns the byte length of the image.
func (h *Handle) Size() int { return len(h.data) }

// sniffType prefers a declared image type, then the decoded format, then
// content sniffing.
func sniffType(declared, format string, data []byte) string {
	if mt, _, _ := strings.Cut(declared, ";"); strings.HasPrefix(mt, "image/") {
		return strings.TrimSpace(mt)
	}
	if format != "" {
		return "image/" + format
	}
	return http.DetectContentType(data)
}
