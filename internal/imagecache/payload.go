package imagecache

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPayload is returned by DecodePayload for strings that are not
// base64 data URLs.
var ErrMalformedPayload = errors.New("imagecache: malformed payload")

// EncodePayload renders bytes as a self-describing data URL:
// data:<type>;base64,<payload>.
func EncodePayload(contentType string, b []byte) string {
	var sb strings.Builder
	sb.Grow(len("data:;base64,") + len(contentType) + base64.StdEncoding.EncodedLen(len(b)))
	sb.WriteString("data:")
	sb.WriteString(contentType)
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(b))
	return sb.String()
}

// DecodePayload parses a string produced by EncodePayload back into its
// type tag and bytes.
func DecodePayload(s string) (contentType string, b []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: scheme", ErrMalformedPayload)
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload separator", ErrMalformedPayload)
	}
	contentType, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrMalformedPayload)
	}
	if contentType == "" {
		return "", nil, fmt.Errorf("%w: empty type tag", ErrMalformedPayload)
	}
	b, err = base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return contentType, b, nil
}
