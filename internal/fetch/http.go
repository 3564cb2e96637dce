package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPConfig configures an HTTPFetcher.
type HTTPConfig struct {
	BaseURL   string        // References are resolved against this URL.
	Timeout   time.Duration // HTTP timeout. Default: 15s.
	MaxBytes  int64         // Max response body size. Default: 5MB.
	UserAgent string
}

func (c *HTTPConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 5 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "folio/1.0"
	}
}

// HTTPFetcher fetches references over HTTP.
type HTTPFetcher struct {
	client *http.Client
	base   *url.URL
	config HTTPConfig
}

// NewHTTP creates an HTTPFetcher. BaseURL may be empty when every reference
// is absolute.
func NewHTTP(cfg HTTPConfig) (*HTTPFetcher, error) {
	cfg.defaults()
	f := &HTTPFetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		},
		config: cfg,
	}
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing base url: %w", err)
		}
		f.base = base
	}
	return f, nil
}

// Resolve turns a reference into an absolute URL.
func (f *HTTPFetcher) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing ref %q: %w", ref, err)
	}
	if f.base != nil {
		u = f.base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("ref %q is relative and no base url is set", ref)
	}
	return u.String(), nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) (*Response, error) {
	target, err := f.Resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", target, ErrTooLarge, f.config.MaxBytes)
	}

	return &Response{
		OK:          resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:      resp.StatusCode,
		StatusText:  strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
