package imagedup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// fetchTimeout bounds a single remote image fetch.
const fetchTimeout = 15 * time.Second

// FetchResult holds a remotely fetched image.
type FetchResult struct {
	Data     []byte
	MIMEType string
}

// FetchImage downloads an image over HTTP using the configured client.
// Non-200 responses and non-image content types are errors; the body read
// is capped at Config.MaxUploadBytes.
func (d *Detector) FetchImage(ctx context.Context, rawURL string) (*FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("imagedup: fetch %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := d.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagedup: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagedup: fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	// Strip MIME parameters: "image/jpeg; charset=utf-8" -> "image/jpeg"
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("imagedup: fetch %s: content type %q is not an image", rawURL, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("imagedup: fetch %s: %w", rawURL, err)
	}
	if int64(len(data)) > d.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("imagedup: fetch %s: body exceeds limit %d", rawURL, d.cfg.MaxUploadBytes)
	}

	return &FetchResult{Data: data, MIMEType: ct}, nil
}

// RegisterURL fetches an image and registers it. The URL path's base name
// becomes the original filename unless opts already names one.
func (d *Detector) RegisterURL(ctx context.Context, rawURL string, opts RegisterOpts) (*Record, error) {
	res, err := d.FetchImage(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if opts.OriginalName == "" {
		if u, err := url.Parse(rawURL); err == nil {
			opts.OriginalName = path.Base(u.Path)
		}
	}
	if opts.MIMEType == "" {
		opts.MIMEType = res.MIMEType
	}
	return d.Register(ctx, res.Data, opts)
}
