// Package rainviewer fetches the public RainViewer tile-index API.
package rainviewer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultIndexURL is the public weather-maps index endpoint.
const DefaultIndexURL = "https://api.rainviewer.com/public/weather-maps.json"

// Frame is one radar snapshot: a timestamp plus the tile-path fragment
// that, combined with the index host, addresses its tile pyramid.
type Frame struct {
	Time int64  `json:"time"`
	Path string `json:"path"`
}

// Index is the decoded tile-index response. Past holds historical frames,
// Nowcast the short-term forecast frames appended after them.
type Index struct {
	Version   string `json:"version"`
	Generated int64  `json:"generated"`
	Host      string `json:"host"`
	Radar     struct {
		Past    []Frame `json:"past"`
		Nowcast []Frame `json:"nowcast"`
	} `json:"radar"`
}

// Frames returns past followed by nowcast as one ordered sequence,
// oldest first. The last element is the most recent observation or
// furthest forecast.
func (idx *Index) Frames() []Frame {
	frames := make([]Frame, 0, len(idx.Radar.Past)+len(idx.Radar.Nowcast))
	frames = append(frames, idx.Radar.Past...)
	frames = append(frames, idx.Radar.Nowcast...)
	return frames
}

// Client fetches the tile index.
type Client struct {
	indexURL  string
	userAgent string
	http      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithIndexURL overrides the index endpoint (tests point this at a stub).
func WithIndexURL(u string) Option {
	return func(c *Client) { c.indexURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient returns a Client with a 15 second request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		indexURL:  DefaultIndexURL,
		userAgent: "radar-dashboard/1.0 (github.com/Zachdehooge/radar-dashboard)",
		http:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchIndex retrieves and decodes the tile index.
func (c *Client) FetchIndex(ctx context.Context) (*Index, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.indexURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tile index fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tile index body failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snip := body
		if len(snip) > 200 {
			snip = snip[:200]
		}
		return nil, fmt.Errorf("tile index returned HTTP %d: %s", resp.StatusCode, string(snip))
	}

	var idx Index
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, fmt.Errorf("tile index JSON decode failed: %w", err)
	}
	return &idx, nil
}
