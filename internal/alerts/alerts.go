// Package alerts fetches active weather alerts from the National Weather
// Service as GeoJSON and maps them to map-overlay features.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultActiveURL is the NWS active-alerts endpoint, pre-filtered to
// actual (non-test) alerts.
const DefaultActiveURL = "https://api.weather.gov/alerts/active?status=actual"

// Geometry mirrors the GeoJSON geometry object the map page expects.
// Coordinates are passed through untouched.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Alert is one active weather alert with the fields the overlay renders.
type Alert struct {
	ID          string    `json:"id"`
	Event       string    `json:"event"`
	Headline    string    `json:"headline"`
	Description string    `json:"description"`
	Area        string    `json:"area"`
	Severity    string    `json:"severity"`
	Color       string    `json:"color"`
	Sent        string    `json:"sent"`
	Expires     string    `json:"expires"`
	Geometry    *Geometry `json:"geometry"`
}

// SeverityColor maps an NWS severity attribute to the fixed overlay
// color. Unknown or empty severities fall back to the "other" color.
func SeverityColor(severity string) string {
	switch strings.ToLower(severity) {
	case "extreme":
		return "#d81b60"
	case "severe":
		return "#e53935"
	case "moderate":
		return "#fb8c00"
	case "minor":
		return "#fdd835"
	default:
		return "#9e9e9e"
	}
}

// Client fetches active alerts.
type Client struct {
	activeURL string
	userAgent string
	http      *http.Client
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithActiveURL overrides the alerts endpoint (tests point this at a stub).
func WithActiveURL(u string) Option {
	return func(c *Client) { c.activeURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock overrides the expiry clock (tests freeze it).
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient returns a Client with a 15 second request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		activeURL: DefaultActiveURL,
		userAgent: "radar-dashboard/1.0 (github.com/Zachdehooge/radar-dashboard)",
		http:      &http.Client{Timeout: 15 * time.Second},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchActive pages through the NWS API and returns all active alerts,
// already-expired entries filtered out and severity colors resolved.
func (c *Client) FetchActive(ctx context.Context) ([]Alert, error) {
	var all []Alert
	url := c.activeURL

	for url != "" {
		page, next, err := c.fetchPage(ctx, url)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		url = next
	}

	if all == nil {
		all = []Alert{}
	}
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, url string) ([]Alert, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("alerts fetch failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, "", fmt.Errorf("read alerts body failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snip := body
		if len(snip) > 200 {
			snip = snip[:200]
		}
		return nil, "", fmt.Errorf("NWS returned HTTP %d: %s", resp.StatusCode, string(snip))
	}

	var apiResp struct {
		Features []struct {
			Geometry   *Geometry `json:"geometry"`
			Properties struct {
				ID          string `json:"id"`
				Event       string `json:"event"`
				Headline    string `json:"headline"`
				Description string `json:"description"`
				AreaDesc    string `json:"areaDesc"`
				Severity    string `json:"severity"`
				Status      string `json:"status"`
				Sent        string `json:"sent"`
				Expires     string `json:"expires"`
			} `json:"properties"`
		} `json:"features"`
		Pagination *struct {
			Next string `json:"next"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, "", fmt.Errorf("alerts JSON decode failed: %w", err)
	}

	now := c.now()
	alerts := make([]Alert, 0, len(apiResp.Features))
	for _, f := range apiResp.Features {
		p := f.Properties
		if p.Status != "Actual" {
			continue
		}
		// Skip already-expired alerts
		if p.Expires != "" {
			if exp, err := time.Parse(time.RFC3339, p.Expires); err == nil && exp.Before(now) {
				continue
			}
		}
		alerts = append(alerts, Alert{
			ID:          p.ID,
			Event:       p.Event,
			Headline:    p.Headline,
			Description: p.Description,
			Area:        p.AreaDesc,
			Severity:    p.Severity,
			Color:       SeverityColor(p.Severity),
			Sent:        p.Sent,
			Expires:     p.Expires,
			Geometry:    f.Geometry,
		})
	}

	next := ""
	if apiResp.Pagination != nil {
		next = apiResp.Pagination.Next
	}
	return alerts, next, nil
}
