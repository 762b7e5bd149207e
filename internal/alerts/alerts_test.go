package alerts

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		severity string
		want     string
	}{
		{"Extreme", "#d81b60"},
		{"Severe", "#e53935"},
		{"Moderate", "#fb8c00"},
		{"Minor", "#fdd835"},
		{"Unknown", "#9e9e9e"},
		{"", "#9e9e9e"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, SeverityColor(tc.severity), "severity %q", tc.severity)
	}
}

const alertsPage = `{
	"features": [
		{
			"geometry": {"type": "Polygon", "coordinates": [[[-98.0, 39.0], [-97.0, 39.0], [-97.0, 40.0], [-98.0, 39.0]]]},
			"properties": {
				"id": "alert-1",
				"event": "Tornado Warning",
				"headline": "Tornado Warning until 9 PM",
				"areaDesc": "Sedgwick, KS",
				"severity": "Extreme",
				"status": "Actual",
				"sent": "2023-11-14T20:00:00Z",
				"expires": "2023-11-14T21:00:00Z"
			}
		},
		{
			"properties": {
				"id": "alert-test",
				"event": "Test Message",
				"severity": "Minor",
				"status": "Test"
			}
		},
		{
			"properties": {
				"id": "alert-expired",
				"event": "Severe Thunderstorm Warning",
				"severity": "Severe",
				"status": "Actual",
				"expires": "2023-11-14T18:00:00Z"
			}
		}
	]
}`

func frozenClock() time.Time {
	return time.Date(2023, 11, 14, 20, 30, 0, 0, time.UTC)
}

func TestFetchActiveFiltersAndColors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/geo+json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(alertsPage))
	}))
	defer ts.Close()

	c := NewClient(WithActiveURL(ts.URL), WithClock(frozenClock))
	active, err := c.FetchActive(context.Background())
	require.NoError(t, err)

	require.Len(t, active, 1, "test-status and expired alerts must be dropped")
	a := active[0]
	assert.Equal(t, "alert-1", a.ID)
	assert.Equal(t, "Tornado Warning", a.Event)
	assert.Equal(t, "Sedgwick, KS", a.Area)
	assert.Equal(t, "#d81b60", a.Color)
	require.NotNil(t, a.Geometry)
	assert.Equal(t, "Polygon", a.Geometry.Type)
}

func TestFetchActiveFollowsPagination(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/page2" {
			_, _ = w.Write([]byte(`{"features":[{"properties":{"id":"b","event":"Flood Warning","severity":"Moderate","status":"Actual"}}]}`))
			return
		}
		fmt.Fprintf(w, `{"features":[{"properties":{"id":"a","event":"Wind Advisory","severity":"Minor","status":"Actual"}}],"pagination":{"next":"%s/page2"}}`, ts.URL)
	}))
	defer ts.Close()

	active, err := NewClient(WithActiveURL(ts.URL), WithClock(frozenClock)).FetchActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].ID)
	assert.Equal(t, "b", active[1].ID)
}

func TestFetchActiveHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewClient(WithActiveURL(ts.URL)).FetchActive(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestFetchActiveEmptyIsNotNil(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer ts.Close()

	active, err := NewClient(WithActiveURL(ts.URL)).FetchActive(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, active)
	assert.Empty(t, active)
}
