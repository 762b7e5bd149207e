package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/radar-dashboard/internal/alerts"
	"github.com/Zachdehooge/radar-dashboard/internal/generator"
	"github.com/Zachdehooge/radar-dashboard/internal/rainviewer"
	"github.com/Zachdehooge/radar-dashboard/internal/tiles"
)

const goodIndex = `{
	"host": "https://tilecache.rainviewer.com",
	"generated": 1700000900,
	"radar": {
		"past": [
			{"time": 1700000000, "path": "/v2/radar/1700000000"},
			{"time": 1700000600, "path": "/v2/radar/1700000600"}
		],
		"nowcast": [{"time": 1700001200, "path": "/v2/radar/nowcast_x"}]
	}
}`

// upstream is a stub tile-index server whose response can be flipped
// between good, empty and failing.
type upstream struct {
	ts   *httptest.Server
	mode atomic.Value // "ok" | "empty" | "fail"
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{}
	u.mode.Store("ok")
	u.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch u.mode.Load().(string) {
		case "fail":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "empty":
			_, _ = w.Write([]byte(`{"host":"https://h","radar":{"past":[],"nowcast":[]}}`))
		default:
			_, _ = w.Write([]byte(goodIndex))
		}
	}))
	t.Cleanup(u.ts.Close)
	return u
}

func newTestServer(t *testing.T, regionKey string, u *upstream) *Server {
	region, err := generator.RegionByKey(regionKey)
	require.NoError(t, err)

	alertsTS := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[{"properties":{"id":"a1","event":"Tornado Warning","severity":"Extreme","status":"Actual"}}]}`))
	}))
	t.Cleanup(alertsTS.Close)

	return New(Config{
		Listen:      ":0",
		Region:      region,
		Interval:    time.Minute,
		TileOptions: tiles.DefaultOptions(),
	},
		rainviewer.NewClient(rainviewer.WithIndexURL(u.ts.URL)),
		alerts.NewClient(alerts.WithActiveURL(alertsTS.URL)),
	)
}

func getJSON(t *testing.T, h http.Handler, method, target string, v any) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if v != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
	}
	return rec
}

func TestFramesEndpoint(t *testing.T) {
	s := newTestServer(t, "uk", newUpstream(t))
	s.Refresh(context.Background())
	r := s.Router()

	var payload generator.FramePayload
	rec := getJSON(t, r, http.MethodGet, "/api/frames", &payload)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, generator.StatusOK, payload.Status)
	require.Len(t, payload.Frames, 3)
	assert.Contains(t, payload.Frames[0].TileURL, "https://tilecache.rainviewer.com/v2/radar/1700000000")
	assert.Contains(t, payload.Frames[0].TileURL, "{z}/{x}/{y}")
}

func TestRefreshDefaultsTimelineToLatest(t *testing.T) {
	s := newTestServer(t, "uk", newUpstream(t))
	s.Refresh(context.Background())

	var st timelineState
	rec := getJSON(t, s.Router(), http.MethodGet, "/api/timeline", &st)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, st.Index, "current index defaults to the latest frame")
	assert.Equal(t, 3, st.Count)
	assert.False(t, st.Playing)
	assert.Equal(t, int64(1700001200), st.Time)
}

func TestFailedRefreshKeepsPriorState(t *testing.T) {
	u := newUpstream(t)
	s := newTestServer(t, "uk", u)
	s.Refresh(context.Background())

	u.mode.Store("fail")
	s.Refresh(context.Background())

	var payload generator.FramePayload
	getJSON(t, s.Router(), http.MethodGet, "/api/frames", &payload)
	assert.Equal(t, generator.StatusStale, payload.Status)
	assert.NotEmpty(t, payload.Error)
	require.Len(t, payload.Frames, 3, "prior frames survive a failed refresh")

	var st timelineState
	getJSON(t, s.Router(), http.MethodGet, "/api/timeline", &st)
	assert.Equal(t, 2, st.Index, "timeline untouched by a failed refresh")
}

func TestEmptyIndexReportsEmpty(t *testing.T) {
	u := newUpstream(t)
	u.mode.Store("empty")
	s := newTestServer(t, "uk", u)
	s.Refresh(context.Background())

	var payload generator.FramePayload
	getJSON(t, s.Router(), http.MethodGet, "/api/frames", &payload)
	assert.Equal(t, generator.StatusEmpty, payload.Status)
	assert.Empty(t, payload.Frames)
}

func TestAlertsEndpointPerRegion(t *testing.T) {
	t.Run("us serves alerts", func(t *testing.T) {
		s := newTestServer(t, "us", newUpstream(t))
		s.Refresh(context.Background())

		var payload generator.AlertsPayload
		rec := getJSON(t, s.Router(), http.MethodGet, "/api/alerts", &payload)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, payload.Alerts, 1)
		assert.Equal(t, "#d81b60", payload.Alerts[0].Color)
	})

	t.Run("uk has no alerts overlay", func(t *testing.T) {
		s := newTestServer(t, "uk", newUpstream(t))
		rec := getJSON(t, s.Router(), http.MethodGet, "/api/alerts", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTimelineStepWrapsViaAPI(t *testing.T) {
	s := newTestServer(t, "uk", newUpstream(t))
	s.Refresh(context.Background())
	r := s.Router()

	var st timelineState
	getJSON(t, r, http.MethodPost, "/api/timeline/step?delta=1", &st)
	assert.Equal(t, 0, st.Index, "step past the end wraps to 0")

	getJSON(t, r, http.MethodPost, "/api/timeline/step?delta=-1", &st)
	assert.Equal(t, 2, st.Index, "step before 0 wraps to the last index")
}

func TestTimelineToggleTwiceViaAPI(t *testing.T) {
	s := newTestServer(t, "uk", newUpstream(t))
	s.Refresh(context.Background())
	defer s.tl.Close()
	r := s.Router()

	var st timelineState
	getJSON(t, r, http.MethodPost, "/api/timeline/toggle", &st)
	assert.True(t, st.Playing)
	getJSON(t, r, http.MethodPost, "/api/timeline/toggle", &st)
	assert.False(t, st.Playing)
}

func TestTimelineSeekPausesViaAPI(t *testing.T) {
	s := newTestServer(t, "uk", newUpstream(t))
	s.Refresh(context.Background())
	defer s.tl.Close()
	r := s.Router()

	var st timelineState
	getJSON(t, r, http.MethodPost, "/api/timeline/play", &st)
	require.True(t, st.Playing)

	getJSON(t, r, http.MethodPost, "/api/timeline/seek?index=1", &st)
	assert.False(t, st.Playing)
	assert.Equal(t, 1, st.Index)
}

func TestTimelineStepBadDelta(t *testing.T) {
	s := newTestServer(t, "uk", newUpstream(t))
	rec := getJSON(t, s.Router(), http.MethodPost, "/api/timeline/step?delta=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPageRenders(t *testing.T) {
	s := newTestServer(t, "us", newUpstream(t))
	rec := getJSON(t, s.Router(), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "/api/frames")
	assert.Contains(t, body, "/api/alerts")
	assert.Contains(t, body, "nexrad-n0q-m05m")
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "uk", newUpstream(t))
	rec := getJSON(t, s.Router(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
