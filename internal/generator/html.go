package generator

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"time"
)

// Region is one map variant: where the map opens and which overlays it
// carries. The US variant adds NWS alert polygons and the NEXRAD WMS
// comparison layer.
type Region struct {
	Key       string
	Title     string
	CenterLat float64
	CenterLng float64
	Zoom      int
	Alerts    bool
	NEXRAD    bool
}

var regions = map[string]Region{
	"uk": {
		Key: "uk", Title: "UK Rainfall Radar",
		CenterLat: 54.5, CenterLng: -3.2, Zoom: 6,
	},
	"us": {
		Key: "us", Title: "US Radar & Warnings",
		CenterLat: 39.8283, CenterLng: -98.5795, Zoom: 4,
		Alerts: true, NEXRAD: true,
	},
	"global": {
		Key: "global", Title: "Global Precipitation Radar",
		CenterLat: 25, CenterLng: 0, Zoom: 2,
	},
}

// RegionByKey resolves a region flag value.
func RegionByKey(key string) (Region, error) {
	r, ok := regions[key]
	if !ok {
		return Region{}, fmt.Errorf("unknown region %q (want uk, us or global)", key)
	}
	return r, nil
}

// PageData feeds the map page template.
type PageData struct {
	Region      Region
	FramesURL   string // "/api/frames" (server) or "frames.json" (static)
	AlertsURL   string // empty when the region has no alerts overlay
	RefreshMS   int    // frame index re-poll period
	TickMS      int    // animation advance period
	GeneratedAt string
}

// RenderPage writes the map page HTML for one region variant.
func RenderPage(w io.Writer, data PageData) error {
	if data.GeneratedAt == "" {
		data.GeneratedAt = time.Now().UTC().Format("Jan 2, 2006 at 15:04:05 UTC")
	}
	return pageTemplate.Execute(w, data)
}

// GeneratePage renders the page into a buffer and writes it to
// outputPath. Used by the static `generate` mode.
func GeneratePage(outputPath string, data PageData) error {
	var buf bytes.Buffer
	if err := RenderPage(&buf, data); err != nil {
		return err
	}
	return os.WriteFile(outputPath, buf.Bytes(), 0644)
}

var pageTemplate = template.Must(template.New("radar").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
   <meta charset="UTF-8"/>
   <title>{{ .Region.Title }}</title>
   <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css" />
   <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
   <style>
      :root {
         --bg-color: #121212;
         --text-color: #e0e0e0;
         --card-bg: #1e1e1e;
         --card-border: #333;
         --header-bg: #2d2d45;
         --header-border: #444466;
         --banner-error-bg: #3d1a1a;
         --banner-error-border: #a52a2a;
         --banner-info-bg: #1a2a3d;
         --banner-info-border: #2a5aa5;
      }
      body {
         font-family: Arial, sans-serif;
         max-width: 1200px;
         margin: 0 auto;
         padding: 20px;
         background-color: var(--bg-color);
         color: var(--text-color);
      }
      html { background-color: #121212; }
      #map {
         height: 600px; width: 100%;
         border: 2px solid var(--card-border);
         border-radius: 5px; margin-top: 20px;
      }
      .controls {
         display: flex; align-items: center; gap: 10px;
         background-color: var(--card-bg); border: 1px solid var(--card-border);
         border-radius: 5px; padding: 10px; margin-top: 10px;
      }
      .controls button {
         background-color: var(--header-bg); color: var(--text-color);
         border: 1px solid var(--header-border); border-radius: 4px;
         padding: 6px 14px; cursor: pointer; font-size: 14px;
      }
      .controls button:hover { background-color: #3d3d5c; }
      .controls input[type=range] { flex: 1; }
      #frame-time { min-width: 220px; font-variant-numeric: tabular-nums; }
      #status-banner {
         display: none; margin-top: 10px; padding: 10px;
         border-radius: 5px; border: 1px solid var(--banner-info-border);
         background-color: var(--banner-info-bg);
      }
      #status-banner.error {
         border-color: var(--banner-error-border);
         background-color: var(--banner-error-bg);
      }
      .map-legend {
         background-color: var(--card-bg); padding: 10px;
         border-radius: 5px; margin-top: 10px;
         border: 1px solid var(--card-border);
      }
      .legend-item { display: inline-flex; align-items: center; margin-right: 15px; }
      .legend-color { width: 24px; height: 14px; margin-right: 6px; border: 1px solid #fff; }
      .next-refresh { font-size: 0.8em; margin-top: 10px; color: #888; }
      h1, h4 { color: var(--text-color); }
   </style>
</head>
<body>
   <h1>{{ .Region.Title }}</h1>
   <h4>Page generated: {{ .GeneratedAt }} &mdash; latest frame: <span id="latest-time">&ndash;</span></h4>
   <div id="status-banner"></div>

   <div id="map"></div>

   <div class="controls">
      <button id="btn-prev" title="Previous frame">&#9664;</button>
      <button id="btn-play" title="Play/pause">&#9654;</button>
      <button id="btn-next" title="Next frame">&#9654;&#9654;</button>
      <input type="range" id="frame-slider" min="0" max="0" value="0" step="1"/>
      <span id="frame-time">&ndash;</span>
   </div>

   <div class="map-legend">
      <strong>Reflectivity</strong>
      <span class="legend-item"><span class="legend-color" style="background:#88eeee"></span>light</span>
      <span class="legend-item"><span class="legend-color" style="background:#0099ff"></span>moderate</span>
      <span class="legend-item"><span class="legend-color" style="background:#ffee00"></span>heavy</span>
      <span class="legend-item"><span class="legend-color" style="background:#ff4400"></span>intense</span>
      <span class="legend-item"><span class="legend-color" style="background:#cc00cc"></span>extreme</span>
   </div>
   <div class="next-refresh">Frame index refreshes every {{ .RefreshMS }} ms; animation steps every {{ .TickMS }} ms.</div>

   <script>
      const FRAMES_URL = {{ .FramesURL }};
      const ALERTS_URL = {{ .AlertsURL }};
      const REFRESH_MS = {{ .RefreshMS }};
      const TICK_MS = {{ .TickMS }};

      let map;
      let frames = [];
      let frameIndex = 0;
      let playing = false;
      let playTimer = null;
      let radarLayer = null;
      let alertLayers = [];
      let bannerTimer = null;

      function showStatus(message, isError) {
          const banner = document.getElementById('status-banner');
          banner.textContent = message;
          banner.className = isError ? 'error' : '';
          banner.style.display = 'block';
          if (bannerTimer) clearTimeout(bannerTimer);
          bannerTimer = setTimeout(() => { banner.style.display = 'none'; }, 15000);
      }

      function formatFrameTime(unixSeconds) {
          return new Date(unixSeconds * 1000).toLocaleString(undefined, {
              year:'numeric', month:'short', day:'numeric',
              hour:'numeric', minute:'2-digit', timeZoneName:'short'
          });
      }

      // ------------------------------------------------------------------
      // Timeline: clamp on showFrame, wraparound on step, 600 ms play tick.
      // Mirrors the server-side controller so static and served pages agree.
      // ------------------------------------------------------------------
      function showFrame(i) {
          if (frames.length === 0) return;
          if (i < 0) i = 0;
          if (i >= frames.length) i = frames.length - 1;
          frameIndex = i;
          radarLayer.setUrl(frames[i].tileUrl);
          document.getElementById('frame-slider').value = i;
          document.getElementById('frame-time').textContent = formatFrameTime(frames[i].time);
      }

      function step(delta) {
          if (frames.length === 0) return;
          const n = frames.length;
          showFrame(((frameIndex + delta) % n + n) % n);
      }

      function play() {
          if (playing || frames.length === 0) return;
          playing = true;
          document.getElementById('btn-play').innerHTML = '&#10074;&#10074;';
          playTimer = setInterval(() => step(1), TICK_MS);
      }

      function pause() {
          if (!playing) return;
          playing = false;
          document.getElementById('btn-play').innerHTML = '&#9654;';
          clearInterval(playTimer);
          playTimer = null;
      }

      function toggle() { playing ? pause() : play(); }

      async function loadFrames() {
          try {
              const response = await fetch(FRAMES_URL + '?_=' + Date.now());
              if (!response.ok) throw new Error('frame index fetch failed: HTTP ' + response.status);
              const payload = await response.json();

              if (payload.status === 'empty' || !payload.frames || payload.frames.length === 0) {
                  frames = [];
                  pause();
                  if (radarLayer) radarLayer.setUrl('');
                  document.getElementById('frame-slider').max = 0;
                  document.getElementById('frame-time').textContent = '–';
                  showStatus('No radar frames available right now.', false);
                  return;
              }
              if (payload.status === 'stale') {
                  showStatus('Radar index is stale: ' + (payload.error || 'refresh failed'), true);
              }

              frames = payload.frames;
              const slider = document.getElementById('frame-slider');
              slider.max = frames.length - 1;
              document.getElementById('latest-time').textContent =
                  formatFrameTime(frames[frames.length - 1].time);
              showFrame(frames.length - 1);
          } catch (error) {
              console.error('[frames]', error);
              showStatus('Could not load radar frames — keeping the last good data.', true);
          }
      }

      async function loadAlerts() {
          if (!ALERTS_URL) return;
          try {
              const response = await fetch(ALERTS_URL + '?_=' + Date.now());
              if (!response.ok) throw new Error('alerts fetch failed: HTTP ' + response.status);
              const payload = await response.json();

              alertLayers.forEach(l => { if (map.hasLayer(l)) map.removeLayer(l); });
              alertLayers = [];

              (payload.alerts || []).forEach(alert => {
                  if (!alert.geometry) return;
                  const layer = L.geoJSON({ type: 'Feature', geometry: alert.geometry }, {
                      style: { color: alert.color, fillColor: alert.color, fillOpacity: 0.25, weight: 2 }
                  }).addTo(map);
                  layer.bindPopup(
                      '<div style="color:#000;min-width:220px;max-width:400px;">' +
                      '<h3 style="margin-top:0;">' + (alert.event || 'Alert') + '</h3>' +
                      '<p><strong>Severity:</strong> ' + (alert.severity || 'Unknown') + '</p>' +
                      '<p><strong>Area:</strong> ' + (alert.area || 'Unknown') + '</p>' +
                      (alert.headline ? '<p>' + alert.headline + '</p>' : '') +
                      '</div>', { maxWidth: 400 });
                  layer.bindTooltip((alert.event || 'Alert') + ' - ' + (alert.area || ''), { sticky: true });
                  alertLayers.push(layer);
              });
          } catch (error) {
              console.error('[alerts]', error);
              showStatus('Alerts overlay unavailable — radar and map still work.', true);
          }
      }

      function initMap() {
          map = L.map('map').setView([{{ .Region.CenterLat }}, {{ .Region.CenterLng }}], {{ .Region.Zoom }});

          L.tileLayer('https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png', {
              attribution: '&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>',
              subdomains: 'abcd', maxZoom: 20
          }).addTo(map);

          radarLayer = L.tileLayer('', { opacity: 0.7, zIndex: 200 }).addTo(map);

          const overlays = { 'Radar animation': radarLayer };
          {{ if .Region.NEXRAD }}
          const nexradLayer = L.tileLayer.wms('https://mesonet.agron.iastate.edu/cgi-bin/wms/nexrad/n0q.cgi', {
              layers: 'nexrad-n0q-m05m',
              format: 'image/png',
              transparent: true,
              opacity: 0.5,
              maxZoom: 12,
              attribution: 'Radar data &copy; Iowa Environmental Mesonet'
          });
          overlays['NEXRAD (latest, WMS)'] = nexradLayer;
          {{ end }}
          L.control.layers(null, overlays, { collapsed: false, autoZIndex: false }).addTo(map);
          L.control.scale({ imperial: {{ if .Region.Alerts }}true{{ else }}false{{ end }} }).addTo(map);
      }

      window.onload = function() {
          initMap();

          document.getElementById('btn-prev').onclick = () => { pause(); step(-1); };
          document.getElementById('btn-next').onclick = () => { pause(); step(1); };
          document.getElementById('btn-play').onclick = toggle;
          document.getElementById('frame-slider').oninput = function() {
              pause();
              showFrame(parseInt(this.value, 10));
          };

          loadFrames();
          loadAlerts();
          setInterval(loadFrames, REFRESH_MS);
      };
   </script>
</body>
</html>
`))
