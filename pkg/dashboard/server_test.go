package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/vgnwatch/pkg/ctdf"
	"github.com/travigo/vgnwatch/pkg/departurecache"
	"github.com/travigo/vgnwatch/pkg/schedule"
)

func departureAt(line string, scheduled string, actual string) *ctdf.Departure {
	return &ctdf.Departure{
		Line:          line,
		Destination:   "Langwasser Süd",
		ScheduledTime: scheduled,
		ActualTime:    actual,
		Platform:      "2",
	}
}

type testDashboard struct {
	server *Server
	redis  *miniredis.Miniredis
	store  *departurecache.Store
}

func newTestDashboard(t *testing.T) testDashboard {
	t.Helper()

	redisServer := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { client.Close() })

	store := departurecache.NewStore(client, departurecache.ExpiryFor(60*time.Second))

	sources := &Sources{
		Queries:         schedule.NewQueries(nil),
		Departures:      store,
		Results:         NewResultCache(client),
		Region:          "Nuremberg",
		FallbackStops:   []string{"510", "546"},
		MaxStops:        50,
		RefreshInterval: 60 * time.Second,
	}

	return testDashboard{
		server: &Server{Sources: sources},
		redis:  redisServer,
		store:  store,
	}
}

func request(t *testing.T, server *Server, method string, target string) (*http.Response, []byte) {
	t.Helper()

	resp, err := server.App().Test(httptest.NewRequest(method, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func seedDepartures(t *testing.T, dashboard testDashboard) {
	t.Helper()

	require.NoError(t, dashboard.store.Write(context.Background(), "510", []*ctdf.Departure{
		departureAt("U1", "2024-11-27T14:00:00+01:00", "2024-11-27T14:01:30+01:00"),
		departureAt("U2", "2024-11-27T14:02:00+01:00", "2024-11-27T14:02:30+01:00"),
	}))
	require.NoError(t, dashboard.redis.Set("departures:546", "{not json"))
}

func TestRealtimeSummary(t *testing.T) {
	dashboard := newTestDashboard(t)
	seedDepartures(t, dashboard)

	resp, body := request(t, dashboard.server, http.MethodGet, "/api/realtime")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary RealtimeSummary
	require.NoError(t, json.Unmarshal(body, &summary))

	assert.True(t, summary.Available)
	assert.Equal(t, 2, summary.StopsQueried)
	assert.Equal(t, departurecache.ReadStats{Requested: 2, Found: 2, Malformed: 1}, summary.Cache)
	assert.Equal(t, 2, summary.KPIs.TotalDepartures)
	assert.Equal(t, 2, summary.KPIs.ValidDelayCount)
	require.NotNil(t, summary.KPIs.AverageDelay)
	assert.InDelta(t, 1.0, *summary.KPIs.AverageDelay, 1e-9)
	require.NotNil(t, summary.KPIs.OnTimePercent)
	assert.InDelta(t, 100.0, *summary.KPIs.OnTimePercent, 1e-9)

	require.Len(t, summary.Distribution, 4)
	assert.Equal(t, "-1m to +3m (On Time)", summary.Distribution[1].Label)
	assert.Equal(t, 2, summary.Distribution[1].Count)

	require.Len(t, summary.Sample, 2)
	assert.Equal(t, "U1", summary.Sample[0].Departure.Line)
	require.NotNil(t, summary.Sample[0].DelayMinutes)
	assert.Equal(t, 2, *summary.Sample[0].DelayMinutes)
}

func TestRealtimeWithoutCache(t *testing.T) {
	server := &Server{Sources: &Sources{
		Queries:         schedule.NewQueries(nil),
		Region:          "Nuremberg",
		FallbackStops:   []string{"510"},
		RefreshInterval: 60 * time.Second,
	}}

	resp, body := request(t, server, http.MethodGet, "/api/realtime")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary map[string]any
	require.NoError(t, json.Unmarshal(body, &summary))

	assert.Equal(t, false, summary["available"])
	kpis := summary["kpis"].(map[string]any)
	assert.Nil(t, kpis["avg_delay"])
	assert.Nil(t, kpis["on_time_percent"])
	assert.Len(t, summary["distribution"], 4)
	assert.Empty(t, summary["sample"])
}

func TestRefreshInvalidatesCachedResults(t *testing.T) {
	dashboard := newTestDashboard(t)
	seedDepartures(t, dashboard)

	_, body := request(t, dashboard.server, http.MethodGet, "/api/realtime")
	var first RealtimeSummary
	require.NoError(t, json.Unmarshal(body, &first))
	require.Equal(t, 2, first.KPIs.TotalDepartures)
	assert.True(t, dashboard.redis.Exists("dashboard:realtime:Nuremberg"))

	require.NoError(t, dashboard.store.Write(context.Background(), "546", []*ctdf.Departure{
		departureAt("36", "2024-11-27T14:00:00+01:00", "2024-11-27T14:20:00+01:00"),
	}))

	_, body = request(t, dashboard.server, http.MethodGet, "/api/realtime")
	var cached RealtimeSummary
	require.NoError(t, json.Unmarshal(body, &cached))
	assert.Equal(t, 2, cached.KPIs.TotalDepartures)

	resp, body := request(t, dashboard.server, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"refreshed": true}`, string(body))
	assert.False(t, dashboard.redis.Exists("dashboard:realtime:Nuremberg"))

	_, body = request(t, dashboard.server, http.MethodGet, "/api/realtime")
	var refreshed RealtimeSummary
	require.NoError(t, json.Unmarshal(body, &refreshed))
	assert.Equal(t, 3, refreshed.KPIs.TotalDepartures)
	assert.Equal(t, 1, refreshed.Distribution[3].Count)
}

func TestRealtimeCacheExpiry(t *testing.T) {
	dashboard := newTestDashboard(t)
	seedDepartures(t, dashboard)

	request(t, dashboard.server, http.MethodGet, "/api/realtime")

	assert.Equal(t, 55*time.Second, dashboard.redis.TTL("dashboard:realtime:Nuremberg"))
	assert.Equal(t, StaticTTL, dashboard.redis.TTL("dashboard:monitored_stops:Nuremberg"))
}

func TestStopDeparturesViews(t *testing.T) {
	dashboard := newTestDashboard(t)
	seedDepartures(t, dashboard)

	resp, body := request(t, dashboard.server, http.MethodGet, "/api/stops/510/departures")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var basic []map[string]any
	require.NoError(t, json.Unmarshal(body, &basic))
	require.Len(t, basic, 2)
	basicDeparture := basic[0]["departure"].(map[string]any)
	assert.Equal(t, "U1", basicDeparture["line"])
	assert.Equal(t, "2", basicDeparture["platform"])
	assert.NotContains(t, basicDeparture, "actual_time")

	resp, body = request(t, dashboard.server, http.MethodGet, "/api/stops/510/departures?view=detailed")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detailed []map[string]any
	require.NoError(t, json.Unmarshal(body, &detailed))
	require.Len(t, detailed, 2)
	departure := detailed[0]["departure"].(map[string]any)
	assert.Equal(t, "2024-11-27T14:01:30+01:00", departure["actual_time"])
	assert.Equal(t, float64(2), detailed[0]["delay_minutes"])

	resp, _ = request(t, dashboard.server, http.MethodGet, "/api/stops/510/departures?view=everything")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStopDeparturesUnknownStop(t *testing.T) {
	dashboard := newTestDashboard(t)

	resp, body := request(t, dashboard.server, http.MethodGet, "/api/stops/9999/departures")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestIndexPage(t *testing.T) {
	dashboard := newTestDashboard(t)
	seedDepartures(t, dashboard)

	resp, body := request(t, dashboard.server, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page := string(body)
	assert.Contains(t, page, `<meta http-equiv="refresh" content="60">`)
	assert.Contains(t, page, "Nuremberg Transit Dashboard")
	assert.Contains(t, page, "&gt; &#43;10m (Very Late)")
	assert.Contains(t, page, "Langwasser Süd")
	assert.Contains(t, page, "No route type data available.")
}

func TestStaticEndpointsWithoutDatabase(t *testing.T) {
	dashboard := newTestDashboard(t)

	resp, body := request(t, dashboard.server, http.MethodGet, "/api/overview")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var overview Overview
	require.NoError(t, json.Unmarshal(body, &overview))
	assert.Equal(t, schedule.OverviewStats{}, overview.Stats)
	assert.Empty(t, overview.RouteTypes)
	assert.Equal(t, 2, overview.StopCount)
	assert.Equal(t, 60, overview.RefreshSeconds)

	_, body = request(t, dashboard.server, http.MethodGet, "/api/stops")
	assert.JSONEq(t, `[]`, string(body))

	_, body = request(t, dashboard.server, http.MethodGet, "/api/routes?limit=5")
	assert.JSONEq(t, `{"route_types": [], "top_routes": []}`, string(body))

	resp, _ = request(t, dashboard.server, http.MethodGet, "/api/routes?limit=500")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCacheFailureFallsBackToLoad(t *testing.T) {
	dashboard := newTestDashboard(t)
	dashboard.redis.Close()

	resp, body := request(t, dashboard.server, http.MethodGet, "/api/stops")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestRegionsEndpoint(t *testing.T) {
	dashboard := newTestDashboard(t)

	_, body := request(t, dashboard.server, http.MethodGet, "/api/regions")

	assert.JSONEq(t, `[
		{"name": "Nuremberg", "prefix": "de:09564:"},
		{"name": "Fürth", "prefix": "de:09563:"},
		{"name": "Erlangen", "prefix": "de:09562:"}
	]`, string(body))
}

func TestRealtimeTTL(t *testing.T) {
	assert.Equal(t, 55*time.Second, RealtimeTTL(60*time.Second))
	assert.Equal(t, time.Second, RealtimeTTL(3*time.Second))
}
