//go:build integration

package integration_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	httpadapter "github.com/but-pixelated/AircraftTracker-Live/internal/adapter/http"
	"github.com/but-pixelated/AircraftTracker-Live/internal/adapter/opensky"
	"github.com/but-pixelated/AircraftTracker-Live/internal/config"
	"github.com/but-pixelated/AircraftTracker-Live/internal/observability"
	"github.com/but-pixelated/AircraftTracker-Live/internal/refresh"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statesBody = `{"time":1717000000,"states":[
	["4b1814","SWR123  ","Switzerland",1717000000,1717000005,8.55,47.45,10972.8,false,230.5,87.2,-1.3,null,11003.2,"1000",false,0],
	["3c6444","DLH4AB  ","Germany",1717000000,1717000005,11.78,48.35,3200.4,false,150.2,270.0,5.2,null,3250.0,null,false,2],
	["a0b1c2","","United States",null,1717000004,null,null,null,true,0,null,null,null]
]}`

// provider is a scripted OpenSky stand-in. The first failures requests get
// failStatus, the rest get statesBody.
type provider struct {
	hits       atomic.Int32
	failures   int32
	failStatus int
	lastQuery  atomic.Value
}

func (p *provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := p.hits.Add(1)
	p.lastQuery.Store(r.URL.Query())
	if n <= p.failures {
		http.Error(w, "upstream unavailable", p.failStatus)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, statesBody)
}

type stack struct {
	server  http.Handler
	metrics *observability.Metrics
}

func newStack(t *testing.T, p *provider, breakerFailures uint32) stack {
	t.Helper()
	upstream := httptest.NewServer(p)
	t.Cleanup(upstream.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	client := opensky.NewClient(config.OpenSkyConfig{
		BaseURL:         upstream.URL,
		Timeout:         5 * time.Second,
		UserAgent:       "Mozilla/5.0",
		Burst:           1,
		BreakerFailures: breakerFailures,
		BreakerTimeout:  time.Minute,
	}, metrics, logger)
	retrier := refresh.NewRetrier(client, config.RetryConfig{MaxRetries: 3, MaxBackoff: 10 * time.Millisecond}, nil, metrics, logger)
	service := refresh.NewService(retrier, 20, nil, metrics, logger)

	srv := httpadapter.NewServer(config.HTTPConfig{
		Addr:            ":0",
		WriteTimeout:    time.Minute,
		ShutdownTimeout: time.Second,
		CORSOrigins:     []string{"*"},
	}, service, client, logger)

	return stack{server: srv, metrics: metrics}
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// TestRefreshRecoversAfterTransientFailures drives one API refresh through
// retries against a provider that fails twice before answering.
func TestRefreshRecoversAfterTransientFailures(t *testing.T) {
	p := &provider{failures: 2, failStatus: http.StatusServiceUnavailable}
	s := newStack(t, p, 5)

	rec := get(s.server, "/api/v1/states?region=europe")
	require.Equal(t, http.StatusOK, rec.Code)

	var view refresh.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.False(t, view.Degraded)
	assert.Equal(t, "europe", view.Region)
	assert.Equal(t, 2, view.Map.Len(), "the record without a position is not plotted")
	require.NotNil(t, view.Stats)
	assert.Equal(t, 3, view.Stats.TotalAircraft)
	assert.Equal(t, 3, view.Stats.Countries)
	assert.Contains(t, view.StatsText, "• Total Aircraft: 3")

	assert.Equal(t, int32(3), p.hits.Load())
	q := p.lastQuery.Load().(url.Values)
	assert.Equal(t, "35", q.Get("lamin"))
	assert.Equal(t, "60", q.Get("lamax"))
	assert.Equal(t, "-15", q.Get("lomin"))
	assert.Equal(t, "40", q.Get("lomax"))

	assert.Equal(t, 3.0, testutil.ToFloat64(s.metrics.FetchAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Refreshes.WithLabelValues("ok")))
}

// TestPageShowsNoticeWhenProviderRejectsCredentials exhausts the retries
// against a provider that always answers 401.
func TestPageShowsNoticeWhenProviderRejectsCredentials(t *testing.T) {
	p := &provider{failures: 1 << 20, failStatus: http.StatusUnauthorized}
	s := newStack(t, p, 5)

	rec := get(s.server, "/?region=asia")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), refresh.NoticeNoData)
	assert.Contains(t, rec.Body.String(), `<option value="asia" selected>Asia</option>`)

	assert.Equal(t, int32(3), p.hits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.FetchExhausted))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Refreshes.WithLabelValues("no_data")))
}

// TestReadinessFollowsCircuitBreaker opens the breaker through failed
// refreshes and checks /readyz reports it.
func TestReadinessFollowsCircuitBreaker(t *testing.T) {
	p := &provider{failures: 1 << 20, failStatus: http.StatusBadGateway}
	s := newStack(t, p, 2)

	require.Equal(t, http.StatusOK, get(s.server, "/readyz").Code)

	rec := get(s.server, "/api/v1/states")
	require.Equal(t, http.StatusOK, rec.Code)
	var view refresh.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.True(t, view.Degraded)
	assert.Equal(t, refresh.NoticeNoData, view.StatsText)

	assert.Equal(t, int32(2), p.hits.Load(), "third attempt short-circuits")
	assert.Equal(t, http.StatusServiceUnavailable, get(s.server, "/readyz").Code)
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.BreakerState))
}
