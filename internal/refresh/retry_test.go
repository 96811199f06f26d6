package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/but-pixelated/AircraftTracker-Live/internal/config"
	"github.com/but-pixelated/AircraftTracker-Live/internal/domain"
	"github.com/but-pixelated/AircraftTracker-Live/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type fetchResult struct {
	snap *domain.Snapshot
	err  error
}

// mockFetcher returns results in order, repeating the last one, and signals
// every call on calls.
type mockFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	queries []domain.Query
	calls   chan struct{}
}

func newMockFetcher(results ...fetchResult) *mockFetcher {
	return &mockFetcher{results: results, calls: make(chan struct{}, 16)}
}

func (m *mockFetcher) GetStates(_ context.Context, q domain.Query) (*domain.Snapshot, error) {
	m.mu.Lock()
	i := min(len(m.queries), len(m.results)-1)
	m.queries = append(m.queries, q)
	r := m.results[i]
	m.mu.Unlock()

	m.calls <- struct{}{}
	return r.snap, r.err
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func snapshotOf(icaos ...string) *domain.Snapshot {
	states := make([]domain.StateRecord, len(icaos))
	for i, id := range icaos {
		states[i] = domain.StateRecord{ICAO24: id}
	}
	return &domain.Snapshot{Time: 1717000000, States: states}
}

func expectCall(t *testing.T, calls <-chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("expected a fetch attempt")
	}
}

func expectNoCall(t *testing.T, calls <-chan struct{}) {
	t.Helper()
	select {
	case <-calls:
		t.Fatal("fetch attempted before the backoff elapsed")
	case <-time.After(20 * time.Millisecond):
	}
}

// advanceThrough waits for the retrier to block on its timer, then checks the
// timer fires after exactly d.
func advanceThrough(t *testing.T, fc *clockwork.FakeClock, calls <-chan struct{}, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))

	fc.Advance(d - time.Millisecond)
	expectNoCall(t, calls)
	fc.Advance(time.Millisecond)
	expectCall(t, calls)
}

func newTestRetrier(f Fetcher, maxRetries int, fc clockwork.Clock) (*Retrier, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	cfg := config.RetryConfig{MaxRetries: maxRetries, MaxBackoff: 60 * time.Second}
	return NewRetrier(f, cfg, fc, m, discardLogger()), m
}

// --- tests ---

func TestBackoff(t *testing.T) {
	const cap60 = 60 * time.Second
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second},
		{10, 60 * time.Second},
		{64, 60 * time.Second},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, backoff(tc.attempt, cap60), "attempt %d", tc.attempt)
	}
	assert.Equal(t, 3*time.Second, backoff(2, 3*time.Second))
}

func TestRetrier_FirstAttemptSucceeds(t *testing.T) {
	f := newMockFetcher(fetchResult{snap: snapshotOf("a", "b")})
	r, m := newTestRetrier(f, 3, clockwork.NewFakeClock())

	snap, err := r.Fetch(context.Background(), domain.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, 1, f.callCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttempts))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FetchExhausted))
}

func TestRetrier_AlwaysFails(t *testing.T) {
	cause := &domain.ProviderError{StatusCode: 503, Body: "down"}
	f := newMockFetcher(fetchResult{err: cause})
	fc := clockwork.NewFakeClock()
	r, m := newTestRetrier(f, 3, fc)

	type out struct {
		snap *domain.Snapshot
		err  error
	}
	done := make(chan out, 1)
	go func() {
		snap, err := r.Fetch(context.Background(), domain.Query{})
		done <- out{snap, err}
	}()

	expectCall(t, f.calls)
	advanceThrough(t, fc, f.calls, 1*time.Second)
	advanceThrough(t, fc, f.calls, 2*time.Second)

	select {
	case res := <-done:
		assert.Nil(t, res.snap)
		require.Error(t, res.err)
		assert.ErrorIs(t, res.err, domain.ErrNoData)

		var perr *domain.ProviderError
		assert.True(t, errors.As(res.err, &perr), "last cause is wrapped")
	case <-time.After(time.Second):
		t.Fatal("no wait after the final attempt expected")
	}

	assert.Equal(t, 3, f.callCount())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FetchAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchExhausted))
}

func TestRetrier_EmptyThenData(t *testing.T) {
	f := newMockFetcher(
		fetchResult{snap: snapshotOf()},
		fetchResult{snap: snapshotOf("a", "b", "c")},
	)
	fc := clockwork.NewFakeClock()
	r, _ := newTestRetrier(f, 3, fc)

	done := make(chan *domain.Snapshot, 1)
	go func() {
		snap, err := r.Fetch(context.Background(), domain.Query{})
		assert.NoError(t, err)
		done <- snap
	}()

	expectCall(t, f.calls)
	advanceThrough(t, fc, f.calls, time.Second)

	select {
	case snap := <-done:
		require.NotNil(t, snap)
		assert.Equal(t, 3, snap.Len())
	case <-time.After(time.Second):
		t.Fatal("fetch did not return after second attempt")
	}
	assert.Equal(t, 2, f.callCount())
}

func TestRetrier_EmptyEveryTime(t *testing.T) {
	f := newMockFetcher(fetchResult{snap: &domain.Snapshot{Time: 1, States: []domain.StateRecord{}}})
	r, _ := newTestRetrier(f, 1, clockwork.NewFakeClock())

	snap, err := r.Fetch(context.Background(), domain.Query{})
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoData)
	assert.ErrorIs(t, err, domain.ErrEmptyResult)
}

func TestRetrier_RetriesAuthFailureLikeAnyOther(t *testing.T) {
	f := newMockFetcher(
		fetchResult{err: domain.ErrAuthentication},
		fetchResult{snap: snapshotOf("a")},
	)
	fc := clockwork.NewFakeClock()
	r, _ := newTestRetrier(f, 3, fc)

	done := make(chan error, 1)
	go func() {
		_, err := r.Fetch(context.Background(), domain.Query{})
		done <- err
	}()

	expectCall(t, f.calls)
	advanceThrough(t, fc, f.calls, time.Second)
	require.NoError(t, <-done)
}

func TestRetrier_CancelDuringWait(t *testing.T) {
	f := newMockFetcher(fetchResult{err: domain.ErrTransport})
	fc := clockwork.NewFakeClock()
	r, _ := newTestRetrier(f, 3, fc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Fetch(ctx, domain.Query{})
		done <- err
	}()

	expectCall(t, f.calls)
	blockCtx, blockCancel := context.WithTimeout(context.Background(), time.Second)
	defer blockCancel()
	require.NoError(t, fc.BlockUntilContext(blockCtx, 1))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrNoData)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancellation did not interrupt the backoff wait")
	}
	assert.Equal(t, 1, f.callCount())
}

func TestRetrier_PassesQueryThrough(t *testing.T) {
	f := newMockFetcher(fetchResult{snap: snapshotOf("a")})
	r, _ := newTestRetrier(f, 3, clockwork.NewFakeClock())

	europe, _ := domain.LookupRegion("europe")
	_, err := r.Fetch(context.Background(), domain.QueryFor(europe, "4b1814"))
	require.NoError(t, err)

	require.Len(t, f.queries, 1)
	assert.Equal(t, "4b1814", f.queries[0].ICAO24)
	assert.Equal(t, &domain.BoundingBox{LatMin: 35, LatMax: 60, LonMin: -15, LonMax: 40}, f.queries[0].BBox)
}

func TestNewRetrier_AtLeastOneAttempt(t *testing.T) {
	f := newMockFetcher(fetchResult{err: domain.ErrTransport})
	r, _ := newTestRetrier(f, 0, clockwork.NewFakeClock())

	_, err := r.Fetch(context.Background(), domain.Query{})
	require.Error(t, err)
	assert.Equal(t, 1, f.callCount())
}
