package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/vgnwatch/pkg/ctdf"
	"github.com/travigo/vgnwatch/pkg/departurecache"
	"github.com/travigo/vgnwatch/pkg/vag"
)

type fakeFetcher struct {
	mutex   sync.Mutex
	results map[string]vag.FetchResult
	calls   []string

	// block, when set, holds every fetch until it is closed
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeFetcher) GetDepartures(ctx context.Context, stopID string) vag.FetchResult {
	f.mutex.Lock()
	f.calls = append(f.calls, stopID)
	result, ok := f.results[stopID]
	f.mutex.Unlock()

	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}

	if !ok {
		return vag.FetchResult{StopID: stopID, Status: vag.FetchStatusEmpty, Departures: []*ctdf.Departure{}}
	}

	return result
}

func (f *fakeFetcher) Calls() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return append([]string{}, f.calls...)
}

func okResult(stopID string, lines ...string) vag.FetchResult {
	departures := make([]*ctdf.Departure, 0, len(lines))
	for _, line := range lines {
		departures = append(departures, &ctdf.Departure{
			Line:          line,
			Destination:   "Hauptbahnhof",
			ScheduledTime: "2024-11-27T14:05:00+01:00",
			ActualTime:    "2024-11-27T14:06:00+01:00",
		})
	}

	return vag.FetchResult{StopID: stopID, Status: vag.FetchStatusOK, Departures: departures}
}

func newRedisStore(t *testing.T) (*departurecache.Store, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	return departurecache.NewStore(client, departurecache.ExpiryFor(60*time.Second)), server
}

type failingWriter struct {
	pingErr  error
	writeErr error
	writes   int
	closed   bool
}

func (w *failingWriter) Write(ctx context.Context, stopID string, departures []*ctdf.Departure) error {
	w.writes++
	return w.writeErr
}

func (w *failingWriter) Ping(ctx context.Context) error { return w.pingErr }

func (w *failingWriter) Close() error {
	w.closed = true
	return nil
}

func TestOrderStops(t *testing.T) {
	stops := []string{"de:09564:1:1:1", "546", "de:09564:2:1:1", "de:09564:1:1:1", ""}

	ordered := OrderStops(stops, []string{"510", "546", "3151"}, 50)

	assert.Equal(t, []string{"510", "546", "3151", "de:09564:1:1:1", "de:09564:2:1:1"}, ordered)
}

func TestOrderStopsCap(t *testing.T) {
	stops := []string{"1", "2", "3", "4", "5"}

	assert.Equal(t, []string{"510", "1", "2"}, OrderStops(stops, []string{"510"}, 3))
	assert.Equal(t, []string{"510", "1", "2", "3", "4", "5"}, OrderStops(stops, []string{"510"}, 0))
	assert.Equal(t, []string{}, OrderStops(nil, nil, 50))
}

type staticStops []string

func (s staticStops) StopsByRegion(ctx context.Context, region string) []string {
	return s
}

func TestResolveStops(t *testing.T) {
	stops, err := ResolveStops(context.Background(), staticStops{"de:09564:510:11:1", "546"}, "Nuremberg", []string{"546", "510"})

	require.NoError(t, err)
	assert.Equal(t, []string{"de:09564:510:11:1", "546", "510"}, stops)
}

func TestResolveStopsEmptyRegion(t *testing.T) {
	stops, err := ResolveStops(context.Background(), staticStops{}, "Nuremberg", []string{"546", "510"})

	assert.ErrorIs(t, err, ErrNoStops)
	assert.Nil(t, stops)
}

func TestRunCycleWritesSnapshots(t *testing.T) {
	store, server := newRedisStore(t)
	fetcher := &fakeFetcher{results: map[string]vag.FetchResult{
		"510":  okResult("510", "U1", "U2"),
		"546":  {StopID: "546", Status: vag.FetchStatusEmpty, Departures: []*ctdf.Departure{}},
		"3151": {StopID: "3151", Status: vag.FetchStatusError, Err: errors.New("503 Service Unavailable")},
		"600":  okResult("600", "36"),
	}}

	require.NoError(t, server.Set("departures:3151", `[{"line":"old"}]`))

	poller := &Poller{
		Fetcher:       fetcher,
		Writer:        store,
		Stops:         []string{"600", "546"},
		PriorityStops: []string{"510", "3151"},
		MaxStops:      50,
	}

	report := poller.RunCycle(context.Background())

	assert.Equal(t, []string{"510", "3151", "600", "546"}, fetcher.Calls())
	assert.Equal(t, 4, report.Attempted)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 1, report.Empty)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 3, report.DeparturesStored)
	assert.False(t, report.Skipped)
	assert.False(t, report.Abandoned)

	payload, err := server.Get("departures:546")
	require.NoError(t, err)
	assert.Equal(t, "[]", payload)

	// A failed fetch leaves the previous snapshot in place
	payload, err = server.Get("departures:3151")
	require.NoError(t, err)
	assert.Equal(t, `[{"line":"old"}]`, payload)

	assert.Equal(t, 90*time.Second, server.TTL("departures:510"))

	departures, err := store.Read(context.Background(), "510")
	require.NoError(t, err)
	require.Len(t, departures, 2)
	assert.Equal(t, "U1", departures[0].Line)
}

func TestRunCycleCapsStops(t *testing.T) {
	store, _ := newRedisStore(t)
	fetcher := &fakeFetcher{}

	poller := &Poller{
		Fetcher:       fetcher,
		Writer:        store,
		Stops:         []string{"1", "2", "3", "4"},
		PriorityStops: []string{"510"},
		MaxStops:      2,
	}

	report := poller.RunCycle(context.Background())

	assert.Equal(t, []string{"510", "1"}, fetcher.Calls())
	assert.Equal(t, 2, report.Attempted)
}

func TestRunCycleSkipsWhileRunning(t *testing.T) {
	store, _ := newRedisStore(t)
	fetcher := &fakeFetcher{
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}

	poller := &Poller{
		Fetcher: fetcher,
		Writer:  store,
		Stops:   []string{"510"},
	}

	first := make(chan CycleReport)
	go func() {
		first <- poller.RunCycle(context.Background())
	}()

	select {
	case <-fetcher.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle never started fetching")
	}

	second := poller.RunCycle(context.Background())
	assert.True(t, second.Skipped)
	assert.Zero(t, second.Attempted)

	close(fetcher.block)
	report := <-first
	assert.False(t, report.Skipped)
	assert.Equal(t, 1, report.Attempted)

	assert.Equal(t, []string{"510"}, fetcher.Calls())
}

func TestRunCycleReconnectsDeadCache(t *testing.T) {
	dead := &failingWriter{pingErr: redis.ErrClosed}
	store, server := newRedisStore(t)

	reconnects := 0
	poller := &Poller{
		Fetcher: &fakeFetcher{results: map[string]vag.FetchResult{"510": okResult("510", "U1")}},
		Writer:  dead,
		Reconnect: func(ctx context.Context) (DepartureWriter, error) {
			reconnects++
			return store, nil
		},
		Stops: []string{"510"},
	}

	report := poller.RunCycle(context.Background())

	assert.Equal(t, 1, reconnects)
	assert.True(t, dead.closed)
	assert.Zero(t, dead.writes)
	assert.False(t, report.Abandoned)
	assert.Equal(t, 1, report.DeparturesStored)
	assert.Same(t, store, poller.Writer)
	assert.True(t, server.Exists("departures:510"))
}

func TestRunCycleAbandonsWhenReconnectFails(t *testing.T) {
	fetcher := &fakeFetcher{}
	reconnects := 0

	poller := &Poller{
		Fetcher: fetcher,
		Writer:  &failingWriter{pingErr: redis.ErrClosed},
		Reconnect: func(ctx context.Context) (DepartureWriter, error) {
			reconnects++
			return nil, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
		},
		Stops: []string{"510", "546"},
	}

	report := poller.RunCycle(context.Background())

	assert.Equal(t, 1, reconnects)
	assert.True(t, report.Abandoned)
	assert.Zero(t, report.Attempted)
	assert.Empty(t, fetcher.Calls())
	assert.Nil(t, poller.Writer)
}

func TestRunCycleStopsWritingAfterConnectionLoss(t *testing.T) {
	writer := &failingWriter{writeErr: redis.ErrClosed}
	fetcher := &fakeFetcher{results: map[string]vag.FetchResult{
		"510": okResult("510", "U1"),
		"546": okResult("546", "U2"),
	}}

	poller := &Poller{
		Fetcher: fetcher,
		Writer:  writer,
		Stops:   []string{"510", "546", "3151"},
	}

	report := poller.RunCycle(context.Background())

	assert.Equal(t, 1, writer.writes)
	assert.True(t, writer.closed)
	assert.True(t, report.Abandoned)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, []string{"510"}, fetcher.Calls())
	assert.Nil(t, poller.Writer)
}

func TestRunCycleContinuesAfterOtherWriteErrors(t *testing.T) {
	writer := &failingWriter{writeErr: errors.New("OOM command not allowed when used memory > 'maxmemory'")}
	fetcher := &fakeFetcher{results: map[string]vag.FetchResult{
		"510": okResult("510", "U1"),
		"546": okResult("546", "U2"),
	}}

	poller := &Poller{
		Fetcher: fetcher,
		Writer:  writer,
		Stops:   []string{"510", "546"},
	}

	report := poller.RunCycle(context.Background())

	assert.Equal(t, 2, writer.writes)
	assert.Equal(t, 2, report.WriteFailures)
	assert.Zero(t, report.DeparturesStored)
	assert.False(t, report.Abandoned)
}

func TestRunCycleAbandonsOnCancel(t *testing.T) {
	store, _ := newRedisStore(t)
	fetcher := &fakeFetcher{}

	poller := &Poller{
		Fetcher:      fetcher,
		Writer:       store,
		Stops:        []string{"510", "546", "3151"},
		RequestPause: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	report := poller.RunCycle(ctx)

	assert.True(t, report.Abandoned)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, []string{"510"}, fetcher.Calls())
}

type countingFetcher struct {
	calls atomic.Int32
}

func (f *countingFetcher) GetDepartures(ctx context.Context, stopID string) vag.FetchResult {
	f.calls.Add(1)
	return vag.FetchResult{StopID: stopID, Status: vag.FetchStatusEmpty}
}

func TestRunTriggersImmediatelyAndOnInterval(t *testing.T) {
	store, _ := newRedisStore(t)
	fetcher := &countingFetcher{}

	poller := &Poller{
		Fetcher:      fetcher,
		Writer:       store,
		Stops:        []string{"510"},
		Interval:     20 * time.Millisecond,
		MisfireGrace: 15 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- poller.Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}

func TestRunRejectsInvalidSetup(t *testing.T) {
	assert.Error(t, (&Poller{Stops: []string{"510"}}).Run(context.Background()))
	assert.ErrorIs(t, (&Poller{Interval: time.Second}).Run(context.Background()), ErrNoStops)
}

func TestMisfired(t *testing.T) {
	poller := &Poller{MisfireGrace: 15 * time.Second}

	assert.False(t, poller.misfired(time.Now().Add(-time.Second)))
	assert.True(t, poller.misfired(time.Now().Add(-16*time.Second)))
	assert.False(t, (&Poller{}).misfired(time.Now().Add(-time.Hour)))
}
