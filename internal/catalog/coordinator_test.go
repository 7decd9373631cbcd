package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"anicatalog/internal/runs"
)

const day = 24 * time.Hour

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubAdapter counts calls and lets a test hold a fetch open with gate.
type stubAdapter struct {
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
	fn      func(call int32) ([]Item, error)
}

func (a *stubAdapter) Fetch(ctx context.Context, limit int) ([]Item, error) {
	n := a.calls.Add(1)
	if a.started != nil {
		a.started <- struct{}{}
	}
	if a.gate != nil {
		<-a.gate
	}
	return a.fn(n)
}

type recordingMetrics struct {
	mu        sync.Mutex
	coalesced int
	refreshes int
	failures  int
	cached    map[string]int
}

func (m *recordingMetrics) ObserveRefresh(_ string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	if err != nil {
		m.failures++
	}
}

func (m *recordingMetrics) ObserveLookup(string, bool) {}

func (m *recordingMetrics) ObserveCoalesced(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coalesced++
}

func (m *recordingMetrics) SetCachedItems(id string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached == nil {
		m.cached = make(map[string]int)
	}
	m.cached[id] = n
}

func (m *recordingMetrics) coalescedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coalesced
}

func makeItems(prefix string, n int) []Item {
	out := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Item{
			ID:   fmt.Sprintf("%s-%d", prefix, i),
			Type: KindSeries,
			Name: fmt.Sprintf("%s title %d", prefix, i),
		})
	}
	return out
}

func newTestCoordinator(t *testing.T, adapters map[string]Adapter, opts ...CoordinatorOption) *Coordinator {
	t.Helper()
	defs := make([]Definition, 0, len(adapters))
	for id, a := range adapters {
		defs = append(defs, Definition{ID: id, Adapter: a, Limit: 30})
	}
	reg, err := NewRegistry(defs...)
	require.NoError(t, err)
	return NewCoordinator(reg, opts...)
}

func TestCoordinator_SingleFlight(t *testing.T) {
	const callers = 8
	adapter := &stubAdapter{
		gate:    make(chan struct{}),
		started: make(chan struct{}, callers),
		fn: func(int32) ([]Item, error) {
			return makeItems("a", 3), nil
		},
	}
	metrics := &recordingMetrics{}
	c := newTestCoordinator(t, map[string]Adapter{"top-anilist": adapter}, WithMetrics(metrics))

	results := make([][]Item, callers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		items, err := c.GetOrRefresh(context.Background(), "top-anilist", day)
		assert.NoError(t, err)
		results[0] = items
	}()
	<-adapter.started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items, err := c.GetOrRefresh(context.Background(), "top-anilist", day)
			assert.NoError(t, err)
			results[i] = items
		}(i)
	}
	require.Eventually(t, func() bool { return metrics.coalescedCount() == callers-1 }, time.Second, time.Millisecond)

	close(adapter.gate)
	wg.Wait()

	assert.EqualValues(t, 1, adapter.calls.Load())
	for i := range results {
		assert.Equal(t, makeItems("a", 3), results[i], "caller %d", i)
	}
}

func TestCoordinator_TTLMonotonicity(t *testing.T) {
	clock := newFakeClock()
	adapter := &stubAdapter{fn: func(n int32) ([]Item, error) {
		return makeItems(fmt.Sprintf("batch%d", n), 2), nil
	}}
	c := newTestCoordinator(t, map[string]Adapter{"top-anilist": adapter}, WithClock(clock.Now))
	ctx := context.Background()

	first, err := c.GetOrRefresh(ctx, "top-anilist", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, makeItems("batch1", 2), first)

	clock.Advance(59 * time.Minute)
	cached, err := c.GetOrRefresh(ctx, "top-anilist", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.EqualValues(t, 1, adapter.calls.Load())

	clock.Advance(2 * time.Minute)
	second, err := c.GetOrRefresh(ctx, "top-anilist", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, makeItems("batch2", 2), second)
	assert.EqualValues(t, 2, adapter.calls.Load())

	again, err := c.GetOrRefresh(ctx, "top-anilist", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, second, again)
	assert.EqualValues(t, 2, adapter.calls.Load())
}

func TestCoordinator_FailSoft(t *testing.T) {
	clock := newFakeClock()
	adapter := &stubAdapter{fn: func(n int32) ([]Item, error) {
		switch n {
		case 1:
			return makeItems("good", 4), nil
		case 2:
			return nil, errors.New("upstream 503")
		default:
			return makeItems("recovered", 1), nil
		}
	}}
	core, logs := observer.New(zap.ErrorLevel)
	metrics := &recordingMetrics{}
	c := newTestCoordinator(t, map[string]Adapter{"top-anilist": adapter},
		WithClock(clock.Now), WithLogger(zap.New(core)), WithMetrics(metrics))
	ctx := context.Background()

	_, err := c.GetOrRefresh(ctx, "top-anilist", day)
	require.NoError(t, err)

	clock.Advance(day + time.Second)
	items, err := c.GetOrRefresh(ctx, "top-anilist", day)
	require.NoError(t, err)
	assert.Equal(t, makeItems("good", 4), items)
	assert.EqualValues(t, 2, adapter.calls.Load())

	entries := logs.FilterMessage("catalog refresh failed, serving previous items").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "top-anilist", entries[0].ContextMap()["catalog"])
	assert.Equal(t, 1, metrics.failures)

	status := c.Status(ctx)
	require.Len(t, status, 1)
	assert.False(t, status[0].Refreshing)
	assert.Contains(t, status[0].LastError, "upstream 503")

	// The deadline stayed advanced, so the failing upstream is not hit again
	// within the same window.
	items, err = c.GetOrRefresh(ctx, "top-anilist", day)
	require.NoError(t, err)
	assert.Equal(t, makeItems("good", 4), items)
	assert.EqualValues(t, 2, adapter.calls.Load())

	clock.Advance(day + time.Second)
	items, err = c.GetOrRefresh(ctx, "top-anilist", day)
	require.NoError(t, err)
	assert.Equal(t, makeItems("recovered", 1), items)
	assert.EqualValues(t, 3, adapter.calls.Load())
	assert.Empty(t, c.Status(ctx)[0].LastError)
}

func TestCoordinator_EmptyResultForcesRetry(t *testing.T) {
	clock := newFakeClock()
	adapter := &stubAdapter{fn: func(n int32) ([]Item, error) {
		if n == 1 {
			return nil, nil
		}
		return makeItems("late", 2), nil
	}}
	c := newTestCoordinator(t, map[string]Adapter{"upcoming-anilist": adapter}, WithClock(clock.Now))
	ctx := context.Background()

	items, err := c.GetOrRefresh(ctx, "upcoming-anilist", day)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	items, err = c.GetOrRefresh(ctx, "upcoming-anilist", day)
	require.NoError(t, err)
	assert.Equal(t, makeItems("late", 2), items)
	assert.EqualValues(t, 2, adapter.calls.Load())
}

func TestCoordinator_DailyScenario(t *testing.T) {
	clock := newFakeClock()
	adapter := &stubAdapter{fn: func(n int32) ([]Item, error) {
		return makeItems(fmt.Sprintf("day%d", n), 5), nil
	}}
	c := newTestCoordinator(t, map[string]Adapter{"season-anilist": adapter}, WithClock(clock.Now))
	ctx := context.Background()
	start := clock.Now()

	items, err := c.GetOrRefresh(ctx, "season-anilist", day)
	require.NoError(t, err)
	assert.Len(t, items, 5)
	status := c.Status(ctx)
	require.NotNil(t, status[0].NextRefreshAt)
	assert.Equal(t, start.Add(day), *status[0].NextRefreshAt)

	clock.Advance(12 * time.Hour)
	again, err := c.GetOrRefresh(ctx, "season-anilist", day)
	require.NoError(t, err)
	assert.Equal(t, items, again)
	assert.EqualValues(t, 1, adapter.calls.Load())

	clock.Advance(day)
	next, err := c.GetOrRefresh(ctx, "season-anilist", day)
	require.NoError(t, err)
	assert.Equal(t, makeItems("day2", 5), next)
	assert.EqualValues(t, 2, adapter.calls.Load())
}

func TestCoordinator_CallerCancellationKeepsFlight(t *testing.T) {
	adapter := &stubAdapter{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
		fn: func(int32) ([]Item, error) {
			return makeItems("slow", 2), nil
		},
	}
	c := newTestCoordinator(t, map[string]Adapter{"top-airing-ranker": adapter})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		items, err := c.GetOrRefresh(ctx, "top-airing-ranker", day)
		assert.Empty(t, items)
		done <- err
	}()
	<-adapter.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(adapter.gate)
	items, err := c.GetOrRefresh(context.Background(), "top-airing-ranker", day)
	require.NoError(t, err)
	assert.Equal(t, makeItems("slow", 2), items)
	assert.EqualValues(t, 1, adapter.calls.Load())
}

func TestCoordinator_AdapterPanicReleasesWaiters(t *testing.T) {
	adapter := &stubAdapter{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
		fn: func(int32) ([]Item, error) {
			panic("nil map write")
		},
	}
	metrics := &recordingMetrics{}
	c := newTestCoordinator(t, map[string]Adapter{"popular-anilist": adapter}, WithMetrics(metrics))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := c.GetOrRefresh(context.Background(), "popular-anilist", day)
			assert.NoError(t, err)
			assert.Empty(t, items)
		}()
	}
	<-adapter.started
	require.Eventually(t, func() bool { return metrics.coalescedCount() == 2 }, time.Second, time.Millisecond)
	close(adapter.gate)
	wg.Wait()

	status := c.Status(context.Background())
	assert.Contains(t, status[0].LastError, "adapter panic")
	assert.False(t, status[0].Refreshing)
}

func TestCoordinator_IndependentCatalogs(t *testing.T) {
	slow := &stubAdapter{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
		fn: func(int32) ([]Item, error) {
			return makeItems("slow", 1), nil
		},
	}
	fast := &stubAdapter{fn: func(int32) ([]Item, error) {
		return makeItems("fast", 2), nil
	}}
	c := newTestCoordinator(t, map[string]Adapter{"top-airing-ranker": slow, "top-anilist": fast})

	go func() {
		_, _ = c.GetOrRefresh(context.Background(), "top-airing-ranker", day)
	}()
	<-slow.started
	defer close(slow.gate)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	items, err := c.GetOrRefresh(ctx, "top-anilist", day)
	require.NoError(t, err)
	assert.Equal(t, makeItems("fast", 2), items)
}

func TestCoordinator_ForceRefresh(t *testing.T) {
	clock := newFakeClock()
	adapter := &stubAdapter{fn: func(n int32) ([]Item, error) {
		if n == 3 {
			return nil, errors.New("graphql: rate limited")
		}
		return makeItems(fmt.Sprintf("v%d", n), 1), nil
	}}
	c := newTestCoordinator(t, map[string]Adapter{"top-anilist": adapter}, WithClock(clock.Now))
	ctx := context.Background()

	_, err := c.GetOrRefresh(ctx, "top-anilist", day)
	require.NoError(t, err)

	items, err := c.ForceRefresh(ctx, "top-anilist", day)
	require.NoError(t, err)
	assert.Equal(t, makeItems("v2", 1), items)

	items, err = c.ForceRefresh(ctx, "top-anilist", day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, makeItems("v2", 1), items)
	assert.EqualValues(t, 3, adapter.calls.Load())
}

func TestCoordinator_PersistsAndHydrates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	clock := newFakeClock()
	store := NewMockStore(ctrl)

	next := clock.Now().Add(6 * time.Hour)
	cached, err := json.Marshal(snapshot{Items: makeItems("disk", 2), NextRefreshAt: &next})
	require.NoError(t, err)
	store.EXPECT().Get(gomock.Any(), "catalog:top-anilist").Return(cached, true, nil)

	adapter := &stubAdapter{fn: func(int32) ([]Item, error) {
		return makeItems("net", 3), nil
	}}
	c := newTestCoordinator(t, map[string]Adapter{"top-anilist": adapter}, WithClock(clock.Now), WithStore(store))
	ctx := context.Background()

	items, err := c.GetOrRefresh(ctx, "top-anilist", day)
	require.NoError(t, err)
	assert.Equal(t, makeItems("disk", 2), items)
	assert.EqualValues(t, 0, adapter.calls.Load())

	// Past the persisted deadline: the advanced deadline is written before
	// the fetch, the new items after it.
	clock.Advance(7 * time.Hour)
	var writes []snapshot
	store.EXPECT().Set(gomock.Any(), "catalog:top-anilist", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, value []byte) error {
			var s snapshot
			require.NoError(t, json.Unmarshal(value, &s))
			writes = append(writes, s)
			return nil
		}).Times(2)

	items, err = c.GetOrRefresh(ctx, "top-anilist", day)
	require.NoError(t, err)
	assert.Equal(t, makeItems("net", 3), items)

	require.Len(t, writes, 2)
	assert.Equal(t, makeItems("disk", 2), writes[0].Items)
	require.NotNil(t, writes[0].NextRefreshAt)
	assert.Equal(t, clock.Now().Add(day), writes[0].NextRefreshAt.UTC())
	assert.Equal(t, makeItems("net", 3), writes[1].Items)
}

func TestCoordinator_StoreErrorsAreNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := NewMockStore(ctrl)
	store.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, errors.New("disk gone"))
	store.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk gone")).AnyTimes()

	adapter := &stubAdapter{fn: func(int32) ([]Item, error) {
		return makeItems("x", 1), nil
	}}
	c := newTestCoordinator(t, map[string]Adapter{"top-anilist": adapter}, WithStore(store))

	items, err := c.GetOrRefresh(context.Background(), "top-anilist", day)
	require.NoError(t, err)
	assert.Equal(t, makeItems("x", 1), items)
}

func TestCoordinator_RecordsRuns(t *testing.T) {
	adapter := &stubAdapter{fn: func(n int32) ([]Item, error) {
		if n == 2 {
			return nil, errors.New("boom")
		}
		return makeItems("r", 2), nil
	}}
	repo := runs.NewMemoryRepo(10)
	clock := newFakeClock()
	c := newTestCoordinator(t, map[string]Adapter{"netflix-originals": adapter}, WithRunLog(repo), WithClock(clock.Now))
	ctx := context.Background()

	_, err := c.GetOrRefresh(ctx, "netflix-originals", day)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = c.ForceRefresh(ctx, "netflix-originals", day)
	require.Error(t, err)

	list, err := repo.ListRuns(ctx, "netflix-originals", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, runs.StatusFailed, list[0].Status)
	assert.Contains(t, list[0].Error, "boom")
	assert.Equal(t, runs.StatusCompleted, list[1].Status)
	assert.Equal(t, 2, list[1].ItemsFetched)
}
