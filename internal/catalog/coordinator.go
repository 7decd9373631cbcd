package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"anicatalog/internal/runs"
)

// Coordinator owns the per-catalog cache. For each catalog it decides when
// the cached items are stale and makes sure at most one upstream refresh is
// running at a time; concurrent callers share the running refresh.
type Coordinator struct {
	registry *Registry
	store    Store
	metrics  Metrics
	runLog   runs.Repository
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// entry is the state of a single catalog. Its mutex guards every field and
// is never held across an upstream call.
type entry struct {
	mu sync.Mutex

	loaded        bool
	items         []Item
	nextRefreshAt time.Time
	refreshedAt   time.Time
	lastErr       error

	// flight is non-nil while a refresh is running.
	flight *flight
}

// flight is the shared result of one refresh. items and err are written
// before done is closed and read only after.
type flight struct {
	done  chan struct{}
	items []Item
	err   error
}

type snapshot struct {
	Items         []Item     `json:"items"`
	NextRefreshAt *time.Time `json:"next_refresh_at"`
	RefreshedAt   *time.Time `json:"refreshed_at,omitempty"`
}

type CoordinatorOption func(*Coordinator)

func WithStore(s Store) CoordinatorOption {
	return func(c *Coordinator) { c.store = s }
}

func WithMetrics(m Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithRunLog(r runs.Repository) CoordinatorOption {
	return func(c *Coordinator) { c.runLog = r }
}

func WithLogger(l *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now; tests use it to step over TTL boundaries.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCoordinator(registry *Registry, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		registry: registry,
		metrics:  noopMetrics{},
		logger:   zap.NewNop(),
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrRefresh returns the cached items for catalogID, refreshing them first
// when they are stale. A failed refresh is logged and the previous items are
// returned. The only error is ctx.Err() when the caller stops waiting for a
// running refresh; the refresh itself keeps going for other waiters.
func (c *Coordinator) GetOrRefresh(ctx context.Context, catalogID string, ttl time.Duration) ([]Item, error) {
	res, err := c.get(ctx, catalogID, ttl, false)
	return res.items, err
}

// ForceRefresh runs the same path as GetOrRefresh with staleness forced. If
// a refresh is already running it waits for that one. Unlike GetOrRefresh it
// reports the upstream error so operators can see it.
func (c *Coordinator) ForceRefresh(ctx context.Context, catalogID string, ttl time.Duration) ([]Item, error) {
	res, err := c.get(ctx, catalogID, ttl, true)
	if err != nil {
		return res.items, err
	}
	return res.items, res.fetchErr
}

type lookupResult struct {
	items    []Item
	fetchErr error
}

func (c *Coordinator) get(ctx context.Context, catalogID string, ttl time.Duration, force bool) (lookupResult, error) {
	e := c.entry(catalogID)

	e.mu.Lock()
	if !e.loaded {
		c.hydrate(ctx, catalogID, e)
	}
	now := c.now()
	if !force && !e.isStale(now) {
		items := e.items
		e.mu.Unlock()
		c.metrics.ObserveLookup(catalogID, true)
		return lookupResult{items: items}, nil
	}
	c.metrics.ObserveLookup(catalogID, false)

	f := e.flight
	if f == nil {
		f = &flight{done: make(chan struct{})}
		e.flight = f
		// Advance the deadline before fetching so a slow or failing upstream
		// is retried at most once per TTL.
		e.nextRefreshAt = now.Add(ttl)
		snap := e.snapshot()
		e.mu.Unlock()

		c.persist(ctx, catalogID, snap)
		c.logger.Info("catalog refresh started",
			zap.String("catalog", catalogID),
			zap.Time("next_refresh_at", now.Add(ttl)),
		)
		go c.refresh(context.WithoutCancel(ctx), catalogID, e, f)
	} else {
		e.mu.Unlock()
		c.metrics.ObserveCoalesced(catalogID)
		c.logger.Debug("catalog refresh already running, waiting", zap.String("catalog", catalogID))
	}

	select {
	case <-f.done:
		return lookupResult{items: f.items, fetchErr: f.err}, nil
	case <-ctx.Done():
		e.mu.Lock()
		items := e.items
		e.mu.Unlock()
		return lookupResult{items: items}, ctx.Err()
	}
}

func (c *Coordinator) refresh(ctx context.Context, catalogID string, e *entry, f *flight) {
	start := c.now()
	run := c.startRun(ctx, catalogID, start)

	fetched, err := c.fetch(ctx, catalogID)
	duration := c.now().Sub(start)

	e.mu.Lock()
	if err == nil {
		e.items = fetched
		e.refreshedAt = c.now()
		e.lastErr = nil
	} else {
		e.lastErr = err
	}
	items := e.items
	snap := e.snapshot()
	e.flight = nil
	e.mu.Unlock()

	if err == nil {
		c.persist(ctx, catalogID, snap)
		c.logger.Info("catalog refresh completed",
			zap.String("catalog", catalogID),
			zap.Int("items", len(fetched)),
			zap.Duration("duration", duration),
		)
	} else {
		c.logger.Error("catalog refresh failed, serving previous items",
			zap.String("catalog", catalogID),
			zap.Int("items", len(items)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	}
	c.metrics.ObserveRefresh(catalogID, duration, err)
	c.metrics.SetCachedItems(catalogID, len(items))
	c.finishRun(ctx, run, len(fetched), err)

	f.items, f.err = items, err
	close(f.done)
}

// fetch resolves the adapter and runs it. A panicking adapter is turned
// into an error so waiters are always released.
func (c *Coordinator) fetch(ctx context.Context, catalogID string) (items []Item, err error) {
	def, ok := c.registry.Lookup(catalogID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCatalog, catalogID)
	}
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("adapter panic: %v", r)
		}
	}()
	items, err = def.Adapter.Fetch(ctx, def.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", catalogID, err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Status reports the cache state of every registered catalog.
func (c *Coordinator) Status(ctx context.Context) []Status {
	defs := c.registry.Definitions()
	out := make([]Status, 0, len(defs))
	for _, d := range defs {
		e := c.entry(d.ID)
		e.mu.Lock()
		if !e.loaded {
			c.hydrate(ctx, d.ID, e)
		}
		st := Status{
			CatalogID:  d.ID,
			Name:       d.Name,
			Items:      len(e.items),
			Refreshing: e.flight != nil,
		}
		if !e.nextRefreshAt.IsZero() {
			t := e.nextRefreshAt
			st.NextRefreshAt = &t
		}
		if !e.refreshedAt.IsZero() {
			t := e.refreshedAt
			st.LastRefreshedAt = &t
		}
		if e.lastErr != nil {
			st.LastError = e.lastErr.Error()
		}
		e.mu.Unlock()
		out = append(out, st)
	}
	return out
}

func (c *Coordinator) entry(catalogID string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[catalogID]
	if !ok {
		e = &entry{}
		c.entries[catalogID] = e
	}
	return e
}

// isStale must be called with e.mu held.
func (e *entry) isStale(now time.Time) bool {
	return e.nextRefreshAt.IsZero() || now.After(e.nextRefreshAt) || len(e.items) == 0
}

// snapshot must be called with e.mu held.
func (e *entry) snapshot() snapshot {
	s := snapshot{Items: e.items}
	if s.Items == nil {
		s.Items = []Item{}
	}
	if !e.nextRefreshAt.IsZero() {
		t := e.nextRefreshAt
		s.NextRefreshAt = &t
	}
	if !e.refreshedAt.IsZero() {
		t := e.refreshedAt
		s.RefreshedAt = &t
	}
	return s
}

func storeKey(catalogID string) string {
	return "catalog:" + catalogID
}

// hydrate loads the persisted snapshot once. Must be called with e.mu held.
func (c *Coordinator) hydrate(ctx context.Context, catalogID string, e *entry) {
	e.loaded = true
	if c.store == nil {
		return
	}
	raw, ok, err := c.store.Get(ctx, storeKey(catalogID))
	if err != nil {
		c.logger.Warn("load cached catalog failed", zap.String("catalog", catalogID), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	var s snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		c.logger.Warn("decode cached catalog failed", zap.String("catalog", catalogID), zap.Error(err))
		return
	}
	e.items = s.Items
	if s.NextRefreshAt != nil {
		e.nextRefreshAt = *s.NextRefreshAt
	}
	if s.RefreshedAt != nil {
		e.refreshedAt = *s.RefreshedAt
	}
	c.metrics.SetCachedItems(catalogID, len(e.items))
}

func (c *Coordinator) persist(ctx context.Context, catalogID string, s snapshot) {
	if c.store == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		c.logger.Warn("encode catalog snapshot failed", zap.String("catalog", catalogID), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, storeKey(catalogID), raw); err != nil {
		c.logger.Warn("persist catalog snapshot failed", zap.String("catalog", catalogID), zap.Error(err))
	}
}

func (c *Coordinator) startRun(ctx context.Context, catalogID string, start time.Time) *runs.Run {
	if c.runLog == nil {
		return nil
	}
	run := &runs.Run{
		CatalogID: catalogID,
		Status:    runs.StatusRunning,
		StartedAt: start,
	}
	id, err := c.runLog.CreateRun(ctx, run)
	if err != nil {
		c.logger.Warn("record refresh run failed", zap.String("catalog", catalogID), zap.Error(err))
		return nil
	}
	run.ID = id
	return run
}

func (c *Coordinator) finishRun(ctx context.Context, run *runs.Run, fetched int, err error) {
	if run == nil {
		return
	}
	now := c.now()
	run.FinishedAt = &now
	run.ItemsFetched = fetched
	if err != nil {
		run.Status = runs.StatusFailed
		run.Error = err.Error()
	} else {
		run.Status = runs.StatusCompleted
	}
	if uErr := c.runLog.UpdateRun(ctx, run); uErr != nil {
		c.logger.Warn("update refresh run failed", zap.String("run", run.ID), zap.Error(uErr))
	}
}
