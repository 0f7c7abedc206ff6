package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"review_dashboard/internal/domain"
)

// ---- fakes ----

type fakeAPI struct {
	mu      sync.Mutex
	recent  []map[string]any
	pending []map[string]any
	review  map[string]any
	stats   domain.Stats
	trend   map[string]map[string]int
	logs    any
	failOn  map[string]error
	delay   time.Duration // applied to GetRecentReviews, honoring ctx

	recentCalls atomic.Int32
	lastLimit   int
	lastDays    int
	lastMax     int
	triggered   []string
}

func (f *fakeAPI) fail(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failOn[op]
}

func (f *fakeAPI) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == nil {
		f.failOn = map[string]error{}
	}
	f.failOn[op] = err
}

func (f *fakeAPI) GetRecentReviews(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	f.recentCalls.Add(1)
	f.mu.Lock()
	f.lastLimit = limit
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail("recent"); err != nil {
		return nil, err
	}
	return f.recent, nil
}
func (f *fakeAPI) GetPendingReviews(ctx context.Context) ([]map[string]any, error) {
	if err := f.fail("pending"); err != nil {
		return nil, err
	}
	return f.pending, nil
}
func (f *fakeAPI) GetReview(ctx context.Context, id string) (map[string]any, error) {
	if err := f.fail("review"); err != nil {
		return nil, err
	}
	return f.review, nil
}
func (f *fakeAPI) GetStats(ctx context.Context) (domain.Stats, error) {
	if err := f.fail("stats"); err != nil {
		return domain.Stats{}, err
	}
	return f.stats, nil
}
func (f *fakeAPI) GetSentimentTrend(ctx context.Context, days int) (map[string]map[string]int, error) {
	f.mu.Lock()
	f.lastDays = days
	f.mu.Unlock()
	if err := f.fail("trend"); err != nil {
		return nil, err
	}
	return f.trend, nil
}
func (f *fakeAPI) GetRecentLogs(ctx context.Context, limit int) (any, error) {
	if err := f.fail("logs"); err != nil {
		return nil, err
	}
	return f.logs, nil
}
func (f *fakeAPI) TriggerScrape(ctx context.Context) (map[string]any, error) {
	return f.trigger("scrape")
}
func (f *fakeAPI) TriggerReplyGeneration(ctx context.Context, maxCount int) (map[string]any, error) {
	f.mu.Lock()
	f.lastMax = maxCount
	f.mu.Unlock()
	return f.trigger("generate")
}
func (f *fakeAPI) RegenerateReply(ctx context.Context, id string) (map[string]any, error) {
	return f.trigger("regenerate:" + id)
}
func (f *fakeAPI) trigger(name string) (map[string]any, error) {
	if err := f.fail(name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.triggered = append(f.triggered, name)
	f.mu.Unlock()
	return map[string]any{"status": "started"}, nil
}

// fakeCache round-trips through JSON like the Redis adapter.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	sets  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	c.sets++
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

type fakeGen struct {
	fn       func(domain.StoryRequest) (string, error)
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (g *fakeGen) Generate(ctx context.Context, req domain.StoryRequest) (string, error) {
	g.calls.Add(1)
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.fn == nil {
		return "story of " + req.Name, nil
	}
	return g.fn(req)
}

type fakeArchive struct {
	mu      sync.Mutex
	records []domain.StatsRecord
	err     error
}

func (a *fakeArchive) RecordStats(ctx context.Context, cycleID string, takenAt time.Time, s domain.Stats) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.records = append(a.records, domain.StatsRecord{CycleID: cycleID, TakenAt: takenAt, Stats: s})
	return nil
}
func (a *fakeArchive) RecentStats(ctx context.Context, limit int) ([]domain.StatsRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.StatsRecord, 0, len(a.records))
	for i := len(a.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.records[i])
	}
	return out, nil
}

var errBackend = errors.New("backend down")

// raw builds a backend review payload the way encoding/json decodes it.
func raw(id float64, name, sentiment, date string, keywords ...string) map[string]any {
	kws := make([]any, len(keywords))
	for i, k := range keywords {
		kws[i] = k
	}
	return map[string]any{
		"id":            id,
		"customer_name": name,
		"review_text":   "review by " + name,
		"review_date":   date,
		"sentiment":     sentiment,
		"keywords":      kws,
		"reply_posted":  false,
	}
}
