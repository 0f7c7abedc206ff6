// Package poller runs fetch cycles on a fixed interval or on demand and
// keeps the last {data, loading, error} state for readers.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"review_dashboard/internal/adapters/observability"
)

// GenericError is the only error text readers ever see. The cause is logged.
const GenericError = "could not load data; check that the backend server is running"

const (
	DashboardInterval = 30 * time.Second
	LightInterval     = 5 * time.Second
)

// Fetcher is one zero-argument load. Key names its slot in State.Data.
type Fetcher struct {
	Key string
	Fn  func(ctx context.Context) (any, error)
}

func Func(key string, fn func(ctx context.Context) (any, error)) Fetcher {
	return Fetcher{Key: key, Fn: fn}
}

type State struct {
	Data      map[string]any `json:"data"`
	Loading   bool           `json:"loading"`
	Err       string         `json:"error,omitempty"`
	CycleID   string         `json:"cycle_id,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Option func(*Loader)

// WithTimeout bounds one cycle, all fetchers included.
func WithTimeout(d time.Duration) Option { return func(l *Loader) { l.timeout = d } }

func WithLogger(lg zerolog.Logger) Option { return func(l *Loader) { l.log = lg } }

type Loader struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fetchers []Fetcher
	log      zerolog.Logger

	mu    sync.RWMutex
	state State
	subs  []func(context.Context, State)
	base  context.Context // set while started; cancelled by Stop

	sf singleflight.Group

	// lifecycle; guarded by life
	life   sync.Mutex
	sched  *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(name string, interval time.Duration, fetchers []Fetcher, opts ...Option) *Loader {
	for i := range fetchers {
		if fetchers[i].Key == "" {
			fetchers[i].Key = fmt.Sprintf("data%d", i)
		}
	}
	l := &Loader{
		name:     name,
		interval: interval,
		fetchers: fetchers,
		log:      log.Logger,
		state:    State{Loading: true},
	}
	for _, o := range opts {
		o(l)
	}
	l.log = l.log.With().Str("loader", name).Logger()
	return l
}

// OnUpdate registers fn to run after every completed cycle, success or not.
// Register before Start.
func (l *Loader) OnUpdate(fn func(ctx context.Context, st State)) {
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

// State returns a copy of the current state.
func (l *Loader) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Start runs a first cycle and schedules one every interval. Calling Start
// on a running loader does nothing, so there is never more than one
// schedule per loader.
func (l *Loader) Start(ctx context.Context) {
	l.life.Lock()
	defer l.life.Unlock()
	if l.sched != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	cl := cronLogger{l.log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	c.Schedule(cron.Every(l.interval), cron.FuncJob(func() { l.cycle(runCtx) }))
	l.mu.Lock()
	l.base = runCtx
	l.mu.Unlock()
	c.Start()
	l.sched, l.cancel = c, cancel

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.cycle(runCtx)
	}()
	l.log.Info().Dur("interval", l.interval).Msg("loader started")
}

// Stop cancels in-flight fetches and removes the schedule. It waits for the
// running cycle, if any, to return.
func (l *Loader) Stop() {
	l.life.Lock()
	defer l.life.Unlock()
	if l.sched == nil {
		return
	}
	l.cancel()
	l.mu.Lock()
	l.base = nil
	l.mu.Unlock()
	<-l.sched.Stop().Done()
	l.wg.Wait()
	l.sched, l.cancel = nil, nil
	l.log.Info().Msg("loader stopped")
}

// Scheduled reports the number of active schedules: 0 or 1.
func (l *Loader) Scheduled() int {
	l.life.Lock()
	defer l.life.Unlock()
	if l.sched == nil {
		return 0
	}
	return len(l.sched.Entries())
}

// Refetch runs one cycle and returns the resulting state. Calls that arrive
// while a cycle is in flight join it instead of starting another.
//
// The cycle does not run under ctx: it belongs to the loader, so a caller
// that goes away only stops waiting. In that case Refetch returns the
// current state, which is still loading.
func (l *Loader) Refetch(ctx context.Context) State {
	cycleCtx := l.detached(ctx)
	ch := l.sf.DoChan("cycle", func() (any, error) {
		return l.run(cycleCtx), nil
	})
	select {
	case res := <-ch:
		return res.Val.(State)
	case <-ctx.Done():
		return l.State()
	}
}

// cycle runs or joins a cycle and waits for it.
func (l *Loader) cycle(ctx context.Context) State {
	v, _, _ := l.sf.Do("cycle", func() (any, error) {
		return l.run(ctx), nil
	})
	return v.(State)
}

// detached is the context a caller-triggered cycle runs under: the
// scheduler's while started, otherwise ctx without its cancellation.
func (l *Loader) detached(ctx context.Context) context.Context {
	l.mu.RLock()
	base := l.base
	l.mu.RUnlock()
	if base != nil {
		return base
	}
	return context.WithoutCancel(ctx)
}

func (l *Loader) run(ctx context.Context) State {
	id := uuid.NewString()
	start := time.Now()

	l.mu.Lock()
	l.state.Loading = true
	l.state.Err = ""
	l.mu.Unlock()

	cctx, cancel := ctx, context.CancelFunc(func() {})
	if l.timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, l.timeout)
	}
	defer cancel()

	results := make([]any, len(l.fetchers))
	g, gctx := errgroup.WithContext(cctx)
	for i, f := range l.fetchers {
		g.Go(func() error {
			v, err := f.Fn(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Key, err)
			}
			results[i] = v
			return nil
		})
	}
	err := g.Wait()

	next := State{CycleID: id, UpdatedAt: time.Now()}
	if err != nil {
		// all-or-nothing: no partial data from the fetchers that did succeed
		next.Err = GenericError
		l.log.Error().Err(err).Str("cycle", id).Dur("duration", time.Since(start)).Msg("load cycle failed")
		observability.ObservePoll(l.name, "error", time.Since(start))
	} else {
		next.Data = make(map[string]any, len(results))
		for i, f := range l.fetchers {
			next.Data[f.Key] = results[i]
		}
		l.log.Debug().Str("cycle", id).Dur("duration", time.Since(start)).Msg("load cycle ok")
		observability.ObservePoll(l.name, "ok", time.Since(start))
	}

	l.mu.Lock()
	l.state = next
	subs := append([]func(context.Context, State){}, l.subs...)
	l.mu.Unlock()

	for _, fn := range subs {
		fn(ctx, next)
	}
	return next
}

// cronLogger routes the scheduler's own messages to zerolog.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug().Fields(kv).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error().Err(err).Fields(kv).Msg(msg)
}
