package app

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/aggregate"
	"review_dashboard/internal/domain"
	"review_dashboard/internal/poller"
)

// ErrUnavailable is returned by every view while there is no snapshot,
// either because the first cycle has not finished or because the last one
// failed. Its text is the message shown to users.
var ErrUnavailable = errors.New(poller.GenericError)

const (
	LatestReviews       = 6
	DefaultRecentLimit  = 200
	DefaultTrendDays    = 7
	DefaultMaxReplies   = 10
	DefaultLogLimit     = 50
	DefaultCycleTimeout = 30 * time.Second
)

type DashboardOptions struct {
	RecentLimit int
	TrendDays   int
	Refresh     time.Duration
	PendingPoll time.Duration
	// Timeout bounds the fetches of one load cycle. StoryTimeout bounds
	// story generation after them; customers not done by then get the
	// fallback story.
	Timeout      time.Duration
	StoryTimeout time.Duration
	Location     *time.Location
	Weekdays     [7]string
}

func (o *DashboardOptions) defaults() {
	if o.RecentLimit <= 0 {
		o.RecentLimit = DefaultRecentLimit
	}
	if o.TrendDays <= 0 {
		o.TrendDays = DefaultTrendDays
	}
	if o.Refresh <= 0 {
		o.Refresh = poller.DashboardInterval
	}
	if o.PendingPoll <= 0 {
		o.PendingPoll = poller.LightInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultCycleTimeout
	}
	if o.StoryTimeout <= 0 {
		o.StoryTimeout = o.Timeout
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Weekdays[0] == "" {
		o.Weekdays = aggregate.WeekdaysEN
	}
}

// DashboardService turns loader cycles into snapshots and serves views
// off the current one.
type DashboardService struct {
	api     domain.ReviewAPI
	stories *StoryService
	archive domain.StatsArchive
	opts    DashboardOptions

	main    *poller.Loader
	pending *poller.Loader
	snap    atomic.Pointer[domain.Snapshot]
}

// NewDashboardService wires the two loaders. stories and archive may be nil.
func NewDashboardService(api domain.ReviewAPI, stories *StoryService, archive domain.StatsArchive, opts DashboardOptions) *DashboardService {
	opts.defaults()
	if stories == nil {
		stories = NewStoryService(nil, nil, 0, 0)
	}
	s := &DashboardService{api: api, stories: stories, archive: archive, opts: opts}

	popts := []poller.Option{poller.WithTimeout(opts.Timeout)}
	s.main = poller.New("dashboard", opts.Refresh, []poller.Fetcher{
		poller.Func("reviews", func(ctx context.Context) (any, error) {
			return api.GetRecentReviews(ctx, opts.RecentLimit, 0)
		}),
		poller.Func("stats", func(ctx context.Context) (any, error) {
			return api.GetStats(ctx)
		}),
		poller.Func("trend", func(ctx context.Context) (any, error) {
			return api.GetSentimentTrend(ctx, opts.TrendDays)
		}),
	}, popts...)
	s.main.OnUpdate(s.onCycle)

	s.pending = poller.New("pending", opts.PendingPoll, []poller.Fetcher{
		poller.Func("pending", func(ctx context.Context) (any, error) {
			return api.GetPendingReviews(ctx)
		}),
	}, popts...)
	return s
}

func (s *DashboardService) Start(ctx context.Context) {
	s.main.Start(ctx)
	s.pending.Start(ctx)
}

func (s *DashboardService) Stop() {
	s.pending.Stop()
	s.main.Stop()
}

// Refresh runs a dashboard cycle now, joining one already in flight. If ctx
// ends first the cycle carries on for everyone else and ctx.Err() is
// returned.
func (s *DashboardService) Refresh(ctx context.Context) (poller.State, error) {
	st := s.main.Refetch(ctx)
	if err := ctx.Err(); err != nil {
		return st, err
	}
	if st.Err != "" {
		return st, ErrUnavailable
	}
	return st, nil
}

// State is the dashboard loader state without its raw data.
func (s *DashboardService) State() poller.State {
	st := s.main.State()
	st.Data = nil
	return st
}

// Snapshot returns the current snapshot or ErrUnavailable.
func (s *DashboardService) Snapshot() (*domain.Snapshot, error) {
	if sn := s.snap.Load(); sn != nil {
		return sn, nil
	}
	return nil, ErrUnavailable
}

func (s *DashboardService) onCycle(ctx context.Context, st poller.State) {
	if st.Err != "" {
		s.snap.Store(nil)
		return
	}
	raw, _ := st.Data["reviews"].([]map[string]any)
	stats, _ := st.Data["stats"].(domain.Stats)
	trend, _ := st.Data["trend"].(map[string]map[string]int)

	sn := BuildSnapshot(st.CycleID, st.UpdatedAt, mapReviews(raw, s.opts.Location), stats, trend, s.opts.Location, s.opts.Weekdays)
	sctx, cancel := context.WithTimeout(ctx, s.opts.StoryTimeout)
	sn.Stories = s.stories.Attach(sctx, aggregate.EligibleCustomers(sn.Customers))
	cancel()
	s.snap.Store(sn)

	if s.archive != nil {
		if err := s.archive.RecordStats(ctx, st.CycleID, st.UpdatedAt, stats); err != nil {
			log.Warn().Err(err).Str("cycle", st.CycleID).Msg("archive stats failed")
		}
	}
}

// BuildSnapshot derives every view except stories from one cycle's data.
func BuildSnapshot(id string, takenAt time.Time, reviews []domain.Review, stats domain.Stats, trend map[string]map[string]int, loc *time.Location, weekdays [7]string) *domain.Snapshot {
	return &domain.Snapshot{
		ID:          id,
		TakenAt:     takenAt,
		Reviews:     reviews,
		Stats:       stats,
		Percentages: aggregate.Percentages(stats),
		ReviewStats: aggregate.ComputeStats(reviews),
		Trend:       aggregate.SentimentTrend(trend),
		Ranking:     aggregate.RankKeywords(reviews),
		Keywords:    aggregate.AnalyzeKeywords(reviews),
		Customers:   aggregate.GroupCustomers(reviews),
		Stories:     []domain.CustomerAggregate{},
		Feedback:    aggregate.FeedbackReport(reviews),
		Activity:    aggregate.AnalyzeActivity(reviews, loc, weekdays),
	}
}

/********** views **********/

type DashboardView struct {
	SnapshotID    string                  `json:"snapshot_id"`
	UpdatedAt     time.Time               `json:"updated_at"`
	Stats         domain.Stats            `json:"stats"`
	Percentages   domain.StatsPercentages `json:"percentages"`
	TopKeywords   []domain.KeywordCount   `json:"top_keywords"`
	Trend         []domain.TrendRow       `json:"trend"`
	LatestReviews []domain.Review         `json:"latest_reviews"`
}

func (s *DashboardService) Dashboard() (DashboardView, error) {
	sn, err := s.Snapshot()
	if err != nil {
		return DashboardView{}, err
	}
	latest := sn.Reviews
	if len(latest) > LatestReviews {
		latest = latest[:LatestReviews]
	}
	return DashboardView{
		SnapshotID:    sn.ID,
		UpdatedAt:     sn.TakenAt,
		Stats:         sn.Stats,
		Percentages:   sn.Percentages,
		TopKeywords:   aggregate.Top(sn.Ranking, aggregate.DashboardKeywords),
		Trend:         sn.Trend,
		LatestReviews: latest,
	}, nil
}

func (s *DashboardService) Reviews() ([]domain.Review, error) {
	sn, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return sn.Reviews, nil
}

func (s *DashboardService) Trend() ([]domain.TrendRow, error) {
	sn, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return sn.Trend, nil
}

type PendingView struct {
	Count     int             `json:"count"`
	Reviews   []domain.Review `json:"reviews"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Pending is served from the fast poller and does not depend on the
// dashboard snapshot.
func (s *DashboardService) Pending() (PendingView, error) {
	st := s.pending.State()
	if st.Err != "" || st.Data == nil {
		return PendingView{}, ErrUnavailable
	}
	raw, _ := st.Data["pending"].([]map[string]any)
	rs := mapReviews(raw, s.opts.Location)
	return PendingView{Count: len(rs), Reviews: rs, UpdatedAt: st.UpdatedAt}, nil
}

// Keywords filters the keyword analysis. limit <= 0 keeps every match; the
// totals always describe the unfiltered analysis.
func (s *DashboardService) Keywords(query string, sentiment domain.Sentiment, limit int) (domain.KeywordAnalysis, error) {
	sn, err := s.Snapshot()
	if err != nil {
		return domain.KeywordAnalysis{}, err
	}
	out := sn.Keywords
	out.Keywords = aggregate.FilterKeywords(sn.Keywords.Keywords, query, sentiment)
	if limit > 0 && len(out.Keywords) > limit {
		out.Keywords = out.Keywords[:limit]
	}
	return out, nil
}

type CustomersView struct {
	Total     int                         `json:"total"`
	Counts    map[domain.CustomerType]int `json:"counts"`
	Customers []domain.CustomerAggregate  `json:"customers"`
}

// Customers is the management view over all customers, filtered by name and
// management segment.
func (s *DashboardService) Customers(query string, segment domain.CustomerType) (CustomersView, error) {
	sn, err := s.Snapshot()
	if err != nil {
		return CustomersView{}, err
	}
	return CustomersView{
		Total:     len(sn.Customers),
		Counts:    aggregate.CountSegments(sn.Customers),
		Customers: aggregate.FilterCustomers(sn.Customers, strings.TrimSpace(query), segment, bySegment),
	}, nil
}

type StoriesView struct {
	Total      int                         `json:"total"`
	Counts     map[domain.CustomerType]int `json:"counts"`
	AvgLoyalty int                         `json:"avg_loyalty"`
	Customers  []domain.CustomerAggregate  `json:"customers"`
}

// Stories is the loyalty view: eligible customers with stories, optionally
// restricted to one loyalty classification. The summary covers every
// eligible customer regardless of the filter.
func (s *DashboardService) Stories(kind domain.CustomerType) (StoriesView, error) {
	sn, err := s.Snapshot()
	if err != nil {
		return StoriesView{}, err
	}
	counts, avg := aggregate.SummarizeLoyalty(sn.Stories)
	return StoriesView{
		Total:      len(sn.Stories),
		Counts:     counts,
		AvgLoyalty: avg,
		Customers:  aggregate.FilterCustomers(sn.Stories, "", kind, byLoyalty),
	}, nil
}

type AnalysisView struct {
	Feedback domain.FeedbackReport `json:"feedback"`
	Activity domain.ActivityReport `json:"activity"`
}

func (s *DashboardService) Analysis() (AnalysisView, error) {
	sn, err := s.Snapshot()
	if err != nil {
		return AnalysisView{}, err
	}
	return AnalysisView{Feedback: sn.Feedback, Activity: sn.Activity}, nil
}

func bySegment(c domain.CustomerAggregate) domain.CustomerType { return c.Segment }
func byLoyalty(c domain.CustomerAggregate) domain.CustomerType { return c.CustomerType }

// ErrNoArchive means stats history is not configured.
var ErrNoArchive = errors.New("stats history is not enabled")

// History lists archived stats rollups, newest first.
func (s *DashboardService) History(ctx context.Context, limit int) ([]domain.StatsRecord, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return s.archive.RecentStats(ctx, limit)
}
