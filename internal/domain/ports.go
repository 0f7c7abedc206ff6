package domain

import (
	"context"
	"time"
)

// ReviewAPI is the review backend. Review payloads come back raw and are
// normalized by the app layer.
type ReviewAPI interface {
	// Read paths
	GetRecentReviews(ctx context.Context, limit, offset int) ([]map[string]any, error)
	GetPendingReviews(ctx context.Context) ([]map[string]any, error)
	GetReview(ctx context.Context, id string) (map[string]any, error)
	GetStats(ctx context.Context) (Stats, error)
	GetSentimentTrend(ctx context.Context, days int) (map[string]map[string]int, error)
	GetRecentLogs(ctx context.Context, limit int) (any, error)

	// Job triggers
	TriggerScrape(ctx context.Context) (map[string]any, error)
	TriggerReplyGeneration(ctx context.Context, maxCount int) (map[string]any, error)
	RegenerateReply(ctx context.Context, id string) (map[string]any, error)
}

type StoryGenerator interface {
	Generate(ctx context.Context, req StoryRequest) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// StatsArchive keeps an append-only history of stats rollups. It is never
// read back into aggregation.
type StatsArchive interface {
	RecordStats(ctx context.Context, cycleID string, takenAt time.Time, s Stats) error
	RecentStats(ctx context.Context, limit int) ([]StatsRecord, error)
}
