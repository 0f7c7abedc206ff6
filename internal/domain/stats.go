package domain

import "time"

// Stats mirrors the backend /stats payload and the client-side rollup.
type Stats struct {
	TotalReviews    int `json:"total_reviews"`
	RepliedReviews  int `json:"replied_reviews"`
	PendingReviews  int `json:"pending_reviews"`
	PositiveReviews int `json:"positive_reviews"`
	NegativeReviews int `json:"negative_reviews"`
	NeutralReviews  int `json:"neutral_reviews"`
}

// StatsPercentages are integer percentages of Stats.TotalReviews.
type StatsPercentages struct {
	Replied  int `json:"replied"`
	Pending  int `json:"pending"`
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

type StatsRecord struct {
	CycleID string    `json:"cycle_id"`
	TakenAt time.Time `json:"taken_at"`
	Stats   Stats     `json:"stats"`
}

type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

type TrendRow struct {
	Date     string `json:"date"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
}

type KeywordAggregate struct {
	Keyword           string    `json:"keyword"`
	Count             int       `json:"count"`
	Positive          int       `json:"positive"`
	Negative          int       `json:"negative"`
	Neutral           int       `json:"neutral"`
	PositiveRatio     float64   `json:"positiveRatio"`
	NegativeRatio     float64   `json:"negativeRatio"`
	NeutralRatio      float64   `json:"neutralRatio"`
	DominantSentiment Sentiment `json:"dominantSentiment"`
}

type KeywordAnalysis struct {
	TotalKeywords int                `json:"totalKeywords"`
	TotalCount    int                `json:"totalCount"`
	Keywords      []KeywordAggregate `json:"keywords"`
	Distribution  SentimentCounts    `json:"sentimentDistribution"`
}

type BucketCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type ActivityReport struct {
	TotalReviews int             `json:"totalReviews"`
	PeakHours    []BucketCount   `json:"peakHours"`
	PeakDays     []BucketCount   `json:"peakDays"`
	AvgLengths   SentimentCounts `json:"avgLengths"`
	Distribution SentimentCounts `json:"sentimentDistribution"`
}

type FeedbackReport struct {
	TotalReviews    int            `json:"totalReviews"`
	PositiveCount   int            `json:"positiveCount"`
	NegativeCount   int            `json:"negativeCount"`
	PositiveRatio   float64        `json:"positiveRatio"`
	NegativeRatio   float64        `json:"negativeRatio"`
	TopKeywords     []KeywordCount `json:"topKeywords"`
	TopStrengths    []KeywordCount `json:"topStrengths"`
	TopImprovements []KeywordCount `json:"topImprovements"`
}
