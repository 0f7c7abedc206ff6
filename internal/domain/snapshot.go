package domain

import "time"

// Snapshot is one immutable set of derived views. A new one is built per
// successful refresh cycle and swapped in whole; it is never patched.
type Snapshot struct {
	ID          string              `json:"id"`
	TakenAt     time.Time           `json:"taken_at"`
	Reviews     []Review            `json:"reviews"`
	Stats       Stats               `json:"stats"`
	Percentages StatsPercentages    `json:"percentages"`
	ReviewStats Stats               `json:"review_stats"`
	Trend       []TrendRow          `json:"trend"`
	Ranking     []KeywordCount      `json:"ranking"`
	Keywords    KeywordAnalysis     `json:"keywords"`
	Customers   []CustomerAggregate `json:"customers"`
	Stories     []CustomerAggregate `json:"stories"`
	Feedback    FeedbackReport      `json:"feedback"`
	Activity    ActivityReport      `json:"activity"`
}
