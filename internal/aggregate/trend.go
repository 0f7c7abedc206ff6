package aggregate

import (
	"sort"

	"review_dashboard/internal/domain"
)

// SentimentTrend flattens the backend's pre-bucketed {date: {label: n}}
// series into rows sorted by date ascending. Missing labels count as 0.
func SentimentTrend(buckets map[string]map[string]int) []domain.TrendRow {
	dates := make([]string, 0, len(buckets))
	for d := range buckets {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	rows := make([]domain.TrendRow, 0, len(dates))
	for _, d := range dates {
		row := domain.TrendRow{Date: d}
		for label, n := range buckets[d] {
			switch domain.ParseSentiment(label) {
			case domain.SentimentPositive:
				row.Positive += n
			case domain.SentimentNegative:
				row.Negative += n
			case domain.SentimentNeutral:
				row.Neutral += n
			}
		}
		rows = append(rows, row)
	}
	return rows
}
