// Package aggregate derives the dashboard views from raw review records.
// Every function here is pure: no I/O, no retained state, and malformed or
// missing fields degrade to zero values instead of errors.
package aggregate

import (
	"math"

	"review_dashboard/internal/domain"
)

// ComputeStats counts total/replied/pending and per-sentiment reviews.
// Reviews without a sentiment count toward the total only.
func ComputeStats(reviews []domain.Review) domain.Stats {
	s := domain.Stats{TotalReviews: len(reviews)}
	for _, r := range reviews {
		if r.HasReply() {
			s.RepliedReviews++
		} else {
			s.PendingReviews++
		}
		switch r.Sentiment {
		case domain.SentimentPositive:
			s.PositiveReviews++
		case domain.SentimentNegative:
			s.NegativeReviews++
		case domain.SentimentNeutral:
			s.NeutralReviews++
		}
	}
	return s
}

// Percent returns count/total*100 rounded to the nearest integer, and 0 when
// total is 0.
func Percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

func Percentages(s domain.Stats) domain.StatsPercentages {
	t := s.TotalReviews
	return domain.StatsPercentages{
		Replied:  Percent(s.RepliedReviews, t),
		Pending:  Percent(s.PendingReviews, t),
		Positive: Percent(s.PositiveReviews, t),
		Negative: Percent(s.NegativeReviews, t),
		Neutral:  Percent(s.NeutralReviews, t),
	}
}

func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// percentOneDecimal is a percentage rounded to one decimal place.
func percentOneDecimal(n, total int) float64 {
	return math.Round(ratio(n, total)*1000) / 10
}
