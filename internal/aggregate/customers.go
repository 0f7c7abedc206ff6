package aggregate

import (
	"math"
	"sort"
	"strings"
	"time"

	"review_dashboard/internal/domain"
)

// MinStoryReviews is the pre-filter for the loyalty/story view. Customers
// below it are left out of that list but still count everywhere else.
const MinStoryReviews = 3

const monthDays = 30

// LoyaltyScore is an additive point system; every rule is checked on its
// own, so the thresholds stack. The maximum is 100.
func LoyaltyScore(totalReviews int, positiveRatio, monthsSpan float64) int {
	score := 0
	if totalReviews >= 10 {
		score += 30
	}
	if totalReviews >= 5 {
		score += 20
	}
	if positiveRatio >= 0.8 {
		score += 25
	}
	if positiveRatio >= 0.9 {
		score += 15
	}
	if monthsSpan >= 6 {
		score += 10
	}
	return score
}

// Classify assigns exactly one type; the first matching rule wins.
func Classify(loyaltyScore int, negativeRatio float64, totalReviews int) domain.CustomerType {
	switch {
	case negativeRatio >= 0.7 || (totalReviews >= 5 && negativeRatio >= 0.5):
		return domain.CustomerBlacklist
	case loyaltyScore >= 70:
		return domain.CustomerVIP
	case loyaltyScore >= 40:
		return domain.CustomerLoyal
	default:
		return domain.CustomerNormal
	}
}

// Segment is the customer management classification, applied to every
// customer regardless of review count.
func Segment(totalReviews int, positiveRatio, negativeRatio float64) domain.CustomerType {
	switch {
	case negativeRatio >= 0.7:
		return domain.CustomerBlacklist
	case totalReviews >= 5 && positiveRatio >= 0.8:
		return domain.CustomerLoyal
	default:
		return domain.CustomerNormal
	}
}

// MonthsSpan is the distance between two dates in 30-day months. Unknown
// (zero) dates yield 0.
func MonthsSpan(first, last time.Time) float64 {
	if first.IsZero() || last.IsZero() {
		return 0
	}
	return last.Sub(first).Hours() / 24 / monthDays
}

// GroupCustomers groups reviews by exact customer_name, in first-seen
// order, and scores and classifies every group. Names are not normalized:
// "Kim" and "kim " are two customers.
func GroupCustomers(reviews []domain.Review) []domain.CustomerAggregate {
	out := make([]domain.CustomerAggregate, 0)
	idx := make(map[string]int)
	for _, r := range reviews {
		i, ok := idx[r.CustomerName]
		if !ok {
			i = len(out)
			idx[r.CustomerName] = i
			out = append(out, domain.CustomerAggregate{Name: r.CustomerName})
		}
		c := &out[i]
		c.Reviews = append(c.Reviews, r)
		c.TotalReviews++
		switch r.Sentiment {
		case domain.SentimentPositive:
			c.PositiveReviews++
		case domain.SentimentNegative:
			c.NegativeReviews++
		}
		if r.Date.IsZero() {
			continue
		}
		if c.FirstReviewDate.IsZero() || r.Date.Before(c.FirstReviewDate) {
			c.FirstReviewDate = r.Date
		}
		if c.LastReviewDate.IsZero() || r.Date.After(c.LastReviewDate) {
			c.LastReviewDate = r.Date
		}
	}

	for i := range out {
		c := &out[i]
		c.PositiveRatio = ratio(c.PositiveReviews, c.TotalReviews)
		c.NegativeRatio = ratio(c.NegativeReviews, c.TotalReviews)
		c.MonthsSpan = MonthsSpan(c.FirstReviewDate, c.LastReviewDate)
		c.LoyaltyScore = LoyaltyScore(c.TotalReviews, c.PositiveRatio, c.MonthsSpan)
		c.CustomerType = Classify(c.LoyaltyScore, c.NegativeRatio, c.TotalReviews)
		c.Segment = Segment(c.TotalReviews, c.PositiveRatio, c.NegativeRatio)
		c.TopKeywords = Top(RankKeywords(c.Reviews), CustomerKeywords)
	}
	return out
}

// EligibleCustomers returns customers with at least MinStoryReviews
// reviews, highest loyalty first.
func EligibleCustomers(all []domain.CustomerAggregate) []domain.CustomerAggregate {
	out := make([]domain.CustomerAggregate, 0, len(all))
	for _, c := range all {
		if c.TotalReviews >= MinStoryReviews {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LoyaltyScore > out[j].LoyaltyScore })
	return out
}

// FilterCustomers keeps customers whose name contains query
// (case-insensitive) and whose type matches. match picks which
// classification to compare; an empty want matches all.
func FilterCustomers(in []domain.CustomerAggregate, query string, want domain.CustomerType, match func(domain.CustomerAggregate) domain.CustomerType) []domain.CustomerAggregate {
	q := strings.ToLower(query)
	out := make([]domain.CustomerAggregate, 0, len(in))
	for _, c := range in {
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) {
			continue
		}
		if want != "" && match(c) != want {
			continue
		}
		out = append(out, c)
	}
	return out
}

// CountSegments tallies customers per management segment.
func CountSegments(in []domain.CustomerAggregate) map[domain.CustomerType]int {
	out := map[domain.CustomerType]int{
		domain.CustomerLoyal:     0,
		domain.CustomerBlacklist: 0,
		domain.CustomerNormal:    0,
	}
	for _, c := range in {
		out[c.Segment]++
	}
	return out
}

// SummarizeLoyalty tallies loyalty classifications and the rounded average
// loyalty score over in. Every type has an entry; an empty list averages 0.
func SummarizeLoyalty(in []domain.CustomerAggregate) (counts map[domain.CustomerType]int, avgLoyalty int) {
	counts = map[domain.CustomerType]int{
		domain.CustomerVIP:       0,
		domain.CustomerLoyal:     0,
		domain.CustomerBlacklist: 0,
		domain.CustomerNormal:    0,
	}
	if len(in) == 0 {
		return counts, 0
	}
	sum := 0
	for _, c := range in {
		counts[c.CustomerType]++
		sum += c.LoyaltyScore
	}
	return counts, int(math.Round(float64(sum) / float64(len(in))))
}
