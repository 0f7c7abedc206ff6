package aggregate

import (
	"sort"
	"strings"

	"review_dashboard/internal/domain"
)

const (
	DashboardKeywords = 5
	ChartKeywords     = 10
	CustomerKeywords  = 5
)

// RankKeywords counts every keyword across all reviews and sorts the result
// descending by count. Ties keep first-seen order, so the ranking is stable
// for a given input. Use Top to slice it.
func RankKeywords(reviews []domain.Review) []domain.KeywordCount {
	return rankWhere(reviews, nil)
}

// Top returns the first n entries of a ranking.
func Top(ranking []domain.KeywordCount, n int) []domain.KeywordCount {
	if n < 0 || len(ranking) <= n {
		return ranking
	}
	return ranking[:n]
}

func rankWhere(reviews []domain.Review, keep func(domain.Review) bool) []domain.KeywordCount {
	out := make([]domain.KeywordCount, 0)
	idx := make(map[string]int)
	for _, r := range reviews {
		if keep != nil && !keep(r) {
			continue
		}
		for _, kw := range r.Keywords {
			if i, ok := idx[kw]; ok {
				out[i].Count++
				continue
			}
			idx[kw] = len(out)
			out = append(out, domain.KeywordCount{Keyword: kw, Count: 1})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// AnalyzeKeywords builds per-keyword sentiment breakdowns. A review that is
// neither positive nor negative counts its keywords as neutral.
func AnalyzeKeywords(reviews []domain.Review) domain.KeywordAnalysis {
	aggs := make([]domain.KeywordAggregate, 0)
	idx := make(map[string]int)
	for _, r := range reviews {
		for _, kw := range r.Keywords {
			i, ok := idx[kw]
			if !ok {
				i = len(aggs)
				idx[kw] = i
				aggs = append(aggs, domain.KeywordAggregate{Keyword: kw})
			}
			a := &aggs[i]
			a.Count++
			switch r.Sentiment {
			case domain.SentimentPositive:
				a.Positive++
			case domain.SentimentNegative:
				a.Negative++
			default:
				a.Neutral++
			}
		}
	}

	out := domain.KeywordAnalysis{TotalKeywords: len(aggs)}
	for i := range aggs {
		a := &aggs[i]
		a.PositiveRatio = ratio(a.Positive, a.Count)
		a.NegativeRatio = ratio(a.Negative, a.Count)
		a.NeutralRatio = ratio(a.Neutral, a.Count)
		a.DominantSentiment = dominant(a.Positive, a.Negative, a.Neutral)
		out.TotalCount += a.Count
		switch a.DominantSentiment {
		case domain.SentimentPositive:
			out.Distribution.Positive++
		case domain.SentimentNegative:
			out.Distribution.Negative++
		default:
			out.Distribution.Neutral++
		}
	}
	sort.SliceStable(aggs, func(i, j int) bool { return aggs[i].Count > aggs[j].Count })
	out.Keywords = aggs
	return out
}

// dominant is a strict majority vote; any tie resolves to neutral.
func dominant(pos, neg, neu int) domain.Sentiment {
	switch {
	case pos > neg && pos > neu:
		return domain.SentimentPositive
	case neg > pos && neg > neu:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// FilterKeywords keeps keywords containing query (case-insensitive) whose
// dominant sentiment matches. An unset sentiment matches all.
func FilterKeywords(in []domain.KeywordAggregate, query string, s domain.Sentiment) []domain.KeywordAggregate {
	q := strings.ToLower(query)
	out := make([]domain.KeywordAggregate, 0, len(in))
	for _, k := range in {
		if q != "" && !strings.Contains(strings.ToLower(k.Keyword), q) {
			continue
		}
		if s != domain.SentimentUnset && k.DominantSentiment != s {
			continue
		}
		out = append(out, k)
	}
	return out
}
