package aggregate

import "review_dashboard/internal/domain"

const feedbackHighlights = 5

// FeedbackReport summarizes what customers praise (keywords of positive
// reviews) and what they complain about (keywords of negative reviews).
func FeedbackReport(reviews []domain.Review) domain.FeedbackReport {
	rep := domain.FeedbackReport{TotalReviews: len(reviews)}
	for _, r := range reviews {
		switch r.Sentiment {
		case domain.SentimentPositive:
			rep.PositiveCount++
		case domain.SentimentNegative:
			rep.NegativeCount++
		}
	}
	rep.PositiveRatio = percentOneDecimal(rep.PositiveCount, rep.TotalReviews)
	rep.NegativeRatio = percentOneDecimal(rep.NegativeCount, rep.TotalReviews)
	rep.TopKeywords = Top(RankKeywords(reviews), ChartKeywords)
	rep.TopStrengths = Top(rankWhere(reviews, isSentiment(domain.SentimentPositive)), feedbackHighlights)
	rep.TopImprovements = Top(rankWhere(reviews, isSentiment(domain.SentimentNegative)), feedbackHighlights)
	return rep
}

func isSentiment(s domain.Sentiment) func(domain.Review) bool {
	return func(r domain.Review) bool { return r.Sentiment == s }
}
