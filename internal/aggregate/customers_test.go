package aggregate_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_dashboard/internal/aggregate"
	"review_dashboard/internal/domain"
)

func repeat(name string, s domain.Sentiment, n int, start time.Time, step time.Duration) []domain.Review {
	out := make([]domain.Review, n)
	for i := range out {
		out[i] = domain.Review{
			ID:           fmt.Sprintf("%s-%s-%d", name, s, i),
			CustomerName: name,
			Sentiment:    s,
			Date:         start.Add(time.Duration(i) * step),
		}
	}
	return out
}

func byName(cs []domain.CustomerAggregate, name string) domain.CustomerAggregate {
	for _, c := range cs {
		if c.Name == name {
			return c
		}
	}
	return domain.CustomerAggregate{}
}

func TestTenPositiveReviews_IsVIP(t *testing.T) {
	start := at("2024-01-01T10:00:00Z")

	// all on one day: 30 + 20 + 25 + 15
	same := aggregate.GroupCustomers(repeat("A", domain.SentimentPositive, 10, start, time.Hour))
	require.Len(t, same, 1)
	a := same[0]
	assert.Equal(t, 10, a.TotalReviews)
	assert.Equal(t, 1.0, a.PositiveRatio)
	assert.Equal(t, 90, a.LoyaltyScore)
	assert.Equal(t, domain.CustomerVIP, a.CustomerType)

	// spread over ~7 months picks up the tenure bonus too
	spread := aggregate.GroupCustomers(repeat("A", domain.SentimentPositive, 10, start, 24*24*time.Hour))
	assert.Equal(t, 100, spread[0].LoyaltyScore)
	assert.Equal(t, domain.CustomerVIP, spread[0].CustomerType)
}

func TestMostlyNegative_IsBlacklisted(t *testing.T) {
	start := at("2024-01-01T10:00:00Z")
	reviews := append(
		repeat("B", domain.SentimentNegative, 4, start, time.Hour),
		repeat("B", domain.SentimentPositive, 1, start, time.Hour)...,
	)
	cs := aggregate.GroupCustomers(reviews)
	require.Len(t, cs, 1)
	b := cs[0]
	assert.Equal(t, 0.8, b.NegativeRatio)
	assert.Equal(t, domain.CustomerBlacklist, b.CustomerType)
	assert.Equal(t, domain.CustomerBlacklist, b.Segment)
}

func TestLoyaltyScore_Stacking(t *testing.T) {
	cases := []struct {
		total  int
		pos    float64
		months float64
		want   int
	}{
		{0, 0, 0, 0},
		{4, 0.79, 5.9, 0},
		{5, 0, 0, 20},
		{10, 0, 0, 50},
		{3, 0.8, 0, 25},
		{3, 0.9, 0, 40},
		{3, 0, 6, 10},
		{12, 1, 12, 100},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, aggregate.LoyaltyScore(c.total, c.pos, c.months), "%+v", c)
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	cases := []struct {
		score int
		neg   float64
		total int
		want  domain.CustomerType
	}{
		{100, 0.7, 3, domain.CustomerBlacklist},
		{90, 0.5, 5, domain.CustomerBlacklist},
		{90, 0.5, 4, domain.CustomerVIP},
		{70, 0, 3, domain.CustomerVIP},
		{69, 0, 3, domain.CustomerLoyal},
		{40, 0.2, 10, domain.CustomerLoyal},
		{39, 0.49, 10, domain.CustomerNormal},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, aggregate.Classify(c.score, c.neg, c.total), "%+v", c)
	}
}

func TestClassify_TotalAndExclusive(t *testing.T) {
	valid := map[domain.CustomerType]bool{
		domain.CustomerBlacklist: true,
		domain.CustomerVIP:       true,
		domain.CustomerLoyal:     true,
		domain.CustomerNormal:    true,
	}
	for total := 3; total <= 12; total++ {
		for neg := 0; neg <= total; neg++ {
			for pos := 0; pos+neg <= total; pos++ {
				pr := float64(pos) / float64(total)
				nr := float64(neg) / float64(total)
				score := aggregate.LoyaltyScore(total, pr, 0)
				got := aggregate.Classify(score, nr, total)
				assert.True(t, valid[got], "unexpected type %q", got)
			}
		}
	}
}

func TestLoyaltyScore_Monotonic(t *testing.T) {
	start := at("2024-01-01T10:00:00Z")
	score := func(rs []domain.Review) int {
		cs := aggregate.GroupCustomers(rs)
		if len(cs) == 0 {
			return 0
		}
		return cs[0].LoyaltyScore
	}

	var reviews []domain.Review
	prev := 0
	for i := 0; i < 15; i++ {
		s := domain.SentimentNegative
		if i%3 != 0 {
			s = domain.SentimentPositive
		}
		reviews = append(reviews, domain.Review{CustomerName: "M", Sentiment: s, Date: start.Add(time.Duration(i) * 20 * 24 * time.Hour)})

		// adding a positive review never lowers the score
		withPositive := append(append([]domain.Review(nil), reviews...),
			domain.Review{CustomerName: "M", Sentiment: domain.SentimentPositive, Date: start})
		assert.GreaterOrEqual(t, score(withPositive), score(reviews))

		// turning a positive review negative never raises it
		for j := range reviews {
			if reviews[j].Sentiment != domain.SentimentPositive {
				continue
			}
			swapped := append([]domain.Review(nil), reviews...)
			swapped[j].Sentiment = domain.SentimentNegative
			assert.LessOrEqual(t, score(swapped), score(reviews))
		}
		prev = score(reviews)
	}
	assert.LessOrEqual(t, prev, 100)
}

func TestGroupCustomers_ExactNameMatch(t *testing.T) {
	reviews := []domain.Review{
		{CustomerName: "Kim", Sentiment: domain.SentimentPositive, Date: at("2024-03-01T00:00:00Z"), Keywords: []string{"taste"}},
		{CustomerName: "kim", Sentiment: domain.SentimentNegative},
		{CustomerName: "Kim ", Sentiment: domain.SentimentNeutral},
		{CustomerName: "Kim", Sentiment: domain.SentimentNeutral, Date: at("2024-01-01T00:00:00Z"), Keywords: []string{"price", "taste"}},
		{CustomerName: "Kim", Date: at("2024-02-01T00:00:00Z")},
	}
	cs := aggregate.GroupCustomers(reviews)
	require.Len(t, cs, 3)
	assert.Equal(t, []string{"Kim", "kim", "Kim "}, []string{cs[0].Name, cs[1].Name, cs[2].Name})

	kim := cs[0]
	assert.Equal(t, 3, kim.TotalReviews)
	assert.Len(t, kim.Reviews, kim.TotalReviews)
	assert.Equal(t, 1, kim.PositiveReviews)
	assert.Equal(t, 0, kim.NegativeReviews)
	assert.Equal(t, at("2024-01-01T00:00:00Z"), kim.FirstReviewDate)
	assert.Equal(t, at("2024-03-01T00:00:00Z"), kim.LastReviewDate)
	assert.Equal(t, []domain.KeywordCount{{Keyword: "taste", Count: 2}, {Keyword: "price", Count: 1}}, kim.TopKeywords)
}

func TestGroupCustomers_InvariantTotals(t *testing.T) {
	reviews := []domain.Review{
		rv("x", domain.SentimentPositive), rv("x", domain.SentimentNegative),
		rv("x", domain.SentimentNeutral), rv("x", domain.SentimentUnset),
		rv("y", domain.SentimentPositive),
	}
	for _, c := range aggregate.GroupCustomers(reviews) {
		other := 0
		for _, r := range c.Reviews {
			if r.Sentiment != domain.SentimentPositive && r.Sentiment != domain.SentimentNegative {
				other++
			}
		}
		assert.Equal(t, len(c.Reviews), c.TotalReviews)
		assert.Equal(t, c.TotalReviews, c.PositiveReviews+c.NegativeReviews+other)
		assert.GreaterOrEqual(t, c.LoyaltyScore, 0)
		assert.LessOrEqual(t, c.LoyaltyScore, 100)
	}
}

func TestEligibleCustomers_FilterAndOrder(t *testing.T) {
	start := at("2024-01-01T10:00:00Z")
	var reviews []domain.Review
	reviews = append(reviews, repeat("low", domain.SentimentNeutral, 3, start, time.Hour)...)
	reviews = append(reviews, repeat("few", domain.SentimentPositive, 2, start, time.Hour)...)
	reviews = append(reviews, repeat("fan", domain.SentimentPositive, 6, start, time.Hour)...)

	all := aggregate.GroupCustomers(reviews)
	assert.Len(t, all, 3)

	got := aggregate.EligibleCustomers(all)
	require.Len(t, got, 2)
	assert.Equal(t, "fan", got[0].Name)
	assert.Equal(t, "low", got[1].Name)

	// excluded from the story list, still grouped for management
	assert.Equal(t, 2, byName(all, "few").TotalReviews)
}

func TestSegment_ManagementRules(t *testing.T) {
	assert.Equal(t, domain.CustomerBlacklist, aggregate.Segment(1, 0, 1))
	assert.Equal(t, domain.CustomerLoyal, aggregate.Segment(5, 0.8, 0.2))
	assert.Equal(t, domain.CustomerNormal, aggregate.Segment(4, 1, 0))
	assert.Equal(t, domain.CustomerNormal, aggregate.Segment(5, 0.6, 0.4))
}

func TestFilterCustomers(t *testing.T) {
	in := []domain.CustomerAggregate{
		{Name: "Alice", Segment: domain.CustomerLoyal, CustomerType: domain.CustomerVIP},
		{Name: "alina", Segment: domain.CustomerNormal, CustomerType: domain.CustomerNormal},
		{Name: "Bob", Segment: domain.CustomerBlacklist, CustomerType: domain.CustomerBlacklist},
	}
	seg := func(c domain.CustomerAggregate) domain.CustomerType { return c.Segment }
	typ := func(c domain.CustomerAggregate) domain.CustomerType { return c.CustomerType }

	assert.Len(t, aggregate.FilterCustomers(in, "ali", "", seg), 2)
	assert.Len(t, aggregate.FilterCustomers(in, "ALI", domain.CustomerLoyal, seg), 1)
	assert.Len(t, aggregate.FilterCustomers(in, "", domain.CustomerVIP, typ), 1)

	counts := aggregate.CountSegments(in)
	assert.Equal(t, 1, counts[domain.CustomerLoyal])
	assert.Equal(t, 1, counts[domain.CustomerBlacklist])
	assert.Equal(t, 1, counts[domain.CustomerNormal])
}

func TestSummarizeLoyalty(t *testing.T) {
	c := func(typ domain.CustomerType, score int) domain.CustomerAggregate {
		return domain.CustomerAggregate{CustomerType: typ, LoyaltyScore: score}
	}
	tests := []struct {
		name   string
		in     []domain.CustomerAggregate
		counts map[domain.CustomerType]int
		avg    int
	}{
		{
			name:   "empty",
			counts: map[domain.CustomerType]int{domain.CustomerVIP: 0, domain.CustomerLoyal: 0, domain.CustomerBlacklist: 0, domain.CustomerNormal: 0},
			avg:    0,
		},
		{
			name:   "mixed",
			in:     []domain.CustomerAggregate{c(domain.CustomerVIP, 90), c(domain.CustomerVIP, 75), c(domain.CustomerLoyal, 45), c(domain.CustomerBlacklist, 0)},
			counts: map[domain.CustomerType]int{domain.CustomerVIP: 2, domain.CustomerLoyal: 1, domain.CustomerBlacklist: 1, domain.CustomerNormal: 0},
			avg:    53, // 210/4 = 52.5 rounds up
		},
		{
			name:   "single normal",
			in:     []domain.CustomerAggregate{c(domain.CustomerNormal, 20)},
			counts: map[domain.CustomerType]int{domain.CustomerVIP: 0, domain.CustomerLoyal: 0, domain.CustomerBlacklist: 0, domain.CustomerNormal: 1},
			avg:    20,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts, avg := aggregate.SummarizeLoyalty(tt.in)
			assert.Equal(t, tt.counts, counts)
			assert.Equal(t, tt.avg, avg)
		})
	}
}
