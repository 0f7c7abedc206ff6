package aggregate

import (
	"math"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"review_dashboard/internal/domain"
)

const peakBuckets = 3

var (
	WeekdaysEN = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	WeekdaysKO = [7]string{"일", "월", "화", "수", "목", "금", "토"}
)

// WeekdayLabels picks a label set by language tag; English is the default.
func WeekdayLabels(lang string) [7]string {
	if lang == "ko" {
		return WeekdaysKO
	}
	return WeekdaysEN
}

type tally struct {
	idx map[string]int
	out []domain.BucketCount
}

func (t *tally) add(label string) {
	if t.idx == nil {
		t.idx = make(map[string]int)
	}
	if i, ok := t.idx[label]; ok {
		t.out[i].Count++
		return
	}
	t.idx[label] = len(t.out)
	t.out = append(t.out, domain.BucketCount{Label: label, Count: 1})
}

func (t *tally) top(n int) []domain.BucketCount {
	out := append(make([]domain.BucketCount, 0, len(t.out)), t.out...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// AnalyzeActivity buckets review timestamps by hour of day and weekday in
// loc and reports the top three of each, ties in first-seen order. Reviews
// with an unknown date are skipped for bucketing. Average text length is in
// characters per sentiment, 0 when a sentiment has no reviews.
func AnalyzeActivity(reviews []domain.Review, loc *time.Location, weekdays [7]string) domain.ActivityReport {
	if loc == nil {
		loc = time.UTC
	}
	var hours, days tally
	var sums, counts domain.SentimentCounts
	rep := domain.ActivityReport{TotalReviews: len(reviews)}

	for _, r := range reviews {
		if !r.Date.IsZero() {
			t := r.Date.In(loc)
			hours.add(strconv.Itoa(t.Hour()))
			days.add(weekdays[t.Weekday()])
		}
		n := utf8.RuneCountInString(r.Text)
		switch r.Sentiment {
		case domain.SentimentPositive:
			sums.Positive += n
			counts.Positive++
		case domain.SentimentNegative:
			sums.Negative += n
			counts.Negative++
		case domain.SentimentNeutral:
			sums.Neutral += n
			counts.Neutral++
		}
	}

	rep.PeakHours = hours.top(peakBuckets)
	rep.PeakDays = days.top(peakBuckets)
	rep.AvgLengths = domain.SentimentCounts{
		Positive: avg(sums.Positive, counts.Positive),
		Negative: avg(sums.Negative, counts.Negative),
		Neutral:  avg(sums.Neutral, counts.Neutral),
	}
	rep.Distribution = counts
	return rep
}

func avg(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
