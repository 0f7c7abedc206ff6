package domain

import "time"

type CustomerType string

const (
	CustomerNormal    CustomerType = "normal"
	CustomerLoyal     CustomerType = "loyal"
	CustomerVIP       CustomerType = "vip"
	CustomerBlacklist CustomerType = "blacklist"
)

type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// CustomerAggregate is rebuilt from scratch on every aggregation pass.
// CustomerType is the loyalty classification; Segment is the coarser
// classification used by the customer management view.
type CustomerAggregate struct {
	Name            string         `json:"name"`
	Reviews         []Review       `json:"reviews"`
	TotalReviews    int            `json:"totalReviews"`
	PositiveReviews int            `json:"positiveReviews"`
	NegativeReviews int            `json:"negativeReviews"`
	FirstReviewDate time.Time      `json:"firstReviewDate"`
	LastReviewDate  time.Time      `json:"lastReviewDate"`
	PositiveRatio   float64        `json:"positiveRatio"`
	NegativeRatio   float64        `json:"negativeRatio"`
	MonthsSpan      float64        `json:"monthsSpan"`
	LoyaltyScore    int            `json:"loyaltyScore"`
	CustomerType    CustomerType   `json:"customerType"`
	Segment         CustomerType   `json:"segment"`
	TopKeywords     []KeywordCount `json:"topKeywords"`
	Story           string         `json:"story,omitempty"`
}

// StoryRequest is the customer summary sent to the text-generation service.
type StoryRequest struct {
	Name            string         `json:"name"`
	TotalReviews    int            `json:"totalReviews"`
	PositiveReviews int            `json:"positiveReviews"`
	LoyaltyScore    int            `json:"loyaltyScore"`
	TopKeywords     []KeywordCount `json:"topKeywords"`
	FirstReviewDate time.Time      `json:"firstReviewDate"`
	LastReviewDate  time.Time      `json:"lastReviewDate"`
	ReviewSamples   []string       `json:"reviewSamples"`
}
