package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

type Sentiment string

const (
	SentimentUnset    Sentiment = ""
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment normalizes a backend label. The analysis backend emits
// Korean labels (긍정/부정/중립); English labels are accepted in any case.
// Anything else means "not yet analyzed".
func ParseSentiment(label string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "positive", "긍정":
		return SentimentPositive
	case "negative", "부정":
		return SentimentNegative
	case "neutral", "중립":
		return SentimentNeutral
	}
	return SentimentUnset
}

type Review struct {
	ID             string    `json:"id"`
	CustomerName   string    `json:"customer_name"`
	Text           string    `json:"review_text"`
	Date           time.Time `json:"review_date"`
	Sentiment      Sentiment `json:"sentiment,omitempty"`
	Keywords       []string  `json:"keywords,omitempty"`
	Rating         *float64  `json:"rating,omitempty"`
	GeneratedReply *string   `json:"generated_reply,omitempty"`
	ReplyPosted    bool      `json:"reply_posted"`
}

// HasReply reports whether an AI reply was generated; ReplyPosted is only
// meaningful when it is true.
func (r Review) HasReply() bool { return r.GeneratedReply != nil }
