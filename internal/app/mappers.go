package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/domain"
)

/********** alias registry (single source of truth) **********/

var reviewAliases = map[string][]string{
	"id":       {"id", "review_id", "reviewId"},
	"customer": {"customer_name", "customerName", "author", "name", "user.name"},
	"text":     {"review_text", "reviewText", "text", "content", "body"},
	"date":     {"review_date", "reviewDate", "created_at", "date"},
	"reply":    {"generated_reply", "generatedReply", "reply"},
	"posted":   {"reply_posted", "replyPosted"},
	"rating":   {"rating", "score", "rating.value"},
	"keywords": {"keywords", "tags"},
}

// naive timestamps (no offset) are read in the dashboard's location
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstAlias returns the first non-nil value for a named alias set.
func firstAlias(m map[string]any, key string) any {
	for _, p := range reviewAliases[key] {
		if v := lookupAny(m, p); v != nil {
			return v
		}
	}
	return nil
}

// stringOf renders scalars as text; ids arrive as numbers or strings.
func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// rawString keeps string values byte for byte. Names group customers by
// exact match and text lengths feed the averages, so neither is trimmed.
func rawString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return stringOf(v)
}

// floatOf: number from float64/int/string like "4,5".
func floatOf(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

func boolOf(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	return false
}

// stringsOf accepts a JSON list or a comma separated string.
func stringsOf(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, it := range t {
			if s := stringOf(it); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// parseDate returns the zero time when s matches no known layout.
func parseDate(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

/********** reviews mapper **********/

func mapReview(r map[string]any, loc *time.Location) domain.Review {
	rv := domain.Review{
		ID:           stringOf(firstAlias(r, "id")),
		CustomerName: rawString(firstAlias(r, "customer")),
		Text:         rawString(firstAlias(r, "text")),
		Sentiment:    domain.ParseSentiment(stringOf(r["sentiment"])),
		Keywords:     stringsOf(firstAlias(r, "keywords")),
		Rating:       floatOf(firstAlias(r, "rating")),
		ReplyPosted:  boolOf(firstAlias(r, "posted")),
	}
	if raw := stringOf(firstAlias(r, "date")); raw != "" {
		rv.Date = parseDate(raw, loc)
		if rv.Date.IsZero() {
			log.Debug().Str("context", "mapReview").Str("id", rv.ID).Str("date", raw).Msg("unparseable review date")
		}
	}
	// an empty reply is treated as no reply
	if s := stringOf(firstAlias(r, "reply")); s != "" {
		rv.GeneratedReply = &s
	}
	return rv
}

func mapReviews(in []map[string]any, loc *time.Location) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		if r == nil {
			continue
		}
		out = append(out, mapReview(r, loc))
	}
	return out
}
