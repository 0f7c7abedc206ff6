// Package storygen produces short customer stories from a customer summary,
// either through a story HTTP endpoint or directly through Gemini.
package storygen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/domain"
)

var ErrEmptyStory = errors.New("story service returned an empty story")

// HTTP posts the customer summary to a story endpoint that answers {"story": "..."}.
type HTTP struct {
	url string
	rc  *resty.Client
}

func NewHTTP(url string, timeout time.Duration) (*HTTP, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("story URL is required")
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "review-dashboard/1.0")
	return &HTTP{url: url, rc: rc}, nil
}

type storyResponse struct {
	Story string `json:"story"`
}

func (h *HTTP) Generate(ctx context.Context, req domain.StoryRequest) (string, error) {
	var out storyResponse
	start := time.Now()
	resp, err := h.rc.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(h.url)
	if err != nil {
		observability.ObserveExternal("story", "generate", 0, time.Since(start))
		return "", fmt.Errorf("story request: %w", err)
	}
	observability.ObserveExternal("story", "generate", resp.StatusCode(), time.Since(start))
	if resp.IsError() {
		return "", fmt.Errorf("story request: bad status %d", resp.StatusCode())
	}
	story := strings.TrimSpace(out.Story)
	if story == "" {
		return "", ErrEmptyStory
	}
	return story, nil
}
