package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/domain"
	"review_dashboard/internal/poller"
)

// Refresher re-runs the dashboard load after a job was accepted.
type Refresher interface {
	Refresh(ctx context.Context) (poller.State, error)
}

// ActionService forwards user actions to the review backend. A successful
// job trigger refreshes the dashboard.
type ActionService struct {
	api  domain.ReviewAPI
	dash Refresher
	loc  *time.Location
}

// NewActionService accepts a nil refresher (no refresh after actions).
func NewActionService(api domain.ReviewAPI, dash Refresher, loc *time.Location) *ActionService {
	if loc == nil {
		loc = time.Local
	}
	return &ActionService{api: api, dash: dash, loc: loc}
}

func (s *ActionService) Scrape(ctx context.Context) (map[string]any, error) {
	res, err := s.api.TriggerScrape(ctx)
	if err != nil {
		return nil, fmt.Errorf("trigger scrape: %w", err)
	}
	s.refresh(ctx, "scrape")
	return res, nil
}

// GenerateReplies asks for at most maxCount replies; maxCount <= 0 means
// DefaultMaxReplies.
func (s *ActionService) GenerateReplies(ctx context.Context, maxCount int) (map[string]any, error) {
	if maxCount <= 0 {
		maxCount = DefaultMaxReplies
	}
	res, err := s.api.TriggerReplyGeneration(ctx, maxCount)
	if err != nil {
		return nil, fmt.Errorf("trigger reply generation: %w", err)
	}
	s.refresh(ctx, "generate-replies")
	return res, nil
}

func (s *ActionService) RegenerateReply(ctx context.Context, id string) (map[string]any, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("regenerate reply: empty review id: %w", domain.ErrNotFound)
	}
	res, err := s.api.RegenerateReply(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("regenerate reply %s: %w", id, err)
	}
	s.refresh(ctx, "regenerate-reply")
	return res, nil
}

func (s *ActionService) Review(ctx context.Context, id string) (domain.Review, error) {
	raw, err := s.api.GetReview(ctx, id)
	if err != nil {
		return domain.Review{}, fmt.Errorf("get review %s: %w", id, err)
	}
	if raw == nil {
		return domain.Review{}, fmt.Errorf("get review %s: %w", id, domain.ErrNotFound)
	}
	return mapReview(raw, s.loc), nil
}

// Logs passes the backend's log payload through unchanged.
func (s *ActionService) Logs(ctx context.Context, limit int) (any, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	out, err := s.api.GetRecentLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent logs: %w", err)
	}
	return out, nil
}

// refresh failures already surface through the dashboard error state
func (s *ActionService) refresh(ctx context.Context, action string) {
	if s.dash == nil {
		return
	}
	if _, err := s.dash.Refresh(ctx); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("refresh after action failed")
	}
}
