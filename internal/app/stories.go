package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/domain"
)

const (
	storySamples     = 3
	storySampleRunes = 100
	defaultWorkers   = 4
)

// StoryService attaches a generated story to each customer. A failed
// generation falls back to a fixed sentence for that customer only.
type StoryService struct {
	gen     domain.StoryGenerator
	cache   domain.Cache
	ttl     time.Duration
	workers int64
}

// NewStoryService accepts a nil generator (every story falls back) and a nil
// cache (no caching).
func NewStoryService(gen domain.StoryGenerator, cache domain.Cache, ttl time.Duration, workers int) *StoryService {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &StoryService{gen: gen, cache: cache, ttl: ttl, workers: int64(workers)}
}

func FallbackStory(name string, totalReviews int) string {
	return fmt.Sprintf("%s has left %d reviews and is a valued customer.", name, totalReviews)
}

// StoryRequestFor summarizes a customer. Samples are the first reviews of
// the customer, each cut to a fixed number of runes.
func StoryRequestFor(c domain.CustomerAggregate) domain.StoryRequest {
	samples := make([]string, 0, storySamples)
	for i := 0; i < len(c.Reviews) && i < storySamples; i++ {
		samples = append(samples, truncateRunes(c.Reviews[i].Text, storySampleRunes))
	}
	return domain.StoryRequest{
		Name:            c.Name,
		TotalReviews:    c.TotalReviews,
		PositiveReviews: c.PositiveReviews,
		LoyaltyScore:    c.LoyaltyScore,
		TopKeywords:     c.TopKeywords,
		FirstReviewDate: c.FirstReviewDate,
		LastReviewDate:  c.LastReviewDate,
		ReviewSamples:   samples,
	}
}

// Attach returns a copy of customers with Story set on every entry, in the
// input order. It never fails as a whole.
func (s *StoryService) Attach(ctx context.Context, customers []domain.CustomerAggregate) []domain.CustomerAggregate {
	out := make([]domain.CustomerAggregate, len(customers))
	copy(out, customers)

	sem := semaphore.NewWeighted(s.workers)
	var wg sync.WaitGroup
	for i := range out {
		if ctx.Err() != nil || sem.Acquire(ctx, 1) != nil {
			// cancelled: the rest get the fallback without trying
			for j := i; j < len(out); j++ {
				out[j].Story = FallbackStory(out[j].Name, out[j].TotalReviews)
				observability.ObserveStory("fallback")
			}
			break
		}
		wg.Add(1)
		go func(c *domain.CustomerAggregate) {
			defer wg.Done()
			defer sem.Release(1)
			c.Story = s.story(ctx, *c)
		}(&out[i])
	}
	wg.Wait()
	return out
}

func (s *StoryService) story(ctx context.Context, c domain.CustomerAggregate) (story string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("customer", c.Name).Msg("story generation panicked")
			story = FallbackStory(c.Name, c.TotalReviews)
			observability.ObserveStory("fallback")
		}
	}()

	req := StoryRequestFor(c)
	key := storyKey(req)
	if s.cache != nil && key != "" {
		var cached string
		if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok && cached != "" {
			observability.ObserveStory("cached")
			return cached
		} else if err != nil {
			log.Warn().Err(err).Str("customer", c.Name).Msg("story cache read failed")
		}
	}

	if s.gen == nil {
		observability.ObserveStory("fallback")
		return FallbackStory(c.Name, c.TotalReviews)
	}
	text, err := s.generate(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("customer", c.Name).Msg("story generation failed, using fallback")
		observability.ObserveStory("fallback")
		return FallbackStory(c.Name, c.TotalReviews)
	}
	observability.ObserveStory("generated")
	if s.cache != nil && key != "" {
		if err := s.cache.Set(ctx, key, text, int(s.ttl.Seconds())); err != nil {
			log.Warn().Err(err).Str("customer", c.Name).Msg("story cache write failed")
		}
	}
	return text
}

// generate returns once ctx ends even when the generator ignores it.
func (s *StoryService) generate(ctx context.Context, req domain.StoryRequest) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("story generator panicked: %v", r)}
			}
		}()
		text, err := s.gen.Generate(ctx, req)
		ch <- result{text, err}
	}()
	select {
	case r := <-ch:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// storyKey changes whenever any story input changes.
func storyKey(req domain.StoryRequest) string {
	b, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha1.Sum(b)
	return "story:" + hex.EncodeToString(sum[:])
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
