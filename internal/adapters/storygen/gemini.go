package storygen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/domain"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini asks a Gemini model for the story.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, req domain.StoryRequest) (string, error) {
	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(req)), nil)
	if err != nil {
		observability.ObserveExternal("gemini", "generate", 0, time.Since(start))
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	observability.ObserveExternal("gemini", "generate", 200, time.Since(start))
	story := strings.TrimSpace(resp.Text())
	if story == "" {
		return "", ErrEmptyStory
	}
	return story, nil
}

// Prompt renders the customer summary as model instructions. Dates without
// a value are left out.
func Prompt(req domain.StoryRequest) string {
	var b strings.Builder
	b.WriteString("Write a warm two or three sentence story about this restaurant customer, ")
	b.WriteString("based only on the facts below. Do not invent details.\n\n")
	fmt.Fprintf(&b, "Customer: %s\n", req.Name)
	fmt.Fprintf(&b, "Reviews: %d (positive: %d)\n", req.TotalReviews, req.PositiveReviews)
	fmt.Fprintf(&b, "Loyalty score: %d/100\n", req.LoyaltyScore)
	if len(req.TopKeywords) > 0 {
		kws := make([]string, 0, len(req.TopKeywords))
		for _, k := range req.TopKeywords {
			kws = append(kws, fmt.Sprintf("%s (%d)", k.Keyword, k.Count))
		}
		fmt.Fprintf(&b, "Frequent keywords: %s\n", strings.Join(kws, ", "))
	}
	if !req.FirstReviewDate.IsZero() && !req.LastReviewDate.IsZero() {
		fmt.Fprintf(&b, "Visiting since %s, last review %s\n",
			req.FirstReviewDate.Format("2006-01-02"), req.LastReviewDate.Format("2006-01-02"))
	}
	if len(req.ReviewSamples) > 0 {
		b.WriteString("Review excerpts:\n")
		for _, s := range req.ReviewSamples {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return b.String()
}
