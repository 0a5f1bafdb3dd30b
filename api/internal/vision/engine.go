package vision

import (
	"context"
	"errors"

	"calorie-lens/api/internal/estimate"
)

// AnalyzeInput carries the image for one analysis. Exactly one of the two
// fields should be set; engines prefer the hosted URL when both are present.
type AnalyzeInput struct {
	ImageB64 string
	ImageURL string
}

// Engine is a vision model that turns a food photo into a calorie breakdown.
type Engine interface {
	Name() string
	Analyze(ctx context.Context, in AnalyzeInput) (estimate.CalorieEstimation, error)
}

type Engines struct {
	OpenAI Engine
	Gemini Engine
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	switch name {
	case "gpt", "openai":
		if e.OpenAI == nil {
			return nil, errors.New("openai engine is not configured")
		}
		return e.OpenAI, nil
	case "gemini":
		if e.Gemini == nil {
			return nil, errors.New("gemini engine is not configured")
		}
		return e.Gemini, nil
	default:
		return nil, errors.New("unknown engine name; use 'openai' or 'gemini'")
	}
}
