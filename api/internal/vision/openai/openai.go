package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"calorie-lens/api/internal/estimate"
	"calorie-lens/api/internal/util"
	"calorie-lens/api/internal/vision"
	"calorie-lens/api/internal/vision/prompt"
)

type Engine struct {
	APIKey string
	Model  string
	cl     *goopenai.Client
}

func New(key, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(key),
		Model:  strings.TrimSpace(model),
		cl:     goopenai.NewClient(strings.TrimSpace(key)),
	}
}

func (e *Engine) Name() string { return "openai" }

func (e *Engine) Analyze(ctx context.Context, in vision.AnalyzeInput) (estimate.CalorieEstimation, error) {
	if e.APIKey == "" {
		return estimate.CalorieEstimation{}, errors.New("OPENAI_API_KEY is empty")
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL == "" {
		raw, hint, err := util.DecodeBase64Image(in.ImageB64)
		if err != nil {
			return estimate.CalorieEstimation{}, fmt.Errorf("openai analyze: bad base64: %w", err)
		}
		b64 := strings.TrimSpace(in.ImageB64)
		if !strings.HasPrefix(b64, "data:") {
			b64 = util.MakeDataURL(util.PickMIME(hint, raw), b64)
		}
		imageURL = b64
	}

	resp, err := e.cl.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       e.Model,
		Temperature: 0,
		MaxTokens:   800,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: prompt.System,
			},
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{Type: goopenai.ChatMessagePartTypeText, Text: prompt.User},
					{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: goopenai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return estimate.CalorieEstimation{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return estimate.CalorieEstimation{}, errors.New("openai analyze: empty response")
	}

	txt := util.StripCodeFences(resp.Choices[0].Message.Content)
	var out estimate.CalorieEstimation
	if err := json.Unmarshal([]byte(txt), &out); err != nil {
		return estimate.CalorieEstimation{}, fmt.Errorf("openai analyze: bad JSON: %w", err)
	}
	vision.ApplyResultPolicy(&out)
	return out, nil
}

// classify keeps rate-limit, auth and content-policy failures distinguishable
// for the caller's messaging.
func classify(err error) error {
	var apiErr *goopenai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.HTTPStatusCode {
	case 429:
		return fmt.Errorf("openai rate limited: %s", apiErr.Message)
	case 401, 403:
		return fmt.Errorf("openai auth failed: %s", apiErr.Message)
	case 400:
		if strings.Contains(strings.ToLower(apiErr.Message), "policy") {
			return fmt.Errorf("openai content policy: %s", apiErr.Message)
		}
	}
	return fmt.Errorf("openai %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
}
