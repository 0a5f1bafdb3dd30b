package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"calorie-lens/api/internal/estimate"
	"calorie-lens/api/internal/util"
	"calorie-lens/api/internal/vision"
	"calorie-lens/api/internal/vision/prompt"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string { return "gemini" }

func (e *Engine) Analyze(ctx context.Context, in vision.AnalyzeInput) (estimate.CalorieEstimation, error) {
	if e.APIKey == "" {
		return estimate.CalorieEstimation{}, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return estimate.CalorieEstimation{}, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return estimate.CalorieEstimation{}, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{
			genai.Text(prompt.System),
			genai.Text("\nAnswer schema:\n" + prompt.AnswerSchema),
		},
	}

	imgBytes, hint, err := util.DecodeBase64Image(in.ImageB64)
	if err != nil {
		return estimate.CalorieEstimation{}, fmt.Errorf("gemini analyze: bad base64: %w", err)
	}

	parts := []genai.Part{
		genai.Text(prompt.User),
		&genai.Blob{MIMEType: util.PickMIME(hint, imgBytes), Data: imgBytes},
	}

	// Retries cover 5xx/transient transport failures only.
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return estimate.CalorieEstimation{}, fmt.Errorf("gemini analyze: empty response")
		}
		txt = util.StripCodeFences(txt)

		var out estimate.CalorieEstimation
		if err := json.Unmarshal([]byte(txt), &out); err != nil {
			return estimate.CalorieEstimation{}, fmt.Errorf("gemini analyze: bad JSON: %w", err)
		}
		vision.ApplyResultPolicy(&out)
		return out, nil
	}
	return estimate.CalorieEstimation{}, lastErr
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				if s := strings.TrimSpace(string(t)); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func ptrFloat32(f float32) *float32 { return &f }
