// Package insights asks Gemini for a short narrative over the current sales picture.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/logger"
	"github.com/cakeworks/cake-sales/models"
	"github.com/cakeworks/cake-sales/recommender"
)

const DefaultModel = "gemini-1.5-flash"

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API with a fresh client per request.
type GeminiGenerator struct {
	apiKey string
	model  string
}

func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiGenerator{apiKey: apiKey, model: model}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create AI client: %w", err)
	}
	defer client.Close()

	resp, err := client.GenerativeModel(g.model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content received from AI")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

type Dashboarder interface {
	Dashboard(ctx context.Context) (models.Dashboard, error)
}

type Recommender interface {
	Recommend(ctx context.Context, opts recommender.Options) ([]models.Recommendation, error)
}

type Predictor interface {
	Trained() bool
	Predict(ctx context.Context, date civil.Date, region string) (models.Forecast, error)
}

type Service struct {
	dash Dashboarder
	rec  Recommender
	fc   Predictor
	gen  Generator
	log  *logger.Logger
	now  func() time.Time
}

// NewService wires the data sources to a generator. A nil generator disables Explain.
func NewService(dash Dashboarder, rec Recommender, fc Predictor, gen Generator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{dash: dash, rec: rec, fc: fc, gen: gen, log: log.With("component", "insights"), now: time.Now}
}

// Enabled reports whether a generator is configured.
func (s *Service) Enabled() bool { return s.gen != nil }

// Explain gathers the dashboard, restock suggestions and, for a region once models are trained,
// tomorrow's forecast, then asks the generator to explain them.
func (s *Service) Explain(ctx context.Context, region string) (models.InsightResponse, error) {
	if s.gen == nil {
		return models.InsightResponse{}, apperr.InvalidArgument("insights disabled: no Gemini API key configured")
	}
	now := s.now()
	out := models.InsightResponse{ReportName: "Sales Insights", GeneratedAt: now, Region: region}

	var err error
	if out.Dashboard, err = s.dash.Dashboard(ctx); err != nil {
		return models.InsightResponse{}, err
	}
	if out.Restock, err = s.rec.Recommend(ctx, recommender.Options{Region: region}); err != nil {
		return models.InsightResponse{}, err
	}
	if region != "" && s.fc.Trained() {
		fc, err := s.fc.Predict(ctx, civil.DateOf(now).AddDays(1), region)
		if err != nil {
			return models.InsightResponse{}, err
		}
		out.Forecast = &fc
	}

	prompt, err := buildPrompt(out)
	if err != nil {
		return models.InsightResponse{}, err
	}
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.log.Error("gemini request failed", "error", err)
		return models.InsightResponse{}, err
	}
	analysis, err := parseAnalysis(text)
	if err != nil {
		s.log.Warn("could not parse gemini answer", "error", err, "raw", text)
		return models.InsightResponse{}, err
	}
	out.AiAnalysis = analysis
	return out, nil
}

func buildPrompt(in models.InsightResponse) (string, error) {
	data, err := json.Marshal(struct {
		Dashboard models.Dashboard        `json:"dashboard"`
		Restock   []models.Recommendation `json:"restock"`
		Forecast  *models.Forecast        `json:"forecast,omitempty"`
	}{in.Dashboard, in.Restock, in.Forecast})
	if err != nil {
		return "", fmt.Errorf("failed to serialize data: %w", err)
	}
	scope := "all regions"
	if in.Region != "" {
		scope = "the " + in.Region + " region"
	}
	return fmt.Sprintf(`You are a sales analyst for a small cake bakery. Below are the current sales metrics, the
restock suggestions for the last 30 days for %s, and tomorrow's forecast when available.

Data: %s

Respond with only a JSON object of this exact shape:
{"summary": "two or three sentences", "positive_factors": ["..."], "negative_factors": ["..."]}`, scope, data), nil
}

// extractJSON returns the text between the first '{' and the last '}'.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return raw[start : end+1]
}

func parseAnalysis(text string) (models.AiAnalysis, error) {
	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return models.AiAnalysis{}, fmt.Errorf("failed to parse AI response format")
	}
	var a models.AiAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &a); err != nil {
		return models.AiAnalysis{}, fmt.Errorf("failed to parse AI analysis: %w", err)
	}
	return a, nil
}
