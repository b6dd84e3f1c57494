package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"mindspark/internal/logger"
	"mindspark/internal/models"
	"mindspark/internal/observability"
	"mindspark/internal/security"
)

const DefaultModel = "gemini-2.5-flash"

var (
	ErrMissingAPIKey    = errors.New("API Key is missing. Please check your environment configuration.")
	ErrGenerationFailed = errors.New("Failed to generate quiz. Please try a different topic or try again later.")
	ErrRateLimited      = errors.New("Too many quizzes requested. Please wait a moment and try again.")
)

// Request describes the quiz to generate
type Request struct {
	Topic      string
	Difficulty models.Difficulty
	Count      int
	Language   models.Language
	// UserID keys the rate limiter; empty requests share one bucket
	UserID string
}

// Generator produces quizzes
type Generator interface {
	GenerateQuiz(ctx context.Context, req Request) (*models.QuizData, error)
}

// GeminiConfig configures the Gemini generator
type GeminiConfig struct {
	APIKey      string
	Model       string
	Endpoint    string
	Temperature float32
	HTTPClient  *http.Client
	Limiter     *security.RateLimiter
	Log         *logger.Logger
}

// Gemini generates quizzes with structured JSON output from the Gemini API
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	limiter     *security.RateLimiter
	log         *logger.Logger
}

// NewGemini creates the generator. A missing API key is reported on each
// GenerateQuiz call rather than here so the rest of the app stays usable.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	g := &Gemini{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		limiter:     cfg.Limiter,
		log:         cfg.Log,
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.temperature == 0 {
		g.temperature = 0.7
	}
	if g.log == nil {
		g.log = logger.Nop()
	}
	if cfg.APIKey == "" {
		return g, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

// GenerateQuiz asks the model for exactly req.Count questions and validates the answer
func (g *Gemini) GenerateQuiz(ctx context.Context, req Request) (*models.QuizData, error) {
	if g.client == nil {
		return nil, ErrMissingAPIKey
	}
	if !g.limiter.Allow(req.UserID) {
		return nil, ErrRateLimited
	}

	ctx, span := observability.Tracer().Start(ctx, "generator.GenerateQuiz")
	defer span.End()
	span.SetAttributes(
		attribute.String("quiz.topic", req.Topic),
		attribute.String("quiz.difficulty", string(req.Difficulty)),
		attribute.Int("quiz.count", req.Count),
	)

	quiz, err := g.generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		g.log.Error("quiz generation failed", "topic", req.Topic, "model", g.model, "error", err)
		return nil, ErrGenerationFailed
	}
	return quiz, nil
}

func (g *Gemini) generate(ctx context.Context, req Request) (*models.QuizData, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(req)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   quizSchema(),
		Temperature:      genai.Ptr(g.temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, errors.New("no response received from model")
	}
	return ParseQuiz(text, req)
}

// BuildPrompt renders the generation instructions
func BuildPrompt(req Request) string {
	lang := req.Language.DisplayName()
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a quiz about %q with exactly %d questions in %s.\n", req.Topic, req.Count, lang)
	fmt.Fprintf(&b, "Difficulty level: %s.\n", req.Difficulty)
	b.WriteString("Ensure the questions are clear, accurate, and have exactly 4 options.\n")
	b.WriteString("The correctIndex must be 0, 1, 2, or 3 corresponding to the options array.\n")
	b.WriteString("Provide a brief explanation for why the answer is correct.\n")
	fmt.Fprintf(&b, "IMPORTANT: Return the response in %s, but keep the JSON property keys in English "+
		"(topic, questions, id, question, options, correctIndex, explanation).\n", lang)
	return b.String()
}

func quizSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"topic": {Type: genai.TypeString},
			"questions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":           {Type: genai.TypeInteger},
						"question":     {Type: genai.TypeString},
						"options":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
						"correctIndex": {Type: genai.TypeInteger},
						"explanation":  {Type: genai.TypeString},
					},
					Required: []string{"id", "question", "options", "correctIndex", "explanation"},
				},
			},
		},
		Required: []string{"topic", "questions"},
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return strings.TrimSpace(resp.Text())
}

// ParseQuiz decodes the model output and checks it against the request
func ParseQuiz(text string, req Request) (*models.QuizData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var quiz models.QuizData
	if err := json.Unmarshal([]byte(text), &quiz); err != nil {
		return nil, fmt.Errorf("invalid quiz JSON: %w", err)
	}
	if err := quiz.Validate(req.Count); err != nil {
		return nil, err
	}

	if !uniqueIDs(quiz.Questions) {
		for i := range quiz.Questions {
			quiz.Questions[i].ID = int64(i + 1)
		}
	}
	if strings.TrimSpace(quiz.Topic) == "" {
		quiz.Topic = req.Topic
	}
	quiz.Difficulty = req.Difficulty
	return &quiz, nil
}

func uniqueIDs(questions []models.Question) bool {
	seen := make(map[int64]bool, len(questions))
	for _, q := range questions {
		if q.ID <= 0 || seen[q.ID] {
			return false
		}
		seen[q.ID] = true
	}
	return true
}
