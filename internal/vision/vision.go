// Package vision runs the dashboard's generative-AI tasks: hair photo
// analysis and product sheet extraction.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

var ErrEmptyResponse = errors.New("model returned no content")

type HairAnalysis struct {
	HairType        string   `json:"hair_type"`
	Porosity        string   `json:"porosity"`
	Concerns        []string `json:"concerns"`
	Recommendations []string `json:"recommendations"`
	Confidence      float64  `json:"confidence"`
}

type ProductDraft struct {
	ProductName string   `json:"product_name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Ingredients []string `json:"ingredients"`
	HairTypes   []string `json:"hair_types"`
}

const analyzePrompt = `You are a professional trichologist. Look at the photo and describe the visible hair.
Reply with a JSON object with exactly these keys:
"hair_type" (one of straight, wavy, curly, coily),
"porosity" (one of low, medium, high),
"concerns" (array of short lowercase strings such as frizz, dryness, breakage, thinning, dandruff),
"recommendations" (array of short care tips),
"confidence" (number between 0 and 1).`

const extractPrompt = `Extract a hair-care product listing from the text the user provides.
Reply with a JSON object with exactly these keys:
"product_name", "description", "category" (one of shampoo, conditioner, treatment, styling, oil, other),
"price" (number, 0 when unknown), "ingredients" (array of strings), "hair_types" (array of strings).`

const maxExtractRunes = 12000

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	EnableReal bool
	RPS        float64
}

// Client calls an OpenAI-compatible chat completion API. With EnableReal off
// it returns fixed answers so the dashboard works without credentials.
type Client struct {
	client      *openai.Client
	model       string
	enableReal  bool
	rateLimiter *rate.Limiter
}

func New(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		enableReal:  cfg.EnableReal,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RPS), 2),
	}
}

func (c *Client) AnalyzeHair(ctx context.Context, imageURL string) (HairAnalysis, error) {
	if !c.enableReal {
		return dummyAnalysis(), nil
	}
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: "Analyze this hair photo."},
		{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    imageURL,
				Detail: openai.ImageURLDetailLow,
			},
		},
	}
	var out HairAnalysis
	if err := c.complete(ctx, analyzePrompt, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}, &out); err != nil {
		return HairAnalysis{}, err
	}
	return normalizeAnalysis(out), nil
}

func (c *Client) ExtractProduct(ctx context.Context, text string) (ProductDraft, error) {
	if !c.enableReal {
		return dummyDraft(text), nil
	}
	if utf8.RuneCountInString(text) > maxExtractRunes {
		text = string([]rune(text)[:maxExtractRunes])
	}
	var out ProductDraft
	if err := c.complete(ctx, extractPrompt, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}, &out); err != nil {
		return ProductDraft{}, err
	}
	return normalizeDraft(out), nil
}

func (c *Client) complete(ctx context.Context, system string, user openai.ChatCompletionMessage, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			user,
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return fmt.Errorf("openai chat completion error: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return ErrEmptyResponse
	}
	content := stripFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

// stripFences removes a ```json fence some models wrap around JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func normalizeAnalysis(a HairAnalysis) HairAnalysis {
	if a.Concerns == nil {
		a.Concerns = []string{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	for i, c := range a.Concerns {
		a.Concerns[i] = strings.ToLower(strings.TrimSpace(c))
	}
	if a.Confidence < 0 {
		a.Confidence = 0
	}
	if a.Confidence > 1 {
		a.Confidence = 1
	}
	return a
}

func normalizeDraft(d ProductDraft) ProductDraft {
	if d.Ingredients == nil {
		d.Ingredients = []string{}
	}
	if d.HairTypes == nil {
		d.HairTypes = []string{}
	}
	if d.Price < 0 {
		d.Price = 0
	}
	d.ProductName = strings.TrimSpace(d.ProductName)
	d.Category = strings.ToLower(strings.TrimSpace(d.Category))
	return d
}

func dummyAnalysis() HairAnalysis {
	return HairAnalysis{
		HairType:        "wavy",
		Porosity:        "medium",
		Concerns:        []string{"frizz", "dryness"},
		Recommendations: []string{"Use a sulfate-free shampoo", "Apply a leave-in conditioner on damp hair"},
		Confidence:      0.5,
	}
}

func dummyDraft(text string) ProductDraft {
	name := strings.TrimSpace(strings.SplitN(strings.TrimSpace(text), "\n", 2)[0])
	if utf8.RuneCountInString(name) > 80 {
		name = string([]rune(name)[:80])
	}
	return ProductDraft{
		ProductName: name,
		Description: "",
		Category:    "other",
		Ingredients: []string{},
		HairTypes:   []string{},
	}
}
