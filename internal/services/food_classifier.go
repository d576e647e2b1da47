package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	apperrors "github.com/sugarscope/sugarscope/internal/errors"
)

const geminiModel = "gemini-1.5-flash"

// maxImageBytes caps downloaded photos.
const maxImageBytes = 10 << 20

// Classification is one recognized food with its estimated sugar and carbs
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	SugarGrams float64 `json:"sugar_grams"`
	CarbsGrams float64 `json:"carbs_grams"`
}

// FoodRecord is a nutrition lookup result, per 100 g
type FoodRecord struct {
	Name             string  `json:"name"`
	SugarPer100Grams float64 `json:"sugar_per_100g"`
	CarbsPer100Grams float64 `json:"carbs_per_100g"`
}

// generator is the part of the Gemini API the classifier needs
type generator interface {
	Generate(ctx context.Context, parts ...genai.Part) (string, error)
}

type geminiGenerator struct {
	model *genai.GenerativeModel
}

func (g geminiGenerator) Generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part %T", resp.Candidates[0].Content.Parts[0])
	}
	return string(text), nil
}

// FoodClassifier recognizes food in photos and looks up nutrition through Gemini
type FoodClassifier struct {
	client *genai.Client
	gen    generator
	http   *http.Client
}

func NewFoodClassifier(ctx context.Context, apiKey string) (*FoodClassifier, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, "gemini")
	}
	return &FoodClassifier{
		client: client,
		gen:    geminiGenerator{model: client.GenerativeModel(geminiModel)},
		http:   http.DefaultClient,
	}, nil
}

// Close releases the Gemini client
func (c *FoodClassifier) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

const classifyPrompt = `You are a nutrition expert helping a person with diabetes track sugar.
Identify the foods in the image and estimate, for the visible portion, the grams of sugar and of total carbohydrates.

Respond with a JSON object only, no markdown and no text around it:
{
  "items": [
    {"label": "food name", "confidence": 0.0-1.0, "sugar_grams": 12.5, "carbs_grams": 40.0}
  ]
}
List the most likely item first.`

// imageFormat maps a Content-Type to the subtype Gemini expects. Anything
// that is not an image type is sent as jpeg, which is what Telegram serves.
func imageFormat(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	format, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
	if !ok || format == "" {
		return "jpeg"
	}
	return format
}

// Classify returns the foods recognized in image, most confident first
func (c *FoodClassifier) Classify(ctx context.Context, image []byte, mimeType string) ([]Classification, error) {
	text, err := c.gen.Generate(ctx, genai.ImageData(imageFormat(mimeType), image), genai.Text(classifyPrompt))
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, "gemini")
	}

	var resp struct {
		Items []Classification `json:"items"`
	}
	if err := decodeModelJSON(text, &resp); err != nil {
		return nil, err
	}

	items := resp.Items[:0]
	for _, it := range resp.Items {
		if strings.TrimSpace(it.Label) == "" || it.SugarGrams < 0 || it.CarbsGrams < 0 {
			continue
		}
		items = append(items, it)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Confidence > items[j].Confidence })
	return items, nil
}

// ClassifyURL downloads an image and classifies it
func (c *FoodClassifier) ClassifyURL(ctx context.Context, url string) ([]Classification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("failed to download image: %w", err), "telegram")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("image download returned %s", resp.Status), "telegram")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return c.Classify(ctx, data, resp.Header.Get("Content-Type"))
}

const searchPromptTmpl = `You are a nutrition database. List up to 5 common foods matching the query %q.
Respond with a JSON object only, no markdown and no text around it:
{"foods": [{"name": "food name", "sugar_per_100g": 10.0, "carbs_per_100g": 20.0}]}`

// SearchFoods looks up nutrition values for a free-text query
func (c *FoodClassifier) SearchFoods(ctx context.Context, query string) ([]FoodRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("empty food query")
	}

	text, err := c.gen.Generate(ctx, genai.Text(fmt.Sprintf(searchPromptTmpl, query)))
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, "gemini")
	}

	var resp struct {
		Foods []FoodRecord `json:"foods"`
	}
	if err := decodeModelJSON(text, &resp); err != nil {
		return nil, err
	}
	return resp.Foods, nil
}

func decodeModelJSON(text string, v any) error {
	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return apperrors.NewExternalAPIError(fmt.Errorf("no valid JSON found in response"), "gemini")
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return apperrors.NewExternalAPIError(fmt.Errorf("failed to parse response: %w", err), "gemini")
	}
	return nil
}

// extractJSON returns the outermost {...} in s, which strips code fences
// and any prose the model wraps around its answer.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
