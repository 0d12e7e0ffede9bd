// Package gemini implements category selection with the Gemini API. The model
// is shown a pre-filtered candidate list and must answer with one of them as
// JSON. Transport and parse failures surface as errors; converting them to an
// absent prediction is the category service's concern.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zoomfind/prodex/internal/domain"
	"github.com/zoomfind/prodex/internal/domain/category"
)

// Oracle selects a category via the Gemini API.
type Oracle struct {
	client *genai.Client
	model  string
}

// New creates a Gemini-backed oracle.
func New(ctx context.Context, apiKey, model string) (*Oracle, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Oracle{client: client, model: model}, nil
}

// Close releases the underlying client.
func (o *Oracle) Close() error {
	if err := o.client.Close(); err != nil {
		return fmt.Errorf("close gemini client: %w", err)
	}
	return nil
}

// Select asks the model to pick the best candidate for the query. A nil
// prediction with nil error means the model declined all candidates.
// The caller bounds latency via ctx; exactly one attempt is made.
func (o *Oracle) Select(
	ctx context.Context, queryText string, candidates []category.Candidate,
) (*category.Prediction, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	prompt, err := buildPrompt(queryText, candidates)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	model := o.client.GenerativeModel(o.model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generate content: %w: %w", err, domain.ErrOracleUnavailable)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty model response: %w", domain.ErrOracleUnavailable)
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response part type: %w", domain.ErrOracleUnavailable)
	}

	return parseChoice(string(text), candidates)
}

func buildPrompt(queryText string, candidates []category.Candidate) (string, error) {
	candidateJSON, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}

	return fmt.Sprintf(`You are an expert classification system. Your task is to analyze a user's request and select the single most appropriate subcategory from a pre-filtered list of relevant options.

Here is the pre-filtered list of the MOST RELEVANT subcategories. You MUST choose from this list only.
%s

User's request: %q

Instructions:
1. From the JSON list above, identify the SINGLE BEST matching subcategory for the user's request.
2. Respond ONLY with a JSON object copied directly from the list.
3. If none of these options fit, respond with: {"error": "No suitable category found."}`,
		string(candidateJSON), queryText), nil
}

// choice mirrors the JSON shape the model is asked to echo back.
type choice struct {
	Error           string `json:"error"`
	CategoryName    string `json:"category_name"`
	SubcategoryName string `json:"subcategory_name"`
	SubcategoryURL  string `json:"subcategory_url"`
}

// parseChoice decodes the model output and validates it against the offered
// candidates, so a hallucinated subcategory never becomes a prediction.
func parseChoice(text string, candidates []category.Candidate) (*category.Prediction, error) {
	trimmed := stripFences(text)

	var c choice
	if err := json.Unmarshal([]byte(trimmed), &c); err != nil {
		// Some model revisions answer with a one-element list.
		var list []choice
		if listErr := json.Unmarshal([]byte(trimmed), &list); listErr != nil || len(list) == 0 {
			return nil, fmt.Errorf("parse model response: %w: %w", err, domain.ErrOracleUnavailable)
		}
		c = list[0]
	}

	if c.Error != "" {
		return nil, nil // model declined, a legitimate outcome
	}

	for _, cand := range candidates {
		if cand.SubcategoryURL == c.SubcategoryURL ||
			strings.EqualFold(cand.SubcategoryName, c.SubcategoryName) {
			return &category.Prediction{
				CategoryName:    cand.CategoryName,
				SubcategoryName: cand.SubcategoryName,
				SubcategoryURL:  cand.SubcategoryURL,
			}, nil
		}
	}

	return nil, fmt.Errorf("model chose %q, not among offered candidates: %w",
		c.SubcategoryName, domain.ErrOracleUnavailable)
}

// stripFences removes a markdown code fence if the model wrapped its JSON in one.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
