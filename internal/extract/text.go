// Package extract turns free text into a structured recipe with a
// self-reported confidence.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-cli/internal/model"
	"github.com/sells-group/recipe-cli/pkg/anthropic"
)

// Config controls the text extractor's model call.
type Config struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns the extractor defaults.
func DefaultConfig() Config {
	return Config{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   4096,
		Temperature: 0.1,
	}
}

const textSystemPrompt = `You extract cooking recipes from social media post text (captions, transcripts, descriptions).

Rules:
1. Use ONLY information present in the text. Never invent ingredients, quantities, steps, times or servings. If something is not stated, leave it null or omit it.
2. Deduplicate ingredients. When an ingredient is mentioned more than once, keep the single most specific mention (the one with a quantity, unit or preparation).
3. Order instructions logically, as a cook would follow them. One action per step where practical.
4. Report your confidence honestly for each field using these bands:
   0.9-1.0  complete recipe: all ingredients with quantities and clear steps
   0.7-0.9  good: most ingredients and steps, minor gaps
   0.5-0.7  partial: some ingredients or steps missing
   0.3-0.5  minimal: only fragments of a recipe
   0.0-0.3  none: no real recipe in the text
5. isCompleteRecipe is true only if someone could cook the dish from your output alone.

Respond with a single JSON object and nothing else, matching this schema:
{
  "title": string,
  "description": string | null,
  "ingredients": [
    {"raw": string, "quantity": number | null, "unit": string | null, "name": string, "preparation": string | null, "notes": string | null}
  ],
  "instructions": [string],
  "servings": string | null,
  "prepTime": string | null,
  "cookTime": string | null,
  "confidence": {
    "overall": number, "title": number, "ingredients": number, "instructions": number,
    "hasQuantities": boolean, "hasSteps": boolean, "isCompleteRecipe": boolean,
    "reasoning": string
  }
}`

// TextExtractor extracts recipes from text with an Anthropic model.
type TextExtractor struct {
	client anthropic.Client
	cfg    Config
}

// NewTextExtractor creates a TextExtractor. Zero config fields take defaults.
func NewTextExtractor(client anthropic.Client, cfg Config) *TextExtractor {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = def.Temperature
	}
	return &TextExtractor{client: client, cfg: cfg}
}

// Extract returns a recipe with Source caption. A refusal or unusable
// response yields a zero-confidence recipe, not an error; transport and API
// errors are returned to the caller.
func (e *TextExtractor) Extract(ctx context.Context, text string) (*model.ExtractedRecipe, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.EmptyRecipe(model.SourceCaption, "No text content to extract from"), nil
	}

	temp := e.cfg.Temperature
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(textSystemPrompt),
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: "Extract the recipe from this post content:\n\n" + text,
		}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: text extraction")
	}
	resp.Usage.LogCost(e.cfg.Model, "text_extraction")

	if resp.Refused() {
		zap.L().Warn("extract: model refused text extraction")
		return model.EmptyRecipe(model.SourceCaption, "Model declined to extract a recipe"), nil
	}

	var raw aiRecipe
	if err := DecodeJSON(resp.Text(), &raw); err != nil {
		zap.L().Warn("extract: unparseable extraction response",
			zap.String("stop_reason", resp.StopReason),
			zap.Error(err),
		)
		return model.EmptyRecipe(model.SourceCaption, "No structured recipe in model response"), nil
	}

	recipe := raw.toRecipe(model.SourceCaption, time.Now())
	zap.L().Debug("extract: text extraction complete",
		zap.String("title", recipe.Title),
		zap.Int("ingredients", len(recipe.Ingredients)),
		zap.Int("instructions", len(recipe.Instructions)),
		zap.Float64("overall", recipe.Confidence.Overall),
	)
	return recipe, nil
}

// aiRecipe mirrors the response schema loosely; models return numbers as
// strings and strings as numbers often enough to matter.
type aiRecipe struct {
	Title        any            `json:"title"`
	Description  any            `json:"description"`
	Ingredients  []aiIngredient `json:"ingredients"`
	Instructions []any          `json:"instructions"`
	Servings     any            `json:"servings"`
	PrepTime     any            `json:"prepTime"`
	CookTime     any            `json:"cookTime"`
	Confidence   aiConfidence   `json:"confidence"`
}

type aiIngredient struct {
	Raw         any `json:"raw"`
	Quantity    any `json:"quantity"`
	Unit        any `json:"unit"`
	Name        any `json:"name"`
	Preparation any `json:"preparation"`
	Notes       any `json:"notes"`
}

type aiConfidence struct {
	Overall          any    `json:"overall"`
	Title            any    `json:"title"`
	Ingredients      any    `json:"ingredients"`
	Instructions     any    `json:"instructions"`
	HasQuantities    bool   `json:"hasQuantities"`
	HasSteps         bool   `json:"hasSteps"`
	IsCompleteRecipe bool   `json:"isCompleteRecipe"`
	Reasoning        string `json:"reasoning"`
}

func (r aiRecipe) toRecipe(source model.RecipeSource, now time.Time) *model.ExtractedRecipe {
	recipe := &model.ExtractedRecipe{
		Title:               toText(r.Title),
		Description:         model.StringPtr(toText(r.Description)),
		Ingredients:         make([]model.Ingredient, 0, len(r.Ingredients)),
		Instructions:        make([]string, 0, len(r.Instructions)),
		Servings:            model.StringPtr(toText(r.Servings)),
		PrepTime:            model.StringPtr(toText(r.PrepTime)),
		CookTime:            model.StringPtr(toText(r.CookTime)),
		Source:              source,
		ExtractionTimestamp: model.Timestamp(now),
	}

	for _, ing := range r.Ingredients {
		if i, ok := ing.toIngredient(); ok {
			recipe.Ingredients = append(recipe.Ingredients, i)
		}
	}
	recipe.Ingredients = DedupeIngredients(recipe.Ingredients)

	for _, step := range r.Instructions {
		if s := instructionText(step); s != "" {
			recipe.Instructions = append(recipe.Instructions, s)
		}
	}

	recipe.TotalTime = TotalTime(recipe.PrepTime, recipe.CookTime)
	recipe.Confidence = r.Confidence.toScore()
	return recipe
}

func (i aiIngredient) toIngredient() (model.Ingredient, bool) {
	out := model.Ingredient{
		Raw:         toText(i.Raw),
		Name:        toText(i.Name),
		Unit:        model.StringPtr(toText(i.Unit)),
		Preparation: model.StringPtr(toText(i.Preparation)),
		Notes:       model.StringPtr(toText(i.Notes)),
	}
	if q, ok := toFloat64(i.Quantity); ok {
		out.Quantity = &q
	}
	if out.Raw == "" {
		out.Raw = out.Name
	}
	if out.Name == "" {
		out.Name = out.Raw
	}
	return out, out.Raw != ""
}

// instructionText accepts a plain string or a {"text": ...} step object.
func instructionText(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case map[string]any:
		for _, k := range []string{"text", "step", "instruction"} {
			if t := toText(s[k]); t != "" {
				return t
			}
		}
	}
	return ""
}

func (c aiConfidence) toScore() model.ConfidenceScore {
	f := func(v any) float64 {
		n, _ := toFloat64(v)
		return Clamp01(n)
	}
	return model.ConfidenceScore{
		Overall:          f(c.Overall),
		Title:            f(c.Title),
		Ingredients:      f(c.Ingredients),
		Instructions:     f(c.Instructions),
		HasQuantities:    c.HasQuantities,
		HasSteps:         c.HasSteps,
		IsCompleteRecipe: c.IsCompleteRecipe,
		Reasoning:        strings.TrimSpace(c.Reasoning),
	}
}

// DedupeIngredients collapses ingredients sharing a normalized key. The
// first position is kept; the most specific mention's fields win.
func DedupeIngredients(in []model.Ingredient) []model.Ingredient {
	out := make([]model.Ingredient, 0, len(in))
	index := make(map[string]int, len(in))
	for _, ing := range in {
		key := ing.Key()
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			if specificity(ing) > specificity(out[i]) {
				out[i] = ing
			}
			continue
		}
		index[key] = len(out)
		out = append(out, ing)
	}
	return out
}

func specificity(i model.Ingredient) int {
	n := 0
	if i.Quantity != nil {
		n += 4
	}
	if i.Unit != nil {
		n += 2
	}
	if i.Preparation != nil {
		n++
	}
	if i.Notes != nil {
		n++
	}
	return n*1000 + len(i.Raw)
}
