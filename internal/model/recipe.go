package model

import (
	"strings"
	"time"
)

// RecipeSource names the strategy that produced an ExtractedRecipe.
type RecipeSource string

const (
	// SourceCaption is used for every text-based extraction, not only captions.
	SourceCaption    RecipeSource = "caption"
	SourceTranscript RecipeSource = "transcript"
	SourceVisual     RecipeSource = "visual"
	// SourceCombined is set only by the merge of a text and a visual result.
	SourceCombined RecipeSource = "combined"
)

// ConfidenceScore is the model's self-assessment of an extraction. It is
// produced fresh per attempt; merges build a new value.
type ConfidenceScore struct {
	Overall          float64 `json:"overall"`
	Title            float64 `json:"title"`
	Ingredients      float64 `json:"ingredients"`
	Instructions     float64 `json:"instructions"`
	HasQuantities    bool    `json:"hasQuantities"`
	HasSteps         bool    `json:"hasSteps"`
	IsCompleteRecipe bool    `json:"isCompleteRecipe"`
	Reasoning        string  `json:"reasoning"`
}

// Ingredient is a single ingredient line.
type Ingredient struct {
	Raw         string   `json:"raw"`
	Quantity    *float64 `json:"quantity"`
	Unit        *string  `json:"unit"`
	Name        string   `json:"name"`
	Preparation *string  `json:"preparation"`
	Notes       *string  `json:"notes"`
}

// Key returns the normalized form used for deduplication: the name (or raw
// text when the name is blank), lowercased with whitespace collapsed.
func (i Ingredient) Key() string {
	s := i.Name
	if strings.TrimSpace(s) == "" {
		s = i.Raw
	}
	return NormalizeText(s)
}

// ExtractedRecipe is the canonical output of every extraction strategy.
type ExtractedRecipe struct {
	Title               string          `json:"title"`
	Description         *string         `json:"description"`
	Ingredients         []Ingredient    `json:"ingredients"`
	Instructions        []string        `json:"instructions"`
	Servings            *string         `json:"servings"`
	PrepTime            *string         `json:"prepTime"`
	CookTime            *string         `json:"cookTime"`
	TotalTime           *string         `json:"totalTime"`
	Confidence          ConfidenceScore `json:"confidence"`
	Source              RecipeSource    `json:"source"`
	ExtractionTimestamp string          `json:"extractionTimestamp"`
}

// EmptyRecipe returns a zero-confidence recipe for the given source. Used
// when the model refuses or returns nothing usable.
func EmptyRecipe(source RecipeSource, reasoning string) *ExtractedRecipe {
	return &ExtractedRecipe{
		Ingredients:         []Ingredient{},
		Instructions:        []string{},
		Confidence:          ConfidenceScore{Reasoning: reasoning},
		Source:              source,
		ExtractionTimestamp: Timestamp(time.Now()),
	}
}

// Timestamp formats t as ISO-8601 in UTC with millisecond precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// NormalizeText lowercases s, collapses internal whitespace and trims it.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// StringPtr returns a pointer to s, or nil when s is blank.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
