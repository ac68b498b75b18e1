package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/recipe-cli/internal/model"
	"github.com/sells-group/recipe-cli/internal/visual"
)

const (
	placeholderTitle      = "Unknown"
	fallbackTitle         = "Unknown Recipe"
	trustedTitleConf      = 0.6
	instructionSimilarity = 0.7
)

// Merge combines a text-derived primary recipe with a visual secondary.
// Primary content always comes first; secondary only fills gaps or adds
// what primary lacks. The result is a new recipe with source combined.
func Merge(primary, secondary *model.ExtractedRecipe, now time.Time) *model.ExtractedRecipe {
	out := &model.ExtractedRecipe{
		Title:               mergeTitle(primary, secondary),
		Description:         firstNonNil(primary.Description, secondary.Description),
		Ingredients:         mergeIngredients(primary.Ingredients, secondary.Ingredients),
		Instructions:        mergeInstructions(primary.Instructions, secondary.Instructions),
		Servings:            firstNonNil(primary.Servings, secondary.Servings),
		PrepTime:            firstNonNil(primary.PrepTime, secondary.PrepTime),
		CookTime:            firstNonNil(primary.CookTime, secondary.CookTime),
		TotalTime:           firstNonNil(primary.TotalTime, secondary.TotalTime),
		Confidence:          mergeConfidence(primary.Confidence, secondary.Confidence),
		Source:              model.SourceCombined,
		ExtractionTimestamp: model.Timestamp(now),
	}
	return out
}

func mergeTitle(primary, secondary *model.ExtractedRecipe) string {
	pt := strings.TrimSpace(primary.Title)
	st := strings.TrimSpace(secondary.Title)

	switch {
	case pt != "" && pt != placeholderTitle && primary.Confidence.Title >= trustedTitleConf:
		return pt
	case st != "" && secondary.Confidence.Title > primary.Confidence.Title:
		return st
	case pt != "":
		return pt
	case st != "":
		return st
	default:
		return fallbackTitle
	}
}

func mergeIngredients(primary, secondary []model.Ingredient) []model.Ingredient {
	out := make([]model.Ingredient, 0, len(primary)+len(secondary))
	seen := make(map[string]bool, len(primary)+len(secondary))
	for _, ing := range primary {
		seen[ing.Key()] = true
		out = append(out, ing)
	}
	for _, ing := range secondary {
		key := ing.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ing)
	}
	return out
}

func mergeInstructions(primary, secondary []string) []string {
	out := make([]string, 0, len(primary)+len(secondary))
	seen := map[string]bool{}

	for _, step := range primary {
		key := strings.ToLower(strings.TrimSpace(step))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, step)
	}

	for _, step := range secondary {
		key := strings.ToLower(strings.TrimSpace(step))
		if key == "" || seen[key] || similarToAny(step, out) {
			continue
		}
		seen[key] = true
		out = append(out, step)
	}
	return out
}

func similarToAny(step string, steps []string) bool {
	for _, s := range steps {
		if visual.WordOverlap(step, s) > instructionSimilarity {
			return true
		}
	}
	return false
}

func mergeConfidence(p, s model.ConfidenceScore) model.ConfidenceScore {
	return model.ConfidenceScore{
		Overall:          max(p.Overall, s.Overall),
		Title:            max(p.Title, s.Title),
		Ingredients:      max(p.Ingredients, s.Ingredients),
		Instructions:     max(p.Instructions, s.Instructions),
		HasQuantities:    p.HasQuantities || s.HasQuantities,
		HasSteps:         p.HasSteps || s.HasSteps,
		IsCompleteRecipe: p.IsCompleteRecipe || s.IsCompleteRecipe,
		Reasoning: fmt.Sprintf("Combined text (%.2f) and visual (%.2f) extraction",
			p.Overall, s.Overall),
	}
}

func firstNonNil(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}
