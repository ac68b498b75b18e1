package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/recipe-cli/internal/config"
	"github.com/sells-group/recipe-cli/internal/model"
)

// Field names reported by MissingFields.
const (
	FieldOverall      = "overall"
	FieldIngredients  = "ingredients"
	FieldInstructions = "instructions"
	FieldQuantities   = "quantities"
	FieldSteps        = "steps"
)

const (
	weightOverall      = 0.4
	weightIngredients  = 0.3
	weightInstructions = 0.3
	requirementPenalty = 0.1
)

// Scorer evaluates confidence reports against configured thresholds.
type Scorer struct {
	cfg config.ScorerConfig
}

// New creates a Scorer. Pass DefaultScorerConfig() for the standard thresholds.
func New(cfg config.ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the thresholds in use.
func (s *Scorer) Config() config.ScorerConfig {
	return s.cfg
}

// QualityScore is the weighted composite 0.4*overall + 0.3*ingredients +
// 0.3*instructions, less 0.1 for each failed required flag, clamped to [0, 1].
func (s *Scorer) QualityScore(c model.ConfidenceScore) float64 {
	score := weightOverall*c.Overall +
		weightIngredients*c.Ingredients +
		weightInstructions*c.Instructions

	if s.cfg.RequireQuantities && !c.HasQuantities {
		score -= requirementPenalty
	}
	if s.cfg.RequireSteps && !c.HasSteps {
		score -= requirementPenalty
	}
	return math.Max(0, math.Min(1, score))
}

// MissingFields lists the fields whose confidence is strictly below its
// threshold, plus quantities/steps when a required flag fails. Title
// confidence is informational and never reported.
func (s *Scorer) MissingFields(c model.ConfidenceScore) []string {
	missing := []string{}
	if c.Overall < s.cfg.OverallThreshold {
		missing = append(missing, FieldOverall)
	}
	if c.Ingredients < s.cfg.IngredientThreshold {
		missing = append(missing, FieldIngredients)
	}
	if c.Instructions < s.cfg.InstructionThreshold {
		missing = append(missing, FieldInstructions)
	}
	if s.cfg.RequireQuantities && !c.HasQuantities {
		missing = append(missing, FieldQuantities)
	}
	if s.cfg.RequireSteps && !c.HasSteps {
		missing = append(missing, FieldSteps)
	}
	return missing
}

// IsComplete reports whether the model called the recipe complete and every
// threshold holds.
func (s *Scorer) IsComplete(c model.ConfidenceScore) bool {
	return c.IsCompleteRecipe &&
		c.Overall >= s.cfg.OverallThreshold &&
		len(s.MissingFields(c)) == 0
}

// Evaluate produces the fallback decision for one confidence report.
func (s *Scorer) Evaluate(c model.ConfidenceScore) model.FallbackDecision {
	missing := s.MissingFields(c)
	score := s.QualityScore(c)

	// IsComplete already covers missing fields; the second check is kept
	// so the decision never depends on that coupling.
	shouldFallback := !s.IsComplete(c) || len(missing) > 0

	var reason string
	switch {
	case !shouldFallback:
		reason = "Extraction meets thresholds"
	case !c.IsCompleteRecipe:
		reason = "Recipe is not complete enough to follow"
	case len(missing) > 0:
		reason = "Weak confidence in: " + strings.Join(missing, ", ")
	default:
		reason = fmt.Sprintf("Quality score %.2f below threshold", score)
	}

	return model.FallbackDecision{
		ShouldFallback: shouldFallback,
		Reason:         reason,
		MissingFields:  missing,
		Score:          score,
	}
}

// Recommendation renders a decision as a one-line, human-readable hint.
func Recommendation(d model.FallbackDecision) string {
	switch {
	case !d.ShouldFallback:
		return fmt.Sprintf("Text extraction is sufficient (score %.2f); no visual fallback needed.", d.Score)
	case len(d.MissingFields) == 0:
		return fmt.Sprintf("Visual fallback recommended: %s (score %.2f).", d.Reason, d.Score)
	default:
		return fmt.Sprintf("Visual fallback recommended to improve %s (score %.2f).",
			strings.Join(d.MissingFields, ", "), d.Score)
	}
}
