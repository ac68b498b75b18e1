// Package scorer decides, from a recipe's self-reported confidence, whether
// the cheaper text extraction is good enough or the visual fallback should
// run. Everything here is pure and deterministic given its configuration.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recipe-cli/internal/config"
)

// DefaultScorerConfig returns a config.ScorerConfig with sensible defaults.
func DefaultScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{
		OverallThreshold:     0.7,
		IngredientThreshold:  0.6,
		InstructionThreshold: 0.6,
		RequireQuantities:    false,
		RequireSteps:         true,
	}
}

// ValidateConfig checks that every threshold lies in [0, 1].
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	thresholds := []struct {
		name string
		v    float64
	}{
		{"overall_threshold", c.OverallThreshold},
		{"ingredient_threshold", c.IngredientThreshold},
		{"instruction_threshold", c.InstructionThreshold},
	}
	for _, th := range thresholds {
		if th.v < 0 || th.v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 1, got %.2f", th.name, th.v))
		}
	}

	if len(errs) > 0 {
		return eris.New("scorer config: " + strings.Join(errs, "; "))
	}
	return nil
}
