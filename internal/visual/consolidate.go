package visual

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/recipe-cli/internal/extract"
	"github.com/sells-group/recipe-cli/pkg/anthropic"
)

// Placeholder dish names. A recipe titled with one of these gets low title
// confidence.
const (
	DishCookingRecipe = "Cooking Recipe"
	DishUnknown       = "Unknown Dish"
)

const (
	deterministicConfidence = 0.4
	aiFailureConfidence     = 0.5
	actionSimilarity        = 0.6
)

// ConsolidatedExtraction is the visual pipeline's recipe before it is
// converted to the canonical recipe shape.
type ConsolidatedExtraction struct {
	DishName     string   `json:"dishName"`
	Ingredients  []string `json:"ingredients"`
	Steps        []string `json:"steps"`
	Equipment    []string `json:"equipment"`
	TextOverlays []string `json:"textOverlays"`
	Narrative    string   `json:"narrative"`
	Confidence   float64  `json:"confidence"`
}

// IsGenericName reports whether name is one of the placeholder dish names.
func IsGenericName(name string) bool {
	n := strings.TrimSpace(name)
	return n == "" || strings.EqualFold(n, DishCookingRecipe) || strings.EqualFold(n, DishUnknown)
}

var (
	noContentRe    = regexp.MustCompile(`(?i)\bno (cooking|food|recipe)\b|\bnot? (related to )?cooking\b|\bno visible food\b`)
	leadingArticle = regexp.MustCompile(`(?i)^(a|an|the|some)\s+`)
	wordRe         = regexp.MustCompile(`[a-z0-9]+`)
)

const consolidationPrompt = `You combine per-frame observations from a cooking video into one recipe.

Rules:
- Name ONE specific dish (e.g. "Garlic Butter Shrimp Pasta"), never a generic label.
- Deduplicate ingredients seen across frames; list each once.
- Order the steps as a cook would perform them, using the frame order and stage labels as a guide.
- Use only what the frames show. Do not invent quantities.

Respond with a single JSON object:
{"dishName": string, "ingredients": [string], "steps": [string], "equipment": [string], "textOverlays": [string], "narrative": string}`

// dishPatterns map ingredient keywords to a dish name. Each inner slice is a
// set of alternatives; every set must match. First match wins.
var dishPatterns = []struct {
	all  [][]string
	name string
}{
	{[][]string{{"pasta", "spaghetti", "linguine", "penne", "fettuccine"}, {"shrimp", "prawn"}}, "Shrimp Pasta"},
	{[][]string{{"pasta", "spaghetti", "linguine", "penne", "fettuccine"}, {"chicken"}}, "Chicken Pasta"},
	{[][]string{{"pasta", "spaghetti", "linguine", "penne", "fettuccine"}, {"tomato", "marinara"}}, "Tomato Pasta"},
	{[][]string{{"rice"}, {"egg"}, {"soy sauce", "scallion", "green onion"}}, "Fried Rice"},
	{[][]string{{"tortilla", "taco shell"}, {"beef", "chicken", "pork", "fish", "shrimp"}}, "Tacos"},
	{[][]string{{"noodle", "ramen", "udon"}, {"broth", "stock"}}, "Noodle Soup"},
	{[][]string{{"bread", "toast"}, {"cheese"}}, "Grilled Cheese"},
	{[][]string{{"lettuce", "greens", "spinach", "arugula"}, {"dressing", "vinaigrette", "tomato", "cucumber"}}, "Salad"},
	{[][]string{{"flour"}, {"sugar"}, {"egg"}, {"butter", "oil"}}, "Cake"},
	{[][]string{{"flour"}, {"yeast"}}, "Bread"},
	{[][]string{{"egg"}, {"cheese"}}, "Omelette"},
	{[][]string{{"banana", "berries", "strawberry", "mango"}, {"yogurt", "milk"}}, "Smoothie"},
	{[][]string{{"salmon"}}, "Salmon"},
	{[][]string{{"steak"}}, "Steak"},
	{[][]string{{"pasta", "spaghetti", "linguine", "penne", "fettuccine"}}, "Pasta"},
	{[][]string{{"chicken"}}, "Chicken Dish"},
}

// Consolidator merges frame analyses into one ConsolidatedExtraction.
type Consolidator struct {
	client anthropic.Client
	cfg    Config
}

// NewConsolidator creates a Consolidator. client may be nil, in which case
// only the deterministic pass runs.
func NewConsolidator(client anthropic.Client, cfg Config) *Consolidator {
	return &Consolidator{client: client, cfg: cfg.withDefaults()}
}

// Consolidate never fails: AI errors degrade to the deterministic result.
func (c *Consolidator) Consolidate(ctx context.Context, analyses []FrameAnalysis) *ConsolidatedExtraction {
	valid := filterSignal(analyses)
	if len(valid) == 0 {
		return &ConsolidatedExtraction{
			DishName:     DishUnknown,
			Ingredients:  []string{},
			Steps:        []string{},
			Equipment:    []string{},
			TextOverlays: []string{},
			Narrative:    fmt.Sprintf("No cooking content detected in %d analyzed frames", len(analyses)),
			Confidence:   0,
		}
	}

	basic := Deterministic(valid)
	if len(basic.Ingredients) < 2 && len(basic.Steps) < 2 {
		basic.Confidence = deterministicConfidence
		return basic
	}
	if c.client == nil {
		basic.Confidence = aiFailureConfidence
		return basic
	}

	out, err := c.consolidateAI(ctx, valid)
	if err != nil {
		zap.L().Warn("visual: consolidation fell back to deterministic result", zap.Error(err))
		basic.Confidence = aiFailureConfidence
		return basic
	}
	out.Confidence = aiConfidence(out, len(analyses))
	return out
}

func (c *Consolidator) consolidateAI(ctx context.Context, valid []FrameAnalysis) (*ConsolidatedExtraction, error) {
	temp := 0.2
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.ConsolidationModel,
		MaxTokens: c.cfg.ConsolidationMaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(consolidationPrompt),
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: "Frame analyses in video order:\n\n" + describeFrames(valid),
		}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "visual: consolidation call")
	}
	resp.Usage.LogCost(c.cfg.ConsolidationModel, "visual_consolidation")

	if resp.Refused() {
		return nil, eris.New("visual: consolidation refused")
	}

	var out ConsolidatedExtraction
	if err := extract.DecodeJSON(resp.Text(), &out); err != nil {
		return nil, eris.Wrap(err, "visual: decode consolidation")
	}
	out.DishName = normalizeDishName(out.DishName)
	out.Ingredients = dedupeFold(out.Ingredients, stripArticle)
	out.Steps = cleanList(out.Steps)
	out.Equipment = dedupeFold(out.Equipment, strings.ToLower)
	out.TextOverlays = dedupeFold(out.TextOverlays, strings.TrimSpace)
	if len(out.Ingredients) == 0 && len(out.Steps) == 0 {
		return nil, eris.New("visual: consolidation returned no ingredients or steps")
	}
	return &out, nil
}

// aiConfidence is a heuristic over what the AI pass produced plus how many
// frames were analyzed.
func aiConfidence(out *ConsolidatedExtraction, frames int) float64 {
	conf := 0.5
	if len(out.Ingredients) >= 3 {
		conf += 0.15
	}
	if len(out.Ingredients) >= 5 {
		conf += 0.1
	}
	if len(out.Steps) >= 3 {
		conf += 0.1
	}
	if !IsGenericName(out.DishName) {
		conf += 0.1
	}
	conf += 0.1 * min(float64(frames)/8, 1)
	return extract.Clamp01(conf)
}

// filterSignal drops frames that saw nothing recipe-related.
func filterSignal(analyses []FrameAnalysis) []FrameAnalysis {
	out := make([]FrameAnalysis, 0, len(analyses))
	for _, fa := range analyses {
		empty := len(fa.Ingredients) == 0 && len(fa.Actions) == 0
		if empty && (strings.TrimSpace(fa.Observations) == "" || noContentRe.MatchString(fa.Observations)) {
			continue
		}
		out = append(out, fa)
	}
	return out
}

// Deterministic consolidates without any model call. Confidence is left
// for the caller to set.
func Deterministic(analyses []FrameAnalysis) *ConsolidatedExtraction {
	var ingredients, equipment, overlays, observations []string
	var steps []string

	for _, fa := range analyses {
		ingredients = append(ingredients, fa.Ingredients...)
		equipment = append(equipment, fa.Equipment...)
		if fa.TextOverlay != "" {
			overlays = append(overlays, fa.TextOverlay)
		}
		if fa.Observations != "" {
			observations = append(observations, fa.Observations)
		}
		for _, act := range fa.Actions {
			act = capitalize(strings.TrimSpace(act))
			if act == "" {
				continue
			}
			if len(steps) > 0 && WordOverlap(steps[len(steps)-1], act) > actionSimilarity {
				continue
			}
			steps = append(steps, act)
		}
	}

	out := &ConsolidatedExtraction{
		Ingredients:  dedupeFold(ingredients, stripArticle),
		Steps:        steps,
		Equipment:    dedupeFold(equipment, strings.ToLower),
		TextOverlays: dedupeFold(overlays, strings.TrimSpace),
	}
	if out.Steps == nil {
		out.Steps = []string{}
	}
	out.DishName = inferDishName(out.Ingredients)
	out.Narrative = fmt.Sprintf("Observed %d ingredients and %d actions across %d frames. %s",
		len(out.Ingredients), len(out.Steps), len(analyses), strings.Join(observations, " "))
	out.Narrative = strings.TrimSpace(out.Narrative)
	return out
}

func inferDishName(ingredients []string) string {
	if len(ingredients) == 0 {
		return DishUnknown
	}
	joined := strings.ToLower(strings.Join(ingredients, " | "))
	for _, p := range dishPatterns {
		if matchesAll(joined, p.all) {
			return p.name
		}
	}
	return DishCookingRecipe
}

func matchesAll(text string, groups [][]string) bool {
	for _, alts := range groups {
		hit := false
		for _, kw := range alts {
			if strings.Contains(text, kw) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// WordOverlap is |A∩B| / max(|A|,|B|) over the lowercase word sets of a and b.
func WordOverlap(a, b string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	shared := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(max(len(wa), len(wb)))
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		set[w] = struct{}{}
	}
	return set
}

// dedupeFold keeps the first occurrence of each item, compared
// case-insensitively after norm is applied.
func dedupeFold(in []string, norm func(string) string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(norm(strings.TrimSpace(s)))
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func stripArticle(s string) string {
	return leadingArticle.ReplaceAllString(s, "")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func normalizeDishName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DishUnknown
	}
	if name == strings.ToLower(name) || name == strings.ToUpper(name) {
		// A Caser holds state and is not safe for concurrent use.
		return cases.Title(language.English).String(strings.ToLower(name))
	}
	return name
}
