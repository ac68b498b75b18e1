package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/recipe-cli/internal/model"
	"github.com/sells-group/recipe-cli/internal/resilience"
)

const (
	legacyUserAgent = "Mozilla/5.0 (compatible; recipe-cli/1.0)"
	maxPageBytes    = 5 << 20
)

// OpenGraphParser is the legacy fallback: a plain page fetch reading
// OpenGraph and Twitter meta tags, plus any schema.org Recipe JSON-LD.
type OpenGraphParser struct {
	http *http.Client
}

// NewOpenGraphParser creates a parser with the given request timeout.
func NewOpenGraphParser(timeout time.Duration) *OpenGraphParser {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenGraphParser{http: &http.Client{Timeout: timeout}}
}

// Func returns the parser as a LegacyFunc.
func (p *OpenGraphParser) Func() LegacyFunc {
	return p.Parse
}

// Parse fetches rawURL and builds content from its meta tags.
func (p *OpenGraphParser) Parse(ctx context.Context, rawURL string) (*model.AcquiredContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, NewError(model.ProviderLegacy, rawURL, false, eris.Wrap(err, "create request"))
	}
	req.Header.Set("User-Agent", legacyUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, NewError(model.ProviderLegacy, rawURL, resilience.IsTransient(err), eris.Wrap(err, "fetch page"))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewError(model.ProviderLegacy, rawURL,
			resilience.IsTransientHTTPStatus(resp.StatusCode),
			eris.New(fmt.Sprintf("fetch page: HTTP %d", resp.StatusCode)))
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, NewError(model.ProviderLegacy, rawURL, false, eris.Wrap(err, "parse html"))
	}

	return parseDocument(doc, rawURL), nil
}

func parseDocument(doc *goquery.Document, rawURL string) *model.AcquiredContent {
	platform := DetectPlatform(rawURL)
	content := &model.AcquiredContent{
		URL:          rawURL,
		Platform:     platform,
		ContentType:  DetectContentType(rawURL, platform),
		Provider:     model.ProviderLegacy,
		Title:        metaContent(doc, "og:title", "twitter:title"),
		Caption:      metaContent(doc, "og:description", "twitter:description", "description"),
		ThumbnailURL: metaContent(doc, "og:image", "twitter:image"),
		VideoURL:     metaContent(doc, "og:video", "og:video:url", "og:video:secure_url", "twitter:player:stream"),
	}
	if content.Title == "" {
		content.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if content.ThumbnailURL != "" && !content.ContentType.IsVideo() {
		content.ImageURLs = []string{content.ThumbnailURL}
	}
	if content.VideoURL != "" && !content.ContentType.IsVideo() && platform != model.PlatformCookingWebsite {
		content.ContentType = model.ContentTypeVideo
	}

	if recipe := recipeJSONLD(doc); recipe != "" {
		content.Description = recipe
	}
	return content
}

// metaContent returns the first non-empty content of the named meta tags,
// matching either property= or name=.
func metaContent(doc *goquery.Document, names ...string) string {
	for _, name := range names {
		for _, attr := range []string{"property", "name"} {
			sel := doc.Find(fmt.Sprintf(`meta[%s=%q]`, attr, name)).First()
			if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// ldRecipe is the subset of a schema.org Recipe that carries recipe text.
type ldRecipe struct {
	Type               any               `json:"@type"`
	Name               string            `json:"name"`
	RecipeYield        any               `json:"recipeYield"`
	RecipeIngredient   []string          `json:"recipeIngredient"`
	RecipeInstructions json.RawMessage   `json:"recipeInstructions"`
	Graph              []json.RawMessage `json:"@graph"`
}

// recipeJSONLD renders the first Recipe found in JSON-LD blocks as labeled
// plain text, or "" when the page has none.
func recipeJSONLD(doc *goquery.Document) string {
	var out string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := []byte(strings.TrimSpace(s.Text()))
		if r := findRecipe(raw); r != nil {
			out = renderRecipe(r)
		}
		return out == ""
	})
	return out
}

func findRecipe(raw []byte) *ldRecipe {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if r := findRecipe(item); r != nil {
				return r
			}
		}
		return nil
	}

	var r ldRecipe
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil
	}
	if isRecipeType(r.Type) {
		return &r
	}
	for _, item := range r.Graph {
		if found := findRecipe(item); found != nil {
			return found
		}
	}
	return nil
}

func isRecipeType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Recipe"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func renderRecipe(r *ldRecipe) string {
	var b strings.Builder
	if r.Name != "" {
		b.WriteString("Recipe: " + r.Name + "\n")
	}
	switch y := r.RecipeYield.(type) {
	case string:
		b.WriteString("Servings: " + y + "\n")
	case []any:
		if len(y) > 0 {
			b.WriteString(fmt.Sprintf("Servings: %v\n", y[0]))
		}
	case float64:
		b.WriteString(fmt.Sprintf("Servings: %g\n", y))
	}
	if len(r.RecipeIngredient) > 0 {
		b.WriteString("Ingredients:\n")
		for _, ing := range r.RecipeIngredient {
			b.WriteString("- " + strings.TrimSpace(ing) + "\n")
		}
	}
	if steps := instructionSteps(r.RecipeInstructions); len(steps) > 0 {
		b.WriteString("Instructions:\n")
		for i, step := range steps {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
		}
	}
	return strings.TrimSpace(b.String())
}

// instructionSteps flattens recipeInstructions, which may be a string, a
// list of strings, HowToStep objects, or HowToSection objects.
func instructionSteps(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		var out []string
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var step struct {
			Text            string          `json:"text"`
			ItemListElement json.RawMessage `json:"itemListElement"`
		}
		if err := json.Unmarshal(item, &step); err != nil {
			continue
		}
		if t := strings.TrimSpace(step.Text); t != "" {
			out = append(out, t)
		}
		out = append(out, instructionSteps(step.ItemListElement)...)
	}
	return out
}
