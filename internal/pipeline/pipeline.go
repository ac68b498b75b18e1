// Package pipeline sequences acquisition, text extraction, confidence
// scoring and the optional visual fallback into one extraction call.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-cli/internal/model"
	"github.com/sells-group/recipe-cli/internal/scorer"
	"github.com/sells-group/recipe-cli/internal/visual"
)

// Acquirer fetches raw post content.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (*model.AcquiredContent, error)
}

// TextExtractor turns post text into a recipe.
type TextExtractor interface {
	Extract(ctx context.Context, text string) (*model.ExtractedRecipe, error)
}

// VisualExtractor recovers a recipe from video frames or post images.
type VisualExtractor interface {
	ExtractFromVideo(ctx context.Context, videoURL string) (*visual.Result, error)
	ExtractFromImages(ctx context.Context, imageURLs []string) (*visual.Result, error)
}

// Options toggles the visual fallback.
type Options struct {
	VisualEnabled bool
	// IncludeImages lets photo and slideshow posts use the visual fallback
	// with their image URLs as frames.
	IncludeImages bool
}

// Pipeline runs one extraction per call. It holds no per-call state, so a
// single Pipeline may serve concurrent calls.
type Pipeline struct {
	acquirer Acquirer
	text     TextExtractor
	scorer   *scorer.Scorer
	visual   VisualExtractor
	opts     Options
	now      func() time.Time
}

// New creates a Pipeline. vis may be nil, which disables the visual fallback.
func New(acq Acquirer, text TextExtractor, sc *scorer.Scorer, vis VisualExtractor, opts Options) *Pipeline {
	if sc == nil {
		sc = scorer.New(scorer.DefaultScorerConfig())
	}
	return &Pipeline{
		acquirer: acq,
		text:     text,
		scorer:   sc,
		visual:   vis,
		opts:     opts,
		now:      time.Now,
	}
}

// Extract runs the full chain for url. Acquisition and text-extraction
// errors are terminal; a failed or unusable visual fallback is logged and
// the text result is returned unchanged.
func (p *Pipeline) Extract(ctx context.Context, url string) (*model.ExtractionResult, error) {
	id := uuid.NewString()
	log := zap.L().With(zap.String("extraction_id", id), zap.String("url", url))
	log.Info("pipeline: starting extraction")
	start := time.Now()

	// Acquire.
	acqStart := time.Now()
	content, err := p.acquirer.Acquire(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: acquire content")
	}
	acqMs := time.Since(acqStart).Milliseconds()
	log.Info("pipeline: content acquired",
		zap.String("provider", content.Provider),
		zap.String("platform", string(content.Platform)),
		zap.String("content_type", string(content.ContentType)),
		zap.Bool("has_caption", content.HasCaption()),
		zap.Bool("has_transcript", content.HasTranscript()),
		zap.Float64("video_secs", content.Duration()),
		zap.Int64("duration_ms", acqMs),
	)

	// Text extraction.
	textStart := time.Now()
	recipe, err := p.text.Extract(ctx, BuildTextBlob(content))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: text extraction")
	}
	textMs := time.Since(textStart).Milliseconds()
	initial := recipe.Confidence.Overall

	decision := p.scorer.Evaluate(recipe.Confidence)
	log.Info("pipeline: confidence evaluated",
		zap.Float64("overall", initial),
		zap.Float64("score", decision.Score),
		zap.Bool("should_fallback", decision.ShouldFallback),
		zap.Strings("missing", decision.MissingFields),
		zap.String("recommendation", scorer.Recommendation(decision)),
	)

	result := &model.ExtractionResult{
		ID:       id,
		URL:      url,
		Platform: content.Platform,
		Content: model.ContentSummary{
			Provider:      content.Provider,
			HasCaption:    content.HasCaption(),
			HasTranscript: content.HasTranscript(),
		},
		Timing: model.Timing{
			ContentAcquisitionMs: acqMs,
			CaptionExtractionMs:  textMs,
		},
	}

	// Visual fallback.
	if decision.ShouldFallback && p.visualEligible(content) {
		visStart := time.Now()
		vr, visErr := p.runVisual(ctx, content)
		visMs := time.Since(visStart).Milliseconds()
		result.Timing.VisualExtractionMs = &visMs

		switch {
		case visErr != nil:
			log.Warn("pipeline: visual fallback failed, keeping text result",
				zap.Bool("retryable", visual.IsRetryable(visErr)),
				zap.Error(visErr),
			)
		case !vr.Usable:
			log.Info("pipeline: visual result unusable, keeping text result",
				zap.Int("frames_analyzed", vr.FramesAnalyzed),
				zap.Float64("visual_confidence", vr.Recipe.Confidence.Overall),
			)
		default:
			recipe = Merge(recipe, vr.Recipe, p.now())
			result.UsedVisualFallback = true
			log.Info("pipeline: merged visual result",
				zap.Float64("visual_confidence", vr.Recipe.Confidence.Overall),
				zap.Float64("final_confidence", recipe.Confidence.Overall),
			)
		}
	}

	result.Recipe = recipe
	result.Confidence = model.ConfidenceSummary{
		Initial:          initial,
		Final:            recipe.Confidence.Overall,
		FallbackDecision: decision,
	}
	result.Timing.TotalMs = time.Since(start).Milliseconds()

	log.Info("pipeline: extraction complete",
		zap.String("title", recipe.Title),
		zap.String("source", string(recipe.Source)),
		zap.Bool("used_visual_fallback", result.UsedVisualFallback),
		zap.Int64("total_ms", result.Timing.TotalMs),
	)
	return result, nil
}

func (p *Pipeline) visualEligible(c *model.AcquiredContent) bool {
	if !p.opts.VisualEnabled || p.visual == nil {
		return false
	}
	if c.ContentType.IsVideo() {
		return true
	}
	return p.opts.IncludeImages && c.ContentType.IsImageBased() && len(c.ImageURLs) > 0
}

func (p *Pipeline) runVisual(ctx context.Context, c *model.AcquiredContent) (*visual.Result, error) {
	if c.ContentType.IsVideo() {
		src := c.VideoURL
		if src == "" {
			src = c.URL
		}
		return p.visual.ExtractFromVideo(ctx, src)
	}
	return p.visual.ExtractFromImages(ctx, c.ImageURLs)
}

// BuildTextBlob labels and concatenates the post's text fields in the order
// title, caption, transcript, description. The description is skipped when
// it repeats the caption.
func BuildTextBlob(c *model.AcquiredContent) string {
	var parts []string
	add := func(label, text string) {
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, label+":\n"+text)
		}
	}

	add("Title", c.Title)
	add("Caption", c.Caption)
	add("Transcript", c.Transcript)
	if model.NormalizeText(c.Description) != model.NormalizeText(c.Caption) {
		add("Description", c.Description)
	}
	return strings.Join(parts, "\n\n")
}
