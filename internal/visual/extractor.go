package visual

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-cli/internal/model"
	"github.com/sells-group/recipe-cli/pkg/anthropic"
	"github.com/sells-group/recipe-cli/pkg/gemini"
)

const (
	minAnalyzedFrames = 2
	minUsableConf     = 0.3
)

// Result is the outcome of one visual extraction. Unusable results are
// returned rather than raised so the caller decides what to do with them.
type Result struct {
	Recipe         *model.ExtractedRecipe  `json:"recipe"`
	Consolidated   *ConsolidatedExtraction `json:"consolidated"`
	FramesSampled  int                     `json:"framesSampled"`
	FramesAnalyzed int                     `json:"framesAnalyzed"`
	FailedFrames   []int                   `json:"failedFrames"`
	Usable         bool                    `json:"usable"`
}

// Extractor runs sampling, per-frame analysis and consolidation in order.
type Extractor struct {
	sampler      *Sampler
	analyzer     *Analyzer
	consolidator *Consolidator
	cfg          Config
}

// NewExtractor wires the three stages.
func NewExtractor(media MediaTool, vision gemini.Client, ai anthropic.Client, cfg Config) *Extractor {
	cfg = cfg.withDefaults()
	return &Extractor{
		sampler:      NewSampler(media, cfg),
		analyzer:     NewAnalyzer(vision, cfg),
		consolidator: NewConsolidator(ai, cfg),
		cfg:          cfg,
	}
}

// ExtractFromVideo samples frames from the video and extracts a recipe.
func (e *Extractor) ExtractFromVideo(ctx context.Context, videoURL string) (*Result, error) {
	start := time.Now()
	frames, err := e.sampler.Sample(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	zap.L().Info("visual: frames sampled",
		zap.String("url", videoURL),
		zap.Int("frames", len(frames)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return e.run(ctx, frames)
}

// ExtractFromImages treats the images as frames and skips sampling.
func (e *Extractor) ExtractFromImages(ctx context.Context, imageURLs []string) (*Result, error) {
	if len(imageURLs) == 0 {
		return nil, eris.New("visual: no images to analyze")
	}
	return e.run(ctx, ImageFrames(imageURLs, e.cfg.MaxFrames))
}

func (e *Extractor) run(ctx context.Context, frames []Frame) (*Result, error) {
	analysis, err := e.analyzer.Analyze(ctx, frames)
	if err != nil {
		return nil, eris.Wrap(err, "visual: analyze frames")
	}

	consolidated := e.consolidator.Consolidate(ctx, analysis.Analyses)
	res := &Result{
		Recipe:         ToRecipe(consolidated, time.Now()),
		Consolidated:   consolidated,
		FramesSampled:  len(frames),
		FramesAnalyzed: len(analysis.Analyses),
		FailedFrames:   analysis.Failed,
	}
	res.Usable = res.FramesAnalyzed >= minAnalyzedFrames &&
		(len(consolidated.Ingredients) > 0 || len(consolidated.Steps) > 0) &&
		consolidated.Confidence >= minUsableConf

	zap.L().Info("visual: extraction complete",
		zap.String("dish", consolidated.DishName),
		zap.Int("ingredients", len(consolidated.Ingredients)),
		zap.Int("steps", len(consolidated.Steps)),
		zap.Float64("confidence", consolidated.Confidence),
		zap.Bool("usable", res.Usable),
	)
	return res, nil
}

// ToRecipe converts a consolidation into a recipe with source visual and
// synthetic confidence sub-scores. Quantities are never claimed: frames
// cannot show them reliably.
func ToRecipe(c *ConsolidatedExtraction, now time.Time) *model.ExtractedRecipe {
	titleConf := 0.3
	if !IsGenericName(c.DishName) {
		titleConf = 0.8
	}

	ingredients := make([]model.Ingredient, 0, len(c.Ingredients))
	for _, name := range c.Ingredients {
		ingredients = append(ingredients, model.Ingredient{Raw: name, Name: name})
	}
	steps := append([]string{}, c.Steps...)

	return &model.ExtractedRecipe{
		Title:        c.DishName,
		Description:  model.StringPtr(c.Narrative),
		Ingredients:  ingredients,
		Instructions: steps,
		Confidence: model.ConfidenceScore{
			Overall:          c.Confidence,
			Title:            titleConf,
			Ingredients:      min(float64(len(ingredients))/5, 1),
			Instructions:     min(float64(len(steps))/4, 1),
			HasQuantities:    false,
			HasSteps:         len(steps) > 0,
			IsCompleteRecipe: len(ingredients) >= 2 && len(steps) >= 2,
			Reasoning: fmt.Sprintf("Visual extraction: %d ingredients and %d steps identified from video frames",
				len(ingredients), len(steps)),
		},
		Source:              model.SourceVisual,
		ExtractionTimestamp: model.Timestamp(now),
	}
}
