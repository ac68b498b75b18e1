package visual

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/recipe-cli/internal/extract"
	"github.com/sells-group/recipe-cli/internal/resilience"
	"github.com/sells-group/recipe-cli/pkg/gemini"
)

// FrameAnalysis is what the vision model saw in a single frame.
type FrameAnalysis struct {
	FrameIndex     int      `json:"frameIndex"`
	Timestamp      float64  `json:"timestamp"`
	Stage          Stage    `json:"stage"`
	Observations   string   `json:"observations"`
	Ingredients    []string `json:"ingredients"`
	Actions        []string `json:"actions"`
	Equipment      []string `json:"equipment"`
	FoodState      string   `json:"foodState"`
	HasTextOverlay bool     `json:"hasTextOverlay"`
	TextOverlay    string   `json:"textOverlay"`
}

// AnalysisResult holds the analyses in frame order plus the indices of
// frames that exhausted their retries.
type AnalysisResult struct {
	Analyses []FrameAnalysis
	Failed   []int
}

const framePrompt = `You are looking at ONE still frame from a cooking video or post. Describe only what is visible in this single image. Do not guess what happens before or after it.

Report:
- ingredients: food items you can actually see (e.g. "shrimp", "spaghetti", "garlic")
- actions: cooking actions in progress (e.g. "sauteing garlic in butter")
- equipment: tools and cookware visible (e.g. "skillet", "wooden spoon")
- foodState: one of "raw", "cooking", "cooked", "plated"
- hasTextOverlay: true if on-screen text is present, with its content in textOverlay
- observations: one short sentence about the frame. If there is no food or cooking in the frame, say "no cooking content".

Respond with a single JSON object:
{"ingredients": [string], "actions": [string], "equipment": [string], "foodState": string, "hasTextOverlay": boolean, "textOverlay": string, "observations": string}`

// Analyzer asks a vision model about each frame, a batch at a time.
type Analyzer struct {
	client gemini.Client
	cfg    Config
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(client gemini.Client, cfg Config) *Analyzer {
	return &Analyzer{client: client, cfg: cfg.withDefaults(), sleep: resilience.Sleep}
}

// Analyze processes frames in batches of BatchSize. Frames within a batch
// run concurrently; a failing frame never cancels its batch-mates. Batches
// are separated by BatchDelay. Results come back sorted by frame index
// whatever order they completed in.
func (a *Analyzer) Analyze(ctx context.Context, frames []Frame) (*AnalysisResult, error) {
	type outcome struct {
		analysis *FrameAnalysis
		err      error
	}
	outcomes := make([]outcome, len(frames))

	for start := 0; start < len(frames); start += a.cfg.BatchSize {
		if start > 0 {
			if err := a.sleep(ctx, a.cfg.BatchDelay); err != nil {
				return nil, err
			}
		}
		end := min(start+a.cfg.BatchSize, len(frames))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				fa, err := a.analyzeWithRetry(ctx, frames[i])
				outcomes[i] = outcome{analysis: fa, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}

	res := &AnalysisResult{}
	for i, o := range outcomes {
		if o.err != nil {
			res.Failed = append(res.Failed, frames[i].Index)
			zap.L().Warn("visual: frame analysis failed",
				zap.Int("frame", frames[i].Index),
				zap.Error(o.err),
			)
			continue
		}
		res.Analyses = append(res.Analyses, *o.analysis)
	}
	sort.SliceStable(res.Analyses, func(i, j int) bool {
		return res.Analyses[i].FrameIndex < res.Analyses[j].FrameIndex
	})
	sort.Ints(res.Failed)

	zap.L().Info("visual: frame analysis complete",
		zap.Int("frames", len(frames)),
		zap.Int("analyzed", len(res.Analyses)),
		zap.Int("failed", len(res.Failed)),
	)
	return res, ctx.Err()
}

// analyzeWithRetry backs off exponentially on rate-limit errors and waits a
// flat RetryDelay on anything else.
func (a *Analyzer) analyzeWithRetry(ctx context.Context, f Frame) (*FrameAnalysis, error) {
	backoff := resilience.RetryConfig{BaseDelay: a.cfg.RateLimitBackoff, MaxDelay: a.cfg.MaxBackoff}

	var lastErr error
	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := a.cfg.RetryDelay
			if resilience.IsRateLimit(lastErr) {
				delay = resilience.Backoff(attempt-1, backoff)
			}
			zap.L().Debug("visual: retrying frame",
				zap.Int("frame", f.Index),
				zap.Int("retry", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := a.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		fa, err := a.analyzeFrame(ctx, f)
		if err == nil {
			return fa, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (a *Analyzer) analyzeFrame(ctx context.Context, f Frame) (*FrameAnalysis, error) {
	resp, err := a.client.Describe(ctx, framePrompt, f.Image)
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(a.client.Model(), "frame_analysis")

	fa := &FrameAnalysis{FrameIndex: f.Index, Timestamp: f.Timestamp, Stage: f.Stage}

	var raw struct {
		Ingredients    []string `json:"ingredients"`
		Actions        []string `json:"actions"`
		Equipment      []string `json:"equipment"`
		FoodState      string   `json:"foodState"`
		HasTextOverlay bool     `json:"hasTextOverlay"`
		TextOverlay    string   `json:"textOverlay"`
		Observations   string   `json:"observations"`
	}
	if err := extract.DecodeJSON(resp.Text, &raw); err != nil {
		// Keep the prose as the observation; the frame may still carry signal.
		fa.Observations = truncate(strings.TrimSpace(resp.Text), 300)
		return fa, nil
	}

	fa.Ingredients = cleanList(raw.Ingredients)
	fa.Actions = cleanList(raw.Actions)
	fa.Equipment = cleanList(raw.Equipment)
	fa.FoodState = strings.ToLower(strings.TrimSpace(raw.FoodState))
	fa.TextOverlay = strings.TrimSpace(raw.TextOverlay)
	fa.HasTextOverlay = raw.HasTextOverlay || fa.TextOverlay != ""
	fa.Observations = strings.TrimSpace(raw.Observations)
	return fa, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// describeFrames renders analyses for the consolidation prompt.
func describeFrames(analyses []FrameAnalysis) string {
	var b strings.Builder
	for _, fa := range analyses {
		fmt.Fprintf(&b, "Frame %d [%s, %.1fs]\n", fa.FrameIndex+1, fa.Stage, fa.Timestamp)
		if fa.Observations != "" {
			fmt.Fprintf(&b, "  Observations: %s\n", fa.Observations)
		}
		if len(fa.Ingredients) > 0 {
			fmt.Fprintf(&b, "  Ingredients: %s\n", strings.Join(fa.Ingredients, ", "))
		}
		if len(fa.Actions) > 0 {
			fmt.Fprintf(&b, "  Actions: %s\n", strings.Join(fa.Actions, ", "))
		}
		if len(fa.Equipment) > 0 {
			fmt.Fprintf(&b, "  Equipment: %s\n", strings.Join(fa.Equipment, ", "))
		}
		if fa.FoodState != "" {
			fmt.Fprintf(&b, "  Food state: %s\n", fa.FoodState)
		}
		if fa.TextOverlay != "" {
			fmt.Fprintf(&b, "  Text overlay: %q\n", fa.TextOverlay)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
