package model

// FallbackDecision is the confidence scorer's verdict for one extraction.
type FallbackDecision struct {
	ShouldFallback bool     `json:"shouldFallback"`
	Reason         string   `json:"reason"`
	MissingFields  []string `json:"missingFields"`
	Score          float64  `json:"score"`
}

// ContentSummary describes what acquisition produced.
type ContentSummary struct {
	Provider      string `json:"provider"`
	HasCaption    bool   `json:"hasCaption"`
	HasTranscript bool   `json:"hasTranscript"`
}

// ConfidenceSummary records overall confidence before and after fallback.
type ConfidenceSummary struct {
	Initial          float64          `json:"initial"`
	Final            float64          `json:"final"`
	FallbackDecision FallbackDecision `json:"fallbackDecision"`
}

// Timing records per-stage wall-clock durations in milliseconds.
// VisualExtractionMs is nil when the visual pipeline never ran.
type Timing struct {
	ContentAcquisitionMs int64  `json:"contentAcquisitionMs"`
	CaptionExtractionMs  int64  `json:"captionExtractionMs"`
	VisualExtractionMs   *int64 `json:"visualExtractionMs"`
	TotalMs              int64  `json:"totalMs"`
}

// ExtractionResult is returned by the orchestrator for a single URL.
type ExtractionResult struct {
	ID                 string            `json:"id"`
	Recipe             *ExtractedRecipe  `json:"recipe"`
	URL                string            `json:"url"`
	Platform           Platform          `json:"platform"`
	UsedVisualFallback bool              `json:"usedVisualFallback"`
	Content            ContentSummary    `json:"content"`
	Confidence         ConfidenceSummary `json:"confidence"`
	Timing             Timing            `json:"timing"`
}
