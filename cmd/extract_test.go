package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/recipe-cli/internal/model"
)

func sampleResult() *model.ExtractionResult {
	visMs := int64(1200)
	return &model.ExtractionResult{
		ID:       "4f1c",
		URL:      "https://www.tiktok.com/@chef/video/1",
		Platform: model.PlatformTikTok,
		Recipe: &model.ExtractedRecipe{
			Title:        "Garlic Shrimp",
			Ingredients:  []model.Ingredient{{Raw: "1 lb shrimp", Name: "shrimp"}},
			Instructions: []string{"Sear the shrimp"},
			Servings:     model.StringPtr("2"),
			Source:       model.SourceCombined,
		},
		UsedVisualFallback: true,
		Timing:             model.Timing{TotalMs: 2500, VisualExtractionMs: &visMs},
	}
}

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, sampleResult(), "json"))

	var got model.ExtractionResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Garlic Shrimp", got.Recipe.Title)
	assert.True(t, got.UsedVisualFallback)
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"id\""))
}

func TestWriteOutput_YAMLKeepsJSONKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, sampleResult(), "yaml"))
	out := buf.String()

	// Keys follow the JSON field order and names.
	assert.True(t, strings.HasPrefix(out, "id: 4f1c\nrecipe:\n"), out)
	assert.Contains(t, out, "usedVisualFallback: true")
	assert.Contains(t, out, "visualExtractionMs: 1200")
	assert.NotContains(t, out, "{")

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	recipe := got["recipe"].(map[string]any)
	assert.Equal(t, "Garlic Shrimp", recipe["title"])
	// Servings is a JSON string and must stay a string in YAML.
	assert.Equal(t, "2", recipe["servings"])
	assert.Equal(t, "combined", recipe["source"])
}

func TestExtractCommand_Flags(t *testing.T) {
	for _, name := range []string{"url", "format", "no-visual"} {
		assert.NotNil(t, extractCmd.Flags().Lookup(name), "missing --%s", name)
	}
	assert.Equal(t, "json", extractCmd.Flags().Lookup("format").DefValue)
	assert.Equal(t, "false", extractCmd.Flags().Lookup("no-visual").DefValue)
}

func TestExtractCommand_RejectsUnknownFormat(t *testing.T) {
	old := extractFormat
	t.Cleanup(func() { extractFormat = old })
	extractFormat = "xml"

	err := extractCmd.RunE(extractCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "xml"`)
}

func TestTranscriptBody(t *testing.T) {
	b, err := json.Marshal(transcriptBody(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"transcript": null}`, string(b))

	b, err = json.Marshal(transcriptBody("stir well"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"transcript": "stir well"}`, string(b))
}
