package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recipe-cli/internal/model"
	"github.com/sells-group/recipe-cli/pkg/anthropic"
)

type mockAI struct {
	mock.Mock
}

func (m *mockAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
	}
}

const fullRecipeJSON = "```json\n" + `{
  "title": "Garlic Butter Shrimp",
  "description": null,
  "ingredients": [
    {"raw": "shrimp", "quantity": null, "unit": null, "name": "shrimp"},
    {"raw": "1 lb shrimp, peeled", "quantity": 1, "unit": "lb", "name": "Shrimp", "preparation": "peeled"},
    {"raw": "3 cloves garlic", "quantity": "3", "unit": "cloves", "name": "garlic", "preparation": "minced"},
    {"raw": "2 tbsp butter", "quantity": "1/2", "unit": "cup", "name": "butter"}
  ],
  "instructions": ["Melt butter.", {"text": "Add garlic and shrimp."}, "", "Cook 4 minutes."],
  "servings": 2,
  "prepTime": "10 minutes",
  "cookTime": "PT5M",
  "confidence": {
    "overall": 0.92, "title": "0.9", "ingredients": 1.4, "instructions": -0.2,
    "hasQuantities": true, "hasSteps": true, "isCompleteRecipe": true,
    "reasoning": "All parts present"
  }
}` + "\n```"

func TestExtract_ParsesStructuredResponse(t *testing.T) {
	ai := new(mockAI)
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-sonnet-4-5-20250929" &&
			len(req.System) == 1 &&
			len(req.Messages) == 1 &&
			assert.ObjectsAreEqual("user", req.Messages[0].Role)
	})).Return(textResponse(fullRecipeJSON), nil)

	ex := NewTextExtractor(ai, DefaultConfig())
	recipe, err := ex.Extract(context.Background(), "Caption: garlic butter shrimp ...")
	require.NoError(t, err)

	assert.Equal(t, model.SourceCaption, recipe.Source)
	assert.Equal(t, "Garlic Butter Shrimp", recipe.Title)
	assert.Nil(t, recipe.Description)

	require.Len(t, recipe.Ingredients, 3, "shrimp mentions collapse to one")
	shrimp := recipe.Ingredients[0]
	assert.Equal(t, "1 lb shrimp, peeled", shrimp.Raw, "most specific mention wins, first position kept")
	require.NotNil(t, shrimp.Quantity)
	assert.Equal(t, 1.0, *shrimp.Quantity)
	require.NotNil(t, recipe.Ingredients[1].Quantity)
	assert.Equal(t, 3.0, *recipe.Ingredients[1].Quantity)
	require.NotNil(t, recipe.Ingredients[2].Quantity)
	assert.Equal(t, 0.5, *recipe.Ingredients[2].Quantity)

	assert.Equal(t, []string{"Melt butter.", "Add garlic and shrimp.", "Cook 4 minutes."}, recipe.Instructions)
	require.NotNil(t, recipe.Servings)
	assert.Equal(t, "2", *recipe.Servings)
	require.NotNil(t, recipe.TotalTime)
	assert.Equal(t, "15 minutes", *recipe.TotalTime)

	assert.Equal(t, 0.92, recipe.Confidence.Overall)
	assert.Equal(t, 0.9, recipe.Confidence.Title)
	assert.Equal(t, 1.0, recipe.Confidence.Ingredients, "clamped to 1")
	assert.Equal(t, 0.0, recipe.Confidence.Instructions, "clamped to 0")
	assert.True(t, recipe.Confidence.IsCompleteRecipe)
	assert.NotEmpty(t, recipe.ExtractionTimestamp)
	ai.AssertExpectations(t)
}

func TestExtract_EmptyTextSkipsModel(t *testing.T) {
	ai := new(mockAI)
	recipe, err := NewTextExtractor(ai, DefaultConfig()).Extract(context.Background(), "   \n ")
	require.NoError(t, err)
	assert.Equal(t, model.SourceCaption, recipe.Source)
	assert.Zero(t, recipe.Confidence.Overall)
	ai.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestExtract_RefusalYieldsEmptyRecipe(t *testing.T) {
	ai := new(mockAI)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{StopReason: anthropic.StopReasonRefusal}, nil)

	recipe, err := NewTextExtractor(ai, DefaultConfig()).Extract(context.Background(), "some text")
	require.NoError(t, err)
	assertEmptyRecipe(t, recipe)
}

func TestExtract_UnparseableYieldsEmptyRecipe(t *testing.T) {
	for _, body := range []string{"", "I could not find a recipe.", "{not json}"} {
		ai := new(mockAI)
		ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(body), nil)

		recipe, err := NewTextExtractor(ai, DefaultConfig()).Extract(context.Background(), "some text")
		require.NoError(t, err)
		assertEmptyRecipe(t, recipe)
	}
}

func TestExtract_TransportErrorPropagates(t *testing.T) {
	apiErr := errors.New("429 Too Many Requests")
	ai := new(mockAI)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, apiErr)

	recipe, err := NewTextExtractor(ai, DefaultConfig()).Extract(context.Background(), "some text")
	require.Error(t, err)
	assert.Nil(t, recipe)
	assert.ErrorIs(t, err, apiErr)
}

func assertEmptyRecipe(t *testing.T, r *model.ExtractedRecipe) {
	t.Helper()
	require.NotNil(t, r)
	assert.Equal(t, model.SourceCaption, r.Source)
	assert.Empty(t, r.Ingredients)
	assert.Empty(t, r.Instructions)
	assert.Zero(t, r.Confidence.Overall)
	assert.Zero(t, r.Confidence.Title)
	assert.Zero(t, r.Confidence.Ingredients)
	assert.Zero(t, r.Confidence.Instructions)
	assert.False(t, r.Confidence.IsCompleteRecipe)
}

func TestDedupeIngredients(t *testing.T) {
	q := 2.0
	unit := "cups"
	in := []model.Ingredient{
		{Raw: "flour", Name: "flour"},
		{Raw: "sugar", Name: "Sugar"},
		{Raw: "2 cups flour", Name: " Flour ", Quantity: &q, Unit: &unit},
		{Raw: "", Name: ""},
	}
	out := DedupeIngredients(in)
	require.Len(t, out, 2)
	assert.Equal(t, "2 cups flour", out[0].Raw)
	assert.Equal(t, "sugar", out[1].Raw)
}
