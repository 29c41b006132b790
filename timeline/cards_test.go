package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayloom/dayloom/models"
)

func TestParseCardsWellFormed(t *testing.T) {
	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	response := `{"cards": [{
		"category": "Programming",
		"title": "Refactoring the parser",
		"summary": "Moved decode logic into its own package.",
		"start_time": "2026-03-10T09:00:00Z",
		"end_time": "2026-03-10T09:45:00Z",
		"app_sites": [{"name": "Code", "duration_seconds": 2400}],
		"distractions": [{"description": "Checked chat", "timestamp": 1200, "duration_seconds": 90}],
		"productivity_score": 85
	}]}`

	cards := ParseCards(response, &anchor)
	require.Len(t, cards, 1)

	card := cards[0]
	assert.Equal(t, models.CategoryProgramming, card.Category)
	assert.Equal(t, "Refactoring the parser", card.Title)
	require.NotNil(t, card.StartTime)
	require.NotNil(t, card.EndTime)
	assert.Equal(t, 45.0, card.DurationMinutes())
	assert.Equal(t, 85.0, card.ProductivityScore)
	require.Len(t, card.AppSites, 1)
	assert.Equal(t, "Code", card.AppSites[0].Name)
	assert.Equal(t, 2400.0, card.AppSites[0].DurationSeconds)
	require.Len(t, card.Distractions, 1)
	assert.Equal(t, 90.0, card.Distractions[0].DurationSeconds)
}

func TestParseCardsMissingEndTimeStaysAbsent(t *testing.T) {
	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	response := `{"cards": [{"category": "Work", "title": "Planning", "start_time": "2026-03-10T09:00:00Z"}]}`

	cards := ParseCards(response, &anchor)
	require.Len(t, cards, 1)
	require.NotNil(t, cards[0].StartTime)
	assert.Nil(t, cards[0].EndTime, "end_time must never be fabricated")
	assert.Equal(t, 0.0, cards[0].DurationMinutes())
}

func TestParseCardsBadStartTimeFallsBackToAnchor(t *testing.T) {
	anchor := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	response := `{"cards": [{"title": "Something", "start_time": "around two thirty"}]}`

	cards := ParseCards(response, &anchor)
	require.Len(t, cards, 1)
	require.NotNil(t, cards[0].StartTime)
	assert.True(t, cards[0].StartTime.Equal(anchor))
}

func TestParseCardsDefaults(t *testing.T) {
	response := `{"cards": [{}]}`

	cards := ParseCards(response, nil)
	require.Len(t, cards, 1)

	card := cards[0]
	assert.Equal(t, models.CategoryOther, card.Category)
	assert.Equal(t, "Untitled activity", card.Title)
	assert.Nil(t, card.StartTime)
	assert.Nil(t, card.EndTime)
	assert.Equal(t, 0.0, card.ProductivityScore)
	assert.NotNil(t, card.AppSites)
	assert.NotNil(t, card.Distractions)
}

func TestParseCardsUnknownCategoryBecomesOther(t *testing.T) {
	response := `{"cards": [{"category": "Gardening", "title": "Watering"}]}`

	cards := ParseCards(response, nil)
	require.Len(t, cards, 1)
	assert.Equal(t, models.CategoryOther, cards[0].Category)
}

func TestParseCardsQuotedScore(t *testing.T) {
	response := `{"cards": [{"title": "A", "productivity_score": "72.5"}]}`

	cards := ParseCards(response, nil)
	require.Len(t, cards, 1)
	assert.Equal(t, 72.5, cards[0].ProductivityScore)
}

func TestParseCardsUnparseableResponse(t *testing.T) {
	assert.Empty(t, ParseCards("the model rambled with no structure", nil))
	assert.Empty(t, ParseCards(`{"cards": "not a list"}`, nil))
}

func TestParseCardsZonelessTimeIsLocal(t *testing.T) {
	response := `{"cards": [{"title": "A", "start_time": "2026-03-10T09:00:00"}]}`

	cards := ParseCards(response, nil)
	require.Len(t, cards, 1)
	require.NotNil(t, cards[0].StartTime)
	want := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	assert.True(t, cards[0].StartTime.Equal(want))
}

func TestBuildCardPrompt(t *testing.T) {
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	observations := []models.Observation{
		{StartTs: 0, EndTs: 30, Text: "Editing code", AppName: "Code"},
		{StartTs: 30, EndTs: 60, Text: "Idle"},
	}
	context := []models.ActivityCard{
		{Category: models.CategoryWork, Title: "one"},
		{Category: models.CategoryWork, Title: "two"},
		{Category: models.CategoryWork, Title: "three"},
		{Category: models.CategoryProgramming, Title: "four"},
	}

	prompt := BuildCardPrompt(observations, &started, context)

	assert.Contains(t, prompt, "- [0s - 30s] Editing code (app: Code)")
	assert.Contains(t, prompt, "- [30s - 60s] Idle\n")
	assert.Contains(t, prompt, "Recording started at: 2026-03-10T09:00:00Z")
	// Only the trailing three cards are offered as context.
	assert.NotContains(t, prompt, "one")
	assert.Contains(t, prompt, "- Work: two")
	assert.Contains(t, prompt, "- Programming: four")
}

func TestBuildCardPromptNoContext(t *testing.T) {
	prompt := BuildCardPrompt([]models.Observation{{StartTs: 0, EndTs: 5, Text: "x"}}, nil, nil)
	assert.NotContains(t, prompt, "Prior activity cards")
	assert.NotContains(t, prompt, "Recording started at")
}
