package council

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elazargur/llm-council/internal/domain"
)

func TestParseRankingWithFinalSection(t *testing.T) {
	text := `Response A is thorough. Response C is shallow.

FINAL RANKING:
1. Response B
2. Response A
3. Response C`

	assert.Equal(t, []string{"Response B", "Response A", "Response C"}, parseRanking(text))
}

func TestParseRankingFallsBackToMentions(t *testing.T) {
	text := "I prefer Response B over Response A; Response C comes last."
	assert.Equal(t, []string{"Response B", "Response A", "Response C"}, parseRanking(text))
}

func TestParseRankingEmpty(t *testing.T) {
	assert.Empty(t, parseRanking("no labels here"))
}

func TestParseRankingMarkerWithoutNumberedList(t *testing.T) {
	// A marker followed by free text should still pick up mentioned labels.
	text := "FINAL RANKING: hard to say, but Response A wins"
	assert.Equal(t, []string{"Response A"}, parseRanking(text))
}

func TestAggregateRankings(t *testing.T) {
	labelToModel := map[string]string{
		"Response A": "model-a",
		"Response B": "model-b",
	}
	rankings := map[string]domain.Ranking{
		"model-a": {Parsed: []string{"Response A", "Response B"}},
		"model-b": {Parsed: []string{"Response B", "Response A"}},
	}

	agg := aggregateRankings(rankings, labelToModel)
	if assert.Len(t, agg, 2) {
		// Both average 1.5; ties break by model name.
		assert.Equal(t, "model-a", agg[0].Model)
		assert.InDelta(t, 1.5, agg[0].AverageRank, 0.001)
		assert.Equal(t, "model-b", agg[1].Model)
	}
}

func TestAggregateRankingsIgnoresUnknownLabels(t *testing.T) {
	labelToModel := map[string]string{"Response A": "model-a"}
	rankings := map[string]domain.Ranking{
		"model-a": {Parsed: []string{"Response Z", "Response A"}},
	}

	agg := aggregateRankings(rankings, labelToModel)
	if assert.Len(t, agg, 1) {
		assert.Equal(t, "model-a", agg[0].Model)
		assert.InDelta(t, 2.0, agg[0].AverageRank, 0.001)
	}
}
