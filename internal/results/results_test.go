package results

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vantage-go/internal/models"
)

func scored(pairs ...any) models.ScoringResult {
	var out models.ScoringResult
	for i := 0; i < len(pairs); i += 2 {
		out.CategoryScores = append(out.CategoryScores, models.CategoryScore{
			Category:   pairs[i].(string),
			Percentile: pairs[i+1].(float64),
		})
	}
	return out
}

func TestMergeCategoriesAveragesAndKeepsOrder(t *testing.T) {
	first := scored("prioritization", 80.0, "decisiveness", 60.0)
	second := scored("decisiveness", 40.0, "prioritization", 90.0)

	merged := MergeCategories([]models.ScoringResult{first, second})
	require.Equal(t, []CategoryAverage{
		{Category: "prioritization", Percentile: 85},
		{Category: "decisiveness", Percentile: 50},
	}, merged)
}

func TestMergeMovesUpgrades(t *testing.T) {
	a := models.ScoringResult{MoveDetails: []models.MoveDetail{
		{Name: "pre-mortem", Present: false, Applicable: true, Frequency: 0.2},
		{Name: "delegation", Present: true, Applicable: true, Impressive: true, Frequency: 0.5},
	}}
	b := models.ScoringResult{MoveDetails: []models.MoveDetail{
		{Name: "pre-mortem", Present: true, Applicable: true, Impressive: true, Frequency: 0.2},
		{Name: "delegation", Present: false, Gap: true, Frequency: 0.5},
	}}

	moves := MergeMoves([]models.ScoringResult{a, b})
	require.Len(t, moves, 2)

	premortem, delegation := moves[0], moves[1]
	require.Equal(t, "pre-mortem", premortem.Name)
	require.True(t, premortem.Present, "present in any response counts as demonstrated")
	require.True(t, premortem.Impressive)

	require.True(t, delegation.Present)
	require.True(t, delegation.Impressive)
	require.True(t, delegation.Gap)
	require.True(t, delegation.Applicable)
}

// Ten percentiles inside a 10-point band yield the balanced archetype no
// matter which category is nominally highest.
func TestBalancedArchetype(t *testing.T) {
	var categories []CategoryAverage
	for i, name := range categoryOrder {
		categories = append(categories, CategoryAverage{
			Category:   name,
			Percentile: 70 + float64(i),
		})
	}
	require.Equal(t, BalancedArchetype, SelectArchetype(categories))
}

func TestArchetypeTopCategoryWins(t *testing.T) {
	categories := []CategoryAverage{
		{Category: "prioritization", Percentile: 50},
		{Category: "originality", Percentile: 92},
		{Category: "fluency", Percentile: 60},
	}
	got := SelectArchetype(categories)
	require.Equal(t, "originality", got.Category)
	require.Equal(t, "The Outlier", got.Name)
}

// Ties resolve by the fixed preference order: practical before creative.
func TestArchetypeTieBreak(t *testing.T) {
	categories := []CategoryAverage{
		{Category: "originality", Percentile: 95},
		{Category: "decisiveness", Percentile: 95},
		{Category: "fluency", Percentile: 30},
	}
	require.Equal(t, "decisiveness", SelectArchetype(categories).Category)
}

func TestArchetypeEmptyInput(t *testing.T) {
	require.Equal(t, BalancedArchetype, SelectArchetype(nil))
}

func TestSignatureMovesRarestFirstCappedAtFive(t *testing.T) {
	var moves []models.MoveDetail
	freqs := []float64{0.5, 0.1, 0.3, 0.05, 0.2, 0.4, 0.25}
	for i, f := range freqs {
		moves = append(moves, models.MoveDetail{
			Name:       string(rune('a' + i)),
			Impressive: true,
			Present:    true,
			Frequency:  f,
		})
	}
	moves = append(moves, models.MoveDetail{Name: "plain", Present: true, Frequency: 0.01})

	got := SignatureMoves(moves)
	require.Len(t, got, 5)
	require.Equal(t, 0.05, got[0].Frequency, "rarest first")
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1].Frequency, got[i].Frequency)
	}
}

func TestRarestMove(t *testing.T) {
	moves := []models.MoveDetail{
		{Name: "common", Present: true, Applicable: true, Frequency: 0.5},
		{Name: "rare", Present: true, Applicable: true, Frequency: 0.03},
		{Name: "rarer-but-absent", Present: false, Applicable: true, Frequency: 0.01},
		{Name: "rarer-but-na", Present: true, Applicable: false, Frequency: 0.01},
	}

	got := RarestMove(moves)
	require.NotNil(t, got)
	require.Equal(t, "rare", got.Name)
	require.Equal(t, 33, got.OneIn)

	require.Nil(t, RarestMove(nil))
}

func TestGrowthEdgesMostCommonFirstCappedAtThree(t *testing.T) {
	moves := []models.MoveDetail{
		{Name: "a", Gap: true, Frequency: 0.2},
		{Name: "b", Gap: true, Frequency: 0.8},
		{Name: "c", Gap: false, Frequency: 0.9},
		{Name: "d", Gap: true, Frequency: 0.5},
		{Name: "e", Gap: true, Frequency: 0.6},
	}

	got := GrowthEdges(moves)
	require.Len(t, got, 3)
	require.Equal(t, "b", got[0].Name)
	require.Equal(t, "e", got[1].Name)
	require.Equal(t, "d", got[2].Name)
}

func TestBuildFullReport(t *testing.T) {
	practical := []models.ScoringResult{
		{
			CategoryScores: []models.CategoryScore{
				{Category: "prioritization", Percentile: 90},
				{Category: "decisiveness", Percentile: 40},
			},
			MoveDetails: []models.MoveDetail{
				{Name: "triage", Present: true, Applicable: true, Impressive: true, Frequency: 0.1},
			},
		},
	}
	creative := []models.ScoringResult{
		{
			CategoryScores: []models.CategoryScore{
				{Category: "originality", Percentile: 55},
			},
			MoveDetails: []models.MoveDetail{
				{Name: "reframe", Present: false, Applicable: true, Gap: true, Frequency: 0.7},
			},
		},
	}

	report := Build(practical, creative)
	require.Equal(t, "prioritization", report.Archetype.Category)
	require.Len(t, report.Categories, 3)
	require.Equal(t, "prioritization", report.Categories[0].Category)
	require.Len(t, report.SignatureMoves, 1)
	require.Equal(t, "triage", report.RarestMove.Name)
	require.Equal(t, 10, report.RarestMove.OneIn)
	require.Equal(t, "reframe", report.GrowthEdges[0].Name)
}
