package shuffle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"vantage-go/internal/models"
)

// testBank builds the standard 96-item bank: 7 entrepreneurial facets with
// 12 items each, 10 grit items and the 2 attention-facet validity items.
func testBank() *models.ItemBank {
	bank := &models.ItemBank{}
	prefixes := map[string]string{
		models.FacetInnovation:    "inn",
		models.FacetRiskTolerance: "rsk",
		models.FacetProactiveness: "pro",
		models.FacetAdaptability:  "adp",
		models.FacetSelfEfficacy:  "sef",
		models.FacetOpportunity:   "opp",
		models.FacetAutonomy:      "aut",
	}
	for _, facet := range models.EntrepreneurialFacets {
		for i := 1; i <= 12; i++ {
			bank.Items = append(bank.Items, models.Item{
				ID:    fmt.Sprintf("%s_%02d", prefixes[facet], i),
				Facet: facet,
			})
		}
	}
	for i := 1; i <= 10; i++ {
		bank.Items = append(bank.Items, models.Item{
			ID:    fmt.Sprintf("grt_%02d", i),
			Facet: models.FacetGrit,
		})
	}
	bank.Items = append(bank.Items,
		models.Item{ID: "att_01", Facet: models.FacetAttention},
		models.Item{ID: "inf_01", Facet: models.FacetAttention},
	)
	bank.AttentionItemID = "att_01"
	bank.InfrequencyItemID = "inf_01"
	return bank
}

func ids(items []models.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestMulberry32Deterministic(t *testing.T) {
	a := Mulberry32(12345)
	b := Mulberry32(12345)
	c := Mulberry32(12346)

	diverged := false
	for i := 0; i < 1000; i++ {
		va, vb, vc := a(), b(), c()
		require.Equal(t, va, vb, "same seed must yield identical sequence at draw %d", i)
		require.GreaterOrEqual(t, va, 0.0)
		require.Less(t, va, 1.0)
		if va != vc {
			diverged = true
		}
	}
	require.True(t, diverged, "different seeds must diverge")
}

func TestHashSeed(t *testing.T) {
	require.Equal(t, HashSeed("abc123"), HashSeed("abc123"))
	require.NotEqual(t, HashSeed("abc123"), HashSeed("abc124"))
	require.Equal(t, uint32(0), HashSeed(""))
}

func TestMixedOrderIsPermutation(t *testing.T) {
	bank := testBank()
	before := ids(bank.Items)

	out := MixedOrder(bank.Items, Mulberry32(HashSeed("abc123")))

	require.Len(t, out, len(bank.Items))
	seen := make(map[string]int)
	for _, item := range out {
		seen[item.ID]++
	}
	for _, id := range before {
		require.Equal(t, 1, seen[id], "item %s must appear exactly once", id)
	}

	// Input slice untouched.
	require.Equal(t, before, ids(bank.Items))
}

func TestMixedOrderDeterministic(t *testing.T) {
	bank := testBank()

	first := OrderFor("abc123", bank)
	second := OrderFor("abc123", bank)
	other := OrderFor("xyz789", bank)

	require.Equal(t, ids(first), ids(second), "same session id must reproduce the order")
	require.NotEqual(t, ids(first), ids(other), "different session ids must produce different orders")
}

func TestMixedOrderNoFacetRuns(t *testing.T) {
	bank := testBank()
	for s := 0; s < 50; s++ {
		sessionID := fmt.Sprintf("session-%d", s)
		out := OrderFor(sessionID, bank)
		run := 1
		for i := 1; i < len(out); i++ {
			if out[i].Facet == out[i-1].Facet {
				run++
			} else {
				run = 1
			}
			require.LessOrEqual(t, run, 2,
				"session %s: run of %d %s items at position %d", sessionID, run, out[i].Facet, i)
		}
	}
}

func TestMixedOrderEmpty(t *testing.T) {
	out := MixedOrder(nil, Mulberry32(1))
	require.Empty(t, out)
}

func TestPaginate(t *testing.T) {
	bank := testBank()
	pages := Paginate(bank.Items, 10)
	require.Len(t, pages, 10)
	require.Len(t, pages[9], 6, "last page may be short")

	require.Nil(t, Paginate(bank.Items, 0))
}

// Full-order scenario: session "abc123", 96-item bank, page size 6.
func TestOrderAndPaginateScenario(t *testing.T) {
	bank := testBank()
	ordered := OrderFor("abc123", bank)
	pages := Paginate(ordered, 6)

	require.Len(t, pages, 16)
	var flat []models.Item
	for _, page := range pages {
		require.Len(t, page, 6)
		flat = append(flat, page...)
	}

	seen := make(map[string]bool)
	for _, item := range flat {
		require.False(t, seen[item.ID])
		seen[item.ID] = true
	}
	require.Len(t, seen, 96)
}
