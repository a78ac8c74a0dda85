// Package scoring implements the personality scoring engine: Likert
// reverse-coding, facet aggregation, index computation and the data-quality
// flags. Quality flags are signals for downstream review, not errors;
// scoring always completes.
package scoring

import "vantage-go/internal/models"

// Response is one raw Likert answer as stored for a session.
type Response struct {
	ItemID   string
	Facet    string
	RawValue int // 1-5
	Reverse  bool
}

// FacetScore is the derived aggregate for one facet.
type FacetScore struct {
	ItemCount int     `json:"itemCount"`
	Mean      float64 `json:"mean"`      // adjusted 1-5 mean, 0 when no responses
	Rescaled  float64 `json:"rescaled"`  // 0-100, 0 when no responses
}

// Summary is the full scoring output for a session.
type Summary struct {
	Facets map[string]FacetScore `json:"facets"`

	// GlobalIndex is the mean of the entrepreneurial facet means, on the
	// 1-5 scale; facets with no responses are excluded from the average.
	GlobalIndex    float64 `json:"globalIndex"`
	GlobalRescaled float64 `json:"globalRescaled"`
	GritRescaled   float64 `json:"gritRescaled"`

	AttentionFail    bool `json:"attentionFail"`
	InfrequencyFail  bool `json:"infrequencyFail"`
	StraightLine     bool `json:"straightLine"`
	MissingItemCount int  `json:"missingItemCount"`
}

// straightLineMinimum is the response count below which uniform answering is
// not flagged.
const straightLineMinimum = 10

// Adjust applies the Likert reverse-coding transform. It must always be fed
// the raw value: 6 - (6 - v) = v, so double application round-trips.
func Adjust(raw int, reverse bool) int {
	if reverse {
		return 6 - raw
	}
	return raw
}

// Rescale maps a 1-5 mean onto the 0-100 reporting range.
func Rescale(mean float64) float64 {
	return ((mean - 1) / 4) * 100
}

// Score aggregates raw responses into the session summary. Empty input
// yields zero means, a zero global index, no flags and a missing count equal
// to the bank size.
func Score(bank *models.ItemBank, responses []Response) Summary {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	distinct := make(map[string]bool)

	var attentionAdjusted, infrequencyAdjusted *int
	firstRaw := 0
	uniform := true

	for i, r := range responses {
		adjusted := Adjust(r.RawValue, r.Reverse)
		sums[r.Facet] += float64(adjusted)
		counts[r.Facet]++
		distinct[r.ItemID] = true

		if r.ItemID == bank.AttentionItemID {
			v := adjusted
			attentionAdjusted = &v
		}
		if r.ItemID == bank.InfrequencyItemID {
			v := adjusted
			infrequencyAdjusted = &v
		}

		// Straight-lining looks at raw values, not adjusted ones.
		if i == 0 {
			firstRaw = r.RawValue
		} else if r.RawValue != firstRaw {
			uniform = false
		}
	}

	summary := Summary{Facets: make(map[string]FacetScore)}

	facets := append([]string{}, models.EntrepreneurialFacets...)
	facets = append(facets, models.FacetGrit, models.FacetAttention)
	for _, facet := range facets {
		fs := FacetScore{ItemCount: counts[facet]}
		if fs.ItemCount > 0 {
			fs.Mean = sums[facet] / float64(fs.ItemCount)
			fs.Rescaled = Rescale(fs.Mean)
		}
		summary.Facets[facet] = fs
	}

	var globalSum float64
	var globalN int
	for _, facet := range models.EntrepreneurialFacets {
		if fs := summary.Facets[facet]; fs.ItemCount > 0 {
			globalSum += fs.Mean
			globalN++
		}
	}
	if globalN > 0 {
		summary.GlobalIndex = globalSum / float64(globalN)
		summary.GlobalRescaled = Rescale(summary.GlobalIndex)
	}

	if grit := summary.Facets[models.FacetGrit]; grit.ItemCount > 0 {
		summary.GritRescaled = grit.Rescaled
	}

	summary.AttentionFail = attentionAdjusted != nil && *attentionAdjusted < 4
	summary.InfrequencyFail = infrequencyAdjusted != nil && *infrequencyAdjusted > 3
	summary.StraightLine = len(responses) >= straightLineMinimum && uniform
	if missing := bank.Size() - len(distinct); missing > 0 {
		summary.MissingItemCount = missing
	}

	return summary
}
