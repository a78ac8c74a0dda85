// Package results merges the vendor-scored responses for a session into the
// final report: category percentiles, the archetype label, signature moves
// and rarity statistics.
package results

import (
	"math"
	"sort"

	"vantage-go/internal/models"
)

// Archetype is the labeled profile derived from relative category strengths.
type Archetype struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Tagline  string `json:"tagline"`
}

// balancedSpread is the max-min percentile band within which the fixed
// balanced archetype is assigned regardless of the nominal top category.
const balancedSpread = 10.0

// BalancedArchetype is assigned when no category clearly dominates.
var BalancedArchetype = Archetype{
	Category: "balanced",
	Name:     "The All-Rounder",
	Tagline:  "Strong across the board, with no single lever carrying the load.",
}

// categoryOrder is the fixed preference order used for archetype
// tie-breaking: practical categories before creative, each list in its
// canonical order.
var categoryOrder = []string{
	"prioritization",
	"resourcefulness",
	"decisiveness",
	"risk_assessment",
	"stakeholder_judgment",
	"originality",
	"fluency",
	"flexibility",
	"elaboration",
	"reframing",
}

var archetypes = map[string]Archetype{
	"prioritization":       {Category: "prioritization", Name: "The Triage Surgeon", Tagline: "Knows which fire to fight first."},
	"resourcefulness":      {Category: "resourcefulness", Name: "The Scrapper", Tagline: "Builds a ladder out of whatever is lying around."},
	"decisiveness":         {Category: "decisiveness", Name: "The Committer", Tagline: "Picks a door and walks through it."},
	"risk_assessment":      {Category: "risk_assessment", Name: "The Odds Reader", Tagline: "Sees the downside before signing up for it."},
	"stakeholder_judgment": {Category: "stakeholder_judgment", Name: "The Room Reader", Tagline: "Knows who needs what, and when."},
	"originality":          {Category: "originality", Name: "The Outlier", Tagline: "Starts where templates end."},
	"fluency":              {Category: "fluency", Name: "The Idea Fountain", Tagline: "Never shows up with just one option."},
	"flexibility":          {Category: "flexibility", Name: "The Angle Changer", Tagline: "Swaps frames until the problem gives in."},
	"elaboration":          {Category: "elaboration", Name: "The Finisher", Tagline: "Turns a sketch into a working plan."},
	"reframing":            {Category: "reframing", Name: "The Question Flipper", Tagline: "Solves a better problem than the one posed."},
}

// CategoryAverage is one category's percentile averaged across a domain's
// scored responses.
type CategoryAverage struct {
	Category   string  `json:"category"`
	Percentile float64 `json:"percentile"`
}

// RareMove expresses the rarest demonstrated move as a "1 in N" statistic.
type RareMove struct {
	Name  string `json:"name"`
	OneIn int    `json:"oneIn"`
}

// Report is the aggregated result surface for one session.
type Report struct {
	Categories     []CategoryAverage  `json:"categories"`
	Archetype      Archetype          `json:"archetype"`
	SignatureMoves []models.MoveDetail `json:"signatureMoves"`
	RarestMove     *RareMove          `json:"rarestMove,omitempty"`
	GrowthEdges    []models.MoveDetail `json:"growthEdges"`
}

// MergeCategories averages percentiles per category across same-named
// categories, preserving the first response's category ordering.
func MergeCategories(responses []models.ScoringResult) []CategoryAverage {
	var order []string
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, r := range responses {
		for _, cs := range r.CategoryScores {
			if counts[cs.Category] == 0 {
				order = append(order, cs.Category)
			}
			sums[cs.Category] += cs.Percentile
			counts[cs.Category]++
		}
	}

	out := make([]CategoryAverage, 0, len(order))
	for _, category := range order {
		out = append(out, CategoryAverage{
			Category:   category,
			Percentile: sums[category] / float64(counts[category]),
		})
	}
	return out
}

// MergeMoves unions move presence across responses: a move counts as
// demonstrated if present in any response, and flags upgrade rather than
// overwrite.
func MergeMoves(responses []models.ScoringResult) []models.MoveDetail {
	var order []string
	merged := make(map[string]*models.MoveDetail)

	for _, r := range responses {
		for _, mv := range r.MoveDetails {
			existing, ok := merged[mv.Name]
			if !ok {
				copied := mv
				merged[mv.Name] = &copied
				order = append(order, mv.Name)
				continue
			}
			existing.Present = existing.Present || mv.Present
			existing.Applicable = existing.Applicable || mv.Applicable
			existing.Impressive = existing.Impressive || mv.Impressive
			existing.Gap = existing.Gap || mv.Gap
			if existing.Frequency == 0 {
				existing.Frequency = mv.Frequency
			}
		}
	}

	out := make([]models.MoveDetail, 0, len(order))
	for _, name := range order {
		out = append(out, *merged[name])
	}
	return out
}

// SelectArchetype picks the profile label from the merged category
// percentiles. Within the balanced band the fixed balanced archetype wins;
// otherwise the highest percentile does, tie-broken by the fixed category
// preference order.
func SelectArchetype(categories []CategoryAverage) Archetype {
	if len(categories) == 0 {
		return BalancedArchetype
	}

	lowest, highest := math.Inf(1), math.Inf(-1)
	byName := make(map[string]float64, len(categories))
	for _, c := range categories {
		byName[c.Category] = c.Percentile
		if c.Percentile < lowest {
			lowest = c.Percentile
		}
		if c.Percentile > highest {
			highest = c.Percentile
		}
	}
	if highest-lowest <= balancedSpread {
		return BalancedArchetype
	}

	winner := ""
	for _, category := range categoryOrder {
		p, ok := byName[category]
		if !ok {
			continue
		}
		if winner == "" || p > byName[winner] {
			winner = category
		}
	}
	if winner == "" {
		// Vendor sent only categories outside the canonical list; fall
		// back to the highest as given.
		best := categories[0]
		for _, c := range categories[1:] {
			if c.Percentile > best.Percentile {
				best = c
			}
		}
		return Archetype{Category: best.Category, Name: best.Category, Tagline: ""}
	}
	return archetypes[winner]
}

// SignatureMoves returns the moves flagged impressive, rarest first, capped
// at five.
func SignatureMoves(moves []models.MoveDetail) []models.MoveDetail {
	var out []models.MoveDetail
	for _, mv := range moves {
		if mv.Impressive {
			out = append(out, mv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frequency < out[j].Frequency })
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// RarestMove finds the present and applicable move with the lowest
// population frequency, expressed as "1 in N" with N = round(1/frequency).
func RarestMove(moves []models.MoveDetail) *RareMove {
	var rarest *models.MoveDetail
	for i := range moves {
		mv := &moves[i]
		if !mv.Present || !mv.Applicable || mv.Frequency <= 0 {
			continue
		}
		if rarest == nil || mv.Frequency < rarest.Frequency {
			rarest = mv
		}
	}
	if rarest == nil {
		return nil
	}
	return &RareMove{Name: rarest.Name, OneIn: int(math.Round(1 / rarest.Frequency))}
}

// GrowthEdges returns the moves flagged as gaps, most common gap first,
// capped at three.
func GrowthEdges(moves []models.MoveDetail) []models.MoveDetail {
	var out []models.MoveDetail
	for _, mv := range moves {
		if mv.Gap {
			out = append(out, mv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// Build assembles the full report from the scored responses of both
// domains. Practical categories come first, matching the canonical order.
func Build(practical, creative []models.ScoringResult) Report {
	categories := append(MergeCategories(practical), MergeCategories(creative)...)
	moves := MergeMoves(append(append([]models.ScoringResult{}, practical...), creative...))

	return Report{
		Categories:     categories,
		Archetype:      SelectArchetype(categories),
		SignatureMoves: SignatureMoves(moves),
		RarestMove:     RarestMove(moves),
		GrowthEdges:    GrowthEdges(moves),
	}
}
