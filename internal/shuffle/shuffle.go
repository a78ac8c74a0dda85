// Package shuffle produces the deterministic question order for a session.
// The full order is a pure function of the session id, so the client can
// resume a questionnaire mid-way using only the id and its saved answers;
// nothing about the order is persisted server-side.
package shuffle

import "vantage-go/internal/models"

// HashSeed reduces a session id to a 32-bit PRNG seed with a rolling string
// hash: h = h*31 + c over the UTF-8 bytes, wrapping in 32-bit arithmetic.
func HashSeed(sessionID string) uint32 {
	var h uint32
	for _, b := range []byte(sessionID) {
		h = h*31 + uint32(b)
	}
	return h
}

// Mulberry32 returns a deterministic generator of floats in [0, 1). It
// replicates the Mulberry32 bit operations exactly (32-bit wrapping
// arithmetic, the 0x6D2B79F5 increment), so the sequence for a given seed is
// reproducible across implementations.
func Mulberry32(seed uint32) func() float64 {
	state := seed
	return func() float64 {
		state += 0x6D2B79F5
		z := state
		z = (z ^ (z >> 15)) * (z | 1)
		z ^= z + (z^(z>>7))*(z|61)
		z ^= z >> 14
		return float64(z) / 4294967296.0
	}
}

// MixedOrder interleaves bank items so no two consecutive items share a
// facet. Items are grouped by facet (first-appearance order), each group is
// shuffled with the shared rng, then the sequence is drawn greedily from a
// facet different from the previous one, preferring whichever eligible facet
// has the most items remaining; ties are broken with the rng. When only the
// previous facet remains the draw falls back to it. The input slice is never
// mutated and every input item appears exactly once in the output.
func MixedOrder(items []models.Item, rng func() float64) []models.Item {
	if len(items) == 0 {
		return []models.Item{}
	}

	var facetOrder []string
	groups := make(map[string][]models.Item)
	for _, item := range items {
		if _, ok := groups[item.Facet]; !ok {
			facetOrder = append(facetOrder, item.Facet)
		}
		groups[item.Facet] = append(groups[item.Facet], item)
	}

	// Fisher-Yates within each facet group, consuming the shared rng in
	// facet first-appearance order so the whole draw is deterministic.
	for _, facet := range facetOrder {
		group := groups[facet]
		for i := len(group) - 1; i > 0; i-- {
			j := int(rng() * float64(i+1))
			group[i], group[j] = group[j], group[i]
		}
	}

	out := make([]models.Item, 0, len(items))
	lastFacet := ""
	for len(out) < len(items) {
		var candidates []string
		best := 0
		for _, facet := range facetOrder {
			n := len(groups[facet])
			if n == 0 || facet == lastFacet {
				continue
			}
			switch {
			case n > best:
				best = n
				candidates = candidates[:0]
				candidates = append(candidates, facet)
			case n == best:
				candidates = append(candidates, facet)
			}
		}

		var pick string
		if len(candidates) == 0 {
			// Forced: only the previous facet has items left.
			pick = lastFacet
		} else {
			pick = candidates[int(rng()*float64(len(candidates)))]
		}

		group := groups[pick]
		out = append(out, group[0])
		groups[pick] = group[1:]
		lastFacet = pick
	}

	return out
}

// Paginate chunks items into fixed-size pages; the last page may be short.
func Paginate(items []models.Item, pageSize int) [][]models.Item {
	if pageSize <= 0 {
		return nil
	}
	var pages [][]models.Item
	for start := 0; start < len(items); start += pageSize {
		end := start + pageSize
		if end > len(items) {
			end = len(items)
		}
		pages = append(pages, items[start:end])
	}
	return pages
}

// OrderFor is the composed contract: the reproducible full question order
// for a session id.
func OrderFor(sessionID string, bank *models.ItemBank) []models.Item {
	rng := Mulberry32(HashSeed(sessionID))
	return MixedOrder(bank.Items, rng)
}
