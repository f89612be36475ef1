package monitor

import (
	"sort"

	"github.com/example/resywatch/internal/venues"
)

// rankSlots orders candidates by absolute distance from the preferred
// time, closest first. The reference point is the preferred clock time on
// the first candidate's date. The sort is stable: equal distances keep
// provider order. The input slice is not modified.
func rankSlots(cands []Candidate, preferred venues.Clock) []Candidate {
	if len(cands) == 0 {
		return nil
	}
	reference := preferred.On(cands[0].Start)

	ranked := make([]Candidate, len(cands))
	for i, c := range cands {
		diff := c.Start.Sub(reference)
		if diff < 0 {
			diff = -diff
		}
		c.Diff = diff
		ranked[i] = c
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Diff < ranked[j].Diff
	})
	return ranked
}
