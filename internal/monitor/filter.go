package monitor

import (
	"time"

	"github.com/example/resywatch/internal/resy"
	"github.com/example/resywatch/internal/venues"
)

// Candidate pairs a fetched slot with its parsed start time. Diff is the
// ranking distance from the preferred time, populated by rankSlots.
type Candidate struct {
	Slot  resy.Slot
	Start time.Time
	Diff  time.Duration
}

var slotLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04"}

func parseSlotStart(s string) (time.Time, bool) {
	for _, layout := range slotLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// filterSlots keeps the slots whose start lies within [min, max] on the
// slot's own calendar date, bounds inclusive. An empty result is a normal
// outcome. Slots with unparseable start times are dropped.
func filterSlots(slots []resy.Slot, min, max venues.Clock) []Candidate {
	var out []Candidate
	for _, s := range slots {
		start, ok := parseSlotStart(s.Date.Start)
		if !ok {
			continue
		}
		lo := min.On(start)
		hi := max.On(start)
		if start.Before(lo) || start.After(hi) {
			continue
		}
		out = append(out, Candidate{Slot: s, Start: start})
	}
	return out
}
