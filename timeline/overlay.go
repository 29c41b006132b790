package timeline

import (
	"sort"

	"github.com/dayloom/dayloom/models"
)

// ApplySegments replaces each observation's model-reported app name and
// window title with the ground-truth pair that overlaps it longest. Overlap
// is accumulated per app across all segments; ties go to the app whose first
// contributing segment starts earliest, which keeps the result deterministic
// regardless of segment input order. Observations with no overlap at all
// keep their original attribution.
func ApplySegments(observations []models.Observation, segments []models.TimeSegment) []models.Observation {
	out := make([]models.Observation, len(observations))
	copy(out, observations)
	if len(segments) == 0 {
		return out
	}

	ordered := make([]models.TimeSegment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	for i, obs := range out {
		overlaps := make(map[string]float64)
		titles := make(map[string]string)
		var firstSeen []string

		for _, seg := range ordered {
			lo := obs.StartTs
			if seg.Start > lo {
				lo = seg.Start
			}
			hi := obs.EndTs
			if seg.End < hi {
				hi = seg.End
			}
			if hi <= lo {
				continue
			}
			if _, ok := overlaps[seg.AppName]; !ok {
				firstSeen = append(firstSeen, seg.AppName)
				titles[seg.AppName] = seg.WindowTitle
			}
			overlaps[seg.AppName] += hi - lo
		}

		if len(firstSeen) == 0 {
			continue
		}

		best := firstSeen[0]
		for _, app := range firstSeen[1:] {
			if overlaps[app] > overlaps[best] {
				best = app
			}
		}

		out[i].AppName = best
		out[i].WindowTitle = titles[best]
	}

	return out
}
