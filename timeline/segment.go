// Package timeline implements the deterministic core of the activity
// pipeline: telemetry segmentation, defensive parsing of model output,
// ground-truth attribution, card synthesis, and statistics. Everything in
// this package is pure and safe for concurrent use.
package timeline

import (
	"fmt"
	"strings"

	"github.com/dayloom/dayloom/models"
)

// BuildSegments collapses raw window samples into contiguous, non-overlapping
// time segments. A new segment starts exactly when the app name or the window
// title changes. The first segment is anchored at 0 and the last is extended
// to duration, so the result always spans [0, duration]. An empty sample list
// means no ground truth is available and yields no segments.
func BuildSegments(samples []models.WindowSample, duration float64) []models.TimeSegment {
	if len(samples) == 0 {
		return nil
	}

	var segments []models.TimeSegment
	currentApp := samples[0].AppName
	currentTitle := samples[0].WindowTitle
	currentStart := 0.0

	for _, sample := range samples[1:] {
		if sample.AppName == currentApp && sample.WindowTitle == currentTitle {
			continue
		}
		boundary := clampRange(sample.Timestamp, currentStart, duration)
		if boundary > currentStart {
			segments = append(segments, models.TimeSegment{
				Start:       currentStart,
				End:         boundary,
				AppName:     currentApp,
				WindowTitle: currentTitle,
			})
			currentStart = boundary
		}
		// Zero-length spans collapse into the next segment.
		currentApp = sample.AppName
		currentTitle = sample.WindowTitle
	}

	if duration > currentStart {
		segments = append(segments, models.TimeSegment{
			Start:       currentStart,
			End:         duration,
			AppName:     currentApp,
			WindowTitle: currentTitle,
		})
	} else if len(segments) > 0 {
		segments[len(segments)-1].AppName = currentApp
		segments[len(segments)-1].WindowTitle = currentTitle
	}

	return segments
}

// FormatSegments renders segments as the plain-text window summary included
// in the transcription request.
func FormatSegments(segments []models.TimeSegment) string {
	if len(segments) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Window focus:\n")
	for _, seg := range segments {
		titlePart := ""
		if seg.WindowTitle != "" {
			titlePart = ": " + seg.WindowTitle
		}
		fmt.Fprintf(&b, "- [%.0fs - %.0fs] %s%s\n", seg.Start, seg.End, seg.AppName, titlePart)
	}
	return b.String()
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if hi > lo && v > hi {
		return hi
	}
	return v
}
