package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayloom/dayloom/models"
)

func sample(ts float64, app, title string) models.WindowSample {
	return models.WindowSample{Timestamp: ts, AppName: app, WindowTitle: title}
}

func TestBuildSegmentsEmpty(t *testing.T) {
	assert.Empty(t, BuildSegments(nil, 60))
	assert.Empty(t, BuildSegments([]models.WindowSample{}, 60))
}

func TestBuildSegmentsSingleApp(t *testing.T) {
	samples := []models.WindowSample{
		sample(0, "Code", "main.go"),
		sample(5, "Code", "main.go"),
		sample(10, "Code", "main.go"),
	}
	segments := BuildSegments(samples, 30)

	require.Len(t, segments, 1)
	assert.Equal(t, 0.0, segments[0].Start)
	assert.Equal(t, 30.0, segments[0].End)
	assert.Equal(t, "Code", segments[0].AppName)
}

func TestBuildSegmentsBoundaries(t *testing.T) {
	samples := []models.WindowSample{
		sample(0, "Code", "main.go"),
		sample(10, "Chrome", "docs"),
		sample(20, "Slack", "general"),
	}
	segments := BuildSegments(samples, 30)

	require.Len(t, segments, 3)
	assert.Equal(t, models.TimeSegment{Start: 0, End: 10, AppName: "Code", WindowTitle: "main.go"}, segments[0])
	assert.Equal(t, models.TimeSegment{Start: 10, End: 20, AppName: "Chrome", WindowTitle: "docs"}, segments[1])
	assert.Equal(t, models.TimeSegment{Start: 20, End: 30, AppName: "Slack", WindowTitle: "general"}, segments[2])
}

func TestBuildSegmentsTitleChangeIsBoundary(t *testing.T) {
	samples := []models.WindowSample{
		sample(0, "Chrome", "docs"),
		sample(12, "Chrome", "mail"),
	}
	segments := BuildSegments(samples, 20)

	require.Len(t, segments, 2)
	assert.Equal(t, "docs", segments[0].WindowTitle)
	assert.Equal(t, "mail", segments[1].WindowTitle)
	assert.Equal(t, 12.0, segments[0].End)
}

// The segment list must tile [0, duration] exactly: contiguous, no overlaps,
// no gaps, regardless of how messy the samples are.
func TestBuildSegmentsCoverage(t *testing.T) {
	cases := []struct {
		name     string
		samples  []models.WindowSample
		duration float64
	}{
		{
			name: "clean",
			samples: []models.WindowSample{
				sample(0, "A", ""), sample(7, "B", ""), sample(15, "C", ""),
			},
			duration: 30,
		},
		{
			name: "timestamps past duration",
			samples: []models.WindowSample{
				sample(0, "A", ""), sample(25, "B", ""), sample(99, "C", ""),
			},
			duration: 30,
		},
		{
			name: "non-monotonic timestamps",
			samples: []models.WindowSample{
				sample(0, "A", ""), sample(20, "B", ""), sample(5, "C", ""),
			},
			duration: 30,
		},
		{
			name: "first sample not at zero",
			samples: []models.WindowSample{
				sample(3, "A", ""), sample(12, "B", ""),
			},
			duration: 30,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			segments := BuildSegments(tc.samples, tc.duration)
			require.NotEmpty(t, segments)

			assert.Equal(t, 0.0, segments[0].Start)
			assert.Equal(t, tc.duration, segments[len(segments)-1].End)
			for i := 0; i < len(segments)-1; i++ {
				assert.Equal(t, segments[i].End, segments[i+1].Start, "segments must be contiguous")
			}
			for _, seg := range segments {
				assert.Less(t, seg.Start, seg.End, "segments must have positive length")
			}
		})
	}
}

func TestBuildSegmentsDeterministic(t *testing.T) {
	samples := []models.WindowSample{
		sample(0, "A", "x"), sample(4, "B", "y"), sample(9, "A", "x"),
	}
	first := BuildSegments(samples, 20)
	second := BuildSegments(samples, 20)
	assert.Equal(t, first, second)
}

func TestFormatSegments(t *testing.T) {
	segments := []models.TimeSegment{
		{Start: 0, End: 10, AppName: "Code", WindowTitle: "main.go"},
		{Start: 10, End: 30, AppName: "Chrome"},
	}

	text := FormatSegments(segments)
	assert.Contains(t, text, "Window focus:")
	assert.Contains(t, text, "- [0s - 10s] Code: main.go")
	assert.Contains(t, text, "- [10s - 30s] Chrome\n")

	assert.Empty(t, FormatSegments(nil))
}
