package models

import "time"

// WindowSample is one raw focus-telemetry reading taken during capture.
// Timestamps are seconds relative to the start of the capture segment and
// are not guaranteed to be monotonic.
type WindowSample struct {
	Timestamp   float64 `json:"timestamp"`
	AppName     string  `json:"app_name"`
	WindowTitle string  `json:"window_title"`
}

// TimeSegment is a contiguous span during which a single (app, title) pair
// held focus. Segments from one capture stream never overlap and together
// span [0, duration].
type TimeSegment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	AppName     string  `json:"app_name"`
	WindowTitle string  `json:"window_title"`
}

// Observation is a short time-bounded description of what the user did,
// inferred from visual evidence. AppName and WindowTitle are empty when
// the model reported none.
type Observation struct {
	StartTs     float64 `json:"start_ts"`
	EndTs       float64 `json:"end_ts"`
	Text        string  `json:"text"`
	AppName     string  `json:"app_name,omitempty"`
	WindowTitle string  `json:"window_title,omitempty"`
}

// CaptureBatch is one completed capture segment handed to the analysis
// worker: the recorded video plus the window telemetry gathered alongside it.
type CaptureBatch struct {
	SessionID string
	VideoPath string
	Duration  float64
	StartedAt time.Time
	Samples   []WindowSample
}

// ObservationBatch carries parsed, overlay-corrected observations from the
// analysis worker to the card-generation worker.
type ObservationBatch struct {
	SessionID    string
	StartedAt    time.Time
	Observations []Observation
}
