package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dayloom/dayloom/models"
	"github.com/dayloom/dayloom/timeline"
	"github.com/dayloom/dayloom/utils"
)

const transcribeSystemPrompt = `You are a screen-activity analyst. Given key frames from a screen recording and the window focus log, describe what the user actually did.

Return JSON in this shape:
{
  "observations": [
    {"start_ts": 0, "end_ts": 10, "text": "Writing Python code implementing a login flow"}
  ]
}

Rules:
- start_ts/end_ts are seconds relative to the start of the recording
- text describes only the behavior (what code, what content, what action), never the application name
- Use the window titles for context (file names, page titles, chat partners)
- Return JSON only`

// AnalysisHandler turns each completed capture segment into overlay-corrected
// observations: frame sampling and telemetry segmentation run concurrently,
// then one transcription call, then parsing and ground-truth attribution.
type AnalysisHandler struct {
	session *CaptureSession
	deps    *Deps
}

func InitAnalysisHandler(session *CaptureSession, deps *Deps) *AnalysisHandler {
	session.Logger.Info("Initializing analysis handler")

	handler := &AnalysisHandler{
		session: session,
		deps:    deps,
	}
	go handler.run()
	return handler
}

func (h *AnalysisHandler) run() {
	h.session.Logger.Info("Analysis handler goroutine started")
	for batch := range h.session.BatchCh {
		h.process(batch)
	}
	h.session.Logger.Info("Analysis handler goroutine stopped")
}

func (h *AnalysisHandler) process(batch models.CaptureBatch) {
	logger := h.session.Logger.With(zap.String("video_path", batch.VideoPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		frames   [][]byte
		frameErr error
		segments []models.TimeSegment
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		frames, frameErr = h.deps.Sampler.ExtractFrames(ctx, batch.VideoPath)
	}()
	go func() {
		defer wg.Done()
		segments = timeline.BuildSegments(batch.Samples, batch.Duration)
	}()
	wg.Wait()

	if frameErr != nil {
		if errors.Is(frameErr, utils.ErrSourceUnavailable) {
			logger.Warn("Video source unavailable, skipping batch", zap.Error(frameErr))
		} else {
			logger.Error("Frame extraction failed, skipping batch", zap.Error(frameErr))
		}
		return
	}
	if len(frames) == 0 {
		logger.Warn("No frames extracted, skipping batch")
		return
	}

	header := fmt.Sprintf("These are %d key frames from a %.0f-second screen recording. Analyze the user's activity.",
		len(frames), batch.Duration)
	if windowInfo := timeline.FormatSegments(segments); windowInfo != "" {
		header += "\n\n" + windowInfo
	}

	parts := make([]utils.ContentPart, 0, 1+len(frames))
	parts = append(parts, utils.ContentPart{Text: header})
	for _, frame := range frames {
		parts = append(parts, utils.ContentPart{ImageJPEG: frame, Detail: "low"})
	}

	response, err := h.deps.Provider.Complete(ctx, transcribeSystemPrompt, parts, 0.3)
	if err != nil {
		logger.Error("Transcription call failed, batch lost", zap.Error(err))
		return
	}

	observations := timeline.ParseObservations(response, batch.Duration)
	observations = timeline.ApplySegments(observations, segments)
	logger.Info("Batch analyzed",
		zap.Int("frames", len(frames)),
		zap.Int("segments", len(segments)),
		zap.Int("observations", len(observations)))

	h.deps.Cards.Enqueue(cardJob{
		session: h.session,
		batch: models.ObservationBatch{
			SessionID:    batch.SessionID,
			StartedAt:    batch.StartedAt,
			Observations: observations,
		},
	})
}
