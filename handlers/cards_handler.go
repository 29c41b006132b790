package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dayloom/dayloom/models"
	"github.com/dayloom/dayloom/timeline"
	"github.com/dayloom/dayloom/utils"
)

const cardsSystemPrompt = `You are a time-management assistant. Turn the observation log into activity cards.

JSON shape:
{
  "cards": [
    {
      "category": "Programming",
      "title": "Dayloom feature work",
      "summary": "Implemented the login flow and wrote unit tests",
      "start_time": "2024-01-01T10:00:00",
      "end_time": "2024-01-01T11:30:00",
      "app_sites": [{"name": "VS Code", "duration_seconds": 5400}],
      "distractions": [],
      "productivity_score": 85
    }
  ]
}

Categories:
- Programming: writing code, debugging, code review
- Work: documents, email, project management, design
- Learning: tutorials, reading docs, note taking
- Meeting: video calls, voice calls
- Social: chat, social media
- Entertainment: video, games, music
- Rest: no visible activity
- Other: anything unclassifiable

productivity_score guidance:
- 90-100: deeply focused core work (coding, writing, design)
- 70-89: regular work (email, documents, meetings)
- 50-69: inefficient work (frequent switching, fragmented tasks)
- 30-49: light entertainment (browsing, social)
- 0-29: pure entertainment (games, video)

Merging: consecutive same-application, similar activity becomes one card.
Splitting: switching activity types within one span becomes multiple cards.

Cross-batch continuity:
- If the last prior activity card matches the start of the current observations, treat it as a continuation rather than a new activity
- Check the prior cards' category and title; when continuing, reflect the continuation in the title

Return JSON only`

// cardJob pairs an observation batch with the session that produced it so
// synthesized cards can be pushed back to the client.
type cardJob struct {
	session *CaptureSession
	batch   models.ObservationBatch
}

// CardsHandler is the engine's single card-generation worker. One goroutine
// consumes batches in arrival order, which keeps generation calls strictly
// sequential: the continuity context for each batch depends on the cards
// already synthesized before it.
type CardsHandler struct {
	provider *utils.CompletionClient
	store    *utils.CardStore
	memory   *utils.ActivityMemory

	jobs     chan cardJob
	done     chan struct{}
	trailing []models.ActivityCard
}

func InitCardsHandler(provider *utils.CompletionClient, store *utils.CardStore, memory *utils.ActivityMemory) *CardsHandler {
	handler := &CardsHandler{
		provider: provider,
		store:    store,
		memory:   memory,
		jobs:     make(chan cardJob, 16),
		done:     make(chan struct{}),
	}

	// Seed continuity context from cards already persisted today.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cards, err := store.CardsForDate(ctx, time.Now()); err != nil {
		zap.L().Warn("Failed to load trailing card context", zap.Error(err))
	} else {
		handler.appendTrailing(cards...)
	}

	go handler.run()
	return handler
}

// Enqueue submits a batch for card generation. Blocks when the queue is
// full; FIFO order is what guarantees chronological generation.
func (h *CardsHandler) Enqueue(job cardJob) {
	h.jobs <- job
}

// Close stops the worker after the queued batches are drained.
func (h *CardsHandler) Close() {
	close(h.jobs)
	<-h.done
}

// appendTrailing holds only as many cards as the generation prompt uses.
func (h *CardsHandler) appendTrailing(cards ...models.ActivityCard) {
	h.trailing = append(h.trailing, cards...)
	if n := len(h.trailing) - timeline.CardContextLimit; n > 0 {
		h.trailing = h.trailing[n:]
	}
}

func (h *CardsHandler) run() {
	zap.L().Info("Card generation worker started")
	for job := range h.jobs {
		h.process(job)
	}
	zap.L().Info("Card generation worker stopped")
	close(h.done)
}

func (h *CardsHandler) process(job cardJob) {
	batch := job.batch
	if len(batch.Observations) == 0 {
		return
	}
	logger := zap.L().With(zap.String("session_id", batch.SessionID))

	prompt := timeline.BuildCardPrompt(batch.Observations, &batch.StartedAt, h.trailing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	response, err := h.provider.Complete(ctx, cardsSystemPrompt, []utils.ContentPart{{Text: prompt}}, 0.3)
	if err != nil {
		logger.Error("Card generation call failed, batch lost", zap.Error(err))
		return
	}

	cards := timeline.ParseCards(response, &batch.StartedAt)
	if len(cards) == 0 {
		logger.Warn("Card payload unparseable, batch lost")
		return
	}

	for _, card := range cards {
		card.ID = uuid.New().String()

		if err := h.store.AppendCard(ctx, card); err != nil {
			logger.Error("Failed to persist card", zap.Error(err), zap.String("title", card.Title))
			continue
		}

		if h.memory != nil {
			go func(card models.ActivityCard) {
				memCtx, memCancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer memCancel()
				if err := h.memory.Remember(memCtx, card); err != nil {
					logger.Warn("Failed to store card in activity memory", zap.Error(err))
				}
			}(card)
		}

		if job.session != nil {
			job.session.SendCard(card)
		}

		h.appendTrailing(card)
	}

	logger.Info("Cards synthesized", zap.Int("count", len(cards)))
}
