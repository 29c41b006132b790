package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dayloom/dayloom/config"
	"github.com/dayloom/dayloom/models"
)

// CardStore persists activity cards in redis, one list per calendar day.
// It is the storage collaborator behind the engine's narrow read/write
// contract; the engine only ever appends new cards and reads days back.
type CardStore struct {
	client *redis.Client
}

func NewCardStore(cfg *config.Config) *CardStore {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          0,
		DialTimeout: 20 * time.Second,
	})
	return &CardStore{client: client}
}

// Ping verifies the connection is alive.
func (s *CardStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// AppendCard persists one newly synthesized card under its start date.
// Cards without a start time land on the current day.
func (s *CardStore) AppendCard(ctx context.Context, card models.ActivityCard) error {
	day := time.Now()
	if card.StartTime != nil {
		day = *card.StartTime
	}

	data, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}
	if err := s.client.RPush(ctx, cardKey(day), data).Err(); err != nil {
		return fmt.Errorf("append card: %w", err)
	}
	return nil
}

// CardsForDate returns the cards stored for one calendar day, in insertion
// order. Entries that no longer decode are skipped, not fatal.
func (s *CardStore) CardsForDate(ctx context.Context, date time.Time) ([]models.ActivityCard, error) {
	entries, err := s.client.LRange(ctx, cardKey(date), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read cards: %w", err)
	}

	cards := make([]models.ActivityCard, 0, len(entries))
	for _, entry := range entries {
		var card models.ActivityCard
		if err := json.Unmarshal([]byte(entry), &card); err != nil {
			zap.L().Warn("Skipping undecodable stored card", zap.Error(err))
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func (s *CardStore) Close() error {
	return s.client.Close()
}

func cardKey(t time.Time) string {
	return "cards:" + t.Format("2006-01-02")
}
