package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dayloom/dayloom/config"
	"github.com/dayloom/dayloom/models"
)

const memoryNamespace = "dayloom-cards"

// ActivityMemory is an optional semantic index of synthesized cards. Each
// card summary is embedded and upserted so past activity can be recalled by
// meaning. Everything here is best-effort: failures are logged and never
// block the pipeline.
type ActivityMemory struct {
	index       *pinecone.IndexConnection
	completions *CompletionClient
}

// NewActivityMemory connects to the configured index. Returns nil without
// error when no index is configured; the engine runs fine without memory.
func NewActivityMemory(ctx context.Context, cfg *config.Config, completions *CompletionClient) (*ActivityMemory, error) {
	if cfg.PineconeIndex == "" {
		return nil, nil
	}
	if cfg.PineconeAPIKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY environment variable is not set")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.PineconeAPIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	idx, err := client.DescribeIndex(ctx, cfg.PineconeIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %q: %w", cfg.PineconeIndex, err)
	}

	idxConnection, err := client.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: memoryNamespace})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection for host %v: %w", idx.Host, err)
	}

	return &ActivityMemory{index: idxConnection, completions: completions}, nil
}

// Remember embeds and stores one card. Safe on a nil memory.
func (m *ActivityMemory) Remember(ctx context.Context, card models.ActivityCard) error {
	if m == nil {
		return nil
	}

	text := fmt.Sprintf("%s: %s. %s", card.Category, card.Title, card.Summary)
	embedding, err := m.completions.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed card: %w", err)
	}

	metadataFields := map[string]interface{}{
		"text":     text,
		"category": string(card.Category),
		"title":    card.Title,
		"score":    card.ProductivityScore,
	}
	if card.StartTime != nil {
		metadataFields["started_at"] = card.StartTime.Unix()
	}
	metadata, err := structpb.NewStruct(metadataFields)
	if err != nil {
		return fmt.Errorf("build metadata: %w", err)
	}

	vectorID := card.ID
	if vectorID == "" {
		vectorID = fmt.Sprintf("card-%d", time.Now().UnixNano())
	}

	_, err = m.index.UpsertVectors(ctx, []*pinecone.Vector{{
		Id:       vectorID,
		Values:   embedding,
		Metadata: metadata,
	}})
	if err != nil {
		return fmt.Errorf("upsert card vector: %w", err)
	}

	zap.L().Debug("Card stored in activity memory", zap.String("vector_id", vectorID))
	return nil
}

// Recall returns the stored card texts most similar to the query.
func (m *ActivityMemory) Recall(ctx context.Context, query string, topK int) ([]string, error) {
	if m == nil {
		return nil, nil
	}

	embedding, err := m.completions.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	queryResponse, err := m.index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          embedding,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query activity memory: %w", err)
	}

	var matches []string
	for _, match := range queryResponse.Matches {
		if match.Vector == nil || match.Vector.Metadata == nil {
			continue
		}
		if value, ok := match.Vector.Metadata.Fields["text"]; ok {
			if text := value.GetStringValue(); text != "" {
				matches = append(matches, text)
			}
		}
	}
	return matches, nil
}
