package timeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dayloom/dayloom/models"
)

// CardContextLimit is how many trailing cards are offered as continuity
// context to the generation call.
const CardContextLimit = 3

const untitledCard = "Untitled activity"

// cardPayload is the tolerated wire shape of one card entry. The score is
// typed loosely because models occasionally quote numbers.
type cardPayload struct {
	Category          *string           `json:"category"`
	Title             *string           `json:"title"`
	Summary           *string           `json:"summary"`
	StartTime         *string           `json:"start_time"`
	EndTime           *string           `json:"end_time"`
	AppSites          []json.RawMessage `json:"app_sites"`
	Distractions      []json.RawMessage `json:"distractions"`
	ProductivityScore any               `json:"productivity_score"`
}

type appSitePayload struct {
	Name            *string `json:"name"`
	DurationSeconds any     `json:"duration_seconds"`
}

type distractionPayload struct {
	Description     *string `json:"description"`
	Timestamp       any     `json:"timestamp"`
	DurationSeconds any     `json:"duration_seconds"`
}

// ParseCards extracts the card list embedded in a model response and builds
// validated activity cards. A card's own start_time wins when it parses as an
// ISO-8601 timestamp; otherwise start_time falls back to the supplied anchor.
// end_time is never fabricated: absent or unparseable means absent. An
// entirely unparseable payload yields an empty list; losing one batch is
// tolerated, retrying is not.
func ParseCards(text string, anchor *time.Time) []models.ActivityCard {
	raw, ok := extractJSONObject(text)
	if !ok {
		return nil
	}

	var payload struct {
		Cards []json.RawMessage `json:"cards"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}

	cards := make([]models.ActivityCard, 0, len(payload.Cards))
	for _, entry := range payload.Cards {
		var item cardPayload
		if err := json.Unmarshal(entry, &item); err != nil {
			continue
		}

		card := models.ActivityCard{
			Category:          models.CategoryOther,
			Title:             untitledCard,
			StartTime:         anchor,
			AppSites:          []models.AppSite{},
			Distractions:      []models.Distraction{},
			ProductivityScore: coerceFloat(item.ProductivityScore, 0),
		}
		if item.Category != nil {
			card.Category = models.ParseCategory(*item.Category)
		}
		if item.Title != nil && *item.Title != "" {
			card.Title = *item.Title
		}
		if item.Summary != nil {
			card.Summary = *item.Summary
		}
		if item.StartTime != nil {
			if ts, ok := parseCardTime(*item.StartTime); ok {
				card.StartTime = &ts
			}
		}
		if item.EndTime != nil {
			if ts, ok := parseCardTime(*item.EndTime); ok {
				card.EndTime = &ts
			}
		}

		for _, rawSite := range item.AppSites {
			site := models.AppSite{}
			var sp appSitePayload
			if err := json.Unmarshal(rawSite, &sp); err == nil {
				if sp.Name != nil {
					site.Name = *sp.Name
				}
				site.DurationSeconds = coerceFloat(sp.DurationSeconds, 0)
			}
			card.AppSites = append(card.AppSites, site)
		}

		for _, rawDist := range item.Distractions {
			dist := models.Distraction{}
			var dp distractionPayload
			if err := json.Unmarshal(rawDist, &dp); err == nil {
				if dp.Description != nil {
					dist.Description = *dp.Description
				}
				dist.Timestamp = coerceFloat(dp.Timestamp, 0)
				dist.DurationSeconds = coerceFloat(dp.DurationSeconds, 0)
			}
			card.Distractions = append(card.Distractions, dist)
		}

		cards = append(cards, card)
	}
	return cards
}

// BuildCardPrompt renders the user content for the card-generation call:
// the observation log, the recording anchor, and the trailing cards that let
// the model recognize a batch as the continuation of ongoing activity. The
// merge decision itself belongs to the model, not to this engine.
func BuildCardPrompt(observations []models.Observation, startedAt *time.Time, contextCards []models.ActivityCard) string {
	var b strings.Builder
	b.WriteString("Observations:\n")
	for _, obs := range observations {
		fmt.Fprintf(&b, "- [%.0fs - %.0fs] %s", obs.StartTs, obs.EndTs, obs.Text)
		if obs.AppName != "" {
			fmt.Fprintf(&b, " (app: %s)", obs.AppName)
		}
		b.WriteString("\n")
	}

	if startedAt != nil {
		fmt.Fprintf(&b, "\nRecording started at: %s\n", startedAt.Format(time.RFC3339))
	}

	if len(contextCards) > 0 {
		b.WriteString("\nPrior activity cards:\n")
		tail := contextCards
		if len(tail) > CardContextLimit {
			tail = tail[len(tail)-CardContextLimit:]
		}
		for _, card := range tail {
			fmt.Fprintf(&b, "- %s: %s\n", card.Category, card.Title)
		}
	}

	return b.String()
}

// parseCardTime accepts RFC 3339 timestamps as well as zone-less ISO-8601
// values, which are taken as local time.
func parseCardTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, true
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

func coerceFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return fallback
}
