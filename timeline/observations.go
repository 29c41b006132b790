package timeline

import (
	"encoding/json"

	"github.com/dayloom/dayloom/models"
)

const fallbackTextLimit = 500

// observationPayload is the tolerated wire shape of one observation entry.
// Pointer fields distinguish absent values from zero values.
type observationPayload struct {
	StartTs     *float64 `json:"start_ts"`
	EndTs       *float64 `json:"end_ts"`
	Text        string   `json:"text"`
	AppName     *string  `json:"app_name"`
	WindowTitle *string  `json:"window_title"`
}

// ParseObservations extracts the observation list embedded in a model
// response. Responses may wrap the payload in prose; the first balanced JSON
// object wins. Entries missing timestamps default to [0, duration]; entries
// that cannot be decoded at all are dropped. When no payload can be located
// or parsed, the whole response becomes a single observation spanning
// [0, duration] so a successful model call never yields silence.
func ParseObservations(text string, duration float64) []models.Observation {
	raw, ok := extractJSONObject(text)
	if !ok {
		return []models.Observation{fallbackObservation(text, duration)}
	}

	var payload struct {
		Observations []json.RawMessage `json:"observations"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return []models.Observation{fallbackObservation(text, duration)}
	}

	observations := make([]models.Observation, 0, len(payload.Observations))
	for _, entry := range payload.Observations {
		var item observationPayload
		if err := json.Unmarshal(entry, &item); err != nil {
			continue
		}

		obs := models.Observation{
			StartTs: 0,
			EndTs:   duration,
			Text:    item.Text,
		}
		if item.StartTs != nil {
			obs.StartTs = *item.StartTs
		}
		if item.EndTs != nil {
			obs.EndTs = *item.EndTs
		}
		if item.AppName != nil {
			obs.AppName = *item.AppName
		}
		if item.WindowTitle != nil {
			obs.WindowTitle = *item.WindowTitle
		}

		observations = append(observations, repairBounds(obs, duration))
	}
	return observations
}

// repairBounds forces 0 <= start <= end <= duration. Out-of-range values are
// clamped rather than rejected; partial data beats no data.
func repairBounds(obs models.Observation, duration float64) models.Observation {
	obs.StartTs = clampRange(obs.StartTs, 0, duration)
	obs.EndTs = clampRange(obs.EndTs, 0, duration)
	if obs.StartTs > obs.EndTs {
		obs.StartTs, obs.EndTs = obs.EndTs, obs.StartTs
	}
	return obs
}

func fallbackObservation(text string, duration float64) models.Observation {
	return models.Observation{
		StartTs: 0,
		EndTs:   duration,
		Text:    truncate(text, fallbackTextLimit),
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// extractJSONObject returns the first brace-balanced object embedded in s.
// Braces inside JSON strings do not count toward the balance.
func extractJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range s {
		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return "", false
}
