package timeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObservationsWellFormed(t *testing.T) {
	response := `{"observations": [
		{"start_ts": 0, "end_ts": 20, "text": "Editing a Go file", "app_name": "Code"},
		{"start_ts": 20, "end_ts": 60, "text": "Reading documentation"}
	]}`

	observations := ParseObservations(response, 60)
	require.Len(t, observations, 2)
	assert.Equal(t, "Editing a Go file", observations[0].Text)
	assert.Equal(t, "Code", observations[0].AppName)
	assert.Equal(t, 20.0, observations[1].StartTs)
	assert.Equal(t, 60.0, observations[1].EndTs)
	assert.Empty(t, observations[1].AppName)
}

func TestParseObservationsProseWrapped(t *testing.T) {
	response := "Here is what I saw:\n```json\n" +
		`{"observations": [{"start_ts": 5, "end_ts": 15, "text": "Browsing"}]}` +
		"\n```\nLet me know if you need more detail."

	observations := ParseObservations(response, 30)
	require.Len(t, observations, 1)
	assert.Equal(t, 5.0, observations[0].StartTs)
	assert.Equal(t, 15.0, observations[0].EndTs)
}

func TestParseObservationsNoJSONFallsBack(t *testing.T) {
	response := "I think the user was coding. no json here"

	observations := ParseObservations(response, 30)
	require.Len(t, observations, 1)
	assert.Equal(t, 0.0, observations[0].StartTs)
	assert.Equal(t, 30.0, observations[0].EndTs)
	assert.Equal(t, response, observations[0].Text)
}

func TestParseObservationsFallbackTruncates(t *testing.T) {
	response := strings.Repeat("x", 1200)

	observations := ParseObservations(response, 10)
	require.Len(t, observations, 1)
	assert.Len(t, []rune(observations[0].Text), 500)
}

func TestParseObservationsMissingTimestampsDefault(t *testing.T) {
	response := `{"observations": [{"text": "Something happened"}]}`

	observations := ParseObservations(response, 45)
	require.Len(t, observations, 1)
	assert.Equal(t, 0.0, observations[0].StartTs)
	assert.Equal(t, 45.0, observations[0].EndTs)
}

func TestParseObservationsRepairsBounds(t *testing.T) {
	response := `{"observations": [
		{"start_ts": -5, "end_ts": 120, "text": "clamped"},
		{"start_ts": 25, "end_ts": 10, "text": "inverted"}
	]}`

	observations := ParseObservations(response, 60)
	require.Len(t, observations, 2)
	assert.Equal(t, 0.0, observations[0].StartTs)
	assert.Equal(t, 60.0, observations[0].EndTs)
	assert.Equal(t, 10.0, observations[1].StartTs)
	assert.Equal(t, 25.0, observations[1].EndTs)
}

func TestParseObservationsDropsUndecodableEntries(t *testing.T) {
	response := `{"observations": [
		{"start_ts": 0, "end_ts": 10, "text": "good"},
		"this entry is a bare string",
		{"start_ts": "not a number", "end_ts": 20, "text": "bad types"}
	]}`

	observations := ParseObservations(response, 30)
	require.Len(t, observations, 1)
	assert.Equal(t, "good", observations[0].Text)
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"prose around", `sure: {"a": 1} done`, `{"a": 1}`, true},
		{"nested", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`, true},
		{"brace in string", `{"a": "}{"}`, `{"a": "}{"}`, true},
		{"escaped quote in string", `{"a": "say \"}\" now"}`, `{"a": "say \"}\" now"}`, true},
		{"no object", "nothing here", "", false},
		{"unclosed", `{"a": 1`, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractJSONObject(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
