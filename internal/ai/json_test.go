package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"raw json", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n[1,2,3]\n```", `[1,2,3]`},
		{"surrounding whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractJSON(tc.input)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestExtractJSON_Malformed(t *testing.T) {
	_, err := extractJSON("Sure! Here is the JSON you asked for: {\"a\":")
	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestWithJSONDefaults(t *testing.T) {
	prepared := withJSONDefaults(GenerateParams{Prompt: "list the topics"})
	assert.True(t, strings.HasSuffix(prepared.Prompt, jsonInstruction))
	require.NotNil(t, prepared.Temperature)
	assert.Equal(t, 0.1, *prepared.Temperature)

	// An explicitly set temperature is kept.
	warm := 0.7
	prepared = withJSONDefaults(GenerateParams{Prompt: "list the topics", Temperature: &warm})
	require.NotNil(t, prepared.Temperature)
	assert.Equal(t, 0.7, *prepared.Temperature)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, strings.Repeat("x", 5), truncate(strings.Repeat("x", 20), 5))
	// Rune-safe: never splits a multi-byte character.
	assert.Equal(t, "日本", truncate("日本語", 2))
}
