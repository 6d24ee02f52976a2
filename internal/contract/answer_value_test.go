package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerValue_JSON(t *testing.T) {
	t.Run("string form", func(t *testing.T) {
		var v AnswerValue
		require.NoError(t, json.Unmarshal([]byte(`"chlorophyll"`), &v))
		assert.True(t, v.IsText)
		assert.Equal(t, "chlorophyll", v.Text)

		out, err := json.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, `"chlorophyll"`, string(out))
	})

	t.Run("index form", func(t *testing.T) {
		var v AnswerValue
		require.NoError(t, json.Unmarshal([]byte(`[0,2]`), &v))
		assert.False(t, v.IsText)
		assert.Equal(t, []int{0, 2}, v.Indices)

		out, err := json.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, `[0,2]`, string(out))
	})

	t.Run("empty choice marshals as empty array", func(t *testing.T) {
		out, err := json.Marshal(ChoiceAnswer())
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(out))
	})

	t.Run("rejects objects", func(t *testing.T) {
		var v AnswerValue
		err := json.Unmarshal([]byte(`{"text":"nope"}`), &v)
		assert.Error(t, err)
	})
}

func TestAnswerValue_RoundTripInsideMap(t *testing.T) {
	answers := map[string]AnswerValue{
		"q1": TextAnswer("mitochondria"),
		"q2": ChoiceAnswer(1),
	}

	raw, err := json.Marshal(answers)
	require.NoError(t, err)

	var decoded map[string]AnswerValue
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, answers, decoded)
}
