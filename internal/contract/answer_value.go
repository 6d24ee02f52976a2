package contract

import (
	"encoding/json"
	"fmt"
)

// AnswerValue is either free text (short_answer) or an ordered set of option
// indices (multiple_choice). The JSON form is a plain string or an array of
// numbers, matching what the generation models produce.
type AnswerValue struct {
	Text    string
	Indices []int
	IsText  bool
}

func TextAnswer(s string) AnswerValue {
	return AnswerValue{Text: s, IsText: true}
}

func ChoiceAnswer(indices ...int) AnswerValue {
	return AnswerValue{Indices: indices}
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.IsText {
		return json.Marshal(v.Text)
	}
	if v.Indices == nil {
		return json.Marshal([]int{})
	}
	return json.Marshal(v.Indices)
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = AnswerValue{Text: s, IsText: true}
		return nil
	}
	var indices []int
	if err := json.Unmarshal(data, &indices); err == nil {
		*v = AnswerValue{Indices: indices}
		return nil
	}
	return fmt.Errorf("answer value must be a string or an array of option indices, got %s", string(data))
}

// String renders the value for inclusion in grading prompts.
func (v AnswerValue) String() string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
