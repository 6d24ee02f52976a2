package contract

import "encoding/json"

// Bot action types consumed by the chat renderer.
const (
	ActionSendMessage     = "send_message"
	ActionShowButtons     = "show_buttons"
	ActionShowTest        = "show_test"
	ActionRequestHomework = "request_homework"
)

type Button struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// BotAction is one instruction for the chat-facing renderer. Type decides
// which of the optional fields are meaningful.
type BotAction struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ParseMode string          `json:"parse_mode,omitempty"`
	Buttons   []Button        `json:"buttons,omitempty"`
	Inline    bool            `json:"inline,omitempty"`
	TestID    string          `json:"test_id,omitempty"`
	AttemptID string          `json:"attempt_id,omitempty"`
	Spec      json.RawMessage `json:"spec,omitempty"`
	Prompt    string          `json:"prompt,omitempty"`
	FormURL   string          `json:"form_url,omitempty"`
}

func SendMessage(text string) BotAction {
	return BotAction{Type: ActionSendMessage, Text: text, ParseMode: "Markdown"}
}

func ShowButtons(text string, buttons ...Button) BotAction {
	return BotAction{Type: ActionShowButtons, Text: text, Buttons: buttons, Inline: true}
}

func ShowTest(testID string, spec json.RawMessage) BotAction {
	return BotAction{Type: ActionShowTest, TestID: testID, Spec: spec}
}

func RequestHomework(prompt, formURL string) BotAction {
	return BotAction{Type: ActionRequestHomework, Prompt: prompt, FormURL: formURL}
}
