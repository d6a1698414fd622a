package httpapi

import (
	"github.com/krauseinafrica/leadchat"
	"github.com/krauseinafrica/leadchat/pkg/domain"
)

// TurnView is one transcript entry as rendered to the widget.
type TurnView struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// OptionView is one clickable choice. The transition target stays
// server-side; the widget only ever echoes the value back.
type OptionView struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PromptView tells the widget what to render below the transcript.
type PromptView struct {
	// Type is "options", "input" or "none" (terminal).
	Type     string       `json:"type"`
	NodeID   string       `json:"node_id"`
	Options  []OptionView `json:"options,omitempty"`
	Input    string       `json:"input,omitempty"`
	Optional bool         `json:"optional,omitempty"`
}

// SessionView is the full widget-facing snapshot of a conversation.
type SessionView struct {
	SessionID string     `json:"session_id"`
	Page      string     `json:"page"`
	Typing    bool       `json:"typing"`
	Ended     bool       `json:"ended"`
	Submitted bool       `json:"submitted"`
	History   []TurnView `json:"history"`

	// Prompt is nil while the bot is "typing".
	Prompt *PromptView `json:"prompt,omitempty"`
}

// ActionResponse wraps the outcome of an option click or input submission.
type ActionResponse struct {
	Accepted bool        `json:"accepted"`
	Reason   string      `json:"reason,omitempty"`
	View     SessionView `json:"view"`
}

func viewOf(conv *leadchat.Conversation) SessionView {
	state := conv.State()
	view := SessionView{
		SessionID: conv.SessionID(),
		Page:      conv.Page(),
	}
	if state == nil {
		return view
	}

	view.Typing = state.AwaitingDelivery()
	view.Ended = state.Status == domain.StatusEnded
	view.Submitted = state.Submitted
	view.History = make([]TurnView, len(state.History))
	for i, turn := range state.History {
		view.History[i] = TurnView{Speaker: string(turn.Speaker), Text: turn.Text}
	}

	if node, ok := conv.CurrentNode(); ok {
		view.Prompt = promptOf(node)
	}
	return view
}

func promptOf(node domain.Node) *PromptView {
	prompt := &PromptView{NodeID: node.ID}
	switch node.Kind() {
	case domain.KindChoice:
		prompt.Type = "options"
		prompt.Options = make([]OptionView, len(node.Options))
		for i, opt := range node.Options {
			prompt.Options[i] = OptionView{Label: opt.Label, Value: opt.Value}
		}
	case domain.KindInput:
		prompt.Type = "input"
		prompt.Input = string(node.Input)
		prompt.Optional = node.Optional
	default:
		prompt.Type = "none"
	}
	return prompt
}
