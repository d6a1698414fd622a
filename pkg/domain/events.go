package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventTurn      EventType = "turn"
	EventSubmit    EventType = "submit"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent fires when a delivery lands and the conversation enters a node.
type NodeEvent struct {
	EventBase
	NodeID   string `json:"node_id"`
	NodeKind Kind   `json:"node_kind"`
}

// TurnEvent fires for every turn appended to the transcript.
type TurnEvent struct {
	EventBase
	Turn Turn `json:"turn"`
}

// SubmitEvent fires after the single lead submission attempt.
type SubmitEvent struct {
	EventBase
	Lead    Lead   `json:"lead"`
	IsError bool   `json:"is_error,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// All hooks are optional and must not block: they run on the delivery path.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnTurn      func(context.Context, *TurnEvent)
	OnSubmit    func(context.Context, *SubmitEvent)
}

// MergeHooks fans one event out to several hook sets (e.g. metrics plus an
// SSE broadcaster), in the order given.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnTurn: func(ctx context.Context, e *TurnEvent) {
			for _, h := range hooks {
				if h.OnTurn != nil {
					h.OnTurn(ctx, e)
				}
			}
		},
		OnSubmit: func(ctx context.Context, e *SubmitEvent) {
			for _, h := range hooks {
				if h.OnSubmit != nil {
					h.OnSubmit(ctx, e)
				}
			}
		},
	}
}
