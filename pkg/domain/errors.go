package domain

import "errors"

// ErrNodeNotFound is returned when a transition references a node id that is
// not in the script. This is a script-authoring defect, not a runtime
// condition to recover from.
var ErrNodeNotFound = errors.New("node not found")

// ErrSessionNotFound is returned when a widget session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidInput is returned when a submitted value fails validation.
// The conversation does not advance and no turn is recorded.
var ErrInvalidInput = errors.New("invalid input")

// ErrDeliveryPending is returned when a visitor action arrives while a bot
// turn is still being delivered. The action is a no-op.
var ErrDeliveryPending = errors.New("delivery pending")

// ErrConversationEnded is returned for actions on a terminal conversation.
var ErrConversationEnded = errors.New("conversation ended")

// ErrWrongNode is returned when an option selection targets a node other
// than the current one (a stale or racing click).
var ErrWrongNode = errors.New("selection does not match current node")

// ErrNotActivated is returned for visitor actions before Activate.
var ErrNotActivated = errors.New("conversation not activated")
