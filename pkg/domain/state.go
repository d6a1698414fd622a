package domain

// Status describes the current mode of a conversation.
type Status string

const (
	// StatusIdle means the engine is parked on a node, waiting for the visitor.
	StatusIdle Status = "idle"
	// StatusAwaitingDelivery means a simulated bot response is pending; all
	// visitor-initiated transitions are rejected until it lands.
	StatusAwaitingDelivery Status = "awaiting_delivery"
	// StatusEnded means a terminal node was reached. Absorbing state.
	StatusEnded Status = "ended"
)

// State is the full snapshot of one widget session. It is owned exclusively
// by its Conversation; callers only ever see copies.
type State struct {
	// CurrentNodeID points into the script graph.
	CurrentNodeID string `json:"current_node_id"`

	// Status tracks the idle / awaiting-delivery / ended machine.
	Status Status `json:"status"`

	// PendingNodeID is the delivery target while Status is awaiting_delivery.
	PendingNodeID string `json:"pending_node_id,omitempty"`

	// History is the append-only transcript. Never mutated or reordered.
	History []Turn `json:"history"`

	// Answers maps answer keys to collected values. Input nodes key by their
	// input kind, choice nodes by their node id. Last write wins.
	Answers map[string]string `json:"answers"`

	// Submitted latches once the lead submission has been attempted,
	// guarding against duplicates.
	Submitted bool `json:"submitted"`
}

// NewState creates a fresh state with the first delivery (the greeting)
// already pending at the start node.
func NewState(startNodeID string) *State {
	return &State{
		CurrentNodeID: startNodeID,
		Status:        StatusAwaitingDelivery,
		PendingNodeID: startNodeID,
		Answers:       make(map[string]string),
	}
}

// AwaitingDelivery reports whether a bot turn is still "typing".
func (s *State) AwaitingDelivery() bool {
	return s.Status == StatusAwaitingDelivery
}

// Clone returns a deep copy safe to hand outside the engine.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.History = make([]Turn, len(s.History))
	copy(next.History, s.History)
	next.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		next.Answers[k] = v
	}
	return &next
}
