package domain

// Kind classifies how the conversation continues from a node.
type Kind string

const (
	// KindChoice presents a fixed set of options; selecting one transitions.
	KindChoice Kind = "choice"
	// KindInput collects free text (name, email, phone) before transitioning.
	KindInput Kind = "input"
	// KindTerminal ends the conversation; no outgoing transition.
	KindTerminal Kind = "terminal"
)

// InputKind identifies which contact field an input node collects.
// It doubles as the answer key for values collected by input nodes.
type InputKind string

const (
	InputName  InputKind = "name"
	InputEmail InputKind = "email"
	InputPhone InputKind = "phone"
)

// Option is one selectable continuation of a choice node.
// Label is what the visitor sees (and what is echoed as their turn),
// Value is what gets recorded, Next is the node entered after selection.
type Option struct {
	Label string `json:"label" yaml:"label" mapstructure:"label"`
	Value string `json:"value" yaml:"value" mapstructure:"value"`
	Next  string `json:"next" yaml:"next" mapstructure:"next"`
}

// Node is one step of the scripted conversation.
//
// A node's kind is derived, not declared: options make it a choice node,
// an input kind makes it an input node, neither makes it terminal.
type Node struct {
	ID      string `json:"id" yaml:"id" mapstructure:"id"`
	Message string `json:"message" yaml:"message" mapstructure:"message"`

	// Options is the ordered list of continuations for a choice node.
	Options []Option `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`

	// Input configuration (input nodes only).
	Input    InputKind `json:"input,omitempty" yaml:"input,omitempty" mapstructure:"input"`
	Optional bool      `json:"optional,omitempty" yaml:"optional,omitempty" mapstructure:"optional"`

	// Next is the node entered after a valid (or skipped) input submission.
	Next string `json:"next,omitempty" yaml:"next,omitempty" mapstructure:"next"`
}

// Kind derives the node's control-flow class from its configuration.
func (n Node) Kind() Kind {
	switch {
	case len(n.Options) > 0:
		return KindChoice
	case n.Input != "":
		return KindInput
	default:
		return KindTerminal
	}
}

// OptionByValue looks up an option by its recorded value.
// Hosts send the value back, never the label, so forged labels cannot
// end up in the transcript.
func (n Node) OptionByValue(value string) (Option, bool) {
	for _, opt := range n.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}
