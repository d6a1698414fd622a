package script

import "github.com/krauseinafrica/leadchat/pkg/domain"

// Builder assembles a script fluently. Nodes can be declared in any order;
// Build compiles and validates the result.
type Builder struct {
	nodes      []*NodeBuilder
	index      map[string]*NodeBuilder
	start      string
	completion string
}

// NewBuilder creates an empty script builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[string]*NodeBuilder)}
}

// Node declares (or returns the existing) node with the given id.
func (b *Builder) Node(id string) *NodeBuilder {
	if nb, ok := b.index[id]; ok {
		return nb
	}
	nb := &NodeBuilder{node: domain.Node{ID: id}, builder: b}
	b.index[id] = nb
	b.nodes = append(b.nodes, nb)
	return nb
}

// Start marks the node delivered on activation.
func (b *Builder) Start(id string) *Builder {
	b.start = id
	return b
}

// Completion marks the terminal node whose entry submits the lead.
func (b *Builder) Completion(id string) *Builder {
	b.completion = id
	return b
}

// Build compiles the declared nodes into a validated Graph.
func (b *Builder) Build() (*Graph, error) {
	nodes := make([]domain.Node, 0, len(b.nodes))
	for _, nb := range b.nodes {
		nodes = append(nodes, nb.node)
	}
	return Compile(nodes, b.start, b.completion)
}

// NodeBuilder configures a single node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Message sets the bot text shown when the node is entered.
func (nb *NodeBuilder) Message(text string) *NodeBuilder {
	nb.node.Message = text
	return nb
}

// Option appends a choice continuation.
func (nb *NodeBuilder) Option(label, value, next string) *NodeBuilder {
	nb.node.Options = append(nb.node.Options, domain.Option{Label: label, Value: value, Next: next})
	return nb
}

// Input configures the node to collect a contact field, continuing at next.
func (nb *NodeBuilder) Input(kind domain.InputKind, next string) *NodeBuilder {
	nb.node.Input = kind
	nb.node.Next = next
	return nb
}

// Skippable marks an input node's field as optional: an empty submission
// records the skip sentinel instead of blocking.
func (nb *NodeBuilder) Skippable() *NodeBuilder {
	nb.node.Optional = true
	return nb
}

// Done returns to the parent builder for chaining.
func (nb *NodeBuilder) Done() *Builder {
	return nb.builder
}
