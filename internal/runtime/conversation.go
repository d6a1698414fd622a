package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/krauseinafrica/leadchat/internal/logging"
	"github.com/krauseinafrica/leadchat/pkg/domain"
	"github.com/krauseinafrica/leadchat/pkg/ports"
	"github.com/krauseinafrica/leadchat/pkg/script"
)

const submitTimeout = 10 * time.Second

// Conversation drives a single widget session through the script graph.
//
// All user-facing operations take the internal lock, so a Conversation is
// safe for concurrent use by an HTTP host, but the semantics stay cooperative
// and single-threaded: while a bot turn is pending delivery, every
// user-initiated transition is rejected without touching state. The delivery
// timer is the sole suspension point and at most one is outstanding.
type Conversation struct {
	graph     *script.Graph
	submitter ports.LeadSubmitter
	sched     ports.Scheduler
	logger    *slog.Logger
	hooks     domain.LifecycleHooks

	sessionID string
	page      string

	greetingDelay time.Duration
	minDelay      time.Duration
	maxDelay      time.Duration
	perRune       time.Duration

	mu         sync.Mutex
	state      *domain.State
	cancel     ports.CancelFunc
	closed     bool
	lastActive time.Time
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithSubmitter sets the lead submission adapter.
func WithSubmitter(s ports.LeadSubmitter) Option {
	return func(c *Conversation) {
		if s != nil {
			c.submitter = s
		}
	}
}

// WithScheduler injects a delivery scheduler. Tests use ports.ManualScheduler
// to fire deliveries deterministically.
func WithScheduler(s ports.Scheduler) Option {
	return func(c *Conversation) {
		if s != nil {
			c.sched = s
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conversation) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Conversation) {
		c.hooks = hooks
	}
}

// WithSessionID tags the conversation for logs, events and the SSE stream.
func WithSessionID(id string) Option {
	return func(c *Conversation) {
		c.sessionID = id
	}
}

// WithPage records the host page path sent along with the lead.
func WithPage(page string) Option {
	return func(c *Conversation) {
		c.page = page
	}
}

// WithGreetingDelay overrides the fixed delay before the first bot turn.
func WithGreetingDelay(d time.Duration) Option {
	return func(c *Conversation) {
		if d > 0 {
			c.greetingDelay = d
		}
	}
}

// WithDelayWindow overrides the clamp window for computed typing delays.
func WithDelayWindow(min, max time.Duration) Option {
	return func(c *Conversation) {
		if min > 0 && max >= min {
			c.minDelay = min
			c.maxDelay = max
		}
	}
}

// NewConversation creates an inactive conversation over a validated graph.
// No work happens until Activate.
func NewConversation(graph *script.Graph, opts ...Option) *Conversation {
	c := &Conversation{
		graph:         graph,
		submitter:     ports.NopSubmitter{},
		sched:         ports.TimerScheduler{},
		logger:        logging.NewNop(),
		greetingDelay: DefaultGreetingDelay,
		minDelay:      DefaultMinDelay,
		maxDelay:      DefaultMaxDelay,
		perRune:       defaultPerRune,
		lastActive:    time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("session_id", c.sessionID)
	return c
}

// Activate creates the conversation state and schedules delivery of the
// greeting. Idempotent: calling it again while active is a no-op, so a host
// re-firing its visibility event cannot race a second greeting.
func (c *Conversation) Activate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConversationEnded
	}
	if c.state != nil {
		return nil
	}

	startID := c.graph.StartID()
	if _, err := c.graph.Node(startID); err != nil {
		return fmt.Errorf("activate: %w", err)
	}

	c.state = domain.NewState(startID)
	c.touch()
	c.scheduleDelivery(startID, c.greetingDelay)
	c.logger.Debug("conversation activated", "start_node", startID)
	return nil
}

// SelectOption handles an option click on a choice node.
//
// The click is rejected (state untouched) if a delivery is pending, if it
// targets a node other than the current one, or if the option value is not
// part of the node. On success the option label is echoed as a user turn,
// the value recorded, and delivery of the option's target scheduled.
func (c *Conversation) SelectOption(ctx context.Context, nodeID, value string) error {
	c.mu.Lock()

	if err := c.ensureInteractive(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.state.CurrentNodeID != nodeID {
		c.mu.Unlock()
		return domain.ErrWrongNode
	}

	node, err := c.graph.Node(nodeID)
	if err != nil {
		return c.haltLocked("select", err)
	}
	if node.Kind() != domain.KindChoice {
		c.mu.Unlock()
		return domain.ErrWrongNode
	}

	opt, ok := node.OptionByValue(value)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("option %q: %w", value, domain.ErrInvalidInput)
	}

	// Resolve the target before mutating anything: a dangling option is an
	// authoring defect and must not leave a half-applied transition behind.
	target, err := c.graph.Node(opt.Next)
	if err != nil {
		return c.haltLocked("select", err)
	}

	turn := c.appendTurnLocked(domain.SpeakerUser, opt.Label)
	c.state.Answers[nodeID] = opt.Value
	c.touch()
	c.scheduleDelivery(opt.Next, c.delayFor(target.Message))
	c.mu.Unlock()

	c.emitTurn(ctx, turn)
	return nil
}

// SubmitInput handles a text submission on an input node.
//
// Validation runs first; on failure the call is a no-op and the typed
// domain.ErrInvalidInput is returned so the host can keep the input open.
// No error turn is ever appended. An empty submission on an optional field
// records the skip sentinel and advances.
func (c *Conversation) SubmitInput(ctx context.Context, raw string) error {
	c.mu.Lock()

	if err := c.ensureInteractive(); err != nil {
		c.mu.Unlock()
		return err
	}

	node, err := c.graph.Node(c.state.CurrentNodeID)
	if err != nil {
		return c.haltLocked("input", err)
	}
	if node.Kind() != domain.KindInput {
		c.mu.Unlock()
		return domain.ErrWrongNode
	}

	value, echo, err := resolveInput(node, raw)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	target, err := c.graph.Node(node.Next)
	if err != nil {
		return c.haltLocked("input", err)
	}

	turn := c.appendTurnLocked(domain.SpeakerUser, echo)
	c.state.Answers[string(node.Input)] = value
	c.touch()
	c.scheduleDelivery(node.Next, c.delayFor(target.Message))
	c.mu.Unlock()

	c.emitTurn(ctx, turn)
	return nil
}

// Close tears the conversation down, cancelling any pending delivery so the
// timer cannot mutate discarded state. Safe to call more than once.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.logger.Debug("conversation closed")
}

// deliver lands the scheduled bot turn: appends it, moves the current node
// pointer, clears the pending flag and, on first entry to the completion
// node, performs the single lead submission attempt.
func (c *Conversation) deliver(targetID string) {
	ctx := context.Background()

	c.mu.Lock()
	if c.closed || c.state == nil || !c.state.AwaitingDelivery() || c.state.PendingNodeID != targetID {
		c.mu.Unlock()
		return
	}

	node, err := c.graph.Node(targetID)
	if err != nil {
		// Authoring defect surfaced mid-flight. Halt rather than guess.
		c.logger.Error("script defect: pending node missing", "node_id", targetID, "err", err)
		c.state.Status = domain.StatusEnded
		c.state.PendingNodeID = ""
		c.cancel = nil
		c.mu.Unlock()
		return
	}

	c.cancel = nil
	c.state.PendingNodeID = ""
	c.state.CurrentNodeID = targetID
	turn := c.appendTurnLocked(domain.SpeakerBot, node.Message)

	if node.Kind() == domain.KindTerminal {
		c.state.Status = domain.StatusEnded
	} else {
		c.state.Status = domain.StatusIdle
	}

	var lead *domain.Lead
	if targetID == c.graph.CompletionID() && !c.state.Submitted {
		c.state.Submitted = true
		l := domain.NewLead(c.state.Answers, c.page)
		lead = &l
	}
	c.mu.Unlock()

	c.emitTurn(ctx, turn)
	c.emitNodeEnter(ctx, node)
	if lead != nil {
		c.submit(ctx, *lead)
	}
}

// submit performs the single best-effort lead submission. Failure is logged
// and swallowed: the thank-you turn already stands and must not be retracted.
func (c *Conversation) submit(ctx context.Context, lead domain.Lead) {
	sctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	err := c.submitter.Submit(sctx, lead)
	if err != nil {
		c.logger.Warn("lead submission failed, not retrying", "err", err)
	} else {
		c.logger.Info("lead submitted", "page", lead.Page)
	}
	c.emitSubmit(ctx, lead, err)
}

// ensureInteractive checks the shared preconditions of user operations.
// Caller holds the lock.
func (c *Conversation) ensureInteractive() error {
	if c.closed {
		return domain.ErrConversationEnded
	}
	if c.state == nil {
		return domain.ErrNotActivated
	}
	if c.state.AwaitingDelivery() {
		return domain.ErrDeliveryPending
	}
	if c.state.Status == domain.StatusEnded {
		return domain.ErrConversationEnded
	}
	return nil
}

// haltLocked ends the conversation on a script defect. Caller holds the
// lock; haltLocked releases it.
func (c *Conversation) haltLocked(op string, err error) error {
	c.logger.Error("script defect, halting conversation", "op", op, "err", err)
	c.state.Status = domain.StatusEnded
	c.mu.Unlock()
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Conversation) scheduleDelivery(targetID string, delay time.Duration) {
	c.state.Status = domain.StatusAwaitingDelivery
	c.state.PendingNodeID = targetID
	c.cancel = c.sched.Schedule(delay, func() { c.deliver(targetID) })
}

func (c *Conversation) appendTurnLocked(speaker domain.Speaker, text string) domain.Turn {
	turn := domain.Turn{Speaker: speaker, Text: text}
	c.state.History = append(c.state.History, turn)
	return turn
}

func (c *Conversation) touch() {
	c.lastActive = time.Now()
}

// --- Event emission ---

func (c *Conversation) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, SessionID: c.sessionID}
}

func (c *Conversation) emitTurn(ctx context.Context, turn domain.Turn) {
	if c.hooks.OnTurn != nil {
		c.hooks.OnTurn(ctx, &domain.TurnEvent{EventBase: c.base(domain.EventTurn), Turn: turn})
	}
}

func (c *Conversation) emitNodeEnter(ctx context.Context, node domain.Node) {
	if c.hooks.OnNodeEnter != nil {
		c.hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: c.base(domain.EventNodeEnter), NodeID: node.ID, NodeKind: node.Kind()})
	}
}

func (c *Conversation) emitSubmit(ctx context.Context, lead domain.Lead, err error) {
	if c.hooks.OnSubmit != nil {
		ev := &domain.SubmitEvent{EventBase: c.base(domain.EventSubmit), Lead: lead}
		if err != nil {
			ev.IsError = true
			ev.Error = err.Error()
		}
		c.hooks.OnSubmit(ctx, ev)
	}
}

// --- Inspection ---

// SessionID returns the identifier passed via WithSessionID.
func (c *Conversation) SessionID() string { return c.sessionID }

// Page returns the host page path passed via WithPage.
func (c *Conversation) Page() string { return c.page }

// Activated reports whether Activate has created state.
func (c *Conversation) Activated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != nil
}

// State returns a deep copy of the current state, or nil before activation.
func (c *Conversation) State() *domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// CurrentNode returns the node the conversation is parked on. ok is false
// before activation and while a delivery is pending, since the visitor has
// nothing actionable to see yet.
func (c *Conversation) CurrentNode() (domain.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil || c.state.AwaitingDelivery() {
		return domain.Node{}, false
	}
	node, err := c.graph.Node(c.state.CurrentNodeID)
	if err != nil {
		return domain.Node{}, false
	}
	return node, true
}

// LastActive returns the time of the most recent visitor activity, used by
// the session janitor to evict abandoned widgets.
func (c *Conversation) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Closed reports whether Close has been called.
func (c *Conversation) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
