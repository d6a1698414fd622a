package leadchat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/krauseinafrica/leadchat/internal/runtime"
	"github.com/krauseinafrica/leadchat/pkg/domain"
	"github.com/krauseinafrica/leadchat/pkg/ports"
	"github.com/krauseinafrica/leadchat/pkg/script"
)

// Engine is the high-level entry point for the leadchat library. It holds
// the validated script plus shared collaborators and mints one Conversation
// per open widget session.
type Engine struct {
	graph         *script.Graph
	submitter     ports.LeadSubmitter
	scheduler     ports.Scheduler
	hooks         domain.LifecycleHooks
	logger        *slog.Logger
	greetingDelay time.Duration
	minDelay      time.Duration
	maxDelay      time.Duration
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSubmitter sets the lead submission adapter shared by all conversations.
func WithSubmitter(s ports.LeadSubmitter) Option {
	return func(e *Engine) { e.submitter = s }
}

// WithScheduler injects a delivery scheduler (tests use ports.ManualScheduler).
func WithScheduler(s ports.Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithGreetingDelay overrides the fixed delay before the greeting turn.
func WithGreetingDelay(d time.Duration) Option {
	return func(e *Engine) { e.greetingDelay = d }
}

// WithDelayWindow overrides the clamp window for computed typing delays.
func WithDelayWindow(min, max time.Duration) Option {
	return func(e *Engine) {
		e.minDelay = min
		e.maxDelay = max
	}
}

// New initializes an Engine over a compiled script graph.
func New(graph *script.Graph, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, fmt.Errorf("leadchat: graph is required")
	}

	eng := &Engine{
		graph:     graph,
		submitter: ports.NopSubmitter{},
		scheduler: ports.TimerScheduler{},
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	return eng, nil
}

// Graph returns the underlying script graph.
func (e *Engine) Graph() *script.Graph { return e.graph }

// Open mints a Conversation for a new widget session on the given host page
// path. The conversation is inactive until Activate; the caller owns its
// lifecycle and must Close it on unmount.
func (e *Engine) Open(page string) *Conversation {
	sessionID := uuid.NewString()

	opts := []runtime.Option{
		runtime.WithSessionID(sessionID),
		runtime.WithPage(page),
		runtime.WithSubmitter(e.submitter),
		runtime.WithScheduler(e.scheduler),
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
	}
	if e.greetingDelay > 0 {
		opts = append(opts, runtime.WithGreetingDelay(e.greetingDelay))
	}
	if e.minDelay > 0 {
		opts = append(opts, runtime.WithDelayWindow(e.minDelay, e.maxDelay))
	}

	return &Conversation{inner: runtime.NewConversation(e.graph, opts...)}
}

// Conversation is one widget session. It wraps the internal runtime and
// exposes the host-facing operations: Activate on first visibility,
// SelectOption and SubmitInput for the two UI events, Close on unmount.
type Conversation struct {
	inner *runtime.Conversation
}

// Activate creates the conversation state and schedules the greeting.
// Idempotent while active.
func (c *Conversation) Activate(ctx context.Context) error {
	return c.inner.Activate(ctx)
}

// SelectOption handles an option click on the current choice node.
func (c *Conversation) SelectOption(ctx context.Context, nodeID, value string) error {
	return c.inner.SelectOption(ctx, nodeID, value)
}

// SubmitInput handles a text submission on the current input node.
func (c *Conversation) SubmitInput(ctx context.Context, raw string) error {
	return c.inner.SubmitInput(ctx, raw)
}

// Close tears the session down, cancelling any pending delivery.
func (c *Conversation) Close() { c.inner.Close() }

// SessionID returns the generated session identifier.
func (c *Conversation) SessionID() string { return c.inner.SessionID() }

// Page returns the host page path the session was opened on.
func (c *Conversation) Page() string { return c.inner.Page() }

// Activated reports whether Activate has run.
func (c *Conversation) Activated() bool { return c.inner.Activated() }

// State returns a deep copy of the conversation state, or nil before
// activation.
func (c *Conversation) State() *domain.State { return c.inner.State() }

// CurrentNode returns the node the conversation is parked on, when idle.
func (c *Conversation) CurrentNode() (domain.Node, bool) { return c.inner.CurrentNode() }

// LastActive returns the time of the most recent visitor activity.
func (c *Conversation) LastActive() time.Time { return c.inner.LastActive() }

// Closed reports whether Close has been called.
func (c *Conversation) Closed() bool { return c.inner.Closed() }
