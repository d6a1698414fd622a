package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krauseinafrica/leadchat/internal/runtime"
	"github.com/krauseinafrica/leadchat/pkg/domain"
	"github.com/krauseinafrica/leadchat/pkg/ports"
	"github.com/krauseinafrica/leadchat/pkg/script"
)

// recordingSubmitter counts submission attempts and can be told to fail.
type recordingSubmitter struct {
	mu    sync.Mutex
	calls []domain.Lead
	err   error
}

func (r *recordingSubmitter) Submit(ctx context.Context, lead domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, lead)
	return r.err
}

func (r *recordingSubmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestConversation(t *testing.T, opts ...runtime.Option) (*runtime.Conversation, *ports.ManualScheduler) {
	t.Helper()
	sched := ports.NewManualScheduler()
	base := []runtime.Option{
		runtime.WithScheduler(sched),
		runtime.WithSessionID("test-session"),
		runtime.WithPage("/pricing"),
	}
	return runtime.NewConversation(script.Default(), append(base, opts...)...), sched
}

func TestConversation_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("Greeting Uses Fixed Delay", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		require.NoError(t, conv.Activate(ctx))

		assert.Equal(t, 1, sched.Pending())
		assert.Equal(t, runtime.DefaultGreetingDelay, sched.LastDelay())

		// Nothing visible until the delivery lands.
		state := conv.State()
		assert.True(t, state.AwaitingDelivery())
		assert.Empty(t, state.History)

		require.True(t, sched.Fire())
		state = conv.State()
		require.Len(t, state.History, 1)
		assert.Equal(t, domain.SpeakerBot, state.History[0].Speaker)
		assert.Equal(t, "greeting", state.CurrentNodeID)
		assert.False(t, state.AwaitingDelivery())
	})

	t.Run("Idempotent", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		require.NoError(t, conv.Activate(ctx))
		require.NoError(t, conv.Activate(ctx))
		assert.Equal(t, 1, sched.Pending())
	})

	t.Run("No Work Before Activation", func(t *testing.T) {
		conv, _ := newTestConversation(t)
		assert.False(t, conv.Activated())
		assert.Nil(t, conv.State())

		err := conv.SelectOption(ctx, "greeting", "question")
		assert.ErrorIs(t, err, domain.ErrNotActivated)
	})
}

func TestConversation_SelectOption(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenario: Specific Question", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		require.NoError(t, conv.Activate(ctx))
		require.True(t, sched.Fire()) // greeting lands

		require.NoError(t, conv.SelectOption(ctx, "greeting", "question"))

		state := conv.State()
		require.Len(t, state.History, 2)
		assert.Equal(t, domain.SpeakerUser, state.History[1].Speaker)
		assert.Equal(t, "I have a specific question", state.History[1].Text)
		assert.Equal(t, "question", state.Answers["greeting"])
		assert.True(t, state.AwaitingDelivery())

		// Computed delay stays inside the clamp window.
		d := sched.LastDelay()
		assert.GreaterOrEqual(t, d, runtime.DefaultMinDelay)
		assert.LessOrEqual(t, d, runtime.DefaultMaxDelay)

		require.True(t, sched.Fire())
		state = conv.State()
		assert.Equal(t, "question-topic", state.CurrentNodeID)
		assert.Equal(t, domain.SpeakerBot, state.History[2].Speaker)
	})

	t.Run("Rejected While Delivery Pending", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		require.NoError(t, conv.Activate(ctx))

		before := conv.State()
		err := conv.SelectOption(ctx, "greeting", "question")
		assert.ErrorIs(t, err, domain.ErrDeliveryPending)

		after := conv.State()
		assert.Equal(t, before.History, after.History)
		assert.Equal(t, before.Answers, after.Answers)
		assert.Equal(t, before.CurrentNodeID, after.CurrentNodeID)
		assert.Equal(t, 1, sched.Pending())
	})

	t.Run("Stale Node Click", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		require.NoError(t, conv.Activate(ctx))
		require.True(t, sched.Fire())

		err := conv.SelectOption(ctx, "question-topic", "pricing")
		assert.ErrorIs(t, err, domain.ErrWrongNode)
		assert.Len(t, conv.State().History, 1)
	})

	t.Run("Unknown Option Value", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		require.NoError(t, conv.Activate(ctx))
		require.True(t, sched.Fire())

		err := conv.SelectOption(ctx, "greeting", "forged")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Len(t, conv.State().History, 1)
	})
}

// driveToEmail walks the default script up to the email input node.
func driveToEmail(t *testing.T, conv *runtime.Conversation, sched *ports.ManualScheduler) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, conv.Activate(ctx))
	require.True(t, sched.Fire())
	require.NoError(t, conv.SelectOption(ctx, "greeting", "demo"))
	require.True(t, sched.Fire()) // ask-name
	require.NoError(t, conv.SubmitInput(ctx, "Jane Doe"))
	require.True(t, sched.Fire()) // ask-email
}

func TestConversation_SubmitInput(t *testing.T) {
	ctx := context.Background()

	t.Run("Malformed Email Is A No-Op", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		driveToEmail(t, conv, sched)

		before := conv.State()
		err := conv.SubmitInput(ctx, "not-an-email")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		after := conv.State()
		assert.Equal(t, before.History, after.History)
		assert.Equal(t, before.CurrentNodeID, after.CurrentNodeID)
		assert.NotContains(t, after.Answers, "email")
	})

	t.Run("Valid Email Advances To Phone", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		driveToEmail(t, conv, sched)

		require.NoError(t, conv.SubmitInput(ctx, "jane@example.com"))

		state := conv.State()
		last := state.History[len(state.History)-1]
		assert.Equal(t, domain.SpeakerUser, last.Speaker)
		assert.Equal(t, "jane@example.com", last.Text)
		assert.Equal(t, "jane@example.com", state.Answers["email"])

		require.True(t, sched.Fire())
		assert.Equal(t, "ask-phone", conv.State().CurrentNodeID)
	})

	t.Run("Empty Required Name Is Rejected", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		require.NoError(t, conv.Activate(ctx))
		require.True(t, sched.Fire())
		require.NoError(t, conv.SelectOption(ctx, "greeting", "demo"))
		require.True(t, sched.Fire()) // ask-name

		err := conv.SubmitInput(ctx, "   ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, "ask-name", conv.State().CurrentNodeID)
	})

	t.Run("Empty Phone Records Skip Sentinel", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		driveToEmail(t, conv, sched)
		require.NoError(t, conv.SubmitInput(ctx, "jane@example.com"))
		require.True(t, sched.Fire()) // ask-phone

		require.NoError(t, conv.SubmitInput(ctx, ""))

		state := conv.State()
		last := state.History[len(state.History)-1]
		assert.Equal(t, domain.SkipPlaceholder, last.Text)
		assert.Equal(t, domain.AnswerSkipped, state.Answers["phone"])
		assert.True(t, state.AwaitingDelivery())
	})

	t.Run("Input On Choice Node Is Rejected", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		require.NoError(t, conv.Activate(ctx))
		require.True(t, sched.Fire())

		err := conv.SubmitInput(ctx, "hello")
		assert.ErrorIs(t, err, domain.ErrWrongNode)
	})
}

// driveToCompletion walks the default script all the way to the thank-you node.
func driveToCompletion(t *testing.T, conv *runtime.Conversation, sched *ports.ManualScheduler) {
	t.Helper()
	ctx := context.Background()
	driveToEmail(t, conv, sched)
	require.NoError(t, conv.SubmitInput(ctx, "jane@example.com"))
	require.True(t, sched.Fire()) // ask-phone
	require.NoError(t, conv.SubmitInput(ctx, "+1 555 0100"))
	require.True(t, sched.Fire()) // thank-you
}

func TestConversation_Submission(t *testing.T) {
	t.Run("Completion Submits Accumulated Answers Once", func(t *testing.T) {
		sub := &recordingSubmitter{}
		conv, sched := newTestConversation(t, runtime.WithSubmitter(sub))
		driveToCompletion(t, conv, sched)

		require.Equal(t, 1, sub.count())
		lead := sub.calls[0]
		assert.Equal(t, "Jane Doe", lead.Name)
		assert.Equal(t, "jane@example.com", lead.Email)
		assert.Equal(t, "+1 555 0100", lead.Phone)
		assert.Equal(t, "/pricing", lead.Page)
		assert.Equal(t, "demo", lead.Answers["greeting"])

		state := conv.State()
		assert.True(t, state.Submitted)
		assert.Equal(t, domain.StatusEnded, state.Status)
	})

	t.Run("Submission Failure Does Not Retract Thank-You", func(t *testing.T) {
		sub := &recordingSubmitter{err: errors.New("boom")}
		conv, sched := newTestConversation(t, runtime.WithSubmitter(sub))
		driveToCompletion(t, conv, sched)

		assert.Equal(t, 1, sub.count())

		state := conv.State()
		last := state.History[len(state.History)-1]
		assert.Equal(t, domain.SpeakerBot, last.Speaker)
		assert.Contains(t, last.Text, "All set")
		assert.True(t, state.Submitted)
	})

	t.Run("Decline Branch Ends Without Submission", func(t *testing.T) {
		ctx := context.Background()
		sub := &recordingSubmitter{}
		conv, sched := newTestConversation(t, runtime.WithSubmitter(sub))
		require.NoError(t, conv.Activate(ctx))
		require.True(t, sched.Fire())
		require.NoError(t, conv.SelectOption(ctx, "greeting", "browsing"))
		require.True(t, sched.Fire()) // goodbye

		state := conv.State()
		assert.Equal(t, domain.StatusEnded, state.Status)
		assert.False(t, state.Submitted)
		assert.Equal(t, 0, sub.count())

		err := conv.SelectOption(ctx, "goodbye", "anything")
		assert.ErrorIs(t, err, domain.ErrConversationEnded)
	})
}

func TestConversation_Teardown(t *testing.T) {
	ctx := context.Background()

	t.Run("Close Cancels Pending Delivery", func(t *testing.T) {
		conv, sched := newTestConversation(t)
		require.NoError(t, conv.Activate(ctx))
		require.Equal(t, 1, sched.Pending())

		conv.Close()
		assert.Equal(t, 0, sched.Pending())

		// Even if the timer had already popped, delivery must not mutate
		// discarded state.
		sched.Fire()
		assert.Empty(t, conv.State().History)
	})

	t.Run("Close Is Reentrant", func(t *testing.T) {
		conv, _ := newTestConversation(t)
		conv.Close()
		conv.Close()
		assert.True(t, conv.Closed())
		assert.ErrorIs(t, conv.Activate(ctx), domain.ErrConversationEnded)
	})
}

func TestConversation_Determinism(t *testing.T) {
	run := func() *domain.State {
		conv, sched := newTestConversation(t)
		driveToCompletion(t, conv, sched)
		return conv.State()
	}

	a, b := run(), run()
	assert.Equal(t, a.History, b.History)
	assert.Equal(t, a.Answers, b.Answers)
	assert.Equal(t, a.CurrentNodeID, b.CurrentNodeID)
}

func TestConversation_Hooks(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var turns []domain.Speaker
	var entered []string
	submits := 0

	hooks := domain.LifecycleHooks{
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			mu.Lock()
			defer mu.Unlock()
			turns = append(turns, e.Turn.Speaker)
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			mu.Lock()
			defer mu.Unlock()
			entered = append(entered, e.NodeID)
		},
		OnSubmit: func(_ context.Context, e *domain.SubmitEvent) {
			mu.Lock()
			defer mu.Unlock()
			submits++
		},
	}

	conv, sched := newTestConversation(t, runtime.WithLifecycleHooks(hooks))
	require.NoError(t, conv.Activate(ctx))
	require.True(t, sched.Fire())
	require.NoError(t, conv.SelectOption(ctx, "greeting", "browsing"))
	require.True(t, sched.Fire())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.Speaker{domain.SpeakerBot, domain.SpeakerUser, domain.SpeakerBot}, turns)
	assert.Equal(t, []string{"greeting", "goodbye"}, entered)
	assert.Equal(t, 0, submits)
}

func TestConversation_CurrentNode(t *testing.T) {
	ctx := context.Background()
	conv, sched := newTestConversation(t)

	_, ok := conv.CurrentNode()
	assert.False(t, ok, "no node before activation")

	require.NoError(t, conv.Activate(ctx))
	_, ok = conv.CurrentNode()
	assert.False(t, ok, "no node while delivery pending")

	require.True(t, sched.Fire())
	node, ok := conv.CurrentNode()
	require.True(t, ok)
	assert.Equal(t, "greeting", node.ID)
	assert.Equal(t, domain.KindChoice, node.Kind())
}

func TestConversation_RealSchedulerDelays(t *testing.T) {
	// One pass with the production TimerScheduler and a tiny window, to make
	// sure the timer wiring itself works end to end.
	ctx := context.Background()
	conv := runtime.NewConversation(script.Default(),
		runtime.WithGreetingDelay(5*time.Millisecond),
		runtime.WithDelayWindow(5*time.Millisecond, 10*time.Millisecond),
	)
	defer conv.Close()

	require.NoError(t, conv.Activate(ctx))
	require.Eventually(t, func() bool {
		return len(conv.State().History) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "greeting", conv.State().CurrentNodeID)
}
