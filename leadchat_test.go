package leadchat_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krauseinafrica/leadchat"
	"github.com/krauseinafrica/leadchat/pkg/domain"
	"github.com/krauseinafrica/leadchat/pkg/ports"
	"github.com/krauseinafrica/leadchat/pkg/script"
)

func TestEngine_FullScenario(t *testing.T) {
	ctx := context.Background()
	sched := ports.NewManualScheduler()

	var mu sync.Mutex
	var leads []domain.Lead
	submitter := ports.SubmitterFunc(func(_ context.Context, lead domain.Lead) error {
		mu.Lock()
		defer mu.Unlock()
		leads = append(leads, lead)
		return nil
	})

	eng, err := leadchat.New(script.Default(),
		leadchat.WithScheduler(sched),
		leadchat.WithSubmitter(submitter),
	)
	require.NoError(t, err)

	conv := eng.Open("/stores/berlin")
	defer conv.Close()
	assert.NotEmpty(t, conv.SessionID())
	assert.Equal(t, "/stores/berlin", conv.Page())

	// Visitor opens the widget, picks the question path, leaves contact
	// details, skips the phone.
	require.NoError(t, conv.Activate(ctx))
	require.True(t, sched.Fire())
	require.NoError(t, conv.SelectOption(ctx, "greeting", "question"))
	require.True(t, sched.Fire())
	require.NoError(t, conv.SelectOption(ctx, "question-topic", "pricing"))
	require.True(t, sched.Fire())
	require.NoError(t, conv.SubmitInput(ctx, "Jane Doe"))
	require.True(t, sched.Fire())
	require.NoError(t, conv.SubmitInput(ctx, "jane@example.com"))
	require.True(t, sched.Fire())
	require.NoError(t, conv.SubmitInput(ctx, ""))
	require.True(t, sched.Fire())

	state := conv.State()
	assert.Equal(t, "thank-you", state.CurrentNodeID)
	assert.Equal(t, domain.StatusEnded, state.Status)
	assert.True(t, state.Submitted)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, leads, 1)
	assert.Equal(t, "Jane Doe", leads[0].Name)
	assert.Equal(t, "jane@example.com", leads[0].Email)
	assert.Equal(t, domain.AnswerSkipped, leads[0].Phone)
	assert.Equal(t, "question", leads[0].Answers["greeting"])
	assert.Equal(t, "pricing", leads[0].Answers["question-topic"])
	assert.Equal(t, "/stores/berlin", leads[0].Page)

	// Transcript alternates as rendered: 6 bot turns, 5 user turns.
	bots, users := 0, 0
	for _, turn := range state.History {
		if turn.Speaker == domain.SpeakerBot {
			bots++
		} else {
			users++
		}
	}
	assert.Equal(t, 6, bots)
	assert.Equal(t, 5, users)
}

func TestEngine_IndependentSessions(t *testing.T) {
	ctx := context.Background()
	sched := ports.NewManualScheduler()

	eng, err := leadchat.New(script.Default(), leadchat.WithScheduler(sched))
	require.NoError(t, err)

	a := eng.Open("/a")
	b := eng.Open("/b")
	defer a.Close()
	defer b.Close()

	require.NotEqual(t, a.SessionID(), b.SessionID())

	require.NoError(t, a.Activate(ctx))
	require.True(t, sched.Fire())
	require.NoError(t, a.SelectOption(ctx, "greeting", "browsing"))
	require.True(t, sched.Fire())

	// Session a ended; session b never even activated.
	assert.Equal(t, domain.StatusEnded, a.State().Status)
	assert.False(t, b.Activated())
}

func TestEngine_RequiresGraph(t *testing.T) {
	_, err := leadchat.New(nil)
	assert.Error(t, err)
}
