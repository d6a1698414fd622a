package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krauseinafrica/leadchat"
	"github.com/krauseinafrica/leadchat/pkg/domain"
	"github.com/krauseinafrica/leadchat/pkg/ports"
	"github.com/krauseinafrica/leadchat/pkg/script"
	"github.com/krauseinafrica/leadchat/pkg/session"
)

type testServer struct {
	handler   http.Handler
	scheduler *ports.ManualScheduler
	streams   *StreamManager
	sessions  *session.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	scheduler := ports.NewManualScheduler()
	streams := NewStreamManager()

	engine, err := leadchat.New(script.Default(),
		leadchat.WithScheduler(scheduler),
		leadchat.WithLifecycleHooks(streams.Hooks(nil)),
	)
	require.NoError(t, err)

	sessions := session.NewManager(engine)
	t.Cleanup(sessions.Shutdown)

	srv := NewServer(sessions, WithStreams(streams))
	return &testServer{
		handler:   srv.Handler(),
		scheduler: scheduler,
		streams:   streams,
		sessions:  sessions,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) SessionView {
	t.Helper()
	var view SessionView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	return view
}

func decodeAction(t *testing.T, w *httptest.ResponseRecorder) ActionResponse {
	t.Helper()
	var resp ActionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

// open starts a session and fires the greeting delivery.
func (ts *testServer) open(t *testing.T) string {
	t.Helper()

	w := ts.do(t, "POST", "/widget/sessions", map[string]string{"page": "/pricing"})
	require.Equal(t, http.StatusCreated, w.Code)

	view := decodeView(t, w)
	require.NotEmpty(t, view.SessionID)
	require.True(t, view.Typing)

	require.True(t, ts.scheduler.Fire())
	return view.SessionID
}

func TestServer_OpenSession(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "POST", "/widget/sessions", map[string]string{"page": "/docs"})
	require.Equal(t, http.StatusCreated, w.Code)

	view := decodeView(t, w)
	assert.NotEmpty(t, view.SessionID)
	assert.Equal(t, "/docs", view.Page)
	assert.True(t, view.Typing, "greeting should still be pending")
	assert.Empty(t, view.History)
	assert.Nil(t, view.Prompt)

	require.True(t, ts.scheduler.Fire())

	w = ts.do(t, "GET", "/widget/sessions/"+view.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	view = decodeView(t, w)
	assert.False(t, view.Typing)
	require.Len(t, view.History, 1)
	assert.Equal(t, "bot", view.History[0].Speaker)
	require.NotNil(t, view.Prompt)
	assert.Equal(t, "options", view.Prompt.Type)
	assert.Equal(t, "greeting", view.Prompt.NodeID)
	assert.Len(t, view.Prompt.Options, 3)
}

func TestServer_OptionFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.open(t)

	w := ts.do(t, "POST", "/widget/sessions/"+id+"/option",
		map[string]string{"node_id": "greeting", "value": "demo"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeAction(t, w)
	assert.True(t, resp.Accepted)
	assert.True(t, resp.View.Typing)
	require.Len(t, resp.View.History, 2)
	assert.Equal(t, "user", resp.View.History[1].Speaker)

	require.True(t, ts.scheduler.Fire())

	w = ts.do(t, "GET", "/widget/sessions/"+id, nil)
	view := decodeView(t, w)
	require.NotNil(t, view.Prompt)
	assert.Equal(t, "input", view.Prompt.Type)
	assert.Equal(t, "name", view.Prompt.Input)
	assert.False(t, view.Prompt.Optional)
}

func TestServer_InputValidation(t *testing.T) {
	ts := newTestServer(t)
	id := ts.open(t)

	// greeting -> ask-name
	ts.do(t, "POST", "/widget/sessions/"+id+"/option",
		map[string]string{"node_id": "greeting", "value": "demo"})
	require.True(t, ts.scheduler.Fire())

	ts.do(t, "POST", "/widget/sessions/"+id+"/input", map[string]string{"text": "Dana"})
	require.True(t, ts.scheduler.Fire())

	w := ts.do(t, "POST", "/widget/sessions/"+id+"/input",
		map[string]string{"text": "not-an-email"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := decodeAction(t, w)
	assert.False(t, resp.Accepted)
	assert.NotEmpty(t, resp.Reason)
	assert.False(t, resp.View.Typing, "rejected input must not advance the conversation")
	require.NotNil(t, resp.View.Prompt)
	assert.Equal(t, "email", resp.View.Prompt.Input)
}

func TestServer_ErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	t.Run("unknown session is 404", func(t *testing.T) {
		w := ts.do(t, "GET", "/widget/sessions/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("action while typing is 409", func(t *testing.T) {
		w := ts.do(t, "POST", "/widget/sessions", map[string]string{"page": "/"})
		id := decodeView(t, w).SessionID

		w = ts.do(t, "POST", "/widget/sessions/"+id+"/option",
			map[string]string{"node_id": "greeting", "value": "demo"})
		assert.Equal(t, http.StatusConflict, w.Code)

		// Drain the pending greeting so later subtests fire their own.
		require.True(t, ts.scheduler.Fire())
	})

	t.Run("stale node id is 409", func(t *testing.T) {
		id := ts.open(t)
		w := ts.do(t, "POST", "/widget/sessions/"+id+"/option",
			map[string]string{"node_id": "question-topic", "value": "pricing"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("action after decline branch ends is 410", func(t *testing.T) {
		id := ts.open(t)
		ts.do(t, "POST", "/widget/sessions/"+id+"/option",
			map[string]string{"node_id": "greeting", "value": "browsing"})
		require.True(t, ts.scheduler.Fire())

		w := ts.do(t, "POST", "/widget/sessions/"+id+"/input",
			map[string]string{"text": "hello"})
		assert.Equal(t, http.StatusGone, w.Code)
	})

	t.Run("delete closes the session", func(t *testing.T) {
		id := ts.open(t)
		w := ts.do(t, "DELETE", "/widget/sessions/"+id, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = ts.do(t, "GET", "/widget/sessions/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = ts.do(t, "DELETE", "/widget/sessions/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)
	ts.open(t)

	w := ts.do(t, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["sessions"])
}

func TestStreamManager_BroadcastAndHooks(t *testing.T) {
	sm := NewStreamManager()

	ch, cancel := sm.Subscribe("sess-1")
	defer cancel()

	hooks := sm.Hooks(nil)
	hooks.OnTurn(context.Background(), &domain.TurnEvent{
		EventBase: domain.EventBase{
			Type:      domain.EventTurn,
			SessionID: "sess-1",
		},
		Turn: domain.Turn{Speaker: domain.SpeakerBot, Text: "Hi!"},
	})

	select {
	case msg := <-ch:
		var event domain.TurnEvent
		require.NoError(t, json.Unmarshal([]byte(msg), &event))
		assert.Equal(t, "Hi!", event.Turn.Text)
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast turn event")
	}

	t.Run("other sessions stay quiet", func(t *testing.T) {
		other, cancelOther := sm.Subscribe("sess-2")
		defer cancelOther()

		sm.Broadcast("sess-1", "hello")
		<-ch
		select {
		case msg := <-other:
			t.Fatalf("unexpected message on other session: %q", msg)
		default:
		}
	})

	t.Run("submit event omits lead details", func(t *testing.T) {
		hooks.OnSubmit(context.Background(), &domain.SubmitEvent{
			EventBase: domain.EventBase{Type: domain.EventSubmit, SessionID: "sess-1"},
			Lead:      domain.Lead{Email: "dana@example.com"},
		})
		msg := <-ch
		assert.NotContains(t, msg, "dana@example.com")
		assert.Contains(t, msg, string(domain.EventSubmit))
	})

	t.Run("slow subscriber drops instead of blocking", func(t *testing.T) {
		slow, cancelSlow := sm.Subscribe("sess-3")
		defer cancelSlow()

		for i := 0; i < 20; i++ {
			sm.Broadcast("sess-3", fmt.Sprintf("msg-%d", i))
		}
		assert.Len(t, slow, 10)
	})
}

func TestServer_SSE(t *testing.T) {
	ts := newTestServer(t)
	id := ts.open(t)

	ctx, cancel := context.WithCancel(context.Background())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/widget/sessions/"+id+"/events", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.handler.ServeHTTP(w, req)
	}()

	time.Sleep(100 * time.Millisecond) // Wait for subscription to register

	ts.streams.Broadcast(id, `{"type":"turn"}`)
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not stop on client disconnect")
	}

	output := w.Body.String()
	assert.True(t, strings.Contains(output, "event: ping"), "expected initial ping, got: %s", output)
	assert.True(t, strings.Contains(output, `data: {"type":"turn"}`), "expected broadcast data, got: %s", output)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}
