package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/krauseinafrica/leadchat/internal/logging"
	"github.com/krauseinafrica/leadchat/pkg/domain"
)

// StreamManager handles active SSE connections, keyed by session id.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Hooks returns engine lifecycle hooks that broadcast transcript and
// lifecycle events to the session's SSE subscribers. The composition root
// creates the stream manager before the engine so these hooks can be merged
// with the metrics hooks at engine construction.
func (sm *StreamManager) Hooks(logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = logging.NewNop()
	}
	broadcast := func(sessionID string, event any) {
		payload, err := json.Marshal(event)
		if err != nil {
			logger.Error("sse: event marshal failed", "err", err)
			return
		}
		sm.Broadcast(sessionID, string(payload))
	}
	return domain.LifecycleHooks{
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			broadcast(e.SessionID, e)
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			broadcast(e.SessionID, e)
		},
		OnSubmit: func(_ context.Context, e *domain.SubmitEvent) {
			// The widget only needs to know the conversation wrapped up;
			// the captured contact details stay server-side.
			broadcast(e.SessionID, domain.EventBase{
				Timestamp: e.Timestamp,
				Type:      e.Type,
				SessionID: e.SessionID,
			})
		},
	}
}

func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if subs, ok := sm.subscribers[sessionID]; ok {
		for ch := range subs {
			select {
			case ch <- msg:
			default:
				// Drop message if channel is full (slow client)
				slog.Warn("sse: client buffer full, dropping message", "session_id", sessionID)
			}
		}
	}
}
