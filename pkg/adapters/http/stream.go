package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/spindle/internal/logging"
	"github.com/aretw0/spindle/pkg/domain"
)

// TopicEvents is the StreamManager topic GET /events listens on.
const TopicEvents = "events"

// StreamManager fans messages out to SSE connections by topic.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for topic. The returned func unsubscribes
// and closes the channel.
func (sm *StreamManager) Subscribe(topic string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[topic]; !ok {
		sm.subscribers[topic] = make(map[chan<- string]struct{})
	}
	sm.subscribers[topic][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[topic]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, topic)
				}
			}
		})
	}
}

// Subscribers returns the number of connections on topic.
func (sm *StreamManager) Subscribers(topic string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[topic])
}

// Broadcast delivers msg to every subscriber of topic. Slow clients lose messages
// rather than blocking the sender.
func (sm *StreamManager) Broadcast(topic string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "topic", topic)
		}
	}
}

// EventHooks broadcasts every emitted Event, JSON encoded, on TopicEvents.
func EventHooks[I, E, S any](sm *StreamManager) domain.Hooks[I, E, S] {
	return domain.Hooks[I, E, S]{
		OnEventEmitted: func(_ context.Context, event E) {
			data, err := json.Marshal(event)
			if err != nil {
				sm.logger.Error("SSE: event encode failed", "err", err)
				return
			}
			sm.Broadcast(TopicEvents, string(data))
		},
	}
}
