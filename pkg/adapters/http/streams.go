package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/geofence/pkg/domain"
)

// SSE topics.
const (
	TopicNotification = "notification"
	TopicRetired      = "retired"
)

// message is one server-sent event.
type message struct {
	Topic string
	Data  string
}

// StreamManager fans notifications and retirements out to SSE subscribers.
// It implements ports.DisplaySink and ports.RetirementListener so it can be
// attached to the service next to the primary sink.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan message]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[chan message]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber. The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe() (<-chan message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan message, 10)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// Broadcast sends msg to every subscriber, dropping it for slow clients.
func (sm *StreamManager) Broadcast(topic, data string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- message{Topic: topic, Data: data}:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "topic", topic)
		}
	}
}

// Display implements ports.DisplaySink.
func (sm *StreamManager) Display(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	sm.Broadcast(TopicNotification, string(data))
	return nil
}

// retirement is the payload of a TopicRetired event.
type retirement struct {
	RegionID string `json:"region_id"`
}

// Retired implements ports.RetirementListener.
func (sm *StreamManager) Retired(ctx context.Context, id string) {
	data, err := json.Marshal(retirement{RegionID: id})
	if err != nil {
		sm.logger.Error("SSE: failed to encode retirement", "region_id", id, "error", err)
		return
	}
	sm.Broadcast(TopicRetired, string(data))
}
