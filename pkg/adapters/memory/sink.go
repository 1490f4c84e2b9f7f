package memory

import (
	"context"
	"sync"

	"github.com/aretw0/geofence/pkg/domain"
)

// Sink records notifications and retirements. It implements both
// ports.DisplaySink and ports.RetirementListener, which makes it the
// usual test double for the router.
type Sink struct {
	mu            sync.Mutex
	notifications []domain.Notification
	retired       []string
}

// NewSink creates an empty recording sink.
func NewSink() *Sink {
	return &Sink{}
}

// Display records n.
func (s *Sink) Display(ctx context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

// Retired records id.
func (s *Sink) Retired(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retired = append(s.retired, id)
}

// Notifications returns a copy of the recorded notifications.
func (s *Sink) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.notifications...)
}

// RetiredIDs returns a copy of the recorded retirements.
func (s *Sink) RetiredIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.retired...)
}

// ChannelListener forwards retirements to a buffered channel.
// When the buffer is full the retirement is dropped rather than blocking the router.
type ChannelListener struct {
	C chan string
}

// NewChannelListener creates a listener with the given buffer size.
func NewChannelListener(size int) *ChannelListener {
	return &ChannelListener{C: make(chan string, size)}
}

// Retired forwards id if there is room.
func (l *ChannelListener) Retired(ctx context.Context, id string) {
	select {
	case l.C <- id:
	default:
	}
}
