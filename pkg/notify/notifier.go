// Package notify turns transition events into user-facing notifications.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/geofence/pkg/domain"
)

// Lookup resolves a region identifier to the region currently desired, if any.
type Lookup func(id string) (domain.Region, bool)

// Notifier builds notifications. It holds no state besides its clock.
type Notifier struct {
	now func() time.Time
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		n.now = now
	}
}

// New creates a Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Verb returns the title prefix for a transition kind.
func Verb(k domain.TransitionKind) string {
	switch k {
	case domain.TransitionEnter:
		return "Entered"
	case domain.TransitionExit:
		return "Exited"
	case domain.TransitionDwell:
		return "Dwelling"
	default:
		return "Unknown transition"
	}
}

// NotificationID derives an identifier from the low byte of the millisecond clock.
// Collisions are expected; a newer notification simply replaces an older one.
func NotificationID(t time.Time) int {
	return int(t.UnixMilli() & 0xFF)
}

// Summarize builds the notification for ev. lookup may be nil.
func (n *Notifier) Summarize(ev domain.TransitionEvent, lookup Lookup) domain.Notification {
	now := n.now()
	title := Verb(ev.Kind) + ": " + strings.Join(ev.RegionIDs, ", ")

	var body strings.Builder
	for i, id := range ev.RegionIDs {
		if i > 0 {
			body.WriteByte('\n')
		}
		body.WriteString(id)
		if lookup != nil {
			if r, ok := lookup(id); ok {
				fmt.Fprintf(&body, " (%.0f m around %s)", r.RadiusMeters, r.Center)
			}
		}
	}
	if ev.Location != nil {
		fmt.Fprintf(&body, "\nat %s", ev.Location)
	}

	return domain.Notification{
		ID:    NotificationID(now),
		Title: title,
		Body:  body.String(),
		Kind:  ev.Kind,
		Dwell: ev.Kind == domain.TransitionDwell,
		Time:  now,
	}
}
