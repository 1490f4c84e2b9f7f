package domain

import "time"

// Notification is a user-facing summary of a transition.
// IDs may collide; a later notification with the same ID replaces the earlier one.
type Notification struct {
	ID    int            `json:"id"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Kind  TransitionKind `json:"kind"`
	Dwell bool           `json:"dwell"`
	Time  time.Time      `json:"time"`
}
