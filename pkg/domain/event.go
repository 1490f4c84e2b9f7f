package domain

import (
	"strings"
	"time"
)

// TransitionEvent is a single report from the monitoring service.
// Either ErrorCode is set, or Kind and RegionIDs describe the transition.
type TransitionEvent struct {
	Kind      TransitionKind `json:"kind"`
	ErrorCode ErrorCode      `json:"error_code,omitempty"`
	RegionIDs []string       `json:"region_ids"`
	Location  *Coordinate    `json:"location,omitempty"`
	Time      time.Time      `json:"time"`
}

// HasError reports whether the service delivered an error instead of a transition.
func (e TransitionEvent) HasError() bool {
	return e.ErrorCode != 0
}

// Validate checks the event can be routed.
func (e TransitionEvent) Validate() error {
	if e.HasError() {
		return &MonitorError{Code: e.ErrorCode}
	}
	if len(e.RegionIDs) == 0 {
		return ErrEmptyTrigger
	}
	for _, id := range e.RegionIDs {
		if strings.TrimSpace(id) == "" {
			return ErrEmptyTrigger
		}
	}
	return nil
}

// Details renders the event as "ENTER: a, b".
func (e TransitionEvent) Details() string {
	return e.Kind.String() + ": " + strings.Join(e.RegionIDs, ", ")
}
