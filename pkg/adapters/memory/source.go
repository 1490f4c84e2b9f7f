package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/aretw0/geofence/pkg/domain"
)

// Source implements ports.RegionSource over a fixed landmark map.
type Source struct {
	mu        sync.RWMutex
	landmarks domain.Landmarks
}

// NewSource creates a source serving a copy of landmarks.
func NewSource(landmarks domain.Landmarks) *Source {
	return &Source{landmarks: maps.Clone(landmarks)}
}

// DefaultLandmarks returns the two landmarks the service ships with.
func DefaultLandmarks() domain.Landmarks {
	return domain.Landmarks{
		"SFO":    {Latitude: 37.621313, Longitude: -122.378955},
		"GOOGLE": {Latitude: 37.422611, Longitude: -122.0840577},
	}
}

// AllLandmarks returns a copy of the landmark map.
func (s *Source) AllLandmarks(ctx context.Context) (domain.Landmarks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.landmarks), nil
}

// Set adds or moves a landmark.
func (s *Source) Set(id string, c domain.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.landmarks == nil {
		s.landmarks = domain.Landmarks{}
	}
	s.landmarks[id] = c
}
