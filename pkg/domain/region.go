package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const earthRadiusMeters = 6371000.0

// Coordinate is a WGS 84 point.
type Coordinate struct {
	Latitude  float64 `json:"lat" yaml:"lat" mapstructure:"lat"`
	Longitude float64 `json:"lon" yaml:"lon" mapstructure:"lon"`
}

// Validate checks the coordinate is on the globe.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", c.Longitude)
	}
	return nil
}

// DistanceTo returns the great-circle distance in metres.
func (c Coordinate) DistanceTo(o Coordinate) float64 {
	lat1 := c.Latitude * math.Pi / 180
	lat2 := o.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (o.Longitude - c.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Latitude, c.Longitude)
}

// Region is a circular area monitored by the location service.
// It is a comparable value: replacing a region means building a new one with the same ID.
type Region struct {
	ID             string        `json:"id"`
	Center         Coordinate    `json:"center"`
	RadiusMeters   float64       `json:"radius_m"`
	Expiration     time.Duration `json:"expiration"`
	Transitions    TransitionSet `json:"transitions"`
	DwellDelay     time.Duration `json:"dwell_delay"`
	Responsiveness time.Duration `json:"responsiveness"`
}

// Contains reports whether p lies inside the region.
func (r Region) Contains(p Coordinate) bool {
	return r.Center.DistanceTo(p) <= r.RadiusMeters
}

// RegionOption adjusts a region under construction.
type RegionOption func(*Region)

// WithRadius sets the radius in metres.
func WithRadius(m float64) RegionOption {
	return func(r *Region) { r.RadiusMeters = m }
}

// WithExpiration sets how long the region stays registered.
func WithExpiration(d time.Duration) RegionOption {
	return func(r *Region) { r.Expiration = d }
}

// WithTransitions sets the transitions of interest.
func WithTransitions(s TransitionSet) RegionOption {
	return func(r *Region) { r.Transitions = s }
}

// WithDwellDelay sets the loitering delay before DWELL fires.
func WithDwellDelay(d time.Duration) RegionOption {
	return func(r *Region) { r.DwellDelay = d }
}

// WithResponsiveness sets the notification responsiveness hint.
func WithResponsiveness(d time.Duration) RegionOption {
	return func(r *Region) { r.Responsiveness = d }
}

// NewRegion builds a validated region with the package defaults.
func NewRegion(id string, center Coordinate, opts ...RegionOption) (Region, error) {
	r := Region{
		ID:             id,
		Center:         center,
		RadiusMeters:   DefaultRadiusMeters,
		Expiration:     DefaultExpiration,
		Transitions:    TransitionSetAll,
		DwellDelay:     DefaultDwellDelay,
		Responsiveness: DefaultResponsiveness,
	}
	for _, opt := range opts {
		opt(&r)
	}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}

// Validate checks the region can be submitted to a monitoring service.
func (r Region) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRegion)
	}
	if err := r.Center.Validate(); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidRegion, r.ID, err)
	}
	if !(r.RadiusMeters > 0) {
		return fmt.Errorf("%w %q: radius must be positive", ErrInvalidRegion, r.ID)
	}
	if r.Expiration < 0 || r.DwellDelay < 0 || r.Responsiveness < 0 {
		return fmt.Errorf("%w %q: negative duration", ErrInvalidRegion, r.ID)
	}
	if r.Transitions == 0 {
		return fmt.Errorf("%w %q: no transitions selected", ErrInvalidRegion, r.ID)
	}
	return nil
}

// RegionTemplate holds the settings shared by every region built from a landmark.
type RegionTemplate struct {
	RadiusMeters   float64       `yaml:"radius_m" mapstructure:"radius_m"`
	Expiration     time.Duration `yaml:"expiration" mapstructure:"expiration"`
	Transitions    TransitionSet `yaml:"-" mapstructure:"-"`
	DwellDelay     time.Duration `yaml:"dwell_delay" mapstructure:"dwell_delay"`
	Responsiveness time.Duration `yaml:"responsiveness" mapstructure:"responsiveness"`
}

// DefaultRegionTemplate mirrors the settings of NewRegion.
func DefaultRegionTemplate() RegionTemplate {
	return RegionTemplate{
		RadiusMeters:   DefaultRadiusMeters,
		Expiration:     DefaultExpiration,
		Transitions:    TransitionSetAll,
		DwellDelay:     DefaultDwellDelay,
		Responsiveness: DefaultResponsiveness,
	}
}

// Build constructs a fresh region for a landmark.
func (t RegionTemplate) Build(id string, center Coordinate) (Region, error) {
	return NewRegion(id, center,
		WithRadius(t.RadiusMeters),
		WithExpiration(t.Expiration),
		WithTransitions(t.Transitions),
		WithDwellDelay(t.DwellDelay),
		WithResponsiveness(t.Responsiveness),
	)
}

// Landmarks maps landmark identifiers to their centre.
type Landmarks map[string]Coordinate

// IDs returns the landmark identifiers in sorted order.
func (l Landmarks) IDs() []string {
	ids := make([]string, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortRegions orders regions by ID in place.
func SortRegions(regions []Region) {
	sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
}
