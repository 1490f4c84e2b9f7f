// Package landmarks loads the landmark catalogue from YAML.
//
// Both a mapping and a list form are accepted:
//
//	template:
//	  radius_m: 1609
//	  expiration: 12h
//	  dwell_delay: 10m
//	  transitions: [ENTER, EXIT, DWELL]
//	landmarks:
//	  SFO: {lat: 37.621313, lon: -122.378955}
//
//	landmarks:
//	  - {id: SFO, lat: 37.621313, lon: -122.378955}
package landmarks

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/geofence/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrNoLandmarks is returned when a catalogue defines no landmarks.
var ErrNoLandmarks = errors.New("catalogue defines no landmarks")

// Catalog is a decoded landmark file.
type Catalog struct {
	Template  domain.RegionTemplate
	Landmarks domain.Landmarks
}

type listEntry struct {
	ID  string  `mapstructure:"id"`
	Lat float64 `mapstructure:"lat"`
	Lon float64 `mapstructure:"lon"`
}

// Parse decodes a catalogue. Template fields left out keep their defaults.
func Parse(data []byte) (Catalog, error) {
	var raw struct {
		Template  map[string]any `yaml:"template"`
		Landmarks any            `yaml:"landmarks"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse landmarks yaml: %w", err)
	}

	tmpl, err := decodeTemplate(raw.Template)
	if err != nil {
		return Catalog{}, err
	}
	lm, err := decodeLandmarks(raw.Landmarks)
	if err != nil {
		return Catalog{}, err
	}
	if len(lm) == 0 {
		return Catalog{}, ErrNoLandmarks
	}
	for id, c := range lm {
		if err := c.Validate(); err != nil {
			return Catalog{}, fmt.Errorf("landmark %q: %w", id, err)
		}
	}
	return Catalog{Template: tmpl, Landmarks: lm}, nil
}

func decodeTemplate(raw map[string]any) (domain.RegionTemplate, error) {
	tmpl := domain.DefaultRegionTemplate()
	if raw == nil {
		return tmpl, nil
	}

	if names, ok := raw["transitions"]; ok {
		var list []string
		if err := mapstructure.Decode(names, &list); err != nil {
			return tmpl, fmt.Errorf("failed to decode transitions: %w", err)
		}
		kinds := make([]domain.TransitionKind, 0, len(list))
		for _, n := range list {
			k, err := domain.ParseTransitionKind(n)
			if err != nil {
				return tmpl, err
			}
			kinds = append(kinds, k)
		}
		tmpl.Transitions = domain.NewTransitionSet(kinds...)
		delete(raw, "transitions")
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      &tmpl,
	})
	if err != nil {
		return tmpl, err
	}
	if err := dec.Decode(raw); err != nil {
		return tmpl, fmt.Errorf("failed to decode template: %w", err)
	}
	return tmpl, nil
}

func decodeLandmarks(raw any) (domain.Landmarks, error) {
	out := domain.Landmarks{}
	switch v := raw.(type) {
	case nil:
		return out, nil
	case map[string]any:
		for id, c := range v {
			var coord domain.Coordinate
			if err := mapstructure.Decode(c, &coord); err != nil {
				return nil, fmt.Errorf("failed to decode landmark %q: %w", id, err)
			}
			out[id] = coord
		}
	case []any:
		for i, item := range v {
			var e listEntry
			if err := mapstructure.Decode(item, &e); err != nil {
				return nil, fmt.Errorf("failed to decode landmark #%d: %w", i, err)
			}
			if e.ID == "" {
				return nil, fmt.Errorf("landmark #%d missing id", i)
			}
			if _, dup := out[e.ID]; dup {
				return nil, fmt.Errorf("duplicate landmark %q", e.ID)
			}
			out[e.ID] = domain.Coordinate{Latitude: e.Lat, Longitude: e.Lon}
		}
	default:
		return nil, fmt.Errorf("invalid landmarks definition type: %T", v)
	}
	return out, nil
}

// Load reads and parses a catalogue file.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read landmarks file: %w", err)
	}
	return Parse(data)
}

// File implements ports.RegionSource by re-reading a catalogue on every call,
// so edits take effect at the next rotation.
type File struct {
	Path string
}

// NewFile creates a source for path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// AllLandmarks implements ports.RegionSource.
func (f *File) AllLandmarks(ctx context.Context) (domain.Landmarks, error) {
	c, err := Load(f.Path)
	if err != nil {
		return nil, err
	}
	return c.Landmarks, nil
}
