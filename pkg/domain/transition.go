package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TransitionKind identifies how the device moved relative to a region.
// Values match the platform codes so events can be forwarded untouched.
type TransitionKind int

const (
	TransitionEnter TransitionKind = 1
	TransitionExit  TransitionKind = 2
	TransitionDwell TransitionKind = 4
)

func (k TransitionKind) String() string {
	switch k {
	case TransitionEnter:
		return "ENTER"
	case TransitionExit:
		return "EXIT"
	case TransitionDwell:
		return "DWELL"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(k)) + ")"
	}
}

// Known reports whether k is one of ENTER, EXIT or DWELL.
func (k TransitionKind) Known() bool {
	return k == TransitionEnter || k == TransitionExit || k == TransitionDwell
}

// ParseTransitionKind accepts a kind name (case-insensitive) or its numeric code.
// Numeric codes are accepted even when unknown so they can be reported downstream.
func ParseTransitionKind(s string) (TransitionKind, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "ENTER":
		return TransitionEnter, nil
	case "EXIT":
		return TransitionExit, nil
	case "DWELL":
		return TransitionDwell, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTransition, s)
	}
	return TransitionKind(n), nil
}

// MarshalText renders known kinds by name and anything else by numeric code,
// so the output always round-trips through UnmarshalText.
func (k TransitionKind) MarshalText() ([]byte, error) {
	if !k.Known() {
		return []byte(strconv.Itoa(int(k))), nil
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts names or numeric codes.
func (k *TransitionKind) UnmarshalText(b []byte) error {
	parsed, err := ParseTransitionKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// UnmarshalJSON accepts a quoted name or code, or a bare numeric code.
func (k *TransitionKind) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	return k.UnmarshalText([]byte(s))
}

// TransitionSet is a bitmask of the transitions a region is interested in.
type TransitionSet uint8

// TransitionSetAll selects ENTER, EXIT and DWELL.
const TransitionSetAll = TransitionSet(TransitionEnter) | TransitionSet(TransitionExit) | TransitionSet(TransitionDwell)

// NewTransitionSet builds a set from individual kinds.
func NewTransitionSet(kinds ...TransitionKind) TransitionSet {
	var s TransitionSet
	for _, k := range kinds {
		if k.Known() {
			s |= TransitionSet(k)
		}
	}
	return s
}

// Has reports whether k is part of the set.
func (s TransitionSet) Has(k TransitionKind) bool {
	return k.Known() && s&TransitionSet(k) != 0
}

func (s TransitionSet) String() string {
	var names []string
	for _, k := range []TransitionKind{TransitionEnter, TransitionExit, TransitionDwell} {
		if s.Has(k) {
			names = append(names, k.String())
		}
	}
	return strings.Join(names, "|")
}
