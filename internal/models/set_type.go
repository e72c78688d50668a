package models

import (
	"fmt"
	"strings"
)

// SetType classifies a logged or planned set. Analytics and the session
// engine share this classification.
type SetType string

// Canonical set types.
const (
	SetRegular SetType = "REGULAR"
	SetWarmup  SetType = "WARMUP"
	SetDrop    SetType = "DROP"
)

// setTypeMap maps lowercased spellings seen in exports and API payloads to
// their canonical set type.
var setTypeMap = map[string]SetType{
	"regular": SetRegular,
	"working": SetRegular,
	"normal":  SetRegular,

	"warmup":  SetWarmup,
	"warm-up": SetWarmup,
	"warm up": SetWarmup,
	"wu":      SetWarmup,

	"aufwärmen":  SetWarmup,
	"aufwaermen": SetWarmup,

	"drop":     SetDrop,
	"dropset":  SetDrop,
	"drop set": SetDrop,
}

// ParseSetType maps a possibly abbreviated set type name to its canonical
// value. Returns an error for unknown names.
func ParseSetType(raw string) (SetType, error) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if t, ok := setTypeMap[lower]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown set type %q", raw)
}

// Valid reports whether t is one of the canonical set types.
func (t SetType) Valid() bool {
	switch t {
	case SetRegular, SetWarmup, SetDrop:
		return true
	}
	return false
}

// Next returns the type that follows t when a set type is toggled:
// REGULAR → WARMUP → DROP → REGULAR.
func (t SetType) Next() SetType {
	switch t {
	case SetRegular:
		return SetWarmup
	case SetWarmup:
		return SetDrop
	default:
		return SetRegular
	}
}
