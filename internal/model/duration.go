package model

import (
	"regexp"
	"strconv"
	"strings"
)

// Duration is the parsed form of a free-form catalog duration string.
// The zero value means "unknown": no bounds, not untimed, not variable.
type Duration struct {
	Text       string
	MinMinutes *int
	MaxMinutes *int
	IsUntimed  bool
	IsVariable bool
}

var (
	reDurationFixed = regexp.MustCompile(`^(\d+)\s*(minutes?|mins?|hours?)?$`)
	reDurationMax   = regexp.MustCompile(`^max(?:imum)?\s+(\d+)\s*(minutes?|mins?|hours?)?$`)
	reDurationRange = regexp.MustCompile(`^(\d+)\s*(?:-|to)\s*(\d+)\s*(minutes?|mins?|hours?)?$`)
)

var variableDurationLiterals = map[string]bool{
	"variable": true,
	"tbc":      true,
	"n/a":      true,
	"-":        true,
}

// ParseDuration normalizes a heterogeneous duration string into a Duration.
// It is total: every input yields a well-formed tuple. Rules apply in order,
// first match wins:
//
//	"42"          -> min=max=42
//	"max 20"      -> max=20
//	"15 to 35"    -> min=15 max=35, variable
//	"Untimed..."  -> untimed
//	"TBC" etc.    -> variable
//	anything else -> unknown (no constraint)
//
// An explicit hour unit multiplies by 60. A range with min > max is unknown.
func ParseDuration(raw string) Duration {
	d := Duration{Text: strings.TrimSpace(raw)}
	t := strings.ToLower(d.Text)
	if t == "" {
		return d
	}

	if m := reDurationFixed.FindStringSubmatch(t); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			n = applyHours(n, m[2])
			d.MinMinutes = &n
			d.MaxMinutes = &n
			return d
		}
	}

	if m := reDurationMax.FindStringSubmatch(t); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			n = applyHours(n, m[2])
			d.MaxMinutes = &n
			return d
		}
	}

	if m := reDurationRange.FindStringSubmatch(t); m != nil {
		lo, errLo := strconv.Atoi(m[1])
		hi, errHi := strconv.Atoi(m[2])
		if errLo == nil && errHi == nil {
			lo = applyHours(lo, m[3])
			hi = applyHours(hi, m[3])
			if lo > hi {
				return d // malformed range, treat as unknown
			}
			d.MinMinutes = &lo
			d.MaxMinutes = &hi
			d.IsVariable = true
			return d
		}
	}

	if strings.HasPrefix(t, "untimed") || strings.Contains(t, "no time limit") {
		d.IsUntimed = true
		return d
	}

	if variableDurationLiterals[t] || strings.Contains(t, "variable") || strings.Contains(t, "varies") {
		d.IsVariable = true
		return d
	}

	return d
}

func applyHours(n int, unit string) int {
	if strings.HasPrefix(unit, "hour") {
		return n * 60
	}
	return n
}

// DurationType classifies an assessment's duration for filtering.
type DurationType string

const (
	DurationFixed    DurationType = "Fixed"
	DurationVariable DurationType = "Variable"
	DurationUntimed  DurationType = "Untimed"
)

// DurationTypeOf returns the filterable classification of an assessment:
// Untimed, Variable (flagged variable or min < max), or Fixed (min == max,
// both set). Unknown durations have no classification and match nothing.
func DurationTypeOf(a Assessment) DurationType {
	switch {
	case a.IsUntimed:
		return DurationUntimed
	case a.IsVariable:
		return DurationVariable
	case a.DurationMinMinutes != nil && a.DurationMaxMinutes != nil:
		if *a.DurationMinMinutes < *a.DurationMaxMinutes {
			return DurationVariable
		}
		return DurationFixed
	default:
		return ""
	}
}
