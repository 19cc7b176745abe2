// Package level defines the canonical log severity levels with parsing,
// ordering, display badges, and terminal color tags.
//
// Both string levels (e.g. "info", "warn") and the numeric convention used
// by bunyan and pino (30 = info, 40 = warn) are supported.
package level

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Level is a closed enumeration of severities ordered ascending.
// Values follow the bunyan/pino numeric convention so numeric input maps
// directly. Unknown is the explicit "no recognized level" state; it never
// participates in threshold comparisons.
type Level int

const (
	Unknown Level = 0
	Trace   Level = 10
	Debug   Level = 20
	Info    Level = 30
	Warn    Level = 40
	Error   Level = 50
	Fatal   Level = 60
)

// BlankBadge is rendered in place of a badge when no level is recognized,
// keeping column alignment across mixed output.
const BlankBadge = "     "

// Known reports whether the level is one of the six recognized severities.
func (l Level) Known() bool {
	return l != Unknown
}

// Badge returns the 5-character display badge, right-justified.
func (l Level) Badge() string {
	switch l {
	case Trace:
		return "TRACE"
	case Debug:
		return "DEBUG"
	case Info:
		return " INFO"
	case Warn:
		return " WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return BlankBadge
	}
}

// Label returns the lowercase canonical name ("info", "warn", ...).
// Unknown yields the empty string.
func (l Level) Label() string {
	switch l {
	case Trace:
		return "trace"
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return ""
	}
}

// Color returns the badge color for this level.
// Scheme follows the fblog convention: trace cyan, debug blue, info green,
// warn yellow, error red, fatal magenta.
func (l Level) Color() lipgloss.Color {
	switch l {
	case Trace:
		return lipgloss.Color("6")
	case Debug:
		return lipgloss.Color("4")
	case Info:
		return lipgloss.Color("2")
	case Warn:
		return lipgloss.Color("3")
	case Error:
		return lipgloss.Color("1")
	case Fatal:
		return lipgloss.Color("5")
	default:
		return lipgloss.Color("7")
	}
}

// FromString parses a level name case-insensitively, including the aliases
// used by the major logging frameworks. Unrecognized input yields Unknown.
func FromString(s string) Level {
	switch strings.ToLower(s) {
	case "trace", "trc":
		return Trace
	case "debug", "dbg":
		return Debug
	case "info", "inf", "information":
		return Info
	case "warn", "warning", "wrn":
		return Warn
	case "error", "err", "fatal_error":
		return Error
	case "fatal", "critical", "crit", "panic", "emerg", "emergency":
		return Fatal
	default:
		return Unknown
	}
}

// FromNumeric maps a numeric level to the nearest canonical severity.
// Thresholds sit at the midpoints of the canonical values 10/20/30/40/50/60,
// so exact canonical values map unambiguously and off-grid values round to
// the nearest level.
func FromNumeric(n int64) Level {
	switch {
	case n < 15:
		return Trace
	case n < 25:
		return Debug
	case n < 35:
		return Info
	case n < 45:
		return Warn
	case n < 55:
		return Error
	default:
		return Fatal
	}
}

// FromValue parses a level from a decoded JSON value (string or number).
// Custom aliases, keyed by lowercase name, are consulted before the
// built-in table. Anything unrecognized yields Unknown.
func FromValue(v any, customAliases map[string]Level) Level {
	switch val := v.(type) {
	case string:
		if customAliases != nil {
			if l, ok := customAliases[strings.ToLower(val)]; ok {
				return l
			}
		}
		return FromString(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return FromNumeric(i)
		}
		if f, err := val.Float64(); err == nil {
			return FromNumeric(int64(f))
		}
		return Unknown
	case float64:
		return FromNumeric(int64(val))
	case int:
		return FromNumeric(int64(val))
	case int64:
		return FromNumeric(val)
	default:
		return Unknown
	}
}
