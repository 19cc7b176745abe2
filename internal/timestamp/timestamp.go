// Package timestamp normalizes the many timestamp encodings found in
// structured logs into a single comparable instant.
//
// Supported encodings: RFC 3339 / ISO 8601 strings (with or without offset
// and sub-second fraction), the fixed `YYYY-MM-DD HH:MM:SS[.fff]` form, and
// numeric Unix epochs disambiguated by magnitude (seconds, milliseconds,
// nanoseconds).
package timestamp

import (
	"encoding/json"
	"math"
	"time"
)

// DefaultLayout renders hours:minutes:seconds.milliseconds in UTC.
const DefaultLayout = "15:04:05.000"

// String layouts tried in priority order. Layouts without an offset are
// interpreted as UTC.
var (
	offsetLayouts = []string{
		time.RFC3339Nano,
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
	}
)

// Magnitude thresholds for the epoch unit heuristic. The unit is never
// explicit in log data, so magnitude is the only available signal.
const (
	millisThreshold = 1_000_000_000_000     // 1e12: below → seconds
	nanosThreshold  = 1_000_000_000_000_000 // 1e15: below → milliseconds
)

// Timestamp is a normalized instant plus the original textual form, kept so
// display can fall back to the source text if normalization ever needs it.
type Timestamp struct {
	Time     time.Time
	Original string
}

// Format renders the instant in UTC using the given layout.
// An empty layout falls back to DefaultLayout.
func (t *Timestamp) Format(layout string) string {
	if layout == "" {
		layout = DefaultLayout
	}
	return t.Time.UTC().Format(layout)
}

func (t *Timestamp) String() string {
	return t.Format(DefaultLayout)
}

// FromValue parses a timestamp from a decoded JSON value.
// Returns nil when the value carries no usable timestamp; this is the
// "absent" state, never an error.
func FromValue(v any) *Timestamp {
	switch val := v.(type) {
	case string:
		return parseString(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return fromEpochInt(i, val.String())
		}
		if f, err := val.Float64(); err == nil {
			return fromEpochFloat(f, val.String())
		}
		return nil
	case float64:
		return fromEpochFloat(val, "")
	case int64:
		return fromEpochInt(val, "")
	case int:
		return fromEpochInt(int64(val), "")
	default:
		return nil
	}
}

func parseString(s string) *Timestamp {
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &Timestamp{Time: t, Original: s}
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &Timestamp{Time: t, Original: s}
		}
	}
	return nil
}

func fromEpochInt(n int64, original string) *Timestamp {
	var t time.Time
	switch {
	case n < millisThreshold:
		t = time.Unix(n, 0)
	case n < nanosThreshold:
		t = time.UnixMilli(n)
	default:
		t = time.Unix(0, n)
	}
	return checked(t, original)
}

func fromEpochFloat(f float64, original string) *Timestamp {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	var t time.Time
	switch {
	case f < float64(millisThreshold):
		secs, frac := math.Modf(f)
		t = time.Unix(int64(secs), int64(frac*float64(time.Second)))
	case f < float64(nanosThreshold):
		t = time.UnixMilli(int64(f))
	default:
		t = time.Unix(0, int64(f))
	}
	return checked(t, original)
}

// checked rejects instants outside a sane calendar range. Epoch seconds
// close to the milliseconds threshold would otherwise decode to five-digit
// years, which no log producer means.
func checked(t time.Time, original string) *Timestamp {
	y := t.UTC().Year()
	if y < -9999 || y > 9999 {
		return nil
	}
	return &Timestamp{Time: t, Original: original}
}
