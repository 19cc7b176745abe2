// Package parser classifies raw input lines and extracts structured log
// records from them.
//
// A line is either a pure JSON object, non-JSON text followed by a JSON
// object running to end-of-line (embedded JSON), or unstructured text that
// passes through unmodified. Timestamp, level, and message fields are
// auto-detected across the major logging frameworks via ordered alias
// tables; everything else lands in the record's extra fields, flattened one
// level and sorted for deterministic output.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/alexsavio/cor-cli/internal/config"
	"github.com/alexsavio/cor-cli/internal/fields"
	"github.com/alexsavio/cor-cli/internal/level"
	"github.com/alexsavio/cor-cli/internal/timestamp"
)

// Kind is the classification of an input line.
type Kind int

const (
	// KindRaw lines contain no usable JSON and pass through unmodified.
	KindRaw Kind = iota
	// KindJSON lines are a single JSON object.
	KindJSON
	// KindEmbedded lines carry non-JSON prefix text before a JSON object.
	KindEmbedded
)

// Field is one flattened extra field. Values keep their decoded JSON type
// (string, json.Number, bool, nil, []any, map[string]any).
type Field struct {
	Key   string
	Value any
}

// Record is a structured log entry extracted from a JSON object.
type Record struct {
	Timestamp *timestamp.Timestamp
	Level     level.Level
	// Message is nil when no message field was found.
	Message *string
	// Extra holds the remaining fields, flattened one level and sorted by
	// key. Ordering is an invariant, not an implementation detail.
	Extra []Field
	// RawJSON is the JSON text that was parsed, kept for passthrough mode.
	RawJSON string
	// Source key names consumed during extraction, empty when the concept
	// was not found. Used to rebuild filtered passthrough objects.
	TimestampKey string
	LevelKey     string
	MessageKey   string
}

// Field returns the extra field value for a flattened key.
func (r *Record) Field(key string) (any, bool) {
	for _, f := range r.Extra {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Line is the classified form of one input line. Exactly one interpretation
// holds: Record is non-nil iff Kind is KindJSON or KindEmbedded.
type Line struct {
	Kind   Kind
	Prefix string
	Record *Record
	// Err holds the JSON parse failure for lines that begin with '{' but
	// could not be parsed. Only surfaced in verbose mode.
	Err error
}

var errNotObject = errors.New("JSON value is not an object")

// Parse classifies a single input line.
//
// Detection order: lines starting with `{` are parsed as a whole; otherwise
// the line is scanned for its first `{` and the remainder is parsed as
// embedded JSON. Only the first `{` is attempted — if that parse fails the
// whole line is raw, with no backtracking to later braces. Arrays and
// scalars at top level are raw. Parse never fails: malformed input always
// degrades to KindRaw.
func Parse(raw string, cfg *config.Config) Line {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Line{Kind: KindRaw}
	}

	if trimmed[0] == '{' {
		rec, err := tryParse(trimmed, cfg)
		if rec != nil {
			return Line{Kind: KindJSON, Record: rec}
		}
		return Line{Kind: KindRaw, Err: err}
	}

	if pos := strings.IndexByte(trimmed, '{'); pos >= 0 {
		if rec, _ := tryParse(trimmed[pos:], cfg); rec != nil {
			return Line{Kind: KindEmbedded, Prefix: trimmed[:pos], Record: rec}
		}
	}

	return Line{Kind: KindRaw}
}

// tryParse parses a candidate JSON segment into a Record. If the initial
// parse fails it retries after un-double-escaping backslash sequences; some
// log pipelines double-escape string contents, producing invalid JSON.
func tryParse(s string, cfg *config.Config) (*Record, error) {
	rec, err := parseObject(s, cfg)
	if rec != nil {
		return rec, nil
	}

	if strings.Contains(s, `\\`) {
		if fixed := UnDoubleEscape(s); fixed != s {
			if rec, ferr := parseObject(fixed, cfg); ferr == nil {
				return rec, nil
			}
		}
	}

	return nil, err
}

func parseObject(s string, cfg *config.Config) (*Record, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// The segment must be a single JSON value; trailing text is a failure,
	// same as a whole-string parse.
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON object")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}

	rec := &Record{RawJSON: s}

	// Timestamp: an explicit override key wins over the alias table.
	if cfg.TimestampKey != "" {
		if val, ok := obj[cfg.TimestampKey]; ok {
			delete(obj, cfg.TimestampKey)
			rec.TimestampKey = cfg.TimestampKey
			rec.Timestamp = timestamp.FromValue(val)
		}
	} else if key, val, ok := fields.FindAndRemove(obj, fields.TimestampAliases); ok {
		rec.TimestampKey = key
		rec.Timestamp = timestamp.FromValue(val)
	}

	// Level.
	if cfg.LevelKey != "" {
		if val, ok := obj[cfg.LevelKey]; ok {
			delete(obj, cfg.LevelKey)
			rec.LevelKey = cfg.LevelKey
			rec.Level = level.FromValue(val, cfg.LevelAliases)
		}
	} else if key, val, ok := fields.FindAndRemove(obj, fields.LevelAliases); ok {
		rec.LevelKey = key
		rec.Level = level.FromValue(val, cfg.LevelAliases)
	}

	// Message. Via the alias table a null message becomes the empty string;
	// via an explicit override it stays absent.
	if cfg.MessageKey != "" {
		if val, ok := obj[cfg.MessageKey]; ok {
			delete(obj, cfg.MessageKey)
			rec.MessageKey = cfg.MessageKey
			if text, ok := valueText(val); ok {
				rec.Message = &text
			}
		}
	} else if key, val, ok := fields.FindAndRemove(obj, fields.MessageAliases); ok {
		rec.MessageKey = key
		text, _ := valueText(val)
		rec.Message = &text
	}

	rec.Extra = flattenExtra(obj)
	return rec, nil
}

// flattenExtra rewrites one level of nested objects into dot-joined keys.
//
// Arrays are never flattened; objects nested deeper than one level stay as
// values under their dot-joined key. A literal top-level key always wins a
// collision against a flattened key of the same name; parents are processed
// in sorted order so the result is deterministic either way.
func flattenExtra(obj map[string]any) []Field {
	flat := make(map[string]any, len(obj))
	keys := sortedKeys(obj)

	for _, k := range keys {
		if _, isObj := obj[k].(map[string]any); !isObj {
			flat[k] = obj[k]
		}
	}
	for _, k := range keys {
		nested, ok := obj[k].(map[string]any)
		if !ok {
			continue
		}
		for _, child := range sortedKeys(nested) {
			flatKey := k + "." + child
			if _, exists := flat[flatKey]; exists {
				continue
			}
			flat[flatKey] = nested[child]
		}
	}

	out := make([]Field, 0, len(flat))
	for _, k := range sortedKeys(flat) {
		out = append(out, Field{Key: k, Value: flat[k]})
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// valueText converts a JSON value to message text. Null yields no text.
func valueText(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case nil:
		return "", false
	default:
		return ValueString(v), true
	}
}

// ValueString renders a decoded JSON value as display text: strings
// unquoted, numbers and booleans in canonical form, null as "null", arrays
// and nested objects as compact JSON.
func ValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		compact, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(compact)
	}
}

// UnDoubleEscape reverses double-escaped backslash sequences inside JSON
// string values, replacing `\\X` with `\X` for the JSON escape characters.
// Double-escaping turns valid `\n` into `\\n` and `\"` into `\\"`, which
// breaks parsing because `\\"` reads as an escaped backslash followed by a
// string-terminating quote. Only called on segments that already failed to
// parse.
func UnDoubleEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	inString := false
	escapeNext := false

	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if escapeNext {
			// After a single backslash inside a string.
			if ch == '\\' && i+1 < len(runes) && isJSONEscapeChar(runes[i+1]) {
				// `\\n` becomes `\n`: drop the extra backslash.
				b.WriteRune('\\')
				b.WriteRune(runes[i+1])
				i++
				escapeNext = false
				continue
			}
			b.WriteRune(ch)
			escapeNext = false
			continue
		}

		if inString && ch == '\\' {
			escapeNext = true
			continue
		}

		if ch == '"' {
			inString = !inString
		}
		b.WriteRune(ch)
	}

	if escapeNext {
		b.WriteByte('\\')
	}
	return b.String()
}

func isJSONEscapeChar(r rune) bool {
	switch r {
	case 'n', 'r', 't', '"', '\\', '/', 'b', 'f', 'u':
		return true
	}
	return false
}

// SanitizeNewlines replaces raw newline and carriage-return bytes inside
// JSON string values with their escape sequences. Some producers (Python
// structlog tracebacks, for one) emit raw control characters in strings,
// which RFC 8259 forbids. Newlines between tokens are valid whitespace and
// are left alone. Intended for callers that reassemble multi-line payloads
// before classification.
func SanitizeNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escapeNext := false

	for _, ch := range s {
		if escapeNext {
			b.WriteRune(ch)
			escapeNext = false
			continue
		}
		if inString && ch == '\\' {
			b.WriteRune(ch)
			escapeNext = true
			continue
		}
		if ch == '"' {
			inString = !inString
			b.WriteRune(ch)
			continue
		}
		if inString {
			switch ch {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			default:
				b.WriteRune(ch)
			}
			continue
		}
		b.WriteRune(ch)
	}

	return b.String()
}
