// Package fields holds the canonical field alias tables used to auto-detect
// common log fields in schema-less JSON input.
//
// Aliases are ordered by frequency of use across frameworks (logrus, zap,
// slog, pino, bunyan, structlog). First match wins during extraction, so
// table order must be preserved.
package fields

// TimestampAliases are known key names for timestamp fields.
var TimestampAliases = []string{
	"time",
	"ts",
	"timestamp",
	"@timestamp",
	"datetime",
	"date",
	"t",
	"logged_at",
	"created_at",
}

// LevelAliases are known key names for level/severity fields.
var LevelAliases = []string{
	"level",
	"severity",
	"loglevel",
	"log_level",
	"lvl",
	"priority",
	"log.level",
}

// MessageAliases are known key names for message fields.
var MessageAliases = []string{
	"msg",
	"message",
	"text",
	"log",
	"body",
	"event",
	"short_message",
}

// LoggerAliases are known key names for logger name fields.
// Kept for future logger extraction; not consumed today.
var LoggerAliases = []string{"logger", "name", "logger_name", "component", "module"}

// CallerAliases are known key names for caller/source fields.
// Kept for future caller extraction; not consumed today.
var CallerAliases = []string{"caller", "source", "src", "location", "file", "func", "function"}

// ErrorAliases are known key names for error fields.
// Kept for future error extraction; not consumed today.
var ErrorAliases = []string{
	"error",
	"err",
	"exception",
	"exc_info",
	"stack_trace",
	"stacktrace",
	"stack",
}

// FindAndRemove returns the first alias key present in the object, removing
// it. The returned key is the matched alias name.
func FindAndRemove(obj map[string]any, aliases []string) (string, any, bool) {
	for _, alias := range aliases {
		if val, ok := obj[alias]; ok {
			delete(obj, alias)
			return alias, val, true
		}
	}
	return "", nil, false
}

// FindKey returns the first alias key present in the object without removing it.
func FindKey(obj map[string]any, aliases []string) (string, bool) {
	for _, alias := range aliases {
		if _, ok := obj[alias]; ok {
			return alias, true
		}
	}
	return "", false
}
