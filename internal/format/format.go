// Package format renders classified log lines for display.
//
// Human mode prints a normalized timestamp, a fixed-width level badge, any
// preserved prefix text, the message, and the flattened extra fields.
// Structured-passthrough mode re-emits the original JSON restricted to
// surviving fields and suppresses everything that is not JSON.
package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/alexsavio/cor-cli/internal/config"
	"github.com/alexsavio/cor-cli/internal/level"
	"github.com/alexsavio/cor-cli/internal/parser"
)

// Formatter turns raw input lines into rendered output lines. It is built
// once per run and holds only read-only state, so it is safe to share.
type Formatter struct {
	cfg   *config.Config
	color bool

	include map[string]struct{}
	exclude map[string]struct{}

	tsStyle     lipgloss.Style
	prefixStyle lipgloss.Style
	keyStyle    lipgloss.Style
	errStyle    lipgloss.Style
	levelStyles map[level.Level]lipgloss.Style
}

// New builds a Formatter for the given configuration. useColor is the
// already-resolved color decision; when set, the lipgloss color profile is
// forced so output is identical whether or not stdout is a terminal.
func New(cfg *config.Config, useColor bool) *Formatter {
	if useColor {
		lipgloss.SetColorProfile(termenv.ANSI256)
	}

	f := &Formatter{
		cfg:         cfg,
		color:       useColor,
		tsStyle:     lipgloss.NewStyle().Bold(true),
		prefixStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		keyStyle:    lipgloss.NewStyle().Faint(true),
		errStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Faint(true),
		levelStyles: make(map[level.Level]lipgloss.Style, 6),
	}

	for _, l := range []level.Level{level.Trace, level.Debug, level.Info, level.Warn, level.Error, level.Fatal} {
		color := l.Color()
		if name, ok := cfg.LevelColors[l]; ok {
			color = namedColor(name)
		}
		f.levelStyles[l] = lipgloss.NewStyle().Foreground(color).Bold(true)
	}

	if len(cfg.IncludeFields) > 0 {
		f.include = make(map[string]struct{}, len(cfg.IncludeFields))
		for _, k := range cfg.IncludeFields {
			f.include[k] = struct{}{}
		}
	}
	if len(cfg.ExcludeFields) > 0 {
		f.exclude = make(map[string]struct{}, len(cfg.ExcludeFields))
		for _, k := range cfg.ExcludeFields {
			f.exclude[k] = struct{}{}
		}
	}
	return f
}

// FormatLine classifies and renders one input line. The second return value
// is false when the line is suppressed (level filter, or non-JSON input in
// passthrough mode) and nothing should be written.
func (f *Formatter) FormatLine(raw string) (string, bool) {
	line := parser.Parse(raw, f.cfg)

	if line.Kind == parser.KindRaw {
		if f.cfg.JSONOutput {
			return "", false
		}
		// Raw lines pass through byte-for-byte; the level filter never
		// applies to them.
		out := raw
		if f.cfg.Verbose && line.Err != nil {
			out += " " + f.style(f.errStyle, fmt.Sprintf("[json error: %v]", line.Err))
		}
		return out, true
	}

	rec := line.Record
	if f.cfg.MinLevel.Known() && rec.Level.Known() && rec.Level < f.cfg.MinLevel {
		return "", false
	}
	if f.cfg.JSONOutput {
		return f.renderJSON(rec), true
	}
	return f.renderHuman(line), true
}

func (f *Formatter) renderHuman(line parser.Line) string {
	rec := line.Record
	var b strings.Builder

	if rec.Timestamp != nil {
		b.WriteString(f.style(f.tsStyle, rec.Timestamp.Format(f.cfg.TimestampLayout)))
		b.WriteByte(' ')
	}
	b.WriteString(f.badge(rec.Level))

	if prefix := strings.TrimSpace(line.Prefix); prefix != "" {
		b.WriteByte(' ')
		b.WriteString(f.style(f.prefixStyle, prefix))
	}
	if rec.Message != nil && *rec.Message != "" {
		b.WriteByte(' ')
		b.WriteString(*rec.Message)
	}
	f.writeFields(&b, rec)

	return strings.TrimRight(b.String(), " ")
}

// badge renders the level badge plus trailing colon; an unknown level yields
// blank padding of the same width so columns stay aligned in mixed output.
func (f *Formatter) badge(l level.Level) string {
	if !l.Known() {
		return level.BlankBadge + " "
	}
	return f.style(f.levelStyles[l], l.Badge()+":")
}

func (f *Formatter) writeFields(b *strings.Builder, rec *parser.Record) {
	first := true
	for _, fld := range rec.Extra {
		if !f.fieldVisible(fld.Key) {
			continue
		}
		val := Truncate(parser.ValueString(fld.Value), f.cfg.MaxFieldLength)

		if f.cfg.ExpandFields {
			key := fmt.Sprintf("%*s", f.cfg.KeyMinWidth, fld.Key)
			b.WriteByte('\n')
			b.WriteString(f.style(f.keyStyle, key))
			b.WriteString(": ")
			b.WriteString(val)
			continue
		}

		if first {
			b.WriteString("  ")
			first = false
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(f.style(f.keyStyle, fld.Key+"="))
		b.WriteString(val)
	}
}

// renderJSON re-emits the original object. Without field filters the parsed
// JSON text is returned untouched; with filters the object is rebuilt from
// the consumed timestamp/level/message keys plus the surviving fields, with
// keys in sorted order.
func (f *Formatter) renderJSON(rec *parser.Record) string {
	if f.include == nil && f.exclude == nil {
		return rec.RawJSON
	}

	dec := json.NewDecoder(strings.NewReader(rec.RawJSON))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return rec.RawJSON
	}

	consumed := map[string]bool{}
	for _, k := range []string{rec.TimestampKey, rec.LevelKey, rec.MessageKey} {
		if k != "" {
			consumed[k] = true
		}
	}

	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if consumed[k] {
			out[k] = v
			continue
		}
		// Filters name flattened keys, so nested objects are filtered per
		// child under the dot-joined name.
		if nested, ok := v.(map[string]any); ok {
			kept := make(map[string]any, len(nested))
			for ck, cv := range nested {
				if f.fieldVisible(k + "." + ck) {
					kept[ck] = cv
				}
			}
			if len(kept) > 0 {
				out[k] = kept
			}
			continue
		}
		if f.fieldVisible(k) {
			out[k] = v
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return rec.RawJSON
	}
	return string(data)
}

func (f *Formatter) fieldVisible(key string) bool {
	if f.include != nil {
		_, ok := f.include[key]
		return ok
	}
	if f.exclude != nil {
		_, ok := f.exclude[key]
		return !ok
	}
	return true
}

// SourceTag renders the faint source label prepended when tailing more than
// one file.
func (f *Formatter) SourceTag(name string) string {
	return f.style(f.keyStyle, name+" |")
}

func (f *Formatter) style(st lipgloss.Style, s string) string {
	if !f.color {
		return s
	}
	return st.Render(s)
}

// Truncate cuts s to max characters (runes, not bytes) and appends a single
// ellipsis marker. max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// namedColor maps a config color name to its ANSI palette index.
func namedColor(name string) lipgloss.Color {
	switch strings.ToLower(name) {
	case "black":
		return lipgloss.Color("0")
	case "red":
		return lipgloss.Color("1")
	case "green":
		return lipgloss.Color("2")
	case "yellow":
		return lipgloss.Color("3")
	case "blue":
		return lipgloss.Color("4")
	case "magenta", "purple":
		return lipgloss.Color("5")
	case "cyan":
		return lipgloss.Color("6")
	case "white":
		return lipgloss.Color("7")
	case "bright_black":
		return lipgloss.Color("8")
	case "bright_red":
		return lipgloss.Color("9")
	case "bright_green":
		return lipgloss.Color("10")
	case "bright_yellow":
		return lipgloss.Color("11")
	case "bright_blue":
		return lipgloss.Color("12")
	case "bright_magenta":
		return lipgloss.Color("13")
	case "bright_cyan":
		return lipgloss.Color("14")
	case "bright_white":
		return lipgloss.Color("15")
	default:
		return lipgloss.Color("7")
	}
}
