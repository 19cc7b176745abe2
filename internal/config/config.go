// Package config holds the runtime configuration merged from defaults, a
// TOML config file, and CLI flags (highest precedence last).
//
// The Config is read-only once the pipeline starts: every line is processed
// against the same instance, which is what makes per-line processing safe
// to share without synchronization.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/alexsavio/cor-cli/internal/level"
	"github.com/alexsavio/cor-cli/internal/timestamp"
)

// ColorMode controls when ANSI colors are emitted.
type ColorMode int

const (
	// ColorAuto enables colors only when stdout is a TTY and NO_COLOR is unset.
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ErrFieldFilterConflict is returned when both an include set and an exclude
// set are configured; the two modes are mutually exclusive by construction.
var ErrFieldFilterConflict = errors.New("include-fields and exclude-fields are mutually exclusive")

// Config is the merged runtime configuration.
type Config struct {
	// ColorMode controls ANSI color output.
	ColorMode ColorMode
	// MinLevel suppresses structured lines below this severity.
	// Unknown means no filtering.
	MinLevel level.Level
	// MessageKey, LevelKey and TimestampKey override the alias tables with
	// an exact key name when non-empty.
	MessageKey   string
	LevelKey     string
	TimestampKey string
	// IncludeFields keeps only the named flattened fields.
	IncludeFields []string
	// ExcludeFields hides the named flattened fields.
	ExcludeFields []string
	// JSONOutput re-emits structured lines as JSON and suppresses the rest.
	JSONOutput bool
	// MaxFieldLength truncates field values to this many characters.
	// 0 disables truncation.
	MaxFieldLength int
	// TimestampLayout is the Go time layout used for timestamp display.
	TimestampLayout string
	// LevelAliases maps extra lowercase level names to canonical levels,
	// checked before the built-in table.
	LevelAliases map[string]level.Level
	// LevelColors overrides badge colors per level with a named ANSI color.
	LevelColors map[level.Level]string
	// LineGap inserts blank lines between rendered entries. 0 = compact.
	LineGap int
	// KeyMinWidth right-justifies field keys to this width in expanded mode.
	KeyMinWidth int
	// ExpandFields renders each extra field on its own line instead of inline.
	ExpandFields bool
	// Verbose surfaces JSON parse errors for lines that look like JSON.
	Verbose bool
}

// Default returns the built-in defaults, used directly by tests and as the
// base layer of the merge.
func Default() *Config {
	return &Config{
		ColorMode:       ColorAuto,
		MinLevel:        level.Unknown,
		MaxFieldLength:  120,
		TimestampLayout: timestamp.DefaultLayout,
		KeyMinWidth:     25,
	}
}

// Validate rejects configurations the pipeline must never see.
func (c *Config) Validate() error {
	if len(c.IncludeFields) > 0 && len(c.ExcludeFields) > 0 {
		return ErrFieldFilterConflict
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/cor/config.toml, falling back to
// ~/.config/cor/config.toml.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cor", "config.toml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "cor", "config.toml")
	}
	return filepath.Join(".config", "cor", "config.toml")
}

// LoadFile reads a TOML config file into the Config. A missing file is not
// an error; an unreadable or malformed one is.
func (c *Config) LoadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config file error: %w", err)
	}

	c.applyViper(v)
	return nil
}

// applyViper copies the keys present in the file onto the Config, leaving
// everything else at its current value.
func (c *Config) applyViper(v *viper.Viper) {
	if v.IsSet("color") {
		switch strings.ToLower(v.GetString("color")) {
		case "always":
			c.ColorMode = ColorAlways
		case "never":
			c.ColorMode = ColorNever
		default:
			c.ColorMode = ColorAuto
		}
	}
	if v.IsSet("level") {
		c.MinLevel = level.FromString(v.GetString("level"))
	}
	if v.IsSet("timestamp_format") {
		c.TimestampLayout = v.GetString("timestamp_format")
	}
	if v.IsSet("max_field_length") {
		c.MaxFieldLength = v.GetInt("max_field_length")
	}
	if v.IsSet("line_gap") {
		c.LineGap = v.GetInt("line_gap")
	}
	if v.IsSet("key_min_width") {
		c.KeyMinWidth = v.GetInt("key_min_width")
	}
	if v.IsSet("expand_fields") {
		c.ExpandFields = v.GetBool("expand_fields")
	}

	if v.IsSet("keys.message") {
		c.MessageKey = v.GetString("keys.message")
	}
	if v.IsSet("keys.level") {
		c.LevelKey = v.GetString("keys.level")
	}
	if v.IsSet("keys.timestamp") {
		c.TimestampKey = v.GetString("keys.timestamp")
	}

	if v.IsSet("levels") {
		aliases := make(map[string]level.Level)
		for name, target := range v.GetStringMapString("levels") {
			if l := level.FromString(target); l.Known() {
				aliases[strings.ToLower(name)] = l
			}
		}
		if len(aliases) > 0 {
			c.LevelAliases = aliases
		}
	}

	if v.IsSet("colors") {
		colors := make(map[level.Level]string)
		for name, color := range v.GetStringMapString("colors") {
			l := level.FromString(name)
			if !l.Known() {
				continue
			}
			if !IsValidColor(color) {
				continue
			}
			colors[l] = strings.ToLower(color)
		}
		if len(colors) > 0 {
			c.LevelColors = colors
		}
	}
}

// IsValidColor reports whether the name is a recognized ANSI color name.
func IsValidColor(name string) bool {
	switch strings.ToLower(name) {
	case "black", "red", "green", "yellow", "blue", "magenta", "purple",
		"cyan", "white", "bright_black", "bright_red", "bright_green",
		"bright_yellow", "bright_blue", "bright_magenta", "bright_cyan",
		"bright_white":
		return true
	}
	return false
}
