// Package cmd defines the CLI: the root stdin pipeline plus the tail and
// serve subcommands.
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexsavio/cor-cli/internal/config"
	"github.com/alexsavio/cor-cli/internal/format"
	"github.com/alexsavio/cor-cli/internal/level"
)

var (
	cfgFile        string
	colorFlag      string
	levelFlag      string
	messageKey     string
	levelKey       string
	timestampKey   string
	includeFields  []string
	excludeFields  []string
	jsonOutput     bool
	maxFieldLength int
	lineGap        int
	expandFields   bool
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "cor",
	Short: "cor — colorize and normalize JSON log streams",
	Long: `cor reads log lines from stdin and prettifies the ones it can interpret.
JSON objects, plain text, and text with a trailing JSON object all work:
recognized records get a normalized timestamp, a colorized level badge, the
message, and the remaining fields flattened one level and sorted. Everything
else passes through untouched.

Examples:
  kubectl logs -f my-pod | cor
  cor --level warn < app.log
  docker logs app 2>&1 | cor --json --include-fields request_id,latency_ms`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd)
		if err != nil {
			return err
		}
		f := format.New(cfg, resolveColor(cfg.ColorMode, os.Stdout))
		return runPipeline(f, cfg, os.Stdin, os.Stdout)
	},
}

// IOError marks stream read/write failures; they exit with a distinct code
// from configuration errors.
type IOError struct{ Err error }

func (e *IOError) Error() string { return e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

// Execute runs the CLI. Configuration errors exit 1, I/O errors exit 2.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cor: "+err.Error())
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.config/cor/config.toml)")
	pf.StringVar(&colorFlag, "color", "auto", "colorize output: auto, always, never")
	pf.StringVarP(&levelFlag, "level", "l", "", "hide structured lines below this severity")
	pf.StringVar(&messageKey, "message-key", "", "exact message field name, bypassing auto-detection")
	pf.StringVar(&levelKey, "level-key", "", "exact level field name, bypassing auto-detection")
	pf.StringVar(&timestampKey, "timestamp-key", "", "exact timestamp field name, bypassing auto-detection")
	pf.StringSliceVarP(&includeFields, "include-fields", "i", nil, "show only these fields")
	pf.StringSliceVarP(&excludeFields, "exclude-fields", "x", nil, "hide these fields")
	pf.BoolVarP(&jsonOutput, "json", "j", false, "re-emit structured lines as JSON and drop the rest")
	pf.IntVar(&maxFieldLength, "max-field-length", 120, "truncate field values to N characters (0 = unlimited)")
	pf.IntVar(&lineGap, "line-gap", 0, "blank lines between rendered entries")
	pf.BoolVarP(&expandFields, "expand", "e", false, "render each field on its own line")
	pf.BoolVarP(&verbose, "verbose", "v", false, "annotate lines that failed JSON parsing")

	rootCmd.MarkFlagsMutuallyExclusive("include-fields", "exclude-fields")
}

// buildConfig merges defaults, the config file, and any flags the user set,
// in that precedence order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if err := cfg.LoadFile(path); err != nil {
		return nil, err
	}

	fl := cmd.Flags()
	if fl.Changed("color") {
		switch strings.ToLower(colorFlag) {
		case "auto":
			cfg.ColorMode = config.ColorAuto
		case "always":
			cfg.ColorMode = config.ColorAlways
		case "never":
			cfg.ColorMode = config.ColorNever
		default:
			return nil, fmt.Errorf("invalid --color value %q (want auto, always, or never)", colorFlag)
		}
	}
	if fl.Changed("level") {
		l := level.FromString(levelFlag)
		if !l.Known() {
			return nil, fmt.Errorf("unrecognized level %q", levelFlag)
		}
		cfg.MinLevel = l
	}
	if fl.Changed("message-key") {
		cfg.MessageKey = messageKey
	}
	if fl.Changed("level-key") {
		cfg.LevelKey = levelKey
	}
	if fl.Changed("timestamp-key") {
		cfg.TimestampKey = timestampKey
	}
	if fl.Changed("include-fields") {
		cfg.IncludeFields = includeFields
		cfg.ExcludeFields = nil
	}
	if fl.Changed("exclude-fields") {
		cfg.ExcludeFields = excludeFields
		cfg.IncludeFields = nil
	}
	if fl.Changed("json") {
		cfg.JSONOutput = jsonOutput
	}
	if fl.Changed("max-field-length") {
		cfg.MaxFieldLength = maxFieldLength
	}
	if fl.Changed("line-gap") {
		cfg.LineGap = lineGap
	}
	if fl.Changed("expand") {
		cfg.ExpandFields = expandFields
	}
	if fl.Changed("verbose") {
		cfg.Verbose = verbose
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveColor turns the configured mode into a concrete on/off decision.
// Auto means: NO_COLOR wins, then FORCE_COLOR, then TERM=dumb, then whether
// the output is a terminal.
func resolveColor(mode config.ColorMode, out *os.File) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(out.Fd()))
}

// printer writes rendered entries, inserting the configured gap between
// them and flushing per line so downstream consumers see output as it
// arrives.
type printer struct {
	w       *bufio.Writer
	gap     int
	printed bool
}

func newPrinter(w io.Writer, gap int) *printer {
	return &printer{w: bufio.NewWriter(w), gap: gap}
}

// print emits one entry. The first return is false when the downstream pipe
// closed (head exited, pager quit) and the run should end cleanly.
func (p *printer) print(text string) (bool, error) {
	if p.printed {
		for i := 0; i < p.gap; i++ {
			if _, err := p.w.WriteString("\n"); err != nil {
				return p.fail(err)
			}
		}
	}
	if _, err := p.w.WriteString(text); err != nil {
		return p.fail(err)
	}
	if _, err := p.w.WriteString("\n"); err != nil {
		return p.fail(err)
	}
	if err := p.w.Flush(); err != nil {
		return p.fail(err)
	}
	p.printed = true
	return true, nil
}

func (p *printer) fail(err error) (bool, error) {
	if errors.Is(err, syscall.EPIPE) {
		return false, nil
	}
	return false, &IOError{Err: err}
}

// runPipeline is the core stdin→stdout loop: one line in, zero or one
// rendered lines out, fully processed before the next read.
func runPipeline(f *format.Formatter, cfg *config.Config, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	p := newPrinter(out, cfg.LineGap)

	for scanner.Scan() {
		text, ok := f.FormatLine(scanner.Text())
		if !ok {
			continue
		}
		cont, err := p.print(text)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return &IOError{Err: err}
	}
	return nil
}
