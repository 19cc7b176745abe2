package format

import (
	"strings"
	"testing"

	"github.com/alexsavio/cor-cli/internal/config"
	"github.com/alexsavio/cor-cli/internal/level"
)

func plain(cfg *config.Config) *Formatter {
	return New(cfg, false)
}

func TestHumanFullRecord(t *testing.T) {
	f := plain(config.Default())
	out, ok := f.FormatLine(`{"ts":"2026-01-15T10:30:00.123Z","level":"info","msg":"server started","port":8080,"host":"0.0.0.0"}`)
	if !ok {
		t.Fatal("line should not be suppressed")
	}
	want := "10:30:00.123  INFO: server started  host=0.0.0.0 port=8080"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestHumanRawPassthrough(t *testing.T) {
	cfg := config.Default()
	cfg.MinLevel = level.Error
	f := plain(cfg)

	// Raw text is passed through byte-for-byte, level filter or not.
	out, ok := f.FormatLine("hello world")
	if !ok || out != "hello world" {
		t.Errorf("expected verbatim passthrough, got %q (ok=%v)", out, ok)
	}
}

func TestHumanEmbeddedPrefix(t *testing.T) {
	f := plain(config.Default())
	out, ok := f.FormatLine(`api-1 | {"level":"info","msg":"up"}`)
	if !ok {
		t.Fatal("line should not be suppressed")
	}
	if out != " INFO: api-1 | up" {
		t.Errorf("got %q", out)
	}
}

func TestHumanUnknownLevelBlankBadge(t *testing.T) {
	f := plain(config.Default())
	out, ok := f.FormatLine(`{"msg":"hello","port":1}`)
	if !ok {
		t.Fatal("unknown level must never be suppressed")
	}
	want := level.BlankBadge + "  hello  port=1"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	// Badge columns line up between known and unknown levels.
	known, _ := f.FormatLine(`{"level":"info","msg":"hello","port":1}`)
	idxBlank := strings.Index(out, "hello")
	idxKnown := strings.Index(known, "hello")
	if idxBlank != idxKnown {
		t.Errorf("message columns misaligned: %d vs %d\n%q\n%q", idxBlank, idxKnown, out, known)
	}
}

func TestHumanLevelFilterSuppresses(t *testing.T) {
	cfg := config.Default()
	cfg.MinLevel = level.Info
	f := plain(cfg)

	// A prefixed line with a known below-threshold level is still suppressed.
	if _, ok := f.FormatLine(`2026-02-06 00:15:13.449 {"level":"debug","msg":"health check"}`); ok {
		t.Error("debug line should be suppressed at min level info")
	}
	if _, ok := f.FormatLine(`{"level":"info","msg":"kept"}`); !ok {
		t.Error("info line should survive at min level info")
	}
	if _, ok := f.FormatLine(`{"msg":"no level"}`); !ok {
		t.Error("unknown level should survive any threshold")
	}
}

func TestHumanFlattenedFields(t *testing.T) {
	f := plain(config.Default())
	out, _ := f.FormatLine(`{"level":"info","msg":"m","http":{"method":"GET","status":200}}`)
	if !strings.Contains(out, "http.method=GET http.status=200") {
		t.Errorf("flattened fields missing or misordered: %q", out)
	}
}

func TestHumanTruncation(t *testing.T) {
	cfg := config.Default()
	cfg.MaxFieldLength = 10
	f := plain(cfg)

	out, _ := f.FormatLine(`{"msg":"m","val":"` + strings.Repeat("a", 200) + `"}`)
	want := "val=" + strings.Repeat("a", 10) + "…"
	if !strings.Contains(out, want) {
		t.Errorf("expected %q in %q", want, out)
	}
	if strings.Contains(out, strings.Repeat("a", 11)) {
		t.Errorf("value not truncated: %q", out)
	}
}

func TestTruncateCountsCharacters(t *testing.T) {
	if got := Truncate("ααααα", 3); got != "ααα…" {
		t.Errorf("truncation must count runes, got %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("short values are untouched, got %q", got)
	}
	if got := Truncate(strings.Repeat("x", 50), 0); len(got) != 50 {
		t.Errorf("0 disables truncation, got %d chars", len(got))
	}
}

func TestHumanIncludeFields(t *testing.T) {
	cfg := config.Default()
	cfg.IncludeFields = []string{"port"}
	f := plain(cfg)

	out, _ := f.FormatLine(`{"level":"info","msg":"m","port":8080,"host":"x"}`)
	if !strings.Contains(out, "port=8080") {
		t.Errorf("included field missing: %q", out)
	}
	if strings.Contains(out, "host=") {
		t.Errorf("non-included field should be hidden: %q", out)
	}
}

func TestHumanExcludeFields(t *testing.T) {
	cfg := config.Default()
	cfg.ExcludeFields = []string{"host"}
	f := plain(cfg)

	out, _ := f.FormatLine(`{"level":"info","msg":"m","port":8080,"host":"x"}`)
	if strings.Contains(out, "host=") {
		t.Errorf("excluded field should be hidden: %q", out)
	}
	if !strings.Contains(out, "port=8080") {
		t.Errorf("other fields must survive exclusion: %q", out)
	}
}

func TestHumanExpandFields(t *testing.T) {
	cfg := config.Default()
	cfg.ExpandFields = true
	cfg.KeyMinWidth = 10
	f := plain(cfg)

	out, _ := f.FormatLine(`{"level":"info","msg":"m","alpha":1,"beta":"two"}`)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected one line per field, got %d: %q", len(lines), out)
	}
	if lines[1] != "     alpha: 1" {
		t.Errorf("keys should be right-justified to width 10, got %q", lines[1])
	}
	if lines[2] != "      beta: two" {
		t.Errorf("got %q", lines[2])
	}
}

func TestJSONPassthroughUnmodified(t *testing.T) {
	cfg := config.Default()
	cfg.JSONOutput = true
	f := plain(cfg)

	in := `{"level":"info","msg":"m","z":1,"a":2}`
	out, ok := f.FormatLine(in)
	if !ok || out != in {
		t.Errorf("without filters the original text passes through, got %q", out)
	}
}

func TestJSONPassthroughSuppressesRaw(t *testing.T) {
	cfg := config.Default()
	cfg.JSONOutput = true
	f := plain(cfg)

	if _, ok := f.FormatLine("plain text line"); ok {
		t.Error("raw lines are dropped in passthrough mode")
	}
	if _, ok := f.FormatLine(""); ok {
		t.Error("empty lines are dropped in passthrough mode")
	}
}

func TestJSONPassthroughLevelFilter(t *testing.T) {
	cfg := config.Default()
	cfg.JSONOutput = true
	cfg.MinLevel = level.Info
	f := plain(cfg)

	if _, ok := f.FormatLine(`{"level":"debug","msg":"m"}`); ok {
		t.Error("below-threshold lines are dropped in passthrough mode too")
	}
}

func TestJSONPassthroughFieldRestriction(t *testing.T) {
	cfg := config.Default()
	cfg.JSONOutput = true
	cfg.IncludeFields = []string{"a"}
	f := plain(cfg)

	out, ok := f.FormatLine(`{"level":"info","msg":"m","a":1,"b":2}`)
	if !ok {
		t.Fatal("line should not be suppressed")
	}
	// Consumed keys always survive; other fields obey the filter; keys are
	// re-emitted sorted.
	if out != `{"a":1,"level":"info","msg":"m"}` {
		t.Errorf("got %q", out)
	}
}

func TestJSONPassthroughNestedFieldRestriction(t *testing.T) {
	cfg := config.Default()
	cfg.JSONOutput = true
	cfg.ExcludeFields = []string{"http.status"}
	f := plain(cfg)

	out, _ := f.FormatLine(`{"msg":"m","http":{"method":"GET","status":200}}`)
	if out != `{"http":{"method":"GET"},"msg":"m"}` {
		t.Errorf("got %q", out)
	}
}

func TestJSONPassthroughEmbeddedDropsPrefix(t *testing.T) {
	cfg := config.Default()
	cfg.JSONOutput = true
	f := plain(cfg)

	out, ok := f.FormatLine(`worker-3 ready {"level":"info","msg":"m"}`)
	if !ok {
		t.Fatal("embedded JSON should not be suppressed")
	}
	if out != `{"level":"info","msg":"m"}` {
		t.Errorf("prefix text must not leak into passthrough output: %q", out)
	}
}

func TestVerboseAnnotatesParseErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Verbose = true
	f := plain(cfg)

	out, ok := f.FormatLine(`{"broken":}`)
	if !ok {
		t.Fatal("malformed lines still pass through")
	}
	if !strings.HasPrefix(out, `{"broken":}`) || !strings.Contains(out, "[json error:") {
		t.Errorf("expected the original text plus an error note, got %q", out)
	}

	// Without verbose the note is absent.
	f = plain(config.Default())
	out, _ = f.FormatLine(`{"broken":}`)
	if out != `{"broken":}` {
		t.Errorf("got %q", out)
	}
}

func TestMissingPartsAreOmitted(t *testing.T) {
	f := plain(config.Default())

	// Level only: no timestamp, no message, no fields.
	out, _ := f.FormatLine(`{"level":"warn"}`)
	if out != " WARN:" {
		t.Errorf("got %q", out)
	}

	// Message mapped from null renders as nothing after the badge.
	out, _ = f.FormatLine(`{"level":"warn","msg":null}`)
	if out != " WARN:" {
		t.Errorf("null message should render empty, got %q", out)
	}
}

func TestDeterministicOutput(t *testing.T) {
	f := plain(config.Default())
	in := `{"level":"info","msg":"m","z":1,"a":2,"nested":{"y":1,"b":2}}`

	first, _ := f.FormatLine(in)
	for i := 0; i < 10; i++ {
		if out, _ := f.FormatLine(in); out != first {
			t.Fatalf("output not deterministic: %q vs %q", out, first)
		}
	}
	if !strings.Contains(first, "a=2 nested.b=2 nested.y=1 z=1") {
		t.Errorf("fields not in sorted order: %q", first)
	}
}

func TestColorOutputCarriesANSI(t *testing.T) {
	f := New(config.Default(), true)
	out, _ := f.FormatLine(`{"level":"error","msg":"boom"}`)
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("forced color output should carry ANSI sequences: %q", out)
	}

	// A plain formatter built afterwards stays plain.
	out, _ = plain(config.Default()).FormatLine(`{"level":"error","msg":"boom"}`)
	if strings.Contains(out, "\x1b[") {
		t.Errorf("no-color output must be free of ANSI sequences: %q", out)
	}
}
