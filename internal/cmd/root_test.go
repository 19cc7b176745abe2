package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alexsavio/cor-cli/internal/config"
	"github.com/alexsavio/cor-cli/internal/format"
	"github.com/alexsavio/cor-cli/internal/level"
)

func TestRunPipelineMixedInput(t *testing.T) {
	cfg := config.Default()
	f := format.New(cfg, false)

	in := strings.NewReader(
		`{"level":"info","msg":"started","port":8080}` + "\n" +
			"plain text line\n" +
			`api | {"level":"error","msg":"boom"}` + "\n")
	var out bytes.Buffer

	if err := runPipeline(f, cfg, in, &out); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 output lines, got %d: %q", len(lines), out.String())
	}
	if lines[0] != " INFO: started  port=8080" {
		t.Errorf("got %q", lines[0])
	}
	if lines[1] != "plain text line" {
		t.Errorf("raw line must pass through verbatim, got %q", lines[1])
	}
	if lines[2] != "ERROR: api | boom" {
		t.Errorf("got %q", lines[2])
	}
}

func TestRunPipelineLevelFilter(t *testing.T) {
	cfg := config.Default()
	cfg.MinLevel = level.Warn
	f := format.New(cfg, false)

	in := strings.NewReader(
		`{"level":"debug","msg":"hidden"}` + "\n" +
			`{"level":"error","msg":"shown"}` + "\n")
	var out bytes.Buffer

	if err := runPipeline(f, cfg, in, &out); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "hidden") {
		t.Errorf("below-threshold line leaked: %q", out.String())
	}
	if !strings.Contains(out.String(), "shown") {
		t.Errorf("above-threshold line missing: %q", out.String())
	}
}

func TestRunPipelineLineGap(t *testing.T) {
	cfg := config.Default()
	cfg.LineGap = 2
	f := format.New(cfg, false)

	in := strings.NewReader("one\ntwo\nthree\n")
	var out bytes.Buffer

	if err := runPipeline(f, cfg, in, &out); err != nil {
		t.Fatal(err)
	}
	// Gaps go between entries, not before the first or after the last.
	want := "one\n\n\ntwo\n\n\nthree\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestRunPipelineJSONMode(t *testing.T) {
	cfg := config.Default()
	cfg.JSONOutput = true
	f := format.New(cfg, false)

	in := strings.NewReader(
		"noise before\n" +
			`{"level":"info","msg":"kept"}` + "\n" +
			"noise after\n")
	var out bytes.Buffer

	if err := runPipeline(f, cfg, in, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != `{"level":"info","msg":"kept"}`+"\n" {
		t.Errorf("passthrough mode should emit only the JSON line, got %q", out.String())
	}
}

func TestRunPipelineLongLines(t *testing.T) {
	cfg := config.Default()
	cfg.MaxFieldLength = 0
	f := format.New(cfg, false)

	// Larger than the default bufio.Scanner token size.
	big := strings.Repeat("x", 256*1024)
	in := strings.NewReader(`{"msg":"m","blob":"` + big + `"}` + "\n")
	var out bytes.Buffer

	if err := runPipeline(f, cfg, in, &out); err != nil {
		t.Fatalf("long lines should not error: %v", err)
	}
	if !strings.Contains(out.String(), big) {
		t.Error("long value lost")
	}
}

func TestRunPipelineEmptyInput(t *testing.T) {
	cfg := config.Default()
	f := format.New(cfg, false)
	var out bytes.Buffer

	if err := runPipeline(f, cfg, strings.NewReader(""), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("empty input should produce no output, got %q", out.String())
	}
}

func TestResolveColorModes(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("FORCE_COLOR", "")

	if !resolveColor(config.ColorAlways, nil) {
		t.Error("always should force color on")
	}
	if resolveColor(config.ColorNever, nil) {
		t.Error("never should force color off")
	}
}

func TestResolveColorAutoEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("FORCE_COLOR", "1")
	if resolveColor(config.ColorAuto, nil) {
		t.Error("NO_COLOR outranks FORCE_COLOR")
	}

	t.Setenv("NO_COLOR", "")
	if !resolveColor(config.ColorAuto, nil) {
		t.Error("FORCE_COLOR should enable color without a TTY")
	}

	t.Setenv("FORCE_COLOR", "")
	t.Setenv("TERM", "dumb")
	if resolveColor(config.ColorAuto, nil) {
		t.Error("TERM=dumb should disable color")
	}
}
