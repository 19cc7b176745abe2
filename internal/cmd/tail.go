package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alexsavio/cor-cli/internal/format"
	"github.com/alexsavio/cor-cli/internal/tailer"
	"github.com/alexsavio/cor-cli/internal/watcher"
)

var checkpointPath string

var tailCmd = &cobra.Command{
	Use:   "tail [patterns...]",
	Short: "Follow files and prettify appended lines",
	Long: `Follow one or more files (or glob patterns) and run every appended line
through the same pipeline as stdin mode. Read offsets are checkpointed so a
restarted tail resumes where it stopped, and rotated files are reopened.

Examples:
  cor tail /var/log/app.log
  cor tail "/var/log/**/*.log" --level warn
  cor tail api.log worker.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringVar(&checkpointPath, "checkpoint", ".cor-state.json", "offset state file for resuming")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(args)
	if err != nil {
		return &IOError{Err: err}
	}
	paths := w.Paths()
	if len(paths) == 0 {
		return fmt.Errorf("no files matched: %v", args)
	}
	fmt.Fprintf(os.Stderr, "cor: tailing %d file(s)\n", len(paths))

	ckpt, err := tailer.NewCheckpoint(checkpointPath)
	if err != nil {
		return &IOError{Err: err}
	}
	t := tailer.New(w, ckpt)

	f := format.New(cfg, resolveColor(cfg.ColorMode, os.Stdout))
	multi := len(paths) > 1

	go w.Start(ctx)
	go t.Start(ctx)

	p := newPrinter(os.Stdout, cfg.LineGap)
	for raw := range t.Lines() {
		text, ok := f.FormatLine(raw.Text)
		if !ok {
			continue
		}
		if multi {
			text = f.SourceTag(filepath.Base(raw.Source)) + " " + text
		}
		cont, err := p.print(text)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}
