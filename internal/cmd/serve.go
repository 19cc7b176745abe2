package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alexsavio/cor-cli/internal/format"
	"github.com/alexsavio/cor-cli/internal/hub"
	"github.com/alexsavio/cor-cli/internal/model"
	"github.com/alexsavio/cor-cli/internal/server"
	"github.com/alexsavio/cor-cli/internal/stats"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Prettify stdin and serve a live web dashboard",
	Long: `Run the stdin pipeline as usual while broadcasting every classified line
to a live dashboard. Connect a browser to watch the stream, poll /api/stats
for rates and level counts, or hit /debug/pprof for profiling.

Example:
  kubectl logs -f my-pod | cor serve --port 9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "8080", "dashboard listen port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	input := make(chan model.RawLine, 512)
	h := hub.New(input, cfg)
	collector := stats.New(h.Subscribe(), h.Dropped, func() int { return 1 })
	srv := server.New(h, collector, servePort)

	go h.Start(ctx)
	go collector.Start(ctx)
	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("server: %v", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "cor: dashboard on http://localhost:%s\n", servePort)

	f := format.New(cfg, resolveColor(cfg.ColorMode, os.Stdout))
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	p := newPrinter(os.Stdout, cfg.LineGap)

	for scanner.Scan() {
		line := scanner.Text()

		select {
		case input <- model.RawLine{Text: line, Source: "stdin"}:
		case <-ctx.Done():
			close(input)
			return nil
		}

		text, ok := f.FormatLine(line)
		if !ok {
			continue
		}
		cont, err := p.print(text)
		if err != nil {
			close(input)
			return err
		}
		if !cont {
			close(input)
			return nil
		}
	}
	close(input)

	if err := scanner.Err(); err != nil {
		return &IOError{Err: err}
	}
	return nil
}
