package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/callguard/internal/cli"
	"github.com/Veraticus/callguard/internal/model"
	"github.com/Veraticus/callguard/internal/monitor"
	"github.com/Veraticus/callguard/internal/source"
	"github.com/Veraticus/callguard/internal/tui"
)

func monitorCmd() *cobra.Command {
	var (
		plain      bool
		sourceKind string
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Monitor a live call",
		Long: `Monitor a live call and re-assess its scam risk every few seconds.

With --source remote, each line typed on stdin is added to the call transcript
and the transcript is classified by the remote model. Press q or Ctrl+C to end
the call; it is then saved to history.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if sourceKind == "" {
				sourceKind = a.settings.Monitor.Source
			}
			locale := a.locale(localeFlag(cmd))

			var feed *source.StaticFeed
			if sourceKind == source.KindRemote && a.classifier != nil {
				feed = source.NewStaticFeed()
			}

			ctrl, err := a.newController(sourceKind, locale, feed)
			if err != nil {
				return err
			}

			renderer := cli.NewRenderer(a.guidance, locale)
			out := cmd.OutOrStdout()

			// stdin carries the transcript for remote monitoring, so the
			// interactive view is only used for simulated calls.
			if !plain && feed == nil && isTerminal(cmd.InOrStdin(), out) {
				record, err := tui.Run(ctx, tui.RunConfig{
					Monitor:  ctrl,
					Guidance: a.guidance,
					Locale:   locale,
				})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, renderer.Record(record))
				return err
			}

			return runPlainMonitor(ctx, ctrl, feed, cmd.InOrStdin(), out, renderer)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print results as text instead of the interactive view")
	cmd.Flags().StringVar(&sourceKind, "source", "", "live signal source (simulated, remote)")

	return cmd
}

func runPlainMonitor(ctx context.Context, ctrl *monitor.Controller, feed *source.StaticFeed, in io.Reader, out io.Writer, renderer *cli.Renderer) error {
	handler := cli.NewInterruptHandler(out, "Ending call and saving it to history")
	ctx = handler.HandleInterrupts(ctx)

	if feed != nil {
		fmt.Fprintln(out, cli.FormatInfo("Type what the caller says, one line at a time."))
		go func() {
			if err := cli.NewTranscriptReader(in).Pump(ctx, feed); err != nil {
				slog.Warn("transcript input failed", "error", err)
			}
		}()
	}

	results, unsubscribe := ctrl.Subscribe(8)
	defer unsubscribe()

	first, err := ctrl.Start(ctx)
	if err != nil {
		return err
	}
	printResult(out, renderer, first)

	last := first.Timestamp
	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case result := <-results:
			if result.Timestamp.Equal(last) {
				continue
			}
			last = result.Timestamp
			printResult(out, renderer, result)
		}
	}

	record, err := ctrl.Stop(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, renderer.Record(record))
	return err
}

func printResult(out io.Writer, renderer *cli.Renderer, result model.AnalysisResult) {
	if _, err := fmt.Fprintln(out, renderer.Result(result)); err != nil {
		slog.Debug("failed to print result", "error", err)
	}
}
