package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/callguard/internal/cli"
	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/monitor"
	"github.com/Veraticus/callguard/internal/source"
)

func uploadCmd() *cobra.Command {
	var (
		transcriptFile string
		duration       time.Duration
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "upload [audio-file]",
		Short: "Analyze a recorded call",
		Long: `Analyze a recorded call once and save it to history.

A transcript file is classified by the remote model when one is configured.
Audio without a transcript gets a simulated assessment.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var up monitor.Upload
			if len(args) == 1 {
				audio, err := os.ReadFile(args[0])
				if err != nil {
					return common.NewUserError("Failed to read audio file", err)
				}
				up.Audio = audio
			}
			if transcriptFile != "" {
				text, err := os.ReadFile(transcriptFile)
				if err != nil {
					return common.NewUserError("Failed to read transcript file", err)
				}
				up.Transcript = string(text)
			}
			up.Duration = duration

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			locale := a.locale(localeFlag(cmd))
			up.Locale = locale

			ctrl, err := a.newController(source.KindSimulated, locale, nil)
			if err != nil {
				return err
			}

			spinner := cli.StartSpinner(cmd.ErrOrStderr(), "Analyzing call...")
			result, record, err := ctrl.AnalyzeOnce(ctx, up)
			spinner.Stop()
			if errors.Is(err, common.ErrInvalidInput) {
				return common.NewUserError("Upload needs an audio file or --transcript-file", err)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]any{"result": result, "record": record})
			}
			renderer := cli.NewRenderer(a.guidance, locale)
			_, err = fmt.Fprintln(out, renderer.Result(result)+"\n"+renderer.Record(record))
			return err
		},
	}

	cmd.Flags().StringVarP(&transcriptFile, "transcript-file", "t", "", "transcript of the recording")
	cmd.Flags().DurationVar(&duration, "duration", 0, "call duration (default from monitor.upload_duration)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}
