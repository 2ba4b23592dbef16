package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/callguard/internal/cli"
	"github.com/Veraticus/callguard/internal/common"
)

func analyzeCmd() *cobra.Command {
	var (
		file   string
		asJSON bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [transcript...]",
		Short: "Classify a call transcript with the remote model",
		Example: `  callguard analyze "This is the bank, share the OTP we just sent"
  callguard analyze --file call.txt --locale hi`,
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript := strings.Join(args, " ")
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return common.NewUserError("Failed to read transcript file", err)
				}
				transcript = string(data)
			}
			if strings.TrimSpace(transcript) == "" {
				return common.NewUserError("No transcript provided", common.ErrInvalidInput)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			classifier, err := a.requireClassifier()
			if err != nil {
				return err
			}

			locale := a.locale(localeFlag(cmd))
			result, err := classifier.Assess(ctx, transcript, locale)
			switch {
			case err == nil:
			case errors.Is(err, common.ErrInvalidInput):
				return common.NewUserError("No transcript provided", err)
			case strict:
				return common.NewUserError("Remote classification failed", err)
			default:
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning("Remote classification failed ("+common.Reason(err)+"), showing a cautious estimate"))
				result = classifier.Fallback(locale)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.NewRenderer(a.guidance, locale).Result(result))
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the transcript from a file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of falling back when the classifier is unavailable")

	return cmd
}
