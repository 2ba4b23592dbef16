package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/callguard/internal/cli"
)

func historyCmd() *cobra.Command {
	var (
		limit    int
		clearAll bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show analyzed calls, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()

			if clearAll {
				n, err := a.store.ClearCallRecords(ctx)
				if err != nil {
					return fmt.Errorf("failed to clear history: %w", err)
				}
				_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Removed %d calls from history", n)))
				return err
			}

			records, err := a.store.ListCallRecords(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			if asJSON {
				return writeJSON(out, records)
			}

			locale := a.locale(localeFlag(cmd))
			title := cli.FormatTitle(a.guidance.Label(locale, "history.title"))
			_, err = fmt.Fprintln(out, title+"\n"+cli.NewRenderer(a.guidance, locale).History(records))
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of calls to show (default: all retained)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete all stored calls")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")

	return cmd
}
