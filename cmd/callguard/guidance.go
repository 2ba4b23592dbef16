package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/callguard/internal/cli"
	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/config"
	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/model"
)

// loadGuidance reads only the settings the read-only commands need.
func loadGuidance() (*guidance.Generator, config.Settings, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, settings, common.NewUserError("Invalid configuration", err)
	}
	gen, err := guidance.New(guidance.WithOverlayFile(settings.Guidance))
	if err != nil {
		return nil, settings, common.NewUserError("Failed to load guidance bundle", err)
	}
	return gen, settings, nil
}

func guidanceCmd() *cobra.Command {
	levels := make([]string, 0, 3)
	for _, l := range model.RiskLevels() {
		levels = append(levels, string(l))
	}

	return &cobra.Command{
		Use:       "guidance <level>",
		Short:     "Print what to do for a risk level",
		Args:      cobra.ExactArgs(1),
		ValidArgs: levels,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := model.ParseRiskLevel(args[0])
			if err != nil {
				return common.NewUserError("Risk level must be one of "+strings.Join(levels, ", "), err)
			}

			gen, settings, err := loadGuidance()
			if err != nil {
				return err
			}

			locale := localeFlag(cmd)
			if locale == "" {
				locale = settings.Locale
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.NewRenderer(gen, locale).Guidance(level))
			return err
		},
	}
}

func tipsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tips",
		Short: "Show safety tips and emergency helplines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gen, settings, err := loadGuidance()
			if err != nil {
				return err
			}

			locale := localeFlag(cmd)
			if locale == "" {
				locale = settings.Locale
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.NewRenderer(gen, locale).Tips())
			return err
		},
	}
}
