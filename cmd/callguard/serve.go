package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/callguard/internal/metrics"
	"github.com/Veraticus/callguard/internal/server"
	"github.com/Veraticus/callguard/internal/source"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
				return fmt.Errorf("failed to register metrics: %w", err)
			}
			if a.settings.Logging.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			locale := a.locale(localeFlag(cmd))
			feed := source.NewStaticFeed()
			ctrl, err := a.newController(a.settings.Monitor.Source, locale, feed)
			if err != nil {
				return err
			}

			cfg := server.Config{
				Controller:      ctrl,
				Feed:            feed,
				History:         a.store,
				Guidance:        a.guidance,
				Gatherer:        prometheus.DefaultGatherer,
				Logger:          a.logger,
				Addr:            a.settings.Server.Addr,
				Locale:          locale,
				ShutdownTimeout: a.settings.Server.ShutdownTimeout,
			}
			if a.classifier != nil {
				cfg.Assessor = a.classifier
			} else {
				a.logger.Warn("remote classifier not configured, /v1/analyze is disabled", "reason", a.classifierErr)
			}

			srv, err := server.New(cfg)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
