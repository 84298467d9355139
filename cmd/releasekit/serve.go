package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/releasekit/internal/api"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the planning API over HTTP",
	Long: `Start the JSON API (version comparison, branch planning, release notes
and release history) on server.host:server.port. SIGINT or SIGTERM drains
in-flight requests before exiting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		planner, err := rt.planner()
		if err != nil {
			return err
		}
		store, closeStore, err := rt.openReleases(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		settings := api.SettingsFromConfig(rt.cfg)
		if serveHost != "" {
			settings.Host = serveHost
		}
		if servePort != 0 {
			settings.Port = servePort
		}
		srv := api.NewServer(settings, planner,
			api.WithLogger(rt.logger),
			api.WithReleases(store),
			api.WithTagPrefix(rt.cfg.TagPrefix()),
		)
		if err := srv.Start(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", srv.BaseURL())

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		rt.logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			rt.logger.Warn("server forced to shutdown", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
