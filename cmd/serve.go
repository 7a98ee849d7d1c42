package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geoalarm/internal/alarm"
	"github.com/sells-group/geoalarm/internal/api"
	"github.com/sells-group/geoalarm/internal/config"
)

var servePort int

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the geofence engine and its HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initApp(ctx, cfg, "serve", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		if config.WatchSettings(vcfg, func(a config.AlarmConfig) {
			env.Settings.Store(alarm.SettingsFromConfig(a))
		}) {
			zap.L().Info("watching config file for alarm settings", zap.String("file", vcfg.ConfigFileUsed()))
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: api.NewServer(api.Deps{
				Engine:             env.Engine,
				Router:             env.Router,
				Capabilities:       env.Capabilities,
				BackgroundRequired: cfg.Platform.BackgroundRequired(),
				Gatherer:           env.Registry,
				CORSOrigins:        cfg.Server.CORSOrigins,
			}).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return env.Syncer.Run(gctx, env.Store.Subscribe(gctx), env.Capabilities.Subscribe(gctx))
		})
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return eris.Wrap(srv.Shutdown(sctx), "server shutdown")
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
