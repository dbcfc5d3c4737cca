package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"syscheck/internal/backend"
	"syscheck/internal/camera"
	"syscheck/internal/config"
	"syscheck/internal/geo"
	"syscheck/internal/metrics"
	"syscheck/internal/qr"
	"syscheck/internal/server"
	"syscheck/internal/sim"
	"syscheck/internal/system"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the diagnostics dashboard and API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rootConfigPath)
			if err != nil {
				return pkgerrors.Wrap(err, "load config")
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the configured one")
	return cmd
}

// buildChecks wires the four prerequisite checks against the simulated
// device layer and composes them in display order.
func buildChecks(cfg config.Config) (*system.Aggregator, *camera.Check) {
	deviceProvider := sim.DefaultDeviceProvider()
	desired := camera.Resolution{Width: cfg.DesiredWidth, Height: cfg.DesiredHeight}

	cam := camera.NewCheck(deviceProvider, desired, time.Duration(cfg.CameraTimeoutSecs)*time.Second)
	geoCheck := geo.NewCheck(
		sim.DefaultPositionProvider(),
		cfg.Checkpoints,
		time.Duration(cfg.GeoTimeoutSeconds)*time.Second,
	)
	qrCheck := qr.NewCheck(
		sim.OpenFrameSource(deviceProvider),
		&sim.Decoder{Payload: "checkpoint:1", AfterFrames: 4},
		time.Duration(cfg.ScanIntervalMS)*time.Millisecond,
	)
	backendCheck := backend.NewCheck(cfg.BaseURL, nil, time.Duration(cfg.PingTimeoutSeconds)*time.Second)

	agg := system.NewAggregator(cam, geoCheck, qrCheck, backendCheck)
	return agg, cam
}

func runServe(cfg config.Config) error {
	agg, cam := buildChecks(cfg)
	registry := metrics.NewRegistry(agg)
	srv := server.New(cfg.Addr, agg, cam, registry, time.Duration(cfg.PushIntervalSeconds)*time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("addr", cfg.Addr).Int("checks", len(agg.Checks())).Msg("syscheck listening")
	if err := srv.Run(); err != nil && !pkgerrors.Is(err, http.ErrServerClosed) {
		return pkgerrors.Wrap(err, "serve")
	}
	return nil
}
