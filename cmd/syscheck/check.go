package main

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"syscheck/internal/camera"
	"syscheck/internal/config"
	"syscheck/internal/status"
	"syscheck/internal/system"
)

func newCheckCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run every prerequisite check once and print the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rootConfigPath)
			if err != nil {
				return pkgerrors.Wrap(err, "load config")
			}
			return runCheck(cmd.Context(), cfg, timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the checks to settle")
	return cmd
}

func runCheck(ctx context.Context, cfg config.Config, timeout time.Duration) error {
	agg, cam := buildChecks(cfg)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, check := range agg.Checks() {
		toggleable, ok := check.(system.Toggleable)
		if !ok {
			continue
		}
		if err := toggleable.Enable(ctx); err != nil {
			log.Warn().Err(err).Str("check", check.Name()).Msg("enable failed")
		}
		defer toggleable.Disable()
	}

	waitForSettled(ctx, agg, cam)

	for _, row := range agg.Snapshot().Checks {
		fmt.Printf("%s  %-12s %s\n", row.Icon, row.Name, row.State)
	}
	if !agg.Satisfied() {
		return pkgerrors.New("not all prerequisites are satisfied")
	}
	return nil
}

// waitForSettled polls until every check left the pending phase or the
// context expires. The camera needs a capture to count as satisfied, so one
// is taken as soon as its stream is live.
func waitForSettled(ctx context.Context, agg *system.Aggregator, cam *camera.Check) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	captured := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !captured && cam.Snapshot().Status == camera.StatusDeviceStarted {
			if err := cam.Capture(ctx); err != nil {
				log.Warn().Err(err).Msg("capture failed")
			}
			captured = true
		}

		settled := true
		for _, row := range agg.Snapshot().Checks {
			if row.State == status.Pending || row.State == status.UserInteractionRequired {
				settled = false
				break
			}
		}
		if settled {
			return
		}
	}
}
