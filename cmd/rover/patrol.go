package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/rover/internal/behaviour"
	"github.com/san-kum/rover/internal/logging"
	"github.com/san-kum/rover/internal/patrol"
	"github.com/san-kum/rover/internal/viz"
)

var (
	patrolDuration  time.Duration
	patrolClearance float64
	patrolSpeed     float64
)

func addPatrolFlags(cmd *cobra.Command, duration time.Duration) {
	d := patrol.DefaultOptions()
	cmd.Flags().DurationVar(&patrolDuration, "time", duration, "how long to patrol, 0 until interrupted")
	cmd.Flags().Float64Var(&patrolClearance, "clearance", d.Clearance, "obstacle distance that triggers a turn")
	cmd.Flags().Float64Var(&patrolSpeed, "speed", d.Speed, "cruise speed in distance units per second")
}

// startPatrol builds the rig and launches the behaviour controller. The
// returned cancel ends the patrol.
func startPatrol(parent context.Context) (*rig, *behaviour.Controller, context.CancelFunc, error) {
	r, err := newRig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if !r.scanner.IsConnected() {
		return nil, nil, nil, errors.New("patrol needs a scanner; enable it in the config")
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if patrolDuration > 0 {
		ctx, cancel = context.WithTimeout(parent, patrolDuration)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	r.start(ctx)

	opts := patrol.DefaultOptions()
	opts.Speed = patrolSpeed
	opts.Clearance = patrolClearance

	ctrl := behaviour.NewController(patrol.New(r.pilot, r.scanner, opts),
		behaviour.WithOnExit(func() { logging.New("rover").Info("patrol ended", "pose", r.odo.Pose()) }),
	)
	r.ctrl = ctrl
	if err := ctrl.Start(ctx); err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return r, ctrl, cancel, nil
}

func newPatrolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patrol",
		Short: "cruise around the arena, turning away from walls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			r, ctrl, cancel, err := startPatrol(ctx)
			if err != nil {
				return err
			}
			defer cancel()

			fmt.Printf("%s: patrolling\n", cfg.Name)
			<-ctrl.Done()
			fmt.Printf("loops: %d\n", ctrl.Loops())
			return r.finish("patrol", nil)
		},
	}
	addPatrolFlags(cmd, 20*time.Second)
	return cmd
}

func newLiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "patrol with a live terminal monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// the monitor owns the terminal
			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return err
			}
			logFile, err := os.Create(filepath.Join(cfg.DataDir, "live.log"))
			if err != nil {
				return err
			}
			defer logFile.Close()
			logging.SetOutput(logFile)

			r, ctrl, stopPatrol, err := startPatrol(ctx)
			if err != nil {
				return err
			}
			defer stopPatrol()

			err = viz.RunMonitor(ctx, r, r.pilot)
			r.setErr(err)
			ctrl.RequestExit()
			stopPatrol()
			waitCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			if werr := ctrl.WaitToExit(waitCtx); werr != nil && err == nil {
				err = werr
			}
			return r.finish("live", err)
		},
	}
	addPatrolFlags(cmd, 0)
	return cmd
}
