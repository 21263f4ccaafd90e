package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/rover/internal/pilot"
)

var (
	speed         float64
	coursePercent float64
	radius        float64
)

func addCourseFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&speed, "speed", 15, "speed in distance units per second")
	cmd.Flags().Float64Var(&coursePercent, "course", 0, "percent course, -200..200, positive turns right")
	cmd.Flags().Float64Var(&radius, "radius", 0, "turn radius, positive turns left; overrides --course")
}

// driveFunc starts one kind of closed-loop move on p.
type driveFunc func(ctx context.Context, p *pilot.Pilot, arg float64) error

func courseMove(cmd *cobra.Command, byRadius func(context.Context, *pilot.Pilot, pilot.Course, float64) error, byPercent func(context.Context, *pilot.Pilot, float64, float64) error) driveFunc {
	return func(ctx context.Context, p *pilot.Pilot, arg float64) error {
		if cmd.Flags().Changed("radius") {
			return byRadius(ctx, p, pilot.Radius(radius), arg)
		}
		return byPercent(ctx, p, coursePercent, arg)
	}
}

func newDriveCmd() *cobra.Command {
	driveCmd := &cobra.Command{
		Use:   "drive",
		Short: "run one closed-loop move",
	}

	distanceCmd := &cobra.Command{
		Use:   "distance [units]",
		Short: "drive until the wheels have traveled a distance",
		Args:  cobra.ExactArgs(1),
	}
	distanceCmd.RunE = runDrive(courseMove(distanceCmd,
		func(ctx context.Context, p *pilot.Pilot, c pilot.Course, d float64) error {
			return p.RunDriveToDistance(ctx, c, speed, d)
		},
		func(ctx context.Context, p *pilot.Pilot, course, d float64) error {
			return p.RunPercentDriveToDistance(ctx, course, speed, d)
		}))

	angleCmd := &cobra.Command{
		Use:   "angle [degrees]",
		Short: "drive an arc until the drivetrain has turned an angle",
		Args:  cobra.ExactArgs(1),
	}
	angleCmd.RunE = runDrive(courseMove(angleCmd,
		func(ctx context.Context, p *pilot.Pilot, c pilot.Course, a float64) error {
			return p.RunDriveToAngle(ctx, c, speed, a)
		},
		func(ctx context.Context, p *pilot.Pilot, course, a float64) error {
			return p.RunPercentDriveToAngle(ctx, course, speed, a)
		}))

	timeCmd := &cobra.Command{
		Use:   "time [seconds]",
		Short: "drive for a fixed time",
		Args:  cobra.ExactArgs(1),
	}
	seconds := func(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }
	timeCmd.RunE = runDrive(courseMove(timeCmd,
		func(ctx context.Context, p *pilot.Pilot, c pilot.Course, s float64) error {
			return p.RunDriveTimed(ctx, c, speed, seconds(s))
		},
		func(ctx context.Context, p *pilot.Pilot, course, s float64) error {
			return p.RunPercentDriveTimed(ctx, course, speed, seconds(s))
		}))

	foreverCmd := &cobra.Command{
		Use:   "forever",
		Short: "drive until interrupted",
		Args:  cobra.NoArgs,
	}
	foreverCmd.RunE = runDrive(courseMove(foreverCmd,
		func(ctx context.Context, p *pilot.Pilot, c pilot.Course, _ float64) error {
			return p.RunDriveForever(ctx, c, speed)
		},
		func(ctx context.Context, p *pilot.Pilot, course, _ float64) error {
			return p.RunPercentDriveForever(ctx, course, speed)
		}))

	for _, c := range []*cobra.Command{distanceCmd, angleCmd, timeCmd, foreverCmd} {
		addCourseFlags(c)
		driveCmd.AddCommand(c)
	}
	return driveCmd
}

func runDrive(move driveFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var arg float64
		if len(args) > 0 {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			arg = v
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		r, err := newRig(cfg)
		if err != nil {
			return err
		}
		r.start(ctx)

		fmt.Printf("%s: %s\n", cfg.Name, cmd.CommandPath())
		start := time.Now()
		err = move(ctx, r.pilot, arg)
		if err == nil {
			err = r.pilot.WaitToStop(ctx)
			if ctx.Err() != nil {
				err = nil
			}
		}
		fmt.Printf("completed in %v\n", time.Since(start).Truncate(time.Millisecond))
		return r.finish(cmd.CommandPath(), err)
	}
}

var restoreDistance float64

// newRestoreCmd drives away and comes back to the saved tacho positions.
func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "drive out, then restore the starting wheel positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			r, err := newRig(cfg)
			if err != nil {
				return err
			}
			r.start(ctx)

			saved := r.pilot.Positions()
			err = r.pilot.RunPercentDriveToDistance(ctx, coursePercent, speed, restoreDistance)
			if err == nil {
				err = r.pilot.WaitToStop(ctx)
			}
			if err == nil {
				fmt.Printf("out: %v\n", r.pilot.Positions())
				err = r.pilot.RestorePositions(saved, maxRestoreSpeed(r))
			}
			if err == nil {
				err = r.pilot.WaitToStop(ctx)
			}
			fmt.Printf("back: %v (saved %v)\n", r.pilot.Positions(), saved)
			return r.finish("restore", err)
		},
	}
	addCourseFlags(cmd)
	cmd.Flags().Float64Var(&restoreDistance, "distance", 30, "distance to drive before restoring")
	return cmd
}

func maxRestoreSpeed(r *rig) int {
	limit := 0
	for _, m := range r.motors {
		if s := m.MaxSpeed(); limit == 0 || s < limit {
			limit = s
		}
	}
	return limit / 2
}
