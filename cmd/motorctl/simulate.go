package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/sweeney/motorctl/internal/control"
	"github.com/sweeney/motorctl/internal/sim"
)

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cc := simControlConfig(cfg.ControlConfig(), cmd.Flags().Changed("setpoint"), simSetpoint, simHold)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := sim.Run(ctx, cc, plantFor(cc), simDuration)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	return writeSimulation(cmd.OutOrStdout(), res, !simQuiet)
}

// simControlConfig applies the simulate flags. An explicit setpoint, negative
// included, pins the target; otherwise a non-negative hold overrides the
// square wave period.
func simControlConfig(cc control.Config, setpointSet bool, setpoint float64, hold time.Duration) control.Config {
	if setpointSet {
		cc.SetpointHigh = setpoint
		cc.HoldPeriod = 0
	} else if hold >= 0 {
		cc.HoldPeriod = hold
	}
	return cc
}

// writeSimulation prints the diagnostic lines and a plot of speed against
// setpoint.
func writeSimulation(w io.Writer, res *sim.Result, lines bool) error {
	if len(res.Samples) == 0 {
		return fmt.Errorf("simulate: no samples")
	}
	if lines {
		for _, s := range res.Samples {
			fmt.Fprintln(w, control.FormatSample(s))
		}
		fmt.Fprintln(w)
	}

	speed := make([]float64, len(res.Samples))
	setpoint := make([]float64, len(res.Samples))
	for i, s := range res.Samples {
		speed[i] = s.Speed
		setpoint[i] = s.Setpoint
	}

	last := res.Last()
	caption := fmt.Sprintf("speed vs setpoint over %.1fs (final speed=%.2f cmd=%.3f)",
		last.Elapsed.Seconds(), last.Speed, last.Command)
	graph := asciigraph.PlotMany([][]float64{setpoint, speed},
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Default, asciigraph.Green),
		asciigraph.Caption(caption),
	)
	fmt.Fprintln(w, graph)
	return nil
}
