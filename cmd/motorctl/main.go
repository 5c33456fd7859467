// Command motorctl regulates the speed of a DC motor from a quadrature
// encoder and publishes telemetry to MQTT.
package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configFile string
	broker     string
	httpAddr   string
	heartbeat  time.Duration
	dryRun     bool

	simDuration time.Duration
	simSetpoint float64
	simHold     time.Duration
	simQuiet    bool
)

func main() {
	// Credentials may live in a .env next to the binary; absence is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:           "motorctl",
		Short:         "closed-loop DC motor speed controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the controller against the motor",
		RunE:  runDaemon,
	}
	runCmd.Flags().StringVar(&broker, "broker", "", "MQTT broker address (overrides config)")
	runCmd.Flags().StringVar(&httpAddr, "http", "", `HTTP status address (overrides config, "off" disables)`)
	runCmd.Flags().DurationVar(&heartbeat, "heartbeat", -1, "heartbeat interval (overrides config, 0 disables)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "drive a simulated motor instead of GPIO")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "run the loop against a simulated motor in virtual time",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().DurationVar(&simDuration, "duration", 12*time.Second, "simulated time")
	simulateCmd.Flags().Float64Var(&simSetpoint, "setpoint", 0, "fixed setpoint, negative runs in reverse (unset keeps the square wave)")
	simulateCmd.Flags().DurationVar(&simHold, "hold", -1, "square wave hold period (overrides config)")
	simulateCmd.Flags().BoolVar(&simQuiet, "quiet", false, "plot only, no diagnostic lines")

	printStateCmd := &cobra.Command{
		Use:   "print-state",
		Short: "print encoder channel levels and exit",
		RunE:  runPrintState,
	}

	printConfigCmd := &cobra.Command{
		Use:   "print-config",
		Short: "print the effective configuration as yaml",
		RunE:  runPrintConfig,
	}

	rootCmd.AddCommand(runCmd, simulateCmd, printStateCmd, printConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
