package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweeney/motorctl/internal/gpio"
)

func runPrintState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	enc, err := gpio.NewRealEncoder(cfg.GPIOPins())
	if err != nil {
		return fmt.Errorf("init encoder: %w", err)
	}
	defer enc.Close()

	a, b, err := enc.Levels()
	if err != nil {
		return fmt.Errorf("read encoder: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "A: %s, B: %s\n", levelString(a), levelString(b))
	return nil
}

func runPrintConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}
