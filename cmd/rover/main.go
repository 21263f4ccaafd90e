package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/san-kum/rover/internal/config"
	"github.com/san-kum/rover/internal/logging"
)

var (
	configFile string
	preset     string
	dataDir    string
	logLevel   string
	record     bool

	cfg *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "rover",
		Short:         "drivetrain motion control on a simulated robot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a preset drivetrain")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&record, "record", true, "store every run in the data directory")

	rootCmd.AddCommand(
		newDriveCmd(),
		newRestoreCmd(),
		newPatrolCmd(),
		newLiveCmd(),
		newListCmd(),
		newPlotCmd(),
		newExportCmd(),
		newPresetsCmd(),
		newConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig layers preset, file and flags, in that order.
func loadConfig(cmd *cobra.Command) error {
	base := config.DefaultConfig()
	if preset != "" {
		base = config.GetPreset(preset)
		if base == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	c, err := config.Load(configFile, base)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data") {
		c.DataDir = dataDir
	}
	if cmd.Flags().Changed("log-level") {
		c.LogLevel = logLevel
	}
	if err := logging.SetLevel(c.LogLevel); err != nil {
		return err
	}
	cfg = c
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
