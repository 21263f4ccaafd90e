package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/rover/internal/config"
	"github.com/san-kum/rover/internal/storage"
	"github.com/san-kum/rover/internal/viz"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(cfg.DataDir).List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCOMMAND\tPRESET\tWHEELS\tSAMPLES\tTIMESTAMP\tERROR")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					r.ID[:8], r.Command, r.Preset, r.Wheels, r.Samples,
					r.Timestamp.Format("2006-01-02 15:04:05"), r.Error)
			}
			return w.Flush()
		},
	}
}

var (
	plotSeries string
	plotWidth  int
	plotHeight int
)

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(cfg.DataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			trace, err := st.LoadTrace(args[0])
			if err != nil {
				return err
			}
			out, err := viz.Plot(trace, plotSeries, viz.PlotOptions{Width: plotWidth, Height: plotHeight})
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s, %d samples)\n\n%s\n", meta.Command, meta.Preset, meta.Samples, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&plotSeries, "series", viz.SeriesTraveled, "traveled, command or angle")
	cmd.Flags().IntVar(&plotWidth, "width", 70, "chart width")
	cmd.Flags().IntVar(&plotHeight, "height", 15, "chart height")
	return cmd
}

var exportPath string

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(cfg.DataDir)
			if exportPath == "" {
				return st.ExportJSON(os.Stdout, args[0])
			}
			if err := st.ExportJSONFile(exportPath, args[0]); err != nil {
				return err
			}
			fmt.Printf("exported to %s\n", exportPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&exportPath, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list drivetrain presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tWHEELS\tCYCLE\tSCANNER")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%s\t%v\n", name, len(p.Wheels), p.Cycle(), p.Scanner.Enabled)
			}
			return w.Flush()
		},
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "inspect or write the configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the effective configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}
