package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sweeney/grid-monitor/internal/calibrate"
	"github.com/sweeney/grid-monitor/internal/config"
)

func readingsFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	v, err := calibrate.ParseReadings(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func (a *app) calibrateCmd() *cobra.Command {
	var onPath, offPath, historyPath string
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Suggest thresholds from recorded readings",
		Long: `Reads files of filtered readings (one or more integers per line).
With --on and --off, computes hysteresis thresholds from readings taken with
the grid present and absent. With --history, prints a stability report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if historyPath == "" && (onPath == "" || offPath == "") {
				return errors.New("need --on and --off, or --history")
			}
			out := cmd.OutOrStdout()

			if onPath != "" && offPath != "" {
				on, err := readingsFile(onPath)
				if err != nil {
					return err
				}
				off, err := readingsFile(offPath)
				if err != nil {
					return err
				}
				th, err := calibrate.OptimalThresholds(on, off)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "on:  avg %d min %d\n", th.Stats.AvgOn, th.Stats.MinOn)
				fmt.Fprintf(out, "off: avg %d max %d\n", th.Stats.AvgOff, th.Stats.MaxOff)
				fmt.Fprintf(out, "separation %d, margin %d\n", th.Stats.Separation, th.Stats.Margin)
				fmt.Fprintf(out, "high=%d low=%d (single threshold %d)\n", th.High, th.Low, th.Recommended)
			}

			if historyPath != "" {
				history, err := readingsFile(historyPath)
				if err != nil {
					return err
				}
				r, err := calibrate.Analyze(history)
				if err != nil {
					return err
				}
				return r.Format(out)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&onPath, "on", "", "readings recorded with the grid present")
	f.StringVar(&offPath, "off", "", "readings recorded with the grid absent")
	f.StringVar(&historyPath, "history", "", "reading history for a stability report")
	return cmd
}

func (a *app) presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List calibration presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tHIGH\tLOW\tMIN_STABLE\tDESCRIPTION")
			for _, p := range config.Presets() {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
					p.Name, p.Thresholds.High, p.Thresholds.Low, p.Thresholds.MinStable, p.Description)
			}
			return w.Flush()
		},
	}
}
