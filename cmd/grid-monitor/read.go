package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/grid-monitor/internal/config"
	"github.com/sweeney/grid-monitor/internal/sensor"
)

func (a *app) readCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Take filtered readings, print them and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			adc, err := openADC(cfg)
			if err != nil {
				return err
			}
			s := sensor.NewSampler(adc, cfg.SamplerSettings(), time.Sleep)
			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				r := s.Burst()
				fmt.Fprintf(out, "reading=%d min=%d max=%d errors=%d band=%s\n",
					r.Value, r.Min, r.Max, r.Errors, band(cfg, r.Value))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of readings")
	return cmd
}

// band places v relative to the hysteresis thresholds.
func band(cfg config.Config, v int) string {
	switch {
	case v > cfg.Detector.High:
		return "above-high"
	case v > cfg.Detector.Low:
		return "hysteresis"
	default:
		return "below-low"
	}
}
