package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/loadtest"
)

func newLoadCommand(root *rootOptions) *cobra.Command {
	cfg := loadtest.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive a running service with simulated requests and verify its cutflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch, err := model.ChannelByName(root.cfg.Channel)
			if err != nil {
				return err
			}
			cfg.Sample.Channel = ch

			stats, err := loadtest.Run(cmd.Context(), cfg)
			if stats != nil {
				out, merr := yaml.Marshal(stats)
				if merr != nil {
					return merr
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "service base URL")
	f.IntVar(&cfg.Requests, "requests", cfg.Requests, "number of /select requests")
	f.IntVar(&cfg.EventsPerRequest, "events", cfg.EventsPerRequest, "events per request")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.Uint64Var(&cfg.Sample.Seed, "seed", cfg.Sample.Seed, "random seed")
	f.Float64Var(&cfg.Sample.SignalFraction, "signal-fraction", cfg.Sample.SignalFraction, "share of events with a resonant pair")
	f.Float64Var(&cfg.Sample.DuplicateFraction, "duplicate-fraction", cfg.Sample.DuplicateFraction, "share of events reusing an earlier event key")
	return cmd
}
