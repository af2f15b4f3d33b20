package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/httcp/internal/config"
	"github.com/okian/httcp/pkg/logger"
)

// rootOptions holds global flags and the configuration loaded from them.
type rootOptions struct {
	configPath string
	logLevel   string
	channel    string

	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "httcp",
		Short:         "H->tautau lepton pair candidate selection",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $"+config.EnvConfig+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log_level")
	cmd.PersistentFlags().StringVar(&opts.channel, "channel", "", "override channel (etau|mutau)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSelectCommand(opts))
	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newLoadCommand(opts))
	return cmd
}

// load layers flags over the file and environment configuration and
// initializes logging.
func (o *rootOptions) load(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load(cmd.Context())
	}
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.channel != "" {
		cfg.Channel = o.channel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.InitWithFormat(cfg.LogFormat, cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	o.cfg = cfg
	return nil
}
