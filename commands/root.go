// Package commands implements the manage command line interface.
package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mayo-dayo/manage/config"
	"github.com/mayo-dayo/manage/logging"
)

const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

type configKey struct{}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return New().ExecuteContext(ctx)
}

// New builds the root command with all subcommands.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manage",
		Short: "Create and manage mayo servers running in Docker",
		Long: `manage runs mayo servers as Docker containers on this host.

It pulls the newest server image this build supports, keeps each server's data in a
dedicated volume, and updates servers in place while preserving their settings.`,
		PersistentPreRunE: setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	cmd.PersistentFlags().String(flagConfig, "", "path to the configuration file")
	cmd.PersistentFlags().String(flagLogLevel, "", "log level: debug, info, warn or error")
	cmd.PersistentFlags().String(flagLogFormat, "", "log format: console or json")

	cmd.AddCommand(
		newCreateCommand(),
		newListCommand(),
		newStatusCommand(),
		newLogsCommand(),
		newStartCommand(),
		newStopCommand(),
		newRestartCommand(),
		newUpdateCommand(),
		newRemoveCommand(),
		newInvitesCommand(),
		newVersionCommand(),
	)
	return cmd
}

// setup loads the configuration and logger into the command context.
func setup(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString(flagConfig)

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadConfig(path)
	} else {
		cfg, err = config.LoadConfigWithDefaults()
	}
	if err != nil {
		return err
	}

	if level, _ := cmd.Flags().GetString(flagLogLevel); level != "" {
		cfg.LogLevel = level
	}
	if format, _ := cmd.Flags().GetString(flagLogFormat); format != "" {
		cfg.LogFormat = format
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithContext(ctx)
	ctx = context.WithValue(ctx, configKey{}, cfg)
	cmd.SetContext(ctx)

	logger.Debug().Str("registry", cfg.Coordinates().Path()).Msg("Configuration loaded")
	return nil
}

func configFrom(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok {
		return nil, fmt.Errorf("no configuration in context")
	}
	return cfg, nil
}

func loggerFrom(cmd *cobra.Command) *zerolog.Logger {
	return zerolog.Ctx(cmd.Context())
}
