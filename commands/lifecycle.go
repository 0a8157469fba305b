package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mayo-dayo/manage/lifecycle"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status NAME",
		Short: "Show the state of a server and the actions available for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				inst, err := a.find(ctx, args[0])
				if err != nil {
					return err
				}
				state, err := a.orchestrator.Status(ctx, inst.ID)
				if err != nil {
					return err
				}

				actions := lifecycle.AvailableActions(state)
				names := make([]string, 0, len(actions))
				for _, action := range actions {
					names = append(names, action.String())
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Server %s is currently %s.\n", inst.Name(), state)
				fmt.Fprintf(out, "Version: %s\n", inst.Parameters.WorkloadVersion)
				fmt.Fprintf(out, "Actions: %s\n", strings.Join(names, ", "))
				return nil
			})
		},
	}
}

func newLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs NAME",
		Short: "Print the complete log output of a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				inst, err := a.find(ctx, args[0])
				if err != nil {
					return err
				}
				logs, err := a.orchestrator.Logs(ctx, inst.ID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), logs)
				return err
			})
		},
	}
}

// newTransitionCommand builds start, stop and restart.
func newTransitionCommand(use, short, past string, transition func(o *lifecycle.Orchestrator, ctx context.Context, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				inst, err := a.find(ctx, args[0])
				if err != nil {
					return err
				}
				if err := transition(a.orchestrator, ctx, inst.ID); err != nil {
					return fmt.Errorf("failed to %s %s: %w", use, inst.Name(), err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Server %s %s.\n", inst.Name(), past)
				return err
			})
		},
	}
}

func newStartCommand() *cobra.Command {
	return newTransitionCommand("start", "Start a stopped server", "started", (*lifecycle.Orchestrator).Start)
}

func newStopCommand() *cobra.Command {
	return newTransitionCommand("stop", "Stop a running server", "stopped", (*lifecycle.Orchestrator).Stop)
}

func newRestartCommand() *cobra.Command {
	return newTransitionCommand("restart", "Restart a server", "restarted", (*lifecycle.Orchestrator).Restart)
}

func newUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update NAME",
		Short: "Recreate a server with the newest compatible version",
		Long: `Recreate a server with the newest compatible version.

The server's container is removed before the replacement is created. Its volume, name,
port, authentication setting and TLS material are kept. If the replacement cannot be
created the server is left without a container; create it again with the same name and
settings to recover its data.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				inst, err := a.find(ctx, args[0])
				if err != nil {
					return err
				}

				updated, err := a.orchestrator.Update(ctx, inst)
				if err != nil {
					var updateErr *lifecycle.UpdateError
					if errors.As(err, &updateErr) {
						loggerFrom(cmd).Error().
							Str("instance", updateErr.Parameters.Name).
							Uint16("port", updateErr.Parameters.Port).
							Bool("tls", updateErr.Parameters.TLSEnabled()).
							Msg("Server has no container; recreate it with the same name and settings")
					}
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Server %s updated from %s to %s.\n",
					updated.Name(), inst.Parameters.WorkloadVersion, updated.Parameters.WorkloadVersion)
				return err
			})
		},
	}
}

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"delete"},
		Short:   "Delete a server and its data",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				inst, err := a.find(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.orchestrator.Remove(ctx, inst); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Server %s deleted.\n", inst.Name())
				return err
			})
		},
	}
}
