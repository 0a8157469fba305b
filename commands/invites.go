package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mayo-dayo/manage/instance"
	"github.com/mayo-dayo/manage/invites"
)

const (
	flagUses  = "uses"
	flagPerms = "perms"
)

type inviteList []invites.Record

func (l inviteList) header() table.Row {
	return table.Row{"ID", "Uses", "Permissions"}
}

func (l inviteList) rows() []table.Row {
	rows := make([]table.Row, 0, len(l))
	for _, r := range l {
		rows = append(rows, table.Row{r.ID, r.Uses(), strconv.FormatUint(uint64(r.Permissions), 10)})
	}
	return rows
}

func newInvitesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invites",
		Short: "Manage the invites of a running server",
	}
	cmd.AddCommand(newInvitesCreateCommand(), newInvitesListCommand(), newInvitesRemoveCommand())
	return cmd
}

// withRunning resolves name to a running instance.
func withRunning(cmd *cobra.Command, name string, fn func(ctx context.Context, a *app, inst instance.Instance) error) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		inst, err := a.find(ctx, name)
		if err != nil {
			return err
		}
		if inst.State != instance.StateRunning {
			return fmt.Errorf("server %s is %s; invites can only be managed while it is running", inst.Name(), inst.State)
		}
		return fn(ctx, a, inst)
	})
}

func newInvitesCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an invite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			perms, _ := cmd.Flags().GetUint32(flagPerms)

			var uses *uint32
			if cmd.Flags().Changed(flagUses) {
				n, _ := cmd.Flags().GetUint32(flagUses)
				uses = &n
			}

			return withRunning(cmd, args[0], func(ctx context.Context, a *app, inst instance.Instance) error {
				id, err := a.invites.Create(ctx, inst.ID, uses, perms)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
	cmd.Flags().Uint32(flagUses, 0, "number of times the invite can be used (unlimited when not set)")
	cmd.Flags().Uint32(flagPerms, 0, "permission bitmask granted by the invite")
	_ = cmd.MarkFlagRequired(flagPerms)
	return cmd
}

func newInvitesListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls NAME",
		Aliases: []string{"list"},
		Short:   "List invites",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFlag(cmd)
			if err != nil {
				return err
			}
			return withRunning(cmd, args[0], func(ctx context.Context, a *app, inst instance.Instance) error {
				records, err := a.invites.List(ctx, inst.ID)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), format, inviteList(records))
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func newInvitesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm NAME ID",
		Aliases: []string{"delete"},
		Short:   "Delete an invite",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunning(cmd, args[0], func(ctx context.Context, a *app, inst instance.Instance) error {
				return a.invites.Delete(ctx, inst.ID, args[1])
			})
		},
	}
}
