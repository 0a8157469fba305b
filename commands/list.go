package commands

import (
	"context"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mayo-dayo/manage/instance"
)

type instanceItem struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	State          string `json:"state"`
	Port           uint16 `json:"port"`
	Authentication string `json:"authentication"`
	TLS            string `json:"tls"`
}

type instanceList []instanceItem

func newInstanceList(instances []instance.Instance) instanceList {
	instance.Sort(instances)
	out := make(instanceList, 0, len(instances))
	for _, inst := range instances {
		out = append(out, instanceItem{
			Name:           inst.Name(),
			Version:        inst.Parameters.WorkloadVersion.String(),
			State:          inst.State.String(),
			Port:           inst.Parameters.Port,
			Authentication: inst.Parameters.Authentication(),
			TLS:            inst.Parameters.TLSStatus(),
		})
	}
	return out
}

func (l instanceList) header() table.Row {
	return table.Row{"Name", "Version", "State", "Port", "Authentication", "TLS"}
}

func (l instanceList) rows() []table.Row {
	rows := make([]table.Row, 0, len(l))
	for _, i := range l {
		rows = append(rows, table.Row{i.Name, i.Version, i.State, strconv.Itoa(int(i.Port)), i.Authentication, i.TLS})
	}
	return rows
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List managed servers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFlag(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				instances, err := a.discovery.ListManagedInstances(ctx)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), format, newInstanceList(instances))
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}
