package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mayo-dayo/manage/versioning"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of this tool and the server versions it supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			contract, err := cfg.Contract()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "manage %s (%s)\n", versioning.ToolVersion, contract)
			return err
		},
	}
}
