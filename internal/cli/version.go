package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tablestore/pkg/tablestore"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tablestore version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tablestore v%s\nmodule: %s\n", tablestore.Version, tablestore.ModulePath)
			if tablestore.Commit != "" {
				fmt.Fprintf(out, "commit: %s\n", tablestore.Commit)
			}
			return nil
		},
	}
}
