package cli

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
)

func newTableCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Create, delete, check and list tables",
	}
	cmd.AddCommand(newTableCreateCmd(a), newTableDeleteCmd(a), newTableExistsCmd(a), newTableListCmd(a))
	return cmd
}

func newTableCreateCmd(a *app) *cobra.Command {
	var ifNotExists bool
	cmd := &cobra.Command{
		Use:   "create <table>",
		Short: "Create a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTable(args[0], func(c *tableclient.Client) error {
				ctx := cmd.Context()
				created := true
				var err error
				if ifNotExists {
					created, err = c.CreateIfNotExistsWithOptions(ctx, a.requestOptions(), nil)
				} else {
					err = c.CreateWithOptions(ctx, a.requestOptions(), nil)
				}
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd, map[string]any{"table": c.Name(), "created": created})
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "created table %s\n", c.Name())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "table %s already exists\n", c.Name())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&ifNotExists, "if-not-exists", false, "succeed when the table already exists")
	return cmd
}

func newTableDeleteCmd(a *app) *cobra.Command {
	var ifExists bool
	cmd := &cobra.Command{
		Use:   "delete <table>",
		Short: "Delete a table with its entities and access policies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTable(args[0], func(c *tableclient.Client) error {
				ctx := cmd.Context()
				deleted := true
				var err error
				if ifExists {
					deleted, err = c.DeleteIfExistsWithOptions(ctx, a.requestOptions(), nil)
				} else {
					err = c.DeleteWithOptions(ctx, a.requestOptions(), nil)
				}
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd, map[string]any{"table": c.Name(), "deleted": deleted})
				}
				if deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "deleted table %s\n", c.Name())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "table %s does not exist\n", c.Name())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&ifExists, "if-exists", false, "succeed when the table does not exist")
	return cmd
}

func newTableExistsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <table>...",
		Short: "Report whether tables exist",
		Long:  "Check each named table concurrently. Exits 1 when any table is missing.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer a.detach(backend)

			var (
				mu     sync.Mutex
				exists = make(map[string]bool, len(args))
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			for _, name := range args {
				c, err := a.client(backend, name)
				if err != nil {
					return err
				}
				g.Go(func() error {
					ok, err := c.ExistsWithOptions(ctx, a.requestOptions(), nil)
					if err != nil {
						return fmt.Errorf("table %s: %w", name, err)
					}
					mu.Lock()
					exists[name] = ok
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if a.flags.jsonMode {
				if err := printJSON(cmd, exists); err != nil {
					return err
				}
			} else {
				names := make([]string, 0, len(exists))
				for name := range exists {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", name, exists[name])
				}
			}
			for _, ok := range exists {
				if !ok {
					return &cliError{code: exitUserError, err: fmt.Errorf("one or more tables do not exist")}
				}
			}
			return nil
		},
	}
}

func newTableListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer a.detach(backend)

			names, err := backend.ListTables()
			if err != nil {
				return sysError(err)
			}
			if a.flags.jsonMode {
				if names == nil {
					names = []string{}
				}
				return printJSON(cmd, names)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
