package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		filters []string
		columns []string
		top     int
		all     bool
		nextPK  string
		nextRK  string
	)
	cmd := &cobra.Command{
		Use:   "query <table>",
		Short: "Query entities",
		Long: `Query reads entities in (PartitionKey, RowKey) order, one segment at a
time. Filters are "<property> <op> <value>" with op one of eq, ne, gt, ge,
lt, le; values are parsed like --props values. Multiple filters are ANDed.

  tablestore query orders --filter 'PartitionKey eq "c1"' --filter 'Qty ge 3'
  tablestore query orders --top 10 --next-pk c1 --next-rk o9`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := types.NewQuery().Top(top).Columns(columns...)
			for _, f := range filters {
				cond, err := parseFilter(f)
				if err != nil {
					return userError(err)
				}
				q.Conditions = append(q.Conditions, cond)
			}
			var token *types.ContinuationToken
			if nextPK != "" || nextRK != "" {
				token = &types.ContinuationToken{NextPartitionKey: nextPK, NextRowKey: nextRK}
			}

			return a.withTable(args[0], func(c *tableclient.Client) error {
				entities := []*types.Entity{}
				for {
					seg, err := c.ExecuteQuerySegmentedWithOptions(cmd.Context(), q, token, a.requestOptions(), nil)
					if err != nil {
						return err
					}
					entities = append(entities, seg.Results...)
					token = seg.ContinuationToken
					if token == nil || !all {
						break
					}
				}
				if a.flags.jsonMode {
					return printJSON(cmd, map[string]any{
						"entities":          entities,
						"continuationToken": token,
					})
				}
				if err := printJSON(cmd, entities); err != nil {
					return err
				}
				if token != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "more results: --next-pk %q --next-rk %q\n", token.NextPartitionKey, token.NextRowKey)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, `filter condition, e.g. 'Qty ge 3'`)
	cmd.Flags().StringSliceVar(&columns, "select", nil, "properties to return")
	cmd.Flags().IntVar(&top, "top", 0, "segment size (default 1000)")
	cmd.Flags().BoolVar(&all, "all", false, "follow continuation tokens to the end")
	cmd.Flags().StringVar(&nextPK, "next-pk", "", "resume at this partition key")
	cmd.Flags().StringVar(&nextRK, "next-rk", "", "resume at this row key")
	return cmd
}

// parseFilter parses "<property> <op> <value>".
func parseFilter(s string) (types.Condition, error) {
	fields := strings.SplitN(strings.TrimSpace(s), " ", 3)
	if len(fields) != 3 {
		return types.Condition{}, fmt.Errorf("invalid filter %q (expected '<property> <op> <value>')", s)
	}
	value, err := parseValue(fields[0], []byte(strings.TrimSpace(fields[2])))
	if err != nil {
		// Bare words are strings.
		value = strings.TrimSpace(fields[2])
	}
	cond := types.Condition{Property: fields[0], Op: types.CompareOp(strings.ToLower(fields[1])), Value: value}
	if err := cond.Validate(); err != nil {
		return types.Condition{}, err
	}
	return cond, nil
}
