package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

func newEntityCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Insert, update, read and delete entities",
		Long: `Entity commands address one row by table, partition key and row key.

Properties are given as a JSON object. Strings, booleans and numbers map to
their natural types; other types use the typed form:

  tablestore entity insert orders c1 o1 --props '{"Item":"widget","Qty":3}'
  tablestore entity merge orders c1 o1 --props '{"Due":{"t":"Edm.DateTime","v":"2026-11-01T00:00:00.000000000Z"}}'`,
	}
	cmd.AddCommand(
		newEntityWriteCmd(a, "insert", "Insert an entity; fails if it exists", types.Insert),
		newEntityUpsertCmd(a),
		newEntityMergeCmd(a),
		newEntityWriteCmd(a, "replace", "Replace an existing entity", types.Replace),
		newEntityGetCmd(a),
		newEntityDeleteCmd(a),
	)
	return cmd
}

// entityArgs is the shared <table> <partition-key> <row-key> argument list.
const entityArgs = " <table> <partition-key> <row-key>"

type entityFlags struct {
	props string
	etag  string
}

func (f *entityFlags) register(cmd *cobra.Command, etag bool) {
	cmd.Flags().StringVar(&f.props, "props", "", "properties as a JSON object")
	if etag {
		cmd.Flags().StringVar(&f.etag, "etag", types.ETagAny, "ETag the stored entity must match (* matches any)")
	}
}

func (f *entityFlags) entity(args []string) (*types.Entity, error) {
	props, err := parseProperties(f.props)
	if err != nil {
		return nil, userError(err)
	}
	e := types.NewEntity(args[1], args[2])
	e.Properties = props
	e.ETag = f.etag
	return e, nil
}

func newEntityWriteCmd(a *app, use, short string, build func(*types.Entity) *types.TableOperation) *cobra.Command {
	var f entityFlags
	cmd := &cobra.Command{
		Use:   use + entityArgs,
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := f.entity(args)
			if err != nil {
				return err
			}
			return a.execute(cmd, args[0], build(e))
		},
	}
	f.register(cmd, build(types.NewEntity("", "")).Type.RequiresETag())
	return cmd
}

func newEntityUpsertCmd(a *app) *cobra.Command {
	var f entityFlags
	cmd := &cobra.Command{
		Use:   "upsert" + entityArgs,
		Short: "Insert an entity or replace it if it exists",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := f.entity(args)
			if err != nil {
				return err
			}
			return a.execute(cmd, args[0], types.InsertOrReplace(e))
		},
	}
	f.register(cmd, false)
	return cmd
}

func newEntityMergeCmd(a *app) *cobra.Command {
	var (
		f      entityFlags
		upsert bool
	)
	cmd := &cobra.Command{
		Use:   "merge" + entityArgs,
		Short: "Merge properties into an existing entity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := f.entity(args)
			if err != nil {
				return err
			}
			op := types.Merge(e)
			if upsert {
				e.ETag = ""
				op = types.InsertOrMerge(e)
			}
			return a.execute(cmd, args[0], op)
		},
	}
	f.register(cmd, true)
	cmd.Flags().BoolVar(&upsert, "upsert", false, "insert the entity when it does not exist")
	return cmd
}

func newEntityGetCmd(a *app) *cobra.Command {
	var columns []string
	cmd := &cobra.Command{
		Use:   "get" + entityArgs,
		Short: "Print an entity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTable(args[0], func(c *tableclient.Client) error {
				res, err := c.ExecuteWithOptions(cmd.Context(), types.Retrieve(args[1], args[2], columns...), a.requestOptions(), nil)
				if err != nil {
					return err
				}
				return printJSON(cmd, res.Entity)
			})
		},
	}
	cmd.Flags().StringSliceVar(&columns, "select", nil, "properties to return")
	return cmd
}

func newEntityDeleteCmd(a *app) *cobra.Command {
	var etag string
	cmd := &cobra.Command{
		Use:   "delete" + entityArgs,
		Short: "Delete an entity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := &types.Entity{PartitionKey: args[1], RowKey: args[2], ETag: etag}
			return a.execute(cmd, args[0], types.Delete(e))
		},
	}
	cmd.Flags().StringVar(&etag, "etag", types.ETagAny, "ETag the stored entity must match (* matches any)")
	return cmd
}

// execute runs a write operation and reports the new ETag.
func (a *app) execute(cmd *cobra.Command, table string, op *types.TableOperation) error {
	return a.withTable(table, func(c *tableclient.Client) error {
		res, err := c.ExecuteWithOptions(cmd.Context(), op, a.requestOptions(), nil)
		if err != nil {
			return err
		}
		if a.flags.jsonMode {
			return printJSON(cmd, map[string]any{
				"operation":  op.Type.String(),
				"statusCode": res.StatusCode,
				"etag":       res.ETag,
			})
		}
		if res.ETag != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s etag=%s\n", op.Type, op.Entity.PartitionKey, op.Entity.RowKey, res.ETag)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s\n", op.Type, op.Entity.PartitionKey, op.Entity.RowKey)
		}
		return nil
	})
}
