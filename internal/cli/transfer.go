package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/tablestore/internal/jsonl"
	"github.com/mesh-intelligence/tablestore/internal/sqlite"
	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// importConcurrency bounds the batches an import runs at once.
const importConcurrency = 4

func newExportCmd(a *app) *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "export <table> <file>",
		Short: "Write a table's entities to a JSONL file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := types.NewQuery()
			for _, f := range filters {
				cond, err := parseFilter(f)
				if err != nil {
					return userError(err)
				}
				q.Conditions = append(q.Conditions, cond)
			}
			return a.withTable(args[0], func(c *tableclient.Client) error {
				records, err := exportRecords(cmd, c, q, a.requestOptions())
				if err != nil {
					return err
				}
				if err := jsonl.WriteFile(args[1], records); err != nil {
					return sysError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d entities from %s\n", len(records), c.Name())
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "export only matching entities")
	return cmd
}

// exportRecords reads every segment of q as JSONL records.
func exportRecords(cmd *cobra.Command, c *tableclient.Client, q *types.Query, opts *types.RequestOptions) ([]jsonl.Record, error) {
	toRecord := func(pk, rk string, ts time.Time, props map[string]any, _ string) (jsonl.Record, error) {
		raw, err := sqlite.EncodeProperties(props)
		if err != nil {
			return jsonl.Record{}, err
		}
		return jsonl.Record{PartitionKey: pk, RowKey: rk, Timestamp: ts, Properties: raw}, nil
	}

	var (
		records []jsonl.Record
		token   *types.ContinuationToken
	)
	for {
		seg, err := tableclient.QuerySegmentedResolveWithOptions(cmd.Context(), c, q, token, toRecord, opts, nil)
		if err != nil {
			return nil, err
		}
		records = append(records, seg.Results...)
		if token = seg.ContinuationToken; token == nil {
			return records, nil
		}
	}
}

func newImportCmd(a *app) *cobra.Command {
	var (
		create bool
		mode   string
	)
	cmd := &cobra.Command{
		Use:   "import <table> <file>",
		Short: "Load entities from a JSONL file",
		Long: `Import writes every record of a JSONL export into the table. Records are
grouped by partition key into atomic batches of up to 100 entities.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			build, err := importOperation(mode)
			if err != nil {
				return userError(err)
			}
			records, err := jsonl.ReadFile(args[1])
			if err != nil {
				if isNotExist(err) {
					return userError(err)
				}
				return sysError(err)
			}
			batches, err := importBatches(records, build)
			if err != nil {
				return userError(err)
			}

			return a.withTable(args[0], func(c *tableclient.Client) error {
				opts := a.requestOptions()
				if create {
					if _, err := c.CreateIfNotExistsWithOptions(cmd.Context(), opts, nil); err != nil {
						return err
					}
				}
				g, ctx := errgroup.WithContext(cmd.Context())
				g.SetLimit(importConcurrency)
				for _, batch := range batches {
					g.Go(func() error {
						_, err := c.ExecuteBatchWithOptions(ctx, batch, opts, nil)
						if err != nil {
							return fmt.Errorf("partition %q: %w", batch[0].Entity.PartitionKey, err)
						}
						return nil
					})
				}
				if err := g.Wait(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d entities into %s\n", len(records), c.Name())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "create the table if it does not exist")
	cmd.Flags().StringVar(&mode, "mode", "upsert", "write mode: insert, upsert or merge")
	return cmd
}

func importOperation(mode string) (func(*types.Entity) *types.TableOperation, error) {
	switch mode {
	case "insert":
		return types.Insert, nil
	case "upsert":
		return types.InsertOrReplace, nil
	case "merge":
		return types.InsertOrMerge, nil
	default:
		return nil, fmt.Errorf("unknown import mode %q (valid: insert, upsert, merge)", mode)
	}
}

// importBatches groups records by partition key, in file order, into
// batches no larger than types.MaxBatchSize.
func importBatches(records []jsonl.Record, build func(*types.Entity) *types.TableOperation) ([]types.BatchOperation, error) {
	var (
		order []string
		byPK  = make(map[string][]*types.TableOperation)
	)
	for i, rec := range records {
		props, err := sqlite.DecodeProperties(rec.Properties)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		e := types.NewEntity(rec.PartitionKey, rec.RowKey)
		e.Properties = props
		if _, ok := byPK[rec.PartitionKey]; !ok {
			order = append(order, rec.PartitionKey)
		}
		byPK[rec.PartitionKey] = append(byPK[rec.PartitionKey], build(e))
	}

	var batches []types.BatchOperation
	for _, pk := range order {
		for chunk := range slices.Chunk(byPK[pk], types.MaxBatchSize) {
			batches = append(batches, types.BatchOperation(chunk))
		}
	}
	return batches, nil
}
