package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

func newACLCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acl",
		Short: "Read and replace a table's stored access policies",
	}
	cmd.AddCommand(newACLGetCmd(a), newACLSetCmd(a))
	return cmd
}

func newACLGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table>",
		Short: "Print the table's stored access policies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTable(args[0], func(c *tableclient.Client) error {
				perms, err := c.GetPermissionsWithOptions(cmd.Context(), a.requestOptions(), nil)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd, perms.Policies)
				}
				ids := make([]string, 0, len(perms.Policies))
				for id := range perms.Policies {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), formatPolicy(id, perms.Policies[id]))
				}
				return nil
			})
		},
	}
}

func newACLSetCmd(a *app) *cobra.Command {
	var policies []string
	cmd := &cobra.Command{
		Use:   "set <table>",
		Short: "Replace the table's stored access policies",
		Long: `Set replaces every stored access policy of the table. Each --policy is
"id=<id>,perms=<raud>[,start=<RFC3339>][,expiry=<RFC3339>]". With no
--policy the table's policies are cleared.

  tablestore acl set orders --policy id=readers,perms=r,expiry=2027-01-01T00:00:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			perms := types.NewPermissions()
			for _, s := range policies {
				id, pol, err := parsePolicy(s)
				if err != nil {
					return userError(err)
				}
				perms.Policies[id] = pol
			}
			return a.withTable(args[0], func(c *tableclient.Client) error {
				if err := c.SetPermissionsWithOptions(cmd.Context(), perms, a.requestOptions(), nil); err != nil {
					return err
				}
				if !a.flags.jsonMode {
					fmt.Fprintf(cmd.OutOrStdout(), "set %d policies on %s\n", len(perms.Policies), c.Name())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&policies, "policy", nil, "stored access policy (repeatable)")
	return cmd
}

// parsePolicy parses "id=<id>,perms=<raud>[,start=<t>][,expiry=<t>]".
func parsePolicy(s string) (string, types.AccessPolicy, error) {
	var (
		id  string
		pol types.AccessPolicy
	)
	for _, field := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return "", pol, fmt.Errorf("invalid policy field %q in %q", field, s)
		}
		key = strings.TrimSpace(key)
		switch key {
		case "id":
			id = value
		case "perms":
			pol.Permissions = value
		case "start", "expiry":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return "", pol, fmt.Errorf("policy %s: %w", key, err)
			}
			if key == "start" {
				pol.Start = t
			} else {
				pol.Expiry = t
			}
		default:
			return "", pol, fmt.Errorf("unknown policy field %q", key)
		}
	}
	if id == "" {
		return "", pol, fmt.Errorf("policy %q has no id", s)
	}
	return id, pol, nil
}

func formatPolicy(id string, pol types.AccessPolicy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\tperms=%s", id, pol.Permissions)
	if !pol.Start.IsZero() {
		fmt.Fprintf(&b, "\tstart=%s", pol.Start.Format(time.RFC3339))
	}
	if !pol.Expiry.IsZero() {
		fmt.Fprintf(&b, "\texpiry=%s", pol.Expiry.Format(time.RFC3339))
	}
	return b.String()
}
