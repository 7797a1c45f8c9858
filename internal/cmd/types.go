package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/adsharma/truth-serum/domain/typeregistry"
)

type typeList []typeregistry.TypeRecord

func (t typeList) headers() []string { return []string{"ID", "Name"} }

func (t typeList) rows() [][]string {
	out := make([][]string, len(t))
	for i, rec := range t {
		out[i] = []string{strconv.FormatInt(rec.ID, 10), rec.Name}
	}
	return out
}

func newTypesCommand(c *cli) *cobra.Command {
	var property bool

	typesCmd := &cobra.Command{
		Use:   "types",
		Short: "Inspect registered object and property types",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := typeregistry.ObjectTypes
			if property {
				table = typeregistry.PropertyTypes
			}
			return c.withApp(cmd.Context(), fullApp, func(ctx context.Context, d deps) error {
				recs, err := d.Registry.List(ctx, table)
				if err != nil {
					return err
				}
				return render(c.out, c.format(), typeList(recs), recs)
			})
		},
	}
	listCmd.Flags().BoolVar(&property, "property", false, "list property (relation) types instead of object types")

	resolveCmd := &cobra.Command{
		Use:   "resolve NAME",
		Short: "Return the type named NAME, registering it if absent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := typeregistry.ObjectTypes
			if property {
				table = typeregistry.PropertyTypes
			}
			return c.withApp(cmd.Context(), fullApp, func(ctx context.Context, d deps) error {
				rec, err := d.Registry.Resolve(ctx, table, args[0])
				if err != nil {
					return fmt.Errorf("resolve %s: %w", args[0], err)
				}
				return render(c.out, c.format(), typeList{rec}, rec)
			})
		},
	}
	resolveCmd.Flags().BoolVar(&property, "property", false, "resolve a property (relation) type")

	typesCmd.AddCommand(listCmd, resolveCmd)
	return typesCmd
}
