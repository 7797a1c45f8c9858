package cmd

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adsharma/truth-serum/domain/schema"
)

type kindSummary struct {
	Name       string         `json:"name" yaml:"name"`
	Table      string         `json:"table" yaml:"table"`
	PrimaryKey []string       `json:"primaryKey" yaml:"primaryKey"`
	Fields     []schema.Field `json:"fields" yaml:"fields"`
	Rows       int            `json:"rows" yaml:"rows"`
}

type kindList []kindSummary

func (k kindList) headers() []string { return []string{"Kind", "Table", "Fields", "Rows"} }

func (k kindList) rows() [][]string {
	out := make([][]string, len(k))
	for i, s := range k {
		fields := make([]string, len(s.Fields))
		for j, f := range s.Fields {
			fields[j] = f.Name + " " + f.GoType
		}
		out[i] = []string{s.Name, s.Table, strings.Join(fields, ", "), strconv.Itoa(s.Rows)}
	}
	return out
}

func newKindsCommand(c *cli) *cobra.Command {
	kindsCmd := &cobra.Command{
		Use:   "kinds",
		Short: "List declared entity and relation kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), fullApp, func(ctx context.Context, d deps) error {
				var out kindList
				for _, k := range d.Catalog.Kinds() {
					n, err := k.Count(ctx)
					if err != nil {
						return err
					}
					out = append(out, kindSummary{
						Name:       k.Name,
						Table:      k.Table,
						PrimaryKey: k.PrimaryKey,
						Fields:     k.Fields,
						Rows:       n,
					})
				}
				return render(c.out, c.format(), out, out)
			})
		},
	}

	kindsCmd.AddCommand(&cobra.Command{
		Use:   "relations",
		Short: "List declared relation kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), fullApp, func(ctx context.Context, d deps) error {
				view := tableView{head: []string{"Relation", "Type ID"}}
				var names []string
				for _, rk := range d.Catalog.RelationKinds() {
					id := ""
					if rec, ok := rk.Resolved(); ok {
						id = strconv.FormatInt(rec.ID, 10)
					}
					view.cells = append(view.cells, []string{rk.Name, id})
					names = append(names, rk.Name)
				}
				return render(c.out, c.format(), view, names)
			})
		},
	})
	return kindsCmd
}
