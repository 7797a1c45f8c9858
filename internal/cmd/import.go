package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adsharma/truth-serum/domain/importer"
)

// parseSource parses TABLE=KIND:PATH.
func parseSource(s string) (table, kind, path string, err error) {
	table, rest, ok := strings.Cut(s, "=")
	if !ok || table == "" {
		return "", "", "", fmt.Errorf("invalid source %q, want TABLE=KIND:PATH", s)
	}
	kind, path, ok = strings.Cut(rest, ":")
	if !ok || kind == "" || path == "" {
		return "", "", "", fmt.Errorf("invalid source %q, want TABLE=KIND:PATH", s)
	}
	return table, kind, path, nil
}

// parseLink parses TABLE.COLUMN=RELATION[@TARGET].
func parseLink(s string) (importer.Link, error) {
	col, rel, ok := strings.Cut(s, "=")
	if !ok {
		return importer.Link{}, fmt.Errorf("invalid link %q, want TABLE.COLUMN=RELATION[@TARGET]", s)
	}
	table, column, ok := strings.Cut(col, ".")
	if !ok || table == "" || column == "" {
		return importer.Link{}, fmt.Errorf("invalid link %q, want TABLE.COLUMN=RELATION[@TARGET]", s)
	}
	relation, target, _ := strings.Cut(rel, "@")
	if relation == "" {
		return importer.Link{}, fmt.Errorf("invalid link %q: missing relation", s)
	}
	return importer.Link{Table: table, Column: column, Relation: relation, Target: target}, nil
}

type importView struct {
	*importer.Result
}

func (v importView) headers() []string { return []string{"Kind", "Entities"} }

func (v importView) rows() [][]string {
	kinds := make([]string, 0, len(v.Entities))
	for k := range v.Entities {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	out := make([][]string, 0, len(kinds)+2)
	for _, k := range kinds {
		out = append(out, []string{k, strconv.Itoa(v.Entities[k])})
	}
	out = append(out,
		[]string{"relations", strconv.Itoa(v.Relations)},
		[]string{"unresolved keys", strconv.Itoa(v.Unresolved)},
	)
	return out
}

type importSummary struct {
	Batch      string         `json:"batch" yaml:"batch"`
	Entities   map[string]int `json:"entities" yaml:"entities"`
	Relations  int            `json:"relations" yaml:"relations"`
	Unresolved int            `json:"unresolved" yaml:"unresolved"`
}

func newImportCommand(c *cli) *cobra.Command {
	var sources, links []string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a foreign dataset, remapping its ids onto the global sequence",
		Long: `Imports CSV tables whose rows carry a foreign "id" column. Every row gets a
fresh global id and every resolvable foreign-key column becomes a relation.
The whole import is one transaction.

Example:
  truth import \
    --source countries=Country:countries.csv \
    --source cities=City:cities.csv \
    --link cities.country_id=LocatedAtRelation`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var plan importer.Plan
			for _, s := range sources {
				table, kind, path, err := parseSource(s)
				if err != nil {
					return err
				}
				rows, err := readCSVFile(path)
				if err != nil {
					return err
				}
				plan.Sources = append(plan.Sources, importer.Source{Table: table, Kind: kind, Rows: rows})
			}
			for _, s := range links {
				l, err := parseLink(s)
				if err != nil {
					return err
				}
				plan.Links = append(plan.Links, l)
			}

			return c.withApp(cmd.Context(), fullApp, func(ctx context.Context, d deps) error {
				for _, l := range plan.Links {
					d.Catalog.RegisterRelation(l.Relation)
				}
				res, err := d.Importer.Import(ctx, plan)
				if err != nil {
					return err
				}
				summary := importSummary{
					Batch:      res.Batch,
					Entities:   res.Entities,
					Relations:  res.Relations,
					Unresolved: res.Unresolved,
				}
				return render(c.out, c.format(), importView{res}, summary)
			})
		},
	}

	cmd.Flags().StringArrayVar(&sources, "source", nil, "table to import as TABLE=KIND:PATH (repeatable)")
	cmd.Flags().StringArrayVar(&links, "link", nil, "foreign key as TABLE.COLUMN=RELATION[@TARGET] (repeatable)")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func readCSVFile(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := importer.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
