package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/adsharma/truth-serum/domain/graph"
	"github.com/adsharma/truth-serum/domain/importer"
)

type saveResult struct {
	Operation string `json:"operation" yaml:"operation"`
	Kind      string `json:"kind" yaml:"kind"`
	Rows      int    `json:"rows" yaml:"rows"`
}

func (r saveResult) headers() []string { return []string{"Operation", "Kind", "Rows"} }
func (r saveResult) rows() [][]string {
	return [][]string{{r.Operation, r.Kind, strconv.Itoa(r.Rows)}}
}

// readRecords reads every CSV record from path ("-" is stdin), dropping
// the first record when header is set.
func readRecords(in io.Reader, path string, header bool) ([][]string, error) {
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}

	records, err := importer.ReadRecords(in)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if header && len(records) > 0 {
		records = records[1:]
	}
	return records, nil
}

// splitPairs cuts each record into the left kind's leftWidth fields and
// the right kind's fields.
func splitPairs(records [][]string, leftWidth, rightWidth int) ([]graph.Pair, error) {
	pairs := make([]graph.Pair, len(records))
	for i, rec := range records {
		if len(rec) != leftWidth+rightWidth {
			return nil, fmt.Errorf("record %d has %d columns, want %d", i+1, len(rec), leftWidth+rightWidth)
		}
		pairs[i] = graph.Pair{
			Left:  toRow(rec[:leftWidth]),
			Right: toRow(rec[leftWidth:]),
		}
	}
	return pairs, nil
}

func toRow(cells []string) graph.Row {
	row := make(graph.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

func newSaveGraphCommand(c *cli) *cobra.Command {
	var (
		left, right, relation, file string
		header                      bool
	)

	cmd := &cobra.Command{
		Use:   "save-graph",
		Short: "Save pairs of entities joined by a relation from CSV",
		Long: `Reads CSV records of the form <left fields...>,<right fields...> and, for
each record, stores a left entity, a right entity and one relation from left
to right, all in one transaction.

Example:
  printf 'France,Paris\nItaly,Rome\n' | truth save-graph --left Country --right City --relation CapitalRelation`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := readRecords(cmd.InOrStdin(), file, header)
			if err != nil {
				return err
			}
			return c.withApp(cmd.Context(), fullApp, func(ctx context.Context, d deps) error {
				lk, err := d.Catalog.Kind(left)
				if err != nil {
					return err
				}
				rk, err := d.Catalog.Kind(right)
				if err != nil {
					return err
				}
				pairs, err := splitPairs(records, len(lk.Fields), len(rk.Fields))
				if err != nil {
					return err
				}

				n, err := d.Graph.SaveGraph(ctx, pairs, left, right, relation)
				if err != nil {
					return err
				}
				res := saveResult{Operation: "save-graph", Kind: left + " -" + relation + "-> " + right, Rows: n}
				return render(c.out, c.format(), res, res)
			})
		},
	}

	cmd.Flags().StringVar(&left, "left", "", "kind of the left entity (required)")
	cmd.Flags().StringVar(&right, "right", "", "kind of the right entity (required)")
	cmd.Flags().StringVar(&relation, "relation", "", "relation kind from left to right (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "CSV file, - for stdin")
	cmd.Flags().BoolVar(&header, "header", false, "skip the first CSV record")
	_ = cmd.MarkFlagRequired("left")
	_ = cmd.MarkFlagRequired("right")
	_ = cmd.MarkFlagRequired("relation")
	return cmd
}

func newSaveObjsCommand(c *cli) *cobra.Command {
	var (
		kind, file string
		header     bool
	)

	cmd := &cobra.Command{
		Use:   "save-objs",
		Short: "Save entities of one kind from CSV",
		Long: `Reads CSV records holding the kind's fields in declaration order and stores
one entity per record in one transaction. Relations can be added later with
"truth relate".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := readRecords(cmd.InOrStdin(), file, header)
			if err != nil {
				return err
			}
			rows := make([]graph.Row, len(records))
			for i, rec := range records {
				rows[i] = toRow(rec)
			}

			return c.withApp(cmd.Context(), fullApp, func(ctx context.Context, d deps) error {
				n, err := d.Graph.SaveObjs(ctx, rows, kind)
				if err != nil {
					return err
				}
				res := saveResult{Operation: "save-objs", Kind: kind, Rows: n}
				return render(c.out, c.format(), res, res)
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "entity kind (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "CSV file, - for stdin")
	cmd.Flags().BoolVar(&header, "header", false, "skip the first CSV record")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
