package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/adsharma/truth-serum/domain/relations"
)

type relationView []relations.Relation

func (r relationView) headers() []string {
	return []string{"Src", "RType", "Dst", "Start", "End", "Probability", "Viewpoint"}
}

func (r relationView) rows() [][]string {
	out := make([][]string, len(r))
	for i, rel := range r {
		end := ""
		if rel.End != nil {
			end = rel.End.Format(time.DateOnly)
		}
		out[i] = []string{
			strconv.FormatInt(rel.Src, 10),
			strconv.FormatInt(rel.RType, 10),
			strconv.FormatInt(rel.Dst, 10),
			rel.Start.Format(time.DateOnly),
			end,
			strconv.FormatFloat(rel.Probability, 'g', -1, 64),
			strconv.FormatInt(rel.Viewpoint, 10),
		}
	}
	return out
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return &t, nil
}

func newRelateCommand(c *cli) *cobra.Command {
	var (
		relation   string
		src, dst   int64
		start, end string
		prob       float64
		viewpoint  int64
	)

	cmd := &cobra.Command{
		Use:   "relate",
		Short: "Insert one relation between two entity ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := relations.Params{Src: src, Dst: dst}

			var err error
			if p.Start, err = parseDay(start); err != nil {
				return err
			}
			if p.End, err = parseDay(end); err != nil {
				return err
			}
			if cmd.Flags().Changed("probability") {
				p.Probability = &prob
			}
			if cmd.Flags().Changed("viewpoint") {
				p.Viewpoint = &viewpoint
			}

			return c.withApp(cmd.Context(), fullApp, func(ctx context.Context, d deps) error {
				d.Catalog.RegisterRelation(relation)
				rel, err := d.Graph.Relate(ctx, relation, p)
				if err != nil {
					return err
				}
				return render(c.out, c.format(), relationView{*rel}, rel)
			})
		},
	}

	cmd.Flags().StringVar(&relation, "relation", "", "relation kind (required)")
	cmd.Flags().Int64Var(&src, "src", 0, "source entity id (required)")
	cmd.Flags().Int64Var(&dst, "dst", 0, "destination entity id (required)")
	cmd.Flags().StringVar(&start, "start", "", "first day the relation holds (default today)")
	cmd.Flags().StringVar(&end, "end", "", "first day the relation no longer holds (default open)")
	cmd.Flags().Float64Var(&prob, "probability", 1.0, "probability in [0, 1]")
	cmd.Flags().Int64Var(&viewpoint, "viewpoint", 0, "viewpoint id, 0 for ground truth")
	_ = cmd.MarkFlagRequired("relation")
	_ = cmd.MarkFlagRequired("src")
	_ = cmd.MarkFlagRequired("dst")
	return cmd
}
