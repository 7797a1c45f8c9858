package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adsharma/truth-serum/internal/version"
)

func newVersionCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Info()
			view := tableView{
				head:  []string{"Version", "Commit", "Built"},
				cells: [][]string{{info.Version, info.GitCommit, info.BuildTime}},
			}
			return render(c.out, c.format(), view, info)
		},
	}
}
