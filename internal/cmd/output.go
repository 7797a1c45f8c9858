package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// view is something a command can print in every output format.
type view interface {
	headers() []string
	rows() [][]string
}

// render prints v as a table, or the data value as JSON or YAML.
func render(out io.Writer, format string, v view, data any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		table := tablewriter.NewWriter(out)
		table.Header(toAny(v.headers())...)
		for _, row := range v.rows() {
			if err := table.Append(row); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// tableView is a view over precomputed cells.
type tableView struct {
	head  []string
	cells [][]string
}

func (t tableView) headers() []string { return t.head }
func (t tableView) rows() [][]string  { return t.cells }
