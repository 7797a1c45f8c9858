package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// writeMetrics exports the default registry to path in the text
// exposition format, for node_exporter's textfile collector. The file is
// replaced atomically. An empty path disables the export.
func writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
