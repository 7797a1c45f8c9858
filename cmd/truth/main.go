// Command truth manages a temporal knowledge graph.
package main

import (
	"fmt"
	"os"

	"github.com/adsharma/truth-serum/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
