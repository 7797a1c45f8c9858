// Package cmd implements the truth command-line interface.
package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix namespaces the CLI's own environment variables, e.g.
// TRUTH_OUTPUT=json.
const envPrefix = "TRUTH"

// cli holds state shared by every subcommand of one root command.
type cli struct {
	v   *viper.Viper
	out io.Writer
}

// NewRootCommand builds the command tree. Each call returns an
// independent tree so tests can run commands in isolation.
func NewRootCommand() *cobra.Command {
	c := &cli{v: viper.New(), out: os.Stdout}

	root := &cobra.Command{
		Use:   "truth",
		Short: "Temporal knowledge graph toolkit",
		Long: `truth stores typed entities and time-scoped relations between them.

Every id in the graph comes from one global sequence. Entity types and
relation types are registered on first use, and every entity is linked to
its type by an instance-of edge.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.applyEnv()
		},
	}

	flags := root.PersistentFlags()
	flags.String("db-driver", "", "storage driver: sqlite or postgres (env DB_DRIVER)")
	flags.String("sqlite-path", "", "SQLite database file (env SQLITE_PATH)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.StringP("output", "o", "table", "output format: table, json, yaml")
	flags.Bool("no-bootstrap", false, "do not register every declared type on start")
	flags.String("metrics-file", "", "write Prometheus metrics in text format to this file after each command")

	for _, name := range []string{"db-driver", "sqlite-path", "log-level", "output", "no-bootstrap", "metrics-file"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		newMigrateCommand(c),
		newTypesCommand(c),
		newKindsCommand(c),
		newSaveGraphCommand(c),
		newSaveObjsCommand(c),
		newRelateCommand(c),
		newImportCommand(c),
		newVersionCommand(c),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	// .env.local overrides .env; neither overrides the real environment.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	return NewRootCommand().Execute()
}

// applyEnv exports flag values to the variables internal/config reads,
// so flags win over the environment.
func (c *cli) applyEnv() error {
	for key, env := range map[string]string{
		"db-driver":   "DB_DRIVER",
		"sqlite-path": "SQLITE_PATH",
		"log-level":   "LOG_LEVEL",
	} {
		if v := c.v.GetString(key); v != "" {
			if err := os.Setenv(env, v); err != nil {
				return err
			}
		}
	}
	if c.v.GetBool("no-bootstrap") {
		return os.Setenv("GRAPH_BOOTSTRAP_KINDS", "false")
	}
	return nil
}

func (c *cli) format() string {
	return strings.ToLower(c.v.GetString("output"))
}
