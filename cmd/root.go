package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/praetorian-inc/aztopo/internal/logs"
	"github.com/praetorian-inc/aztopo/internal/message"
	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	closeLog = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "aztopo",
	Short:         "aztopo ingests Azure network topology into a graph database.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		message.SetQuiet(viper.GetBool("quiet"))
		if viper.GetBool("no-color") {
			message.SetNoColor(true)
		}

		_, closer, err := logs.Setup(logs.Config{
			Level:   viper.GetString("log-level"),
			File:    viper.GetString("log-file"),
			NoColor: viper.GetBool("no-color"),
		})
		if err != nil {
			return err
		}
		closeLog = closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		message.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.aztopo.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-file", "", "also write JSON logs to this file")
	flags.Bool("no-color", false, "disable colored output")
	flags.BoolP("quiet", "q", false, "only print warnings, errors and results")
	flags.String("sink", graph.BackendNeo4j, "graph sink: neo4j, postgres or memory")
	flags.String("neo4j-uri", "bolt://localhost:7687", "Neo4j connection URI")
	flags.String("neo4j-username", "neo4j", "Neo4j username")
	flags.String("neo4j-password", "", "Neo4j password")
	flags.String("neo4j-database", "", "Neo4j database (default database when empty)")
	flags.String("postgres-dsn", "", "PostgreSQL connection string")
	flags.Int("batch-size", graph.DefaultBatchSize, "intents per write batch")
	flags.StringP("output", "o", "", "write the dry-run graph to this file (.md for Markdown, otherwise JSON)")

	bindFlags(flags, map[string]string{
		"log-level":      "log-level",
		"log-file":       "log-file",
		"no-color":       "no-color",
		"quiet":          "quiet",
		"sink":           "sink",
		"neo4j-uri":      "neo4j.uri",
		"neo4j-username": "neo4j.username",
		"neo4j-password": "neo4j.password",
		"neo4j-database": "neo4j.database",
		"postgres-dsn":   "postgres.dsn",
		"batch-size":     "batch-size",
		"output":         "output",
	})
}

// bindFlags binds each flag to its viper key.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(name)))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".aztopo" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".aztopo")
	}

	viper.SetEnvPrefix("AZTOPO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
