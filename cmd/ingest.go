package cmd

import (
	"fmt"
	"os"

	"github.com/praetorian-inc/aztopo/internal/message"
	outputproviders "github.com/praetorian-inc/aztopo/internal/output_providers"
	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/praetorian-inc/aztopo/pkg/graph/adapters"
	"github.com/praetorian-inc/aztopo/pkg/ingest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a Network Watcher document from a file",
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	for _, kind := range []ingest.Kind{ingest.KindTopology, ingest.KindConnectivity} {
		ingestCmd.AddCommand(newIngestFileCmd(kind))
	}
}

func newIngestFileCmd(kind ingest.Kind) *cobra.Command {
	var (
		file   string
		jqExpr string
		dryRun bool
	)

	c := &cobra.Command{
		Use:   string(kind),
		Short: fmt.Sprintf("Ingest a %s document", kind),
		Example: fmt.Sprintf("  aztopo ingest %s -f %s.json\n  aztopo ingest %s -f response.json --jq .properties --dry-run",
			kind, kind, kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			document, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			message.Info("Ingesting %s from %s", kind, file)

			return runIngest(cmd, kind, dryRun, func(sink graph.Sink, opts ingest.Options) (*ingest.Report, error) {
				opts.JQ = jqExpr
				return ingest.Run(cmd.Context(), sink, kind, document, opts)
			})
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "path to the JSON document")
	c.Flags().StringVar(&jqExpr, "jq", "", "jq expression selecting the document inside the file")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "apply to an in-memory graph and print it")
	_ = c.MarkFlagRequired("file")
	return c
}

// runIngest opens the sink, runs fn and reports the outcome.
func runIngest(cmd *cobra.Command, kind ingest.Kind, dryRun bool, fn func(graph.Sink, ingest.Options) (*ingest.Report, error)) error {
	sink, closeSink, err := openSink(cmd.Context(), dryRun)
	if err != nil {
		return err
	}
	defer closeSink()

	report, err := fn(sink, ingest.Options{BatchSize: viper.GetInt("batch-size")})
	if err != nil {
		if code := ingest.ErrorCode(err); code != "" {
			return fmt.Errorf("%s rejected (%s, run %s): %w", kind, code, report.RunID, err)
		}
		return fmt.Errorf("%s ingestion failed after %d intents (run %s): %w", kind, report.Applied, report.RunID, err)
	}

	message.Success("Applied %d intents (%d nodes created, %d relationships created, %d skipped)",
		report.Applied, report.NodesCreated, report.RelationshipsCreated, report.RelationshipsSkipped)

	if mem, ok := sink.(*adapters.MemorySink); ok && dryRun {
		if path := viper.GetString("output"); path != "" {
			return outputproviders.ForPath(path).Write(mem.Snapshot())
		}
		return message.JSON(mem.Snapshot())
	}
	return nil
}
