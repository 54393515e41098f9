package cmd

import (
	"fmt"
	"log/slog"

	"github.com/praetorian-inc/aztopo/internal/message"
	"github.com/praetorian-inc/aztopo/pkg/azure/hop"
	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/praetorian-inc/aztopo/pkg/graph/adapters"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the graph schema in the configured sink",
	Long: `Create the graph schema in the configured sink.

For Neo4j an Id index is created for every hop category, every label already
present in the database and every --label. For PostgreSQL the node and
relationship tables are created; --drop removes them instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		extra, _ := cmd.Flags().GetStringSlice("label")
		drop, _ := cmd.Flags().GetBool("drop")

		backend := viper.GetString("sink")
		cfg, err := sinkConfig(backend)
		if err != nil {
			return err
		}

		switch backend {
		case graph.BackendNeo4j:
			if drop {
				return fmt.Errorf("--drop is only supported for the postgres sink")
			}
			sink, err := adapters.NewNeo4jSink(cfg)
			if err != nil {
				return err
			}
			defer sink.Close()

			existing, err := sink.Labels(ctx)
			if err != nil {
				return err
			}
			labels, skipped := schemaLabels(existing, extra)
			for _, label := range skipped {
				slog.Warn("skipping label that is not a safe identifier", "label", label)
			}
			if len(skipped) > 0 {
				message.Warning("Skipped %d existing labels that are not safe identifiers", len(skipped))
			}
			if err := sink.CreateSchema(ctx, labels); err != nil {
				return err
			}
			message.Success("Neo4j indexes ready for %d labels", len(labels))

		case graph.BackendPostgres:
			sink, err := adapters.OpenPostgresSink(ctx, cfg)
			if err != nil {
				return err
			}
			defer sink.Close()

			if drop {
				if err := sink.DropSchema(ctx); err != nil {
					return err
				}
				message.Success("PostgreSQL graph tables dropped")
				return nil
			}
			if err := sink.CreateSchema(ctx); err != nil {
				return err
			}
			message.Success("PostgreSQL graph tables ready")

		default:
			return fmt.Errorf("sink %q has no schema", backend)
		}
		return nil
	},
}

// schemaLabels lists the labels to index: every hop type, the safe labels
// already in the database and the requested extras. Extras are passed
// through unchecked so CreateSchema rejects a bad one.
func schemaLabels(existing, extra []string) (labels, skipped []string) {
	labels = append(labels, hop.Types()...)
	for _, label := range existing {
		if !graph.ValidIdentifier(label) {
			skipped = append(skipped, label)
			continue
		}
		labels = append(labels, label)
	}
	return append(labels, extra...), skipped
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringSlice("label", nil, "additional node labels to index (Neo4j)")
	schemaCmd.Flags().Bool("drop", false, "drop the graph tables (PostgreSQL)")
}
