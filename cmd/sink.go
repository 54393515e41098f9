package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/praetorian-inc/aztopo/pkg/graph/adapters"
	"github.com/spf13/viper"
)

// sinkConfig assembles the graph.Config for the configured backend.
func sinkConfig(backend string) (*graph.Config, error) {
	cfg := &graph.Config{
		Backend: backend,
		Options: map[string]string{"batchSize": strconv.Itoa(viper.GetInt("batch-size"))},
	}

	switch backend {
	case graph.BackendNeo4j:
		cfg.URI = viper.GetString("neo4j.uri")
		cfg.Username = viper.GetString("neo4j.username")
		cfg.Password = viper.GetString("neo4j.password")
		cfg.Database = viper.GetString("neo4j.database")
		if cfg.Password == "" {
			return nil, fmt.Errorf("neo4j password is required: set --neo4j-password or AZTOPO_NEO4J_PASSWORD")
		}
	case graph.BackendPostgres:
		cfg.URI = viper.GetString("postgres.dsn")
		if cfg.URI == "" {
			return nil, fmt.Errorf("postgres DSN is required: set --postgres-dsn or AZTOPO_POSTGRES_DSN")
		}
	case graph.BackendMemory:
	default:
		return nil, fmt.Errorf("unknown sink %q", backend)
	}
	return cfg, nil
}

// openSink connects to the configured sink. A dry run always uses the
// in-memory sink.
func openSink(ctx context.Context, dryRun bool) (graph.Sink, func() error, error) {
	backend := viper.GetString("sink")
	if dryRun {
		backend = graph.BackendMemory
	}

	cfg, err := sinkConfig(backend)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Backend {
	case graph.BackendNeo4j:
		sink, err := adapters.NewNeo4jSink(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := sink.VerifyConnectivity(ctx); err != nil {
			sink.Close()
			return nil, nil, err
		}
		return sink, sink.Close, nil
	case graph.BackendPostgres:
		sink, err := adapters.OpenPostgresSink(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := sink.VerifyConnectivity(ctx); err != nil {
			sink.Close()
			return nil, nil, err
		}
		return sink, sink.Close, nil
	default:
		return adapters.NewMemorySink(), func() error { return nil }, nil
	}
}
