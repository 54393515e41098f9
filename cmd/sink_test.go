package cmd

import (
	"context"
	"testing"

	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/praetorian-inc/aztopo/pkg/graph/adapters"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withViper(t *testing.T, values map[string]any) {
	t.Helper()
	viper.Reset()
	for k, v := range values {
		viper.Set(k, v)
	}
	t.Cleanup(viper.Reset)
}

func TestSinkConfig(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		values  map[string]any
		wantErr string
		check   func(*testing.T, *graph.Config)
	}{
		{
			name:    "neo4j",
			backend: graph.BackendNeo4j,
			values: map[string]any{
				"neo4j.uri":      "bolt://db:7687",
				"neo4j.username": "neo4j",
				"neo4j.password": "secret",
				"batch-size":     50,
			},
			check: func(t *testing.T, cfg *graph.Config) {
				assert.Equal(t, "bolt://db:7687", cfg.URI)
				assert.Equal(t, "secret", cfg.Password)
				assert.Equal(t, "50", cfg.Options["batchSize"])
			},
		},
		{
			name:    "neo4j without password",
			backend: graph.BackendNeo4j,
			values:  map[string]any{"neo4j.uri": "bolt://db:7687"},
			wantErr: "neo4j password is required",
		},
		{
			name:    "postgres",
			backend: graph.BackendPostgres,
			values:  map[string]any{"postgres.dsn": "postgres://localhost/graph"},
			check: func(t *testing.T, cfg *graph.Config) {
				assert.Equal(t, "postgres://localhost/graph", cfg.URI)
			},
		},
		{
			name:    "postgres without dsn",
			backend: graph.BackendPostgres,
			wantErr: "postgres DSN is required",
		},
		{
			name:    "memory",
			backend: graph.BackendMemory,
			check: func(t *testing.T, cfg *graph.Config) {
				assert.Equal(t, graph.BackendMemory, cfg.Backend)
			},
		},
		{
			name:    "unknown",
			backend: "sqlite",
			wantErr: `unknown sink "sqlite"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withViper(t, tt.values)

			cfg, err := sinkConfig(tt.backend)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestOpenSinkDryRunUsesMemory(t *testing.T) {
	withViper(t, map[string]any{"sink": graph.BackendNeo4j})

	sink, closeSink, err := openSink(context.Background(), true)
	require.NoError(t, err)
	defer closeSink()

	assert.IsType(t, &adapters.MemorySink{}, sink)
}
