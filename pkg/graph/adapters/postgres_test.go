package adapters

import (
	"context"
	"os"
	"testing"

	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPostgresSinkIntegration needs a scratch database; it drops the graph tables.
func TestPostgresSinkIntegration(t *testing.T) {
	dsn := os.Getenv("AZTOPO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AZTOPO_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	sink, err := OpenPostgresSink(ctx, &graph.Config{URI: dsn})
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.DropSchema(ctx))
	require.NoError(t, sink.CreateSchema(ctx))

	br, err := sink.MergeNodes(ctx, []graph.Node{
		{Label: "networkInterfaces", ID: "nic", Name: "first"},
		{Label: "Internet", ID: "Internet", Name: "Internet"},
		{Label: "networkInterfaces", ID: "nic", Name: "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, br.NodesCreated)

	rel := graph.Relationship{
		SourceLabel: "networkInterfaces", SourceID: "nic",
		TargetLabel: "Internet", TargetID: "Internet",
		Type: "ConnectedTo",
	}
	dangling := rel
	dangling.TargetID = "missing"

	br, err = sink.MergeRelationships(ctx, []graph.Relationship{rel, dangling, rel})
	require.NoError(t, err)
	assert.Equal(t, 1, br.RelationshipsCreated)
	assert.Equal(t, 1, br.RelationshipsSkipped)

	_, err = sink.MergeNodes(ctx, []graph.Node{{Label: "virtualNetworkGateways", ID: "nic"}})
	require.NoError(t, err)
	fromGateway := rel
	fromGateway.SourceLabel = "virtualNetworkGateways"

	br, err = sink.MergeRelationships(ctx, []graph.Relationship{fromGateway})
	require.NoError(t, err)
	assert.Equal(t, 1, br.RelationshipsCreated)

	labels, err := sink.Labels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Internet", "networkInterfaces", "virtualNetworkGateways"}, labels)
}
