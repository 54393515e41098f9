package cmd

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/praetorian-inc/aztopo/pkg/graph/adapters"
	"github.com/praetorian-inc/aztopo/pkg/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mcpNicID        = "/subscriptions/0000/resourceGroups/rg/providers/Microsoft.Network/networkInterfaces/nic1/ipConfigurations/c1"
	mcpConnectivity = `{"hops": [
		{"id": "h1", "resourceId": "` + mcpNicID + `", "nextHopIds": ["h2"]},
		{"id": "h2", "resourceId": "Internet"}
	]}`
)

func callTool(t *testing.T, kind ingest.Kind, sink *adapters.MemorySink, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()

	var req mcp.CallToolRequest
	req.Params.Name = toolName(kind)
	req.Params.Arguments = args

	result, err := ingestHandler(kind, sink, ingest.Options{})(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestIngestToolWritesToSink(t *testing.T) {
	sink := adapters.NewMemorySink()

	result := callTool(t, ingest.KindConnectivity, sink, map[string]interface{}{"document": mcpConnectivity})

	assert.False(t, result.IsError)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &report))
	assert.Equal(t, "connectivity", report["kind"])
	assert.Equal(t, float64(3), report["applied"])
	assert.Len(t, sink.Snapshot().Relationships, 1)
}

func TestIngestToolDryRun(t *testing.T) {
	sink := adapters.NewMemorySink()

	result := callTool(t, ingest.KindConnectivity, sink, map[string]interface{}{
		"document": `{"properties": ` + mcpConnectivity + `}`,
		"jq":       ".properties",
		"dryRun":   true,
	})

	assert.False(t, result.IsError)
	assert.Empty(t, sink.Snapshot().Nodes)

	var out struct {
		Graph adapters.Snapshot `json:"graph"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Len(t, out.Graph.Nodes, 2)
	assert.Len(t, out.Graph.Relationships, 1)
}

func TestIngestToolErrors(t *testing.T) {
	tests := []struct {
		name     string
		kind     ingest.Kind
		args     map[string]interface{}
		contains string
	}{
		{
			name:     "missing document",
			kind:     ingest.KindTopology,
			args:     map[string]interface{}{},
			contains: "document is required",
		},
		{
			name:     "malformed resource id",
			kind:     ingest.KindTopology,
			args:     map[string]interface{}{"document": `{"resources": [{"id": "nsg1"}]}`},
			contains: ingest.CodeMalformedResourceID,
		},
		{
			name:     "unknown next hop",
			kind:     ingest.KindConnectivity,
			args:     map[string]interface{}{"document": `{"hops": [{"id": "h1", "resourceId": "` + mcpNicID + `", "nextHopIds": ["h9"]}]}`},
			contains: ingest.CodeUnrecognizedDestination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := adapters.NewMemorySink()
			result := callTool(t, tt.kind, sink, tt.args)

			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.contains)
			assert.Empty(t, sink.Snapshot().Nodes)
		})
	}
}

func TestIngestToolDefinition(t *testing.T) {
	tool := ingestTool(ingest.KindTopology, "desc")
	assert.Equal(t, "aztopo-ingest-topology", tool.Name)
	assert.Contains(t, tool.InputSchema.Required, "document")
	assert.Contains(t, tool.InputSchema.Properties, "dryRun")
}
