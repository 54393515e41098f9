package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/praetorian-inc/aztopo/pkg/graph/adapters"
	"github.com/praetorian-inc/aztopo/pkg/ingest"
	"github.com/praetorian-inc/aztopo/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Launch aztopo's MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		sink, closeSink, err := openSink(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer closeSink()

		s := mcpServer(sink, ingest.Options{BatchSize: viper.GetInt("batch-size")})
		if err := server.ServeStdio(s); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func mcpServer(sink graph.Sink, opts ingest.Options) *server.MCPServer {
	s := server.NewMCPServer(
		"aztopo",
		version.FullVersion(),
		server.WithLogging(),
	)

	s.AddTool(ingestTool(ingest.KindTopology,
		"Ingest an Azure Network Watcher resource-group topology document into the graph. "+
			"Every resource becomes a node labeled by its resource type and every association becomes a relationship."),
		ingestHandler(ingest.KindTopology, sink, opts))
	s.AddTool(ingestTool(ingest.KindConnectivity,
		"Ingest an Azure Network Watcher connectivity check result into the graph. "+
			"Hops become nodes labeled by category, linked by ConnectedTo relationships."),
		ingestHandler(ingest.KindConnectivity, sink, opts))

	return s
}

func toolName(kind ingest.Kind) string {
	return "aztopo-ingest-" + string(kind)
}

func ingestTool(kind ingest.Kind, description string) mcp.Tool {
	return mcp.NewTool(toolName(kind),
		mcp.WithDescription(description),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{
			Title:          fmt.Sprintf("Ingest %s", kind),
			IdempotentHint: true,
		}),
		mcp.WithString("document",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("the %s JSON document", kind)),
		),
		mcp.WithString("jq",
			mcp.Description("optional jq expression selecting the document inside the input"),
		),
		mcp.WithBoolean("dryRun",
			mcp.Description("apply to an empty in-memory graph and return it instead of writing to the sink"),
		),
	)
}

func ingestHandler(kind ingest.Kind, sink graph.Sink, opts ingest.Options) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.Params.Arguments

		document, ok := args["document"].(string)
		if !ok || document == "" {
			return mcp.NewToolResultError("document is required"), nil
		}
		runOpts := opts
		if jq, ok := args["jq"].(string); ok {
			runOpts.JQ = jq
		}

		target := sink
		var mem *adapters.MemorySink
		if dryRun, _ := args["dryRun"].(bool); dryRun {
			mem = adapters.NewMemorySink()
			target = mem
		}

		report, err := ingest.Run(ctx, target, kind, []byte(document), runOpts)
		if err != nil {
			slog.Error("Tool run failed", "tool", toolName(kind), "run_id", report.RunID, "error", err)
			if code := ingest.ErrorCode(err); code != "" {
				return mcp.NewToolResultError(fmt.Sprintf("%s: %v", code, err)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("run %s failed after %d intents: %v", report.RunID, report.Applied, err)), nil
		}

		var out any = report
		if mem != nil {
			out = struct {
				*ingest.Report
				Graph adapters.Snapshot `json:"graph"`
			}{report, mem.Snapshot()}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
