package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	u "github.com/mpvl/unique"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jConfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/praetorian-inc/aztopo/pkg/graph/queries"
)

type Neo4jSink struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
	logger    *slog.Logger
}

func NewNeo4jSink(config *graph.Config) (*Neo4jSink, error) {
	driver, err := neo4j.NewDriverWithContext(config.URI,
		neo4j.BasicAuth(config.Username, config.Password, ""),
		func(c *neo4jConfig.Config) {
			if v, ok := config.Options["maxConnectionPoolSize"]; ok {
				if maxPoolSize, err := strconv.Atoi(v); err == nil {
					c.MaxConnectionPoolSize = maxPoolSize
				}
			}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	return &Neo4jSink{
		driver:    driver,
		database:  config.Database,
		batchSize: batchSizeOption(config),
		logger:    slog.Default().With("sink", graph.BackendNeo4j),
	}, nil
}

func batchSizeOption(config *graph.Config) int {
	if size, ok := config.Options["batchSize"]; ok {
		if n, err := strconv.Atoi(size); err == nil && n > 0 {
			return n
		}
	}
	return graph.DefaultBatchSize
}

func (s *Neo4jSink) VerifyConnectivity(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to verify connectivity: %w", err)
	}
	return nil
}

func (s *Neo4jSink) Close() error {
	if s.driver != nil {
		return s.driver.Close(context.Background())
	}
	return nil
}

func (s *Neo4jSink) MergeNode(ctx context.Context, node graph.Node) error {
	_, err := s.MergeNodes(ctx, []graph.Node{node})
	return err
}

func (s *Neo4jSink) MergeRelationship(ctx context.Context, rel graph.Relationship) error {
	_, err := s.MergeRelationships(ctx, []graph.Relationship{rel})
	return err
}

// MergeNodes merges nodes grouped by label, one transaction per chunk.
func (s *Neo4jSink) MergeNodes(ctx context.Context, nodes []graph.Node) (*graph.BatchResult, error) {
	result := &graph.BatchResult{}

	for _, group := range groupNodes(nodes) {
		cypher, err := queries.Render(queries.MergeNodesID, queries.NodeParams{Label: group.label})
		if err != nil {
			return result, err
		}

		for _, batch := range chunk(group.nodes, s.batchSize) {
			br, err := s.write(ctx, cypher, map[string]any{"nodes": nodeParams(batch)}, len(batch))
			if err != nil {
				return result, fmt.Errorf("failed to merge %s nodes: %w", group.label, err)
			}
			result.NodesCreated += br.NodesCreated
		}
	}

	return result, nil
}

// MergeRelationships merges relationships grouped by endpoint labels and
// type. Rows whose endpoints do not match are counted as skipped.
func (s *Neo4jSink) MergeRelationships(ctx context.Context, rels []graph.Relationship) (*graph.BatchResult, error) {
	result := &graph.BatchResult{}

	for _, group := range groupRelationships(rels) {
		cypher, err := queries.Render(queries.MergeRelationshipsID, group.params)
		if err != nil {
			return result, err
		}
		s.logger.Debug("query", "cypher", cypher)

		for _, batch := range chunk(group.rels, s.batchSize) {
			br, err := s.write(ctx, cypher, map[string]any{"rels": relationshipParams(batch)}, len(batch))
			if err != nil {
				return result, fmt.Errorf("failed to merge %s relationships: %w", group.params.Type, err)
			}
			result.RelationshipsCreated += br.RelationshipsCreated
			result.RelationshipsSkipped += br.RelationshipsSkipped
		}
	}

	return result, nil
}

// write runs one templated statement and reports its counters. size is the
// number of rows sent; rows missing from the returned total were skipped.
func (s *Neo4jSink) write(ctx context.Context, cypher string, params map[string]any, size int) (*graph.BatchResult, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		var total int64
		for res.Next(ctx) {
			if v, ok := res.Record().Get("total"); ok {
				if n, ok := v.(int64); ok {
					total = n
				}
			}
		}
		if err := res.Err(); err != nil {
			return nil, err
		}

		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get query stats: %w", err)
		}

		br := &graph.BatchResult{
			NodesCreated:         summary.Counters().NodesCreated(),
			RelationshipsCreated: summary.Counters().RelationshipsCreated(),
		}
		if _, isRel := params["rels"]; isRel && int(total) < size {
			br.RelationshipsSkipped = size - int(total)
		}
		return br, nil
	})
	if err != nil {
		return nil, err
	}

	return out.(*graph.BatchResult), nil
}

// Labels lists the node labels present in the database.
func (s *Neo4jSink) Labels(ctx context.Context) ([]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, "CALL db.labels() YIELD label RETURN label", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	var labels []string
	for res.Next(ctx) {
		if v, ok := res.Record().Get("label"); ok {
			if label, ok := v.(string); ok {
				labels = append(labels, label)
			}
		}
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("error during label iteration: %w", err)
	}
	return labels, nil
}

// CreateSchema creates an Id index for every label. Labels that fail the
// identifier allow-list are rejected before anything is created.
func (s *Neo4jSink) CreateSchema(ctx context.Context, labels []string) error {
	statements := make([]string, 0, len(labels))
	for _, label := range uniqueSorted(labels) {
		cypher, err := queries.Render(queries.NodeIDIndexID, queries.IndexParams{
			IndexName: IndexName(label),
			Label:     label,
		})
		if err != nil {
			return err
		}
		statements = append(statements, cypher)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	for _, cypher := range statements {
		res, err := session.Run(ctx, cypher, nil)
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	s.logger.Info("schema ready", "indexes", len(statements))
	return nil
}

// IndexName is the name of the Id index for label.
func IndexName(label string) string {
	return "node_id_" + label
}

type nodeGroup struct {
	label string
	nodes []graph.Node
}

// groupNodes groups nodes by label, in label order.
func groupNodes(nodes []graph.Node) []nodeGroup {
	index := make(map[string]int)
	var groups []nodeGroup
	for _, node := range nodes {
		i, ok := index[node.Label]
		if !ok {
			i = len(groups)
			index[node.Label] = i
			groups = append(groups, nodeGroup{label: node.Label})
		}
		groups[i].nodes = append(groups[i].nodes, node)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].label < groups[j].label })
	return groups
}

type relationshipGroup struct {
	params queries.RelationshipParams
	rels   []graph.Relationship
}

func groupRelationships(rels []graph.Relationship) []relationshipGroup {
	index := make(map[queries.RelationshipParams]int)
	var groups []relationshipGroup
	for _, rel := range rels {
		key := queries.RelationshipParams{
			SourceLabel: rel.SourceLabel,
			TargetLabel: rel.TargetLabel,
			Type:        rel.Type,
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, relationshipGroup{params: key})
		}
		groups[i].rels = append(groups[i].rels, rel)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].params, groups[j].params
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.SourceLabel != b.SourceLabel {
			return a.SourceLabel < b.SourceLabel
		}
		return a.TargetLabel < b.TargetLabel
	})
	return groups
}

func nodeParams(nodes []graph.Node) []map[string]any {
	params := make([]map[string]any, len(nodes))
	for i, node := range nodes {
		params[i] = map[string]any{
			"id":   node.ID,
			"name": node.Name,
		}
	}
	return params
}

func relationshipParams(rels []graph.Relationship) []map[string]any {
	params := make([]map[string]any, len(rels))
	for i, rel := range rels {
		params[i] = map[string]any{
			"sourceId": rel.SourceID,
			"targetId": rel.TargetID,
		}
	}
	return params
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = graph.DefaultBatchSize
	}
	var chunks [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

// uniqueSorted returns a sorted, de-duplicated copy of values.
func uniqueSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := append([]string(nil), values...)
	u.Strings(&out)
	return out
}
