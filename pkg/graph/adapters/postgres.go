package adapters

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/praetorian-inc/aztopo/pkg/graph"
)

const postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS graph_nodes (
    label      TEXT NOT NULL,
    id         TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (label, id)
);

CREATE TABLE IF NOT EXISTS graph_relationships (
    source_label TEXT NOT NULL,
    source_id    TEXT NOT NULL,
    target_label TEXT NOT NULL,
    target_id    TEXT NOT NULL,
    type         TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (source_label, source_id, target_label, target_id, type)
);

CREATE INDEX IF NOT EXISTS idx_graph_nodes_id          ON graph_nodes(id);
CREATE INDEX IF NOT EXISTS idx_graph_relationships_tgt ON graph_relationships(target_label, target_id);
`

const mergeNodeSQL = `
INSERT INTO graph_nodes (label, id, name) VALUES ($1, $2, $3)
ON CONFLICT (label, id) DO NOTHING`

// mergeRelationshipSQL reports whether both endpoints exist and whether a
// row was inserted.
const mergeRelationshipSQL = `
WITH ok AS (
    SELECT EXISTS (SELECT 1 FROM graph_nodes WHERE label = $1 AND id = $2)
       AND EXISTS (SELECT 1 FROM graph_nodes WHERE label = $3 AND id = $4) AS matched
), ins AS (
    INSERT INTO graph_relationships (source_label, source_id, target_label, target_id, type)
    SELECT $1, $2, $3, $4, $5 FROM ok WHERE ok.matched
    ON CONFLICT (source_label, source_id, target_label, target_id, type) DO NOTHING
    RETURNING 1
)
SELECT ok.matched, (SELECT count(*) FROM ins) FROM ok`

// PostgresSink stores the graph in two tables using pgx.
type PostgresSink struct {
	db        *pgxpool.Pool
	batchSize int
}

// NewPostgresSink wraps an existing pool.
func NewPostgresSink(db *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{db: db, batchSize: graph.DefaultBatchSize}
}

// OpenPostgresSink connects to config.URI.
func OpenPostgresSink(ctx context.Context, config *graph.Config) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, config.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s := NewPostgresSink(pool)
	s.batchSize = batchSizeOption(config)
	return s, nil
}

func (s *PostgresSink) VerifyConnectivity(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to verify connectivity: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	s.db.Close()
	return nil
}

// CreateSchema creates the graph_nodes and graph_relationships tables if they don't exist.
func (s *PostgresSink) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, postgresSchemaSQL)
	return err
}

// DropSchema drops the graph tables.
func (s *PostgresSink) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS graph_relationships, graph_nodes CASCADE;`)
	return err
}

func (s *PostgresSink) MergeNode(ctx context.Context, node graph.Node) error {
	_, err := s.MergeNodes(ctx, []graph.Node{node})
	return err
}

func (s *PostgresSink) MergeRelationship(ctx context.Context, rel graph.Relationship) error {
	_, err := s.MergeRelationships(ctx, []graph.Relationship{rel})
	return err
}

func (s *PostgresSink) MergeNodes(ctx context.Context, nodes []graph.Node) (*graph.BatchResult, error) {
	result := &graph.BatchResult{}

	for _, batch := range chunk(nodes, s.batchSize) {
		err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
			b := &pgx.Batch{}
			for _, node := range batch {
				b.Queue(mergeNodeSQL, node.Label, node.ID, node.Name)
			}

			br := tx.SendBatch(ctx, b)
			defer br.Close()

			for _, node := range batch {
				ct, err := br.Exec()
				if err != nil {
					return fmt.Errorf("insert node %s %q: %w", node.Label, node.ID, err)
				}
				result.NodesCreated += int(ct.RowsAffected())
			}
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("graph: merge nodes: %w", err)
		}
	}

	return result, nil
}

func (s *PostgresSink) MergeRelationships(ctx context.Context, rels []graph.Relationship) (*graph.BatchResult, error) {
	result := &graph.BatchResult{}

	for _, batch := range chunk(rels, s.batchSize) {
		err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
			b := &pgx.Batch{}
			for _, rel := range batch {
				b.Queue(mergeRelationshipSQL, rel.SourceLabel, rel.SourceID, rel.TargetLabel, rel.TargetID, rel.Type)
			}

			br := tx.SendBatch(ctx, b)
			defer br.Close()

			for _, rel := range batch {
				var (
					matched bool
					created int64
				)
				if err := br.QueryRow().Scan(&matched, &created); err != nil {
					return fmt.Errorf("insert relationship %s: %w", rel, err)
				}
				switch {
				case !matched:
					result.RelationshipsSkipped++
				case created > 0:
					result.RelationshipsCreated++
				}
			}
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("graph: merge relationships: %w", err)
		}
	}

	return result, nil
}

// Labels lists the distinct node labels stored.
func (s *PostgresSink) Labels(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT label FROM graph_nodes ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("graph: list labels: %w", err)
	}
	labels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("graph: scan labels: %w", err)
	}
	return labels, nil
}
