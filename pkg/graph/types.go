package graph

import (
	"context"
	"fmt"
	"log/slog"
)

// IntentKind discriminates node and relationship intents.
type IntentKind int

const (
	KindNode IntentKind = iota
	KindRelationship
)

func (k IntentKind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindRelationship:
		return "relationship"
	default:
		return "unknown"
	}
}

// Intent is a single idempotent graph mutation.
type Intent interface {
	Kind() IntentKind
}

// Node is a node merge intent. Nodes are identified by (Label, ID); Name
// is only written when the node is created.
type Node struct {
	Label string `json:"label"`
	ID    string `json:"id"`
	Name  string `json:"name"`
}

func (Node) Kind() IntentKind { return KindNode }

// Relationship is a relationship merge intent. A relationship is identified
// by its endpoints, each a (label, id) pair like a Node, and its Type. It
// only connects nodes that already exist.
type Relationship struct {
	SourceLabel string `json:"sourceLabel"`
	SourceID    string `json:"sourceId"`
	TargetLabel string `json:"targetLabel"`
	TargetID    string `json:"targetId"`
	Type        string `json:"type"`
}

func (Relationship) Kind() IntentKind { return KindRelationship }

func (r Relationship) String() string {
	return fmt.Sprintf("(%s:%s)-[%s]->(%s:%s)", r.SourceLabel, r.SourceID, r.Type, r.TargetLabel, r.TargetID)
}

// Sink applies intents to a graph store. Both operations must be
// idempotent.
type Sink interface {
	MergeNode(ctx context.Context, node Node) error
	MergeRelationship(ctx context.Context, rel Relationship) error
}

// BatchSink is implemented by sinks that can merge many intents of the
// same kind in one round trip.
type BatchSink interface {
	Sink
	MergeNodes(ctx context.Context, nodes []Node) (*BatchResult, error)
	MergeRelationships(ctx context.Context, rels []Relationship) (*BatchResult, error)
}

// BatchResult contains results from a bulk operation
type BatchResult struct {
	// Number of nodes created
	NodesCreated int `json:"nodesCreated"`
	// Number of relationships created
	RelationshipsCreated int `json:"relationshipsCreated"`
	// Relationships whose endpoints were missing
	RelationshipsSkipped int `json:"relationshipsSkipped"`
}

// Add accumulates other into b.
func (b *BatchResult) Add(other *BatchResult) {
	if other == nil {
		return
	}
	b.NodesCreated += other.NodesCreated
	b.RelationshipsCreated += other.RelationshipsCreated
	b.RelationshipsSkipped += other.RelationshipsSkipped
}

func (b *BatchResult) LogSummary(logger *slog.Logger) {
	logger.Info("graph merge summary",
		"nodes_created", b.NodesCreated,
		"relationships_created", b.RelationshipsCreated,
		"relationships_skipped", b.RelationshipsSkipped)
}

// Backend names accepted in Config.
const (
	BackendNeo4j    = "neo4j"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds database configuration
type Config struct {
	Backend  string            `json:"backend" mapstructure:"backend"`
	URI      string            `json:"uri" mapstructure:"uri"`
	Username string            `json:"username" mapstructure:"username"`
	Password string            `json:"password" mapstructure:"password"`
	Database string            `json:"database" mapstructure:"database"`
	Options  map[string]string `json:"options" mapstructure:"options"`
}
