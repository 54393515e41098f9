package adapters

import (
	"context"
	"sort"
	"sync"

	"github.com/praetorian-inc/aztopo/pkg/graph"
)

type nodeKey struct {
	label string
	id    string
}

type relKey struct {
	source  nodeKey
	target  nodeKey
	relType string
}

// MemorySink is an in-process graph with the same merge semantics as the
// database sinks. It backs dry runs.
type MemorySink struct {
	mu    sync.Mutex
	nodes map[nodeKey]graph.Node
	rels  map[relKey]graph.Relationship
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		nodes: make(map[nodeKey]graph.Node),
		rels:  make(map[relKey]graph.Relationship),
	}
}

func (m *MemorySink) MergeNode(ctx context.Context, node graph.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeNode(node)
	return nil
}

func (m *MemorySink) MergeRelationship(ctx context.Context, rel graph.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeRelationship(rel)
	return nil
}

func (m *MemorySink) MergeNodes(ctx context.Context, nodes []graph.Node) (*graph.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &graph.BatchResult{}
	for _, node := range nodes {
		if m.mergeNode(node) {
			result.NodesCreated++
		}
	}
	return result, nil
}

func (m *MemorySink) MergeRelationships(ctx context.Context, rels []graph.Relationship) (*graph.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &graph.BatchResult{}
	for _, rel := range rels {
		created, matched := m.mergeRelationship(rel)
		switch {
		case created:
			result.RelationshipsCreated++
		case !matched:
			result.RelationshipsSkipped++
		}
	}
	return result, nil
}

// mergeNode reports whether the node was created.
func (m *MemorySink) mergeNode(node graph.Node) bool {
	key := nodeKey{label: node.Label, id: node.ID}
	if _, ok := m.nodes[key]; ok {
		return false
	}
	m.nodes[key] = node
	return true
}

// mergeRelationship only connects existing endpoints. matched is false
// when an endpoint is missing.
func (m *MemorySink) mergeRelationship(rel graph.Relationship) (created, matched bool) {
	if _, ok := m.nodes[nodeKey{label: rel.SourceLabel, id: rel.SourceID}]; !ok {
		return false, false
	}
	if _, ok := m.nodes[nodeKey{label: rel.TargetLabel, id: rel.TargetID}]; !ok {
		return false, false
	}

	key := relKey{
		source:  nodeKey{label: rel.SourceLabel, id: rel.SourceID},
		target:  nodeKey{label: rel.TargetLabel, id: rel.TargetID},
		relType: rel.Type,
	}
	if _, ok := m.rels[key]; ok {
		return false, true
	}
	m.rels[key] = rel
	return true, true
}

// Snapshot is a sorted copy of a MemorySink's contents.
type Snapshot struct {
	Nodes         []graph.Node         `json:"nodes"`
	Relationships []graph.Relationship `json:"relationships"`
}

func (m *MemorySink) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Nodes:         make([]graph.Node, 0, len(m.nodes)),
		Relationships: make([]graph.Relationship, 0, len(m.rels)),
	}
	for _, n := range m.nodes {
		s.Nodes = append(s.Nodes, n)
	}
	for _, r := range m.rels {
		s.Relationships = append(s.Relationships, r)
	}

	sort.Slice(s.Nodes, func(i, j int) bool {
		if s.Nodes[i].Label != s.Nodes[j].Label {
			return s.Nodes[i].Label < s.Nodes[j].Label
		}
		return s.Nodes[i].ID < s.Nodes[j].ID
	})
	sort.Slice(s.Relationships, func(i, j int) bool {
		a, b := s.Relationships[i], s.Relationships[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.TargetID != b.TargetID {
			return a.TargetID < b.TargetID
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.SourceLabel != b.SourceLabel {
			return a.SourceLabel < b.SourceLabel
		}
		return a.TargetLabel < b.TargetLabel
	})
	return s
}
