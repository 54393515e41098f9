// Package ingest turns Network Watcher topologies and connectivity checks
// into ordered graph intents.
package ingest

import (
	"fmt"

	"github.com/praetorian-inc/aztopo/pkg/azure/resourceid"
	"github.com/praetorian-inc/aztopo/pkg/graph"
)

// BuildTopology emits one node per resource followed by one relationship
// per association. Nothing is returned when any id or identifier is
// rejected.
//
// Association targets that are not among the resources are assumed to
// exist already; the sink leaves the relationship out when they do not.
func BuildTopology(t Topology) ([]graph.Intent, error) {
	nodes := make([]graph.Intent, 0, len(t.Resources))
	var rels []graph.Intent

	for _, res := range t.Resources {
		source, err := resourceid.Parse(res.ID)
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", res.Name, err)
		}

		node := graph.Node{
			Label: source.Label(),
			ID:    res.ID,
			Name:  res.Name,
		}
		if node.Name == "" {
			node.Name = source.ResourceName
		}
		if err := graph.Validate(node); err != nil {
			return nil, fmt.Errorf("resource %q: %w", res.ID, err)
		}
		nodes = append(nodes, node)

		for _, assoc := range res.Associations {
			target, err := resourceid.Parse(assoc.ResourceID)
			if err != nil {
				return nil, fmt.Errorf("association of %q: %w", res.ID, err)
			}

			rel := graph.Relationship{
				SourceLabel: node.Label,
				SourceID:    node.ID,
				TargetLabel: target.Label(),
				TargetID:    assoc.ResourceID,
				Type:        assoc.AssociationType,
			}
			if err := graph.Validate(rel); err != nil {
				return nil, fmt.Errorf("association of %q: %w", res.ID, err)
			}
			rels = append(rels, rel)
		}
	}

	return append(nodes, rels...), nil
}
