package ingest

import (
	"fmt"

	"github.com/praetorian-inc/aztopo/pkg/azure/hop"
	"github.com/praetorian-inc/aztopo/pkg/graph"
)

// RelConnectedTo links consecutive hops of a connectivity check.
const RelConnectedTo = "ConnectedTo"

// resolution maps hop ids to canonical resource ids for one check.
type resolution map[string]string

// BuildConnectivity emits one node per hop followed by a ConnectedTo
// relationship for every next-hop reference of a network interface or
// virtual network gateway hop. Hops of other types do not originate links.
func BuildConnectivity(c ConnectivityCheck) ([]graph.Intent, error) {
	resolved := make(resolution, len(c.Hops))
	intents := make([]graph.Intent, 0, len(c.Hops))

	for _, h := range c.Hops {
		class, err := hop.Classify(h.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("hop %q: %w", h.ID, err)
		}
		resolved[h.ID] = class.ID
		intents = append(intents, graph.Node{Label: class.Type, ID: class.ID, Name: class.Name})
	}

	for _, h := range c.Hops {
		source, err := hop.Classify(h.ResourceID)
		if err != nil || !hop.IsLinkSource(source) {
			continue
		}

		for _, next := range h.NextHopIDs {
			dest, err := resolved.destination(h.ID, next)
			if err != nil {
				return nil, err
			}
			intents = append(intents, graph.Relationship{
				SourceLabel: source.Type,
				SourceID:    source.ID,
				TargetLabel: dest.Type,
				TargetID:    dest.ID,
				Type:        RelConnectedTo,
			})
		}
	}

	return intents, nil
}

func (r resolution) destination(hopID, nextHopID string) (hop.Classification, error) {
	id, ok := r[nextHopID]
	if !ok {
		return hop.Classification{}, &DestinationError{HopID: hopID, NextHopID: nextHopID}
	}

	dest, ok := hop.ClassifyCanonical(id)
	if !ok {
		return hop.Classification{}, &DestinationError{HopID: hopID, NextHopID: nextHopID, Resolved: id}
	}
	return dest, nil
}
