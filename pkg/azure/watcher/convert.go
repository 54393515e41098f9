package watcher

import (
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
	"github.com/praetorian-inc/aztopo/pkg/ingest"
)

// TopologyFromARM converts a getTopology response body.
func TopologyFromARM(t armnetwork.Topology) ingest.Topology {
	out := ingest.Topology{
		ID:              deref(t.ID),
		CreatedDateTime: timestamp(t.CreatedDateTime),
		LastModified:    timestamp(t.LastModified),
		Resources:       make([]ingest.Resource, 0, len(t.Resources)),
	}

	for _, r := range t.Resources {
		if r == nil {
			continue
		}
		res := ingest.Resource{
			ID:       deref(r.ID),
			Name:     deref(r.Name),
			Location: deref(r.Location),
		}
		for _, a := range r.Associations {
			if a == nil {
				continue
			}
			assoc := ingest.Association{
				Name:       deref(a.Name),
				ResourceID: deref(a.ResourceID),
			}
			if a.AssociationType != nil {
				assoc.AssociationType = string(*a.AssociationType)
			}
			res.Associations = append(res.Associations, assoc)
		}
		out.Resources = append(out.Resources, res)
	}

	return out
}

// ConnectivityFromARM converts a checkConnectivity result.
func ConnectivityFromARM(c armnetwork.ConnectivityInformation) ingest.ConnectivityCheck {
	out := ingest.ConnectivityCheck{
		Hops:           make([]ingest.Hop, 0, len(c.Hops)),
		AvgLatencyInMs: int(derefInt(c.AvgLatencyInMs)),
		MinLatencyInMs: int(derefInt(c.MinLatencyInMs)),
		MaxLatencyInMs: int(derefInt(c.MaxLatencyInMs)),
		ProbesSent:     int(derefInt(c.ProbesSent)),
		ProbesFailed:   int(derefInt(c.ProbesFailed)),
	}
	if c.ConnectionStatus != nil {
		out.ConnectionStatus = string(*c.ConnectionStatus)
	}

	for _, h := range c.Hops {
		if h == nil {
			continue
		}
		hop := ingest.Hop{
			ID:         deref(h.ID),
			ResourceID: deref(h.ResourceID),
			Type:       deref(h.Type),
			Address:    deref(h.Address),
		}
		for _, next := range h.NextHopIDs {
			if next != nil {
				hop.NextHopIDs = append(hop.NextHopIDs, *next)
			}
		}
		out.Hops = append(out.Hops, hop)
	}

	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int32) int32 {
	if i == nil {
		return 0
	}
	return *i
}

func timestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
